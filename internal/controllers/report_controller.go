package controllers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"workitem-system/internal/entities"
	"workitem-system/internal/repositories"
	"workitem-system/internal/services"
	"workitem-system/pkg/utils"
)

type ReportController struct {
	service services.ReportServiceInterface
	logger  *zap.Logger
}

func NewReportController(service services.ReportServiceInterface, logger *zap.Logger) *ReportController {
	return &ReportController{service: service, logger: logger}
}

// ExportWorkItems streams the filtered listing as an XLSX attachment.
func (c *ReportController) ExportWorkItems(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	actor, err := utils.ActorFromCtx(reqCtx)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}

	filter := repositories.WorkItemFilter{
		Kind:   entities.WorkItemKind(ctx.QueryParam("kind")),
		Status: ctx.QueryParam("status"),
	}
	file, err := c.service.BuildWorkItemsReport(reqCtx, actor, filter)
	if err != nil {
		c.logger.Error("building report failed", zap.Error(err))
		return utils.ErrorResponse(ctx, err)
	}

	ctx.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="work-items.xlsx"`)
	ctx.Response().Header().Set(echo.HeaderContentType,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	ctx.Response().WriteHeader(http.StatusOK)
	if err := file.Write(ctx.Response().Writer); err != nil {
		c.logger.Error("writing report failed", zap.Error(err))
		return err
	}
	return nil
}
