package controllers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"workitem-system/internal/services"
	"workitem-system/pkg/utils"
)

type DashboardController struct {
	service services.DashboardServiceInterface
	logger  *zap.Logger
}

func NewDashboardController(service services.DashboardServiceInterface, logger *zap.Logger) *DashboardController {
	return &DashboardController{service: service, logger: logger}
}

func (c *DashboardController) Summary(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	actor, err := utils.ActorFromCtx(reqCtx)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}

	summary, err := c.service.Summary(reqCtx, actor)
	if err != nil {
		c.logger.Error("building dashboard summary failed", zap.Error(err))
		return utils.ErrorResponse(ctx, err)
	}
	return utils.SuccessResponse(ctx, summary, "summary built", http.StatusOK)
}
