package controllers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"workitem-system/internal/authz"
	"workitem-system/internal/dto"
	"workitem-system/internal/entities"
	"workitem-system/internal/repositories"
	"workitem-system/internal/services"
	apperrors "workitem-system/pkg/errors"
	"workitem-system/pkg/utils"
)

type WorkItemController struct {
	service   services.WorkItemServiceInterface
	scheduler *services.StalenessScheduler
	logger    *zap.Logger
}

func NewWorkItemController(
	service services.WorkItemServiceInterface,
	scheduler *services.StalenessScheduler,
	logger *zap.Logger,
) *WorkItemController {
	return &WorkItemController{service: service, scheduler: scheduler, logger: logger}
}

func (c *WorkItemController) GetWorkItems(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	actor, err := utils.ActorFromCtx(reqCtx)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}

	limit, offset := utils.ParsePagination(ctx)
	filter := repositories.WorkItemFilter{
		Kind:   entities.WorkItemKind(ctx.QueryParam("kind")),
		Status: ctx.QueryParam("status"),
		Limit:  limit,
		Offset: offset,
	}
	if ctx.QueryParam("unassigned") == "true" {
		filter.Unassigned = true
	}

	items, total, err := c.service.List(reqCtx, actor, filter)
	if err != nil {
		c.logger.Error("listing work items failed", zap.Error(err))
		return utils.ErrorResponse(ctx, err)
	}

	out := make([]dto.WorkItemDTO, 0, len(items))
	for _, item := range items {
		out = append(out, dto.WorkItemFromEntity(item))
	}
	return utils.SuccessResponse(ctx, out, "work items fetched", http.StatusOK, total)
}

func (c *WorkItemController) FindWorkItem(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	actor, err := utils.ActorFromCtx(reqCtx)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		return utils.ErrorResponse(ctx, apperrors.NewValidationError("invalid work item id"))
	}

	item, err := c.service.Find(reqCtx, actor, id)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	return utils.SuccessResponse(ctx, dto.WorkItemFromEntity(item), "work item fetched", http.StatusOK)
}

func (c *WorkItemController) CreateWorkItem(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	actor, err := utils.ActorFromCtx(reqCtx)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}

	var data dto.CreateWorkItemDTO
	if err := ctx.Bind(&data); err != nil {
		return utils.ErrorResponse(ctx, apperrors.NewValidationError("malformed request body"))
	}
	if err := ctx.Validate(&data); err != nil {
		return utils.ErrorResponse(ctx, err)
	}

	item, err := c.service.Create(reqCtx, actor, data)
	if err != nil {
		c.logger.Error("creating work item failed", zap.Error(err))
		return utils.ErrorResponse(ctx, err)
	}
	return utils.SuccessResponse(ctx, dto.WorkItemFromEntity(item), "work item created", http.StatusCreated)
}

// PatchWorkItem multiplexes the mutations of the PATCH surface: claim,
// status transition, SLA due date, and manager reassignment.
func (c *WorkItemController) PatchWorkItem(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	actor, err := utils.ActorFromCtx(reqCtx)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		return utils.ErrorResponse(ctx, apperrors.NewValidationError("invalid work item id"))
	}

	var data dto.PatchWorkItemDTO
	if err := ctx.Bind(&data); err != nil {
		return utils.ErrorResponse(ctx, apperrors.NewValidationError("malformed request body"))
	}
	if err := ctx.Validate(&data); err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	if data.Empty() {
		return utils.ErrorResponse(ctx, apperrors.NewValidationError("nothing to update"))
	}

	var item *entities.WorkItem
	if data.Claim {
		if item, err = c.service.Claim(reqCtx, actor, id); err != nil {
			return utils.ErrorResponse(ctx, err)
		}
	}
	if data.AssignedTo != nil {
		if item, err = c.service.Reassign(reqCtx, actor, id, *data.AssignedTo); err != nil {
			return utils.ErrorResponse(ctx, err)
		}
	}
	if data.Status != nil {
		if item, err = c.service.AttemptTransition(reqCtx, actor, id, *data.Status); err != nil {
			return utils.ErrorResponse(ctx, err)
		}
	}
	if data.SLADueDate != nil {
		if item, err = c.service.SetSLADueDate(reqCtx, actor, id, *data.SLADueDate); err != nil {
			return utils.ErrorResponse(ctx, err)
		}
	}

	return utils.SuccessResponse(ctx, dto.WorkItemFromEntity(item), "work item updated", http.StatusOK)
}

func (c *WorkItemController) DeleteWorkItem(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	actor, err := utils.ActorFromCtx(reqCtx)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		return utils.ErrorResponse(ctx, apperrors.NewValidationError("invalid work item id"))
	}
	if err := c.service.Delete(reqCtx, actor, id); err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	return utils.SuccessResponse(ctx, nil, "work item deleted", http.StatusOK)
}

// StaleCheck triggers one scan outside the schedule.
func (c *WorkItemController) StaleCheck(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	actor, err := utils.ActorFromCtx(reqCtx)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	if !authz.Can(actor.Role, authz.ActionStaleCheck) {
		return utils.ErrorResponse(ctx, apperrors.NewForbiddenError("stale check is restricted to managers"))
	}

	notified, failed := c.scheduler.RunNow(reqCtx)
	result := dto.StaleCheckResultDTO{Notified: notified, Failed: failed}
	return utils.SuccessResponse(ctx, result, "stale check finished", http.StatusOK)
}
