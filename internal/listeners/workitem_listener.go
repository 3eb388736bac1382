package listeners

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"workitem-system/internal/entities"
	"workitem-system/internal/events"
	"workitem-system/internal/repositories"
	"workitem-system/internal/services"
	"workitem-system/pkg/constants"
	apperrors "workitem-system/pkg/errors"
	"workitem-system/pkg/eventbus"
)

// WorkItemListener owns the post-commit side effects of engine mutations.
// It runs on the event bus, so a failing transport can never roll back the
// transition that triggered it.
type WorkItemListener struct {
	dispatcher services.NotificationDispatcherInterface
	quota      services.QuotaAccumulatorInterface
	userRepo   repositories.UserRepositoryInterface
	logger     *zap.Logger
}

func NewWorkItemListener(
	dispatcher services.NotificationDispatcherInterface,
	quota services.QuotaAccumulatorInterface,
	userRepo repositories.UserRepositoryInterface,
	logger *zap.Logger,
) *WorkItemListener {
	return &WorkItemListener{
		dispatcher: dispatcher,
		quota:      quota,
		userRepo:   userRepo,
		logger:     logger,
	}
}

func (l *WorkItemListener) Register(bus *eventbus.Bus) {
	bus.Subscribe(events.StatusChangedEventName, l.onStatusChanged)
}

func (l *WorkItemListener) onStatusChanged(ctx context.Context, event eventbus.Event) error {
	e, ok := event.(events.StatusChangedEvent)
	if !ok {
		return nil
	}
	if e.Item.Kind != entities.KindProposal {
		return nil
	}

	var firstErr error
	if e.ToStatus == constants.ProposalStatusImplemented && e.Item.Value.Valid {
		if err := l.quota.Accumulate(ctx, e.Item.CreatedBy, e.Item.Value.Float64); err != nil {
			firstErr = apperrors.NewExternalDependencyError("quota accumulation failed: %v", err)
		}
	}
	if err := l.notifyCreator(ctx, e); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// notifyCreator emails the proposal's consultant about the new status.
func (l *WorkItemListener) notifyCreator(ctx context.Context, e events.StatusChangedEvent) error {
	to := ""
	if e.Item.ConsultantEmail.Valid {
		to = e.Item.ConsultantEmail.String
	} else if creator, err := l.userRepo.FindByID(ctx, e.Item.CreatedBy); err == nil {
		to = creator.Email
	}
	if to == "" {
		return nil
	}

	subject := fmt.Sprintf("Proposal %s: %s", e.Item.Code, e.ToStatus)
	text := fmt.Sprintf("Proposal %s moved from %s to %s.", e.Item.Code, e.FromStatus, e.ToStatus)
	html := fmt.Sprintf("<p>Proposal <b>%s</b> moved from %s to <b>%s</b>.</p>",
		e.Item.Code, e.FromStatus, e.ToStatus)

	if _, err := l.dispatcher.Send(ctx, to, subject, text, html); err != nil {
		return apperrors.NewExternalDependencyError("status notification failed: %v", err)
	}
	return nil
}
