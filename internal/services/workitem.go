package services

import (
	"context"
	"strings"
	"time"

	"github.com/aarondl/null/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"workitem-system/internal/authz"
	"workitem-system/internal/dto"
	"workitem-system/internal/entities"
	"workitem-system/internal/events"
	"workitem-system/internal/repositories"
	"workitem-system/pkg/constants"
	apperrors "workitem-system/pkg/errors"
	"workitem-system/pkg/eventbus"
)

// CompanyRegistryInterface is the creation-time enrichment collaborator.
type CompanyRegistryInterface interface {
	Lookup(ctx context.Context, cnpj string) (*CompanyInfo, error)
}

type CompanyInfo struct {
	LegalName string
	TradeName string
	City      string
	State     string
}

type WorkItemServiceInterface interface {
	Create(ctx context.Context, actor entities.Actor, data dto.CreateWorkItemDTO) (*entities.WorkItem, error)
	Find(ctx context.Context, actor entities.Actor, id uuid.UUID) (*entities.WorkItem, error)
	List(ctx context.Context, actor entities.Actor, filter repositories.WorkItemFilter) ([]*entities.WorkItem, uint64, error)
	AttemptTransition(ctx context.Context, actor entities.Actor, id uuid.UUID, toStatus string) (*entities.WorkItem, error)
	Claim(ctx context.Context, actor entities.Actor, id uuid.UUID) (*entities.WorkItem, error)
	Reassign(ctx context.Context, actor entities.Actor, id uuid.UUID, newAssignee uuid.UUID) (*entities.WorkItem, error)
	SetSLADueDate(ctx context.Context, actor entities.Actor, id uuid.UUID, due time.Time) (*entities.WorkItem, error)
	Delete(ctx context.Context, actor entities.Actor, id uuid.UUID) error
}

type WorkItemService struct {
	repo     repositories.WorkItemRepositoryInterface
	registry CompanyRegistryInterface
	bus      *eventbus.Bus
	logger   *zap.Logger
	now      func() time.Time
}

func NewWorkItemService(
	repo repositories.WorkItemRepositoryInterface,
	registry CompanyRegistryInterface,
	bus *eventbus.Bus,
	logger *zap.Logger,
) *WorkItemService {
	return &WorkItemService{
		repo:     repo,
		registry: registry,
		bus:      bus,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *WorkItemService) Create(ctx context.Context, actor entities.Actor, data dto.CreateWorkItemDTO) (*entities.WorkItem, error) {
	if !authz.Authorize(actor, authz.ActionCreate, nil) {
		return nil, apperrors.NewForbiddenError("role %s may not create work items", actor.Role)
	}

	now := s.now()
	item := &entities.WorkItem{
		ID:        uuid.New(),
		CreatedBy: actor.ID,
		CreatedAt: now,
		History:   []entities.HistoryEntry{},
	}

	switch entities.WorkItemKind(data.Kind) {
	case entities.KindProposal:
		item.Kind = entities.KindProposal
		item.Status = constants.ProposalStatusUnderReview
		item.Code = generateCode("PRP", item.ID)
		if data.CNPJ != "" {
			item.CNPJ = null.StringFrom(data.CNPJ)
		}
		if data.Operator != "" {
			item.Operator = null.StringFrom(strings.ToLower(data.Operator))
		}
		if data.Value > 0 {
			item.Value = null.Float64From(data.Value)
		}
		if data.LivesCount > 0 {
			item.LivesCount = null.IntFrom(data.LivesCount)
		}
		if data.ConsultantEmail != "" {
			item.ConsultantEmail = null.StringFrom(strings.ToLower(strings.TrimSpace(data.ConsultantEmail)))
		}
		if data.ClientName != "" {
			item.ClientName = null.StringFrom(data.ClientName)
		}
		s.enrichFromRegistry(ctx, item)
	case entities.KindRequest:
		item.Kind = entities.KindRequest
		item.Status = constants.RequestStatusOpen
		item.Code = generateCode("MOV", item.ID)
		if data.Type != "" {
			item.Type = null.StringFrom(data.Type)
		}
		if data.Subtype != "" {
			item.Subtype = null.StringFrom(data.Subtype)
		}
		if data.SLADueDate != nil {
			if data.SLADueDate.Before(now) {
				return nil, apperrors.NewValidationError("sla_due_date must not precede creation time")
			}
			item.SLADueDate = null.TimeFrom(*data.SLADueDate)
		}
		item.Attachments = data.Attachments
		item.DynamicData = data.DynamicData
	default:
		return nil, apperrors.NewValidationError("unknown work item kind %q", data.Kind)
	}

	if err := s.repo.Create(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// enrichFromRegistry is best-effort: a registry failure is logged and never
// blocks creation.
func (s *WorkItemService) enrichFromRegistry(ctx context.Context, item *entities.WorkItem) {
	if s.registry == nil || !item.CNPJ.Valid {
		return
	}
	info, err := s.registry.Lookup(ctx, item.CNPJ.String)
	if err != nil {
		s.logger.Warn("company registry lookup failed",
			zap.String("cnpj", item.CNPJ.String),
			zap.Error(err),
		)
		return
	}
	if info.LegalName != "" {
		item.CompanyName = null.StringFrom(info.LegalName)
	}
	if !item.ClientName.Valid && info.TradeName != "" {
		item.ClientName = null.StringFrom(info.TradeName)
	}
}

func (s *WorkItemService) Find(ctx context.Context, actor entities.Actor, id uuid.UUID) (*entities.WorkItem, error) {
	item, err := s.repo.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !authz.Authorize(actor, authz.ActionView, item) {
		return nil, apperrors.NewForbiddenError("no access to work item %s", item.Code)
	}
	return item, nil
}

func (s *WorkItemService) List(ctx context.Context, actor entities.Actor, filter repositories.WorkItemFilter) ([]*entities.WorkItem, uint64, error) {
	// Consultants only ever see their own items; the guard scope is applied
	// here as a query constraint instead of post-filtering.
	if actor.Role == constants.RoleConsultant {
		filter.CreatedBy = uuid.NullUUID{UUID: actor.ID, Valid: true}
	}
	return s.repo.List(ctx, filter)
}

// AttemptTransition is the single path a status change can take: guard,
// state-machine check, atomic persist with audit append, side effects.
func (s *WorkItemService) AttemptTransition(ctx context.Context, actor entities.Actor, id uuid.UUID, toStatus string) (*entities.WorkItem, error) {
	item, err := s.repo.Find(ctx, id)
	if err != nil {
		return nil, err
	}

	if !validStatusFor(item.Kind, toStatus) {
		return nil, apperrors.NewValidationError("unknown status %q for kind %s", toStatus, item.Kind)
	}

	if !authz.Authorize(actor, authz.ActionTransition, item) {
		return nil, apperrors.NewForbiddenError("not allowed to transition work item %s", item.Code)
	}

	// Same-status request is a no-op: no audit entry, no side effects.
	if item.Status == toStatus {
		return item, nil
	}

	if !s.edgeAllowed(actor, item, toStatus) {
		return nil, apperrors.NewInvalidTransitionError("transition %s → %s not allowed for kind %s",
			item.Status, toStatus, item.Kind)
	}

	entry := entities.HistoryEntry{
		Status:  toStatus,
		ActorID: actor.ID,
		At:      s.historyTimestamp(item),
	}
	if err := s.repo.UpdateStatus(ctx, id, toStatus, entry); err != nil {
		return nil, err
	}

	fromStatus := item.Status
	item.Status = toStatus
	item.History = append(item.History, entry)

	s.bus.Publish(ctx, events.StatusChangedEvent{
		Item:       item,
		FromStatus: fromStatus,
		ToStatus:   toStatus,
		ActorID:    actor.ID,
	})
	return item, nil
}

// edgeAllowed applies the per-kind state machine. Managers bypass the edge
// table entirely: reopening or downgrading finished work is an intentional
// operational override.
func (s *WorkItemService) edgeAllowed(actor entities.Actor, item *entities.WorkItem, toStatus string) bool {
	if constants.IsManagerRole(actor.Role) {
		return true
	}
	switch item.Kind {
	case entities.KindRequest:
		return constants.RequestEdgeAllowed(item.Status, toStatus)
	case entities.KindProposal:
		return constants.ProposalForwardAllowed(item.Status, toStatus)
	}
	return false
}

// historyTimestamp keeps audit timestamps non-decreasing even if the wall
// clock steps backwards between writes.
func (s *WorkItemService) historyTimestamp(item *entities.WorkItem) time.Time {
	now := s.now()
	if n := len(item.History); n > 0 && now.Before(item.History[n-1].At) {
		return item.History[n-1].At
	}
	return now
}

// Claim performs the unassigned→assigned transition. Atomicity is delegated
// to the store's conditional write; exactly one concurrent caller wins.
func (s *WorkItemService) Claim(ctx context.Context, actor entities.Actor, id uuid.UUID) (*entities.WorkItem, error) {
	item, err := s.repo.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !authz.Can(actor.Role, authz.ActionClaim) {
		return nil, apperrors.NewForbiddenError("role %s may not claim work items", actor.Role)
	}
	if item.AssignedTo.Valid {
		return nil, apperrors.NewAlreadyClaimedError("work item %s is already assigned", item.Code)
	}

	at := s.now()
	won, err := s.repo.ClaimIf(ctx, id, actor.ID, at)
	if err != nil {
		return nil, err
	}
	if !won {
		return nil, apperrors.NewAlreadyClaimedError("work item %s is already assigned", item.Code)
	}

	item.AssignedTo = uuid.NullUUID{UUID: actor.ID, Valid: true}
	item.AssignedAt = null.TimeFrom(at)

	s.bus.Publish(ctx, events.ClaimedEvent{Item: item, ActorID: actor.ID})
	return item, nil
}

// Reassign is the privileged overwrite path. It bypasses the null check and
// records an audit entry at the current status.
func (s *WorkItemService) Reassign(ctx context.Context, actor entities.Actor, id uuid.UUID, newAssignee uuid.UUID) (*entities.WorkItem, error) {
	item, err := s.repo.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !authz.Authorize(actor, authz.ActionReassign, item) {
		return nil, apperrors.NewForbiddenError("only managers may reassign work items")
	}

	at := s.now()
	if err := s.repo.Reassign(ctx, id, newAssignee, at); err != nil {
		return nil, err
	}
	entry := entities.HistoryEntry{Status: item.Status, ActorID: actor.ID, At: at}
	if err := s.repo.UpdateStatus(ctx, id, item.Status, entry); err != nil {
		return nil, err
	}

	item.AssignedTo = uuid.NullUUID{UUID: newAssignee, Valid: true}
	item.AssignedAt = null.TimeFrom(at)
	item.History = append(item.History, entry)

	s.bus.Publish(ctx, events.ClaimedEvent{Item: item, ActorID: actor.ID})
	return item, nil
}

func (s *WorkItemService) SetSLADueDate(ctx context.Context, actor entities.Actor, id uuid.UUID, due time.Time) (*entities.WorkItem, error) {
	item, err := s.repo.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if item.Kind != entities.KindRequest {
		return nil, apperrors.NewValidationError("sla_due_date applies to requests only")
	}
	if !authz.Authorize(actor, authz.ActionEditSLA, item) {
		return nil, apperrors.NewForbiddenError("not allowed to edit the SLA of work item %s", item.Code)
	}
	if due.Before(item.CreatedAt) {
		return nil, apperrors.NewValidationError("sla_due_date must not precede creation time")
	}
	if err := s.repo.SetSLADueDate(ctx, id, due); err != nil {
		return nil, err
	}
	item.SLADueDate = null.TimeFrom(due)
	return item, nil
}

// Delete removes a proposal. Requests have no deletion path; they reach a
// terminal status and stay for audit.
func (s *WorkItemService) Delete(ctx context.Context, actor entities.Actor, id uuid.UUID) error {
	item, err := s.repo.Find(ctx, id)
	if err != nil {
		return err
	}
	if item.Kind != entities.KindProposal {
		return apperrors.NewValidationError("requests cannot be deleted")
	}
	if !authz.Authorize(actor, authz.ActionDelete, item) {
		return apperrors.NewForbiddenError("only managers may delete proposals")
	}
	return s.repo.Delete(ctx, id)
}

func validStatusFor(kind entities.WorkItemKind, status string) bool {
	switch kind {
	case entities.KindRequest:
		return constants.IsRequestStatus(status)
	case entities.KindProposal:
		return constants.IsProposalStatus(status)
	}
	return false
}

func generateCode(prefix string, id uuid.UUID) string {
	return prefix + "-" + strings.ToUpper(strings.ReplaceAll(id.String(), "-", "")[:8])
}
