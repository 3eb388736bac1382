package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"

	"workitem-system/internal/entities"
)

// WorkItemFilter narrows List queries. Zero values mean "no constraint".
type WorkItemFilter struct {
	Kind       entities.WorkItemKind
	Status     string
	CreatedBy  uuid.NullUUID
	AssignedTo uuid.NullUUID
	Unassigned bool
	Limit      uint64
	Offset     uint64
}

// WorkItemRepositoryInterface is the narrow persistence contract the engine
// consumes. ClaimIf and MarkAlertedIf are the store's atomic conditional
// updates; they are the only concurrency primitives the engine relies on.
type WorkItemRepositoryInterface interface {
	Create(ctx context.Context, item *entities.WorkItem) error
	Find(ctx context.Context, id uuid.UUID) (*entities.WorkItem, error)
	List(ctx context.Context, filter WorkItemFilter) ([]*entities.WorkItem, uint64, error)

	// ClaimIf sets assigned_to/assigned_at iff assigned_to is currently
	// null. Exactly one concurrent caller wins; the rest get false.
	ClaimIf(ctx context.Context, id uuid.UUID, assignee uuid.UUID, at time.Time) (bool, error)

	// Reassign overwrites the assignee unconditionally (privileged path).
	Reassign(ctx context.Context, id uuid.UUID, assignee uuid.UUID, at time.Time) error

	// UpdateStatus persists the new status and appends the audit entry in
	// one write.
	UpdateStatus(ctx context.Context, id uuid.UUID, status string, entry entities.HistoryEntry) error

	SetSLADueDate(ctx context.Context, id uuid.UUID, due time.Time) error

	// MarkAlertedIf stamps alerted_at iff it is still null, so a breach is
	// notified at most once even across concurrent scans.
	MarkAlertedIf(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)

	// ListStaleProposals returns unassigned, unalerted proposals created at
	// or before the cutoff.
	ListStaleProposals(ctx context.Context, cutoff time.Time) ([]*entities.WorkItem, error)

	// ListOverdueRequests returns non-terminal, unalerted requests whose
	// SLA due date has passed.
	ListOverdueRequests(ctx context.Context, now time.Time) ([]*entities.WorkItem, error)

	Delete(ctx context.Context, id uuid.UUID) error
}

// UserRepositoryInterface is the identity lookup the engine needs: resolving
// actors to users and finding who receives staleness alerts.
type UserRepositoryInterface interface {
	FindByID(ctx context.Context, id uuid.UUID) (*entities.User, error)
	FindByEmail(ctx context.Context, email string) (*entities.User, error)
	ListManagerEmails(ctx context.Context) ([]string, error)
	Create(ctx context.Context, user *entities.User) error
}
