package repositories

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"workitem-system/internal/entities"
	apperrors "workitem-system/pkg/errors"
)

// MemoryWorkItemRepository is an in-process store with the same conditional
// update guarantees as the SQL implementation. Used by tests and local runs
// without a database.
type MemoryWorkItemRepository struct {
	mu    sync.Mutex
	items map[uuid.UUID]*entities.WorkItem
}

func NewMemoryWorkItemRepository() *MemoryWorkItemRepository {
	return &MemoryWorkItemRepository{items: make(map[uuid.UUID]*entities.WorkItem)}
}

func (r *MemoryWorkItemRepository) Create(ctx context.Context, item *entities.WorkItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := cloneItem(item)
	r.items[cp.ID] = cp
	return nil
}

func (r *MemoryWorkItemRepository) Find(ctx context.Context, id uuid.UUID) (*entities.WorkItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("work item %s not found", id)
	}
	return cloneItem(item), nil
}

func (r *MemoryWorkItemRepository) List(ctx context.Context, filter WorkItemFilter) ([]*entities.WorkItem, uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	matched := make([]*entities.WorkItem, 0)
	for _, item := range r.items {
		if filter.Kind != "" && item.Kind != filter.Kind {
			continue
		}
		if filter.Status != "" && item.Status != filter.Status {
			continue
		}
		if filter.CreatedBy.Valid && item.CreatedBy != filter.CreatedBy.UUID {
			continue
		}
		if filter.AssignedTo.Valid && (!item.AssignedTo.Valid || item.AssignedTo.UUID != filter.AssignedTo.UUID) {
			continue
		}
		if filter.Unassigned && item.AssignedTo.Valid {
			continue
		}
		matched = append(matched, cloneItem(item))
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := uint64(len(matched))
	if filter.Limit > 0 {
		if filter.Offset >= total {
			return []*entities.WorkItem{}, total, nil
		}
		end := filter.Offset + filter.Limit
		if end > total {
			end = total
		}
		matched = matched[filter.Offset:end]
	}
	return matched, total, nil
}

func (r *MemoryWorkItemRepository) ClaimIf(ctx context.Context, id uuid.UUID, assignee uuid.UUID, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[id]
	if !ok {
		return false, apperrors.NewNotFoundError("work item %s not found", id)
	}
	if item.AssignedTo.Valid {
		return false, nil
	}
	item.AssignedTo = uuid.NullUUID{UUID: assignee, Valid: true}
	item.AssignedAt.SetValid(at)
	return true, nil
}

func (r *MemoryWorkItemRepository) Reassign(ctx context.Context, id uuid.UUID, assignee uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[id]
	if !ok {
		return apperrors.NewNotFoundError("work item %s not found", id)
	}
	item.AssignedTo = uuid.NullUUID{UUID: assignee, Valid: true}
	item.AssignedAt.SetValid(at)
	return nil
}

func (r *MemoryWorkItemRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string, entry entities.HistoryEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[id]
	if !ok {
		return apperrors.NewNotFoundError("work item %s not found", id)
	}
	item.Status = status
	item.History = append(item.History, entry)
	return nil
}

func (r *MemoryWorkItemRepository) SetSLADueDate(ctx context.Context, id uuid.UUID, due time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[id]
	if !ok {
		return apperrors.NewNotFoundError("work item %s not found", id)
	}
	item.SLADueDate.SetValid(due)
	return nil
}

func (r *MemoryWorkItemRepository) MarkAlertedIf(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[id]
	if !ok {
		return false, apperrors.NewNotFoundError("work item %s not found", id)
	}
	if item.AlertedAt.Valid {
		return false, nil
	}
	item.AlertedAt.SetValid(at)
	return true, nil
}

func (r *MemoryWorkItemRepository) ListStaleProposals(ctx context.Context, cutoff time.Time) ([]*entities.WorkItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*entities.WorkItem, 0)
	for _, item := range r.items {
		if item.Kind != entities.KindProposal {
			continue
		}
		if item.AssignedTo.Valid || item.AlertedAt.Valid {
			continue
		}
		if item.CreatedAt.After(cutoff) {
			continue
		}
		out = append(out, cloneItem(item))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryWorkItemRepository) ListOverdueRequests(ctx context.Context, now time.Time) ([]*entities.WorkItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*entities.WorkItem, 0)
	for _, item := range r.items {
		if item.Kind != entities.KindRequest {
			continue
		}
		if item.AlertedAt.Valid || !item.SLADueDate.Valid {
			continue
		}
		if item.IsTerminal() || !item.SLADueDate.Time.Before(now) {
			continue
		}
		out = append(out, cloneItem(item))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SLADueDate.Time.Before(out[j].SLADueDate.Time) })
	return out, nil
}

func (r *MemoryWorkItemRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return apperrors.NewNotFoundError("work item %s not found", id)
	}
	delete(r.items, id)
	return nil
}

func cloneItem(item *entities.WorkItem) *entities.WorkItem {
	cp := *item
	cp.History = append([]entities.HistoryEntry(nil), item.History...)
	cp.Attachments = append([]entities.Attachment(nil), item.Attachments...)
	if item.DynamicData != nil {
		cp.DynamicData = make(map[string]interface{}, len(item.DynamicData))
		for k, v := range item.DynamicData {
			cp.DynamicData[k] = v
		}
	}
	return &cp
}
