package events

import (
	"github.com/google/uuid"

	"workitem-system/internal/entities"
)

const (
	StatusChangedEventName = "workitem.status_changed"
	ClaimedEventName       = "workitem.claimed"
)

// StatusChangedEvent is published after a transition has been committed.
type StatusChangedEvent struct {
	Item       *entities.WorkItem
	FromStatus string
	ToStatus   string
	ActorID    uuid.UUID
}

func (e StatusChangedEvent) Name() string { return StatusChangedEventName }

// ClaimedEvent is published after a successful claim or reassignment.
type ClaimedEvent struct {
	Item    *entities.WorkItem
	ActorID uuid.UUID
}

func (e ClaimedEvent) Name() string { return ClaimedEventName }
