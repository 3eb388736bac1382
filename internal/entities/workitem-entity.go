package entities

import (
	"time"

	"github.com/aarondl/null/v8"
	"github.com/google/uuid"

	"workitem-system/pkg/constants"
)

type WorkItemKind string

const (
	KindProposal WorkItemKind = "PROPOSAL"
	KindRequest  WorkItemKind = "REQUEST"
)

// HistoryEntry is one row of the append-only audit log.
type HistoryEntry struct {
	Status  string    `json:"status"`
	ActorID uuid.UUID `json:"actor_id"`
	At      time.Time `json:"at"`
}

// Attachment metadata only; upload transport lives elsewhere.
type Attachment struct {
	Name string `json:"name"`
	Path string `json:"path"`
	Size int64  `json:"size,omitempty"`
}

// WorkItem is the unified record behind both proposals and requests.
// It is mutated only through the service layer, never by direct field writes.
type WorkItem struct {
	ID         uuid.UUID
	Kind       WorkItemKind
	Code       string
	Status     string
	CreatedBy  uuid.UUID
	AssignedTo uuid.NullUUID
	CreatedAt  time.Time
	AssignedAt null.Time
	AlertedAt  null.Time

	// Proposal fields.
	CNPJ            null.String
	Operator        null.String
	Value           null.Float64
	LivesCount      null.Int
	ConsultantEmail null.String
	ClientName      null.String
	CompanyName     null.String

	// Request fields.
	SLADueDate  null.Time
	Type        null.String
	Subtype     null.String
	Attachments []Attachment
	DynamicData map[string]interface{}

	History []HistoryEntry
}

// IsTerminal reports whether the current status has no outgoing edges.
func (w *WorkItem) IsTerminal() bool {
	switch w.Kind {
	case KindRequest:
		return constants.IsRequestTerminal(w.Status)
	case KindProposal:
		return constants.IsProposalTerminal(w.Status)
	}
	return false
}

// IsAssigned reports whether the item has been claimed.
func (w *WorkItem) IsAssigned() bool {
	return w.AssignedTo.Valid
}
