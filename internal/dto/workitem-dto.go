package dto

import (
	"time"

	"github.com/aarondl/null/v8"
	"github.com/google/uuid"

	"workitem-system/internal/entities"
)

type CreateWorkItemDTO struct {
	Kind string `json:"kind" validate:"required,oneof=PROPOSAL REQUEST"`

	// Proposal fields.
	CNPJ            string  `json:"cnpj" validate:"omitempty,cnpj"`
	Operator        string  `json:"operator" validate:"omitempty,max=100"`
	Value           float64 `json:"value" validate:"omitempty,gte=0"`
	LivesCount      int     `json:"lives_count" validate:"omitempty,gte=0"`
	ConsultantEmail string  `json:"consultant_email" validate:"omitempty,email"`
	ClientName      string  `json:"client_name" validate:"omitempty,max=200"`

	// Request fields.
	Type        string                 `json:"type" validate:"omitempty,max=100"`
	Subtype     string                 `json:"subtype" validate:"omitempty,max=100"`
	SLADueDate  *time.Time             `json:"sla_due_date"`
	Attachments []entities.Attachment  `json:"attachments" validate:"omitempty,dive"`
	DynamicData map[string]interface{} `json:"dynamic_data"`
}

// PatchWorkItemDTO covers every mutation the PATCH endpoint accepts. At
// least one field must be present.
type PatchWorkItemDTO struct {
	Status     *string    `json:"status" validate:"omitempty,min=1"`
	Claim      bool       `json:"claim"`
	SLADueDate *time.Time `json:"sla_due_date"`
	AssignedTo *uuid.UUID `json:"assigned_to"`
}

func (d *PatchWorkItemDTO) Empty() bool {
	return d.Status == nil && !d.Claim && d.SLADueDate == nil && d.AssignedTo == nil
}

type HistoryEntryDTO struct {
	Status  string    `json:"status"`
	ActorID uuid.UUID `json:"actor_id"`
	At      time.Time `json:"at"`
}

type WorkItemDTO struct {
	ID         uuid.UUID `json:"id"`
	Kind       string    `json:"kind"`
	Code       string    `json:"code"`
	Status     string    `json:"status"`
	CreatedBy  uuid.UUID `json:"created_by"`
	AssignedTo *string   `json:"assigned_to"`
	CreatedAt  time.Time `json:"created_at"`
	AssignedAt null.Time `json:"assigned_at"`
	AlertedAt  null.Time `json:"alerted_at"`

	CNPJ            null.String  `json:"cnpj,omitempty"`
	Operator        null.String  `json:"operator,omitempty"`
	Value           null.Float64 `json:"value,omitempty"`
	LivesCount      null.Int     `json:"lives_count,omitempty"`
	ConsultantEmail null.String  `json:"consultant_email,omitempty"`
	ClientName      null.String  `json:"client_name,omitempty"`
	CompanyName     null.String  `json:"company_name,omitempty"`

	SLADueDate  null.Time              `json:"sla_due_date,omitempty"`
	Type        null.String            `json:"type,omitempty"`
	Subtype     null.String            `json:"subtype,omitempty"`
	Attachments []entities.Attachment  `json:"attachments,omitempty"`
	DynamicData map[string]interface{} `json:"dynamic_data,omitempty"`

	History []HistoryEntryDTO `json:"history"`
}

func WorkItemFromEntity(item *entities.WorkItem) WorkItemDTO {
	out := WorkItemDTO{
		ID:              item.ID,
		Kind:            string(item.Kind),
		Code:            item.Code,
		Status:          item.Status,
		CreatedBy:       item.CreatedBy,
		CreatedAt:       item.CreatedAt,
		AssignedAt:      item.AssignedAt,
		AlertedAt:       item.AlertedAt,
		CNPJ:            item.CNPJ,
		Operator:        item.Operator,
		Value:           item.Value,
		LivesCount:      item.LivesCount,
		ConsultantEmail: item.ConsultantEmail,
		ClientName:      item.ClientName,
		CompanyName:     item.CompanyName,
		SLADueDate:      item.SLADueDate,
		Type:            item.Type,
		Subtype:         item.Subtype,
		Attachments:     item.Attachments,
		DynamicData:     item.DynamicData,
		History:         make([]HistoryEntryDTO, 0, len(item.History)),
	}
	if item.AssignedTo.Valid {
		s := item.AssignedTo.UUID.String()
		out.AssignedTo = &s
	}
	for _, h := range item.History {
		out.History = append(out.History, HistoryEntryDTO{Status: h.Status, ActorID: h.ActorID, At: h.At})
	}
	return out
}

type StaleCheckResultDTO struct {
	Notified int `json:"notified"`
	Failed   int `json:"failed"`
}

type DashboardSummaryDTO struct {
	CountsByStatus     map[string]int   `json:"counts_by_status"`
	UnassignedByKind   map[string]int   `json:"unassigned_by_kind"`
	OverdueRequests    int              `json:"overdue_requests"`
	AvgClaimLatencyMin float64          `json:"avg_claim_latency_minutes"`
	P95ClaimLatencyMin float64          `json:"p95_claim_latency_minutes"`
	AgingBuckets       map[string]int   `json:"aging_buckets"`
	BucketOrder        []string         `json:"bucket_order"`
}
