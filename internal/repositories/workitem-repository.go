package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/aarondl/null/v8"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"workitem-system/internal/entities"
	"workitem-system/pkg/constants"
	apperrors "workitem-system/pkg/errors"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const workItemColumns = `id, kind, code, status, created_by, assigned_to, created_at,
	assigned_at, alerted_at, sla_due_date, cnpj, operator, value, lives_count,
	consultant_email, client_name, company_name, type, subtype, attachments,
	dynamic_data, history`

type WorkItemRepository struct {
	storage *pgxpool.Pool
}

func NewWorkItemRepository(storage *pgxpool.Pool) WorkItemRepositoryInterface {
	return &WorkItemRepository{storage: storage}
}

func (r *WorkItemRepository) Create(ctx context.Context, item *entities.WorkItem) error {
	attachments, err := json.Marshal(item.Attachments)
	if err != nil {
		return fmt.Errorf("marshal attachments: %w", err)
	}
	dynamicData, err := json.Marshal(item.DynamicData)
	if err != nil {
		return fmt.Errorf("marshal dynamic data: %w", err)
	}
	history, err := json.Marshal(item.History)
	if err != nil {
		return fmt.Errorf("marshal history: %w", err)
	}

	query := `
		INSERT INTO work_items (
			id, kind, code, status, created_by, assigned_to, created_at,
			assigned_at, alerted_at, sla_due_date, cnpj, operator, value,
			lives_count, consultant_email, client_name, company_name,
			type, subtype, attachments, dynamic_data, history
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22)`

	_, err = r.storage.Exec(ctx, query,
		item.ID, item.Kind, item.Code, item.Status, item.CreatedBy,
		nullUUID(item.AssignedTo), item.CreatedAt,
		nullTime(item.AssignedAt), nullTime(item.AlertedAt), nullTime(item.SLADueDate),
		nullString(item.CNPJ), nullString(item.Operator), nullFloat(item.Value),
		nullInt(item.LivesCount), nullString(item.ConsultantEmail),
		nullString(item.ClientName), nullString(item.CompanyName),
		nullString(item.Type), nullString(item.Subtype),
		attachments, dynamicData, history,
	)
	if err != nil {
		return fmt.Errorf("insert work item: %w", err)
	}
	return nil
}

func (r *WorkItemRepository) Find(ctx context.Context, id uuid.UUID) (*entities.WorkItem, error) {
	query := fmt.Sprintf(`SELECT %s FROM work_items WHERE id = $1`, workItemColumns)
	row := r.storage.QueryRow(ctx, query, id)
	item, err := scanWorkItem(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFoundError("work item %s not found", id)
		}
		return nil, fmt.Errorf("find work item: %w", err)
	}
	return item, nil
}

func (r *WorkItemRepository) List(ctx context.Context, filter WorkItemFilter) ([]*entities.WorkItem, uint64, error) {
	countBuilder := psql.Select("COUNT(*)").From("work_items")
	listBuilder := psql.Select(workItemColumns).From("work_items").OrderBy("created_at DESC")

	apply := func(b sq.SelectBuilder) sq.SelectBuilder {
		if filter.Kind != "" {
			b = b.Where(sq.Eq{"kind": filter.Kind})
		}
		if filter.Status != "" {
			b = b.Where(sq.Eq{"status": filter.Status})
		}
		if filter.CreatedBy.Valid {
			b = b.Where(sq.Eq{"created_by": filter.CreatedBy.UUID})
		}
		if filter.AssignedTo.Valid {
			b = b.Where(sq.Eq{"assigned_to": filter.AssignedTo.UUID})
		}
		if filter.Unassigned {
			b = b.Where("assigned_to IS NULL")
		}
		return b
	}
	countBuilder = apply(countBuilder)
	listBuilder = apply(listBuilder)

	countSQL, countArgs, err := countBuilder.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count query: %w", err)
	}
	var total uint64
	if err := r.storage.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count work items: %w", err)
	}

	if filter.Limit > 0 {
		listBuilder = listBuilder.Limit(filter.Limit).Offset(filter.Offset)
	}
	listSQL, listArgs, err := listBuilder.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list query: %w", err)
	}
	rows, err := r.storage.Query(ctx, listSQL, listArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("list work items: %w", err)
	}
	defer rows.Close()

	items := make([]*entities.WorkItem, 0)
	for rows.Next() {
		item, err := scanWorkItem(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan work item: %w", err)
		}
		items = append(items, item)
	}
	return items, total, rows.Err()
}

// ClaimIf relies on a single-row conditional UPDATE for atomicity: only one
// concurrent caller observes assigned_to IS NULL.
func (r *WorkItemRepository) ClaimIf(ctx context.Context, id uuid.UUID, assignee uuid.UUID, at time.Time) (bool, error) {
	tag, err := r.storage.Exec(ctx,
		`UPDATE work_items SET assigned_to = $2, assigned_at = $3 WHERE id = $1 AND assigned_to IS NULL`,
		id, assignee, at,
	)
	if err != nil {
		return false, fmt.Errorf("claim work item: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *WorkItemRepository) Reassign(ctx context.Context, id uuid.UUID, assignee uuid.UUID, at time.Time) error {
	tag, err := r.storage.Exec(ctx,
		`UPDATE work_items SET assigned_to = $2, assigned_at = $3 WHERE id = $1`,
		id, assignee, at,
	)
	if err != nil {
		return fmt.Errorf("reassign work item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NewNotFoundError("work item %s not found", id)
	}
	return nil
}

// UpdateStatus writes the status and appends the audit entry in one
// statement so history stays append-only under concurrency.
func (r *WorkItemRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string, entry entities.HistoryEntry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal history entry: %w", err)
	}
	tag, err := r.storage.Exec(ctx,
		`UPDATE work_items SET status = $2, history = history || $3::jsonb WHERE id = $1`,
		id, status, payload,
	)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NewNotFoundError("work item %s not found", id)
	}
	return nil
}

func (r *WorkItemRepository) SetSLADueDate(ctx context.Context, id uuid.UUID, due time.Time) error {
	tag, err := r.storage.Exec(ctx,
		`UPDATE work_items SET sla_due_date = $2 WHERE id = $1`,
		id, due,
	)
	if err != nil {
		return fmt.Errorf("set sla due date: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NewNotFoundError("work item %s not found", id)
	}
	return nil
}

func (r *WorkItemRepository) MarkAlertedIf(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	tag, err := r.storage.Exec(ctx,
		`UPDATE work_items SET alerted_at = $2 WHERE id = $1 AND alerted_at IS NULL`,
		id, at,
	)
	if err != nil {
		return false, fmt.Errorf("mark alerted: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *WorkItemRepository) ListStaleProposals(ctx context.Context, cutoff time.Time) ([]*entities.WorkItem, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM work_items
		WHERE kind = $1 AND assigned_to IS NULL AND alerted_at IS NULL AND created_at <= $2
		ORDER BY created_at ASC`, workItemColumns)
	return r.queryItems(ctx, query, entities.KindProposal, cutoff)
}

func (r *WorkItemRepository) ListOverdueRequests(ctx context.Context, now time.Time) ([]*entities.WorkItem, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM work_items
		WHERE kind = $1 AND alerted_at IS NULL AND sla_due_date IS NOT NULL
			AND sla_due_date < $2 AND status NOT IN ($3, $4)
		ORDER BY sla_due_date ASC`, workItemColumns)
	return r.queryItems(ctx, query, entities.KindRequest, now,
		constants.RequestStatusCompleted, constants.RequestStatusCancelled)
}

func (r *WorkItemRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.storage.Exec(ctx, `DELETE FROM work_items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete work item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NewNotFoundError("work item %s not found", id)
	}
	return nil
}

func (r *WorkItemRepository) queryItems(ctx context.Context, query string, args ...interface{}) ([]*entities.WorkItem, error) {
	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query work items: %w", err)
	}
	defer rows.Close()

	items := make([]*entities.WorkItem, 0)
	for rows.Next() {
		item, err := scanWorkItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan work item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func scanWorkItem(row pgx.Row) (*entities.WorkItem, error) {
	var (
		item                         entities.WorkItem
		assignedTo                   *uuid.UUID
		assignedAt, alertedAt, slaAt *time.Time
		cnpj, operator, email        *string
		clientName, companyName      *string
		typ, subtype                 *string
		value                        *float64
		livesCount                   *int64
		attachments, dynamic, hist   []byte
	)
	err := row.Scan(
		&item.ID, &item.Kind, &item.Code, &item.Status, &item.CreatedBy,
		&assignedTo, &item.CreatedAt, &assignedAt, &alertedAt, &slaAt,
		&cnpj, &operator, &value, &livesCount, &email,
		&clientName, &companyName, &typ, &subtype,
		&attachments, &dynamic, &hist,
	)
	if err != nil {
		return nil, err
	}

	if assignedTo != nil {
		item.AssignedTo = uuid.NullUUID{UUID: *assignedTo, Valid: true}
	}
	item.AssignedAt = null.TimeFromPtr(assignedAt)
	item.AlertedAt = null.TimeFromPtr(alertedAt)
	item.SLADueDate = null.TimeFromPtr(slaAt)
	item.CNPJ = null.StringFromPtr(cnpj)
	item.Operator = null.StringFromPtr(operator)
	item.Value = null.Float64FromPtr(value)
	item.ConsultantEmail = null.StringFromPtr(email)
	item.ClientName = null.StringFromPtr(clientName)
	item.CompanyName = null.StringFromPtr(companyName)
	item.Type = null.StringFromPtr(typ)
	item.Subtype = null.StringFromPtr(subtype)
	if livesCount != nil {
		item.LivesCount = null.IntFrom(int(*livesCount))
	}

	if len(attachments) > 0 {
		if err := json.Unmarshal(attachments, &item.Attachments); err != nil {
			return nil, fmt.Errorf("unmarshal attachments: %w", err)
		}
	}
	if len(dynamic) > 0 {
		if err := json.Unmarshal(dynamic, &item.DynamicData); err != nil {
			return nil, fmt.Errorf("unmarshal dynamic data: %w", err)
		}
	}
	if len(hist) > 0 {
		if err := json.Unmarshal(hist, &item.History); err != nil {
			return nil, fmt.Errorf("unmarshal history: %w", err)
		}
	}
	return &item, nil
}

func nullUUID(v uuid.NullUUID) interface{} {
	if !v.Valid {
		return nil
	}
	return v.UUID
}

func nullTime(v null.Time) interface{} {
	if !v.Valid {
		return nil
	}
	return v.Time
}

func nullString(v null.String) interface{} {
	if !v.Valid {
		return nil
	}
	return v.String
}

func nullFloat(v null.Float64) interface{} {
	if !v.Valid {
		return nil
	}
	return v.Float64
}

func nullInt(v null.Int) interface{} {
	if !v.Valid {
		return nil
	}
	return v.Int
}
