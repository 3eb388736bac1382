package services

import (
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"workitem-system/internal/authz"
	"workitem-system/internal/entities"
	"workitem-system/internal/repositories"
	"workitem-system/internal/sla"
	apperrors "workitem-system/pkg/errors"
)

type ReportServiceInterface interface {
	BuildWorkItemsReport(ctx context.Context, actor entities.Actor, filter repositories.WorkItemFilter) (*excelize.File, error)
}

type ReportService struct {
	repo repositories.WorkItemRepositoryInterface
	calc *sla.Calculator
	now  func() time.Time
}

func NewReportService(repo repositories.WorkItemRepositoryInterface, calc *sla.Calculator) *ReportService {
	return &ReportService{repo: repo, calc: calc, now: time.Now}
}

var reportHeader = []string{
	"Code", "Kind", "Status", "Created at", "Assigned at",
	"Claim latency (h)", "Aging bucket", "SLA due date", "Overdue", "Value",
}

// BuildWorkItemsReport renders the filtered listing as an XLSX workbook.
func (s *ReportService) BuildWorkItemsReport(ctx context.Context, actor entities.Actor, filter repositories.WorkItemFilter) (*excelize.File, error) {
	if !authz.Can(actor.Role, authz.ActionExport) {
		return nil, apperrors.NewForbiddenError("reports are restricted to managers")
	}

	items, _, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	now := s.now()

	f := excelize.NewFile()
	const sheet = "Work items"
	f.SetSheetName(f.GetSheetName(0), sheet)
	for col, title := range reportHeader {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(sheet, cell, title); err != nil {
			return nil, fmt.Errorf("write header: %w", err)
		}
	}

	for i, item := range items {
		row := []interface{}{
			item.Code,
			string(item.Kind),
			item.Status,
			item.CreatedAt.Format(time.RFC3339),
			"",
			"",
			s.calc.AgingBucket(item, now),
			"",
			sla.IsOverdue(item, now),
			nil,
		}
		if item.AssignedAt.Valid {
			row[4] = item.AssignedAt.Time.Format(time.RFC3339)
			row[5] = item.AssignedAt.Time.Sub(item.CreatedAt).Hours()
		}
		if item.SLADueDate.Valid {
			row[7] = item.SLADueDate.Time.Format("2006-01-02")
		}
		if item.Value.Valid {
			row[9] = item.Value.Float64
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, fmt.Errorf("write row: %w", err)
		}
	}
	return f, nil
}
