package services

import (
	"context"
	"testing"
	"time"

	"github.com/aarondl/null/v8"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workitem-system/internal/entities"
	"workitem-system/internal/repositories"
	"workitem-system/internal/sla"
	"workitem-system/pkg/constants"
	apperrors "workitem-system/pkg/errors"
)

func TestBuildWorkItemsReport(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	repo := repositories.NewMemoryWorkItemRepository()
	calc := sla.NewCalculator([]time.Duration{8 * time.Hour, 24 * time.Hour})
	svc := NewReportService(repo, calc)
	svc.now = func() time.Time { return now }

	created := now.Add(-10 * time.Hour)
	require.NoError(t, repo.Create(context.Background(), &entities.WorkItem{
		ID:         uuid.New(),
		Kind:       entities.KindProposal,
		Code:       "PRP-AABBCCDD",
		Status:     constants.ProposalStatusUnderReview,
		CreatedBy:  uuid.New(),
		CreatedAt:  created,
		AssignedTo: uuid.NullUUID{UUID: uuid.New(), Valid: true},
		AssignedAt: null.TimeFrom(created.Add(3 * time.Hour)),
		Value:      null.Float64From(1250.75),
	}))

	manager := entities.Actor{ID: uuid.New(), Role: constants.RoleManager}
	file, err := svc.BuildWorkItemsReport(context.Background(), manager, repositories.WorkItemFilter{})
	require.NoError(t, err)

	const sheet = "Work items"
	code, err := file.GetCellValue(sheet, "A2")
	require.NoError(t, err)
	assert.Equal(t, "PRP-AABBCCDD", code)

	latency, err := file.GetCellValue(sheet, "F2")
	require.NoError(t, err)
	assert.Equal(t, "3", latency)

	bucket, err := file.GetCellValue(sheet, "G2")
	require.NoError(t, err)
	assert.Equal(t, "8h-24h", bucket)
}

func TestBuildWorkItemsReportForbidden(t *testing.T) {
	repo := repositories.NewMemoryWorkItemRepository()
	calc := sla.NewCalculator([]time.Duration{8 * time.Hour})
	svc := NewReportService(repo, calc)

	analystActor := entities.Actor{ID: uuid.New(), Role: constants.RoleImplementationAnalyst}
	_, err := svc.BuildWorkItemsReport(context.Background(), analystActor, repositories.WorkItemFilter{})
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}
