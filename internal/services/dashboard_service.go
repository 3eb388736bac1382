package services

import (
	"context"
	"fmt"
	"time"

	"workitem-system/internal/authz"
	"workitem-system/internal/dto"
	"workitem-system/internal/entities"
	"workitem-system/internal/repositories"
	"workitem-system/internal/sla"
	apperrors "workitem-system/pkg/errors"
)

type DashboardServiceInterface interface {
	Summary(ctx context.Context, actor entities.Actor) (*dto.DashboardSummaryDTO, error)
}

type DashboardService struct {
	repo repositories.WorkItemRepositoryInterface
	calc *sla.Calculator
	now  func() time.Time
}

func NewDashboardService(repo repositories.WorkItemRepositoryInterface, calc *sla.Calculator) *DashboardService {
	return &DashboardService{repo: repo, calc: calc, now: time.Now}
}

func (s *DashboardService) Summary(ctx context.Context, actor entities.Actor) (*dto.DashboardSummaryDTO, error) {
	if !authz.Can(actor.Role, authz.ActionExport) && !authz.Can(actor.Role, authz.ActionStaleCheck) {
		return nil, apperrors.NewForbiddenError("dashboard is restricted to managers")
	}

	items, _, err := s.repo.List(ctx, repositories.WorkItemFilter{})
	if err != nil {
		return nil, err
	}
	now := s.now()

	summary := &dto.DashboardSummaryDTO{
		CountsByStatus:   make(map[string]int),
		UnassignedByKind: make(map[string]int),
		AgingBuckets:     make(map[string]int),
		BucketOrder:      s.calc.BucketLabels(),
	}
	for _, label := range summary.BucketOrder {
		summary.AgingBuckets[label] = 0
	}

	for _, item := range items {
		summary.CountsByStatus[fmt.Sprintf("%s:%s", item.Kind, item.Status)]++
		if !item.IsAssigned() {
			summary.UnassignedByKind[string(item.Kind)]++
			if !item.IsTerminal() {
				summary.AgingBuckets[s.calc.AgingBucket(item, now)]++
			}
		}
		if sla.IsOverdue(item, now) {
			summary.OverdueRequests++
		}
	}

	summary.AvgClaimLatencyMin = sla.AverageClaimLatency(items).Minutes()
	summary.P95ClaimLatencyMin = sla.ClaimLatencyPercentile(sla.ClaimLatencies(items), 0.95).Minutes()
	return summary, nil
}
