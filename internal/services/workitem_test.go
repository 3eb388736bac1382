package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"workitem-system/internal/dto"
	"workitem-system/internal/entities"
	"workitem-system/internal/events"
	"workitem-system/internal/repositories"
	"workitem-system/pkg/constants"
	apperrors "workitem-system/pkg/errors"
	"workitem-system/pkg/eventbus"
)

func newTestService(t *testing.T) (*WorkItemService, *repositories.MemoryWorkItemRepository, *eventbus.Bus) {
	t.Helper()
	repo := repositories.NewMemoryWorkItemRepository()
	bus := eventbus.New(zap.NewNop())
	svc := NewWorkItemService(repo, nil, bus, zap.NewNop())
	return svc, repo, bus
}

func manager() entities.Actor {
	return entities.Actor{ID: uuid.New(), Email: "manager@example.com", Role: constants.RoleManager}
}

func analyst() entities.Actor {
	return entities.Actor{ID: uuid.New(), Email: "analyst@example.com", Role: constants.RoleImplementationAnalyst}
}

func consultant() entities.Actor {
	return entities.Actor{ID: uuid.New(), Email: "consultant@example.com", Role: constants.RoleConsultant}
}

func createRequest(t *testing.T, svc *WorkItemService, creator entities.Actor) *entities.WorkItem {
	t.Helper()
	item, err := svc.Create(context.Background(), creator, dto.CreateWorkItemDTO{
		Kind: string(entities.KindRequest),
		Type: "contract-change",
	})
	require.NoError(t, err)
	return item
}

func createProposal(t *testing.T, svc *WorkItemService, creator entities.Actor, value float64) *entities.WorkItem {
	t.Helper()
	item, err := svc.Create(context.Background(), creator, dto.CreateWorkItemDTO{
		Kind:  string(entities.KindProposal),
		Value: value,
	})
	require.NoError(t, err)
	return item
}

func TestCreateInitialState(t *testing.T) {
	svc, _, _ := newTestService(t)

	request := createRequest(t, svc, consultant())
	assert.Equal(t, constants.RequestStatusOpen, request.Status)
	assert.False(t, request.IsAssigned())
	assert.Empty(t, request.History)
	assert.Contains(t, request.Code, "MOV-")

	proposal := createProposal(t, svc, consultant(), 1500)
	assert.Equal(t, constants.ProposalStatusUnderReview, proposal.Status)
	assert.Contains(t, proposal.Code, "PRP-")
}

func TestCreateRequestRejectsPastSLADueDate(t *testing.T) {
	svc, _, _ := newTestService(t)
	past := time.Now().Add(-time.Hour)
	_, err := svc.Create(context.Background(), consultant(), dto.CreateWorkItemDTO{
		Kind:       string(entities.KindRequest),
		SLADueDate: &past,
	})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestClaimExclusivity(t *testing.T) {
	svc, _, _ := newTestService(t)
	item := createRequest(t, svc, consultant())

	const callers = 50
	actors := make([]entities.Actor, callers)
	for i := range actors {
		actors[i] = analyst()
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners []uuid.UUID
		losses  int
	)
	for _, a := range actors {
		wg.Add(1)
		go func(a entities.Actor) {
			defer wg.Done()
			_, err := svc.Claim(context.Background(), a, item.ID)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				winners = append(winners, a.ID)
				return
			}
			assert.ErrorIs(t, err, apperrors.ErrAlreadyClaimed)
			losses++
		}(a)
	}
	wg.Wait()

	require.Len(t, winners, 1, "exactly one concurrent claim must win")
	assert.Equal(t, callers-1, losses)

	final, err := svc.Find(context.Background(), manager(), item.ID)
	require.NoError(t, err)
	require.True(t, final.AssignedTo.Valid)
	assert.Equal(t, winners[0], final.AssignedTo.UUID)
	assert.True(t, final.AssignedAt.Valid)
	// Claiming does not touch the audit history.
	assert.Empty(t, final.History)
}

func TestClaimByConsultantForbidden(t *testing.T) {
	svc, _, _ := newTestService(t)
	item := createRequest(t, svc, consultant())
	_, err := svc.Claim(context.Background(), consultant(), item.ID)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestClaimUnknownItem(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.Claim(context.Background(), analyst(), uuid.New())
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestTransitionValidity(t *testing.T) {
	svc, _, _ := newTestService(t)
	a := analyst()
	item := createRequest(t, svc, consultant())
	_, err := svc.Claim(context.Background(), a, item.ID)
	require.NoError(t, err)

	// Disallowed edge leaves the status untouched.
	_, err = svc.AttemptTransition(context.Background(), a, item.ID, constants.RequestStatusCompleted)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)

	current, err := svc.Find(context.Background(), a, item.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.RequestStatusOpen, current.Status)
	assert.Empty(t, current.History)

	// Unknown vocabulary is a validation error, not a transition error.
	_, err = svc.AttemptTransition(context.Background(), a, item.ID, "SHIPPED")
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestTransitionAppendsHistory(t *testing.T) {
	svc, _, _ := newTestService(t)
	a := analyst()
	item := createRequest(t, svc, consultant())
	_, err := svc.Claim(context.Background(), a, item.ID)
	require.NoError(t, err)

	steps := []string{
		constants.RequestStatusInValidation,
		constants.RequestStatusInExecution,
		constants.RequestStatusCompleted,
	}
	for _, step := range steps {
		_, err := svc.AttemptTransition(context.Background(), a, item.ID, step)
		require.NoError(t, err)
	}

	final, err := svc.Find(context.Background(), a, item.ID)
	require.NoError(t, err)
	require.Len(t, final.History, len(steps))
	for i, entry := range final.History {
		assert.Equal(t, steps[i], entry.Status)
		assert.Equal(t, a.ID, entry.ActorID)
		if i > 0 {
			assert.False(t, entry.At.Before(final.History[i-1].At), "timestamps must be non-decreasing")
		}
	}
}

func TestHistoryTimestampsNonDecreasingUnderClockSkew(t *testing.T) {
	svc, _, _ := newTestService(t)
	a := analyst()
	item := createRequest(t, svc, consultant())
	_, err := svc.Claim(context.Background(), a, item.ID)
	require.NoError(t, err)

	base := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base }
	_, err = svc.AttemptTransition(context.Background(), a, item.ID, constants.RequestStatusInValidation)
	require.NoError(t, err)

	// Wall clock steps backwards between writes.
	svc.now = func() time.Time { return base.Add(-time.Minute) }
	_, err = svc.AttemptTransition(context.Background(), a, item.ID, constants.RequestStatusInExecution)
	require.NoError(t, err)

	final, err := svc.Find(context.Background(), a, item.ID)
	require.NoError(t, err)
	require.Len(t, final.History, 2)
	assert.False(t, final.History[1].At.Before(final.History[0].At))
}

func TestSameStatusTransitionIsNoOp(t *testing.T) {
	svc, _, _ := newTestService(t)
	a := analyst()
	item := createRequest(t, svc, consultant())
	_, err := svc.Claim(context.Background(), a, item.ID)
	require.NoError(t, err)

	got, err := svc.AttemptTransition(context.Background(), a, item.ID, constants.RequestStatusOpen)
	require.NoError(t, err)
	assert.Equal(t, constants.RequestStatusOpen, got.Status)
	assert.Empty(t, got.History, "same-status request must not append a duplicate entry")
}

func TestManagerOverrideEdge(t *testing.T) {
	svc, _, _ := newTestService(t)
	a := analyst()
	m := manager()
	item := createRequest(t, svc, consultant())
	_, err := svc.Claim(context.Background(), a, item.ID)
	require.NoError(t, err)
	_, err = svc.AttemptTransition(context.Background(), a, item.ID, constants.RequestStatusInExecution)
	require.NoError(t, err)

	// The assignee cannot go backwards…
	_, err = svc.AttemptTransition(context.Background(), a, item.ID, constants.RequestStatusOpen)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)

	// …but a manager can: reopening is an intentional operational override.
	got, err := svc.AttemptTransition(context.Background(), m, item.ID, constants.RequestStatusOpen)
	require.NoError(t, err)
	assert.Equal(t, constants.RequestStatusOpen, got.Status)
}

func TestProposalForwardOnly(t *testing.T) {
	svc, _, _ := newTestService(t)
	a := analyst()
	item := createProposal(t, svc, consultant(), 900)
	_, err := svc.Claim(context.Background(), a, item.ID)
	require.NoError(t, err)

	_, err = svc.AttemptTransition(context.Background(), a, item.ID, constants.ProposalStatusInvoiceIssued)
	require.NoError(t, err)

	_, err = svc.AttemptTransition(context.Background(), a, item.ID, constants.ProposalStatusUnderReview)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)

	got, err := svc.AttemptTransition(context.Background(), manager(), item.ID, constants.ProposalStatusUnderReview)
	require.NoError(t, err)
	assert.Equal(t, constants.ProposalStatusUnderReview, got.Status)
}

func TestTransitionPublishesStatusChangedEvent(t *testing.T) {
	svc, _, bus := newTestService(t)
	a := analyst()
	creator := consultant()
	item := createProposal(t, svc, creator, 2500)
	_, err := svc.Claim(context.Background(), a, item.ID)
	require.NoError(t, err)

	received := make(chan events.StatusChangedEvent, 1)
	bus.Subscribe(events.StatusChangedEventName, func(ctx context.Context, e eventbus.Event) error {
		received <- e.(events.StatusChangedEvent)
		return nil
	})

	_, err = svc.AttemptTransition(context.Background(), a, item.ID, constants.ProposalStatusImplemented)
	require.NoError(t, err)

	select {
	case e := <-received:
		assert.Equal(t, constants.ProposalStatusUnderReview, e.FromStatus)
		assert.Equal(t, constants.ProposalStatusImplemented, e.ToStatus)
		assert.Equal(t, creator.ID, e.Item.CreatedBy)
		assert.Equal(t, a.ID, e.ActorID)
	case <-time.After(2 * time.Second):
		t.Fatal("no status-changed event published")
	}
}

func TestReassign(t *testing.T) {
	svc, _, _ := newTestService(t)
	a := analyst()
	other := analyst()
	m := manager()
	item := createRequest(t, svc, consultant())
	_, err := svc.Claim(context.Background(), a, item.ID)
	require.NoError(t, err)

	// An analyst may not steal an assigned item.
	_, err = svc.Claim(context.Background(), other, item.ID)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyClaimed)
	_, err = svc.Reassign(context.Background(), a, item.ID, other.ID)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	// A manager overwrites unconditionally and leaves an audit entry.
	got, err := svc.Reassign(context.Background(), m, item.ID, other.ID)
	require.NoError(t, err)
	require.True(t, got.AssignedTo.Valid)
	assert.Equal(t, other.ID, got.AssignedTo.UUID)
	require.NotEmpty(t, got.History)
	assert.Equal(t, m.ID, got.History[len(got.History)-1].ActorID)
}

func TestSetSLADueDate(t *testing.T) {
	svc, _, _ := newTestService(t)
	a := analyst()
	item := createRequest(t, svc, consultant())
	_, err := svc.Claim(context.Background(), a, item.ID)
	require.NoError(t, err)

	due := item.CreatedAt.Add(72 * time.Hour)
	got, err := svc.SetSLADueDate(context.Background(), a, item.ID, due)
	require.NoError(t, err)
	require.True(t, got.SLADueDate.Valid)
	assert.True(t, got.SLADueDate.Time.Equal(due))

	_, err = svc.SetSLADueDate(context.Background(), a, item.ID, item.CreatedAt.Add(-time.Hour))
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	proposal := createProposal(t, svc, consultant(), 100)
	_, err = svc.SetSLADueDate(context.Background(), manager(), proposal.ID, due)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	// Non-owner analysts may not edit the SLA.
	_, err = svc.SetSLADueDate(context.Background(), analyst(), item.ID, due)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestDelete(t *testing.T) {
	svc, _, _ := newTestService(t)
	proposal := createProposal(t, svc, consultant(), 100)
	request := createRequest(t, svc, consultant())

	assert.ErrorIs(t, svc.Delete(context.Background(), analyst(), proposal.ID), apperrors.ErrForbidden)
	assert.ErrorIs(t, svc.Delete(context.Background(), manager(), request.ID), apperrors.ErrValidation)

	require.NoError(t, svc.Delete(context.Background(), manager(), proposal.ID))
	_, err := svc.Find(context.Background(), manager(), proposal.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestListScopesConsultantToOwnItems(t *testing.T) {
	svc, _, _ := newTestService(t)
	me := consultant()
	createProposal(t, svc, me, 100)
	createProposal(t, svc, consultant(), 200)

	items, total, err := svc.List(context.Background(), me, repositories.WorkItemFilter{})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), total)
	require.Len(t, items, 1)
	assert.Equal(t, me.ID, items[0].CreatedBy)

	_, total, err = svc.List(context.Background(), manager(), repositories.WorkItemFilter{})
	require.NoError(t, err)
	assert.Equal(t, uint64(2), total)
}

func TestEndToEndRequestLifecycle(t *testing.T) {
	svc, _, _ := newTestService(t)
	creator := consultant()
	analystA := analyst()
	analystB := analyst()
	m := manager()

	item := createRequest(t, svc, creator)
	assert.Equal(t, constants.RequestStatusOpen, item.Status)

	claimed, err := svc.Claim(context.Background(), analystA, item.ID)
	require.NoError(t, err)
	assert.Equal(t, analystA.ID, claimed.AssignedTo.UUID)
	assert.Equal(t, constants.RequestStatusOpen, claimed.Status)

	_, err = svc.Claim(context.Background(), analystB, item.ID)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyClaimed)

	moved, err := svc.AttemptTransition(context.Background(), analystA, item.ID, constants.RequestStatusInExecution)
	require.NoError(t, err)
	assert.Len(t, moved.History, 1)

	_, err = svc.AttemptTransition(context.Background(), analystA, item.ID, constants.RequestStatusOpen)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)

	reopened, err := svc.AttemptTransition(context.Background(), m, item.ID, constants.RequestStatusOpen)
	require.NoError(t, err)
	assert.Equal(t, constants.RequestStatusOpen, reopened.Status)
	assert.Len(t, reopened.History, 2)
}
