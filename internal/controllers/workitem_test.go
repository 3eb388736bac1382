package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"workitem-system/internal/dto"
	"workitem-system/internal/entities"
	"workitem-system/internal/repositories"
	"workitem-system/internal/services"
	"workitem-system/pkg/config"
	"workitem-system/pkg/constants"
	"workitem-system/pkg/customvalidator"
	"workitem-system/pkg/eventbus"
	"workitem-system/pkg/utils"
)

type noopDispatcher struct{}

func (noopDispatcher) Send(ctx context.Context, to, subject, textBody, htmlBody string) (string, error) {
	return uuid.NewString(), nil
}

type managersOnlyUserRepo struct{}

func (managersOnlyUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*entities.User, error) {
	return nil, errors.New("not implemented")
}

func (managersOnlyUserRepo) FindByEmail(ctx context.Context, email string) (*entities.User, error) {
	return nil, errors.New("not implemented")
}

func (managersOnlyUserRepo) ListManagerEmails(ctx context.Context) ([]string, error) {
	return []string{"boss@example.com"}, nil
}

func (managersOnlyUserRepo) Create(ctx context.Context, user *entities.User) error {
	return errors.New("not implemented")
}

type testServer struct {
	echo       *echo.Echo
	controller *WorkItemController
	service    *services.WorkItemService
	repo       *repositories.MemoryWorkItemRepository
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	repo := repositories.NewMemoryWorkItemRepository()
	bus := eventbus.New(zap.NewNop())
	svc := services.NewWorkItemService(repo, nil, bus, zap.NewNop())
	scheduler := services.NewStalenessScheduler(
		repo,
		managersOnlyUserRepo{},
		noopDispatcher{},
		config.SLAConfig{StaleAfter: 48 * time.Hour, DigestAfter: 120 * time.Hour},
		config.SchedulerConfig{Interval: time.Hour, NotifyTimeout: 5 * time.Second},
		zap.NewNop(),
	)

	v := validator.New()
	require.NoError(t, customvalidator.RegisterCustomValidations(v))

	e := echo.New()
	e.Validator = utils.NewValidator(v)

	ctrl := NewWorkItemController(svc, scheduler, zap.NewNop())
	e.GET("/api/work-items", ctrl.GetWorkItems)
	e.POST("/api/work-items", ctrl.CreateWorkItem)
	e.GET("/api/work-items/:id", ctrl.FindWorkItem)
	e.PATCH("/api/work-items/:id", ctrl.PatchWorkItem)
	e.DELETE("/api/work-items/:id", ctrl.DeleteWorkItem)
	e.POST("/api/work-items/stale-check", ctrl.StaleCheck)

	return &testServer{echo: e, controller: ctrl, service: svc, repo: repo}
}

func (s *testServer) do(t *testing.T, actor *entities.Actor, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if actor != nil {
		req = req.WithContext(utils.CtxWithActor(req.Context(), *actor))
	}
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) utils.HttpResponse {
	t.Helper()
	var out utils.HttpResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func decodeWorkItem(t *testing.T, rec *httptest.ResponseRecorder) dto.WorkItemDTO {
	t.Helper()
	var envelope struct {
		Body dto.WorkItemDTO `json:"body"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return envelope.Body
}

func managerActor() entities.Actor {
	return entities.Actor{ID: uuid.New(), Email: "manager@example.com", Role: constants.RoleManager}
}

func analystActor() entities.Actor {
	return entities.Actor{ID: uuid.New(), Email: "analyst@example.com", Role: constants.RoleImplementationAnalyst}
}

func consultantActor() entities.Actor {
	return entities.Actor{ID: uuid.New(), Email: "consultant@example.com", Role: constants.RoleConsultant}
}

func TestCreateWorkItemEndpoint(t *testing.T) {
	srv := newTestServer(t)
	actor := consultantActor()

	rec := srv.do(t, &actor, http.MethodPost, "/api/work-items",
		`{"kind":"REQUEST","type":"contract-change"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	item := decodeWorkItem(t, rec)
	assert.Equal(t, "REQUEST", item.Kind)
	assert.Equal(t, constants.RequestStatusOpen, item.Status)
	assert.Equal(t, actor.ID, item.CreatedBy)
	assert.Nil(t, item.AssignedTo)
}

func TestCreateWorkItemValidation(t *testing.T) {
	srv := newTestServer(t)
	actor := consultantActor()

	rec := srv.do(t, &actor, http.MethodPost, "/api/work-items", `{"kind":"TICKET"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = srv.do(t, &actor, http.MethodPost, "/api/work-items",
		`{"kind":"PROPOSAL","cnpj":"11111111111111"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "repeated-digit registry numbers are invalid")

	rec = srv.do(t, nil, http.MethodPost, "/api/work-items", `{"kind":"REQUEST"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestClaimEndpointConflict(t *testing.T) {
	srv := newTestServer(t)
	creator := consultantActor()
	first := analystActor()
	second := analystActor()

	item, err := srv.service.Create(context.Background(), creator, dto.CreateWorkItemDTO{
		Kind: string(entities.KindRequest),
	})
	require.NoError(t, err)

	rec := srv.do(t, &first, http.MethodPatch, "/api/work-items/"+item.ID.String(), `{"claim":true}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decodeWorkItem(t, rec)
	require.NotNil(t, got.AssignedTo)
	assert.Equal(t, first.ID.String(), *got.AssignedTo)

	rec = srv.do(t, &second, http.MethodPatch, "/api/work-items/"+item.ID.String(), `{"claim":true}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestTransitionEndpoint(t *testing.T) {
	srv := newTestServer(t)
	creator := consultantActor()
	a := analystActor()

	item, err := srv.service.Create(context.Background(), creator, dto.CreateWorkItemDTO{
		Kind: string(entities.KindRequest),
	})
	require.NoError(t, err)
	_, err = srv.service.Claim(context.Background(), a, item.ID)
	require.NoError(t, err)

	rec := srv.do(t, &a, http.MethodPatch, "/api/work-items/"+item.ID.String(),
		`{"status":"IN_EXECUTION"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decodeWorkItem(t, rec)
	assert.Equal(t, constants.RequestStatusInExecution, got.Status)
	assert.Len(t, got.History, 1)

	// Disallowed edge surfaces as 422.
	rec = srv.do(t, &a, http.MethodPatch, "/api/work-items/"+item.ID.String(),
		`{"status":"OPEN"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	// Unknown vocabulary is a 400.
	rec = srv.do(t, &a, http.MethodPatch, "/api/work-items/"+item.ID.String(),
		`{"status":"SHIPPED"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPatchRequiresSomeField(t *testing.T) {
	srv := newTestServer(t)
	a := analystActor()
	rec := srv.do(t, &a, http.MethodPatch, "/api/work-items/"+uuid.NewString(), `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = srv.do(t, &a, http.MethodPatch, "/api/work-items/not-a-uuid", `{"claim":true}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPatchUnknownItem(t *testing.T) {
	srv := newTestServer(t)
	a := analystActor()
	rec := srv.do(t, &a, http.MethodPatch, "/api/work-items/"+uuid.NewString(), `{"claim":true}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReassignEndpointForbiddenForAnalyst(t *testing.T) {
	srv := newTestServer(t)
	creator := consultantActor()
	a := analystActor()
	m := managerActor()
	target := analystActor()

	item, err := srv.service.Create(context.Background(), creator, dto.CreateWorkItemDTO{
		Kind: string(entities.KindRequest),
	})
	require.NoError(t, err)
	_, err = srv.service.Claim(context.Background(), a, item.ID)
	require.NoError(t, err)

	body := `{"assigned_to":"` + target.ID.String() + `"}`
	rec := srv.do(t, &a, http.MethodPatch, "/api/work-items/"+item.ID.String(), body)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = srv.do(t, &m, http.MethodPatch, "/api/work-items/"+item.ID.String(), body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decodeWorkItem(t, rec)
	require.NotNil(t, got.AssignedTo)
	assert.Equal(t, target.ID.String(), *got.AssignedTo)
}

func TestListEndpointScoping(t *testing.T) {
	srv := newTestServer(t)
	mine := consultantActor()
	other := consultantActor()

	for _, actor := range []entities.Actor{mine, other} {
		_, err := srv.service.Create(context.Background(), actor, dto.CreateWorkItemDTO{
			Kind: string(entities.KindProposal),
		})
		require.NoError(t, err)
	}

	rec := srv.do(t, &mine, http.MethodGet, "/api/work-items", "")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody(t, rec)
	require.NotNil(t, resp.Total)
	assert.Equal(t, uint64(1), *resp.Total)

	m := managerActor()
	rec = srv.do(t, &m, http.MethodGet, "/api/work-items?kind=PROPOSAL&unassigned=true", "")
	require.Equal(t, http.StatusOK, rec.Code)
	resp = decodeBody(t, rec)
	require.NotNil(t, resp.Total)
	assert.Equal(t, uint64(2), *resp.Total)
}

func TestDeleteEndpoint(t *testing.T) {
	srv := newTestServer(t)
	creator := consultantActor()
	m := managerActor()

	item, err := srv.service.Create(context.Background(), creator, dto.CreateWorkItemDTO{
		Kind: string(entities.KindProposal),
	})
	require.NoError(t, err)

	a := analystActor()
	rec := srv.do(t, &a, http.MethodDelete, "/api/work-items/"+item.ID.String(), "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = srv.do(t, &m, http.MethodDelete, "/api/work-items/"+item.ID.String(), "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = srv.do(t, &m, http.MethodGet, "/api/work-items/"+item.ID.String(), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStaleCheckEndpoint(t *testing.T) {
	srv := newTestServer(t)
	m := managerActor()
	a := analystActor()

	rec := srv.do(t, &a, http.MethodPost, "/api/work-items/stale-check", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = srv.do(t, &m, http.MethodPost, "/api/work-items/stale-check", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var envelope struct {
		Body dto.StaleCheckResultDTO `json:"body"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, 0, envelope.Body.Notified)
	assert.Equal(t, 0, envelope.Body.Failed)
}
