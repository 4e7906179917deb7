package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	apperrors "petsit/pkg/errors"
	httputil "petsit/pkg/http"
	"petsit/pkg/logger"
	"petsit/pkg/model"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockSessionService struct {
	startFunc  func(ctx context.Context, actor model.Actor, id string, req *model.CodeRedemption) (*model.Session, error)
	cancelFunc func(ctx context.Context, actor model.Actor, id string, req *model.CancelRequest) (*model.CancelResult, error)
}

func (m *mockSessionService) GetByID(context.Context, model.Actor, string) (*model.Session, error) {
	return &model.Session{}, nil
}

func (m *mockSessionService) ListByBooking(context.Context, model.Actor, string, int, int64) ([]*model.Session, int64, error) {
	return nil, 0, nil
}

func (m *mockSessionService) GetCodes(context.Context, model.Actor, string) ([]*model.ServiceCode, error) {
	return nil, nil
}

func (m *mockSessionService) Assign(context.Context, model.Actor, string, *model.SitterAssignment) (*model.Session, error) {
	return nil, nil
}

func (m *mockSessionService) Confirm(context.Context, model.Actor, string) (*model.Session, error) {
	return nil, nil
}

func (m *mockSessionService) Start(ctx context.Context, actor model.Actor, id string, req *model.CodeRedemption) (*model.Session, error) {
	return m.startFunc(ctx, actor, id, req)
}

func (m *mockSessionService) End(context.Context, model.Actor, string, *model.CodeRedemption) (*model.Session, error) {
	return nil, nil
}

func (m *mockSessionService) Cancel(ctx context.Context, actor model.Actor, id string, req *model.CancelRequest) (*model.CancelResult, error) {
	return m.cancelFunc(ctx, actor, id, req)
}

func (m *mockSessionService) RecordPayment(context.Context, model.Actor, string, *model.PaymentRecord) (*model.Session, error) {
	return nil, nil
}

func (m *mockSessionService) PromoteUpcoming(context.Context, time.Time) (int64, error) {
	return 0, nil
}

func newRouter(svc *mockSessionService) *httprouter.Router {
	router := httprouter.New()
	NewSessionHandler(svc, logger.Discard()).RegisterRoutes(router)
	return router
}

func TestStart_PassesActorAndCode(t *testing.T) {
	var gotActor model.Actor
	var gotID, gotCode string
	svc := &mockSessionService{
		startFunc: func(_ context.Context, actor model.Actor, id string, req *model.CodeRedemption) (*model.Session, error) {
			gotActor, gotID, gotCode = actor, id, req.Code
			return &model.Session{ID: id, Status: model.SessionStatusOngoing}, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/id/sess-1/start", strings.NewReader(`{"code":"123456"}`))
	req.Header.Set(httputil.HeaderActorID, "sitter-1")
	req.Header.Set(httputil.HeaderActorRole, "sitter")
	rec := httptest.NewRecorder()

	newRouter(svc).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.Actor{ID: "sitter-1", Role: model.RoleSitter}, gotActor)
	assert.Equal(t, "sess-1", gotID)
	assert.Equal(t, "123456", gotCode)

	var body struct {
		Data model.Session `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, model.SessionStatusOngoing, body.Data.Status)
}

func TestStart_InvalidCodeMapsTo400(t *testing.T) {
	svc := &mockSessionService{
		startFunc: func(context.Context, model.Actor, string, *model.CodeRedemption) (*model.Session, error) {
			return nil, apperrors.InvalidOrExpiredCode("code_used")
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/id/sess-1/start", strings.NewReader(`{"code":"123456"}`))
	req.Header.Set(httputil.HeaderActorID, "sitter-1")
	req.Header.Set(httputil.HeaderActorRole, "sitter")
	rec := httptest.NewRecorder()

	newRouter(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var body httputil.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, apperrors.CodeInvalidOrExpiredCode, body.Code)
	assert.Equal(t, "code_used", body.Details["reason"])
}

func TestHandlers_RejectMissingActor(t *testing.T) {
	svc := &mockSessionService{}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/id/sess-1/start", strings.NewReader(`{"code":"123456"}`))
	rec := httptest.NewRecorder()

	newRouter(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCancel_RejectsUnknownFields(t *testing.T) {
	svc := &mockSessionService{}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/id/sess-1/cancel", strings.NewReader(`{"reason":"x","refund":"all"}`))
	req.Header.Set(httputil.HeaderActorID, "owner-1")
	req.Header.Set(httputil.HeaderActorRole, "owner")
	rec := httptest.NewRecorder()

	newRouter(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCancel_ReturnsRefundInfo(t *testing.T) {
	svc := &mockSessionService{
		cancelFunc: func(_ context.Context, _ model.Actor, id string, _ *model.CancelRequest) (*model.CancelResult, error) {
			return &model.CancelResult{
				Session: &model.Session{ID: id, Status: model.SessionStatusUserCancelled},
				Refund:  &model.RefundInfo{RefundAmount: 90000, DeductionAmount: 10000, ProcessingTime: "5-7 business days"},
			}, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/id/sess-1/cancel", strings.NewReader(`{"reason":"plans changed"}`))
	req.Header.Set(httputil.HeaderActorID, "owner-1")
	req.Header.Set(httputil.HeaderActorRole, "owner")
	rec := httptest.NewRecorder()

	newRouter(svc).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"refund_amount_minor":90000`)
	assert.Contains(t, rec.Body.String(), `"status":"USERCANCELLED"`)
}
