package handler

import (
	"context"
	"net/http"

	"petsit/internal/sessions/service"
	httputil "petsit/pkg/http"
	"petsit/pkg/logger"
	"petsit/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type SessionHandler struct {
	service service.SessionService
	log     *logger.Logger
}

func NewSessionHandler(service service.SessionService, log *logger.Logger) *SessionHandler {
	return &SessionHandler{
		service: service,
		log:     log,
	}
}

func (h *SessionHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, err := httputil.ExtractActor(r)
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	session, err := h.service.GetByID(r.Context(), actor, ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	h.writeSuccess(w, "GetByID", session)
}

func (h *SessionHandler) ListByBooking(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, err := httputil.ExtractActor(r)
	if err != nil {
		h.writeError(w, "ListByBooking", err)
		return
	}

	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "ListByBooking", err)
		return
	}

	sessions, total, err := h.service.ListByBooking(r.Context(), actor, ps.ByName("booking_id"), limit, offset)
	if err != nil {
		h.writeError(w, "ListByBooking", err)
		return
	}

	if err := httputil.WritePaginated(w, sessions, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "ListByBooking", "operation", "WritePaginated", "error", err)
	}
}

func (h *SessionHandler) GetCodes(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, err := httputil.ExtractActor(r)
	if err != nil {
		h.writeError(w, "GetCodes", err)
		return
	}

	codes, err := h.service.GetCodes(r.Context(), actor, ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetCodes", err)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	h.writeSuccess(w, "GetCodes", codes)
}

func (h *SessionHandler) Assign(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, err := httputil.ExtractActor(r)
	if err != nil {
		h.writeError(w, "Assign", err)
		return
	}

	var req model.SitterAssignment
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "Assign", err)
		return
	}

	session, err := h.service.Assign(r.Context(), actor, ps.ByName("id"), &req)
	if err != nil {
		h.writeError(w, "Assign", err)
		return
	}

	h.writeSuccess(w, "Assign", session)
}

func (h *SessionHandler) Confirm(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, err := httputil.ExtractActor(r)
	if err != nil {
		h.writeError(w, "Confirm", err)
		return
	}

	session, err := h.service.Confirm(r.Context(), actor, ps.ByName("id"))
	if err != nil {
		h.writeError(w, "Confirm", err)
		return
	}

	h.writeSuccess(w, "Confirm", session)
}

func (h *SessionHandler) Start(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	h.redeem(w, r, ps, "Start", h.service.Start)
}

func (h *SessionHandler) End(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	h.redeem(w, r, ps, "End", h.service.End)
}

type redeemFunc func(ctx context.Context, actor model.Actor, id string, req *model.CodeRedemption) (*model.Session, error)

func (h *SessionHandler) redeem(w http.ResponseWriter, r *http.Request, ps httprouter.Params, name string, redeem redeemFunc) {
	actor, err := httputil.ExtractActor(r)
	if err != nil {
		h.writeError(w, name, err)
		return
	}

	var req model.CodeRedemption
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, name, err)
		return
	}

	session, err := redeem(r.Context(), actor, ps.ByName("id"), &req)
	if err != nil {
		h.writeError(w, name, err)
		return
	}

	h.writeSuccess(w, name, session)
}

func (h *SessionHandler) Cancel(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, err := httputil.ExtractActor(r)
	if err != nil {
		h.writeError(w, "Cancel", err)
		return
	}

	var req model.CancelRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "Cancel", err)
		return
	}

	result, err := h.service.Cancel(r.Context(), actor, ps.ByName("id"), &req)
	if err != nil {
		h.writeError(w, "Cancel", err)
		return
	}

	h.writeSuccess(w, "Cancel", result)
}

func (h *SessionHandler) RecordPayment(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, err := httputil.ExtractActor(r)
	if err != nil {
		h.writeError(w, "RecordPayment", err)
		return
	}

	var req model.PaymentRecord
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "RecordPayment", err)
		return
	}

	session, err := h.service.RecordPayment(r.Context(), actor, ps.ByName("id"), &req)
	if err != nil {
		h.writeError(w, "RecordPayment", err)
		return
	}

	h.writeSuccess(w, "RecordPayment", session)
}

func (h *SessionHandler) writeSuccess(w http.ResponseWriter, handler string, data any) {
	if err := httputil.WriteSuccess(w, data); err != nil {
		h.log.Error("failed to write success response", "handler", handler, "operation", "WriteSuccess", "error", err)
	}
}

func (h *SessionHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *SessionHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/sessions/id/:id", h.GetByID)
	router.GET("/api/v1/sessions/id/:id/codes", h.GetCodes)
	router.GET("/api/v1/sessions/booking/:booking_id", h.ListByBooking)
	router.POST("/api/v1/sessions/id/:id/assign", h.Assign)
	router.POST("/api/v1/sessions/id/:id/confirm", h.Confirm)
	router.POST("/api/v1/sessions/id/:id/start", h.Start)
	router.POST("/api/v1/sessions/id/:id/end", h.End)
	router.POST("/api/v1/sessions/id/:id/cancel", h.Cancel)
	router.POST("/api/v1/sessions/id/:id/payment", h.RecordPayment)
}
