package handler

import (
	"net/http"

	"petsit/internal/bookings/service"
	httputil "petsit/pkg/http"
	"petsit/pkg/logger"
	"petsit/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type BookingHandler struct {
	service service.BookingService
	log     *logger.Logger
}

func NewBookingHandler(service service.BookingService, log *logger.Logger) *BookingHandler {
	return &BookingHandler{
		service: service,
		log:     log,
	}
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	actor, err := httputil.ExtractActor(r)
	if err != nil {
		h.writeError(w, "Create", err)
		return
	}

	var req model.BookingRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "Create", err)
		return
	}

	created, err := h.service.Create(r.Context(), actor, &req)
	if err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := httputil.WriteCreated(w, created); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteCreated", "error", err)
	}
}

func (h *BookingHandler) Estimate(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if _, err := httputil.ExtractActor(r); err != nil {
		h.writeError(w, "Estimate", err)
		return
	}

	var req model.EstimateRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "Estimate", err)
		return
	}

	estimate, err := h.service.Estimate(r.Context(), &req)
	if err != nil {
		h.writeError(w, "Estimate", err)
		return
	}

	h.writeSuccess(w, "Estimate", estimate)
}

func (h *BookingHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, err := httputil.ExtractActor(r)
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	booking, err := h.service.GetByID(r.Context(), actor, ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	h.writeSuccess(w, "GetByID", booking)
}

func (h *BookingHandler) ListMine(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	actor, err := httputil.ExtractActor(r)
	if err != nil {
		h.writeError(w, "ListMine", err)
		return
	}

	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "ListMine", err)
		return
	}

	bookings, total, err := h.service.ListMine(r.Context(), actor, limit, offset)
	if err != nil {
		h.writeError(w, "ListMine", err)
		return
	}

	if err := httputil.WritePaginated(w, bookings, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "ListMine", "operation", "WritePaginated", "error", err)
	}
}

func (h *BookingHandler) RecordPayment(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
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

	booking, err := h.service.RecordPayment(r.Context(), actor, ps.ByName("id"), &req)
	if err != nil {
		h.writeError(w, "RecordPayment", err)
		return
	}

	h.writeSuccess(w, "RecordPayment", booking)
}

func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
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

func (h *BookingHandler) writeSuccess(w http.ResponseWriter, handler string, data any) {
	if err := httputil.WriteSuccess(w, data); err != nil {
		h.log.Error("failed to write success response", "handler", handler, "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *BookingHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/bookings", h.Create)
	router.GET("/api/v1/bookings", h.ListMine)
	router.POST("/api/v1/bookings/estimate", h.Estimate)
	router.GET("/api/v1/bookings/id/:id", h.GetByID)
	router.POST("/api/v1/bookings/id/:id/payment", h.RecordPayment)
	router.POST("/api/v1/bookings/id/:id/cancel", h.Cancel)
}
