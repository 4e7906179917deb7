package handler

import (
	"net/http"

	"petsit/internal/earnings/service"
	httputil "petsit/pkg/http"
	"petsit/pkg/logger"

	"github.com/julienschmidt/httprouter"
)

type WalletHandler struct {
	service service.EarningsService
	log     *logger.Logger
}

func NewWalletHandler(service service.EarningsService, log *logger.Logger) *WalletHandler {
	return &WalletHandler{
		service: service,
		log:     log,
	}
}

func (h *WalletHandler) GetBySitter(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, err := httputil.ExtractActor(r)
	if err != nil {
		h.writeError(w, "GetBySitter", err)
		return
	}

	wallet, err := h.service.GetWallet(r.Context(), actor, ps.ByName("sitter_id"))
	if err != nil {
		h.writeError(w, "GetBySitter", err)
		return
	}

	if err := httputil.WriteSuccess(w, wallet); err != nil {
		h.log.Error("failed to write success response", "handler", "GetBySitter", "operation", "WriteSuccess", "error", err)
	}
}

func (h *WalletHandler) ListEntries(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, err := httputil.ExtractActor(r)
	if err != nil {
		h.writeError(w, "ListEntries", err)
		return
	}

	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "ListEntries", err)
		return
	}

	entries, total, err := h.service.ListEntries(r.Context(), actor, ps.ByName("sitter_id"), limit, offset)
	if err != nil {
		h.writeError(w, "ListEntries", err)
		return
	}

	if err := httputil.WritePaginated(w, entries, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "ListEntries", "operation", "WritePaginated", "error", err)
	}
}

func (h *WalletHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *WalletHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/wallets/sitter/:sitter_id", h.GetBySitter)
	router.GET("/api/v1/wallets/sitter/:sitter_id/entries", h.ListEntries)
}
