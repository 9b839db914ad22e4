package costing

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/mnledger/internal/platform/httpx"
	"github.com/odyssey-erp/mnledger/internal/rbac"
	"github.com/odyssey-erp/mnledger/internal/shared"
)

// Handler serves exchange configuration endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers costing routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/rates", h.getRates)
	r.Post("/quote", h.quote)
	r.With(h.rbac.RequireRole(shared.RoleAdministrator)).Put("/rates", h.updateRates)
}

func (h *Handler) getRates(w http.ResponseWriter, r *http.Request) {
	rates, err := h.service.Rates(r.Context())
	if err != nil {
		h.logger.Error("load rates", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rates)
}

type quoteRequest struct {
	Currency string `json:"currency"`
	CostInput
	UseConfiguredDuty bool `json:"use_configured_duty"`
}

func (h *Handler) quote(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	q, err := h.service.Quote(r.Context(), req.Currency, req.CostInput, req.UseConfiguredDuty)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, q)
}

func (h *Handler) updateRates(w http.ResponseWriter, r *http.Request) {
	var req UpdateRatesInput
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	rates, err := h.service.UpdateRates(r.Context(), rbac.Actor(r), req)
	if err != nil {
		h.logger.Warn("update rates", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rates)
}
