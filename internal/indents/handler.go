package indents

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/mnledger/internal/platform/httpx"
	"github.com/odyssey-erp/mnledger/internal/rbac"
)

// Handler manages indent and bill endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers indent routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.registry)
	r.Post("/", h.createIndent)
	r.Get("/eligible", h.eligible)
	r.Get("/bills", h.listBills)
	r.Post("/bills", h.generateBill)
	r.Get("/bills/{billNo}", h.getBill)
}

func (h *Handler) registry(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.Registry(r.Context())
	if err != nil {
		h.logger.Error("list indents", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, items)
}

func (h *Handler) createIndent(w http.ResponseWriter, r *http.Request) {
	var input IndentInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	indent, err := h.service.CreateIndent(r.Context(), rbac.Actor(r), input)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, indent)
}

func (h *Handler) eligible(w http.ResponseWriter, r *http.Request) {
	var numbers []string
	for _, raw := range r.URL.Query()["indent"] {
		for _, n := range strings.Split(raw, ",") {
			if n = strings.TrimSpace(n); n != "" {
				numbers = append(numbers, n)
			}
		}
	}
	items, err := h.service.ListEligible(r.Context(), numbers)
	if err != nil {
		h.logger.Error("list eligible indents", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, items)
}

type billListResponse struct {
	Bills   []Bill      `json:"bills"`
	Summary BillSummary `json:"summary"`
}

func (h *Handler) listBills(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	bills, summary, err := h.service.ListBills(r.Context(), BillFilters{
		Search:      q.Get("search"),
		Supplier:    q.Get("supplier"),
		PaymentMode: q.Get("payment_mode"),
	})
	if err != nil {
		h.logger.Error("list bills", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, billListResponse{Bills: bills, Summary: summary})
}

func (h *Handler) generateBill(w http.ResponseWriter, r *http.Request) {
	var input BillInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	bill, err := h.service.GenerateBill(r.Context(), rbac.Actor(r), input)
	if err != nil {
		h.logger.Info("bill rejected", slog.String("bill_no", input.BillNo), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, bill)
}

func (h *Handler) getBill(w http.ResponseWriter, r *http.Request) {
	bill, err := h.service.GetBill(r.Context(), chi.URLParam(r, "billNo"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, bill)
}
