package procurement

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/mnledger/internal/platform/httpx"
	"github.com/odyssey-erp/mnledger/internal/rbac"
)

// Handler manages tracker endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers tracker routes. MN numbers contain slashes, so they
// travel in the mn query parameter.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/trackable", h.listTrackable)
	r.Get("/", h.list)
	r.Get("/record", h.get)
	r.Put("/record", h.upsert)
}

func (h *Handler) listTrackable(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListTrackable(r.Context())
	if err != nil {
		h.logger.Error("list trackable", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, items)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	rows, err := h.service.List(r.Context(), ListFilters{
		LCPONumber:   q.Get("lc_po_number"),
		SupplierType: q.Get("supplier_type"),
		Delivered:    queryBool(q.Get("delivered")),
		Paid:         queryBool(q.Get("paid")),
	})
	if err != nil {
		h.logger.Error("list tracker", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rows)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	rec, err := h.service.Get(r.Context(), r.URL.Query().Get("mn"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rec)
}

func (h *Handler) upsert(w http.ResponseWriter, r *http.Request) {
	var input Input
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	mn := r.URL.Query().Get("mn")
	result, err := h.service.Upsert(r.Context(), rbac.Actor(r), mn, input)
	if err != nil {
		h.logger.Info("tracker update rejected", slog.String("mn_number", mn), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if result.Promoted {
		h.logger.Info("request promoted to PO Issued", slog.String("mn_number", mn))
	}
	httpx.JSON(w, http.StatusOK, result)
}

func queryBool(raw string) *bool {
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil
	}
	return &v
}
