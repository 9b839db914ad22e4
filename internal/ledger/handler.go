package ledger

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/mnledger/internal/platform/httpx"
	"github.com/odyssey-erp/mnledger/internal/rbac"
	"github.com/odyssey-erp/mnledger/internal/shared"
)

// Handler serves ledger and budget head endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers ledger routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/status", h.status)
	r.Get("/dashboard", h.dashboard)
	r.Get("/area", h.area)
	r.Get("/heads", h.listHeads)
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireRole(shared.RoleAdministrator))
		r.Put("/heads", h.upsertHead)
		r.Post("/heads/import", h.importHeads)
		r.Delete("/heads", h.clearHeads)
	})
}

func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	status, err := h.service.Status(r.Context())
	if err != nil {
		h.logger.Error("ledger status", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, status)
}

type dashboardResponse struct {
	Ledger   Status        `json:"ledger"`
	Requests []StatusCount `json:"requests"`
}

func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	var resp dashboardResponse
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		resp.Ledger, err = h.service.Status(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		resp.Requests, err = h.service.StatusBreakdown(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		h.logger.Error("ledger dashboard", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) area(w http.ResponseWriter, r *http.Request) {
	costArea := r.URL.Query().Get("cost_area")
	if costArea == "" {
		httpx.RespondError(w, shared.NewValidationError("cost_area query parameter required"))
		return
	}
	area, err := h.service.Area(r.Context(), costArea)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, area)
}

func (h *Handler) listHeads(w http.ResponseWriter, r *http.Request) {
	heads, err := h.service.Heads(r.Context())
	if err != nil {
		h.logger.Error("list heads", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, heads)
}

func (h *Handler) upsertHead(w http.ResponseWriter, r *http.Request) {
	var req HeadInput
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	head, err := h.service.UpsertHead(r.Context(), rbac.Actor(r), req)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, head)
}

func (h *Handler) importHeads(w http.ResponseWriter, r *http.Request) {
	var rows []HeadInput
	if err := httpx.DecodeJSON(r, &rows); err != nil {
		httpx.RespondError(w, err)
		return
	}
	n, err := h.service.ImportHeads(r.Context(), rbac.Actor(r), rows)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]int{"imported": n})
}

func (h *Handler) clearHeads(w http.ResponseWriter, r *http.Request) {
	n, err := h.service.ClearHeads(r.Context(), rbac.Actor(r))
	if err != nil {
		h.logger.Error("clear heads", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]int64{"removed": n})
}
