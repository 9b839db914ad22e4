package audit

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/mnledger/internal/platform/httpx"
	"github.com/odyssey-erp/mnledger/internal/rbac"
	"github.com/odyssey-erp/mnledger/internal/shared"
)

// Handler serves the event log.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler builds the event log handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers the event log endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Use(h.rbac.RequireRole(shared.RoleAdministrator, shared.RoleSuper))
	r.Get("/", h.handleTimeline)
}

func (h *Handler) handleTimeline(w http.ResponseWriter, r *http.Request) {
	filters, err := parseFilters(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	result, err := h.service.Timeline(r.Context(), filters)
	if err != nil {
		h.logger.Error("load event log", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

// parseFilters reads from/to as inclusive YYYY-MM-DD dates.
func parseFilters(r *http.Request) (Filters, error) {
	q := r.URL.Query()
	verr := &shared.ValidationError{}
	var filters Filters
	if v := strings.TrimSpace(q.Get("from")); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			verr.Add("from must be a date in 2006-01-02 form")
		}
		filters.From = t
	}
	if v := strings.TrimSpace(q.Get("to")); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			verr.Add("to must be a date in 2006-01-02 form")
		} else {
			filters.To = t.AddDate(0, 0, 1)
		}
	}
	if !filters.From.IsZero() && !filters.To.IsZero() && !filters.From.Before(filters.To) {
		verr.Add("from must not be after to")
	}
	filters.Actor = q.Get("actor")
	filters.Action = q.Get("action")
	filters.Page = httpx.QueryInt(r, "page", 1)
	filters.PageSize = httpx.QueryInt(r, "page_size", defaultPageSize)
	return filters, verr.OrNil()
}
