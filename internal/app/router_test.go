package app

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/mnledger/internal/ledger"
	"github.com/odyssey-erp/mnledger/internal/observability"
	"github.com/odyssey-erp/mnledger/internal/rbac"
	"github.com/odyssey-erp/mnledger/internal/shared"
	_ "github.com/odyssey-erp/mnledger/testing"
)

type denyAll struct{}

func (denyAll) Authenticate(ctx context.Context, username, password string) (shared.Principal, error) {
	return shared.Principal{}, shared.ErrInvalidCredentials
}

func newTestRouter() http.Handler {
	cfg := &Config{BaseCurrency: "BDT", UtilizationAlertPct: 90, RateLimitPerMinute: 0}
	mw := rbac.Middleware{Auth: denyAll{}}
	return NewRouter(RouterParams{
		Config:         cfg,
		RBACMiddleware: mw,
		LedgerHandler:  ledger.NewHandler(nil, ledger.NewService(nil, nil, nil), mw),
		Metrics:        observability.NewMetrics(),
	})
}

func TestRouterHealthAndMetricsAreOpen(t *testing.T) {
	router := newTestRouter()

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
	require.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.True(t, strings.Contains(rr.Body.String(), `mnledger_http_requests_total{code="200",route="/healthz"} 1`))
}

func TestRouterRequiresCredentials(t *testing.T) {
	router := newTestRouter()

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/ledger/status", nil))
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.NotEmpty(t, rr.Header().Get("WWW-Authenticate"))
}

func TestRouterNotFoundIsProblem(t *testing.T) {
	router := newTestRouter()

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/nope", nil))
	require.Equal(t, http.StatusNotFound, rr.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, "Not Found", body["title"])
}

func TestRouterWritesOneAccessRecordPerRequest(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	router := NewRouter(RouterParams{
		Logger:         logger,
		Config:         &Config{BaseCurrency: "BDT", UtilizationAlertPct: 90},
		RBACMiddleware: rbac.Middleware{Auth: denyAll{}, Logger: logger},
	})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)
	var record map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &record))
	require.Equal(t, "http request", record["msg"])
	require.Equal(t, "/healthz", record["path"])
	require.EqualValues(t, 200, record["status"])
}
