package rbac

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/odyssey-erp/mnledger/internal/platform/httpx"
	"github.com/odyssey-erp/mnledger/internal/shared"
)

// Authenticator verifies a username/password pair and returns the caller's role.
type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) (shared.Principal, error)
}

// Middleware wires authentication and role checks for HTTP handlers.
type Middleware struct {
	Auth   Authenticator
	Logger *slog.Logger
	Realm  string
}

// Authenticate resolves HTTP Basic credentials into a principal on the request context.
func (m Middleware) Authenticate(next http.Handler) http.Handler {
	realm := m.Realm
	if realm == "" {
		realm = "mnledger"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username, password, ok := r.BasicAuth()
		if !ok || strings.TrimSpace(username) == "" {
			w.Header().Set("WWW-Authenticate", `Basic realm="`+realm+`"`)
			httpx.RespondError(w, httpx.ErrUnauthorized)
			return
		}
		principal, err := m.Auth.Authenticate(r.Context(), username, password)
		if err != nil {
			if !errors.Is(err, shared.ErrInvalidCredentials) && m.Logger != nil {
				m.Logger.Error("rbac authenticate", slog.Any("error", err))
			}
			w.Header().Set("WWW-Authenticate", `Basic realm="`+realm+`"`)
			httpx.RespondError(w, shared.ErrInvalidCredentials)
			return
		}
		next.ServeHTTP(w, r.WithContext(shared.ContextWithPrincipal(r.Context(), principal)))
	})
}

// RequireRole ensures the current principal holds one of roles.
func (m Middleware) RequireRole(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		allowed[strings.ToLower(strings.TrimSpace(role))] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := shared.PrincipalFromContext(r.Context())
			if !ok {
				httpx.RespondError(w, httpx.ErrUnauthorized)
				return
			}
			if _, ok := allowed[principal.Role]; !ok {
				if m.Logger != nil {
					m.Logger.Warn("rbac denied", slog.String("user", principal.Username), slog.String("role", principal.Role), slog.String("path", r.URL.Path))
				}
				httpx.RespondError(w, httpx.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Actor returns the username of the authenticated caller, or "" when absent.
func Actor(r *http.Request) string {
	principal, _ := shared.PrincipalFromContext(r.Context())
	return principal.Username
}
