package rbac

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/mnledger/internal/shared"
)

type stubAuth struct {
	err error
}

func (s stubAuth) Authenticate(ctx context.Context, username, password string) (shared.Principal, error) {
	if s.err != nil {
		return shared.Principal{}, s.err
	}
	if password != "secret" {
		return shared.Principal{}, shared.ErrInvalidCredentials
	}
	role := shared.RoleUser
	if username == "root" {
		role = shared.RoleAdministrator
	}
	return shared.Principal{Username: username, Role: role}, nil
}

func serve(mw Middleware, h http.Handler, user, pass string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if user != "" {
		req.SetBasicAuth(user, pass)
	}
	rr := httptest.NewRecorder()
	mw.Authenticate(h).ServeHTTP(rr, req)
	return rr
}

func TestAuthenticatePlacesActorOnContext(t *testing.T) {
	mw := Middleware{Auth: stubAuth{}}
	var actor string
	rr := serve(mw, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor = Actor(r)
		w.WriteHeader(http.StatusNoContent)
	}), "alice", "secret")
	require.Equal(t, http.StatusNoContent, rr.Code)
	require.Equal(t, "alice", actor)
}

func TestAuthenticateRejects(t *testing.T) {
	mw := Middleware{Auth: stubAuth{}, Realm: "ledger"}
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	})

	rr := serve(mw, next, "", "")
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.Equal(t, `Basic realm="ledger"`, rr.Header().Get("WWW-Authenticate"))

	rr = serve(mw, next, "alice", "wrong")
	require.Equal(t, http.StatusUnauthorized, rr.Code)

	mw.Auth = stubAuth{err: errors.New("connection refused")}
	rr = serve(mw, next, "alice", "secret")
	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestRequireRole(t *testing.T) {
	mw := Middleware{Auth: stubAuth{}}
	guarded := mw.RequireRole(shared.RoleAdministrator)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	require.Equal(t, http.StatusForbidden, serve(mw, guarded, "alice", "secret").Code)
	require.Equal(t, http.StatusOK, serve(mw, guarded, "root", "secret").Code)

	rr := httptest.NewRecorder()
	guarded.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusUnauthorized, rr.Code)
}
