package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/mnledger/internal/shared"
)

func TestRespondErrorTaxonomy(t *testing.T) {
	cases := []struct {
		err    error
		status int
		title  string
	}{
		{shared.NewValidationError("Amount must be greater than 0"), http.StatusBadRequest, "Validation Failed"},
		{shared.NotFoundf("cost area Line-9"), http.StatusNotFound, "Not Found"},
		{shared.Conflictf("MN DHK/001/2026 already exists"), http.StatusConflict, "Conflict"},
		{&shared.BudgetExceededError{CostArea: "Line-1", Remaining: 60000, Requested: 70000}, http.StatusUnprocessableEntity, "Budget Exceeded"},
		{ErrForbidden, http.StatusForbidden, "Forbidden"},
		{shared.ErrInvalidCredentials, http.StatusUnauthorized, "Unauthorized"},
		{errors.New("ERROR: relation \"requests\" does not exist"), http.StatusInternalServerError, "Storage Error"},
	}
	for _, tc := range cases {
		rr := httptest.NewRecorder()
		RespondError(rr, fmt.Errorf("op: %w", tc.err))
		require.Equal(t, tc.status, rr.Code, tc.title)
		require.Equal(t, "application/problem+json", rr.Header().Get("Content-Type"))
		var body ProblemDetail
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
		require.Equal(t, tc.title, body.Title)
		require.Equal(t, tc.status, body.Status)
		require.Contains(t, body.Detail, tc.err.Error())
	}
}

func TestDecodeJSONRejectsUnknownFields(t *testing.T) {
	var target struct {
		Name string `json:"name"`
	}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"a","extra":1}`))
	err := DecodeJSON(req, &target)
	require.ErrorIs(t, err, ErrBadRequest)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"a"}`))
	require.NoError(t, DecodeJSON(req, &target))
	require.Equal(t, "a", target.Name)
}

func TestQueryInt(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?page=3&size=x", nil)
	require.Equal(t, 3, QueryInt(req, "page", 1))
	require.Equal(t, 50, QueryInt(req, "size", 50))
	require.Equal(t, 7, QueryInt(req, "missing", 7))
}
