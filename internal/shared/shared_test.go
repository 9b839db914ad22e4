package shared

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

type sampleInput struct {
	MN       string  `validate:"required" label:"MN Number"`
	Supplier string  `validate:"required" label:"Supplier"`
	Amount   float64 `validate:"gt=0" label:"Amount"`
	Kind     string  `validate:"omitempty,oneof=Local Foreign" label:"Supplier Type"`
	Issued   string  `validate:"omitempty,datetime=2006-01-02" label:"Issue Date"`
}

func TestValidateStructCollectsEveryProblem(t *testing.T) {
	verr := ValidateStruct(sampleInput{Amount: -1, Kind: "Domestic", Issued: "15/01/2026"})
	require.Equal(t, []string{"MN Number", "Supplier"}, verr.Missing)
	require.Equal(t, []string{
		"Amount must be greater than 0",
		"Supplier Type must be one of Local, Foreign",
		"Issue Date must be a date in 2006-01-02 form",
	}, verr.Problems)

	err := verr.OrNil()
	require.ErrorIs(t, err, ErrValidation)
	require.Equal(t, "validation failed: missing required fields: MN Number, Supplier; Amount must be greater than 0; "+
		"Supplier Type must be one of Local, Foreign; Issue Date must be a date in 2006-01-02 form", err.Error())

	require.NoError(t, ValidateStruct(sampleInput{MN: "DHK/001/2026", Supplier: "Acme", Amount: 1}).OrNil())
}

func TestBudgetExceededError(t *testing.T) {
	err := fmt.Errorf("create: %w", &BudgetExceededError{CostArea: "Line-1", Requested: 70000, Remaining: 60000})
	require.ErrorIs(t, err, ErrBudgetExceeded)
	var be *BudgetExceededError
	require.ErrorAs(t, err, &be)
	require.Equal(t, "budget exceeded: cost area Line-1 has 60,000.00 remaining, request needs 70,000.00", be.Error())
}

func TestWrappedSentinels(t *testing.T) {
	require.ErrorIs(t, Conflictf("MN %s already exists", "DHK/001/2026"), ErrConflict)
	require.EqualError(t, NotFoundf("cost area %s", "Line-9"), "not found: cost area Line-9")
}

func TestFormatAmount(t *testing.T) {
	require.Equal(t, "60,000.00", FormatAmount(60000))
	require.Equal(t, "1,234,567.89", FormatAmount(1234567.891))
	require.Equal(t, "0.00", FormatAmount(0))
}

func TestIsUniqueViolation(t *testing.T) {
	require.True(t, IsUniqueViolation(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})))
	require.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}))
	require.False(t, IsUniqueViolation(errors.New("boom")))
}

func TestRequestStatus(t *testing.T) {
	require.True(t, StatusPOIssued.Valid())
	require.False(t, RequestStatus("Closed").Valid())
	require.False(t, StatusRejected.Commits())
	require.True(t, StatusPending.Commits())
	require.True(t, StatusCompleted.Approved())
	require.False(t, StatusApprovedByAD.Approved())
}

func TestPrincipalContext(t *testing.T) {
	_, ok := PrincipalFromContext(context.Background())
	require.False(t, ok)
	ctx := ContextWithPrincipal(context.Background(), Principal{Username: "root", Role: RoleAdministrator})
	p, ok := PrincipalFromContext(ctx)
	require.True(t, ok)
	require.Equal(t, "root", p.Username)
}
