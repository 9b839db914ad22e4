package costing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/mnledger/internal/shared"
)

type memoryRatesRepo struct {
	values map[string]float64
	events []shared.Event
	err    error
}

type memoryRatesTx struct {
	repo   *memoryRatesRepo
	values map[string]float64
	events []shared.Event
}

func (r *memoryRatesRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx := &memoryRatesTx{repo: r, values: map[string]float64{}}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if r.values == nil {
		r.values = map[string]float64{}
	}
	for k, v := range tx.values {
		r.values[k] = v
	}
	r.events = append(r.events, tx.events...)
	return nil
}

func (r *memoryRatesRepo) LoadValues(ctx context.Context) (map[string]float64, error) {
	if r.err != nil {
		return nil, r.err
	}
	out := make(map[string]float64, len(r.values))
	for k, v := range r.values {
		out[k] = v
	}
	return out, nil
}

func (tx *memoryRatesTx) SaveValues(ctx context.Context, values map[string]float64) error {
	for k, v := range values {
		tx.values[k] = v
	}
	return nil
}

func (tx *memoryRatesTx) AppendEvent(ctx context.Context, evt shared.Event) error {
	tx.events = append(tx.events, evt)
	return nil
}

func TestRatesDefaultsWhenTableEmpty(t *testing.T) {
	svc := NewService(&memoryRatesRepo{}, "")
	rates, err := svc.Rates(context.Background())
	require.NoError(t, err)
	require.Equal(t, "BDT", rates.Base)
	require.Equal(t, 110.0, rates.ByCurrency[CurrencyUSD])
	require.Equal(t, 1.5, rates.ByCurrency[CurrencyINR])
	require.Equal(t, 100.0, rates.ByCurrency[CurrencyOther])
	require.Equal(t, 0.05, rates.CustomsDuty)

	rate, err := rates.ExchangeRate("BDT")
	require.NoError(t, err)
	require.Equal(t, 1.0, rate)
}

func TestRatesReadStoredValues(t *testing.T) {
	repo := &memoryRatesRepo{values: map[string]float64{"USD_rate": 118.5, "OTHER_rate": 95, DutyKey: 0.1}}
	rates, err := NewService(repo, "BDT").Rates(context.Background())
	require.NoError(t, err)
	require.Equal(t, 118.5, rates.ByCurrency[CurrencyUSD])
	require.Equal(t, 95.0, rates.ByCurrency[CurrencyOther])
	require.Equal(t, 0.1, rates.CustomsDuty)
	require.Equal(t, []string{"BDT", "EUR", "GBP", "INR", "Other", "USD"}, rates.Currencies())
}

func TestQuoteUsesConfiguredDuty(t *testing.T) {
	svc := NewService(&memoryRatesRepo{}, "BDT")
	q, err := svc.Quote(context.Background(), CurrencyUSD, CostInput{ForeignSpareCost: 100, CustomsDutyRate: 0.9}, true)
	require.NoError(t, err)
	require.Equal(t, 0.05, q.CustomsDutyRate)
	require.Equal(t, 110.0, q.ExchangeRate)
	require.InDelta(t, 11550.0, q.LandedTotalCost, 1e-9)
}

func TestQuoteRejectsUnknownCurrency(t *testing.T) {
	svc := NewService(&memoryRatesRepo{}, "BDT")
	_, err := svc.Quote(context.Background(), "JPY", CostInput{ForeignSpareCost: 1}, false)
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestQuoteSurfacesStorageError(t *testing.T) {
	boom := errors.New("connection refused")
	svc := NewService(&memoryRatesRepo{err: boom}, "BDT")
	_, err := svc.Quote(context.Background(), "BDT", CostInput{}, false)
	require.ErrorIs(t, err, boom)
}

func TestUpdateRatesPersistsAndLogs(t *testing.T) {
	repo := &memoryRatesRepo{}
	svc := NewService(repo, "BDT")
	duty := 0.07
	rates, err := svc.UpdateRates(context.Background(), "admin", UpdateRatesInput{
		Rates:       map[string]float64{CurrencyUSD: 121},
		CustomsDuty: &duty,
	})
	require.NoError(t, err)
	require.Equal(t, 121.0, rates.ByCurrency[CurrencyUSD])
	require.Equal(t, 121.0, repo.values["USD_rate"])
	require.Equal(t, 0.07, repo.values[DutyKey])
	require.Len(t, repo.events, 1)
	require.Equal(t, shared.ActionConfigUpdate, repo.events[0].Action)
	require.Equal(t, "admin", repo.events[0].Actor)
	require.Contains(t, repo.events[0].Description, "USD=121.00")
}

func TestUpdateRatesValidation(t *testing.T) {
	repo := &memoryRatesRepo{}
	svc := NewService(repo, "BDT")
	duty := 1.5
	_, err := svc.UpdateRates(context.Background(), "admin", UpdateRatesInput{
		Rates:       map[string]float64{CurrencyEUR: 0, "BDT": 2, "JPY": 1},
		CustomsDuty: &duty,
	})
	require.ErrorIs(t, err, shared.ErrValidation)
	var verr *shared.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Len(t, verr.Problems, 4)
	require.Empty(t, repo.events)
	require.Empty(t, repo.values)
}
