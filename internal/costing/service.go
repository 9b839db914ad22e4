package costing

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/odyssey-erp/mnledger/internal/shared"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	LoadValues(ctx context.Context) (map[string]float64, error)
}

// Service exposes the exchange configuration and landed-cost quotes.
type Service struct {
	repo RepositoryPort
	base string
	now  func() time.Time
}

// NewService constructs the costing service for the given base currency.
func NewService(repo RepositoryPort, baseCurrency string) *Service {
	if baseCurrency == "" {
		baseCurrency = DefaultBaseCurrency
	}
	return &Service{repo: repo, base: baseCurrency, now: time.Now}
}

// Rates returns the current exchange configuration.
func (s *Service) Rates(ctx context.Context) (Rates, error) {
	values, err := s.repo.LoadValues(ctx)
	if err != nil {
		return Rates{}, fmt.Errorf("costing: load rates: %w", err)
	}
	return FromConfig(s.base, values), nil
}

// Quote is a landed-cost computation together with the figures it used.
type Quote struct {
	Currency        string  `json:"currency"`
	ExchangeRate    float64 `json:"exchange_rate"`
	CustomsDutyRate float64 `json:"customs_duty_rate"`
	LandedTotalCost float64 `json:"landed_total_cost"`
}

// Quote computes the landed total of in under the current rates. When
// useConfiguredDuty is set the configured customs duty replaces in.CustomsDutyRate.
func (s *Service) Quote(ctx context.Context, currency string, in CostInput, useConfiguredDuty bool) (Quote, error) {
	rates, err := s.Rates(ctx)
	if err != nil {
		return Quote{}, err
	}
	return QuoteWith(rates, currency, in, useConfiguredDuty)
}

// QuoteWith is Quote against an explicit rate snapshot.
func QuoteWith(rates Rates, currency string, in CostInput, useConfiguredDuty bool) (Quote, error) {
	rate, err := rates.ExchangeRate(currency)
	if err != nil {
		return Quote{}, shared.NewValidationError(err.Error())
	}
	if useConfiguredDuty {
		in.CustomsDutyRate = rates.CustomsDuty
	}
	if neg := in.Negative(); len(neg) > 0 {
		return Quote{}, shared.NewValidationError("negative amounts: " + strings.Join(neg, ", "))
	}
	return Quote{
		Currency:        currency,
		ExchangeRate:    rate,
		CustomsDutyRate: in.CustomsDutyRate,
		LandedTotalCost: LandedTotal(in, rate),
	}, nil
}

// UpdateRatesInput replaces some or all configured values.
type UpdateRatesInput struct {
	Rates       map[string]float64 `json:"rates"`
	CustomsDuty *float64           `json:"customs_duty_rate"`
}

// UpdateRates validates and persists new exchange figures.
func (s *Service) UpdateRates(ctx context.Context, actor string, input UpdateRatesInput) (Rates, error) {
	current, err := s.Rates(ctx)
	if err != nil {
		return Rates{}, err
	}
	verr := &shared.ValidationError{}
	next := current
	next.ByCurrency = make(map[string]float64, len(current.ByCurrency))
	for k, v := range current.ByCurrency {
		next.ByCurrency[k] = v
	}
	for code, rate := range input.Rates {
		if code == current.Base {
			verr.Add("%s is the base currency and always converts at 1.0", code)
			continue
		}
		if _, ok := current.ByCurrency[code]; !ok {
			verr.Add("unsupported currency %q", code)
			continue
		}
		if rate <= 0 {
			verr.Add("%s rate must be greater than 0", code)
			continue
		}
		next.ByCurrency[code] = rate
	}
	if input.CustomsDuty != nil {
		if *input.CustomsDuty < 0 || *input.CustomsDuty > 1 {
			verr.Add("customs duty rate must be between 0 and 1")
		} else {
			next.CustomsDuty = *input.CustomsDuty
		}
	}
	if err := verr.OrNil(); err != nil {
		return Rates{}, err
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.SaveValues(ctx, next.ConfigValues()); err != nil {
			return err
		}
		return tx.AppendEvent(ctx, shared.Event{
			At:          s.now().UTC(),
			Actor:       actor,
			Action:      shared.ActionConfigUpdate,
			Description: describeRates(next),
		})
	})
	if err != nil {
		return Rates{}, err
	}
	return next, nil
}

func describeRates(r Rates) string {
	codes := make([]string, 0, len(r.ByCurrency))
	for code := range r.ByCurrency {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	parts := make([]string, 0, len(codes)+1)
	for _, code := range codes {
		parts = append(parts, fmt.Sprintf("%s=%s", code, shared.FormatAmount(r.ByCurrency[code])))
	}
	parts = append(parts, fmt.Sprintf("duty=%.2f%%", r.CustomsDuty*100))
	return "Exchange configuration updated: " + strings.Join(parts, ", ")
}
