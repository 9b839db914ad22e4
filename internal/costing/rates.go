package costing

import (
	"fmt"
	"sort"
	"strings"
)

// Supported non-base currencies.
const (
	CurrencyUSD   = "USD"
	CurrencyEUR   = "EUR"
	CurrencyGBP   = "GBP"
	CurrencyINR   = "INR"
	CurrencyOther = "Other"
)

// DefaultBaseCurrency is the currency every amount is converted into.
const DefaultBaseCurrency = "BDT"

// DutyKey is the exchange_config key of the customs duty rate.
const DutyKey = "CustomsDuty_pct"

var defaultRates = map[string]float64{
	CurrencyUSD:   110.00,
	CurrencyEUR:   120.00,
	CurrencyGBP:   130.00,
	CurrencyINR:   1.50,
	CurrencyOther: 100.00,
}

const defaultDuty = 0.05

// Rates is a snapshot of the exchange configuration.
type Rates struct {
	Base        string             `json:"base_currency"`
	ByCurrency  map[string]float64 `json:"rates"`
	CustomsDuty float64            `json:"customs_duty_rate"`
}

// DefaultRates returns the seeded configuration.
func DefaultRates(base string) Rates {
	if base == "" {
		base = DefaultBaseCurrency
	}
	by := make(map[string]float64, len(defaultRates))
	for k, v := range defaultRates {
		by[k] = v
	}
	return Rates{Base: base, ByCurrency: by, CustomsDuty: defaultDuty}
}

// ExchangeRate returns the conversion factor into the base currency.
// The base currency always converts at 1.0.
func (r Rates) ExchangeRate(currency string) (float64, error) {
	if currency == r.Base {
		return 1.0, nil
	}
	rate, ok := r.ByCurrency[currency]
	if !ok {
		return 0, fmt.Errorf("unsupported currency %q", currency)
	}
	return rate, nil
}

// Currencies lists the base currency followed by the configured ones.
func (r Rates) Currencies() []string {
	out := make([]string, 0, len(r.ByCurrency)+1)
	out = append(out, r.Base)
	keys := make([]string, 0, len(r.ByCurrency))
	for k := range r.ByCurrency {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return append(out, keys...)
}

// ConfigKey maps a currency to its exchange_config key, e.g. USD -> USD_rate.
func ConfigKey(currency string) string {
	return strings.ToUpper(currency) + "_rate"
}

// currencyFromKey reverses ConfigKey.
func currencyFromKey(key string) (string, bool) {
	code, ok := strings.CutSuffix(key, "_rate")
	if !ok || code == "" {
		return "", false
	}
	if code == "OTHER" {
		return CurrencyOther, true
	}
	return code, true
}

// FromConfig builds Rates from raw exchange_config rows. Missing currencies keep
// their defaults so a partially seeded table still converts.
func FromConfig(base string, values map[string]float64) Rates {
	rates := DefaultRates(base)
	for key, value := range values {
		if key == DutyKey {
			rates.CustomsDuty = value
			continue
		}
		if code, ok := currencyFromKey(key); ok && code != rates.Base {
			rates.ByCurrency[code] = value
		}
	}
	return rates
}

// ConfigValues flattens Rates into exchange_config rows.
func (r Rates) ConfigValues() map[string]float64 {
	values := make(map[string]float64, len(r.ByCurrency)+1)
	for code, rate := range r.ByCurrency {
		values[ConfigKey(code)] = rate
	}
	values[DutyKey] = r.CustomsDuty
	return values
}
