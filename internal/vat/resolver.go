// Package vat resolves the VAT rate and reverse-charge treatment for a
// destination country.
package vat

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrUnsupportedCountry is returned when no rate is configured for a country.
var ErrUnsupportedCountry = errors.New("vat: country has no rate configured")

// RateSource looks up the standard VAT rate for an ISO 3166-1 alpha-2 code.
type RateSource interface {
	StandardRate(countryCode string) (decimal.Decimal, bool)
}

// StaticRates is an in-memory rate table.
type StaticRates map[string]decimal.Decimal

// StandardRate implements RateSource.
func (s StaticRates) StandardRate(countryCode string) (decimal.Decimal, bool) {
	rate, ok := s[countryCode]
	return rate, ok
}

// Chain consults sources in order and returns the first hit.
type Chain []RateSource

// StandardRate implements RateSource.
func (c Chain) StandardRate(countryCode string) (decimal.Decimal, bool) {
	for _, src := range c {
		if src == nil {
			continue
		}
		if rate, ok := src.StandardRate(countryCode); ok {
			return rate, true
		}
	}
	return decimal.Zero, false
}

// Result is the outcome of a resolution.
type Result struct {
	Rate          decimal.Decimal
	ReverseCharge bool
}

// Resolver applies the seller's home jurisdiction to a rate table.
type Resolver struct {
	Home  string
	Rates RateSource
}

// Resolve returns the nominal rate for the destination. Reverse charge applies
// to a business buyer outside the home country.
func (r Resolver) Resolve(countryCode string, isBusiness bool) (Result, error) {
	code := strings.ToUpper(strings.TrimSpace(countryCode))
	if code == "" || r.Rates == nil {
		return Result{}, fmt.Errorf("%w: %q", ErrUnsupportedCountry, countryCode)
	}
	rate, ok := r.Rates.StandardRate(code)
	if !ok || rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		return Result{}, fmt.Errorf("%w: %q", ErrUnsupportedCountry, code)
	}
	home := strings.ToUpper(strings.TrimSpace(r.Home))
	return Result{
		Rate:          rate,
		ReverseCharge: isBusiness && home != "" && code != home,
	}, nil
}
