// Package locale carries the caller's country and currency through a request.
// They decide VAT and currency for a cart that has no address yet.
package locale

import (
	"context"
	"net/http"
	"strings"
)

// Header names read by Resolver.
const (
	HeaderCountry  = "X-Locale-Country"
	HeaderCurrency = "X-Locale-Currency"
)

type contextKey struct{}

// Context is the caller's locale. Codes are upper-case ISO identifiers; an
// empty Currency means "the country's own currency".
type Context struct {
	Country  string `json:"country"`
	Currency string `json:"currency,omitempty"`
}

// With stores lc in ctx.
func With(ctx context.Context, lc Context) context.Context {
	return context.WithValue(ctx, contextKey{}, lc)
}

// From returns the locale stored in ctx.
func From(ctx context.Context) (Context, bool) {
	lc, ok := ctx.Value(contextKey{}).(Context)
	return lc, ok
}

// Resolver derives a locale from request headers, falling back to the store
// defaults.
type Resolver struct {
	DefaultCountry  string
	DefaultCurrency string
}

// NewResolver returns a resolver with normalized defaults.
func NewResolver(country, currency string) *Resolver {
	return &Resolver{DefaultCountry: normalize(country), DefaultCurrency: normalize(currency)}
}

// Middleware injects the resolved locale into the request context.
func (r *Resolver) Middleware(next http.Handler) http.Handler {
	if r == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		next.ServeHTTP(w, req.WithContext(With(req.Context(), r.Resolve(req))))
	})
}

// Resolve reads the explicit headers first, then the region subtag of the
// first Accept-Language entry. A header-supplied country without a currency
// leaves Currency empty so the country's currency applies.
func (r *Resolver) Resolve(req *http.Request) Context {
	lc := Context{Country: r.DefaultCountry, Currency: r.DefaultCurrency}
	if req == nil {
		return lc
	}
	country := normalize(req.Header.Get(HeaderCountry))
	if country == "" {
		country = regionFromAcceptLanguage(req.Header.Get("Accept-Language"))
	}
	if country != "" && country != lc.Country {
		lc.Country = country
		lc.Currency = ""
	}
	if currency := normalize(req.Header.Get(HeaderCurrency)); currency != "" {
		lc.Currency = currency
	}
	return lc
}

func normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// regionFromAcceptLanguage turns "nl-NL,nl;q=0.9" into "NL".
func regionFromAcceptLanguage(header string) string {
	first, _, _ := strings.Cut(header, ",")
	first, _, _ = strings.Cut(first, ";")
	parts := strings.Split(strings.TrimSpace(first), "-")
	if len(parts) < 2 {
		return ""
	}
	region := normalize(parts[len(parts)-1])
	if len(region) != 2 {
		return ""
	}
	return region
}
