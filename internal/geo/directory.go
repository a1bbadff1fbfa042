// Package geo serves the reference data (currencies, regions and countries)
// that every pricing decision depends on.
package geo

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-storefront/internal/db"
)

// CacheKey is the Redis key holding the serialized snapshot.
const CacheKey = "geo:directory:v1"

const defaultLocalTTL = 30 * time.Second

// Currency is a display currency with its rate against the catalog base.
type Currency struct {
	ID     uuid.UUID       `json:"id"`
	Code   string          `json:"code"`
	Symbol string          `json:"symbol"`
	Rate   decimal.Decimal `json:"rate"`
}

// Region groups countries for shipment eligibility.
type Region struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// Country is a destination with its default currency and optional VAT override.
type Country struct {
	ID          uuid.UUID        `json:"id"`
	Code        string           `json:"code"`
	Name        string           `json:"name"`
	CurrencyID  uuid.UUID        `json:"currency_id"`
	RegionID    *uuid.UUID       `json:"region_id,omitempty"`
	VATRate     *decimal.Decimal `json:"vat_rate,omitempty"`
	VATRequired bool             `json:"vat_required"`
}

// Snapshot is an immutable view of the reference tables.
type Snapshot struct {
	Currencies []Currency `json:"currencies"`
	Regions    []Region   `json:"regions"`
	Countries  []Country  `json:"countries"`

	countryByID    map[uuid.UUID]int
	countryByCode  map[string]int
	currencyByID   map[uuid.UUID]int
	currencyByCode map[string]int
}

func (s *Snapshot) index() {
	s.countryByID = make(map[uuid.UUID]int, len(s.Countries))
	s.countryByCode = make(map[string]int, len(s.Countries))
	for i, c := range s.Countries {
		s.countryByID[c.ID] = i
		s.countryByCode[strings.ToUpper(c.Code)] = i
	}
	s.currencyByID = make(map[uuid.UUID]int, len(s.Currencies))
	s.currencyByCode = make(map[string]int, len(s.Currencies))
	for i, c := range s.Currencies {
		s.currencyByID[c.ID] = i
		s.currencyByCode[strings.ToUpper(c.Code)] = i
	}
}

// CountryByID looks up a country.
func (s *Snapshot) CountryByID(id uuid.UUID) (Country, bool) {
	i, ok := s.countryByID[id]
	if !ok {
		return Country{}, false
	}
	return s.Countries[i], true
}

// CountryByCode looks up a country by ISO code, case-insensitively.
func (s *Snapshot) CountryByCode(code string) (Country, bool) {
	i, ok := s.countryByCode[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return Country{}, false
	}
	return s.Countries[i], true
}

// CurrencyByID looks up a currency.
func (s *Snapshot) CurrencyByID(id uuid.UUID) (Currency, bool) {
	i, ok := s.currencyByID[id]
	if !ok {
		return Currency{}, false
	}
	return s.Currencies[i], true
}

// CurrencyByCode looks up a currency by ISO code, case-insensitively.
func (s *Snapshot) CurrencyByCode(code string) (Currency, bool) {
	i, ok := s.currencyByCode[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return Currency{}, false
	}
	return s.Currencies[i], true
}

// StandardRate implements vat.RateSource using the per-country override.
// Countries without an override fall through to the next source in a chain.
func (s *Snapshot) StandardRate(code string) (decimal.Decimal, bool) {
	c, ok := s.CountryByCode(code)
	if !ok || c.VATRate == nil {
		return decimal.Zero, false
	}
	return *c.VATRate, true
}

// Lister reads the reference tables.
type Lister interface {
	ListCurrencies(ctx context.Context) ([]db.Currency, error)
	ListRegions(ctx context.Context) ([]db.Region, error)
	ListCountries(ctx context.Context) ([]db.Country, error)
}

// Directory loads snapshots from Postgres through a Redis cache and keeps the
// latest one in process for LocalTTL.
type Directory struct {
	Q        Lister
	Cache    *Cache
	LocalTTL time.Duration
	Logger   zerolog.Logger

	mu       sync.Mutex
	memo     *Snapshot
	memoTill time.Time
	now      func() time.Time
}

// NewDirectory constructs a Directory.
func NewDirectory(q Lister, cache *Cache, logger zerolog.Logger) *Directory {
	return &Directory{Q: q, Cache: cache, LocalTTL: defaultLocalTTL, Logger: logger}
}

func (d *Directory) clock() time.Time {
	if d.now != nil {
		return d.now()
	}
	return time.Now()
}

// Snapshot returns the current reference data.
func (d *Directory) Snapshot(ctx context.Context) (*Snapshot, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.memo != nil && d.clock().Before(d.memoTill) {
		return d.memo, nil
	}

	snap := &Snapshot{}
	hit, err := d.Cache.GetJSON(ctx, CacheKey, snap)
	if err != nil {
		d.Logger.Warn().Err(err).Msg("geo cache read failed")
	}
	if !hit {
		snap, err = d.load(ctx)
		if err != nil {
			return nil, err
		}
		if err := d.Cache.SetJSON(ctx, CacheKey, snap); err != nil {
			d.Logger.Warn().Err(err).Msg("geo cache write failed")
		}
	}
	snap.index()
	d.memo = snap
	ttl := d.LocalTTL
	if ttl <= 0 {
		ttl = defaultLocalTTL
	}
	d.memoTill = d.clock().Add(ttl)
	return snap, nil
}

// Invalidate forgets the in-process snapshot and the shared cached copy.
func (d *Directory) Invalidate(ctx context.Context) error {
	d.mu.Lock()
	d.memo = nil
	d.mu.Unlock()
	return d.Cache.Delete(ctx, CacheKey)
}

// Refresh reloads from Postgres and republishes to the cache.
func (d *Directory) Refresh(ctx context.Context) (*Snapshot, error) {
	if err := d.Invalidate(ctx); err != nil {
		return nil, err
	}
	return d.Snapshot(ctx)
}

func (d *Directory) load(ctx context.Context) (*Snapshot, error) {
	currencies, err := d.Q.ListCurrencies(ctx)
	if err != nil {
		return nil, err
	}
	regions, err := d.Q.ListRegions(ctx)
	if err != nil {
		return nil, err
	}
	countries, err := d.Q.ListCountries(ctx)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{
		Currencies: make([]Currency, 0, len(currencies)),
		Regions:    make([]Region, 0, len(regions)),
		Countries:  make([]Country, 0, len(countries)),
	}
	for _, c := range currencies {
		snap.Currencies = append(snap.Currencies, Currency{
			ID:     db.UUIDValue(c.ID),
			Code:   strings.TrimSpace(c.Code),
			Symbol: c.Symbol,
			Rate:   db.Decimal(c.Rate),
		})
	}
	for _, r := range regions {
		snap.Regions = append(snap.Regions, Region{ID: db.UUIDValue(r.ID), Name: r.Name})
	}
	for _, c := range countries {
		snap.Countries = append(snap.Countries, Country{
			ID:          db.UUIDValue(c.ID),
			Code:        strings.TrimSpace(c.Code),
			Name:        c.Name,
			CurrencyID:  db.UUIDValue(c.CurrencyID),
			RegionID:    db.UUIDPtr(c.RegionID),
			VATRate:     db.DecimalPtr(c.VatRate),
			VATRequired: c.VatRequired,
		})
	}
	return snap, nil
}
