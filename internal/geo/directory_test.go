package geo_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-storefront/internal/db"
	"github.com/noah-isme/backend-storefront/internal/db/dbtest"
	"github.com/noah-isme/backend-storefront/internal/geo"
	"github.com/noah-isme/backend-storefront/internal/vat"
)

type countingLister struct {
	geo.Lister
	calls int
}

func (c *countingLister) ListCountries(ctx context.Context) ([]db.Country, error) {
	c.calls++
	return c.Lister.ListCountries(ctx)
}

func newDirectory(t *testing.T) (*geo.Directory, *countingLister, *miniredis.Miniredis, dbtest.Fixture) {
	t.Helper()
	store := dbtest.New()
	fx := dbtest.Seed(t, store)
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	lister := &countingLister{Lister: store}
	dir := geo.NewDirectory(lister, geo.NewCache(client, 0), zerolog.Nop())
	return dir, lister, mr, fx
}

func TestSnapshotLookups(t *testing.T) {
	dir, _, _, fx := newDirectory(t)

	snap, err := dir.Snapshot(context.Background())
	require.NoError(t, err)

	nl, ok := snap.CountryByCode("nl")
	require.True(t, ok)
	require.Equal(t, db.UUIDValue(fx.NL.ID), nl.ID)
	require.Equal(t, db.UUIDValue(fx.EUR.ID), nl.CurrencyID)

	byID, ok := snap.CountryByID(db.UUIDValue(fx.GB.ID))
	require.True(t, ok)
	require.Equal(t, "GB", byID.Code)

	gbp, ok := snap.CurrencyByCode("GBP")
	require.True(t, ok)
	require.Equal(t, "0.85", gbp.Rate.String())
	_, ok = snap.CurrencyByID(db.UUIDValue(fx.EUR.ID))
	require.True(t, ok)

	_, ok = snap.CountryByCode("XX")
	require.False(t, ok)
}

func TestSnapshotIsServedFromRedisAcrossInstances(t *testing.T) {
	dir, lister, mr, _ := newDirectory(t)
	ctx := context.Background()

	_, err := dir.Snapshot(ctx)
	require.NoError(t, err)
	require.True(t, mr.Exists(geo.CacheKey))
	require.Equal(t, 1, lister.calls)

	other := geo.NewDirectory(lister, geo.NewCache(redis.NewClient(&redis.Options{Addr: mr.Addr()}), 0), zerolog.Nop())
	snap, err := other.Snapshot(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, lister.calls)
	_, ok := snap.CountryByCode("DE")
	require.True(t, ok)

	_, err = dir.Refresh(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, lister.calls)
}

func TestSnapshotWithoutRedisFallsBackToDatabase(t *testing.T) {
	store := dbtest.New()
	dbtest.Seed(t, store)
	dir := geo.NewDirectory(store, nil, zerolog.Nop())

	snap, err := dir.Snapshot(context.Background())
	require.NoError(t, err)
	require.Len(t, snap.Countries, 3)
}

func TestSnapshotOverridesStandardVATRate(t *testing.T) {
	store := dbtest.New()
	fx := dbtest.Seed(t, store)
	reduced := decimal.RequireFromString("0.09")
	_, err := store.CreateCountry(context.Background(), db.CreateCountryParams{
		Code: "IE", Name: "Ireland", CurrencyID: fx.EUR.ID, VatRate: db.Numeric(reduced),
	})
	require.NoError(t, err)

	snap, err := geo.NewDirectory(store, nil, zerolog.Nop()).Snapshot(context.Background())
	require.NoError(t, err)

	resolver := vat.Resolver{Home: "NL", Rates: vat.Chain{snap, vat.StandardRates}}
	ie, err := resolver.Resolve("IE", false)
	require.NoError(t, err)
	require.True(t, ie.Rate.Equal(reduced))

	nl, err := resolver.Resolve("NL", false)
	require.NoError(t, err)
	require.Equal(t, "0.21", nl.Rate.String())
}

func TestCountriesHandler(t *testing.T) {
	dir, _, _, _ := newDirectory(t)
	h := geo.NewHandler(dir)

	rec := httptest.NewRecorder()
	h.Countries(rec, httptest.NewRequest(http.MethodGet, "/api/v1/countries", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data []geo.Country `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data, 3)
	require.Equal(t, "DE", body.Data[0].Code)
}
