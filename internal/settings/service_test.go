package settings_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-storefront/internal/common"
	"github.com/noah-isme/backend-storefront/internal/db"
	"github.com/noah-isme/backend-storefront/internal/db/dbtest"
	"github.com/noah-isme/backend-storefront/internal/geo"
	"github.com/noah-isme/backend-storefront/internal/lock"
	"github.com/noah-isme/backend-storefront/internal/settings"
)

type env struct {
	store *dbtest.Memory
	fx    dbtest.Fixture
	mr    *miniredis.Miniredis
	dir   *geo.Directory
	svc   *settings.Service
}

func setup(t *testing.T) env {
	t.Helper()
	store := dbtest.New()
	fx := dbtest.Seed(t, store)
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	dir := geo.NewDirectory(store, geo.NewCache(client, time.Hour), zerolog.Nop())
	locker := lock.Locker{R: client, RetryBackoff: 5 * time.Millisecond}
	return env{
		store: store,
		fx:    fx,
		mr:    mr,
		dir:   dir,
		svc:   settings.NewService(store, dir, locker, time.Second),
	}
}

func TestBannerSetAndClear(t *testing.T) {
	e := setup(t)
	ctx := context.Background()

	v, err := e.svc.Update(ctx, settings.Patch{Banner: common.Some("  Free shipping this week ")})
	require.NoError(t, err)
	require.Equal(t, "Free shipping this week", *v.Banner)
	require.Nil(t, v.CachedAt)

	v, err = e.svc.Update(ctx, settings.Patch{})
	require.NoError(t, err)
	require.Equal(t, "Free shipping this week", *v.Banner, "absent banner is kept")

	v, err = e.svc.Update(ctx, settings.Patch{Banner: common.Null[string]()})
	require.NoError(t, err)
	require.Nil(t, v.Banner)

	_, err = e.svc.Update(ctx, settings.Patch{Banner: common.Some(strings.Repeat("x", 501))})
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, http.StatusBadRequest, appErr.HTTPStatus)
}

func TestCachedAtRefreshesReferenceData(t *testing.T) {
	e := setup(t)
	ctx := context.Background()

	before, err := e.dir.Snapshot(ctx)
	require.NoError(t, err)
	_, ok := before.CountryByCode("BE")
	require.False(t, ok)

	_, err = e.store.CreateCountry(ctx, db.CreateCountryParams{Code: "BE", Name: "Belgium", CurrencyID: e.fx.EUR.ID, RegionID: e.fx.Europe.ID})
	require.NoError(t, err)
	stale, err := e.dir.Snapshot(ctx)
	require.NoError(t, err)
	_, ok = stale.CountryByCode("BE")
	require.False(t, ok, "memoized snapshot is served until refreshed")

	v, err := e.svc.Update(ctx, settings.Patch{CachedAt: common.Some(json.RawMessage(`true`))})
	require.NoError(t, err)
	require.NotNil(t, v.CachedAt)

	fresh, err := e.dir.Snapshot(ctx)
	require.NoError(t, err)
	_, ok = fresh.CountryByCode("BE")
	require.True(t, ok)
	require.False(t, e.mr.Exists(settings.RefreshLockKey), "lock is released")
	require.True(t, e.mr.Exists(geo.CacheKey))
}

type failingRefresher struct{}

func (failingRefresher) Refresh(context.Context) (*geo.Snapshot, error) {
	return nil, errors.New("database unavailable")
}

func TestFailedRefreshLeavesStampUntouched(t *testing.T) {
	store := dbtest.New()
	svc := settings.NewService(store, failingRefresher{}, nil, 0)

	_, err := svc.Update(context.Background(), settings.Patch{CachedAt: common.Some(json.RawMessage(`"now"`))})
	require.Error(t, err)

	v, err := svc.Get(context.Background())
	require.NoError(t, err)
	require.Nil(t, v.CachedAt)
}

func TestHandlers(t *testing.T) {
	e := setup(t)
	h := &settings.Handler{Svc: e.svc}

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/admin/settings", strings.NewReader(`{"banner":"Sale","cached_at":true}`))
	rec := httptest.NewRecorder()
	h.Patch(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.Get(rec, httptest.NewRequest(http.MethodGet, "/api/v1/admin/settings", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data settings.View `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "Sale", *body.Data.Banner)
	require.NotNil(t, body.Data.CachedAt)
}

func TestRefreshTaskStampsCachedAt(t *testing.T) {
	e := setup(t)
	h := settings.RefreshTaskHandler{Svc: e.svc}
	require.NoError(t, h.ProcessTask(context.Background(), asynq.NewTask(settings.TaskRefreshReferenceData, nil)))

	v, err := e.svc.Get(context.Background())
	require.NoError(t, err)
	require.NotNil(t, v.CachedAt)
	require.False(t, e.mr.Exists(settings.RefreshLockKey))
}
