// Package settings holds the storefront-wide admin settings: the banner shown
// to shoppers and the reference-data cache stamp.
package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-storefront/internal/common"
	"github.com/noah-isme/backend-storefront/internal/db"
	"github.com/noah-isme/backend-storefront/internal/geo"
)

// RefreshLockKey serializes reference-data refreshes across instances.
const RefreshLockKey = "lock:geo:refresh"

// Store is the persistence the service needs.
type Store interface {
	GetAppSettings(ctx context.Context) (db.AppSetting, error)
	UpdateAppSettings(ctx context.Context, arg db.UpdateAppSettingsParams) (db.AppSetting, error)
}

// Refresher reloads the reference-data cache.
type Refresher interface {
	Refresh(ctx context.Context) (*geo.Snapshot, error)
}

// Locker runs fn under a distributed lock.
type Locker interface {
	WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error
}

// Patch changes the banner and, when cached_at is present, refreshes the
// reference data and stamps the time.
type Patch struct {
	Banner   common.Optional[string]          `json:"banner"`
	CachedAt common.Optional[json.RawMessage] `json:"cached_at"`
}

// View is the JSON shape of the settings.
type View struct {
	Banner    *string    `json:"banner"`
	CachedAt  *time.Time `json:"cached_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func toView(s db.AppSetting) View {
	v := View{Banner: db.TextPtr(s.Banner), UpdatedAt: s.UpdatedAt.Time}
	if s.CachedAt.Valid {
		t := s.CachedAt.Time
		v.CachedAt = &t
	}
	return v
}

// Service manages the settings row.
type Service struct {
	Store   Store
	Geo     Refresher
	Lock    Locker
	LockTTL time.Duration
	now     func() time.Time
}

// NewService constructs a Service.
func NewService(store Store, refresher Refresher, locker Locker, lockTTL time.Duration) *Service {
	return &Service{Store: store, Geo: refresher, Lock: locker, LockTTL: lockTTL, now: time.Now}
}

// Get returns the current settings.
func (s *Service) Get(ctx context.Context) (View, error) {
	if s == nil || s.Store == nil {
		return View{}, errors.New("settings service not configured")
	}
	row, err := s.Store.GetAppSettings(ctx)
	if err != nil {
		return View{}, fmt.Errorf("get settings: %w", err)
	}
	return toView(row), nil
}

// Update applies p.
func (s *Service) Update(ctx context.Context, p Patch) (View, error) {
	if s == nil || s.Store == nil {
		return View{}, errors.New("settings service not configured")
	}
	arg := db.UpdateAppSettingsParams{SetBanner: p.Banner.Set}
	if p.Banner.Value != nil {
		banner := strings.TrimSpace(*p.Banner.Value)
		if len(banner) > 500 {
			return View{}, common.Validation("banner is too long", nil).WithDetails(map[string]string{"banner": "max"})
		}
		arg.Banner = db.Text(banner)
	}
	if !p.CachedAt.Set {
		row, err := s.Store.UpdateAppSettings(ctx, arg)
		if err != nil {
			return View{}, fmt.Errorf("update settings: %w", err)
		}
		return toView(row), nil
	}

	var row db.AppSetting
	refresh := func(ctx context.Context) error {
		if s.Geo != nil {
			snap, err := s.Geo.Refresh(ctx)
			if err != nil {
				return fmt.Errorf("refresh reference data: %w", err)
			}
			zerolog.Ctx(ctx).Info().
				Int("countries", len(snap.Countries)).
				Int("currencies", len(snap.Currencies)).
				Msg("reference data refreshed")
		}
		now := time.Now
		if s.now != nil {
			now = s.now
		}
		arg.CachedAt = db.Timestamptz(now().UTC())
		var err error
		row, err = s.Store.UpdateAppSettings(ctx, arg)
		if err != nil {
			return fmt.Errorf("update settings: %w", err)
		}
		return nil
	}
	var err error
	if s.Lock != nil {
		err = s.Lock.WithLock(ctx, RefreshLockKey, s.LockTTL, refresh)
	} else {
		err = refresh(ctx)
	}
	if err != nil {
		return View{}, err
	}
	return toView(row), nil
}
