package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func baseEnv() map[string]string {
	return map[string]string{
		"DATABASE_URL":     "postgres://localhost/storefront",
		"REDIS_URL":        "redis://localhost:6379/0",
		"JWT_SECRET":       "secret",
		"STORE_COUNTRY":    "",
		"STORE_CURRENCY":   "",
		"VAT_HOME_COUNTRY": "",
		"GEO_CACHE_TTL":    "",
	}
}

func TestLoadDefaultsStoreLocale(t *testing.T) {
	cfg, err := LoadForTests(baseEnv())
	require.NoError(t, err)
	require.Equal(t, "NL", cfg.Store.Country)
	require.Equal(t, "EUR", cfg.Store.Currency)
	require.Equal(t, "NL", cfg.Store.VATHomeCountry)
	require.Equal(t, 10*time.Minute, cfg.GeoCacheTTL)
	require.Equal(t, ":8080", cfg.HTTPAddr())
}

func TestLoadHomeCountryFollowsStoreCountry(t *testing.T) {
	env := baseEnv()
	env["STORE_COUNTRY"] = "gb"
	env["STORE_CURRENCY"] = "gbp"
	cfg, err := LoadForTests(env)
	require.NoError(t, err)
	require.Equal(t, "GB", cfg.Store.VATHomeCountry)
	require.Equal(t, "GBP", cfg.Store.Currency)
}

func TestLoadRejectsMissingSecretsAndBadLocale(t *testing.T) {
	env := baseEnv()
	env["JWT_SECRET"] = ""
	_, err := LoadForTests(env)
	require.Error(t, err)

	env = baseEnv()
	env["STORE_COUNTRY"] = "NLD"
	_, err = LoadForTests(env)
	require.Error(t, err)
}
