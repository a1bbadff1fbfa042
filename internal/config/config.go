package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	RedisURL           string
	CORSAllowedOrigins []string

	Auth   AuthConfig
	Store  StoreConfig
	Limits LimitsConfig
	Lock   LockConfig
	Notify NotifyConfig
	Obs    ObsConfig

	GeoCacheTTL       time.Duration
	IdempotencyTTL    time.Duration
	WorkerConcurrency int
}

// AuthConfig configures bearer token verification.
type AuthConfig struct {
	JWTSecret      string
	Issuer         string
	AccessTokenTTL time.Duration
}

// StoreConfig describes the seller: the locale used when a cart has no
// address, and the home jurisdiction for reverse-charge decisions.
type StoreConfig struct {
	Country        string
	Currency       string
	VATHomeCountry string
}

// LimitsConfig holds ulule/limiter rate formats such as "30-M".
type LimitsConfig struct {
	CartPatchRate   string
	OrderCreateRate string
}

// LockConfig tunes the redis lock used around cache refreshes.
type LockConfig struct {
	TTL          time.Duration
	RetryBackoff time.Duration
}

// NotifyConfig controls order notification emails.
type NotifyConfig struct {
	EmailEnabled bool
	EmailFrom    string
}

// ObsConfig controls logging, metrics and tracing.
type ObsConfig struct {
	LogFormat       string
	LogLevel        string
	MetricsEnabled  bool
	MetricsBuckets  string
	TracingEnabled  bool
	TracingExporter string
	OTLPEndpoint    string
	SamplingRatio   float64
	ServiceName     string
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	country := strings.ToUpper(valueOrDefault(k.String("STORE_COUNTRY"), "NL"))
	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		DatabaseURL:        k.String("DATABASE_URL"),
		RedisURL:           k.String("REDIS_URL"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		Auth: AuthConfig{
			JWTSecret:      k.String("JWT_SECRET"),
			Issuer:         valueOrDefault(k.String("JWT_ISSUER"), "storefront"),
			AccessTokenTTL: parseDuration(k.String("ACCESS_TOKEN_TTL"), "15m"),
		},
		Store: StoreConfig{
			Country:        country,
			Currency:       strings.ToUpper(valueOrDefault(k.String("STORE_CURRENCY"), "EUR")),
			VATHomeCountry: strings.ToUpper(valueOrDefault(k.String("VAT_HOME_COUNTRY"), country)),
		},
		Limits: LimitsConfig{
			CartPatchRate:   valueOrDefault(k.String("CART_PATCH_RATE"), "30-M"),
			OrderCreateRate: valueOrDefault(k.String("ORDER_CREATE_RATE"), "10-M"),
		},
		Lock: LockConfig{
			TTL:          parseDuration(k.String("LOCK_TTL"), "30s"),
			RetryBackoff: parseDuration(k.String("LOCK_RETRY_BACKOFF"), "50ms"),
		},
		Notify: NotifyConfig{
			EmailEnabled: parseBool(k.String("NOTIFY_EMAIL_ENABLED"), true),
			EmailFrom:    valueOrDefault(k.String("NOTIFY_EMAIL_FROM"), "orders@storefront.local"),
		},
		Obs: ObsConfig{
			LogFormat:       valueOrDefault(k.String("OBS_LOG_FORMAT"), "json"),
			LogLevel:        valueOrDefault(k.String("OBS_LOG_LEVEL"), "info"),
			MetricsEnabled:  parseBool(k.String("OBS_METRICS_ENABLED"), true),
			MetricsBuckets:  k.String("OBS_METRICS_BUCKETS_MS"),
			TracingEnabled:  parseBool(k.String("OBS_TRACING_ENABLED"), false),
			TracingExporter: valueOrDefault(k.String("OBS_TRACING_EXPORTER"), "otlp"),
			OTLPEndpoint:    k.String("OTEL_EXPORTER_OTLP_ENDPOINT"),
			SamplingRatio:   parseFloat(k.String("OBS_TRACING_SAMPLE_RATIO"), 1),
			ServiceName:     valueOrDefault(k.String("OTEL_SERVICE_NAME"), "storefront-api"),
		},
		GeoCacheTTL:       parseDuration(k.String("GEO_CACHE_TTL"), "10m"),
		IdempotencyTTL:    parseDuration(k.String("IDEMPOTENCY_TTL"), "24h"),
		WorkerConcurrency: parseInt(k.String("WORKER_CONCURRENCY"), 10),
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.Auth.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	if len(cfg.Store.Country) != 2 || len(cfg.Store.VATHomeCountry) != 2 {
		return nil, errors.New("STORE_COUNTRY and VAT_HOME_COUNTRY must be ISO 3166-1 alpha-2 codes")
	}
	if len(cfg.Store.Currency) != 3 {
		return nil, errors.New("STORE_CURRENCY must be an ISO 4217 code")
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseBool(value string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func parseInt(value string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func parseFloat(value string, fallback float64) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return f
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
