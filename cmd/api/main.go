package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	limiter "github.com/ulule/limiter/v3"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/noah-isme/backend-storefront/internal/address"
	"github.com/noah-isme/backend-storefront/internal/audit"
	"github.com/noah-isme/backend-storefront/internal/auth"
	"github.com/noah-isme/backend-storefront/internal/cart"
	"github.com/noah-isme/backend-storefront/internal/common"
	"github.com/noah-isme/backend-storefront/internal/config"
	"github.com/noah-isme/backend-storefront/internal/db"
	"github.com/noah-isme/backend-storefront/internal/events"
	"github.com/noah-isme/backend-storefront/internal/geo"
	"github.com/noah-isme/backend-storefront/internal/health"
	"github.com/noah-isme/backend-storefront/internal/locale"
	"github.com/noah-isme/backend-storefront/internal/lock"
	"github.com/noah-isme/backend-storefront/internal/notify"
	"github.com/noah-isme/backend-storefront/internal/obs"
	"github.com/noah-isme/backend-storefront/internal/order"
	"github.com/noah-isme/backend-storefront/internal/ratelimit"
	"github.com/noah-isme/backend-storefront/internal/security"
	"github.com/noah-isme/backend-storefront/internal/settings"
)

const metricsNamespace = "storefront"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger := obs.NewLogger(cfg.Obs.LogFormat, cfg.Obs.LogLevel).With().Str("env", cfg.AppEnv).Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Obs.MetricsEnabled {
		obs.MustRegisterDomainMetrics(metricsNamespace, nil)
	}
	tracingEnabled := cfg.Obs.TracingEnabled
	if tracingEnabled {
		shutdown, err := obs.InitTracer(ctx, obs.TracingConfig{
			ServiceName:   cfg.Obs.ServiceName,
			Endpoint:      cfg.Obs.OTLPEndpoint,
			Exporter:      cfg.Obs.TracingExporter,
			SamplingRatio: cfg.Obs.SamplingRatio,
			Environment:   cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
			tracingEnabled = false
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	pool := mustInitDatabase(ctx, cfg, logger)
	defer pool.Close()
	redisClient := mustInitRedis(ctx, cfg, logger)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()

	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse asynq redis url")
	}
	taskClient := asynq.NewClient(redisOpt)
	defer func() {
		if err := taskClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close asynq client")
		}
	}()

	store := db.NewPoolStore(pool)
	directory := geo.NewDirectory(store, geo.NewCache(redisClient, cfg.GeoCacheTTL), logger)
	engine := cart.NewEngine(directory, cfg.Store.VATHomeCountry)
	bus := &events.Bus{
		Notifiers: []events.Notifier{notify.EmailNotifier{Queue: taskClient, Enabled: cfg.Notify.EmailEnabled}},
		Logger:    logger,
	}
	fallback := locale.Context{Country: cfg.Store.Country, Currency: cfg.Store.Currency}
	engine.Store = fallback

	tokens, err := auth.NewTokens(cfg.Auth)
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise tokens")
	}
	authMW := auth.Middleware{Tokens: tokens}

	limitStore, err := ratelimit.NewStore(redisClient, "storefront:ratelimit")
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise rate limit store")
	}
	cartPatchLimit := mustLimit(limitStore, "cart_patch", cfg.Limits.CartPatchRate, logger)
	orderCreateLimit := mustLimit(limitStore, "order_create", cfg.Limits.OrderCreateRate, logger)

	idem := common.Idem{R: redisClient, TTL: cfg.IdempotencyTTL}

	cartHandler := cart.NewHandler(cart.NewService(store, engine), fallback)
	addressSvc := address.NewService(store, engine, bus)
	billingHandler := address.NewHandler(addressSvc, db.AddressKindBilling, fallback)
	shippingHandler := address.NewHandler(addressSvc, db.AddressKindShipping, fallback)
	orderSvc := order.NewService(store, directory, bus)
	orderHandler := &order.Handler{Svc: orderSvc}
	orderAdmin := &order.AdminHandler{Svc: orderSvc}
	settingsHandler := &settings.Handler{Svc: settings.NewService(
		store,
		directory,
		lock.Locker{R: redisClient, RetryBackoff: cfg.Lock.RetryBackoff, MaxWait: cfg.Lock.TTL},
		cfg.Lock.TTL,
	)}
	geoHandler := geo.NewHandler(directory)
	auditLog := audit.Recorder{Logger: logger}
	healthHandler := health.Handler{
		Probes: map[string]health.Probe{
			"postgres": health.PostgresProbe(pool),
			"redis":    health.RedisProbe(redisClient),
		},
		Timeout: 500 * time.Millisecond,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if cfg.Obs.MetricsEnabled {
		httpMetrics := obs.NewHTTPMetrics(metricsNamespace, obs.ParseBucketsCSV(cfg.Obs.MetricsBuckets), nil)
		r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	}
	if tracingEnabled {
		r.Use(obs.SpanRoute)
	}
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(security.Headers{HSTSMaxAge: 31536000}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins(cfg),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Accept-Language", "Authorization", "Content-Type", "Idempotency-Key", locale.HeaderCountry, locale.HeaderCurrency},
		ExposedHeaders: []string{"X-Total-Count", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		MaxAge:         300,
	}))

	if cfg.Obs.MetricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Use(security.BodyLimit{Max: 1 << 20}.Middleware)
		v.Use(locale.NewResolver(cfg.Store.Country, cfg.Store.Currency).Middleware)
		v.Use(authMW.Authenticate)

		v.Get("/countries", geoHandler.Countries)
		v.Get("/regions", geoHandler.Regions)
		v.Get("/currencies", geoHandler.Currencies)

		v.Group(func(p chi.Router) {
			p.Use(authMW.RequireAuth)

			p.Route("/carts", func(c chi.Router) {
				c.Get("/", cartHandler.List)
				c.With(idem.Middleware).Post("/", cartHandler.Create)
				c.Get("/{id}", cartHandler.Get)
				c.With(cartPatchLimit.Middleware).Patch("/{id}", cartHandler.Patch)
				c.Delete("/{id}", cartHandler.Delete)
				c.Post("/{id}/items", cartHandler.AddItem)
				c.Patch("/{id}/items/{itemID}", cartHandler.UpdateItem)
				c.Delete("/{id}/items/{itemID}", cartHandler.RemoveItem)
			})
			p.Route("/billings", billingHandler.Routes)
			p.Route("/shippings", shippingHandler.Routes)
			p.Route("/orders", func(o chi.Router) {
				o.Get("/", orderHandler.List)
				o.With(orderCreateLimit.Middleware, idem.Middleware).Post("/", orderHandler.Create)
				o.Get("/{id}", orderHandler.Get)
			})
		})

		v.Route("/admin", func(a chi.Router) {
			a.Use(authMW.RequireAuth)
			a.Use(auth.RequireRole(common.RoleAdmin))
			a.With(auditLog.Middleware("order.status", "id")).Patch("/orders/{id}/status", orderAdmin.PatchStatus)
			a.Get("/settings", settingsHandler.Get)
			a.With(auditLog.Middleware("settings.update", "")).Patch("/settings", settingsHandler.Patch)
		})
	})

	var handler http.Handler = r
	if tracingEnabled {
		handler = otelhttp.NewHandler(r, "http.server")
	}
	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("server starting")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server exited unexpectedly")
		}
		return
	case <-ctx.Done():
	}

	// Fail readiness first so the balancer drains us before connections close.
	health.SetReady(false)
	logger.Info().Msg("shutdown requested")
	time.Sleep(2 * time.Second)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown")
	}
	logger.Info().Msg("server stopped")
}

func mustInitDatabase(ctx context.Context, cfg *config.Config, logger zerolog.Logger) *pgxpool.Pool {
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse database config")
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = cfg.Obs.ServiceName

	connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	pool, err := pgxpool.NewWithConfig(connectCtx, poolConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	if err := pool.Ping(connectCtx); err != nil {
		logger.Fatal().Err(err).Msg("ping database")
	}
	return pool
}

func mustInitRedis(ctx context.Context, cfg *config.Config, logger zerolog.Logger) *redis.Client {
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	client := redis.NewClient(redisOpts)
	if err := redisotel.InstrumentTracing(client); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if cfg.Obs.MetricsEnabled {
		if err := redisotel.InstrumentMetrics(client); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}
	return client
}

func mustLimit(store limiter.Store, scope, rate string, logger zerolog.Logger) ratelimit.Handler {
	l, err := ratelimit.New(store, rate)
	if err != nil {
		logger.Fatal().Err(err).Str("scope", scope).Str("rate", rate).Msg("parse rate limit")
	}
	return ratelimit.Handler{
		Limiter: l,
		Scope:   scope,
		OnError: func(err error) {
			logger.Warn().Err(err).Str("scope", scope).Msg("rate limit store unavailable")
		},
	}
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}
