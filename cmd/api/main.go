package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/ecofor-market/internal/audit"
	"github.com/noah-isme/ecofor-market/internal/auth"
	"github.com/noah-isme/ecofor-market/internal/cart"
	"github.com/noah-isme/ecofor-market/internal/catalog"
	"github.com/noah-isme/ecofor-market/internal/common"
	"github.com/noah-isme/ecofor-market/internal/config"
	"github.com/noah-isme/ecofor-market/internal/db"
	"github.com/noah-isme/ecofor-market/internal/events"
	"github.com/noah-isme/ecofor-market/internal/health"
	"github.com/noah-isme/ecofor-market/internal/invoice"
	"github.com/noah-isme/ecofor-market/internal/lock"
	"github.com/noah-isme/ecofor-market/internal/messaging"
	"github.com/noah-isme/ecofor-market/internal/obs"
	"github.com/noah-isme/ecofor-market/internal/order"
	"github.com/noah-isme/ecofor-market/internal/ratelimit"
	"github.com/noah-isme/ecofor-market/internal/resilience"
	"github.com/noah-isme/ecofor-market/internal/security"
	"github.com/noah-isme/ecofor-market/internal/session"
	"github.com/noah-isme/ecofor-market/internal/tasks"
)

const serviceName = "ecofor-api"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger := obs.NewLogger(cfg.LogFormat, cfg.LogLevel).With().Str("component", "api").Str("env", cfg.AppEnv).Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.TracingEnabled {
		shutdown, err := obs.InitTracer(ctx, obs.TracingConfig{
			ServiceName:   serviceName,
			Endpoint:      cfg.TracingEndpoint,
			SamplingRatio: cfg.TracingRatio,
			Environment:   cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
			cfg.TracingEnabled = false
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}
	obs.MustRegisterDomainMetrics(cfg.MetricsNamespace, nil)

	pool := mustInitDatabase(ctx, cfg, logger)
	defer pool.Close()
	store := db.NewStore(pool)

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
			logger.Error().Err(err).Msg("close task client")
		}
	}()

	bus := &events.Bus{
		Store: store,
		Scheduler: tasks.Scheduler{
			Client:    taskClient,
			Queue:     cfg.TaskQueue,
			MaxRetry:  cfg.TaskMaxRetry,
			Retention: cfg.TaskRetention,
		},
	}
	if len(cfg.KafkaBrokers) > 0 {
		writer := events.NewKafkaWriter(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer func() {
			if err := writer.Close(); err != nil {
				logger.Error().Err(err).Msg("close kafka writer")
			}
		}()
		bus.Notifiers = append(bus.Notifiers, events.KafkaNotifier{
			Writer: writer,
			Caller: outboundCaller(cfg, "kafka", logger),
		})
	}

	recorder := audit.Recorder{Enabled: cfg.AuditEnabled}

	catalogSvc, err := catalog.NewService(catalog.ServiceConfig{
		Store:   store,
		Cache:   catalog.NewCache(redisClient, cfg.CatalogCacheTTL),
		Audit:   recorder,
		PerPage: cfg.CatalogPerPage,
		Logger:  &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise catalog service")
	}

	authSvc, err := auth.NewService(auth.Config{
		Queries:        store,
		Secret:         cfg.JWTSecret,
		AccessTokenTTL: cfg.AccessTokenTTL,
		Issuer:         cfg.JWTIssuer,
		Audience:       cfg.JWTAudience,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise auth service")
	}

	carts := &cart.Service{Store: cart.RedisStore{R: redisClient, TTL: cfg.CartTTL}, Products: store}
	orders := &order.Service{
		Store:   store,
		Events:  bus,
		Audit:   recorder,
		Locker:  lock.Locker{R: redisClient, RetryBackoff: cfg.LockRetryBackoff},
		LockTTL: cfg.LockTTL,
		Logger:  &logger,
	}
	invoices := &invoice.Service{Store: store, Events: bus, Audit: recorder, Logger: &logger}
	inbox := &messaging.Service{Store: store, Events: bus, Logger: &logger}

	authLimiter, err := ratelimit.NewFixed(redisClient, "ecofor:rl:auth")
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise auth rate limiter")
	}
	limitErr := func(err error) { logger.Warn().Err(err).Msg("rate limiter unavailable") }

	var csrf *security.CSRF
	if cfg.CSRFEnabled {
		csrf = &security.CSRF{Secure: cfg.CookieSecure, SameSite: cfg.CookieSameSite}
	}

	srv := &server{
		Logger:      logger,
		ServiceName: serviceName,
		Tracing:     cfg.TracingEnabled,
		Metrics:     obs.NewHTTPMetrics(cfg.MetricsNamespace, obs.ParseBucketsCSV(cfg.MetricsBuckets), nil),
		Gatherer:    prometheus.DefaultGatherer,
		Session: session.Middleware{
			CookieName: cfg.SessionCookieName,
			Domain:     cfg.CookieDomain,
			Secure:     cfg.CookieSecure,
			SameSite:   cfg.CookieSameSite,
			TTL:        cfg.SessionTTL,
		},
		Auth:      auth.Middleware{Service: authSvc, AccessCookie: cfg.AccessCookieName},
		Idem:      common.Idem{R: redisClient, TTL: cfg.IdempotencyTTL},
		CSRF:      csrf,
		CORS:      security.CORS(cfg.CORSAllowedOrigins),
		Headers:   security.Headers{Enable: true, EnableHSTS: cfg.IsProduction()},
		BodyLimit: security.BodyLimit{Max: cfg.BodyLimitBytes},
		AuthLimit: ratelimit.Handler{
			Limiter: authLimiter,
			Config:  ratelimit.Config{Key: ratelimit.ByIP("auth:"), Window: cfg.AuthRateWindow, Max: cfg.AuthRateLimit},
			OnError: limitErr,
		},
		OrderRate: ratelimit.Handler{
			Limiter: ratelimit.Sliding{Client: redisClient, Prefix: "ecofor:rl:orders:"},
			Config:  ratelimit.Config{Key: ratelimit.ByCaller(""), Window: cfg.OrderRateWindow, Max: cfg.OrderRateLimit},
			OnError: limitErr,
		},
		Health: health.Handler{Checker: health.Deps{Pool: pool, Redis: redisClient}},
		AuthH: &auth.Handler{
			Service:          authSvc,
			AccessCookieName: cfg.AccessCookieName,
			CookieDomain:     cfg.CookieDomain,
			CookieSecure:     cfg.CookieSecure,
			CookieSameSite:   cfg.CookieSameSite,
		},
		Catalog:   catalog.NewHandler(catalog.HandlerConfig{Service: catalogSvc}),
		Cart:      &cart.Handler{Svc: carts},
		Orders:    &order.Handler{Svc: orders, Carts: carts},
		Invoices:  &invoice.Handler{Svc: invoices, Carts: carts},
		Messaging: &messaging.Handler{Svc: inbox},
		Reports:   audit.Handler{Store: store},
	}

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	go func() {
		<-ctx.Done()
		health.SetReady(false)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("graceful shutdown")
		}
	}()

	logger.Info().Str("addr", httpServer.Addr).Msg("server starting")
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("server exited unexpectedly")
	}
	logger.Info().Msg("server stopped")
}

func outboundCaller(cfg *config.Config, target string, logger zerolog.Logger) resilience.Caller {
	return resilience.Caller{
		Breaker:     resilience.NewBreaker(cfg.BreakerMinRequests, cfg.BreakerFailureRatio, cfg.BreakerOpenFor).WithTarget(target).WithLogger(logger),
		MaxAttempts: cfg.RetryMaxAttempts,
		BaseBackoff: cfg.RetryBase,
		Jitter:      cfg.RetryJitter,
		Timeout:     cfg.OutboundTimeout,
	}
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
	poolConfig.ConnConfig.RuntimeParams["application_name"] = serviceName

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
	redisClient := redis.NewClient(redisOpts)
	if err := redisotel.InstrumentTracing(redisClient); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if err := redisotel.InstrumentMetrics(redisClient); err != nil {
		logger.Error().Err(err).Msg("instrument redis metrics")
	}
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}
	return redisClient
}
