package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/noah-isme/ecofor-market/internal/common"
	"github.com/noah-isme/ecofor-market/internal/config"
	"github.com/noah-isme/ecofor-market/internal/db"
	"github.com/noah-isme/ecofor-market/internal/obs"
	"github.com/noah-isme/ecofor-market/internal/resilience"
	"github.com/noah-isme/ecofor-market/internal/tasks"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger := obs.NewLogger(cfg.LogFormat, cfg.LogLevel).With().Str("component", "worker").Logger()
	obs.MustRegisterDomainMetrics(cfg.MetricsNamespace, nil)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool := mustInitDatabase(ctx, cfg, logger)
	defer pool.Close()

	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}

	var mail common.EmailSender
	if cfg.SMTPAddr != "" {
		mail = common.SMTPSender{
			Addr:     cfg.SMTPAddr,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.MailFrom,
		}
	} else {
		logger.Warn().Msg("SMTP_ADDR not set; notifications will be acknowledged without sending")
	}

	topics := make(map[string]bool, len(cfg.NotifyDisabledTopics))
	for _, topic := range cfg.NotifyDisabledTopics {
		topics[topic] = false
	}

	handler := tasks.EventHandler{
		Mail:     mail,
		Accounts: db.New(pool),
		Caller: resilience.Caller{
			Breaker:     resilience.NewBreaker(cfg.BreakerMinRequests, cfg.BreakerFailureRatio, cfg.BreakerOpenFor).WithTarget("smtp").WithLogger(logger),
			MaxAttempts: cfg.RetryMaxAttempts,
			BaseBackoff: cfg.RetryBase,
			Jitter:      cfg.RetryJitter,
			Timeout:     cfg.OutboundTimeout,
		},
		Topics: topics,
		Logger: &logger,
	}

	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: cfg.TaskConcurrency,
		Queues:      map[string]int{cfg.TaskQueue: 1},
		Logger:      asynqLogger{logger},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			retried, _ := asynq.GetRetryCount(ctx)
			maxRetry, _ := asynq.GetMaxRetry(ctx)
			logger.Error().Err(err).Str("type", task.Type()).Int("retry", retried).Int("max_retry", maxRetry).Msg("task failed")
		}),
		ShutdownTimeout: 15 * time.Second,
	})

	logger.Info().Str("queue", cfg.TaskQueue).Int("concurrency", cfg.TaskConcurrency).Msg("worker starting")
	if err := srv.Start(tasks.NewServeMux(handler)); err != nil {
		logger.Fatal().Err(err).Msg("start worker")
	}
	<-ctx.Done()
	srv.Shutdown()
	logger.Info().Msg("worker shutdown complete")
}

func mustInitDatabase(ctx context.Context, cfg *config.Config, logger zerolog.Logger) *pgxpool.Pool {
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse database config")
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	poolConfig.MaxConns = 4
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	if err := pool.Ping(ctx); err != nil {
		logger.Fatal().Err(err).Msg("ping database")
	}
	return pool
}

// asynqLogger routes asynq's internal logs through zerolog.
type asynqLogger struct {
	l zerolog.Logger
}

func (a asynqLogger) Debug(args ...any) { a.l.Debug().Msg(fmt.Sprint(args...)) }
func (a asynqLogger) Info(args ...any)  { a.l.Info().Msg(fmt.Sprint(args...)) }
func (a asynqLogger) Warn(args ...any)  { a.l.Warn().Msg(fmt.Sprint(args...)) }
func (a asynqLogger) Error(args ...any) { a.l.Error().Msg(fmt.Sprint(args...)) }
func (a asynqLogger) Fatal(args ...any) { a.l.Fatal().Msg(fmt.Sprint(args...)) }
