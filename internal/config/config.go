package config

import (
	"errors"
	"fmt"
	"net/http"
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
	JWTSecret          string
	JWTIssuer          string
	JWTAudience        string
	AccessTokenTTL     time.Duration
	AccessCookieName   string
	CORSAllowedOrigins []string
	CookieDomain       string
	CookieSecure       bool
	CookieSameSite     http.SameSite
	CSRFEnabled        bool

	SessionCookieName string
	SessionTTL        time.Duration
	CartTTL           time.Duration
	CatalogCacheTTL   time.Duration
	CatalogPerPage    int
	LockTTL           time.Duration
	LockRetryBackoff  time.Duration
	IdempotencyTTL    time.Duration
	AuditEnabled      bool
	BodyLimitBytes    int64

	AuthRateLimit   int
	AuthRateWindow  time.Duration
	OrderRateLimit  int
	OrderRateWindow time.Duration

	LogFormat        string
	LogLevel         string
	MetricsNamespace string
	MetricsBuckets   string
	TracingEnabled   bool
	TracingEndpoint  string
	TracingRatio     float64

	KafkaBrokers []string
	KafkaTopic   string

	TaskQueue       string
	TaskMaxRetry    int
	TaskRetention   time.Duration
	TaskConcurrency int

	NotifyDisabledTopics []string

	SMTPAddr     string
	SMTPUsername string
	SMTPPassword string
	MailFrom     string

	BreakerMinRequests  int
	BreakerFailureRatio float64
	BreakerOpenFor      time.Duration
	RetryMaxAttempts    int
	RetryBase           time.Duration
	RetryJitter         float64
	OutboundTimeout     time.Duration
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		DatabaseURL:        k.String("DATABASE_URL"),
		RedisURL:           k.String("REDIS_URL"),
		JWTSecret:          k.String("JWT_SECRET"),
		JWTIssuer:          valueOrDefault(k.String("JWT_ISSUER"), "ecofor-market"),
		JWTAudience:        valueOrDefault(k.String("JWT_AUDIENCE"), "ecofor-storefront"),
		AccessTokenTTL:     parseDuration(k.String("ACCESS_TOKEN_TTL"), "12h"),
		AccessCookieName:   strings.TrimSpace(k.String("ACCESS_COOKIE_NAME")),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		CookieDomain:       strings.TrimSpace(k.String("COOKIE_DOMAIN")),
		CookieSecure:       parseBool(k.String("COOKIE_SECURE"), false),
		CookieSameSite:     parseSameSite(k.String("COOKIE_SAMESITE")),
		CSRFEnabled:        parseBool(k.String("CSRF_ENABLED"), true),

		SessionCookieName: valueOrDefault(k.String("SESSION_COOKIE_NAME"), "ecofor_session"),
		SessionTTL:        parseDuration(k.String("SESSION_TTL"), "336h"),
		CartTTL:           parseDuration(k.String("CART_TTL"), "168h"),
		CatalogCacheTTL:   parseDuration(k.String("CATALOG_CACHE_TTL"), "5m"),
		CatalogPerPage:    parseInt(k.String("CATALOG_PER_PAGE"), 12),
		LockTTL:           parseDuration(k.String("LOCK_TTL"), "15s"),
		LockRetryBackoff:  parseDuration(k.String("LOCK_RETRY_BACKOFF"), "50ms"),
		IdempotencyTTL:    parseDuration(k.String("IDEMPOTENCY_TTL"), "24h"),
		AuditEnabled:      parseBool(k.String("AUDIT_ENABLED"), true),
		BodyLimitBytes:    int64(parseInt(k.String("BODY_LIMIT_BYTES"), 1<<20)),

		AuthRateLimit:   parseInt(k.String("AUTH_RATE_LIMIT"), 10),
		AuthRateWindow:  parseDuration(k.String("AUTH_RATE_WINDOW"), "1m"),
		OrderRateLimit:  parseInt(k.String("ORDER_RATE_LIMIT"), 20),
		OrderRateWindow: parseDuration(k.String("ORDER_RATE_WINDOW"), "1m"),

		LogFormat:        valueOrDefault(k.String("OBS_LOG_FORMAT"), "json"),
		LogLevel:         valueOrDefault(k.String("OBS_LOG_LEVEL"), "info"),
		MetricsNamespace: valueOrDefault(k.String("OBS_METRICS_NAMESPACE"), "ecofor"),
		MetricsBuckets:   k.String("OBS_METRICS_BUCKETS_MS"),
		TracingEnabled:   parseBool(k.String("OBS_TRACING_ENABLED"), false),
		TracingEndpoint:  strings.TrimSpace(k.String("OTEL_EXPORTER_OTLP_ENDPOINT")),
		TracingRatio:     parseFloat(k.String("OBS_TRACING_SAMPLE_RATIO"), 0.1),

		KafkaBrokers: splitAndTrim(k.String("KAFKA_BROKERS")),
		KafkaTopic:   valueOrDefault(k.String("KAFKA_TOPIC"), "ecofor.domain-events"),

		TaskQueue:       valueOrDefault(k.String("TASK_QUEUE"), "notifications"),
		TaskMaxRetry:    parseInt(k.String("TASK_MAX_RETRY"), 8),
		TaskRetention:   parseDuration(k.String("TASK_RETENTION"), "24h"),
		TaskConcurrency: parseInt(k.String("TASK_CONCURRENCY"), 10),

		NotifyDisabledTopics: splitAndTrim(k.String("NOTIFY_DISABLED_TOPICS")),

		SMTPAddr:     strings.TrimSpace(k.String("SMTP_ADDR")),
		SMTPUsername: k.String("SMTP_USERNAME"),
		SMTPPassword: k.String("SMTP_PASSWORD"),
		MailFrom:     valueOrDefault(k.String("MAIL_FROM"), "Ecofor Market <no-reply@ecofor.cl>"),

		BreakerMinRequests:  parseInt(k.String("BREAKER_MIN_REQUESTS"), 10),
		BreakerFailureRatio: parseFloat(k.String("BREAKER_FAILURE_RATIO"), 0.5),
		BreakerOpenFor:      parseDuration(k.String("BREAKER_OPEN_FOR"), "30s"),
		RetryMaxAttempts:    parseInt(k.String("RETRY_MAX_ATTEMPTS"), 3),
		RetryBase:           parseDuration(k.String("RETRY_BASE"), "200ms"),
		RetryJitter:         parseFloat(k.String("RETRY_JITTER"), 0.2),
		OutboundTimeout:     parseDuration(k.String("OUTBOUND_TIMEOUT"), "5s"),
	}

	if cfg.CookieSameSite == http.SameSiteDefaultMode {
		cfg.CookieSameSite = http.SameSiteLaxMode
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	return cfg, nil
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.AppEnv), "production")
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
		return value
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
	if err != nil {
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

func parseSameSite(value string) http.SameSite {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	case "lax":
		return http.SameSiteLaxMode
	default:
		return http.SameSiteDefaultMode
	}
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
