package obs

import (
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/noah-isme/ecofor-market/internal/common"
)

// NewLogger builds the process logger. format "console" (or "text") selects
// human-readable output, anything else JSON. Unknown levels mean info.
func NewLogger(format, level string) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	var out io.Writer = os.Stdout
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "console", "text":
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"}
	}
	return zerolog.New(out).With().Timestamp().Str("service", "ecofor-market").Logger()
}

// RequestLogger writes one "http_request" line per request. Each request
// gets its own child logger in the context; inner middleware may tag it with
// zerolog.Ctx(ctx).UpdateContext and the tags appear on that line. 5xx
// responses log at error level, 4xx at warn.
type RequestLogger struct {
	Logger zerolog.Logger
}

func (l RequestLogger) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqLog := l.Logger.With().Str("request_id", middleware.GetReqID(r.Context())).Logger()
		ctx := reqLog.WithContext(r.Context())
		rec := NewStatusRecorder(w)
		start := time.Now()
		next.ServeHTTP(rec, r.WithContext(ctx))

		log := zerolog.Ctx(ctx)
		var evt *zerolog.Event
		switch status := rec.Status(); {
		case status >= 500:
			evt = log.Error()
		case status >= 400:
			evt = log.Warn()
		default:
			evt = log.Info()
		}
		evt = evt.
			Str("method", r.Method).
			Str("route", RouteLabel(r, r.URL.Path)).
			Str("path", r.URL.Path).
			Int("status", rec.Status()).
			Dur("duration", time.Since(start)).
			Int64("bytes", rec.BytesWritten()).
			Str("remote_addr", common.ClientIP(r))
		if ua := r.UserAgent(); ua != "" {
			evt = evt.Str("user_agent", ua)
		}
		evt.Msg("http_request")
	})
}
