// Package logging builds the process logger and the access log middleware.
package logging

import (
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// New returns a logger writing JSON to stdout. Unknown levels fall back to info.
func New(level string) zerolog.Logger {
	return NewWithWriter(level, os.Stdout)
}

// NewWithWriter is New with a custom destination.
func NewWithWriter(level string, w io.Writer) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(w).With().Timestamp().Logger().Level(lvl)
}

// AccessLog logs one line per request. Reads are logged at debug, writes at info
// and server errors at error.
func AccessLog(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			var event *zerolog.Event
			switch {
			case status >= http.StatusInternalServerError:
				event = logger.Error()
			case isRead(r.Method):
				event = logger.Debug()
			default:
				event = logger.Info()
			}
			event.
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", status).
				Int("bytes", ww.BytesWritten()).
				Float64("duration_ms", float64(time.Since(start).Microseconds())/1000.0).
				Str("ip", r.RemoteAddr).
				Str("request_id", middleware.GetReqID(r.Context())).
				Str("user_agent", r.UserAgent()).
				Msg("http request")
		})
	}
}

func isRead(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, "PROPFIND", "REPORT":
		return true
	}
	return false
}
