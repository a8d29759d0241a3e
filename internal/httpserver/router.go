package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/cyp0633/caldora/internal/config"
	"github.com/cyp0633/caldora/internal/logging"
	"github.com/cyp0633/caldora/internal/metrics"
	"github.com/cyp0633/caldora/server"
)

func init() {
	for _, method := range []string{
		"PROPFIND",
		"PROPPATCH",
		"REPORT",
		"MKCALENDAR",
	} {
		chi.RegisterMethod(method)
	}
}

// NewRouter serves the operational endpoints and hands every other path to the
// CalDAV handler.
func NewRouter(cfg *config.Config, dav *server.Handler, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.AccessLog(logger))
	r.Use(middleware.Recoverer)
	if cfg.Metrics {
		r.Use(metrics.Middleware(routeLabel(dav)))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if cfg.Metrics {
		r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
			metrics.Handler().ServeHTTP(w, r)
		})
	}

	r.NotFound(dav.ServeHTTP)
	r.MethodNotAllowed(dav.ServeHTTP)
	return r
}

// routeLabel names CalDAV requests by the kind of resource they address, which
// keeps principal and calendar ids out of metric labels.
func routeLabel(dav *server.Handler) metrics.RouteLabeler {
	return func(r *http.Request) string {
		if m, ok := dav.Router().Match(r.URL.EscapedPath()); ok {
			return "caldav:" + m.Kind.String()
		}
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			return rctx.RoutePattern()
		}
		return "other"
	}
}
