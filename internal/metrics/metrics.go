// Package metrics exposes Prometheus collectors for HTTP requests and storage calls.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type ctxKey string

const routeLabelKey ctxKey = "metrics_route"

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "caldora_http_requests_total",
		Help: "Total number of HTTP requests processed.",
	}, []string{"method", "route"})

	httpErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "caldora_http_errors_total",
		Help: "Total number of HTTP requests resulting in server errors.",
	}, []string{"method", "route", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "caldora_http_request_duration_seconds",
		Help:    "Histogram of latencies for HTTP requests.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	storageLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "caldora_storage_latency_seconds",
		Help:    "Histogram of storage operation latencies.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "route"})

	storageErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "caldora_storage_errors_total",
		Help: "Total number of storage operations that returned an error.",
	}, []string{"operation"})
)

// RouteLabeler names the route of a request for metric labels.
type RouteLabeler func(r *http.Request) string

// Middleware records request metrics. A nil labeler uses the chi route pattern,
// falling back to the path.
func Middleware(label RouteLabeler) func(http.Handler) http.Handler {
	if label == nil {
		label = routePattern
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			route := label(r)
			ctx := context.WithValue(r.Context(), routeLabelKey, route)

			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r.WithContext(ctx))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			statusCode := strconv.Itoa(status)

			httpRequestsTotal.WithLabelValues(r.Method, route).Inc()
			httpRequestDuration.WithLabelValues(r.Method, route, statusCode).Observe(time.Since(start).Seconds())
			if status >= http.StatusInternalServerError {
				httpErrorsTotal.WithLabelValues(r.Method, route, statusCode).Inc()
			}
		})
	}
}

// Handler exposes the Prometheus metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveStorage records the latency of a storage operation, labelled with the
// route of the request it serves when known.
func ObserveStorage(ctx context.Context, operation string, start time.Time, err error) {
	storageLatency.WithLabelValues(operation, routeFromContext(ctx)).Observe(time.Since(start).Seconds())
	if err != nil {
		storageErrorsTotal.WithLabelValues(operation).Inc()
	}
}

func routeFromContext(ctx context.Context) string {
	if route, ok := ctx.Value(routeLabelKey).(string); ok && route != "" {
		return route
	}
	return "unknown"
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := strings.TrimSpace(rctx.RoutePattern()); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}
