package prometheus

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTPMiddleware records tokenauth_http_requests_total and
// tokenauth_http_request_duration_seconds on reg, labelled by route pattern.
func HTTPMiddleware(reg prom.Registerer) func(http.Handler) http.Handler {
	factory := promauto.With(reg)
	duration := factory.NewHistogramVec(prom.HistogramOpts{
		Name:    "tokenauth_http_request_duration_seconds",
		Help:    "Duration of HTTP requests.",
		Buckets: prom.DefBuckets,
	}, []string{"path", "method", "status"})
	requests := factory.NewCounterVec(prom.CounterOpts{
		Name: "tokenauth_http_requests_total",
		Help: "Total number of HTTP requests.",
	}, []string{"path", "method", "status"})

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			// Label by route pattern, not raw path.
			path := "unmatched"
			if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
				path = rc.RoutePattern()
			}

			status := strconv.Itoa(ww.Status())
			duration.WithLabelValues(path, r.Method, status).Observe(time.Since(start).Seconds())
			requests.WithLabelValues(path, r.Method, status).Inc()
		})
	}
}
