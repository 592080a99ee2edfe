// Package middleware provides HTTP middleware functions
package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/veloz-systems/gateway/infrastructure/metrics"
)

// routePatternKey carries a matched route pattern ("/api/orders/{id}") on a
// request context. MetricsMiddleware labels a request with that pattern when
// the request it receives carries one, and with the raw path otherwise. The
// inner gatewayhttp.Chain attaches the pattern to its own derived request
// after routing, which MetricsMiddleware does not see, so requests served by
// the gateway router are labelled by raw path.
type routePatternKey struct{}

// WithRoutePattern attaches the matched route pattern to the context.
func WithRoutePattern(ctx context.Context, pattern string) context.Context {
	return context.WithValue(ctx, routePatternKey{}, pattern)
}

func routePatternFrom(r *http.Request) (string, bool) {
	pattern, ok := r.Context().Value(routePatternKey{}).(string)
	return pattern, ok
}

// MetricsMiddleware records HTTP metrics for each request
func MetricsMiddleware(serviceName string, m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Increment in-flight requests
			m.IncrementInFlight()
			defer m.DecrementInFlight()

			// Wrap response writer to capture status code
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			// Process request
			next.ServeHTTP(wrapped, r)

			// Record metrics
			duration := time.Since(start)
			status := strconv.Itoa(wrapped.statusCode)
			path := r.URL.Path
			if pattern, ok := routePatternFrom(r); ok {
				path = pattern
			}

			m.RecordHTTPRequest(serviceName, r.Method, path, status, duration)
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.written {
		rw.statusCode = code
		rw.written = true
		rw.ResponseWriter.WriteHeader(code)
	}
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.written {
		rw.WriteHeader(http.StatusOK)
	}
	return rw.ResponseWriter.Write(b)
}
