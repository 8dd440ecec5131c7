package middleware

import (
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/adcatlas/curation-backend/internal/infrastructure/observability"
)

// RouteMatcher resolves the registered pattern for a request. *http.ServeMux satisfies it.
type RouteMatcher interface {
	Handler(r *http.Request) (http.Handler, string)
}

// unmatchedRoute labels requests no pattern accepts, keeping metric cardinality bounded
const unmatchedRoute = "unmatched"

// ObservabilityMiddleware adds OpenTelemetry tracing and metrics to HTTP requests.
// Spans and metrics are labelled with the route pattern, never the raw path.
func ObservabilityMiddleware(metrics *observability.Metrics, routes RouteMatcher) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			route := routeOf(routes, r)

			ctx, span := observability.StartSpan(r.Context(), route)
			defer span.End()

			attrs := []attribute.KeyValue{
				attribute.String("http.method", r.Method),
				attribute.String("http.route", route),
				attribute.String("http.user_agent", r.UserAgent()),
			}
			if id := r.Header.Get(RequestIDHeader); id != "" {
				attrs = append(attrs, attribute.String("http.request_id", id))
			}
			observability.SetSpanAttributes(span, attrs...)

			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			start := time.Now()
			next.ServeHTTP(rw, r.WithContext(ctx))

			observability.RecordRequestMetric(ctx, metrics, r.Method, route, rw.statusCode, time.Since(start))
			observability.SetSpanAttributes(span, attribute.Int("http.status_code", rw.statusCode))
			if rw.statusCode >= http.StatusInternalServerError {
				span.SetStatus(codes.Error, http.StatusText(rw.statusCode))
			}
		})
	}
}

func routeOf(routes RouteMatcher, r *http.Request) string {
	if routes == nil {
		return unmatchedRoute
	}
	_, pattern := routes.Handler(r)
	if pattern == "" {
		return unmatchedRoute
	}
	// "GET /api/records/{id}" -> "/api/records/{id}"; the method is its own attribute
	if i := strings.IndexByte(pattern, ' '); i >= 0 {
		pattern = pattern[i+1:]
	}
	return pattern
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(statusCode int) {
	rw.statusCode = statusCode
	rw.ResponseWriter.WriteHeader(statusCode)
}
