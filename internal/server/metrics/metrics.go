// Package metrics provides middleware collecting HTTP metrics for Prometheus, and the server exposing them.
package metrics

import (
	"context"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type label string

// LabelPath is the label used for the route in metrics.
const LabelPath label = "path"

// Middleware collects request count, duration and size for every monitored handler.
type Middleware struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	size     *prometheus.SummaryVec
}

// New creates a Middleware and registers its collectors in registry.
// It panics if they are already registered there.
func New(registry prometheus.Registerer) *Middleware {
	labels := []string{"handler", "method", "code", string(LabelPath)}
	factory := promauto.With(registry)

	return &Middleware{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Tracks the number of HTTP requests.",
		}, labels),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name: "http_request_duration_seconds",
			Help: "Tracks the latencies for HTTP requests.",
			// Page renders and PDF exports. Max of 10.24s.
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		}, labels),
		size: factory.NewSummaryVec(prometheus.SummaryOpts{
			Name: "http_request_size_bytes",
			Help: "Tracks the size of HTTP requests.",
		}, labels),
	}
}

// Monitor wraps handler so that its requests are recorded under handlerName.
func (m *Middleware) Monitor(handlerName string, handler http.Handler) http.HandlerFunc {
	curry := prometheus.Labels{"handler": handlerName}
	pathLabel := promhttp.WithLabelFromCtx(string(LabelPath), pathFromCtx)

	h := promhttp.InstrumentHandlerRequestSize(m.size.MustCurryWith(curry), handler, pathLabel)
	h = promhttp.InstrumentHandlerDuration(m.duration.MustCurryWith(curry), h, pathLabel)
	h = promhttp.InstrumentHandlerCounter(m.requests.MustCurryWith(curry), h, pathLabel)

	return func(w http.ResponseWriter, r *http.Request) {
		h.ServeHTTP(w, ApplyLabels(r))
	}
}

func pathFromCtx(ctx context.Context) string {
	if path, ok := ctx.Value(LabelPath).(string); ok {
		return path
	}
	return "unknown"
}

// ApplyLabels returns r with its route stored in the context.
// The matched mux pattern is preferred over the raw path, so /history/3 is counted as /history/{index}.
func ApplyLabels(r *http.Request) *http.Request {
	path := r.URL.Path
	if r.Pattern != "" {
		// Patterns may be prefixed by their method.
		path = r.Pattern
		if _, route, found := strings.Cut(r.Pattern, " "); found {
			path = route
		}
	}
	return r.WithContext(context.WithValue(r.Context(), LabelPath, path))
}
