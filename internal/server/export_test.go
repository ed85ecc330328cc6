package server

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// WithRegistry sets the registry receiving the HTTP metrics.
func WithRegistry(reg *prometheus.Registry) Options {
	return func(o *options) {
		o.registry = reg
	}
}

// WithNow overrides the clock used to date loaded reports and exports.
func WithNow(now func() time.Time) Options {
	return func(o *options) {
		o.now = now
	}
}

// Handler returns the handler serving the viewer routes.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}
