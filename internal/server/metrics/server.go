package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server exposes the gathered metrics over HTTP on /metrics.
type Server struct {
	httpServer *http.Server

	mu       sync.RWMutex
	listener net.Listener
}

// Config holds the configuration for the metrics server.
type Config struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// NewServer creates a metrics server for the collectors in reg.
// Scrapes are themselves counted in reg, as promhttp_metric_handler_requests_total.
func NewServer(cfg Config, reg *prometheus.Registry) *Server {
	h := promhttp.HandlerFor(reg, promhttp.HandlerOpts{
		ErrorLog:      slog.NewLogLogger(slog.Default().Handler(), slog.LevelWarn),
		ErrorHandling: promhttp.ContinueOnError,
		Registry:      reg,
	})

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.InstrumentMetricHandler(reg, h))

	return &Server{
		httpServer: &http.Server{
			Addr:         net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
			Handler:      mux,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
	}
}

// ListenAndServe binds the configured address and serves until the server is shut down.
// It returns http.ErrServerClosed after Shutdown or Close.
func (s *Server) ListenAndServe() error {
	l, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.listener = l
	s.mu.Unlock()

	slog.Info("Metrics endpoint listening", "addr", l.Addr().String())
	err = s.httpServer.Serve(l)
	if !errors.Is(err, http.ErrServerClosed) {
		slog.Warn("Metrics endpoint stopped", "err", err)
	}
	return err
}

// Shutdown stops accepting scrapes and waits for the ongoing ones, up to the deadline of ctx.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Close stops the server immediately.
func (s *Server) Close() error {
	return s.httpServer.Close()
}

// Addr returns the address the server is bound to, or an empty string before it listens.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}
