// Package server provides the web viewer: an HTTP server rendering the loaded report and handling uploads,
// theme, history and exports.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/reporteria/reportviewer/internal/server/metrics"
	"github.com/reporteria/reportviewer/internal/viewmodel"
)

// Server serves the viewer and, unless disabled, the metrics endpoint.
type Server struct {
	httpServer    *http.Server
	metricsServer *metrics.Server
	cm            dConfigManager

	mu   sync.RWMutex
	addr net.Addr
	// done is closed when Run returns.
	done chan struct{}

	// hardStop interrupts everything, including a graceful shutdown in progress.
	hardStop context.Context
	abort    context.CancelFunc

	// stop asks Run for a graceful shutdown. It derives from hardStop.
	stop     context.Context
	shutdown context.CancelFunc
}

// StaticConfig holds the static configuration for the server.
type StaticConfig struct {
	// ConfigPath is the TOML file holding the alert thresholds.
	ConfigPath string

	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	RequestTimeout time.Duration
	MaxHeaderBytes int
	MaxUploadBytes int

	ListenHost string
	ListenPort int

	// MetricsPort is the port of the metrics endpoint. A negative port disables it.
	MetricsHost string
	MetricsPort int
}

type dConfigManager interface {
	Load() error
	Watch(context.Context) (<-chan struct{}, <-chan error, error)
	Thresholds() viewmodel.Thresholds
}

type options struct {
	registry *prometheus.Registry
	now      func() time.Time
}

// Options represents an optional function to override Server default values.
type Options func(*options)

var errServerClosed = errors.New("server is already shutting down")

// New creates a new Server serving the reports kept in store, with thresholds from cm.
func New(ctx context.Context, cm dConfigManager, store historyStore, sc StaticConfig, args ...Options) (*Server, error) {
	if err := cm.Load(); err != nil {
		return nil, fmt.Errorf("could not load alerts configuration: %v", err)
	}

	opts := options{
		registry: prometheus.NewRegistry(),
		now:      time.Now,
	}
	for _, opt := range args {
		opt(&opts)
	}

	s := &Server{
		cm:   cm,
		done: make(chan struct{}),
	}
	close(s.done)
	s.hardStop, s.abort = context.WithCancel(ctx)
	s.stop, s.shutdown = context.WithCancel(s.hardStop)

	v := newViewer(cm, store, int64(sc.MaxUploadBytes), opts.now)
	s.httpServer = &http.Server{
		Addr:           net.JoinHostPort(sc.ListenHost, strconv.Itoa(sc.ListenPort)),
		Handler:        http.TimeoutHandler(routes(v, metrics.New(opts.registry)), sc.RequestTimeout, ""),
		ReadTimeout:    sc.ReadTimeout,
		WriteTimeout:   sc.WriteTimeout,
		MaxHeaderBytes: sc.MaxHeaderBytes,
	}

	if sc.MetricsPort >= 0 {
		s.metricsServer = metrics.NewServer(metrics.Config{
			Host:         sc.MetricsHost,
			Port:         sc.MetricsPort,
			ReadTimeout:  sc.ReadTimeout,
			WriteTimeout: sc.WriteTimeout,
		}, opts.registry)
	}

	return s, nil
}

// routes returns the viewer routes, each one monitored under its own handler name.
func routes(v *viewer, mw *metrics.Middleware) *http.ServeMux {
	mux := http.NewServeMux()
	for _, r := range []struct {
		pattern, name string
		h             http.HandlerFunc
	}{
		{"GET /{$}", "page", v.page},
		{"POST /load", "load", v.load},
		{"POST /refresh", "refresh", v.refresh},
		{"POST /theme", "theme", v.toggleTheme},
		{"GET /history", "history", v.listHistory},
		{"POST /history/{index}", "history_load", v.loadHistory},
		{"GET /export.pdf", "export_pdf", v.exportPDF},
		{"GET /viewmodel.json", "viewmodel", v.viewModelJSON},
		{"GET /version", "version", versionHandler},
	} {
		mux.Handle(r.pattern, mw.Monitor(r.name, withRequestID(r.h)))
	}
	return mux
}

// Run starts the HTTP servers and blocks until they stop.
//
// It returns nil after a graceful Quit. A server failing or the alerts configuration watcher breaking
// down stops everything and returns the error.
func (s *Server) Run() error {
	if s.stop.Err() != nil {
		return errServerClosed
	}

	done := make(chan struct{})
	s.mu.Lock()
	s.done = done
	s.mu.Unlock()
	defer close(done)
	defer s.abort()

	_, watchErr, err := s.cm.Watch(s.stop)
	if err != nil {
		return fmt.Errorf("could not watch alerts configuration: %v", err)
	}

	l, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %v", s.httpServer.Addr, err)
	}
	s.mu.Lock()
	s.addr = l.Addr()
	s.mu.Unlock()
	slog.Info("Viewer listening", "addr", l.Addr().String())

	failed := make(chan error, 2)
	go serve("viewer", func() error { return s.httpServer.Serve(l) }, failed)
	if s.metricsServer != nil {
		go serve("metrics", s.metricsServer.ListenAndServe, failed)
	}

	for {
		select {
		case <-s.stop.Done():
			slog.Info("Graceful shutdown initiated")
			// Shutdown is bounded by hardStop so that a forced Quit unblocks it.
			err := s.httpServer.Shutdown(s.hardStop)
			if s.metricsServer != nil {
				err = errors.Join(err, s.metricsServer.Shutdown(s.hardStop))
			}
			if err != nil {
				slog.Error("Graceful shutdown failed", "err", err)
				return err
			}
			slog.Info("Server shut down gracefully")
			return nil

		case err := <-failed:
			return errors.Join(err, s.closeAll())

		case err, ok := <-watchErr:
			if !ok {
				// The watcher stops along with the stop context.
				watchErr = nil
				continue
			}
			slog.Error("Alerts configuration watcher failed", "err", err)
			return errors.Join(err, s.closeAll())
		}
	}
}

// serve runs fn and reports on failed any error other than the server being closed.
func serve(name string, fn func() error, failed chan<- error) {
	err := fn()
	if err == nil || errors.Is(err, http.ErrServerClosed) {
		return
	}
	slog.Error("Server stopped unexpectedly", "server", name, "err", err)
	failed <- fmt.Errorf("%s server: %w", name, err)
}

func (s *Server) closeAll() error {
	err := s.httpServer.Close()
	if s.metricsServer != nil {
		err = errors.Join(err, s.metricsServer.Close())
	}
	return err
}

// Quit shuts down the HTTP servers and waits for Run to return.
// A forced quit closes all connections immediately.
func (s *Server) Quit(force bool) {
	if force {
		s.abort()
		_ = s.closeAll()
	} else {
		s.shutdown()
	}

	s.mu.RLock()
	done := s.done
	s.mu.RUnlock()
	<-done
	slog.Info("Server quit")
}

// Addr returns the address the viewer listens on, or an empty string before Run.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.addr == nil {
		return ""
	}
	return s.addr.String()
}

// MetricsAddr returns the address of the metrics endpoint, or an empty string when it is disabled or not started.
func (s *Server) MetricsAddr() string {
	if s.metricsServer == nil {
		return ""
	}
	return s.metricsServer.Addr()
}
