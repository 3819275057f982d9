// Package metricsrv serves Prometheus metrics as a rigging component: the
// HTTP listener comes up on start and drains on stop.
package metricsrv

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bft-labs/rigging/pkg/log"
)

// ErrNoAddr is returned on start when no listen address is configured.
var ErrNoAddr = errors.New("metricsrv: no listen address configured")

// Config holds the metrics server configuration.
type Config struct {
	// Addr is the listen address, e.g. ":9090".
	Addr string

	// Gatherer provides the metrics. Nil means the default gatherer.
	Gatherer prometheus.Gatherer

	// Logger receives server diagnostics. Nil means no output.
	Logger log.Logger
}

// Server exposes /metrics between start and stop.
type Server struct {
	cfg    Config
	logger log.Logger

	mu  sync.Mutex
	srv *http.Server
}

// New creates a metrics server component.
func New(cfg Config) *Server {
	if cfg.Gatherer == nil {
		cfg.Gatherer = prometheus.DefaultGatherer
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &Server{cfg: cfg, logger: logger}
}

// OnStart binds the listener and begins serving. A bind failure fails the
// start; serve errors after a clean shutdown are swallowed.
func (s *Server) OnStart(ctx context.Context) error {
	if s.cfg.Addr == "" {
		return ErrNoAddr
	}

	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(s.cfg.Gatherer, promhttp.HandlerOpts{}))
	srv := &http.Server{Handler: mux}

	s.mu.Lock()
	s.srv = srv
	s.mu.Unlock()

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("metrics server failed", log.Err(err))
		}
	}()
	s.logger.Info("metrics server listening", log.String("addr", ln.Addr().String()))
	return nil
}

// OnStop drains the server under the hook's deadline.
func (s *Server) OnStop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.srv
	s.srv = nil
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// OnDestroy force-closes a server a missed stop left running.
func (s *Server) OnDestroy(ctx context.Context) error {
	s.mu.Lock()
	srv := s.srv
	s.srv = nil
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Close()
}
