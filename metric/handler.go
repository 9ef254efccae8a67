package metric

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/c360/moodlink/errors"
	"github.com/c360/moodlink/health"
)

// HealthSource reports the aggregated health served on /health.
type HealthSource interface {
	AggregateHealth(systemName string) health.Status
}

// Server represents the metrics HTTP server
type Server struct {
	addr     string
	path     string
	registry *MetricsRegistry
	health   HealthSource
	logger   *slog.Logger

	mu       sync.Mutex // protects server and listener
	server   *http.Server
	listener net.Listener
}

// NewServer creates a metrics server on addr. health may be nil, in which case
// /health always answers OK.
func NewServer(addr string, registry *MetricsRegistry, health HealthSource, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		addr:     addr,
		path:     "/metrics",
		registry: registry,
		health:   health,
		logger:   logger.With("component", "metrics-server"),
	}
}

// Start binds the listener and serves in the background.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server != nil {
		return errors.WrapInvalid(errors.ErrAlreadyStarted, "Server", "Start", "start metrics server")
	}
	if s.registry == nil {
		return errors.WrapFatal(fmt.Errorf("nil registry"), "Server", "Start", "metrics registry not provided")
	}

	mux := http.NewServeMux()
	mux.Handle(s.path, promhttp.HandlerFor(
		s.registry.PrometheusRegistry(),
		promhttp.HandlerOpts{EnableOpenMetrics: true},
	))
	mux.HandleFunc("/health", s.handleHealth)

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return errors.WrapFatal(err, "Server", "Start", fmt.Sprintf("listen on %s", s.addr))
	}

	s.listener = ln
	s.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func(srv *http.Server) {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("Metrics server stopped", "error", err)
		}
	}(s.server)

	s.logger.Info("Metrics server listening", "address", ln.Addr().String())
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	if s.health == nil {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
		return
	}

	status := s.health.AggregateHealth("moodlink")
	w.Header().Set("Content-Type", "application/json")
	if status.IsUnhealthy() {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(status)
}

// Stop stops the metrics server
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server == nil {
		return nil
	}
	err := s.server.Close()
	s.server = nil
	s.listener = nil
	if err != nil {
		return errors.WrapTransient(err, "Server", "Stop", "close HTTP server")
	}
	return nil
}

// Address returns the metrics URL, or "" when the server is not running.
func (s *Server) Address() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return fmt.Sprintf("http://%s%s", s.listener.Addr().String(), s.path)
}
