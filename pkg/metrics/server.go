package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/go-cometd/cometd/internal/logger"
)

// Server serves the Prometheus scrape endpoint on its own listener, kept
// separate from the Bayeux port so operators can firewall it
// independently.
type Server struct {
	registry *prometheus.Registry
	srv      *http.Server
}

// NewServer builds a metrics server listening on addr with a fresh
// registry preloaded with the standard Go and process collectors.
func NewServer(addr string) *Server {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	return &Server{
		registry: registry,
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Registry returns the server's registry, for registering broker
// collectors before Start.
func (s *Server) Registry() *prometheus.Registry { return s.registry }

// Start serves the scrape endpoint until Stop is called. Blocks.
func (s *Server) Start() error {
	logger.Info("metrics server listening", "addr", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics server: %w", err)
	}
	return nil
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
