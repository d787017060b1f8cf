package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-cometd/cometd/internal/logger"
	"github.com/go-cometd/cometd/pkg/broker"
	"github.com/go-cometd/cometd/pkg/metrics"
)

// Server is the Bayeux HTTP server. It is created stopped; call Start to
// serve and cancel the context (or call Stop) to shut down gracefully.
type Server struct {
	server       *http.Server
	broker       *broker.Context
	config       Config
	shutdownOnce sync.Once
}

// NewServer builds a server for the given broker context. Pass nil
// metrics to run without instrumentation.
func NewServer(config Config, brk *broker.Context, m *metrics.BrokerMetrics) *Server {
	config.applyDefaults()

	return &Server{
		server: &http.Server{
			Addr:         fmt.Sprintf(":%d", config.Port),
			Handler:      NewRouter(config, brk, m),
			ReadTimeout:  config.ReadTimeout,
			WriteTimeout: config.WriteTimeout,
			IdleTimeout:  config.IdleTimeout,
		},
		broker: brk,
		config: config,
	}
}

// Start serves Bayeux requests and blocks until the context is cancelled
// or the listener fails. Cancellation triggers graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	errChan := make(chan error, 1)
	go func() {
		logger.Info("bayeux server listening", "port", s.config.Port)

		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			select {
			case errChan <- err:
			default:
			}
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("bayeux server shutdown signal received")
		// Fresh context: the cancelled one would abort the drain.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.Stop(shutdownCtx)
	case err := <-errChan:
		return fmt.Errorf("bayeux server failed: %w", err)
	}
}

// Stop drains in-flight requests and closes the broker context. Safe to
// call multiple times and concurrently with Start.
func (s *Server) Stop(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		logger.Debug("bayeux server shutdown initiated")

		if err := s.server.Shutdown(ctx); err != nil {
			shutdownErr = fmt.Errorf("bayeux server shutdown error: %w", err)
			logger.Error("bayeux server shutdown error", "error", err)
		} else {
			logger.Info("bayeux server stopped gracefully")
		}
		s.broker.Close()
	})
	return shutdownErr
}

// Port returns the TCP port the server listens on.
func (s *Server) Port() int {
	return s.config.Port
}
