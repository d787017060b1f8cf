package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/go-cometd/cometd/internal/logger"
	"github.com/go-cometd/cometd/internal/telemetry"
	"github.com/go-cometd/cometd/pkg/api"
	"github.com/go-cometd/cometd/pkg/broker"
	"github.com/go-cometd/cometd/pkg/config"
	"github.com/go-cometd/cometd/pkg/metrics"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the CometD server",
	Long: `Start the CometD Bayeux server with the specified configuration.

Use --config to specify a custom configuration file, or it will use the
default location at $XDG_CONFIG_HOME/cometd/config.yaml.

Examples:
  # Start with default config location
  cometd start

  # Start with custom config file
  cometd start --config /etc/cometd/config.yaml

  # Start with environment variable overrides
  COMETD_LOGGING_LEVEL=DEBUG cometd start`,
	RunE: runStart,
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return err
	}

	// Initialize the structured logger
	if err := InitLogger(cfg); err != nil {
		return err
	}

	// Create cancellable context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry (if enabled)
	telemetryCfg := telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "cometd",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRate:     cfg.Telemetry.SampleRate,
	}
	telemetryShutdown, err := telemetry.Init(ctx, telemetryCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		if err := telemetryShutdown(ctx); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}()

	logger.Info("Log level", "level", cfg.Logging.Level, "format", cfg.Logging.Format)
	logger.Info("Configuration loaded", "source", getConfigSource(GetConfigFile()))
	if telemetry.IsEnabled() {
		logger.Info("Telemetry enabled", "endpoint", cfg.Telemetry.Endpoint, "sample_rate", cfg.Telemetry.SampleRate)
	} else {
		logger.Info("Telemetry disabled")
	}

	// Initialize metrics (if enabled)
	var brokerMetrics *metrics.BrokerMetrics
	var metricsSrv *metrics.Server
	if cfg.Metrics.Enabled {
		metricsSrv = metrics.NewServer(fmt.Sprintf(":%d", cfg.Metrics.Port))
		brokerMetrics = metrics.NewBrokerMetrics(metricsSrv.Registry())
		logger.Info("Metrics enabled", "port", cfg.Metrics.Port)
	} else {
		logger.Info("Metrics collection disabled")
	}

	// Create the broker context
	brk := broker.New(cfg.Bayeux.Options(), brokerMetrics)
	logger.Info("Broker initialized",
		"timeout", cfg.Bayeux.Timeout,
		"max_interval", cfg.Bayeux.MaxInterval)

	// Log session lifecycle events
	events := brk.Events()
	go logBrokerEvents(events)
	defer events.Cancel()

	srv := api.NewServer(cfg.Server, brk, brokerMetrics)
	logger.Info("Bayeux server configured", "port", cfg.Server.Port, "base_path", cfg.Server.BasePath)

	// Start servers in background
	serverDone := make(chan error, 1)
	go func() {
		serverDone <- srv.Start(ctx)
	}()

	metricsDone := make(chan error, 1)
	if metricsSrv != nil {
		go func() {
			metricsDone <- metricsSrv.Start()
		}()
		defer func() {
			stopCtx, stopCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer stopCancel()
			if err := metricsSrv.Stop(stopCtx); err != nil {
				logger.Error("metrics server shutdown error", "error", err)
			}
		}()
	}

	// Wait for interrupt signal or server error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("Server is running. Press Ctrl+C to stop.")

	select {
	case <-sigChan:
		signal.Stop(sigChan)
		logger.Info("Shutdown signal received, initiating graceful shutdown")
		cancel()

		// Wait for server to shut down gracefully
		if err := <-serverDone; err != nil {
			logger.Error("Server shutdown error", "error", err)
			return err
		}
		logger.Info("Server stopped gracefully")

	case err := <-serverDone:
		signal.Stop(sigChan)
		if err != nil {
			logger.Error("Server error", "error", err)
			return err
		}
		logger.Info("Server stopped")

	case err := <-metricsDone:
		signal.Stop(sigChan)
		cancel()
		<-serverDone
		if err != nil {
			logger.Error("Metrics server error", "error", err)
			return err
		}
	}

	return nil
}

// logBrokerEvents consumes broker lifecycle events until the receiver is
// cancelled or the broker shuts down.
func logBrokerEvents(events *broker.EventReceiver) {
	for ev := range events.C() {
		switch e := ev.(type) {
		case broker.SessionAdded:
			logger.Debug("session registered", "client_id", e.ClientID)
		case broker.Subscribed:
			logger.Debug("client subscribed", "client_id", e.ClientID, "channels", e.Channels)
		case broker.SessionRemoved:
			logger.Debug("session removed", "client_id", e.ClientID)
		}
	}
}

// getConfigSource returns a description of where the config was loaded from.
func getConfigSource(configFile string) string {
	if configFile != "" {
		return configFile
	}
	if config.DefaultConfigExists() {
		return config.GetDefaultConfigPath()
	}
	return "defaults"
}
