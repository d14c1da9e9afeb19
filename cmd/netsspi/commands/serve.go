package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/marmos91/netsspi/internal/logger"
	"github.com/marmos91/netsspi/internal/telemetry"
	"github.com/marmos91/netsspi/pkg/api"
	"github.com/marmos91/netsspi/pkg/api/handlers"
	"github.com/marmos91/netsspi/pkg/config"
	"github.com/marmos91/netsspi/pkg/dispatch"
	"github.com/marmos91/netsspi/pkg/metrics"
	promMetrics "github.com/marmos91/netsspi/pkg/metrics/prometheus"
	"github.com/marmos91/netsspi/pkg/transport"
)

// serialReopenDelay paces reopening a serial device after the peer drops.
const serialReopenDelay = time.Second

var pidFile string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the reference provider server",
	Long: `Run the NetSSPI server with the reference NTLM/Negotiate provider.

The server listens on the configured transport until SIGINT or SIGTERM, then
drains active connections for up to shutdown_timeout. Serial links have no
listener: the device is opened and served, and reopened when the peer drops.

Edits to the configuration file change the log level without a restart.

Examples:
  # Serve with the default config
  netsspi serve

  # Serve on a Unix socket with metrics on :9090
  NETSSPI_METRICS_ENABLED=true netsspi serve --transport ipc --address /run/netsspi.sock

  # Serve a serial line
  netsspi serve --transport serial --address /dev/ttyUSB0`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&pidFile, "pid-file", "", "Write the process ID to this file")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(commandContext(cmd))
	defer cancel()

	telemetryShutdown, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "netsspi",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRate:     cfg.Telemetry.SampleRate,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		if err := telemetryShutdown(context.Background()); err != nil {
			logger.Error("telemetry shutdown error", logger.Err(err))
		}
	}()

	profilingShutdown, err := telemetry.InitProfiling(telemetry.ProfilingConfig{
		Enabled:        cfg.Telemetry.Profiling.Enabled,
		ServiceName:    "netsspi",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Profiling.Endpoint,
		ProfileTypes:   cfg.Telemetry.Profiling.ProfileTypes,
		Tags:           map[string]string{"transport": cfg.Transport.Kind},
	})
	if err != nil {
		return fmt.Errorf("failed to initialize profiling: %w", err)
	}
	defer func() {
		if err := profilingShutdown(); err != nil {
			logger.Error("profiling shutdown error", logger.Err(err))
		}
	}()

	logger.Info("Configuration loaded", "source", getConfigSource(GetConfigFile()))
	logger.Info("Log level", "level", cfg.Logging.Level, "format", cfg.Logging.Format)
	if telemetry.IsEnabled() {
		logger.Info("Telemetry enabled", "endpoint", cfg.Telemetry.Endpoint, "sample_rate", cfg.Telemetry.SampleRate)
	}
	if telemetry.IsProfilingEnabled() {
		logger.Info("Profiling enabled", "endpoint", cfg.Telemetry.Profiling.Endpoint)
	}

	var dm metrics.DispatchMetrics
	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
		dm = promMetrics.NewDispatchMetrics()
	}

	srv, provider, err := cfg.NewServer(dm)
	if err != nil {
		return err
	}
	logger.Info("Provider ready", "packages", cfg.Provider.Packages, "target_name", cfg.Provider.TargetName, "users", len(cfg.Provider.Users))

	kind, err := cfg.Transport.TransportKind()
	if err != nil {
		return err
	}

	if cfg.Metrics.Enabled {
		status := api.NewServer(api.APIConfig{Port: cfg.Metrics.Port}, handlers.NewHealthHandler(handlers.Instance{
			Version:   Version,
			Transport: string(kind),
			Address:   cfg.Transport.Address,
			StartedAt: time.Now(),
		}, srv, provider))
		go func() {
			if err := status.Start(ctx); err != nil {
				logger.Error("Status server error", logger.Err(err))
			}
		}()
	}

	if path := configPathForWatch(); path != "" {
		err := config.Watch(path, func(next *config.Config) {
			if next.Logging.Level != cfg.Logging.Level {
				logger.Info("Log level changed", "from", cfg.Logging.Level, "to", next.Logging.Level)
				logger.SetLevel(next.Logging.Level)
				cfg.Logging.Level = next.Logging.Level
			}
		}, func(err error) {
			logger.Warn("Ignoring invalid configuration change", logger.Err(err))
		})
		if err != nil {
			logger.Warn("Configuration reload disabled", logger.Err(err))
		}
	}

	if pidFile != "" {
		if err := os.WriteFile(pidFile, []byte(fmt.Sprintf("%d", os.Getpid())), 0644); err != nil {
			return fmt.Errorf("failed to write PID file: %w", err)
		}
		defer func() { _ = os.Remove(pidFile) }()
	}

	serverDone := make(chan error, 1)
	go func() {
		if kind == transport.KindSerial {
			serverDone <- serveSerial(ctx, srv, cfg)
			return
		}
		serverDone <- srv.ListenAndServe(ctx, kind, cfg.Transport.Address, cfg.Transport.Options())
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	logger.Info("Server is running. Press Ctrl+C to stop.", "transport", kind, "address", cfg.Transport.Address)

	select {
	case <-sigChan:
		logger.Info("Shutdown signal received, initiating graceful shutdown")
		stopCtx, stopCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer stopCancel()
		stopErr := srv.Stop(stopCtx)
		cancel()
		if err := <-serverDone; err != nil && !errors.Is(err, dispatch.ErrServerClosed) {
			logger.Error("Server shutdown error", logger.Err(err))
			return err
		}
		if stopErr != nil {
			return stopErr
		}
		logger.Info("Server stopped gracefully")

	case err := <-serverDone:
		if err != nil && !errors.Is(err, dispatch.ErrServerClosed) {
			logger.Error("Server error", logger.Err(err))
			return err
		}
		logger.Info("Server stopped")
	}
	return nil
}

// serveSerial serves the configured serial device, reopening it each time
// the peer drops, until ctx is cancelled or the server stops.
func serveSerial(ctx context.Context, srv *dispatch.Server, cfg *config.Config) error {
	for {
		conn, err := transport.New(transport.KindSerial, transport.RoleServer, cfg.Transport.Address, cfg.Transport.Options())
		if err != nil {
			return err
		}
		if err := conn.Open(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("open %s: %w", cfg.Transport.Address, err)
		}
		logger.Info("Serving serial device", "device", cfg.Transport.Address, "baud_rate", cfg.Transport.Serial.BaudRate)

		if err := srv.ServeConn(conn); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(serialReopenDelay):
		}
	}
}

// configPathForWatch returns the config file to watch, or "" when none
// exists.
func configPathForWatch() string {
	path := GetConfigFile()
	if path == "" {
		path = config.GetDefaultConfigPath()
	}
	if !fileExists(path) {
		return ""
	}
	return path
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
