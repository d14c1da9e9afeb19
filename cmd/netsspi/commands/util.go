package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/marmos91/netsspi/internal/cli/output"
	"github.com/marmos91/netsspi/internal/logger"
	"github.com/marmos91/netsspi/pkg/config"
	"github.com/marmos91/netsspi/pkg/dispatch"
	"github.com/marmos91/netsspi/pkg/metrics"
	"github.com/marmos91/netsspi/pkg/transport"
	"github.com/marmos91/netsspi/pkg/wire"
)

// InitLogger initializes the structured logger from configuration.
func InitLogger(cfg *config.Config) error {
	loggerCfg := logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}
	if err := logger.Init(loggerCfg); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

// loadConfig loads the configuration for client commands. A missing file
// is not an error: defaults and NETSSPI_* variables apply. The --transport
// and --address flags override the loaded values.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return nil, err
	}
	if err := applyTransportFlags(cfg); err != nil {
		return nil, err
	}
	if err := InitLogger(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyTransportFlags(cfg *config.Config) error {
	if transportKind == "" && address == "" {
		return nil
	}
	if transportKind != "" {
		if _, err := transport.ParseKind(transportKind); err != nil {
			return err
		}
		if transportKind != cfg.Transport.Kind && address == "" {
			cfg.Transport.Address = config.DefaultAddress(transportKind)
		}
		cfg.Transport.Kind = transportKind
	}
	if address != "" {
		cfg.Transport.Address = address
	}
	return config.Validate(cfg)
}

// dial connects to the configured server. The caller closes conn.
func dial(ctx context.Context, cfg *config.Config, m metrics.DispatchMetrics) (*dispatch.Client, *transport.Context, error) {
	client, conn, err := cfg.Dial(ctx, m)
	if err != nil {
		return nil, nil, err
	}
	logger.Debug("Connected", "transport", conn.Kind(), "address", conn.Target())
	return client, conn, nil
}

// newPrinter builds a Printer from the --output and --no-color flags.
func newPrinter(cmd *cobra.Command) (*output.Printer, error) {
	format, err := output.ParseFormat(outputFormat)
	if err != nil {
		return nil, err
	}
	return output.NewPrinter(cmd.OutOrStdout(), format, !noColor), nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// protoString encodes s the way the configured connection expects.
func protoString(cfg *config.Config, s string) wire.String {
	if cfg.Transport.Unicode {
		return wire.NewWideString(s)
	}
	return wire.NewString(s)
}

// commandContext returns cmd's context, or Background when run outside
// Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
