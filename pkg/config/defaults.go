package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/marmos91/netsspi/internal/bytesize"
	"github.com/marmos91/netsspi/pkg/provider/ntlm"
)

// Default values that are referenced outside ApplyDefaults.
const (
	DefaultTCPAddress     = "127.0.0.1:4750"
	DefaultMaxMessageSize = bytesize.MiB
	DefaultMetricsPort    = 9090
	DefaultBaudRate       = 115200
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// Default Strategy:
//   - Zero values (0, "", false, nil) are replaced with defaults
//   - Explicit values are preserved
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyShutdownTimeoutDefaults(cfg)
	applyMetricsDefaults(&cfg.Metrics)
	applyTransportDefaults(&cfg.Transport)
	applyProviderDefaults(&cfg.Provider)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	// Normalize log level to uppercase for consistent internal representation
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stderr"
	}
}

// applyTelemetryDefaults sets OpenTelemetry defaults.
func applyTelemetryDefaults(cfg *TelemetryConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "localhost:4317"
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 1.0
	}
	applyProfilingDefaults(&cfg.Profiling)
}

// applyProfilingDefaults sets Pyroscope profiling defaults.
func applyProfilingDefaults(cfg *ProfilingConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "http://localhost:4040"
	}
	if len(cfg.ProfileTypes) == 0 {
		cfg.ProfileTypes = []string{
			"cpu",
			"alloc_objects",
			"alloc_space",
			"inuse_objects",
			"inuse_space",
			"goroutines",
		}
	}
}

func applyShutdownTimeoutDefaults(cfg *Config) {
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
}

// applyMetricsDefaults sets the metrics port when metrics are enabled.
func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Enabled && cfg.Port == 0 {
		cfg.Port = DefaultMetricsPort
	}
}

// applyTransportDefaults fills the backend, its address and the limits.
func applyTransportDefaults(cfg *TransportConfig) {
	if cfg.Kind == "" {
		cfg.Kind = "tcp"
	}
	cfg.Kind = strings.ToLower(cfg.Kind)
	if cfg.Address == "" {
		cfg.Address = DefaultAddress(cfg.Kind)
	}
	if cfg.MaxMessageSize == 0 {
		cfg.MaxMessageSize = DefaultMaxMessageSize
	}
	if cfg.ConnectRetry.InitialInterval == 0 {
		cfg.ConnectRetry.InitialInterval = 100 * time.Millisecond
	}
	if cfg.ConnectRetry.MaxInterval == 0 {
		cfg.ConnectRetry.MaxInterval = 2 * time.Second
	}
	if cfg.ConnectRetry.MaxElapsed == 0 {
		cfg.ConnectRetry.MaxElapsed = 30 * time.Second
	}
	if cfg.Serial.BaudRate == 0 {
		cfg.Serial.BaudRate = DefaultBaudRate
	}
}

// DefaultAddress returns the address used for kind when none is configured.
func DefaultAddress(kind string) string {
	switch kind {
	case "ipc":
		if runtime.GOOS == "windows" {
			return "netsspi"
		}
		return filepath.Join(os.TempDir(), "netsspi.sock")
	case "serial":
		return "/dev/ttyS0"
	default:
		return DefaultTCPAddress
	}
}

func applyProviderDefaults(cfg *ProviderConfig) {
	if cfg.TargetName == "" {
		cfg.TargetName = ntlm.DefaultTargetName
	}
}

// GetDefaultConfig returns a Config struct with all default values applied.
//
// This is useful for:
//   - Generating sample configuration files
//   - Testing
//   - Documentation
func GetDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
