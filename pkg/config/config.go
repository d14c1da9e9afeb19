package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/marmos91/netsspi/internal/bytesize"
)

// Config represents the NetSSPI configuration.
//
// It covers both roles: the server side (`netsspi serve`) reads Transport,
// Server and Provider to expose the reference provider, and the client
// commands read Transport to reach a remote provider.
//
// Configuration sources (in order of precedence):
//  1. CLI flags (highest priority)
//  2. Environment variables (NETSSPI_*)
//  3. Configuration file (YAML)
//  4. Default values (lowest priority)
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Telemetry controls OpenTelemetry distributed tracing
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`

	// ShutdownTimeout is the maximum time to wait for graceful shutdown
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0" yaml:"shutdown_timeout"`

	// Metrics contains Prometheus metrics server configuration
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	// Transport selects the backend and the address both roles use
	Transport TransportConfig `mapstructure:"transport" yaml:"transport"`

	// Server tunes the dispatch server loop
	Server ServerConfig `mapstructure:"server" yaml:"server"`

	// Provider configures the reference NTLM provider served by `netsspi serve`
	Provider ProviderConfig `mapstructure:"provider" yaml:"provider"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// TelemetryConfig controls OpenTelemetry distributed tracing.
// When enabled, one span per dispatched call is exported to an
// OTLP-compatible collector.
type TelemetryConfig struct {
	// Enabled controls whether distributed tracing is enabled
	// Default: false (opt-in for telemetry)
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Endpoint is the OTLP collector endpoint (host:port)
	// Default: "localhost:4317" (standard OTLP gRPC port)
	Endpoint string `mapstructure:"endpoint" validate:"required_if=Enabled true" yaml:"endpoint"`

	// Insecure controls whether to use insecure (non-TLS) connection
	Insecure bool `mapstructure:"insecure" yaml:"insecure"`

	// SampleRate controls the trace sampling rate (0.0 to 1.0)
	// Default: 1.0 (sample all)
	SampleRate float64 `mapstructure:"sample_rate" validate:"omitempty,gte=0,lte=1" yaml:"sample_rate"`

	// Profiling contains Pyroscope continuous profiling configuration
	Profiling ProfilingConfig `mapstructure:"profiling" yaml:"profiling"`
}

// ProfilingConfig controls Pyroscope continuous profiling.
type ProfilingConfig struct {
	// Enabled controls whether continuous profiling is enabled
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Endpoint is the Pyroscope server endpoint (URL)
	// Default: "http://localhost:4040"
	Endpoint string `mapstructure:"endpoint" validate:"required_if=Enabled true" yaml:"endpoint"`

	// ProfileTypes specifies which profile types to collect
	// Valid values: cpu, alloc_objects, alloc_space, inuse_objects, inuse_space,
	//               goroutines, mutex_count, mutex_duration, block_count, block_duration
	ProfileTypes []string `mapstructure:"profile_types" validate:"dive,oneof=cpu alloc_objects alloc_space inuse_objects inuse_space goroutines mutex_count mutex_duration block_count block_duration" yaml:"profile_types"`
}

// MetricsConfig configures the Prometheus metrics HTTP server.
// When Enabled is false, no metrics are collected (zero overhead).
type MetricsConfig struct {
	// Enabled controls whether metrics collection and HTTP server are enabled
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Port is the HTTP port for the metrics and health endpoints
	// Default: 9090
	Port int `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`
}

// TransportConfig selects how NetSSPI messages travel.
type TransportConfig struct {
	// Kind is the backend: tcp, ipc (unix socket or named pipe) or serial
	Kind string `mapstructure:"kind" validate:"required,oneof=tcp ipc serial" yaml:"kind"`

	// Address is host:port for tcp, a socket path or pipe name for ipc,
	// and a device path for serial
	Address string `mapstructure:"address" validate:"required" yaml:"address"`

	// ReadTimeout bounds each read. 0 disables the deadline.
	ReadTimeout time.Duration `mapstructure:"read_timeout" validate:"gte=0" yaml:"read_timeout"`

	// WriteTimeout bounds each write. 0 disables the deadline.
	WriteTimeout time.Duration `mapstructure:"write_timeout" validate:"gte=0" yaml:"write_timeout"`

	// MaxMessageSize caps the declared TotalLength of a message
	// Supports human-readable formats: "1Mi", "64KiB"
	// Default: 1Mi
	MaxMessageSize bytesize.ByteSize `mapstructure:"max_message_size" yaml:"max_message_size"`

	// Unicode makes the client mark requests as carrying wide strings
	Unicode bool `mapstructure:"unicode" yaml:"unicode"`

	// ConnectRetry bounds the client's connect backoff
	ConnectRetry RetryConfig `mapstructure:"connect_retry" yaml:"connect_retry"`

	// Serial holds serial line settings
	Serial SerialConfig `mapstructure:"serial" yaml:"serial"`
}

// RetryConfig mirrors transport.RetryPolicy.
type RetryConfig struct {
	InitialInterval time.Duration `mapstructure:"initial_interval" validate:"gte=0" yaml:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval" validate:"gte=0" yaml:"max_interval"`
	MaxElapsed      time.Duration `mapstructure:"max_elapsed" validate:"gte=0" yaml:"max_elapsed"`
}

// SerialConfig configures serial devices (8N1, raw mode).
type SerialConfig struct {
	// BaudRate is the line speed
	// Default: 115200
	BaudRate int `mapstructure:"baud_rate" validate:"omitempty,oneof=9600 19200 38400 57600 115200 230400 460800 921600" yaml:"baud_rate"`
}

// ServerConfig tunes the dispatch server.
type ServerConfig struct {
	// MaxConnections limits concurrently served connections. 0 = unlimited.
	MaxConnections int `mapstructure:"max_connections" validate:"gte=0" yaml:"max_connections"`

	// MetricsLogInterval periodically logs connection counts. 0 disables it.
	MetricsLogInterval time.Duration `mapstructure:"metrics_log_interval" validate:"gte=0" yaml:"metrics_log_interval"`
}

// ProviderConfig configures the reference NTLM provider.
type ProviderConfig struct {
	// Packages restricts the served packages. Empty serves NTLM and Negotiate.
	Packages []string `mapstructure:"packages" validate:"dive,oneof=NTLM Negotiate ntlm negotiate" yaml:"packages,omitempty"`

	// TargetName is the NetBIOS domain advertised in CHALLENGE messages
	// Default: "NETSSPI"
	TargetName string `mapstructure:"target_name" yaml:"target_name"`

	// ComputerName is the NetBIOS computer name. Defaults to TargetName.
	ComputerName string `mapstructure:"computer_name" yaml:"computer_name,omitempty"`

	// Lifetime bounds credential and context expiry. 0 means never.
	Lifetime time.Duration `mapstructure:"lifetime" validate:"gte=0" yaml:"lifetime"`

	// Users are the accounts the acceptor validates logons against.
	// With no users only anonymous logons succeed.
	Users []UserConfig `mapstructure:"users" validate:"dive" yaml:"users,omitempty"`
}

// UserConfig is one provider account. Exactly one of Password and NTHash
// must be set.
type UserConfig struct {
	Username string `mapstructure:"username" validate:"required" yaml:"username"`
	Domain   string `mapstructure:"domain" yaml:"domain,omitempty"`

	// Password is hashed on load and never kept by the provider
	Password string `mapstructure:"password" validate:"required_without=NTHash,excluded_with=NTHash" yaml:"password,omitempty"`

	// NTHash is the hex MD4 hash of the UTF-16LE password
	NTHash string `mapstructure:"nt_hash" validate:"omitempty,hexadecimal,len=32" yaml:"nt_hash,omitempty"`
}

// Load loads configuration from file, environment, and defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (NETSSPI_*)
//  2. Configuration file
//  3. Default values
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	if _, err := readConfigFile(v); err != nil {
		return nil, err
	}
	return decode(v)
}

// decode unmarshals v, applies defaults and validates.
func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// MustLoad loads configuration with helpful error messages.
// It checks if the config file exists and provides user-friendly instructions if not.
func MustLoad(configPath string) (*Config, error) {
	if configPath == "" {
		if !DefaultConfigExists() {
			return nil, fmt.Errorf("no configuration file found at default location: %s\n\n"+
				"Please initialize a configuration file first:\n"+
				"  netsspi config init\n\n"+
				"Or specify a custom config file:\n"+
				"  netsspi <command> --config /path/to/config.yaml",
				GetDefaultConfigPath())
		}
		configPath = GetDefaultConfigPath()
	} else if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s\n\n"+
			"Please create the configuration file:\n"+
			"  netsspi config init --config %s",
			configPath, configPath)
	}

	cfg, err := Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// Watch re-reads the configuration file whenever it changes and hands
// the result to onChange. Invalid intermediate edits are reported to
// onError and otherwise ignored. Watching stops when the process exits.
func Watch(configPath string, onChange func(*Config), onError func(error)) error {
	if configPath == "" {
		configPath = GetDefaultConfigPath()
	}
	v := viper.New()
	setupViper(v, configPath)
	found, err := readConfigFile(v)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("cannot watch %s: file does not exist", configPath)
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := decode(v)
		if err != nil {
			if onError != nil {
				onError(fmt.Errorf("reload %s: %w", e.Name, err))
			}
			return
		}
		onChange(cfg)
	})
	v.WatchConfig()
	return nil
}

// SaveConfig saves the configuration to the specified file path.
// The configuration is saved in YAML format using proper yaml tags.
func SaveConfig(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// 0600: the file may hold user passwords or NT hashes.
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// setupViper configures viper with environment variables and config file settings.
func setupViper(v *viper.Viper, configPath string) {
	// Example: NETSSPI_TRANSPORT_KIND=ipc
	v.SetEnvPrefix("NETSSPI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvKeys(v, reflect.TypeOf(Config{}), "")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// bindEnvKeys registers every leaf key of t so AutomaticEnv overrides
// apply even when the key is absent from the file.
func bindEnvKeys(v *viper.Viper, t reflect.Type, prefix string) {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		key := f.Tag.Get("mapstructure")
		if key == "" || key == "-" {
			continue
		}
		if prefix != "" {
			key = prefix + "." + key
		}
		if f.Type.Kind() == reflect.Struct {
			bindEnvKeys(v, f.Type, key)
			continue
		}
		_ = v.BindEnv(key)
	}
}

// readConfigFile reads the configuration file if it exists.
// Returns (fileFound, error) where fileFound indicates if a config file was found.
func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}
	return true, nil
}

// configDecodeHooks returns a combined decode hook for all custom types.
// This includes ByteSize and time.Duration parsing, plus comma-separated
// lists from environment variables.
func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		byteSizeDecodeHook(),
		durationDecodeHook(),
		mapstructure.StringToSliceHookFunc(","),
	)
}

// byteSizeDecodeHook converts strings and numbers to bytesize.ByteSize so
// config files can use sizes like "1Mi" or "64KiB".
func byteSizeDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(bytesize.ByteSize(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return bytesize.ParseByteSize(v)
		case int:
			return bytesize.ByteSize(v), nil
		case int64:
			return bytesize.ByteSize(v), nil
		case uint64:
			return bytesize.ByteSize(v), nil
		case float64:
			// YAML often deserializes numbers as float64
			return bytesize.ByteSize(v), nil
		default:
			return data, nil
		}
	}
}

// durationDecodeHook converts strings like "30s" or "5m" to time.Duration.
func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			// Assume nanoseconds for raw integers
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to current
// directory (.) if home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "netsspi")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "netsspi")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// DefaultConfigExists checks if a config file exists at the default location.
func DefaultConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

// GetConfigDir returns the configuration directory path (exposed for init command).
func GetConfigDir() string {
	return getConfigDir()
}
