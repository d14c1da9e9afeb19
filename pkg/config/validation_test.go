package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/netsspi/internal/bytesize"
)

const bobHash = "8846f7eaee8fb117ad06bdd830b7586c"

func TestValidateDefaults(t *testing.T) {
	assert.NoError(t, Validate(GetDefaultConfig()))
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string // substring of the error
	}{
		{"log level", func(c *Config) { c.Logging.Level = "LOUD" }, "oneof"},
		{"log format", func(c *Config) { c.Logging.Format = "xml" }, "Format"},
		{"transport kind", func(c *Config) { c.Transport.Kind = "udp" }, "oneof"},
		{"metrics port", func(c *Config) { c.Metrics.Enabled, c.Metrics.Port = true, 70000 }, "max"},
		{"baud rate", func(c *Config) { c.Transport.Serial.BaudRate = 12345 }, "BaudRate"},
		{"message size below header", func(c *Config) { c.Transport.MaxMessageSize = 8 * bytesize.B }, "max_message_size"},
		{"telemetry without endpoint", func(c *Config) { c.Telemetry.Enabled, c.Telemetry.Endpoint = true, "" }, "required_if"},
		{"sample rate", func(c *Config) { c.Telemetry.SampleRate = 1.5 }, "SampleRate"},
		{"negative shutdown timeout", func(c *Config) { c.ShutdownTimeout = -1 }, "ShutdownTimeout"},
		{"unknown package", func(c *Config) { c.Provider.Packages = []string{"Kerberos"} }, "Packages"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefaultConfig()
			tt.mutate(cfg)
			err := Validate(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidateUsers(t *testing.T) {
	tests := []struct {
		name string
		user UserConfig
		want string // empty when valid
	}{
		{"password", UserConfig{Username: "alice", Domain: "CORP", Password: "s3cret"}, ""},
		{"hash", UserConfig{Username: "bob", NTHash: bobHash}, ""},
		{"missing username", UserConfig{Password: "s3cret"}, "required"},
		{"no secret", UserConfig{Username: "carol"}, "required_without"},
		{"both secrets", UserConfig{Username: "dave", Password: "x", NTHash: bobHash}, "excluded_with"},
		{"short hash", UserConfig{Username: "erin", NTHash: bobHash[:8]}, "len"},
		{"non-hex hash", UserConfig{Username: "frank", NTHash: strings.Repeat("z", 32)}, "hexadecimal"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefaultConfig()
			cfg.Provider.Users = []UserConfig{tt.user}
			err := Validate(cfg)
			if tt.want == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidateErrorHidesSecrets(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Provider.Users = []UserConfig{{Username: "dave", Password: "hunter2", NTHash: bobHash}}

	err := Validate(cfg)
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "hunter2")
	assert.NotContains(t, err.Error(), bobHash[:8])
	assert.Contains(t, err.Error(), "<redacted>")
}

func TestValidateAcceptsAnyLevelCase(t *testing.T) {
	for _, level := range []string{"debug", "INFO", "warn", "ERROR"} {
		cfg := GetDefaultConfig()
		cfg.Logging.Level = level
		assert.NoError(t, Validate(cfg), level)
		assert.Equal(t, level, cfg.Logging.Level, "Validate must not normalize")
	}

	cfg := &Config{Logging: LoggingConfig{Level: "warn"}}
	ApplyDefaults(cfg)
	assert.Equal(t, "WARN", cfg.Logging.Level)
}
