package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/marmos91/netsspi/internal/bytesize"
)

// yamlSafePath converts a filesystem path to a YAML-safe representation.
// On Windows, backslashes in double-quoted YAML strings are interpreted as
// escape sequences (e.g. \U -> Unicode escape), causing parse errors.
func yamlSafePath(p string) string {
	return filepath.ToSlash(p)
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}

func TestLoad_DefaultConfig(t *testing.T) {
	configPath := writeConfig(t, `
logging:
  level: "INFO"

transport:
  kind: tcp
  address: "127.0.0.1:5000"
  max_message_size: 64KiB
  read_timeout: 5s
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Logging.Format != "text" {
		t.Errorf("Expected default format 'text', got %q", cfg.Logging.Format)
	}
	if cfg.ShutdownTimeout != 30*time.Second {
		t.Errorf("Expected default shutdown_timeout 30s, got %v", cfg.ShutdownTimeout)
	}
	if cfg.Transport.Address != "127.0.0.1:5000" {
		t.Errorf("Expected address 127.0.0.1:5000, got %q", cfg.Transport.Address)
	}
	if cfg.Transport.MaxMessageSize != 64*bytesize.KiB {
		t.Errorf("Expected max_message_size 64KiB, got %v", cfg.Transport.MaxMessageSize)
	}
	if cfg.Transport.ReadTimeout != 5*time.Second {
		t.Errorf("Expected read_timeout 5s, got %v", cfg.Transport.ReadTimeout)
	}
	if cfg.Provider.TargetName != "NETSSPI" {
		t.Errorf("Expected default target name NETSSPI, got %q", cfg.Provider.TargetName)
	}
}

func TestLoad_NoConfigFile(t *testing.T) {
	// Loading with no config file returns a valid default config.
	cfg, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	if err != nil {
		t.Fatalf("Expected no error when loading default config, got: %v", err)
	}
	if cfg.Transport.Kind != "tcp" || cfg.Transport.Address != DefaultTCPAddress {
		t.Errorf("Expected default tcp transport, got %s %q", cfg.Transport.Kind, cfg.Transport.Address)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	configPath := writeConfig(t, `
logging:
  level: INFO
  invalid yaml here [[[
`)
	if _, err := Load(configPath); err == nil {
		t.Fatal("Expected error with invalid YAML, got nil")
	}
}

func TestLoad_InvalidTransport(t *testing.T) {
	configPath := writeConfig(t, `
transport:
  kind: carrier-pigeon
`)
	if _, err := Load(configPath); err == nil {
		t.Fatal("Expected validation error for unknown transport kind")
	}
}

func TestLoad_ProviderUsers(t *testing.T) {
	configPath := writeConfig(t, `
provider:
  target_name: CORP
  packages: [NTLM]
  users:
    - username: alice
      domain: CORP
      password: s3cret
    - username: bob
      nt_hash: 8846F7EAEE8FB117AD06BDD830B7586C
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	ntlmCfg, err := cfg.Provider.NTLMConfig()
	if err != nil {
		t.Fatalf("NTLMConfig() error = %v", err)
	}
	if len(ntlmCfg.Users) != 2 {
		t.Fatalf("Expected 2 users, got %d", len(ntlmCfg.Users))
	}
	if ntlmCfg.TargetName != "CORP" || len(ntlmCfg.Packages) != 1 {
		t.Errorf("Unexpected provider config: %+v", ntlmCfg)
	}
	if ntlmCfg.Users[1].NTHash[0] != 0x88 || ntlmCfg.Users[1].NTHash[15] != 0x6c {
		t.Errorf("bob's NT hash = %x", ntlmCfg.Users[1].NTHash)
	}
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	t.Setenv("NETSSPI_LOGGING_LEVEL", "ERROR")
	t.Setenv("NETSSPI_TRANSPORT_KIND", "ipc")
	t.Setenv("NETSSPI_TRANSPORT_ADDRESS", "/run/netsspi.sock")
	t.Setenv("NETSSPI_TRANSPORT_MAX_MESSAGE_SIZE", "2Mi")

	configPath := writeConfig(t, `
logging:
  level: "INFO"
transport:
  kind: tcp
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Logging.Level != "ERROR" {
		t.Errorf("Expected level 'ERROR' from env var, got %q", cfg.Logging.Level)
	}
	if cfg.Transport.Kind != "ipc" {
		t.Errorf("Expected kind 'ipc' from env var, got %q", cfg.Transport.Kind)
	}
	if cfg.Transport.Address != "/run/netsspi.sock" {
		t.Errorf("Expected address from env var, got %q", cfg.Transport.Address)
	}
	if cfg.Transport.MaxMessageSize != 2*bytesize.MiB {
		t.Errorf("Expected max_message_size 2Mi from env var, got %v", cfg.Transport.MaxMessageSize)
	}
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Transport.MaxMessageSize = 256 * bytesize.KiB
	cfg.Provider.Users = []UserConfig{{Username: "alice", Password: "s3cret"}}

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	if err := SaveConfig(cfg, path); err != nil {
		t.Fatalf("SaveConfig() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if perm := info.Mode().Perm(); perm&0077 != 0 && os.PathSeparator == '/' {
		t.Errorf("Expected owner-only permissions, got %v", perm)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Transport.MaxMessageSize != cfg.Transport.MaxMessageSize {
		t.Errorf("max_message_size = %v, expected %v", loaded.Transport.MaxMessageSize, cfg.Transport.MaxMessageSize)
	}
	if len(loaded.Provider.Users) != 1 || loaded.Provider.Users[0].Username != "alice" {
		t.Errorf("users = %+v", loaded.Provider.Users)
	}
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	configPath := writeConfig(t, "logging:\n  level: INFO\n")

	changed := make(chan *Config, 4)
	if err := Watch(configPath, func(cfg *Config) { changed <- cfg }, nil); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	if err := os.WriteFile(configPath, []byte("logging:\n  level: DEBUG\n"), 0644); err != nil {
		t.Fatalf("Failed to rewrite config: %v", err)
	}

	deadline := time.After(5 * time.Second)
	for {
		select {
		case cfg := <-changed:
			if cfg.Logging.Level == "DEBUG" {
				return
			}
		case <-deadline:
			t.Fatal("Watch() did not report the new log level")
		}
	}
}

func TestWatch_MissingFile(t *testing.T) {
	if err := Watch(filepath.Join(t.TempDir(), "missing.yaml"), func(*Config) {}, nil); err == nil {
		t.Fatal("Expected error watching a missing file")
	}
}

func TestGetDefaultConfigPath(t *testing.T) {
	path := GetDefaultConfigPath()

	if !filepath.IsAbs(path) {
		t.Errorf("Expected absolute path, got %q", path)
	}
	if filepath.Base(path) != "config.yaml" {
		t.Errorf("Expected filename 'config.yaml', got %q", filepath.Base(path))
	}
}

func TestGetConfigDir(t *testing.T) {
	if dir := GetConfigDir(); filepath.Base(dir) != "netsspi" {
		t.Errorf("Expected directory name 'netsspi', got %q", filepath.Base(dir))
	}
}
