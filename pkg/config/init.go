package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const configHeader = `# NetSSPI Configuration File
#
# Every key can be overridden from the environment as NETSSPI_<SECTION>_<KEY>,
# for example NETSSPI_TRANSPORT_KIND=ipc or NETSSPI_LOGGING_LEVEL=DEBUG.
#
# Durations use Go syntax ("30s", "5m"); sizes accept "64KiB", "1Mi", "1MB".

`

const usersExample = `
# Accounts accepted by the reference provider. Without users only anonymous
# logons succeed. Give either a password or the hex NT hash, never both.
#
# provider:
#   users:
#     - username: alice
#       domain: CORP
#       password: change-me
#     - username: bob
#       nt_hash: 8846f7eaee8fb117ad06bdd830b7586c
`

// InitConfig writes a default configuration to the default location and
// returns its path. An existing file is only replaced when force is set.
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()
	if err := InitConfigToPath(path, force); err != nil {
		return "", err
	}
	return path, nil
}

// InitConfigToPath writes a default configuration to path.
func InitConfigToPath(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("configuration file already exists at %s (use --force to overwrite)", path)
		}
	}

	data, err := yaml.Marshal(GetDefaultConfig())
	if err != nil {
		return fmt.Errorf("failed to marshal default config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	content := configHeader + string(data) + usersExample
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
