package config

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/marmos91/netsspi/pkg/config"
)

var editCmd = &cobra.Command{
	Use:   "edit",
	Short: "Open the configuration in an editor",
	Long: `Open the configuration file in $EDITOR, then $VISUAL, then vi.

A running server picks up log level changes on save.

Examples:
  netsspi config edit
  netsspi config edit --config /etc/netsspi/config.yaml`,
	Args: cobra.NoArgs,
	RunE: runConfigEdit,
}

func runConfigEdit(cmd *cobra.Command, args []string) error {
	configPath := configPathFlag(cmd)
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return fmt.Errorf("configuration file not found: %s\n\n"+
			"Create it first with:\n"+
			"  netsspi init --config %s",
			configPath, configPath)
	}

	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = os.Getenv("VISUAL")
	}
	if editor == "" {
		editor = "vi"
	}

	editorCmd := exec.Command(editor, configPath)
	editorCmd.Stdin = os.Stdin
	editorCmd.Stdout = os.Stdout
	editorCmd.Stderr = os.Stderr
	if err := editorCmd.Run(); err != nil {
		return fmt.Errorf("failed to run editor: %w", err)
	}

	if _, err := config.Load(configPath); err != nil {
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Warning: edited configuration is invalid: %v\n", err)
	}
	return nil
}

// configPathFlag returns the --config value, or the default path.
func configPathFlag(cmd *cobra.Command) string {
	configPath, _ := cmd.Flags().GetString("config")
	if configPath == "" {
		configPath = config.GetDefaultConfigPath()
	}
	return configPath
}
