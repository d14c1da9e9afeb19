package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/netsspi/internal/cli/prompt"
	"github.com/marmos91/netsspi/pkg/config"
)

var (
	initForce bool
	initYes   bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a sample configuration file",
	Long: `Initialize a sample NetSSPI configuration file.

By default, the configuration file is created at $XDG_CONFIG_HOME/netsspi/config.yaml.
Use --config to specify a custom path.

Examples:
  # Initialize with default location
  netsspi init

  # Initialize with custom path
  netsspi init --config /etc/netsspi/config.yaml

  # Overwrite an existing config without asking
  netsspi init --force --yes`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing config file")
	initCmd.Flags().BoolVarP(&initYes, "yes", "y", false, "Do not ask before overwriting")
}

func runInit(cmd *cobra.Command, args []string) error {
	configPath := GetConfigFile()
	if configPath == "" {
		configPath = config.GetDefaultConfigPath()
	}

	if initForce && fileExists(configPath) {
		ok, err := prompt.ConfirmWithForce(fmt.Sprintf("Overwrite %s", configPath), initYes)
		if err != nil {
			return err
		}
		if !ok {
			return prompt.ErrAborted
		}
	}

	if err := config.InitConfigToPath(configPath, initForce); err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Configuration file created at: %s\n", configPath)
	_, _ = fmt.Fprintln(out, "\nNext steps:")
	_, _ = fmt.Fprintln(out, "  1. Add provider users, or leave them out to allow anonymous logons only")
	_, _ = fmt.Fprintln(out, "  2. Start the server with: netsspi serve")
	_, _ = fmt.Fprintln(out, "  3. Try a loopback handshake: netsspi handshake --user alice --prompt")
	return nil
}
