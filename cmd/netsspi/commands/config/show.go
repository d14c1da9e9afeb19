package config

import (
	"github.com/spf13/cobra"

	"github.com/marmos91/netsspi/internal/cli/output"
	"github.com/marmos91/netsspi/pkg/config"
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Long: `Print the configuration after defaults and NETSSPI_* environment
overrides are applied. Passwords are replaced with a placeholder.

Examples:
  netsspi config show
  netsspi config show -o json`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.MustLoad(configPath)
	if err != nil {
		return err
	}

	for i := range cfg.Provider.Users {
		if cfg.Provider.Users[i].Password != "" {
			cfg.Provider.Users[i].Password = "********"
		}
	}

	format, _ := cmd.Flags().GetString("output")
	if format == string(output.FormatJSON) {
		return output.PrintJSON(cmd.OutOrStdout(), cfg)
	}
	return output.PrintYAML(cmd.OutOrStdout(), cfg)
}
