package config

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/marmos91/netsspi/pkg/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration file",
	Long: `Validate the NetSSPI configuration file.

Checks for syntax errors, missing required fields, invalid values and
provider users that cannot be hashed.

Examples:
  netsspi config validate
  netsspi config validate --config /etc/netsspi/config.yaml`,
	Args: cobra.NoArgs,
	RunE: runConfigValidate,
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")

	cfg, err := config.MustLoad(configPath)
	if err != nil {
		return err
	}
	if _, err := cfg.Provider.NTLMConfig(); err != nil {
		return fmt.Errorf("provider: %w", err)
	}

	displayPath := configPath
	if displayPath == "" {
		displayPath = config.GetDefaultConfigPath()
	}

	var warnings []string
	if len(cfg.Provider.Users) == 0 {
		warnings = append(warnings, "no provider users configured: only anonymous logons will be accepted")
	}
	if cfg.Transport.Kind == "tcp" && !strings.HasPrefix(cfg.Transport.Address, "127.") && !strings.HasPrefix(cfg.Transport.Address, "localhost") {
		warnings = append(warnings, "tcp transport listens beyond loopback and carries no transport security")
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Configuration file: %s\n", displayPath)
	_, _ = fmt.Fprintln(out, "Validation: OK")

	if len(warnings) > 0 {
		_, _ = fmt.Fprintln(out, "\nWarnings:")
		for _, w := range warnings {
			_, _ = fmt.Fprintf(out, "  - %s\n", w)
		}
	}

	packages := "NTLM, Negotiate"
	if len(cfg.Provider.Packages) > 0 {
		packages = strings.Join(cfg.Provider.Packages, ", ")
	}

	_, _ = fmt.Fprintf(out, "\nConfiguration summary:\n")
	_, _ = fmt.Fprintf(out, "  Transport:       %s\n", cfg.Transport.Kind)
	_, _ = fmt.Fprintf(out, "  Address:         %s\n", cfg.Transport.Address)
	_, _ = fmt.Fprintf(out, "  Max message:     %s\n", cfg.Transport.MaxMessageSize)
	_, _ = fmt.Fprintf(out, "  Packages:        %s\n", packages)
	_, _ = fmt.Fprintf(out, "  Users:           %d\n", len(cfg.Provider.Users))
	_, _ = fmt.Fprintf(out, "  Log level:       %s\n", cfg.Logging.Level)
	return nil
}
