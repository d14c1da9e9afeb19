// Package commands implements the netsspi command line.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/marmos91/netsspi/cmd/netsspi/commands/config"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"

	// Global flags.
	cfgFile       string
	outputFormat  string
	transportKind string
	address       string
	noColor       bool
)

var rootCmd = &cobra.Command{
	Use:   "netsspi",
	Short: "NetSSPI - security provider calls over a byte stream",
	Long: `NetSSPI carries security provider calls (credential acquisition, context
establishment, message signing and sealing) between a client and a provider
server over TCP, local IPC or a serial line.

"netsspi serve" runs the reference NTLM/Negotiate provider. The other commands
are clients of a running server.

Use "netsspi [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// GetRootCmd returns the root command for testing purposes.
func GetRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/netsspi/config.yaml)")
	pf.StringVarP(&outputFormat, "output", "o", "table", "Output format (table|json|yaml)")
	pf.StringVar(&transportKind, "transport", "", "Transport override (tcp|ipc|serial)")
	pf.StringVar(&address, "address", "", "Address override: host:port, socket path, pipe name or serial device")
	pf.BoolVar(&noColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(packagesCmd)
	rootCmd.AddCommand(acquireCmd)
	rootCmd.AddCommand(handshakeCmd)
	rootCmd.AddCommand(completionCmd)
	rootCmd.AddCommand(config.Cmd)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// GetConfigFile returns the config file path from the global flag.
func GetConfigFile() string {
	return cfgFile
}
