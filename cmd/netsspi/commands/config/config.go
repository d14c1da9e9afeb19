// Package config implements the "netsspi config" subcommands.
package config

import "github.com/spf13/cobra"

// Cmd is the parent command for configuration management.
var Cmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and edit the configuration file",
	Long: `Inspect and edit the NetSSPI configuration file.

Use "netsspi init" to create a configuration file.`,
}

func init() {
	Cmd.AddCommand(showCmd)
	Cmd.AddCommand(validateCmd)
	Cmd.AddCommand(schemaCmd)
	Cmd.AddCommand(editCmd)
}
