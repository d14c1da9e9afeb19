// Command netsspi runs and exercises NetSSPI proxy servers.
package main

import (
	"fmt"
	"os"

	"github.com/marmos91/netsspi/cmd/netsspi/commands"
)

// Set with -ldflags "-X main.version=...".
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.Version, commands.Commit, commands.Date = version, commit, date

	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "netsspi:", err)
		os.Exit(1)
	}
}
