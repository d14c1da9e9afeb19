package commands

import (
	"io"

	"github.com/spf13/cobra"
)

var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion script",
	Long: `Generate shell completion script for netsspi.

Bash:
  $ netsspi completion bash > /etc/bash_completion.d/netsspi

Zsh:
  $ netsspi completion zsh > "${fpath[1]}/_netsspi"

Fish:
  $ netsspi completion fish > ~/.config/fish/completions/netsspi.fish

PowerShell:
  PS> netsspi completion powershell | Out-String | Invoke-Expression
`,
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		return completionGenerators[args[0]](cmd.Root(), cmd.OutOrStdout())
	},
}

var completionGenerators = map[string]func(*cobra.Command, io.Writer) error{
	"bash":       (*cobra.Command).GenBashCompletion,
	"zsh":        (*cobra.Command).GenZshCompletion,
	"powershell": (*cobra.Command).GenPowerShellCompletionWithDesc,
	"fish": func(root *cobra.Command, w io.Writer) error {
		return root.GenFishCompletion(w, true)
	},
}
