package main

import (
	"github.com/spf13/cobra"
)

var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion script",
	Long: `Generate shell completion script for stp2stl.

To load completions:

Bash:

  $ source <(stp2stl completion bash)

  To load completions for each session, execute once:
  Linux:
    $ stp2stl completion bash > /etc/bash_completion.d/stp2stl
  macOS:
    $ stp2stl completion bash > /usr/local/etc/bash_completion.d/stp2stl

Zsh:

  If shell completion is not already enabled in your environment,
  you will need to enable it. You can execute the following once:

  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  To load completions for each session, execute once:
  $ stp2stl completion zsh > "${fpath[1]}/_stp2stl"

  You will need to start a new shell for this setup to take effect.

Fish:

  $ stp2stl completion fish | source

  To load completions for each session, execute once:
  $ stp2stl completion fish > ~/.config/fish/completions/stp2stl.fish

PowerShell:

  PS> stp2stl completion powershell | Out-String | Invoke-Expression
`,
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		switch args[0] {
		case "bash":
			return rootCmd.GenBashCompletionV2(out, true)
		case "zsh":
			return rootCmd.GenZshCompletion(out)
		case "fish":
			return rootCmd.GenFishCompletion(out, true)
		}
		return rootCmd.GenPowerShellCompletionWithDesc(out)
	},
}

func init() {
	rootCmd.AddCommand(completionCmd)
}
