package cli

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/covidchart/pkg/series"
)

// completionTimeout bounds the source lookup behind key completion.
const completionTimeout = 3 * time.Second

// completionCommand creates the completion command for generating shell completions.
func (c *CLI) completionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for covidchart.

To load completions:

Bash:
  $ source <(covidchart completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ covidchart completion bash > /etc/bash_completion.d/covidchart
  # macOS:
  $ covidchart completion bash > $(brew --prefix)/etc/bash_completion.d/covidchart

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. You can execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # To load completions for each session, execute once:
  $ covidchart completion zsh > "${fpath[1]}/_covidchart"

  # You will need to start a new shell for this setup to take effect.

Fish:
  $ covidchart completion fish | source

  # To load completions for each session, execute once:
  $ covidchart completion fish > ~/.config/fish/completions/covidchart.fish

PowerShell:
  PS> covidchart completion powershell | Out-String | Invoke-Expression

  # To load completions for every new session, run:
  PS> covidchart completion powershell > covidchart.ps1
  # and source this file from your PowerShell profile.
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletionV2(stdout, true)
			case "zsh":
				return cmd.Root().GenZshCompletion(stdout)
			case "fish":
				return cmd.Root().GenFishCompletion(stdout, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(stdout)
			}
			return nil
		},
	}

	return cmd
}

// completeKeys completes series keys from the vintage list: country names,
// and "country/vintage" once a slash is typed. Countries without any
// prediction are not offered.
func (c *CLI) completeKeys(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if err := c.loadConfig(); err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), completionTimeout)
	defer cancel()
	vs, err := c.listVintages(ctx, "")
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return keyCandidates(vs, toComplete), cobra.ShellCompDirectiveNoFileComp | cobra.ShellCompDirectiveNoSpace
}

func keyCandidates(vs []series.Vintage, prefix string) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(s string) {
		if !seen[s] && strings.HasPrefix(s, prefix) {
			seen[s] = true
			out = append(out, s)
		}
	}
	country, _, withVintage := strings.Cut(prefix, "/")
	for _, v := range vs {
		for _, ct := range v.Countries {
			if withVintage {
				if ct == country {
					add(series.PredictionKey(ct, v.ID).String())
				}
				continue
			}
			add(ct)
		}
	}
	sort.Strings(out)
	return out
}
