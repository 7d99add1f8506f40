package cli

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/labeltower/pkg/render"
)

// completionTimeout bounds store lookups made while completing run IDs.
const completionTimeout = 2 * time.Second

// completionCommand creates the completion command for generating shell completions.
func (c *CLI) completionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for labeltower.

Run IDs of "runs show" and "runs delete" complete from the configured store,
output formats complete for --format.

Bash:
  $ source <(labeltower completion bash)

Zsh:
  $ labeltower completion zsh > "${fpath[1]}/_labeltower"

Fish:
  $ labeltower completion fish > ~/.config/fish/completions/labeltower.fish

PowerShell:
  PS> labeltower completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletionV2(os.Stdout, true)
			case "zsh":
				return cmd.Root().GenZshCompletion(os.Stdout)
			case "fish":
				return cmd.Root().GenFishCompletion(os.Stdout, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(os.Stdout)
			}
			return nil
		},
	}
}

// completeFormats completes a comma-separated --format value.
func completeFormats(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	prefix := ""
	if i := strings.LastIndex(toComplete, ","); i >= 0 {
		prefix = toComplete[:i+1]
	}
	seen := make(map[string]bool)
	for _, f := range parseFormats(prefix) {
		seen[f] = true
	}

	var out []string
	for _, f := range render.Formats {
		if !seen[f] {
			out = append(out, prefix+f)
		}
	}
	return out, cobra.ShellCompDirectiveNoFileComp | cobra.ShellCompDirectiveNoSpace
}

// runIDCompletion completes run IDs from the configured store, up to limit
// arguments (0 for any number).
func (c *CLI) runIDCompletion(limit int) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		if limit > 0 && len(args) >= limit {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		return c.completeRunIDs(args, toComplete)
	}
}

// completeRunIDs lists stored run IDs starting with toComplete. Completion
// skips the root pre-run, so the config is loaded here.
func (c *CLI) completeRunIDs(args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if c.cfg == nil {
		if err := c.loadConfig(); err != nil {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), completionTimeout)
	defer cancel()

	st, err := newStore(ctx, c.config().Store)
	if err != nil || st == nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	defer st.Close(ctx)

	runs, err := st.List(ctx, 0)
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	taken := make(map[string]bool, len(args))
	for _, a := range args {
		taken[a] = true
	}
	var out []string
	for _, r := range runs {
		if taken[r.RunID] || !strings.HasPrefix(r.RunID, toComplete) {
			continue
		}
		out = append(out, r.RunID+"\t"+r.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
	return out, cobra.ShellCompDirectiveNoFileComp
}
