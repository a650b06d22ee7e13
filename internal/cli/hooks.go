package cli

import (
	"fmt"

	"github.com/glorpus-work/apkfetch/pkg/hooks"
	"github.com/spf13/cobra"
)

// NewHooksCmd creates the hooks command.
func NewHooksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hooks",
		Short: "Work with hook scripts",
	}

	cmd.AddCommand(newHooksTemplateCmd())
	return cmd
}

func newHooksTemplateCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "template <post-resolve|post-download>",
		Short:     "Print a starter script for a hook",
		Long:      "Print a commented Tengo script listing the variables available to the given hook",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(hooks.PostResolve), string(hooks.PostDownload)},
		RunE: func(cmd *cobra.Command, args []string) error {
			hookType := hooks.HookType(args[0])
			if !hookType.IsValid() {
				return hooks.ErrUnsupportedHookEvent(args[0])
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), hooks.HookTemplate(hookType))
			return err
		},
	}
}
