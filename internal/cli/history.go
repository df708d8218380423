package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/ordinal/internal/store"
)

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "history <list>",
		Short: "Show the reorder commits of a list",
		Long: `Show every reorder commit logged for a list, oldest first.

Each commit names its token, group, the fingerprint of the instruction set,
and how many rows actually changed.

Examples:
  ordinal history faq
  ordinal history team --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(rootOpts, cmd, args[0])
		},
	}
}

func runHistory(opts *RootOptions, cmd *cobra.Command, list string) error {
	f := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}

	ws, err := openWorkspace(opts)
	if err != nil {
		return err
	}
	defer ws.Close()

	commits, err := ws.store.Commits(cmdContext(cmd), list)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read commits", err)
	}

	return f.Success(commits, func(w io.Writer) { printCommits(w, list, commits) })
}

func printCommits(w io.Writer, list string, commits []store.Commit) {
	if len(commits) == 0 {
		fmt.Fprintf(w, "No commits for list %s.\n", list)
		return
	}
	for _, c := range commits {
		group := c.Group
		if group == "" {
			group = "-"
		}
		fp := c.Fingerprint
		if len(fp) > 12 {
			fp = fp[:12]
		}
		fmt.Fprintf(w, "#%d %s group=%s records=%d changed=%d fingerprint=%s\n",
			c.Seq, c.Token, group, c.Size, c.Changed, fp)
	}
}
