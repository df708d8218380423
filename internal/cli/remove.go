package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/ordinal/internal/store"
)

// NewRemoveCommand creates the remove command.
func NewRemoveCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <list> <id>",
		Short: "Delete a record",
		Long: `Delete a record from a list. The remaining records keep their sort
order; the next reorder renumbers them.

Example:
  ordinal remove faq returns`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRemove(rootOpts, cmd, args[0], args[1])
		},
	}
}

func runRemove(opts *RootOptions, cmd *cobra.Command, list, id string) error {
	f := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}

	ws, err := openWorkspace(opts)
	if err != nil {
		return err
	}
	defer ws.Close()

	if err := ws.store.DeleteRecord(cmdContext(cmd), list, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return WrapExitError(ExitCommandError, fmt.Sprintf("no record %s in list %s", id, list), err)
		}
		return WrapExitError(ExitCommandError, "failed to delete record", err)
	}

	return f.Success(map[string]string{"list": list, "removed": id}, func(w io.Writer) {
		fmt.Fprintf(w, "Removed %s from %s.\n", id, list)
	})
}
