package cli

import (
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/ordinal/internal/engine"
	"github.com/roach88/ordinal/internal/reorder"
)

// NewMoveCommand creates the move command.
func NewMoveCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "move <list> <id> up|down",
		Short: "Move a record one slot up or down",
		Long: `Move a record one slot within its group and save the new order.

Moving the first record up or the last record down changes nothing.

Exit codes:
  0 - Order saved, or nothing to move
  1 - Order not saved (busy or persist failure)
  2 - Command error (unknown list, bad direction, database error)

Examples:
  ordinal move faq shipping up
  ordinal move team bob down --config lists.cue`,
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMove(rootOpts, cmd, args[0], args[1], args[2])
		},
	}
}

func runMove(opts *RootOptions, cmd *cobra.Command, list, id, direction string) error {
	f := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}

	dir, err := reorder.ParseDirection(direction)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid direction", err)
	}

	ws, err := openWorkspace(opts)
	if err != nil {
		return err
	}
	defer ws.Close()
	ctx := cmdContext(cmd)
	ws.start(ctx)

	before, err := ws.engine.Exec(ctx, engine.Command{Kind: engine.CommandView, List: list})
	if err != nil {
		return engineFailure(f, "failed to load list", err)
	}
	view, err := ws.engine.Exec(ctx, engine.Command{Kind: engine.CommandMove, List: list, ID: id, Direction: dir})
	if err != nil {
		return engineFailure(f, fmt.Sprintf("failed to move %s", id), err)
	}

	moved := !slices.Equal(before.IDs(), view.IDs())
	return f.Success(moveResult{Moved: moved, View: view}, func(w io.Writer) {
		if moved {
			fmt.Fprintf(w, "Moved %s %s.\n", id, dir)
		} else {
			fmt.Fprintf(w, "Nothing to move: %s cannot move %s.\n", id, dir)
		}
		printView(w, view)
	})
}

// moveResult is the JSON payload of move and place.
type moveResult struct {
	Moved bool        `json:"moved"`
	View  engine.View `json:"view"`
}
