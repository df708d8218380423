package cli

import (
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/ordinal/internal/engine"
	"github.com/roach88/ordinal/internal/reorder"
)

// rowHeight is the synthetic row height place uses to build drag geometry.
const rowHeight = 40

// PlaceOptions holds flags for the place command.
type PlaceOptions struct {
	*RootOptions
	Before string
	After  string
}

// NewPlaceCommand creates the place command.
func NewPlaceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PlaceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "place <list> <id> (--before <target> | --after <target>)",
		Short: "Drag a record next to another record",
		Long: `Place a record directly before or after a target by replaying a drag:
the pointer hovers the upper or lower half of the target row, then drops.

The target must be in the same group; a drag across groups changes nothing.

Examples:
  ordinal place faq returns --before shipping
  ordinal place team cy --after di --config lists.cue`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlace(opts, cmd, args[0], args[1])
		},
	}

	cmd.Flags().StringVar(&opts.Before, "before", "", "place the record before this target")
	cmd.Flags().StringVar(&opts.After, "after", "", "place the record after this target")
	cmd.MarkFlagsMutuallyExclusive("before", "after")
	cmd.MarkFlagsOneRequired("before", "after")

	return cmd
}

func runPlace(opts *PlaceOptions, cmd *cobra.Command, list, id string) error {
	f := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}

	target, lower := opts.Before, false
	if opts.After != "" {
		target, lower = opts.After, true
	}

	ws, err := openWorkspace(opts.RootOptions)
	if err != nil {
		return err
	}
	defer ws.Close()
	ctx := cmdContext(cmd)
	ws.start(ctx)

	view, err := ws.engine.Exec(ctx, engine.Command{Kind: engine.CommandView, List: list})
	if err != nil {
		return engineFailure(f, "failed to load list", err)
	}
	row := slices.Index(view.IDs(), target)
	if row < 0 {
		return NewExitError(ExitCommandError, fmt.Sprintf("target %q is not in list %s", target, list))
	}

	if _, err := ws.engine.Submit(ctx, engine.Command{Kind: engine.CommandDragStart, List: list, ID: id}); err != nil {
		return engineFailure(f, fmt.Sprintf("failed to drag %s", id), err)
	}

	box := reorder.RowBox(row, rowHeight)
	y := box.Upper()
	if lower {
		y = box.Lower()
	}
	over, err := ws.engine.Submit(ctx, engine.Command{Kind: engine.CommandDragOver, List: list, ID: id, Target: target, Box: box, PointerY: y})
	if err != nil {
		return engineFailure(f, fmt.Sprintf("failed to drag %s", id), err)
	}

	kind := engine.CommandDrop
	if !over.Changed {
		kind = engine.CommandCancel
	}
	view, err = ws.engine.Exec(ctx, engine.Command{Kind: kind, List: list, ID: id, Target: target})
	if err != nil {
		return engineFailure(f, fmt.Sprintf("failed to place %s", id), err)
	}

	return f.Success(moveResult{Moved: over.Changed, View: view}, func(w io.Writer) {
		if over.Changed {
			fmt.Fprintf(w, "Placed %s %s %s.\n", id, placement(lower), target)
		} else {
			fmt.Fprintf(w, "Nothing to place: %s is already %s %s or cannot reach it.\n", id, placement(lower), target)
		}
		printView(w, view)
	})
}

func placement(lower bool) string {
	if lower {
		return "after"
	}
	return "before"
}
