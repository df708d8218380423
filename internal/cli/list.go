package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/spf13/cobra"

	"github.com/roach88/ordinal/internal/engine"
)

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list [list]",
		Short: "Show a list in display order",
		Long: `Show every record of a list in display order: fixed records first, then
each group in declaration order. Without an argument, print the names of the
stored and declared lists.

Examples:
  ordinal list
  ordinal list faq
  ordinal list team --config lists.cue --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return runLists(rootOpts, cmd)
			}
			return runList(rootOpts, cmd, args[0])
		},
	}
}

func runList(opts *RootOptions, cmd *cobra.Command, list string) error {
	f := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}

	ws, err := openWorkspace(opts)
	if err != nil {
		return err
	}
	defer ws.Close()
	ws.start(cmdContext(cmd))

	view, err := ws.engine.Exec(cmdContext(cmd), engine.Command{Kind: engine.CommandView, List: list})
	if err != nil {
		return engineFailure(f, "failed to load list", err)
	}
	return f.Success(view, func(w io.Writer) { printView(w, view) })
}

func runLists(opts *RootOptions, cmd *cobra.Command) error {
	f := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}

	ws, err := openWorkspace(opts)
	if err != nil {
		return err
	}
	defer ws.Close()

	stored, err := ws.store.Lists(cmdContext(cmd))
	if err != nil {
		return WrapExitError(ExitFailure, "failed to read lists", err)
	}
	names := mapset.NewSet(stored...)
	names.Append(ws.config.Names()...)
	sorted := names.ToSlice()
	slices.Sort(sorted)

	return f.Success(sorted, func(w io.Writer) {
		if len(sorted) == 0 {
			fmt.Fprintln(w, "No lists.")
			return
		}
		for _, name := range sorted {
			fmt.Fprintln(w, name)
		}
	})
}

// printView renders one row per record:
//
//	1. intro  [fixed] {"title":"Welcome"}
//	2. ann    [lead]
func printView(w io.Writer, v engine.View) {
	if len(v.Rows) == 0 {
		fmt.Fprintf(w, "List %s is empty.\n", v.List)
		return
	}

	width := 0
	for _, r := range v.Rows {
		width = max(width, len(r.ID))
	}
	for i, r := range v.Rows {
		fmt.Fprintf(w, "%3d. %-*s", i+1, width, r.ID)
		switch {
		case r.Fixed:
			fmt.Fprint(w, "  [fixed]")
		case r.Group != "":
			fmt.Fprintf(w, "  [%s]", r.Group)
		}
		if len(r.Data) > 0 && !isEmptyObject(r.Data) {
			fmt.Fprintf(w, " %s", r.Data)
		}
		fmt.Fprintln(w)
	}
}

func isEmptyObject(data json.RawMessage) bool {
	return string(data) == "{}" || string(data) == "null"
}
