package engine

import (
	"encoding/json"

	"github.com/roach88/ordinal/internal/reorder"
)

// CommandKind selects what a Command does.
type CommandKind int

const (
	// CommandView returns the current view, loading the list on first use.
	CommandView CommandKind = iota + 1
	// CommandLoad re-reads the list from the backend (refresh).
	CommandLoad
	// CommandDragStart begins dragging ID.
	CommandDragStart
	// CommandDragOver previews ID hovering Target at PointerY within Box.
	CommandDragOver
	// CommandDrop drops ID onto Target and commits.
	CommandDrop
	// CommandDragEnd ends a gesture on ID without a drop.
	CommandDragEnd
	// CommandCancel cancels the gesture on ID.
	CommandCancel
	// CommandMove moves ID one slot in Direction and commits.
	CommandMove
)

var commandKindNames = map[CommandKind]string{
	CommandView:      "view",
	CommandLoad:      "load",
	CommandDragStart: "drag_start",
	CommandDragOver:  "drag_over",
	CommandDrop:      "drop",
	CommandDragEnd:   "drag_end",
	CommandCancel:    "cancel",
	CommandMove:      "move",
}

func (k CommandKind) String() string {
	if s, ok := commandKindNames[k]; ok {
		return s
	}
	return "unknown"
}

// Command is a request against one list. Which fields matter depends on Kind.
type Command struct {
	Kind CommandKind
	List string

	// ID is the record acted on (the dragged or moved record).
	ID string
	// Target is the hovered or dropped-on record.
	Target string

	Box       reorder.Box
	PointerY  float64
	Direction reorder.Direction

	reply chan result
}

type result struct {
	outcome Outcome
	err     error
}

// Outcome is the engine's answer to a Command.
type Outcome struct {
	View View
	// Changed reports whether a drag-over changed the preview.
	Changed bool
	// Committed is non-nil when the command started a commit. It receives
	// exactly one value: nil on success or the persist error.
	Committed <-chan error
}

// View is a render-ready snapshot of one list.
type View struct {
	List   string        `json:"list"`
	Seq    int64         `json:"seq"`
	Rows   []Row         `json:"rows"`
	Groups []GroupStatus `json:"groups"`
}

// Row is one rendered record.
type Row struct {
	ID        string          `json:"id"`
	SortOrder int64           `json:"sort_order"`
	Group     string          `json:"group,omitempty"`
	Fixed     bool            `json:"fixed,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// GroupStatus is the UI-facing state of one group.
type GroupStatus struct {
	Name      string `json:"name"`
	Numbering string `json:"numbering"`
	Saving    bool   `json:"saving"`
	Dragging  string `json:"dragging,omitempty"`
	LastError string `json:"last_error,omitempty"`
}

// IDs returns the row ids in render order.
func (v View) IDs() []string {
	ids := make([]string, len(v.Rows))
	for i, r := range v.Rows {
		ids[i] = r.ID
	}
	return ids
}

// Saving reports whether any group has a commit in flight.
func (v View) Saving() bool {
	for _, g := range v.Groups {
		if g.Saving {
			return true
		}
	}
	return false
}
