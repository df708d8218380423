package reorder

import "slices"

// Box is the vertical extent of a drop target on screen.
type Box struct {
	Top    float64 `json:"top"`
	Height float64 `json:"height"`
}

// Mid returns the vertical midpoint of the box.
func (b Box) Mid() float64 {
	return b.Top + b.Height/2
}

// Upper returns a pointer position inside the upper half of the box.
func (b Box) Upper() float64 {
	return b.Top + b.Height/4
}

// Lower returns a pointer position inside the lower half of the box.
func (b Box) Lower() float64 {
	return b.Top + 3*b.Height/4
}

// RowBox returns the box of row index in a uniform list of the given row height.
// Used by non-pointer callers (CLI, scenarios) to synthesize drag geometry.
func RowBox(index int, height float64) Box {
	return Box{Top: float64(index) * height, Height: height}
}

// DragState is the state of a Tracker.
type DragState int

const (
	// DragIdle means no gesture is in progress.
	DragIdle DragState = iota
	// DragActive means a record is being dragged.
	DragActive
)

// String returns the state name.
func (s DragState) String() string {
	switch s {
	case DragIdle:
		return "idle"
	case DragActive:
		return "dragging"
	default:
		return "unknown"
	}
}

// Tracker turns drag events into preview mutations of a List.
//
// State machine:
//
//	Idle     --Start(id)-->        Dragging (restore point captured)
//	Dragging --Over(hover,box,y)--> Dragging (at most one mutation per new index)
//	Dragging --Drop(target)-->     Idle     (order handed to the Synchronizer)
//	Dragging --End()/Cancel()-->   Idle     (restore point reapplied)
//
// Nothing in the Tracker performs I/O.
type Tracker[P any] struct {
	list    *List[P]
	state   DragState
	dragID  string
	restore []string
}

// NewTracker creates an idle tracker over list.
func NewTracker[P any](list *List[P]) *Tracker[P] {
	return &Tracker[P]{list: list}
}

// State returns the current state.
func (t *Tracker[P]) State() DragState {
	return t.state
}

// Dragging returns the id being dragged, or "" when idle.
func (t *Tracker[P]) Dragging() string {
	return t.dragID
}

// Start begins a gesture on id. It returns false if a gesture is already
// active or id is not in the list.
func (t *Tracker[P]) Start(id string) bool {
	if t.state != DragIdle || !t.list.Contains(id) {
		return false
	}
	t.state = DragActive
	t.dragID = id
	t.restore = t.list.IDs()
	return true
}

// Over handles the pointer hovering hoveredID, whose box is box, at pointerY.
// It returns true only if the preview order changed.
func (t *Tracker[P]) Over(hoveredID string, box Box, pointerY float64) bool {
	if t.state != DragActive || hoveredID == t.dragID {
		return false
	}
	hovered := t.list.Index(hoveredID)
	current := t.list.Index(t.dragID)
	if hovered < 0 || current < 0 {
		return false
	}

	target := hovered
	if pointerY >= box.Mid() {
		target = hovered + 1
	}
	// Removing the dragged record shifts everything after it up by one.
	insertAt := target
	if target > current {
		insertAt = target - 1
	}
	if insertAt == current {
		return false
	}

	ids := t.list.IDs()
	ids = slices.Delete(ids, current, current+1)
	ids = slices.Insert(ids, insertAt, t.dragID)
	return t.list.SetOrder(ids) == nil
}

// Drop finishes the gesture on targetID, keeping the preview. It returns the
// order to commit and whether a commit should happen.
//
// A drop onto another record of this list always commits, even when nothing
// moved. A drop onto the dragged record itself, or onto a record this list
// does not hold, commits only if the preview moved something; otherwise it
// is a no-op.
func (t *Tracker[P]) Drop(targetID string) ([]string, bool) {
	if t.state != DragActive {
		return nil, false
	}
	ids, restore := t.list.IDs(), t.restore
	stray := targetID == t.dragID || !t.list.Contains(targetID)
	t.reset()
	if stray && slices.Equal(ids, restore) {
		return nil, false
	}
	return ids, true
}

// End finishes a gesture that had no drop: the preview is discarded and the
// order captured at Start is restored. A no-op when idle.
func (t *Tracker[P]) End() {
	if t.state != DragActive {
		return
	}
	restore := t.restore
	t.reset()
	// The list may have been re-initialized with different members; a failed
	// restore keeps the authoritative order.
	_ = t.list.SetOrder(restore)
}

// Cancel is End under the name used by explicit cancel events.
func (t *Tracker[P]) Cancel() {
	t.End()
}

// Abort forgets the gesture without touching the list. Used when an
// authoritative snapshot replaces the list mid-drag.
func (t *Tracker[P]) Abort() {
	t.reset()
}

func (t *Tracker[P]) reset() {
	t.state = DragIdle
	t.dragID = ""
	t.restore = nil
}
