package harness

import "github.com/roach88/ordinal/internal/reorder"

// TraceEvent records one executed step.
type TraceEvent struct {
	Seq    int    `json:"seq"`
	Action string `json:"action"` // human-readable, e.g. "drag c onto a (upper)"

	// Order is the rendered order after the step.
	Order []string `json:"order"`

	// Persisted is the instruction set sent to a persister by this step, if
	// any.
	Persisted reorder.Instructions `json:"persisted,omitempty"`

	// Error is the step's error code and cause, if it failed.
	Error string `json:"error,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall success: every step behaved as expected and
	// the final expectations hold.
	Pass bool `json:"pass"`

	// Trace contains one event per step, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Order is the final rendered order.
	Order []string `json:"order"`

	// Stored is the persisted state, one slice per group in render order.
	Stored [][]reorder.Assignment `json:"stored"`

	// PersistCalls is the total number of persist calls.
	PersistCalls int `json:"persist_calls"`

	// MaxInFlight is the highest number of concurrent persist calls seen
	// by any single group.
	MaxInFlight int `json:"max_in_flight"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends a step to the trace.
func (r *Result) AddTrace(e TraceEvent) {
	r.Trace = append(r.Trace, e)
}

// StoredMap flattens Stored into id -> sort order.
func (r *Result) StoredMap() map[string]int64 {
	out := make(map[string]int64)
	for _, group := range r.Stored {
		for _, a := range group {
			out[a.ID] = a.SortOrder
		}
	}
	return out
}
