package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"

	"github.com/roach88/ordinal/internal/reorder"
	"github.com/roach88/ordinal/internal/testutil"
)

// rowHeight is the synthetic height of every rendered row.
const rowHeight = 40

// body is the payload of a scenario record.
type body struct {
	Group string
	Fixed bool
}

type record = reorder.Item[body]

// Harness executes one scenario against a Partition whose groups persist to
// fake persisters.
type Harness struct {
	scenario  *Scenario
	partition *reorder.Partition[body]
	fakes     map[string]*testutil.FakePersister[body]
	groups    []string
	fixed     []record
	logger    *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Execution flow:
// 1. Split the items into fixed records and one fake persister per group
// 2. Build the partition and load the items
// 3. Execute the steps, recording one trace event each
// 4. Check the expectations and the single-flight and grouping invariants
func Run(scenario *Scenario) (*Result, error) {
	if err := validateScenario(scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	h := newHarness(scenario)
	ctx := context.Background()

	if err := h.partition.Reset(toRecords(scenario.Items)); err != nil {
		return nil, fmt.Errorf("failed to load items: %w", err)
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		event, err := h.execute(ctx, i+1, step)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i+1, err)
		}
		result.AddTrace(event)
		checkStepError(result, event, step)
	}

	if err := h.finish(result); err != nil {
		return nil, err
	}
	for _, msg := range EvaluateExpect(result, scenario.Expect) {
		result.AddError(msg)
	}
	return result, nil
}

func newHarness(s *Scenario) *Harness {
	groups := s.Groups
	if len(groups) == 0 {
		groups = []string{""}
	}

	h := &Harness{
		scenario: s,
		fakes:    make(map[string]*testutil.FakePersister[body], len(groups)),
		groups:   groups,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}

	byGroup := make(map[string][]record, len(groups))
	for _, it := range toRecords(s.Items) {
		g, ok := classify(it)
		if ok && slices.Contains(groups, g) {
			byGroup[g] = append(byGroup[g], it)
		} else {
			h.fixed = append(h.fixed, it)
		}
	}
	for _, g := range groups {
		h.fakes[g] = testutil.NewFakePersister(byGroup[g]).ReturnSnapshots()
	}

	h.partition = reorder.NewPartition(s.Name, groups, classify,
		func(group string) reorder.Persister[body] { return h.fakes[group] },
		reorder.WithNumbering(s.numbering()),
		reorder.WithLogger(h.logger),
	)
	return h
}

func classify(it record) (string, bool) {
	if it.Payload.Fixed {
		return "", false
	}
	return it.Payload.Group, true
}

func toRecords(specs []ItemSpec) []record {
	out := make([]record, len(specs))
	for i, it := range specs {
		out[i] = record{ID: it.ID, SortOrder: it.SortOrder, Payload: body{Group: it.Group, Fixed: it.Fixed}}
	}
	return out
}

// execute runs one step. Step failures are recorded in the event; the
// returned error is reserved for a broken harness.
func (h *Harness) execute(ctx context.Context, seq int, step Step) (TraceEvent, error) {
	event := TraceEvent{Seq: seq}
	calls := h.callCounts()

	var stepErr error
	switch step.Action() {
	case ActionDrag:
		event.Action = fmt.Sprintf("drag %s onto %s (%s)", step.Drag.ID, step.Drag.Onto, half(step.Drag))
		stepErr = h.drag(ctx, step.Drag, false)

	case ActionCancel:
		event.Action = fmt.Sprintf("drag %s over %s (%s), cancel", step.Cancel.ID, step.Cancel.Onto, half(step.Cancel))
		stepErr = h.drag(ctx, step.Cancel, true)

	case ActionMove:
		dir, _ := reorder.ParseDirection(step.Move.Direction)
		event.Action = fmt.Sprintf("move %s %s", step.Move.ID, dir)
		if sess, ok := h.partition.SessionFor(step.Move.ID); ok {
			stepErr = sess.Move(ctx, step.Move.ID, dir)
		}

	case ActionFailNext:
		event.Action = "fail next persist"
		if step.FailNext.Group != "" {
			event.Action += " in " + step.FailNext.Group
		}
		event.Action += ": " + step.FailNext.Error
		h.fakes[step.FailNext.Group].FailNext(errors.New(step.FailNext.Error))

	case ActionDelete:
		event.Action = fmt.Sprintf("delete %s remotely", step.Delete)
		for _, f := range h.fakes {
			f.Delete(step.Delete)
		}
		h.fixed = slices.DeleteFunc(h.fixed, func(r record) bool { return r.ID == step.Delete })

	case ActionRefresh:
		event.Action = "refresh"
		if err := h.refresh(); err != nil {
			return event, err
		}

	default:
		return event, fmt.Errorf("no action")
	}

	if stepErr != nil {
		event.Error = describeError(stepErr)
	}
	event.Persisted = h.newCall(calls)

	order, err := h.render()
	if err != nil {
		return event, err
	}
	event.Order = order

	h.logger.Info("step completed", "seq", seq, "action", event.Action, "error", event.Error)
	return event, nil
}

// drag replays a pointer gesture of d.ID over the chosen half of d.Onto.
func (h *Harness) drag(ctx context.Context, d *DragStep, cancel bool) error {
	sess, ok := h.partition.SessionFor(d.ID)
	if !ok {
		return nil
	}
	if err := sess.DragStart(d.ID); err != nil {
		return err
	}

	order, err := h.render()
	if err != nil {
		return err
	}
	box := reorder.RowBox(max(slices.Index(order, d.Onto), 0), rowHeight)
	y := box.Upper()
	if d.Half == "lower" {
		y = box.Lower()
	}
	sess.DragOver(d.Onto, box, y)

	if cancel {
		sess.Cancel()
		return nil
	}
	return sess.Drop(ctx, d.Onto)
}

// refresh reloads the partition from the persisted state.
func (h *Harness) refresh() error {
	items := slices.Clone(h.fixed)
	for _, g := range h.groups {
		items = append(items, h.fakes[g].Snapshot()...)
	}
	return h.partition.Reset(items)
}

func (h *Harness) render() ([]string, error) {
	entries, err := h.partition.Render()
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}
	return ids, nil
}

func (h *Harness) callCounts() map[string]int {
	counts := make(map[string]int, len(h.fakes))
	for g, f := range h.fakes {
		counts[g] = f.CallCount()
	}
	return counts
}

// newCall returns the instruction set of a persist call made since before
// was taken.
func (h *Harness) newCall(before map[string]int) reorder.Instructions {
	for _, g := range h.groups {
		calls := h.fakes[g].Calls()
		if len(calls) > before[g] {
			return calls[len(calls)-1]
		}
	}
	return nil
}

func (h *Harness) finish(result *Result) error {
	order, err := h.render()
	if err != nil {
		return err
	}
	result.Order = order

	for _, g := range h.groups {
		f := h.fakes[g]
		snapshot := f.Snapshot()
		stored := make([]reorder.Assignment, len(snapshot))
		for i, r := range snapshot {
			stored[i] = reorder.Assignment{ID: r.ID, SortOrder: r.SortOrder}
		}
		result.Stored = append(result.Stored, stored)
		result.PersistCalls += f.CallCount()
		result.MaxInFlight = max(result.MaxInFlight, f.MaxInFlight())
	}
	return nil
}

func half(d *DragStep) string {
	if d.Half == "lower" {
		return "lower"
	}
	return "upper"
}

// describeError renders an error as its code and cause, without list names
// or ids, so traces stay stable.
func describeError(err error) string {
	var rerr *reorder.Error
	if !errors.As(err, &rerr) {
		return err.Error()
	}
	if rerr.Err != nil {
		return fmt.Sprintf("%s: %v", rerr.Code, rerr.Err)
	}
	return string(rerr.Code)
}

// errorCode returns the code part of a described error.
func errorCode(described string) string {
	code, _, _ := strings.Cut(described, ":")
	return code
}

func checkStepError(result *Result, event TraceEvent, step Step) {
	switch {
	case step.ExpectError == "" && event.Error != "":
		result.AddError(fmt.Sprintf("step %d (%s): unexpected error: %s", event.Seq, event.Action, event.Error))
	case step.ExpectError != "" && event.Error == "":
		result.AddError(fmt.Sprintf("step %d (%s): expected error %s, got none", event.Seq, event.Action, step.ExpectError))
	case step.ExpectError != "" && errorCode(event.Error) != step.ExpectError:
		result.AddError(fmt.Sprintf("step %d (%s): expected error %s, got %s", event.Seq, event.Action, step.ExpectError, event.Error))
	}
}
