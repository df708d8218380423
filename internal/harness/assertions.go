package harness

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/go-cmp/cmp"
)

// AssertionError is returned when an expectation fails.
// It includes the trace to help debug the failure.
type AssertionError struct {
	Type     string       // Expectation that failed
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s -> %s\n", event.Seq, event.Action, strings.Join(event.Order, " "))
		}
	}
	return buf.String()
}

// EvaluateExpect checks a result against the scenario expectations and the
// invariants every run must satisfy. It returns one message per failure.
func EvaluateExpect(result *Result, expect Expect) []string {
	var errs []string
	for _, check := range []func(*Result, Expect) error{
		assertOrder,
		assertStored,
		assertPersistCalls,
		assertSingleFlight,
		assertPermutation,
	} {
		if err := check(result, expect); err != nil {
			errs = append(errs, err.Error())
		}
	}
	return errs
}

func assertOrder(result *Result, expect Expect) error {
	if expect.Order == nil {
		return nil
	}
	if diff := cmp.Diff(expect.Order, result.Order); diff != "" {
		return &AssertionError{
			Type:     "order",
			Expected: strings.Join(expect.Order, " "),
			Actual:   strings.Join(result.Order, " ") + " (-want +got):\n" + diff,
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertStored checks the expected sort orders as a subset of the stored
// state.
func assertStored(result *Result, expect Expect) error {
	if len(expect.Stored) == 0 {
		return nil
	}
	stored := result.StoredMap()

	ids := make([]string, 0, len(expect.Stored))
	for id := range expect.Stored {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var mismatches []string
	for _, id := range ids {
		got, ok := stored[id]
		switch {
		case !ok:
			mismatches = append(mismatches, fmt.Sprintf("%s missing", id))
		case got != expect.Stored[id]:
			mismatches = append(mismatches, fmt.Sprintf("%s=%d, want %d", id, got, expect.Stored[id]))
		}
	}
	if len(mismatches) > 0 {
		return &AssertionError{
			Type:     "stored",
			Expected: fmt.Sprintf("%v", expect.Stored),
			Actual:   strings.Join(mismatches, ", "),
			Trace:    result.Trace,
		}
	}
	return nil
}

func assertPersistCalls(result *Result, expect Expect) error {
	if expect.PersistCalls == nil || *expect.PersistCalls == result.PersistCalls {
		return nil
	}
	return &AssertionError{
		Type:     "persist_calls",
		Expected: fmt.Sprintf("%d persist calls", *expect.PersistCalls),
		Actual:   fmt.Sprintf("%d persist calls", result.PersistCalls),
		Trace:    result.Trace,
	}
}

// assertSingleFlight checks that no group ever had two persist calls in
// flight.
func assertSingleFlight(result *Result, _ Expect) error {
	if result.MaxInFlight <= 1 {
		return nil
	}
	return &AssertionError{
		Type:     "single_flight",
		Expected: "at most 1 persist call in flight per group",
		Actual:   fmt.Sprintf("%d in flight", result.MaxInFlight),
	}
}

// assertPermutation checks that every step rendered each id at most once.
func assertPermutation(result *Result, _ Expect) error {
	for _, event := range result.Trace {
		seen := make(map[string]bool, len(event.Order))
		for _, id := range event.Order {
			if seen[id] {
				return &AssertionError{
					Type:     "permutation",
					Expected: "each id rendered once",
					Actual:   fmt.Sprintf("step %d renders %s twice", event.Seq, id),
					Trace:    result.Trace,
				}
			}
			seen[id] = true
		}
	}
	return nil
}
