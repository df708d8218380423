package harness

import (
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/ordinal/internal/reorder"
)

// FormatTrace renders a scenario run as stable text for golden comparison:
//
//	scenario: drag_last_to_top
//	items: a=0 b=1 c=2
//
//	001 drag c onto a (upper)
//	    order: c a b
//	    persist: c=0 a=1 b=2
//
//	final
//	    order: c a b
//	    stored: c=0 a=1 b=2
//	    persist calls: 1
func FormatTrace(scenario *Scenario, result *Result) []byte {
	var b strings.Builder

	fmt.Fprintf(&b, "scenario: %s\n", scenario.Name)
	items := make([]string, len(scenario.Items))
	for i, it := range scenario.Items {
		items[i] = formatItem(it)
	}
	fmt.Fprintf(&b, "items: %s\n", strings.Join(items, " "))

	for _, e := range result.Trace {
		fmt.Fprintf(&b, "\n%03d %s\n", e.Seq, e.Action)
		fmt.Fprintf(&b, "    order: %s\n", strings.Join(e.Order, " "))
		if e.Persisted != nil {
			fmt.Fprintf(&b, "    persist: %s\n", formatAssignments(e.Persisted))
		}
		if e.Error != "" {
			fmt.Fprintf(&b, "    error: %s\n", e.Error)
		}
	}

	stored := make([]string, len(result.Stored))
	for i, group := range result.Stored {
		stored[i] = formatAssignments(group)
	}
	fmt.Fprintf(&b, "\nfinal\n")
	fmt.Fprintf(&b, "    order: %s\n", strings.Join(result.Order, " "))
	fmt.Fprintf(&b, "    stored: %s\n", strings.Join(stored, " | "))
	fmt.Fprintf(&b, "    persist calls: %d\n", result.PersistCalls)

	return []byte(b.String())
}

func formatItem(it ItemSpec) string {
	s := fmt.Sprintf("%s=%d", it.ID, it.SortOrder)
	switch {
	case it.Fixed:
		s += "[fixed]"
	case it.Group != "":
		s += "[" + it.Group + "]"
	}
	return s
}

func formatAssignments(in []reorder.Assignment) string {
	parts := make([]string, len(in))
	for i, a := range in {
		parts[i] = fmt.Sprintf("%s=%d", a.ID, a.SortOrder)
	}
	return strings.Join(parts, " ")
}

// RunWithGolden executes a scenario and compares its trace against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns the result so callers can also check Pass. Test failure (via
// goldie) occurs if the trace doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	AssertGolden(t, scenario, result)
	return result, nil
}

// AssertGolden compares an existing result's trace against the scenario's
// golden file without re-running it.
func AssertGolden(t *testing.T, scenario *Scenario, result *Result) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, FormatTrace(scenario, result))
}
