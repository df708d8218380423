package harness

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScenarios_Golden(t *testing.T) {
	paths, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		name := strings.TrimSuffix(filepath.Base(path), ".yaml")
		t.Run(name, func(t *testing.T) {
			scenario, err := LoadScenario(path)
			require.NoError(t, err)
			require.Equal(t, name, scenario.Name, "file name must match scenario name")

			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func threeItems() []ItemSpec {
	return []ItemSpec{{ID: "a", SortOrder: 0}, {ID: "b", SortOrder: 1}, {ID: "c", SortOrder: 2}}
}

func intPtr(n int) *int { return &n }

func TestRun_WrongExpectationFails(t *testing.T) {
	scenario := &Scenario{
		Name:  "wrong",
		Items: threeItems(),
		Steps: []Step{{Move: &MoveStep{ID: "b", Direction: "up"}}},
		Expect: Expect{
			Order:        []string{"a", "b", "c"},
			Stored:       map[string]int64{"b": 1},
			PersistCalls: intPtr(0),
		},
	}

	result, err := Run(scenario)

	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 3)
	assert.Contains(t, result.Errors[0], "Assertion failed: order")
	assert.Contains(t, result.Errors[1], "b=0, want 1")
	assert.Contains(t, result.Errors[2], "Expected: 0 persist calls")
}

func TestRun_UnexpectedStepError(t *testing.T) {
	scenario := &Scenario{
		Name:  "unexpected",
		Items: threeItems(),
		Steps: []Step{
			{FailNext: &FailStep{Error: "boom"}},
			{Move: &MoveStep{ID: "a", Direction: "down"}},
		},
		Expect: Expect{Order: []string{"b", "a", "c"}},
	}

	result, err := Run(scenario)

	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "unexpected error: PERSIST_FAILED: boom")
}

func TestRun_ExpectedErrorMissing(t *testing.T) {
	scenario := &Scenario{
		Name:   "missing",
		Items:  threeItems(),
		Steps:  []Step{{Move: &MoveStep{ID: "a", Direction: "down"}, ExpectError: "PERSIST_FAILED"}},
		Expect: Expect{Order: []string{"b", "a", "c"}},
	}

	result, err := Run(scenario)

	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], "expected error PERSIST_FAILED, got none")
}

func TestRun_LowerHalfDrag(t *testing.T) {
	scenario := &Scenario{
		Name:   "lower",
		Items:  threeItems(),
		Steps:  []Step{{Drag: &DragStep{ID: "a", Onto: "c", Half: "lower"}}},
		Expect: Expect{Order: []string{"b", "c", "a"}, Stored: map[string]int64{"b": 0, "c": 1, "a": 2}},
	}

	result, err := Run(scenario)

	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, 1, result.MaxInFlight)
}

func TestRun_RejectsInvalidScenario(t *testing.T) {
	_, err := Run(&Scenario{})
	assert.ErrorContains(t, err, "name is required")
}

func TestAssertionError_IncludesTrace(t *testing.T) {
	err := &AssertionError{
		Type:     "order",
		Expected: "a b",
		Actual:   "b a",
		Trace:    []TraceEvent{{Seq: 1, Action: "move b up", Order: []string{"b", "a"}}},
	}

	msg := err.Error()

	assert.Contains(t, msg, "Assertion failed: order")
	assert.Contains(t, msg, "[1] move b up -> b a")
}
