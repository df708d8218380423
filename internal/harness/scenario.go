package harness

import (
	"bytes"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/roach88/ordinal/internal/config"
	"github.com/roach88/ordinal/internal/reorder"
)

// Scenario is one reorder test: a starting list, a sequence of operator
// steps, and the expected outcome.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Numbering is "dense" (default) or "sparse".
	Numbering string `yaml:"numbering,omitempty"`

	// Step is the sparse numbering step. Zero means config.DefaultSparseStep.
	Step int64 `yaml:"step,omitempty"`

	// Groups declares the reorderable groups in render order.
	Groups []string `yaml:"groups,omitempty"`

	// Items is the authoritative list the scenario starts from.
	Items []ItemSpec `yaml:"items"`

	// Steps run in order.
	Steps []Step `yaml:"steps"`

	// Expect is checked after the last step.
	Expect Expect `yaml:"expect"`
}

// ItemSpec is one starting record.
type ItemSpec struct {
	ID        string `yaml:"id"`
	SortOrder int64  `yaml:"sort_order"`
	Group     string `yaml:"group,omitempty"`
	Fixed     bool   `yaml:"fixed,omitempty"`
}

// Step is one operator or backend action. Exactly one action field is set.
type Step struct {
	Drag     *DragStep `yaml:"drag,omitempty"`
	Cancel   *DragStep `yaml:"cancel,omitempty"`
	Move     *MoveStep `yaml:"move,omitempty"`
	FailNext *FailStep `yaml:"fail_next,omitempty"`
	Delete   string    `yaml:"delete,omitempty"`
	Refresh  bool      `yaml:"refresh,omitempty"`

	// ExpectError is the error code the step must fail with (e.g.
	// PERSIST_FAILED). Empty means the step must succeed.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// DragStep drags ID over the upper or lower half of Onto. As a drag step it
// then drops on Onto; as a cancel step it cancels instead.
type DragStep struct {
	ID   string `yaml:"id"`
	Onto string `yaml:"onto"`
	Half string `yaml:"half,omitempty"` // "upper" (default) | "lower"
}

// MoveStep moves ID one slot.
type MoveStep struct {
	ID        string `yaml:"id"`
	Direction string `yaml:"direction"`
}

// FailStep makes the next persist call of Group fail with Error.
type FailStep struct {
	Group string `yaml:"group,omitempty"`
	Error string `yaml:"error"`
}

// Expect is the scenario outcome.
type Expect struct {
	// Order is the final rendered order.
	Order []string `yaml:"order"`

	// Stored is a subset of the persisted sort orders.
	Stored map[string]int64 `yaml:"stored,omitempty"`

	// PersistCalls is the total number of persist calls, if set.
	PersistCalls *int `yaml:"persist_calls,omitempty"`
}

// Step action names.
const (
	ActionDrag     = "drag"
	ActionCancel   = "cancel"
	ActionMove     = "move"
	ActionFailNext = "fail_next"
	ActionDelete   = "delete"
	ActionRefresh  = "refresh"
)

// Action returns the name of the step's action, or "" if none or several
// are set.
func (s Step) Action() string {
	var actions []string
	if s.Drag != nil {
		actions = append(actions, ActionDrag)
	}
	if s.Cancel != nil {
		actions = append(actions, ActionCancel)
	}
	if s.Move != nil {
		actions = append(actions, ActionMove)
	}
	if s.FailNext != nil {
		actions = append(actions, ActionFailNext)
	}
	if s.Delete != "" {
		actions = append(actions, ActionDelete)
	}
	if s.Refresh {
		actions = append(actions, ActionRefresh)
	}
	if len(actions) != 1 {
		return ""
	}
	return actions[0]
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or fails validation.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates a scenario document.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// numbering returns the scenario's numbering policy.
func (s *Scenario) numbering() reorder.Numbering {
	if s.Numbering != "sparse" {
		return reorder.Dense()
	}
	step := s.Step
	if step == 0 {
		step = config.DefaultSparseStep
	}
	return reorder.Sparse(step)
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	switch s.Numbering {
	case "", "dense":
		if s.Step > 1 {
			return fmt.Errorf("step %d requires sparse numbering", s.Step)
		}
	case "sparse":
		if s.Step < 0 {
			return fmt.Errorf("step must be non-negative")
		}
	default:
		return fmt.Errorf("unknown numbering %q", s.Numbering)
	}
	if len(s.Expect.Order) == 0 && len(s.Items) > 0 {
		return fmt.Errorf("expect.order is required")
	}

	seen := make(map[string]bool, len(s.Items))
	for i, it := range s.Items {
		if it.ID == "" {
			return fmt.Errorf("items[%d]: id is required", i)
		}
		if seen[it.ID] {
			return fmt.Errorf("items[%d]: duplicate id %q", i, it.ID)
		}
		seen[it.ID] = true
	}

	groups := s.Groups
	if len(groups) == 0 {
		groups = []string{""}
	}
	for i, step := range s.Steps {
		if err := validateStep(i, step, groups); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(index int, s Step, groups []string) error {
	switch s.Action() {
	case "":
		return fmt.Errorf("steps[%d]: exactly one action is required", index)
	case ActionDrag, ActionCancel:
		d := s.Drag
		if d == nil {
			d = s.Cancel
		}
		if d.ID == "" || d.Onto == "" {
			return fmt.Errorf("steps[%d]: id and onto are required", index)
		}
		if d.Half != "" && d.Half != "upper" && d.Half != "lower" {
			return fmt.Errorf("steps[%d]: half must be upper or lower, got %q", index, d.Half)
		}
	case ActionMove:
		if s.Move.ID == "" {
			return fmt.Errorf("steps[%d]: id is required", index)
		}
		if _, err := reorder.ParseDirection(s.Move.Direction); err != nil {
			return fmt.Errorf("steps[%d]: %w", index, err)
		}
	case ActionFailNext:
		if s.FailNext.Error == "" {
			return fmt.Errorf("steps[%d]: error is required", index)
		}
		if !slices.Contains(groups, s.FailNext.Group) {
			return fmt.Errorf("steps[%d]: unknown group %q", index, s.FailNext.Group)
		}
	}
	return nil
}
