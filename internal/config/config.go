// Package config loads list definitions from CUE.
//
// A definitions file names each list and how it is reordered:
//
//	lists: about: { numbering: "dense", fixed: ["hero"] }
//	lists: team:  { numbering: "sparse", step: 10, groups: ["leadership", "staff"] }
//
// The file is unified with an embedded schema and must be concrete. Lists
// that are not declared fall back to dense numbering with a single group.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"slices"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	mapset "github.com/deckarep/golang-set/v2"

	"github.com/roach88/ordinal/internal/reorder"
)

//go:embed schema.cue
var schemaCUE string

// DefaultSparseStep is the step used by sparse lists that do not set one.
const DefaultSparseStep = 10

// Error codes.
const (
	ErrCodeNotFound = "CONFIG_NOT_FOUND"
	ErrCodeInvalid  = "CONFIG_INVALID"
)

// Error is a configuration error, with the CUE position when one is known.
type Error struct {
	Code    string
	Message string
	Pos     token.Pos
}

func (e *Error) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// List is the definition of one list.
type List struct {
	Name      string
	Numbering reorder.Numbering
	// Groups in render order. Empty means a single unnamed group.
	Groups []string
	// Fixed ids are rendered but never reorderable.
	Fixed []string
}

// IsFixed reports whether id is declared fixed.
func (l List) IsFixed(id string) bool {
	return slices.Contains(l.Fixed, id)
}

// Config holds every declared list.
type Config struct {
	lists map[string]List
}

// Default returns a config with no declared lists.
func Default() *Config {
	return &Config{lists: map[string]List{}}
}

// Lookup returns the definition of name, or the default definition if the
// list is not declared.
func (c *Config) Lookup(name string) List {
	if c != nil {
		if l, ok := c.lists[name]; ok {
			return l
		}
	}
	return List{Name: name, Numbering: reorder.Dense()}
}

// Declared reports whether name is declared.
func (c *Config) Declared(name string) bool {
	if c == nil {
		return false
	}
	_, ok := c.lists[name]
	return ok
}

// Names returns the declared list names, sorted.
func (c *Config) Names() []string {
	if c == nil {
		return nil
	}
	names := make([]string, 0, len(c.lists))
	for n := range c.lists {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// Load reads and validates a definitions file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, &Error{Code: ErrCodeNotFound, Message: fmt.Sprintf("config file not found: %s", path)}
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data, path)
}

type listSpec struct {
	Numbering string   `json:"numbering"`
	Step      int64    `json:"step"`
	Groups    []string `json:"groups"`
	Fixed     []string `json:"fixed"`
}

// Parse validates CUE source against the schema. filename is used in error
// positions.
func Parse(data []byte, filename string) (*Config, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}

	value := ctx.CompileBytes(data, cue.Filename(filename))
	if err := value.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	unified := schema.Unify(value)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	cfg := Default()
	iter, err := unified.LookupPath(cue.ParsePath("lists")).Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		name := iter.Label()
		var spec listSpec
		if err := iter.Value().Decode(&spec); err != nil {
			return nil, formatCUEError(err)
		}
		l, err := spec.build(name)
		if err != nil {
			return nil, &Error{Code: ErrCodeInvalid, Message: err.Error(), Pos: iter.Value().Pos()}
		}
		cfg.lists[name] = l
	}
	return cfg, nil
}

func (s listSpec) build(name string) (List, error) {
	l := List{
		Name:   name,
		Groups: slices.Clone(s.Groups),
		Fixed:  slices.Clone(s.Fixed),
	}

	switch s.Numbering {
	case "sparse":
		step := s.Step
		if step == 0 {
			step = DefaultSparseStep
		}
		l.Numbering = reorder.Sparse(step)
	default:
		if s.Step > 1 {
			return List{}, fmt.Errorf("list %q: step is only valid with sparse numbering", name)
		}
		l.Numbering = reorder.Dense()
	}

	seen := mapset.NewThreadUnsafeSet[string]()
	for _, g := range l.Groups {
		if !seen.Add(g) {
			return List{}, fmt.Errorf("list %q: group %q declared twice", name, g)
		}
	}
	return l, nil
}

// formatCUEError returns the first CUE error with its position.
func formatCUEError(err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &Error{Code: ErrCodeInvalid, Message: err.Error()}
	}
	first := errs[0]
	e := &Error{Code: ErrCodeInvalid, Message: first.Error()}
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		e.Pos = positions[0]
	}
	return e
}
