package reorder

import (
	"fmt"
	"slices"
	"strings"
)

// Direction is a single-slot move: Up toward index 0, Down toward the end.
type Direction int

const (
	Up   Direction = -1
	Down Direction = 1
)

// String returns "up" or "down".
func (d Direction) String() string {
	switch d {
	case Up:
		return "up"
	case Down:
		return "down"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

// ParseDirection parses "up" or "down" (case-insensitive).
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "up":
		return Up, nil
	case "down":
		return Down, nil
	default:
		return 0, fmt.Errorf("invalid direction %q: must be up or down", s)
	}
}

// CanStep reports whether id can move one slot in dir. Unknown ids and
// records already at the boundary cannot.
func CanStep(ids []string, id string, dir Direction) bool {
	if dir != Up && dir != Down {
		return false
	}
	i := slices.Index(ids, id)
	if i < 0 {
		return false
	}
	j := i + int(dir)
	return j >= 0 && j < len(ids)
}

// Step removes id and reinserts it one slot away in dir. It returns the new
// order and true, or (nil, false) when CanStep is false.
func Step(ids []string, id string, dir Direction) ([]string, bool) {
	if !CanStep(ids, id, dir) {
		return nil, false
	}
	i := slices.Index(ids, id)
	next := slices.Clone(ids)
	next = slices.Delete(next, i, i+1)
	next = slices.Insert(next, i+int(dir), id)
	return next, true
}
