package reorder

import (
	"cmp"
	"slices"
	"strings"
)

// Item is an orderable record: an identifier, its persisted position, and an
// opaque payload the engine never inspects.
type Item[P any] struct {
	ID        string `json:"id"`
	SortOrder int64  `json:"sort_order"`
	Payload   P      `json:"payload"`
}

// Assignment is one entry of a reorder instruction set: the new SortOrder
// for a record.
type Assignment struct {
	ID        string `json:"id"`
	SortOrder int64  `json:"sort_order"`
}

// Instructions is the full renumbering handed to a Persister, in position
// order.
type Instructions []Assignment

// IDs returns the record ids in instruction order.
func (in Instructions) IDs() []string {
	ids := make([]string, len(in))
	for i, a := range in {
		ids[i] = a.ID
	}
	return ids
}

// Compare orders items by SortOrder ascending, then ID ascending (byte-wise).
// Identifiers are unique, so two distinct records never compare equal.
func Compare[P any](a, b Item[P]) int {
	if c := cmp.Compare(a.SortOrder, b.SortOrder); c != 0 {
		return c
	}
	return strings.Compare(a.ID, b.ID)
}

// Sort returns a sorted copy of items. The input is not modified.
func Sort[P any](items []Item[P]) []Item[P] {
	out := slices.Clone(items)
	slices.SortFunc(out, Compare[P])
	return out
}

// IDs returns the ids of items in their current order.
func IDs[P any](items []Item[P]) []string {
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}
	return ids
}
