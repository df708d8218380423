package reorder

import (
	"fmt"
	"slices"

	mapset "github.com/deckarep/golang-set/v2"
)

// List is the local order store: an in-memory sequence mirroring the
// authoritative records of one list.
//
// List is not safe for concurrent use; Session serializes access to it.
type List[P any] struct {
	items   []Item[P]
	index   map[string]int
	members mapset.Set[string]
}

// NewList creates a List initialized from items. Duplicate ids panic; use
// Initialize to get an error instead.
func NewList[P any](items []Item[P]) *List[P] {
	l := &List[P]{}
	if err := l.Initialize(items); err != nil {
		panic(err)
	}
	return l
}

// Initialize resets the sequence to Sort(items). It may be called from any
// state. On error the previous sequence is kept.
func (l *List[P]) Initialize(items []Item[P]) error {
	members := mapset.NewThreadUnsafeSetWithSize[string](len(items))
	for _, it := range items {
		if !members.Add(it.ID) {
			return &Error{
				Code:    CodeDuplicateID,
				ID:      it.ID,
				Message: fmt.Sprintf("record %q appears more than once", it.ID),
			}
		}
	}
	l.items = Sort(items)
	l.members = members
	l.reindex()
	return nil
}

// Current returns a copy of the present sequence.
func (l *List[P]) Current() []Item[P] {
	return slices.Clone(l.items)
}

// IDs returns the ids in current order.
func (l *List[P]) IDs() []string {
	return IDs(l.items)
}

// Len returns the number of records.
func (l *List[P]) Len() int {
	return len(l.items)
}

// Index returns the current position of id, or -1 if it is not in the list.
func (l *List[P]) Index(id string) int {
	i, ok := l.index[id]
	if !ok {
		return -1
	}
	return i
}

// Contains reports whether id is part of the list.
func (l *List[P]) Contains(id string) bool {
	_, ok := l.index[id]
	return ok
}

// SetOrder replaces the sequence with the records named by ids, in that
// order. ids must be a permutation of the ids from the last Initialize.
func (l *List[P]) SetOrder(ids []string) error {
	proposed := mapset.NewThreadUnsafeSetWithSize[string](len(ids))
	for _, id := range ids {
		proposed.Add(id)
	}
	if len(ids) != l.members.Cardinality() || !proposed.Equal(l.members) {
		return &Error{
			Code:    CodeNotPermutation,
			Message: fmt.Sprintf("got %d ids for a list of %d", len(ids), l.members.Cardinality()),
		}
	}

	next := make([]Item[P], len(ids))
	for i, id := range ids {
		next[i] = l.items[l.index[id]]
	}
	l.items = next
	l.reindex()
	return nil
}

func (l *List[P]) reindex() {
	l.index = make(map[string]int, len(l.items))
	for i, it := range l.items {
		l.index[it.ID] = i
	}
}
