// Package testutil provides deterministic test doubles for the reorder
// engine: a scriptable in-memory Persister, a sequential commit-token
// generator, and item builders.
package testutil

import (
	"context"
	"errors"
	"maps"
	"slices"
	"sync"

	"github.com/roach88/ordinal/internal/reorder"
)

// ErrUnknownRecord is returned by FakePersister for ids it does not store.
var ErrUnknownRecord = errors.New("unknown record")

// FakePersister is an in-memory system of record for one list.
//
// It applies instruction sets atomically (all or nothing), rejects unknown
// ids, records every call, can fail on demand, and can hold calls open so
// tests can observe single-flight behavior.
//
// Thread-safety: all methods are safe for concurrent use.
type FakePersister[P any] struct {
	mu          sync.Mutex
	stored      map[string]int64
	payloads    map[string]P
	calls       []reorder.Instructions
	failures    []error
	snapshots   bool
	gate        chan struct{}
	entered     chan struct{}
	inflight    int
	maxInflight int
}

// NewFakePersister creates a persister whose stored state is items.
func NewFakePersister[P any](items []reorder.Item[P]) *FakePersister[P] {
	f := &FakePersister[P]{
		stored:   make(map[string]int64, len(items)),
		payloads: make(map[string]P, len(items)),
		entered:  make(chan struct{}, 64),
	}
	for _, it := range items {
		f.stored[it.ID] = it.SortOrder
		f.payloads[it.ID] = it.Payload
	}
	return f
}

// ReturnSnapshots makes Persist return the full stored list after every
// successful write. By default Persist returns a nil snapshot.
func (f *FakePersister[P]) ReturnSnapshots() *FakePersister[P] {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snapshots = true
	return f
}

// FailNext queues err as the result of the next Persist call.
func (f *FakePersister[P]) FailNext(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures = append(f.failures, err)
}

// Hold makes subsequent Persist calls block until release is called.
func (f *FakePersister[P]) Hold() (release func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	gate := make(chan struct{})
	f.gate = gate
	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			if f.gate == gate {
				f.gate = nil
			}
			f.mu.Unlock()
			close(gate)
		})
	}
}

// Entered receives once per Persist call, as soon as the call starts.
func (f *FakePersister[P]) Entered() <-chan struct{} {
	return f.entered
}

// Delete removes a record, simulating a concurrent delete elsewhere.
func (f *FakePersister[P]) Delete(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.stored, id)
	delete(f.payloads, id)
}

// Persist implements reorder.Persister.
func (f *FakePersister[P]) Persist(ctx context.Context, in reorder.Instructions) ([]reorder.Item[P], error) {
	f.mu.Lock()
	f.calls = append(f.calls, slices.Clone(in))
	f.inflight++
	if f.inflight > f.maxInflight {
		f.maxInflight = f.inflight
	}
	gate := f.gate
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inflight--
		f.mu.Unlock()
	}()

	select {
	case f.entered <- struct{}{}:
	default:
	}

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.failures) > 0 {
		err := f.failures[0]
		f.failures = f.failures[1:]
		return nil, err
	}
	for _, a := range in {
		if _, ok := f.stored[a.ID]; !ok {
			return nil, ErrUnknownRecord
		}
	}
	for _, a := range in {
		f.stored[a.ID] = a.SortOrder
	}
	if !f.snapshots {
		return nil, nil
	}
	return f.snapshotLocked(), nil
}

func (f *FakePersister[P]) snapshotLocked() []reorder.Item[P] {
	out := make([]reorder.Item[P], 0, len(f.stored))
	for id, so := range f.stored {
		out = append(out, reorder.Item[P]{ID: id, SortOrder: so, Payload: f.payloads[id]})
	}
	return reorder.Sort(out)
}

// Snapshot returns the stored records in comparator order.
func (f *FakePersister[P]) Snapshot() []reorder.Item[P] {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshotLocked()
}

// Stored returns a copy of the stored id -> SortOrder map.
func (f *FakePersister[P]) Stored() map[string]int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return maps.Clone(f.stored)
}

// Calls returns every instruction set received, in call order.
func (f *FakePersister[P]) Calls() []reorder.Instructions {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.calls)
}

// CallCount returns the number of Persist calls.
func (f *FakePersister[P]) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// MaxInFlight returns the highest number of concurrent Persist calls seen.
func (f *FakePersister[P]) MaxInFlight() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maxInflight
}
