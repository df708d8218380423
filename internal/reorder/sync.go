package reorder

import (
	"context"
	"slices"
)

// Persister applies an instruction set to the system of record.
//
// Implementations must apply all assignments atomically, reject ids that no
// longer exist, and accept an instruction set identical to what is already
// stored.
//
// The returned snapshot is authoritative when non-nil (even if empty) and
// replaces the local order. A nil snapshot means "nothing to report": the
// local order is kept as the presumed-correct state.
type Persister[P any] interface {
	Persist(ctx context.Context, in Instructions) ([]Item[P], error)
}

// PersistFunc adapts a function to the Persister interface.
type PersistFunc[P any] func(ctx context.Context, in Instructions) ([]Item[P], error)

// Persist calls f.
func (f PersistFunc[P]) Persist(ctx context.Context, in Instructions) ([]Item[P], error) {
	return f(ctx, in)
}

// Commit is one outstanding persistence request.
type Commit[P any] struct {
	// Seq numbers commits within a Synchronizer, starting at 1.
	Seq uint64

	instructions Instructions
	persister    Persister[P]
}

// Instructions returns a copy of the instruction set being persisted.
func (c *Commit[P]) Instructions() Instructions {
	return slices.Clone(c.instructions)
}

// Persist runs the Persister. It does not touch any session state and may be
// called from any goroutine.
func (c *Commit[P]) Persist(ctx context.Context) ([]Item[P], error) {
	return c.persister.Persist(ctx, c.Instructions())
}

// Synchronizer turns finished orders into instruction sets and enforces
// single-flight persistence for one list.
//
// Synchronizer is not safe for concurrent use; Session serializes access.
type Synchronizer[P any] struct {
	name      string
	persister Persister[P]
	numbering Numbering
	inflight  *Commit[P]
	seq       uint64
	lastErr   error
}

// NewSynchronizer creates a Synchronizer that renumbers with numbering and
// writes through p.
func NewSynchronizer[P any](p Persister[P], numbering Numbering) *Synchronizer[P] {
	return &Synchronizer[P]{persister: p, numbering: numbering}
}

// Busy reports whether a commit is outstanding.
func (s *Synchronizer[P]) Busy() bool {
	return s.inflight != nil
}

// LastError returns the error of the most recent failed commit, cleared by
// the next successful one.
func (s *Synchronizer[P]) LastError() error {
	return s.lastErr
}

// Numbering returns the renumbering policy.
func (s *Synchronizer[P]) Numbering() Numbering {
	return s.numbering
}

// Begin claims the single in-flight slot for ids. It returns ErrBusy if a
// commit is already outstanding.
func (s *Synchronizer[P]) Begin(ids []string) (*Commit[P], error) {
	if s.inflight != nil {
		return nil, newError(CodeBusy, s.name, "", "order is being saved")
	}
	s.seq++
	c := &Commit[P]{
		Seq:          s.seq,
		instructions: s.numbering.Assign(ids),
		persister:    s.persister,
	}
	s.inflight = c
	return c, nil
}

// Finish releases the in-flight slot held by c and applies the outcome to
// list. On failure the local order is left as-is and the wrapped error is
// returned. Finishing a commit that is not in flight is a no-op.
func (s *Synchronizer[P]) Finish(c *Commit[P], list *List[P], snapshot []Item[P], err error) error {
	if c == nil || c != s.inflight {
		return nil
	}
	s.inflight = nil

	if err != nil {
		s.lastErr = &Error{
			Code:    CodePersistFailed,
			List:    s.name,
			Message: "saving order failed",
			Err:     err,
		}
		return s.lastErr
	}
	if snapshot != nil {
		if ierr := list.Initialize(snapshot); ierr != nil {
			s.lastErr = ierr
			return ierr
		}
	}
	s.lastErr = nil
	return nil
}
