package reorder

import (
	"context"
	"log/slog"
	"sync"
)

// Option configures a Session.
type Option func(*sessionConfig)

type sessionConfig struct {
	name      string
	numbering Numbering
	logger    *slog.Logger
}

// WithName labels the session in logs and errors (e.g. "team/staff").
func WithName(name string) Option {
	return func(c *sessionConfig) {
		c.name = name
	}
}

// WithNumbering sets the renumbering policy. Default: Dense().
func WithNumbering(n Numbering) Option {
	return func(c *sessionConfig) {
		c.numbering = n
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *sessionConfig) {
		c.logger = l
	}
}

// Status is what the UI needs to render affordances: which record is being
// dragged, whether a save is in flight ("saving order..."), and the last
// save error, if any.
type Status struct {
	Dragging  string
	Saving    bool
	LastError error
}

// Session is one reorderable list instance. Every list on screen gets its
// own Session; they share nothing.
type Session[P any] struct {
	mu     sync.Mutex
	name   string
	list   *List[P]
	drag   *Tracker[P]
	sync   *Synchronizer[P]
	logger *slog.Logger
}

// NewSession creates an empty session that persists through p.
// Call Reset with the authoritative records before use.
func NewSession[P any](p Persister[P], opts ...Option) *Session[P] {
	cfg := sessionConfig{numbering: Dense()}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}

	list := NewList[P](nil)
	syncer := NewSynchronizer(p, cfg.numbering)
	syncer.name = cfg.name
	return &Session[P]{
		name:   cfg.name,
		list:   list,
		drag:   NewTracker(list),
		sync:   syncer,
		logger: cfg.logger,
	}
}

// Name returns the session label.
func (s *Session[P]) Name() string {
	return s.name
}

// Numbering returns the session's renumbering policy.
func (s *Session[P]) Numbering() Numbering {
	return s.sync.Numbering()
}

// Reset replaces the local order with an authoritative snapshot. Any drag in
// progress is dropped. Safe to call while a commit is in flight.
func (s *Session[P]) Reset(items []Item[P]) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.list.Initialize(items); err != nil {
		return err
	}
	s.drag.Abort()
	s.logger.Debug("order reset", "list", s.name, "records", len(items))
	return nil
}

// Order returns the current rendering order.
func (s *Session[P]) Order() []Item[P] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.list.Current()
}

// IDs returns the current order as ids.
func (s *Session[P]) IDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.list.IDs()
}

// Contains reports whether id belongs to this session.
func (s *Session[P]) Contains(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.list.Contains(id)
}

// Busy reports whether a commit is in flight. While busy, drags and moves
// are rejected.
func (s *Session[P]) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sync.Busy()
}

// Status returns a snapshot of the session's UI-facing state.
func (s *Session[P]) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		Dragging:  s.drag.Dragging(),
		Saving:    s.sync.Busy(),
		LastError: s.sync.LastError(),
	}
}

// DragStart begins dragging id. Unknown ids are ignored.
func (s *Session[P]) DragStart(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sync.Busy() {
		return newError(CodeBusy, s.name, id, "order is being saved")
	}
	if s.drag.State() == DragActive {
		return newError(CodeDragActive, s.name, id, "a drag is already in progress")
	}
	if !s.drag.Start(id) {
		s.logger.Debug("drag start ignored: unknown record", "list", s.name, "id", id)
		return nil
	}
	s.logger.Debug("drag started", "list", s.name, "id", id)
	return nil
}

// DragOver previews the dragged record against hoveredID. It reports whether
// the preview order changed.
func (s *Session[P]) DragOver(hoveredID string, box Box, pointerY float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := s.drag.Over(hoveredID, box, pointerY)
	if changed {
		s.logger.Debug("drag preview", "list", s.name, "id", s.drag.Dragging(), "over", hoveredID)
	}
	return changed
}

// DragEnd ends a gesture without a drop, restoring the pre-drag order.
// After a drop it is a no-op.
func (s *Session[P]) DragEnd() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drag.End()
}

// Cancel discards the preview and restores the pre-drag order.
func (s *Session[P]) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.drag.State() == DragActive {
		s.logger.Debug("drag cancelled", "list", s.name, "id", s.drag.Dragging())
	}
	s.drag.Cancel()
}

// Drop finishes the drag on targetID and persists the resulting order.
// It blocks until the Persister returns.
func (s *Session[P]) Drop(ctx context.Context, targetID string) error {
	c, err := s.BeginDrop(targetID)
	if c == nil {
		return err
	}
	return s.run(ctx, c)
}

// BeginDrop is the first half of Drop: it finalizes the gesture and claims
// the in-flight slot. A nil Commit with a nil error means there is nothing
// to persist (no drag, or a drop onto itself).
func (s *Session[P]) BeginDrop(targetID string) (*Commit[P], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids, ok := s.drag.Drop(targetID)
	if !ok {
		return nil, nil
	}
	return s.begin(ids)
}

// Move moves id one slot in dir and persists the new order immediately.
// Boundary moves and unknown ids are no-ops.
func (s *Session[P]) Move(ctx context.Context, id string, dir Direction) error {
	c, err := s.BeginMove(id, dir)
	if c == nil {
		return err
	}
	return s.run(ctx, c)
}

// MoveUp moves id one slot toward the top.
func (s *Session[P]) MoveUp(ctx context.Context, id string) error {
	return s.Move(ctx, id, Up)
}

// MoveDown moves id one slot toward the bottom.
func (s *Session[P]) MoveDown(ctx context.Context, id string) error {
	return s.Move(ctx, id, Down)
}

// BeginMove is the first half of Move. A nil Commit with a nil error means
// the move was a no-op.
func (s *Session[P]) BeginMove(id string, dir Direction) (*Commit[P], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sync.Busy() {
		return nil, newError(CodeBusy, s.name, id, "order is being saved")
	}
	if s.drag.State() == DragActive {
		return nil, newError(CodeDragActive, s.name, id, "a drag is already in progress")
	}
	ids, ok := Step(s.list.IDs(), id, dir)
	if !ok {
		return nil, nil
	}
	if err := s.list.SetOrder(ids); err != nil {
		return nil, err
	}
	s.logger.Debug("record moved", "list", s.name, "id", id, "direction", dir.String())
	return s.begin(ids)
}

// CanMove reports whether the move control for id in dir should be enabled.
func (s *Session[P]) CanMove(id string, dir Direction) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sync.Busy() || s.drag.State() == DragActive {
		return false
	}
	return CanStep(s.list.IDs(), id, dir)
}

// Finish is the second half of a two-phase commit: it applies the Persist
// outcome and releases the in-flight slot.
func (s *Session[P]) Finish(c *Commit[P], snapshot []Item[P], err error) error {
	if c == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	ferr := s.sync.Finish(c, s.list, snapshot, err)
	if ferr != nil {
		s.logger.Error("order not saved", "list", s.name, "commit", c.Seq, "error", ferr)
		return ferr
	}
	s.logger.Info("order saved", "list", s.name, "commit", c.Seq, "authoritative", snapshot != nil)
	return nil
}

func (s *Session[P]) begin(ids []string) (*Commit[P], error) {
	c, err := s.sync.Begin(ids)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("commit started", "list", s.name, "commit", c.Seq, "records", len(ids))
	return c, nil
}

func (s *Session[P]) run(ctx context.Context, c *Commit[P]) error {
	snapshot, err := c.Persist(ctx)
	return s.Finish(c, snapshot, err)
}

// HandleBinding is what a drag handle element binds to.
type HandleBinding[P any] struct {
	session *Session[P]
	id      string
}

// Handle returns the drag-handle binding for id.
func (s *Session[P]) Handle(id string) HandleBinding[P] {
	return HandleBinding[P]{session: s, id: id}
}

// DragStart forwards a drag-start event.
func (h HandleBinding[P]) DragStart() error {
	return h.session.DragStart(h.id)
}

// DragEnd forwards a drag-end event.
func (h HandleBinding[P]) DragEnd() {
	h.session.DragEnd()
}

// TargetBinding is what a drop target element binds to.
type TargetBinding[P any] struct {
	session *Session[P]
	id      string
}

// Target returns the drop-target binding for id.
func (s *Session[P]) Target(id string) TargetBinding[P] {
	return TargetBinding[P]{session: s, id: id}
}

// DragOver forwards a drag-over event with the target's box and pointer.
func (t TargetBinding[P]) DragOver(box Box, pointerY float64) bool {
	return t.session.DragOver(t.id, box, pointerY)
}

// Drop forwards a drop event.
func (t TargetBinding[P]) Drop(ctx context.Context) error {
	return t.session.Drop(ctx, t.id)
}
