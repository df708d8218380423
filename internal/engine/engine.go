package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/roach88/ordinal/internal/config"
	"github.com/roach88/ordinal/internal/reorder"
	"github.com/roach88/ordinal/internal/store"
)

// Engine hosts one reorder.Partition per list behind a single-writer event
// loop.
//
// All session state is mutated in the Run goroutine. Persist calls run on
// their own goroutines and re-enter the loop as Persisted events, so a slow
// backend never blocks drags on other lists.
//
// Thread-safety model:
//   - Submit(), Exec(): safe from any goroutine
//   - Run(): must be called from exactly one goroutine
type Engine struct {
	backend        Backend
	config         *config.Config
	clock          *Clock
	queue          *eventQueue
	logger         *slog.Logger
	persistTimeout time.Duration

	lists map[string]*listState // Run goroutine only
	wg    sync.WaitGroup        // persist goroutines
}

type listState struct {
	def       config.List
	partition *reorder.Partition[store.Body]
}

// EngineOption allows configuration of engine parameters.
type EngineOption func(*Engine)

// WithConfig sets the list definitions. Default: config.Default().
func WithConfig(cfg *config.Config) EngineOption {
	return func(e *Engine) {
		e.config = cfg
	}
}

// WithClock sets the event clock.
func WithClock(c *Clock) EngineOption {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithLogger sets the logger handed to sessions. Default: slog.Default().
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithPersistTimeout bounds a single Persist call. Default: DefaultPersistTimeout.
func WithPersistTimeout(d time.Duration) EngineOption {
	return func(e *Engine) {
		e.persistTimeout = d
	}
}

// DefaultPersistTimeout is the time a Persist call gets once issued.
const DefaultPersistTimeout = 30 * time.Second

// New creates an Engine over backend.
func New(backend Backend, opts ...EngineOption) *Engine {
	e := &Engine{
		backend:        backend,
		config:         config.Default(),
		clock:          NewClock(),
		queue:          newEventQueue(),
		lists:          make(map[string]*listState),
		persistTimeout: DefaultPersistTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e
}

// Clock returns the engine's event clock.
func (e *Engine) Clock() *Clock {
	return e.clock
}

// QueueLen returns the number of events waiting for the loop.
func (e *Engine) QueueLen() int {
	return e.queue.Len()
}

// Submit hands cmd to the Run loop and waits for its outcome. A command
// that starts a commit returns as soon as the commit has begun; wait on
// Outcome.Committed for the result.
func (e *Engine) Submit(ctx context.Context, cmd Command) (Outcome, error) {
	reply := make(chan result, 1)
	cmd.reply = reply

	if !e.queue.Enqueue(Event{Type: EventTypeCommand, Seq: e.clock.Next(), Command: &cmd}) {
		return Outcome{}, newStoppedError()
	}

	select {
	case r := <-reply:
		return r.outcome, r.err
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
}

// Exec submits cmd, waits for any commit it started, and returns the view
// after the commit was applied.
func (e *Engine) Exec(ctx context.Context, cmd Command) (View, error) {
	out, err := e.Submit(ctx, cmd)
	if err != nil || out.Committed == nil {
		return out.View, err
	}

	var commitErr error
	select {
	case commitErr = <-out.Committed:
	case <-ctx.Done():
		return out.View, ctx.Err()
	}

	after, err := e.Submit(ctx, Command{Kind: CommandView, List: cmd.List})
	if err != nil {
		return out.View, errors.Join(commitErr, err)
	}
	return after.View, commitErr
}

// Run starts the single-writer event loop.
// Blocks until ctx is cancelled or Stop() is called, then waits for
// outstanding persist calls.
func (e *Engine) Run(ctx context.Context) error {
	e.logger.Info("engine starting")

	var runErr error
loop:
	for {
		event, ok := e.queue.TryDequeue()
		if ok {
			e.dispatch(ctx, event)
			continue
		}

		select {
		case <-ctx.Done():
			e.logger.Info("engine stopping: context cancelled")
			e.queue.Close()
			runErr = ctx.Err()
			break loop

		case <-e.queue.Wait():
			// The signal channel is closed by Stop; exit once drained.
			if e.queue.Len() == 0 && e.queue.Closed() {
				e.logger.Info("engine stopping: queue closed")
				break loop
			}
		}
	}

	e.shutdown()
	return runErr
}

// Stop closes the event queue, which causes Run to return.
func (e *Engine) Stop() {
	e.queue.Close()
}

// shutdown answers every queued command with ENGINE_STOPPED, applies queued
// persist outcomes, and waits for persist goroutines.
func (e *Engine) shutdown() {
	for _, ev := range e.queue.Drain() {
		switch ev.Type {
		case EventTypeCommand:
			ev.Command.reply <- result{err: newStoppedError()}
		case EventTypePersisted:
			e.processPersisted(ev.Persisted)
		}
	}
	// Persist goroutines that finish from here on cannot enqueue; they
	// apply their own outcome.
	e.wg.Wait()
}

func (e *Engine) dispatch(ctx context.Context, event Event) {
	if err := e.processEvent(ctx, event); err != nil {
		logEventError(e.logger, event, err)
	}
}

// processEvent routes an event to its handler.
// Called only from the Run goroutine.
func (e *Engine) processEvent(ctx context.Context, event Event) error {
	switch event.Type {
	case EventTypeCommand:
		if event.Command == nil {
			return fmt.Errorf("command event missing command")
		}
		out, err := e.processCommand(ctx, event.Seq, event.Command)
		if event.Command.reply != nil {
			event.Command.reply <- result{outcome: out, err: err}
		}
		return err

	case EventTypePersisted:
		if event.Persisted == nil {
			return fmt.Errorf("persisted event missing outcome")
		}
		e.processPersisted(event.Persisted)
		return nil

	default:
		return fmt.Errorf("unknown event type: %d", event.Type)
	}
}

func (e *Engine) processCommand(ctx context.Context, seq int64, cmd *Command) (Outcome, error) {
	e.logger.Debug("processing command",
		"seq", seq,
		"list", cmd.List,
		"kind", cmd.Kind.String(),
		"id", cmd.ID,
	)

	if cmd.List == "" {
		return Outcome{}, newInvalidCommandError("", "list is required")
	}
	if _, ok := commandKindNames[cmd.Kind]; !ok {
		return Outcome{}, newInvalidCommandError(cmd.List, fmt.Sprintf("unknown command kind %d", cmd.Kind))
	}

	ls, err := e.ensureList(ctx, cmd.List, cmd.Kind == CommandLoad)
	if err != nil {
		return Outcome{}, err
	}

	var out Outcome
	var cmdErr error
	sess, owned := ls.partition.SessionFor(cmd.ID)
	if !owned && cmd.Kind != CommandView && cmd.Kind != CommandLoad {
		reason := "unknown record"
		if ls.partition.IsFixed(cmd.ID) {
			reason = "fixed record"
		}
		e.logger.Debug("command ignored",
			"seq", seq,
			"list", cmd.List,
			"kind", cmd.Kind.String(),
			"id", cmd.ID,
			"reason", reason,
		)
	}

	switch cmd.Kind {
	case CommandView, CommandLoad:

	case CommandDragStart:
		if owned {
			cmdErr = sess.DragStart(cmd.ID)
		}

	case CommandDragOver:
		if owned {
			out.Changed = sess.DragOver(cmd.Target, cmd.Box, cmd.PointerY)
		}

	case CommandDrop:
		if owned {
			var c *reorder.Commit[store.Body]
			c, cmdErr = sess.BeginDrop(cmd.Target)
			out.Committed = e.startPersist(ctx, cmd.List, sess, c)
		}

	case CommandDragEnd:
		if owned {
			sess.DragEnd()
		}

	case CommandCancel:
		if owned {
			sess.Cancel()
		}

	case CommandMove:
		if owned {
			var c *reorder.Commit[store.Body]
			c, cmdErr = sess.BeginMove(cmd.ID, cmd.Direction)
			out.Committed = e.startPersist(ctx, cmd.List, sess, c)
		}
	}

	view, err := e.view(cmd.List, ls)
	if err != nil {
		return Outcome{}, err
	}
	out.View = view
	return out, cmdErr
}

// ensureList returns the state of list, loading it from the backend on first
// use or when reload is set.
func (e *Engine) ensureList(ctx context.Context, list string, reload bool) (*listState, error) {
	ls, ok := e.lists[list]
	if ok && !reload {
		return ls, nil
	}

	records, err := e.backend.Load(ctx, list)
	if err != nil {
		return nil, fmt.Errorf("load list %q: %w", list, err)
	}

	if !ok {
		if len(records) == 0 && !e.config.Declared(list) {
			return nil, newNotFoundError(list)
		}
		ls = e.newListState(list)
		e.lists[list] = ls
	}

	if err := ls.partition.Reset(records); err != nil {
		return nil, fmt.Errorf("reset list %q: %w", list, err)
	}
	e.logger.Info("list loaded", "list", list, "records", len(records))
	return ls, nil
}

func (e *Engine) newListState(list string) *listState {
	def := e.config.Lookup(list)
	classify := classifier(def)

	persisterFor := func(group string) reorder.Persister[store.Body] {
		inner := e.backend.Persister(list, group)
		return reorder.PersistFunc[store.Body](func(ctx context.Context, in reorder.Instructions) ([]store.Record, error) {
			snapshot, err := inner.Persist(ctx, in)
			if err != nil || snapshot == nil {
				return snapshot, err
			}
			return filterGroup(snapshot, classify, group), nil
		})
	}

	return &listState{
		def: def,
		partition: reorder.NewPartition(list, def.Groups, classify, persisterFor,
			reorder.WithNumbering(def.Numbering),
			reorder.WithLogger(e.logger),
		),
	}
}

// classifier places a record in its stored group unless it is flagged fixed
// in the store or declared fixed in config.
func classifier(def config.List) reorder.Classifier[store.Body] {
	fixed := mapset.NewThreadUnsafeSet(def.Fixed...)
	return func(it store.Record) (string, bool) {
		if it.Payload.Fixed || fixed.Contains(it.ID) {
			return "", false
		}
		return it.Payload.Group, true
	}
}

// filterGroup keeps the snapshot records that belong to group's session.
func filterGroup(snapshot []store.Record, classify reorder.Classifier[store.Body], group string) []store.Record {
	out := make([]store.Record, 0, len(snapshot))
	for _, r := range snapshot {
		if g, ok := classify(r); ok && g == group {
			out = append(out, r)
		}
	}
	return out
}

// startPersist runs c on its own goroutine and feeds the outcome back into
// the loop. It returns nil when there is nothing to persist.
//
// An issued write is not cancelled with the loop: the call gets a context
// detached from ctx, bounded by the persist timeout.
func (e *Engine) startPersist(ctx context.Context, list string, sess *reorder.Session[store.Body], c *reorder.Commit[store.Body]) <-chan error {
	if c == nil {
		return nil
	}

	done := make(chan error, 1)
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.persistTimeout)
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer cancel()
		snapshot, err := c.Persist(pctx)
		p := &Persisted{
			List:     list,
			Session:  sess,
			Commit:   c,
			Snapshot: snapshot,
			Err:      err,
			done:     done,
		}
		if !e.queue.Enqueue(Event{Type: EventTypePersisted, Seq: e.clock.Next(), Persisted: p}) {
			// The loop is gone; shutdown is waiting on us, so the session
			// has no other writer.
			e.processPersisted(p)
		}
	}()

	e.logger.Debug("commit started", "list", list, "session", sess.Name(), "commit", c.Seq)
	return done
}

func (e *Engine) processPersisted(p *Persisted) {
	err := p.Session.Finish(p.Commit, p.Snapshot, p.Err)
	if p.done != nil {
		p.done <- err
	}
}

func (e *Engine) view(list string, ls *listState) (View, error) {
	entries, err := ls.partition.Render()
	if err != nil {
		return View{}, fmt.Errorf("render list %q: %w", list, err)
	}

	v := View{
		List:   list,
		Seq:    e.clock.Current(),
		Rows:   make([]Row, len(entries)),
		Groups: []GroupStatus{},
	}
	for i, en := range entries {
		v.Rows[i] = Row{
			ID:        en.ID,
			SortOrder: en.SortOrder,
			Group:     en.Item.Payload.Group,
			Fixed:     en.Fixed,
			Data:      en.Item.Payload.Data,
		}
	}
	for _, g := range ls.partition.Groups() {
		sess, _ := ls.partition.Session(g)
		st := sess.Status()
		gs := GroupStatus{
			Name:      g,
			Numbering: sess.Numbering().String(),
			Saving:    st.Saving,
			Dragging:  st.Dragging,
		}
		if st.LastError != nil {
			gs.LastError = st.LastError.Error()
		}
		v.Groups = append(v.Groups, gs)
	}
	return v, nil
}

// logEventError logs a failed event with enough context to reproduce it.
// Rejections the UI expects (busy, drag in progress) are logged at debug.
func logEventError(logger *slog.Logger, event Event, err error) {
	attrs := []any{"seq", event.Seq, "error", err}
	if event.Command != nil {
		attrs = append(attrs,
			"list", event.Command.List,
			"kind", event.Command.Kind.String(),
			"id", event.Command.ID,
		)
	}

	var rerr *reorder.Error
	if errors.As(err, &rerr) && (rerr.Code == reorder.CodeBusy || rerr.Code == reorder.CodeDragActive) {
		logger.Debug("command rejected", attrs...)
		return
	}
	if IsNotFound(err) || IsInvalidCommand(err) {
		logger.Warn("command rejected", attrs...)
		return
	}
	logger.Error("event processing failed", attrs...)
}
