package engine

import (
	"sync"

	"github.com/roach88/ordinal/internal/reorder"
	"github.com/roach88/ordinal/internal/store"
)

// EventType distinguishes between event kinds.
type EventType int

const (
	// EventTypeCommand is a UI or API command submitted by a caller.
	EventTypeCommand EventType = iota + 1
	// EventTypePersisted is the outcome of a Persist call re-entering the loop.
	EventTypePersisted
)

// Event is one unit of work for the Run loop.
type Event struct {
	Type      EventType
	Seq       int64
	Command   *Command
	Persisted *Persisted
}

// Persisted carries a finished Persist call back to the loop, where the
// session applies it.
type Persisted struct {
	List     string
	Session  *reorder.Session[store.Body]
	Commit   *reorder.Commit[store.Body]
	Snapshot []store.Record
	Err      error

	done chan<- error
}

// eventQueue is a thread-safe, unbounded FIFO queue for events.
//
// Callers enqueue from any goroutine (HTTP handlers, persist goroutines);
// only the Run loop dequeues. The signal channel lets Run wait on the queue
// and its context at the same time.
type eventQueue struct {
	mu     sync.Mutex
	events []Event
	closed bool
	signal chan struct{} // buffered, size 1
}

func newEventQueue() *eventQueue {
	return &eventQueue{
		events: make([]Event, 0, 16),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds an event to the back of the queue.
// Returns false if the queue is closed.
func (q *eventQueue) Enqueue(e Event) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.events = append(q.events, e)

	// Non-blocking: the buffer of 1 coalesces signals.
	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// TryDequeue removes the front event without blocking.
func (q *eventQueue) TryDequeue() (Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.events) == 0 {
		return Event{}, false
	}

	e := q.events[0]
	// Release the slot's pointers for GC.
	q.events[0] = Event{}
	if len(q.events) == 1 {
		q.events = q.events[:0]
	} else {
		q.events = q.events[1:]
	}
	return e, true
}

// Wait returns a channel that signals when events may be available. It is
// closed by Close.
func (q *eventQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current queue length.
func (q *eventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// Close stops accepting events and wakes the Run loop.
func (q *eventQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}

// Closed reports whether Close has been called.
func (q *eventQueue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Drain removes and returns every queued event. Used after Close so that no
// caller is left waiting on a reply.
func (q *eventQueue) Drain() []Event {
	q.mu.Lock()
	defer q.mu.Unlock()

	events := q.events
	q.events = nil
	return events
}
