package engine

import "sync/atomic"

// Clock stamps every event the engine accepts with a strictly increasing
// sequence number. Logs and views carry it so the order in which commands and
// persist outcomes were applied can be read back without wall-clock time.
//
// Safe for concurrent use: Submit stamps from caller goroutines.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock whose next stamp is start+1.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last issued sequence number.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
