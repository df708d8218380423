package testutil

import (
	"fmt"
	"sync"

	"github.com/roach88/ordinal/internal/reorder"
)

// Items builds records with dense SortOrder values in argument order. The
// payload is a title derived from the id.
func Items(ids ...string) []reorder.Item[string] {
	out := make([]reorder.Item[string], len(ids))
	for i, id := range ids {
		out[i] = reorder.Item[string]{ID: id, SortOrder: int64(i), Payload: "title " + id}
	}
	return out
}

// SequentialTokens generates "prefix-1", "prefix-2", ... for deterministic
// commit tokens and golden traces.
//
// Thread-safety: safe for concurrent use.
type SequentialTokens struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequentialTokens creates a generator. An empty prefix means "commit".
func NewSequentialTokens(prefix string) *SequentialTokens {
	if prefix == "" {
		prefix = "commit"
	}
	return &SequentialTokens{prefix: prefix}
}

// Generate returns the next token.
func (g *SequentialTokens) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}
