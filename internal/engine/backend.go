package engine

import (
	"context"

	"github.com/roach88/ordinal/internal/reorder"
	"github.com/roach88/ordinal/internal/store"
)

// Backend is the system of record the engine loads from and persists to.
type Backend interface {
	// Load returns every record of a list.
	Load(ctx context.Context, list string) ([]store.Record, error)
	// Persister returns the persister for one group of a list.
	Persister(list, group string) reorder.Persister[store.Body]
}

// StoreBackend serves a Backend from the SQLite store.
type StoreBackend struct {
	store  *store.Store
	tokens TokenGenerator
}

// NewStoreBackend creates a backend over s. A nil tokens uses UUIDv7Generator.
func NewStoreBackend(s *store.Store, tokens TokenGenerator) *StoreBackend {
	if tokens == nil {
		tokens = UUIDv7Generator{}
	}
	return &StoreBackend{store: s, tokens: tokens}
}

// Load implements Backend.
func (b *StoreBackend) Load(ctx context.Context, list string) ([]store.Record, error) {
	return b.store.ListRecords(ctx, list)
}

// Persister implements Backend.
func (b *StoreBackend) Persister(list, group string) reorder.Persister[store.Body] {
	return b.store.Persister(list, group, b.tokens)
}
