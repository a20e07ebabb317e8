package repository

import (
	"context"
	"sync/atomic"

	"github.com/okian/ourabridge/internal/domain/model"
)

// MemoryStore keeps the latest snapshot in process memory.
type MemoryStore struct {
	current atomic.Pointer[model.Snapshot]
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Save replaces the current snapshot.
func (s *MemoryStore) Save(_ context.Context, snap model.Snapshot) error {
	s.current.Store(&snap)
	return nil
}

// Latest returns the current snapshot.
func (s *MemoryStore) Latest(_ context.Context) (model.Snapshot, error) {
	p := s.current.Load()
	if p == nil {
		return model.Snapshot{}, ErrNotFound
	}
	return *p, nil
}
