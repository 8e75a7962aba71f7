package pairing

import (
	"context"
	"sync"
)

// MemoryStore is an in-process Store for development and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

func (s *MemoryStore) Put(rec Record) {
	s.mu.Lock()
	s.records[rec.ID] = rec
	s.mu.Unlock()
}

func (s *MemoryStore) Delete(pairID string) {
	s.mu.Lock()
	delete(s.records, pairID)
	s.mu.Unlock()
}

func (s *MemoryStore) Lookup(ctx context.Context, pairID string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}

	s.mu.RLock()
	rec, ok := s.records[pairID]
	s.mu.RUnlock()

	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}
