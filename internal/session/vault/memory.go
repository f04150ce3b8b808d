package vault

import (
	"context"
	"sync"
	"time"
)

// memoryStore keeps records in a map. For development and tests.
type memoryStore struct {
	mu   sync.RWMutex
	data map[string]Record
}

// NewMemory creates an in-memory store.
func NewMemory() Store {
	return &memoryStore{data: make(map[string]Record)}
}

func (s *memoryStore) Load(_ context.Context, sid string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.data[sid]
	if !ok {
		return nil, ErrNotFound
	}
	out := rec
	return &out, nil
}

func (s *memoryStore) Save(_ context.Context, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *rec
	cp.UpdatedAt = time.Now().UTC()
	s.data[rec.SID] = cp
	return nil
}

func (s *memoryStore) Delete(_ context.Context, sid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, sid)
	return nil
}
