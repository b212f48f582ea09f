package store

import (
	"context"
	"sync"

	"github.com/layer-3/starnotary/ports"
)

// MemoryStore is an in-memory implementation of the StateStore interface
type MemoryStore struct {
	data map[string]string
	mu   sync.RWMutex
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string]string),
	}
}

var _ ports.StateStore = (*MemoryStore)(nil)

// Get retrieves a value by key
func (s *MemoryStore) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.data[key]
	return value, ok, nil
}

// Set stores a value under key
func (s *MemoryStore) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = value
	return nil
}

// SetNX stores a value only if the key does not exist yet
func (s *MemoryStore) SetNX(ctx context.Context, key, value string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[key]; exists {
		return false, nil
	}
	s.data[key] = value
	return true, nil
}

// CompareAndSwap replaces the value under key if it still equals old
func (s *MemoryStore) CompareAndSwap(ctx context.Context, key, old, new string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, exists := s.data[key]
	if !exists || current != old {
		return false, nil
	}
	s.data[key] = new
	return true, nil
}

