package store

import (
	"context"
	"sync"

	carterrors "github.com/abgdnv/gocommerce/cart_service/internal/errors"
)

// MemoryRecordStore implements RecordStore using an in-memory map.
type MemoryRecordStore struct {
	mu      sync.RWMutex
	records map[string][]byte
}

// NewMemoryRecordStore creates a new instance of MemoryRecordStore.
func NewMemoryRecordStore() *MemoryRecordStore {
	return &MemoryRecordStore{
		records: make(map[string][]byte),
	}
}

// Load retrieves a copy of the record by its name.
func (s *MemoryRecordStore) Load(_ context.Context, name string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.records[name]
	if !ok {
		return nil, carterrors.ErrRecordNotFound
	}
	return append([]byte(nil), data...), nil
}

// Save stores a copy of data under name.
func (s *MemoryRecordStore) Save(_ context.Context, name string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[name] = append([]byte(nil), data...)
	return nil
}
