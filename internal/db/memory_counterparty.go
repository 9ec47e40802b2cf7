package db

import (
	"sync"

	"github.com/tintun2602/eduwallet-sub000/pkg/errorcode"
	"github.com/tintun2602/eduwallet-sub000/pkg/models/record"
)

// MemoryCounterpartyStore caches counterparty profiles in process memory. Used when no database is configured.
type MemoryCounterpartyStore struct {
	mu      sync.RWMutex
	entries map[string]record.Counterparty
}

func NewMemoryCounterpartyStore() *MemoryCounterpartyStore {
	return &MemoryCounterpartyStore{entries: make(map[string]record.Counterparty)}
}

func (s *MemoryCounterpartyStore) Get(address string) (*record.Counterparty, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counterparty, ok := s.entries[address]
	if !ok {
		return nil, errorcode.ErrorNotFound
	}

	return &counterparty, nil
}

func (s *MemoryCounterpartyStore) Save(counterparty *record.Counterparty) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[counterparty.Address] = *counterparty
	return nil
}
