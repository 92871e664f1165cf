package codehash

import "sync"

// Store caches resolved code hashes by account address. A stored None means
// the address was queried and has no code; a missing key means never queried.
type Store interface {
	Get(address string) (Hash, bool)
	Set(address string, h Hash)
	Len() int
}

// MemoryStore is a process-lifetime Store. Deployed code is immutable, so
// entries never expire and concurrent writers always agree on the value.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]Hash
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]Hash)}
}

func (s *MemoryStore) Get(address string) (Hash, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.data[address]
	return h, ok
}

func (s *MemoryStore) Set(address string, h Hash) {
	if address == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[address] = h
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
