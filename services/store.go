package services

import (
	"sync"
	"time"
)

// KeyedStore is time-bounded key-value storage for transient auth state:
// pending registrations, OTP codes and resend cooldowns. Call sites only see
// this interface so the in-process map can be swapped for a distributed
// cache without touching them.
type KeyedStore interface {
	Set(key string, value interface{}, ttl time.Duration)
	Get(key string) (interface{}, bool)
	Has(key string) bool
	Delete(key string)
}

type memoryEntry struct {
	value     interface{}
	expiresAt time.Time // zero means no expiry
}

// MemoryStore is a process-local KeyedStore with lazy expiry: entries past
// their TTL are dropped when read, never by a background sweeper. Entries
// that expire and are never read again stay resident until restart, which is
// fine at this volume. State does not survive restarts or scale past one
// process.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
	}
}

// Set stores a value. A ttl of zero means the entry never expires.
func (s *MemoryStore) Set(key string, value interface{}, ttl time.Duration) {
	entry := memoryEntry{value: value}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}

	s.mu.Lock()
	s.entries[key] = entry
	s.mu.Unlock()
}

func (s *MemoryStore) Get(key string) (interface{}, bool) {
	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok {
		return nil, false
	}

	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		s.Delete(key)
		return nil, false
	}

	return entry.value, true
}

func (s *MemoryStore) Has(key string) bool {
	_, ok := s.Get(key)
	return ok
}

func (s *MemoryStore) Delete(key string) {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
}
