package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"menuflow-backend/internal/extract"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryStore keeps cached extractions in memory and is safe for concurrent
// use. It serializes values the same way the Postgres store does so both
// exercise the corrupt-value-is-a-miss path identically.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryStore constructs a MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// Get implements Store.
func (s *MemoryStore) Get(ctx context.Context, key string) (*extract.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[key]
	if !ok {
		return nil, nil
	}
	if s.now().After(entry.expiresAt) {
		delete(s.entries, key)
		return nil, nil
	}
	var result extract.Result
	if err := json.Unmarshal(entry.value, &result); err != nil {
		delete(s.entries, key)
		return nil, nil
	}
	return &result, nil
}

// Set implements Store.
func (s *MemoryStore) Set(ctx context.Context, key string, result *extract.Result, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	value, err := json.Marshal(result)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = memoryEntry{value: value, expiresAt: s.now().Add(ttl)}
	return nil
}

var _ Store = (*MemoryStore)(nil)
