package access

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/jonboulle/clockwork"

	"github.com/frahmantamala/marketplace/internal/module"
)

const DefaultStoreSize = 512

// Store holds module aggregates keyed by name. A store reports a miss with
// (nil, false, nil); an error means the store itself is unavailable.
type Store interface {
	Get(ctx context.Context, name string) (*module.Module, bool, error)
	Set(ctx context.Context, name string, m *module.Module, ttl time.Duration) error
	Delete(ctx context.Context, names ...string) error
}

type memoryEntry struct {
	module    *module.Module
	expiresAt time.Time
}

// MemoryStore is a bounded LRU whose entries expire lazily against clock.
type MemoryStore struct {
	cache *lru.Cache[string, memoryEntry]
	clock clockwork.Clock
}

func NewMemoryStore(size int, clock clockwork.Clock) (*MemoryStore, error) {
	if size <= 0 {
		size = DefaultStoreSize
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	cache, err := lru.New[string, memoryEntry](size)
	if err != nil {
		return nil, err
	}
	return &MemoryStore{cache: cache, clock: clock}, nil
}

var _ Store = (*MemoryStore)(nil)

func (s *MemoryStore) Get(_ context.Context, name string) (*module.Module, bool, error) {
	entry, ok := s.cache.Get(name)
	if !ok {
		return nil, false, nil
	}
	if !s.clock.Now().Before(entry.expiresAt) {
		s.cache.Remove(name)
		return nil, false, nil
	}
	return entry.module, true, nil
}

func (s *MemoryStore) Set(_ context.Context, name string, m *module.Module, ttl time.Duration) error {
	s.cache.Add(name, memoryEntry{module: m, expiresAt: s.clock.Now().Add(ttl)})
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, names ...string) error {
	for _, name := range names {
		s.cache.Remove(name)
	}
	return nil
}

func (s *MemoryStore) Len() int {
	return s.cache.Len()
}
