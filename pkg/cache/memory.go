package cache

import (
	"context"
	"sync"
	"time"
)

type memoryItem struct {
	value      []byte
	expiration int64
}

// MemoryStore is the in-process Store used when the testing flag disables
// Redis. Semantics match RedisStore: misses return (nil, nil), expiry is
// lazy on read with a background sweep.
type MemoryStore struct {
	items map[string]memoryItem
	mu    sync.RWMutex
	stop  chan struct{}
}

func NewMemoryStore() *MemoryStore {
	store := &MemoryStore{
		items: make(map[string]memoryItem),
		stop:  make(chan struct{}),
	}
	go store.startGC()
	return store
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, found := s.items[key]
	if !found {
		return nil, nil
	}

	if time.Now().UnixNano() > item.expiration {
		return nil, nil
	}

	return item.value, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items[key] = memoryItem{
		value:      value,
		expiration: time.Now().Add(ttl).UnixNano(),
	}
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
	return nil
}

func (s *MemoryStore) Ping(_ context.Context) error {
	return nil
}

func (s *MemoryStore) Close() error {
	close(s.stop)
	return nil
}

func (s *MemoryStore) startGC() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.mu.Lock()
			now := time.Now().UnixNano()
			for k, v := range s.items {
				if now > v.expiration {
					delete(s.items, k)
				}
			}
			s.mu.Unlock()
		}
	}
}
