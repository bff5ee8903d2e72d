package storage

import (
	"context"
	"sync/atomic"

	"github.com/patrickmn/go-cache"
)

// MemorySlotStore keeps slots in process memory; nothing outlives the process
type MemorySlotStore struct {
	cache  *cache.Cache
	closed atomic.Bool
}

// NewMemorySlotStore creates an in-memory store. Entries never expire on
// their own; the image cache clears them explicitly.
func NewMemorySlotStore() *MemorySlotStore {
	return &MemorySlotStore{
		cache: cache.New(cache.NoExpiration, 0),
	}
}

func (s *MemorySlotStore) Get(ctx context.Context, key string) (string, bool, error) {
	if s.closed.Load() {
		return "", false, ErrStoreClosed
	}
	v, ok := s.cache.Get(key)
	if !ok {
		return "", false, nil
	}
	value, ok := v.(string)
	return value, ok, nil
}

func (s *MemorySlotStore) Put(ctx context.Context, key, value string) error {
	if s.closed.Load() {
		return ErrStoreClosed
	}
	s.cache.Set(key, value, cache.NoExpiration)
	return nil
}

func (s *MemorySlotStore) Delete(ctx context.Context, key string) error {
	if s.closed.Load() {
		return ErrStoreClosed
	}
	s.cache.Delete(key)
	return nil
}

func (s *MemorySlotStore) Close() error {
	if s.closed.CompareAndSwap(false, true) {
		s.cache.Flush()
	}
	return nil
}
