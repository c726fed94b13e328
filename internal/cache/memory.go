package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Store is a typed in-memory cache with per-entry expiry
type Store[T any] struct {
	cache *gocache.Cache
}

// NewStore creates a new store. Entries expire after defaultTTL unless
// touched; expired entries are purged every cleanupInterval.
func NewStore[T any](defaultTTL time.Duration, cleanupInterval time.Duration) *Store[T] {
	return &Store[T]{
		cache: gocache.New(defaultTTL, cleanupInterval),
	}
}

// Get retrieves a value from the store
func (s *Store[T]) Get(key string) (T, bool) {
	if val, found := s.cache.Get(key); found {
		if v, ok := val.(T); ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}

// Set stores a value with the default TTL
func (s *Store[T]) Set(key string, value T) {
	s.cache.Set(key, value, gocache.DefaultExpiration)
}

// Add stores a value only if key is absent or expired
func (s *Store[T]) Add(key string, value T) bool {
	return s.cache.Add(key, value, gocache.DefaultExpiration) == nil
}

// Touch returns the value and restarts its expiry
func (s *Store[T]) Touch(key string) (T, bool) {
	v, ok := s.Get(key)
	if ok {
		s.cache.Set(key, v, gocache.DefaultExpiration)
	}
	return v, ok
}

// Delete removes a value from the store
func (s *Store[T]) Delete(key string) {
	s.cache.Delete(key)
}

// Len returns the number of entries, including expired ones not yet purged
func (s *Store[T]) Len() int {
	return s.cache.ItemCount()
}

// Clear removes all values from the store
func (s *Store[T]) Clear() {
	s.cache.Flush()
}

// OnEvicted registers fn to run when an entry expires or is deleted
func (s *Store[T]) OnEvicted(fn func(key string, value T)) {
	s.cache.OnEvicted(func(key string, val interface{}) {
		if v, ok := val.(T); ok {
			fn(key, v)
		}
	})
}
