// Package cache provides TTL-based response caching backends for the Wren
// client. A Store holds one Entry per request key (the full request URL);
// expired entries are treated as absent and overwritten on the next fill.
package cache

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Entry represents one cached response with expiration metadata
type Entry struct {
	Key         string
	StatusCode  int
	Body        []byte
	ContentType string
	CachedAt    time.Time
	ExpiresAt   time.Time
}

// Store is the storage backend contract. Get returns (nil, nil) when the key
// is absent or the entry has expired.
type Store interface {
	Get(ctx context.Context, key string) (*Entry, error)
	Set(ctx context.Context, key string, entry *Entry, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// MemoryStore is an in-process Store with background cleanup of expired
// entries.
type MemoryStore struct {
	entries map[string]*Entry
	mu      sync.RWMutex
	done    chan struct{} // Signal to stop cleanup goroutine
}

// NewMemoryStore creates a memory-backed store and starts its cleanup
// goroutine, which removes expired entries once a minute.
func NewMemoryStore() *MemoryStore {
	store := &MemoryStore{
		entries: make(map[string]*Entry),
		done:    make(chan struct{}),
	}

	go store.cleanupLoop()

	return store
}

// Get returns the entry for key, or nil if absent or expired
func (ms *MemoryStore) Get(ctx context.Context, key string) (*Entry, error) {
	if key == "" {
		return nil, fmt.Errorf("key cannot be empty")
	}

	ms.mu.RLock()
	defer ms.mu.RUnlock()

	entry, exists := ms.entries[key]
	if !exists {
		return nil, nil
	}
	if time.Now().After(entry.ExpiresAt) {
		return nil, nil
	}

	return entry, nil
}

// Set stores the entry under key with the given TTL
func (ms *MemoryStore) Set(ctx context.Context, key string, entry *Entry, ttl time.Duration) error {
	if key == "" {
		return fmt.Errorf("key cannot be empty")
	}
	if entry == nil {
		return fmt.Errorf("entry cannot be nil")
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := time.Now()
	stored := *entry
	stored.Key = key
	stored.CachedAt = now
	stored.ExpiresAt = now.Add(ttl)
	ms.entries[key] = &stored

	return nil
}

// Delete removes the entry for key
func (ms *MemoryStore) Delete(ctx context.Context, key string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	delete(ms.entries, key)
	return nil
}

// Size returns the current number of entries, including expired ones not yet
// cleaned up
func (ms *MemoryStore) Size() int {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	return len(ms.entries)
}

// Close stops the cleanup goroutine
func (ms *MemoryStore) Close() error {
	close(ms.done)
	return nil
}

// cleanupLoop periodically removes expired entries
func (ms *MemoryStore) cleanupLoop() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ms.cleanup()
		case <-ms.done:
			return
		}
	}
}

// cleanup removes expired entries
func (ms *MemoryStore) cleanup() {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := time.Now()
	for key, entry := range ms.entries {
		if now.After(entry.ExpiresAt) {
			delete(ms.entries, key)
		}
	}
}
