package common

import (
	"context"
	"sync"
)

type mutexEntry struct {
	sem  chan struct{}
	refs int
}

// KeyedMutex serializes critical sections per key. Entries are dropped
// once no goroutine holds or waits on them, so the map stays bounded by
// the number of in-flight operations.
type KeyedMutex struct {
	mu      sync.Mutex
	entries map[string]*mutexEntry
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{entries: make(map[string]*mutexEntry)}
}

// Lock acquires the mutex for key, waiting until it is free or ctx is
// done. On success the returned func releases the lock; a caller that is
// cancelled while waiting acquires nothing and leaves no side effects.
func (m *KeyedMutex) Lock(ctx context.Context, key string) (func(), error) {
	m.mu.Lock()
	entry, ok := m.entries[key]
	if !ok {
		entry = &mutexEntry{sem: make(chan struct{}, 1)}
		m.entries[key] = entry
	}
	entry.refs++
	m.mu.Unlock()

	select {
	case entry.sem <- struct{}{}:
		return func() {
			<-entry.sem
			m.release(key, entry)
		}, nil
	case <-ctx.Done():
		m.release(key, entry)
		return nil, ctx.Err()
	}
}

func (m *KeyedMutex) release(key string, entry *mutexEntry) {
	m.mu.Lock()
	entry.refs--
	if entry.refs == 0 {
		delete(m.entries, key)
	}
	m.mu.Unlock()
}
