// Package cache provides a simple in-memory TTL cache.
// The ledger service keeps raw account entries here between view loads.
package cache

import (
	"sync"
	"time"
)

type entry[T any] struct {
	value     T
	expiresAt time.Time
}

// InMemory is a thread-safe in-memory cache with TTL.
type InMemory[T any] struct {
	mu    sync.RWMutex
	items map[string]entry[T]
	ttl   time.Duration

	// loads de-duplicates concurrent GetOrLoad calls for the same key.
	loads map[string]*load[T]

	stop     chan struct{}
	stopOnce sync.Once
}

type load[T any] struct {
	done  chan struct{}
	value T
	err   error

	// detached is set under mu when Set or Delete ran after the load
	// started; its result is then handed to its waiters but not stored.
	detached bool
}

// New creates a new in-memory cache with the given TTL.
// Call Close to stop the background sweeper.
func New[T any](ttl time.Duration) *InMemory[T] {
	if ttl <= 0 {
		ttl = time.Minute
	}
	c := &InMemory[T]{
		items: make(map[string]entry[T]),
		loads: make(map[string]*load[T]),
		ttl:   ttl,
		stop:  make(chan struct{}),
	}
	go c.cleanup()
	return c
}

// Get retrieves a value from the cache. Returns false if not found or expired.
func (c *InMemory[T]) Get(key string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.items[key]
	if !ok || time.Now().After(e.expiresAt) {
		var zero T
		return zero, false
	}
	return e.value, true
}

// Set stores a value in the cache with the configured TTL.
func (c *InMemory[T]) Set(key string, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.detachLoad(key)
	c.items[key] = entry[T]{
		value:     value,
		expiresAt: time.Now().Add(c.ttl),
	}
}

// Delete removes a value from the cache. A load already in flight for key
// still answers its waiters but its result is not cached, and later
// callers start a fresh load.
func (c *InMemory[T]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.detachLoad(key)
	delete(c.items, key)
}

// detachLoad must be called with mu held.
func (c *InMemory[T]) detachLoad(key string) {
	if l, ok := c.loads[key]; ok {
		l.detached = true
		delete(c.loads, key)
	}
}

// GetOrLoad returns the cached value for key, or calls loader once and
// caches its result. Concurrent callers for the same key wait for the same
// load. Errors are returned to every waiter and not cached. hit reports
// whether the value came from the cache.
func (c *InMemory[T]) GetOrLoad(key string, loader func() (T, error)) (value T, hit bool, err error) {
	if v, ok := c.Get(key); ok {
		return v, true, nil
	}

	c.mu.Lock()
	if l, ok := c.loads[key]; ok {
		c.mu.Unlock()
		<-l.done
		return l.value, false, l.err
	}
	l := &load[T]{done: make(chan struct{})}
	c.loads[key] = l
	c.mu.Unlock()

	l.value, l.err = loader()

	c.mu.Lock()
	if !l.detached {
		delete(c.loads, key)
		if l.err == nil {
			c.items[key] = entry[T]{value: l.value, expiresAt: time.Now().Add(c.ttl)}
		}
	}
	c.mu.Unlock()
	close(l.done)

	return l.value, false, l.err
}

// Len returns the number of stored entries, expired ones included until the
// next sweep.
func (c *InMemory[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Close stops the background sweeper. The cache stays usable.
func (c *InMemory[T]) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
}

// cleanup periodically removes expired entries.
func (c *InMemory[T]) cleanup() {
	ticker := time.NewTicker(c.ttl)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.mu.Lock()
			now := time.Now()
			for k, v := range c.items {
				if now.After(v.expiresAt) {
					delete(c.items, k)
				}
			}
			c.mu.Unlock()
		}
	}
}
