// Package cache is a small read-through cache for remote and store reads.
// Keys are slash-joined parts, and invalidating a prefix drops every key
// below it, so Invalidate("timeTrackingSummaries") clears the summaries
// of every card set.
package cache

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultStaleTime is how long a fetched value is served without reloading
const DefaultStaleTime = 5 * time.Minute

type entry struct {
	value   any
	fetched time.Time
}

type Cache struct {
	mu         sync.Mutex
	entries    map[string]entry
	generation uint64
	staleTime  time.Duration
	group      singleflight.Group
	now        func() time.Time
}

// New creates a cache. A non-positive staleTime disables storage, every
// Fetch then loads.
func New(staleTime time.Duration) *Cache {
	return &Cache{
		entries:   make(map[string]entry),
		staleTime: staleTime,
		now:       time.Now,
	}
}

// Key joins parts into a cache key
func Key(parts ...any) string {
	s := make([]string, len(parts))
	for i, p := range parts {
		s[i] = fmt.Sprint(p)
	}
	return strings.Join(s, "/")
}

// Fetch returns the cached value for key if it is fresh, otherwise it calls
// load once (concurrent callers share the call) and stores the result.
// Errors are never cached.
func Fetch[T any](ctx context.Context, c *Cache, key string, load func(context.Context) (T, error)) (T, error) {
	if v, ok := c.get(key); ok {
		if typed, ok := v.(T); ok {
			return typed, nil
		}
	}

	c.mu.Lock()
	gen := c.generation
	c.mu.Unlock()

	v, err, _ := c.group.Do(key, func() (any, error) {
		val, err := load(ctx)
		if err != nil {
			return nil, err
		}
		c.put(key, val, gen)
		return val, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

func (c *Cache) get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().Sub(e.fetched) >= c.staleTime {
		delete(c.entries, key)
		return nil, false
	}
	return e.value, true
}

// put stores the value unless an invalidation happened after the load began
func (c *Cache) put(key string, value any, gen uint64) {
	if c.staleTime <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		return
	}
	c.entries[key] = entry{value: value, fetched: c.now()}
}

// Invalidate drops the key built from parts and every key below it
func (c *Cache) Invalidate(parts ...any) {
	prefix := Key(parts...)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.generation++
	for k := range c.entries {
		if k == prefix || strings.HasPrefix(k, prefix+"/") {
			delete(c.entries, k)
		}
	}
}

// Clear drops everything
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.generation++
	c.entries = make(map[string]entry)
}

// Len returns the number of stored entries, stale ones included
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
