// Package cache is a small in-process TTL cache for public browse responses.
package cache

import (
	"sync"
	"time"
)

type Cache struct {
	mu  sync.RWMutex
	ttl time.Duration
	now func() time.Time
	m   map[string]entry
}

type entry struct {
	val any
	exp time.Time
}

// New returns nil when ttl is not positive. A nil *Cache misses on every Get and drops every Set.
func New(ttl time.Duration) *Cache {
	if ttl <= 0 {
		return nil
	}

	return &Cache{
		ttl: ttl,
		now: time.Now,
		m:   make(map[string]entry),
	}
}

func (c *Cache) Get(key string) (any, bool) {
	if c == nil {
		return nil, false
	}

	now := c.now()
	c.mu.RLock()
	e, ok := c.m[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}

	if now.After(e.exp) {
		c.mu.Lock()
		delete(c.m, key)
		c.mu.Unlock()
		return nil, false
	}

	return e.val, true
}

func (c *Cache) Set(key string, val any) {
	if c == nil {
		return
	}

	c.mu.Lock()
	c.m[key] = entry{val: val, exp: c.now().Add(c.ttl)}
	c.mu.Unlock()
}

// Clear drops every entry. Writes that change product visibility call it.
func (c *Cache) Clear() {
	if c == nil {
		return
	}

	c.mu.Lock()
	c.m = make(map[string]entry)
	c.mu.Unlock()
}

// TTL is zero for a disabled cache.
func (c *Cache) TTL() time.Duration {
	if c == nil {
		return 0
	}
	return c.ttl
}
