package cache

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// Memory is a process-local cache with per-entry TTLs.
type Memory struct {
	clk  clock.Clock
	mu   sync.Mutex
	data map[string]entry
}

type entry struct {
	value     []byte
	expiresAt time.Time
}

// NewMemory creates an empty in-memory cache. A nil clock uses wall time.
func NewMemory(clk clock.Clock) *Memory {
	if clk == nil {
		clk = clock.New()
	}
	return &Memory{clk: clk, data: make(map[string]entry)}
}

// Get retrieves a cached value if present and not expired.
func (c *Memory) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.data[key]
	if !ok {
		return nil, ErrCacheMiss
	}
	if !e.expiresAt.IsZero() && c.clk.Now().After(e.expiresAt) {
		delete(c.data, key)
		return nil, ErrCacheMiss
	}
	return e.value, nil
}

// Set stores a value. A non-positive ttl keeps the entry until deleted.
func (c *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var expires time.Time
	if ttl > 0 {
		expires = c.clk.Now().Add(ttl)
	}
	c.data[key] = entry{value: value, expiresAt: expires}
	return nil
}

// Delete removes an entry.
func (c *Memory) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}
