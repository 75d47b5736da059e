package cache

import (
	"context"
	"errors"
	"time"
)

// Provider defines the minimal cache operations needed in serve mode.
type Provider interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// ErrCacheMiss signals that a cache key was not found.
var ErrCacheMiss = errors.New("cache miss")

// Noop implements Provider but never stores data.
type Noop struct{}

// Get always returns ErrCacheMiss.
func (Noop) Get(context.Context, string) ([]byte, error) {
	return nil, ErrCacheMiss
}

// Set discards the value and returns nil.
func (Noop) Set(context.Context, string, []byte, time.Duration) error {
	return nil
}

// Delete is a no-op for the noop cache.
func (Noop) Delete(context.Context, string) error { return nil }
