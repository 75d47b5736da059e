package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"buildtriage/internal/ci"
)

var _ ci.Client = (*ConsoleClient)(nil)

// ConsoleClient wraps a ci.Client and memoises console text between refreshes.
// Completed builds' logs are immutable, so a hit never serves stale data.
type ConsoleClient struct {
	ci.Client
	cache  Provider
	ttl    time.Duration
	logger *slog.Logger
}

// NewConsoleClient decorates client with TTL-bounded console text caching.
func NewConsoleClient(client ci.Client, cache Provider, ttl time.Duration, logger *slog.Logger) *ConsoleClient {
	if cache == nil {
		cache = Noop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ConsoleClient{Client: client, cache: cache, ttl: ttl, logger: logger}
}

// ConsoleText serves the build's log from cache when possible.
func (c *ConsoleClient) ConsoleText(ctx context.Context, job string, number int) (string, error) {
	key := consoleKey(job, number)
	if cached, err := c.cache.Get(ctx, key); err == nil {
		return string(cached), nil
	}

	text, err := c.Client.ConsoleText(ctx, job, number)
	if err != nil {
		return "", err
	}
	if err := c.cache.Set(ctx, key, []byte(text), c.ttl); err != nil {
		c.logger.Warn("console cache store failed", "job", job, "build", number, "error", err)
	}
	return text, nil
}

func consoleKey(job string, number int) string {
	return fmt.Sprintf("console:%s:%d", job, number)
}
