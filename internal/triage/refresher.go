package triage

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"buildtriage/internal/utils"
)

// defaultRefreshInterval paces serve-mode refreshes when the configuration
// does not say otherwise.
const defaultRefreshInterval = 5 * time.Minute

// Refresher periodically re-runs a report and keeps the newest snapshot for
// the HTTP layer. A failed refresh keeps the previous snapshot.
type Refresher struct {
	logger    *slog.Logger
	runner    *Runner
	params    Params
	interval  time.Duration
	clk       clock.Clock
	latencies *utils.LatencyTracker

	mu     sync.RWMutex
	latest *Snapshot
}

// NewRefresher constructs a refresher; clk may be nil for the wall clock.
func NewRefresher(logger *slog.Logger, runner *Runner, params Params, interval time.Duration, clk clock.Clock) *Refresher {
	if logger == nil {
		logger = slog.Default()
	}
	if clk == nil {
		clk = clock.New()
	}
	if interval <= 0 {
		interval = defaultRefreshInterval
	}
	return &Refresher{
		logger:    logger,
		runner:    runner,
		params:    params,
		interval:  interval,
		clk:       clk,
		latencies: utils.NewLatencyTracker(256),
	}
}

// Run refreshes immediately, then on every tick until the context ends.
func (r *Refresher) Run(ctx context.Context) error {
	r.refresh(ctx)

	ticker := r.clk.Ticker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			r.refresh(ctx)
		}
	}
}

// Latest returns the newest snapshot, when one exists.
func (r *Refresher) Latest() (*Snapshot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.latest == nil {
		return nil, false
	}
	return r.latest, true
}

func (r *Refresher) refresh(ctx context.Context) {
	start := r.clk.Now()
	snap, err := r.runner.Run(ctx, r.params)
	if err != nil {
		r.logger.Error("report refresh failed, keeping previous snapshot",
			"job", r.params.Job,
			"error", err,
		)
		return
	}

	r.mu.Lock()
	r.latest = snap
	r.mu.Unlock()

	r.latencies.Observe(r.clk.Now().Sub(start))
	if count := r.latencies.Count(); count >= 10 && count%10 == 0 {
		r.logger.Info("refresh latency",
			slog.Duration("p95", r.latencies.Percentile(95)),
			slog.Int("samples", count),
		)
	}
}
