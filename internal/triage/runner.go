// Package triage orchestrates report runs: walk the build history, classify
// the failing builds' console logs, assemble the result.
package triage

import (
	"context"
	"log/slog"
	"time"

	"github.com/benbjohnson/clock"
	"golang.org/x/sync/errgroup"

	"buildtriage/internal/catalog"
	"buildtriage/internal/ci"
	"buildtriage/internal/classify"
	"buildtriage/internal/metrics"
	"buildtriage/internal/report"
	"buildtriage/internal/selector"
)

// defaultParallelism bounds concurrent console fetches when the caller does
// not say otherwise.
const defaultParallelism = 4

// Params selects what a report run covers.
type Params struct {
	Job            string
	HoursAgo       int
	IncludeSuccess bool
}

// Snapshot is one report run's complete output.
type Snapshot struct {
	Job         string          `json:"job"`
	GeneratedAt time.Time       `json:"generatedAt"`
	Window      selector.Window `json:"window"`
	Visited     int             `json:"visited"`
	Rows        []report.Row    `json:"rows"`
	Summary     report.Summary  `json:"summary"`
}

// Runner executes report runs against one CI server.
type Runner struct {
	logger     *slog.Logger
	client     ci.Client
	cat        *catalog.Catalog
	classifier *classify.Classifier
	selector   *selector.Selector
	clk        clock.Clock
	parallel   int
}

// NewRunner constructs a runner. clk may be nil for the wall clock; parallel
// values below one fall back to the default.
func NewRunner(logger *slog.Logger, client ci.Client, cat *catalog.Catalog, clk clock.Clock, parallel int) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	if clk == nil {
		clk = clock.New()
	}
	if parallel < 1 {
		parallel = defaultParallelism
	}
	return &Runner{
		logger:     logger,
		client:     client,
		cat:        cat,
		classifier: classify.New(cat),
		selector:   selector.New(client, logger),
		clk:        clk,
		parallel:   parallel,
	}
}

// Run executes one report run. Walk failures abort the run; per-build
// console failures only leave that build unclassified.
func (r *Runner) Run(ctx context.Context, p Params) (*Snapshot, error) {
	start := r.clk.Now()
	window := selector.NewWindow(start, p.HoursAgo, p.IncludeSuccess)
	r.logger.Info("report run starting",
		"job", p.Job,
		"cutoff", window.Cutoff,
		"includeSuccess", p.IncludeSuccess,
	)

	decisions, err := r.selector.Select(ctx, p.Job, window)
	if err != nil {
		metrics.ObserveReport(r.clk.Now().Sub(start), metrics.OutcomeError)
		return nil, err
	}

	classifications := r.classifyIncluded(ctx, decisions)
	if err := ctx.Err(); err != nil {
		metrics.ObserveReport(r.clk.Now().Sub(start), metrics.OutcomeError)
		return nil, err
	}

	rows := report.Assemble(decisions, classifications, r.cat)
	snap := &Snapshot{
		Job:         p.Job,
		GeneratedAt: start,
		Window:      window,
		Visited:     len(decisions),
		Rows:        rows,
		Summary:     report.Summarize(rows, r.cat),
	}

	duration := r.clk.Now().Sub(start)
	metrics.ObserveReport(duration, metrics.OutcomeSuccess)
	r.logger.Info("report run finished",
		"job", p.Job,
		"visited", snap.Visited,
		"rows", len(rows),
		"duration", duration,
	)
	return snap, nil
}

// classifyIncluded fetches console logs for the included non-success builds
// and classifies them, bounded by the runner's parallelism. Results land in
// per-decision slots so no locking is needed.
func (r *Runner) classifyIncluded(ctx context.Context, decisions []selector.Decision) map[ci.BuildKey][]string {
	type slot struct {
		key    ci.BuildKey
		causes []string
		err    error
	}

	slots := make([]slot, len(decisions))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.parallel)
	for i, d := range decisions {
		if !d.Included || d.Build.Result == ci.ResultSuccess {
			continue
		}
		i, build := i, d.Build
		g.Go(func() error {
			text, err := r.client.ConsoleText(gctx, build.Job, build.Number)
			if err != nil {
				slots[i] = slot{key: build.Key(), err: err}
				return nil
			}
			slots[i] = slot{key: build.Key(), causes: r.classifier.Classify(text)}
			return nil
		})
	}
	_ = g.Wait() // per-build failures live in their slots

	classifications := make(map[ci.BuildKey][]string)
	for _, s := range slots {
		if s.key == (ci.BuildKey{}) {
			continue
		}
		if s.err != nil {
			metrics.CountLogFetchFailure()
			r.logger.Warn("console fetch failed, reporting build unclassified",
				"job", s.key.Job,
				"build", s.key.Number,
				"error", s.err,
			)
			classifications[s.key] = nil
			continue
		}
		for _, name := range s.causes {
			metrics.CountSignatureMatch(name)
		}
		classifications[s.key] = s.causes
	}
	return classifications
}
