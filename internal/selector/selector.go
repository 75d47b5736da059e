// Package selector walks a job's build history backward and decides which
// builds a report covers.
package selector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"buildtriage/internal/ci"
	"buildtriage/internal/metrics"
)

// maxConsecutiveMissing bounds a run of ci.ErrBuildNotFound skips. Servers
// prune oldest-first, so this many missing numbers in a row means the walk
// has passed the retention horizon and nothing older can exist.
const maxConsecutiveMissing = 25

// BuildSource is the slice of the CI client the selector needs.
type BuildSource interface {
	LastCompletedBuild(ctx context.Context, job string) (*ci.BuildRef, error)
	BuildInfo(ctx context.Context, job string, number int) (ci.Build, error)
}

// Decision records one visited build and whether the window includes it.
type Decision struct {
	Build    ci.Build
	Included bool
}

// Selector enumerates candidate builds newest-first.
type Selector struct {
	source BuildSource
	logger *slog.Logger
}

// New constructs a selector over a build source.
func New(source BuildSource, logger *slog.Logger) *Selector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Selector{source: source, logger: logger}
}

// Select walks build numbers strictly descending from the job's last
// completed build, fetching metadata lazily, and returns one Decision per
// visited build in visit order. The walk continues while the fetched build's
// own timestamp is at or after the window cutoff, so the first out-of-window
// build is still visited (and excluded) before the walk stops. A missing
// build number is skipped; any other fetch failure aborts the walk.
func (s *Selector) Select(ctx context.Context, job string, w Window) ([]Decision, error) {
	last, err := s.source.LastCompletedBuild(ctx, job)
	if err != nil {
		return nil, fmt.Errorf("resolve last completed build of %s: %w", job, err)
	}
	if last == nil {
		s.logger.Info("job has no completed builds", "job", job)
		return nil, nil
	}

	var decisions []Decision
	missingRun := 0
	for number := last.Number; number >= 1; number-- {
		build, err := s.source.BuildInfo(ctx, job, number)
		if errors.Is(err, ci.ErrBuildNotFound) {
			missingRun++
			metrics.CountBuildMissing()
			s.logger.Warn("build record missing, skipping", "job", job, "build", number)
			if missingRun >= maxConsecutiveMissing {
				s.logger.Warn("walked past the retention horizon, stopping", "job", job, "build", number)
				break
			}
			continue
		}
		if err != nil {
			return decisions, fmt.Errorf("fetch build %s #%d: %w", job, number, err)
		}
		missingRun = 0
		metrics.CountBuildVisited()

		included := w.Includes(build)
		decisions = append(decisions, Decision{Build: build, Included: included})
		s.logger.Debug("visited build",
			"job", job,
			"build", number,
			"result", string(build.Result),
			"included", included,
		)

		if !w.InRange(build.Timestamp) {
			break
		}
	}
	return decisions, nil
}
