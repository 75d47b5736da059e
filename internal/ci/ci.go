// Package ci defines the CI-server capability surface the triage engine
// consumes, together with the build metadata types shared across packages.
// The engine never owns builds; it fetches them on demand and discards them.
package ci

import (
	"context"
	"errors"
	"time"
)

// Result enumerates terminal build outcomes as reported by the server.
// An empty Result means the build has not finished.
type Result string

const (
	ResultSuccess  Result = "SUCCESS"
	ResultFailure  Result = "FAILURE"
	ResultUnstable Result = "UNSTABLE"
	ResultAborted  Result = "ABORTED"
	ResultNotBuilt Result = "NOT_BUILT"
)

// ErrBuildNotFound reports that a build number has no record on the server,
// typically because the history was pruned.
var ErrBuildNotFound = errors.New("build not found")

// ErrJobNotFound reports that the server has no job with the given name.
var ErrJobNotFound = errors.New("job not found")

// BuildRef identifies a build within a job without carrying its metadata.
type BuildRef struct {
	Number int
	URL    string
}

// Build carries the per-build metadata the engine consumes. Timestamp is the
// build's start time.
type Build struct {
	Job         string
	Number      int
	Result      Result
	Timestamp   time.Time
	URL         string
	DisplayName string
}

// BuildKey identifies a build across jobs.
type BuildKey struct {
	Job    string
	Number int
}

// Key returns the build's identity.
func (b Build) Key() BuildKey {
	return BuildKey{Job: b.Job, Number: b.Number}
}

// JobRef is one entry in the server's job index. Color is the server's
// status hint (e.g. "blue", "red", "disabled") and is passed through as-is.
type JobRef struct {
	Name  string
	URL   string
	Color string
}

// Client is the remote capability surface required by the triage engine.
// Implementations map transport-level "no such build" conditions to
// ErrBuildNotFound so the walk can recover locally.
type Client interface {
	// LastCompletedBuild resolves the most recent completed build of a job.
	// It returns (nil, nil) when the job has never completed a build.
	LastCompletedBuild(ctx context.Context, job string) (*BuildRef, error)

	// BuildInfo fetches one build's metadata.
	BuildInfo(ctx context.Context, job string, number int) (Build, error)

	// ConsoleText fetches a build's full console log.
	ConsoleText(ctx context.Context, job string, number int) (string, error)

	// ListJobs enumerates the jobs known to the server.
	ListJobs(ctx context.Context) ([]JobRef, error)
}
