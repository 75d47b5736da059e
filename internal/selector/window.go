package selector

import (
	"time"

	"buildtriage/internal/ci"
)

// Window is the per-run report window. It is derived once at the start of a
// run; the cutoff never moves while a walk is in progress.
type Window struct {
	Now            time.Time `json:"now"`
	Cutoff         time.Time `json:"cutoff"`
	IncludeSuccess bool      `json:"includeSuccess"`
}

// NewWindow derives a window ending at now and opening hoursAgo hours
// earlier.
func NewWindow(now time.Time, hoursAgo int, includeSuccess bool) Window {
	return Window{
		Now:            now,
		Cutoff:         now.Add(-time.Duration(hoursAgo) * time.Hour),
		IncludeSuccess: includeSuccess,
	}
}

// InRange reports whether a start timestamp falls at or after the cutoff.
func (w Window) InRange(ts time.Time) bool { return !ts.Before(w.Cutoff) }

// Includes decides whether a build belongs in the report: it must start
// inside the window, and successful builds only count when the window says
// so. Every non-success result inside the window is reported.
func (w Window) Includes(b ci.Build) bool {
	if !w.InRange(b.Timestamp) {
		return false
	}
	if b.Result == ci.ResultSuccess && !w.IncludeSuccess {
		return false
	}
	return true
}
