package triage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	"buildtriage/internal/ci"
)

func waitForSnapshot(t *testing.T, r *Refresher, ok func(*Snapshot) bool) *Snapshot {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if snap, exists := r.Latest(); exists && ok(snap) {
			return snap
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for snapshot")
	return nil
}

func TestRefresherServesLatestSnapshot(t *testing.T) {
	mock := fixedMock(t)
	now := mock.Now()

	client := &fakeClient{
		last: &ci.BuildRef{Number: 2},
		builds: map[int]ci.Build{
			2: {Job: "j", Number: 2, Result: ci.ResultFailure, Timestamp: now.Add(-time.Hour)},
			1: {Job: "j", Number: 1, Result: ci.ResultFailure, Timestamp: now.Add(-30 * time.Hour)},
		},
		console: map[int]string{2: "java.lang.OutOfMemoryError"},
	}
	runner := NewRunner(nil, client, mustCatalog(t, triageCatalog), mock, 1)
	refresher := NewRefresher(nil, runner, Params{Job: "j", HoursAgo: 24}, time.Minute, mock)

	if _, ok := refresher.Latest(); ok {
		t.Fatalf("no snapshot may exist before the first refresh")
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- refresher.Run(ctx) }()

	first := waitForSnapshot(t, refresher, func(s *Snapshot) bool { return true })
	if len(first.Rows) != 1 || first.Rows[0].Number != 2 {
		t.Fatalf("unexpected first snapshot rows: %+v", first.Rows)
	}

	// A new failing build appears; a later tick must pick it up.
	client.mu.Lock()
	client.last = &ci.BuildRef{Number: 3}
	client.builds[3] = ci.Build{Job: "j", Number: 3, Result: ci.ResultFailure, Timestamp: now.Add(-30 * time.Minute)}
	client.console[3] = "Timeout waiting"
	client.mu.Unlock()

	var second *Snapshot
	for attempt := 0; attempt < 100 && second == nil; attempt++ {
		mock.Add(time.Minute)
		time.Sleep(2 * time.Millisecond)
		if snap, ok := refresher.Latest(); ok && len(snap.Rows) == 2 {
			second = snap
		}
	}
	if second == nil {
		t.Fatalf("refresher never picked up the new build")
	}
	if second.Rows[0].Number != 3 {
		t.Fatalf("newest build must lead the report, got %+v", second.Rows)
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("run returned %v", err)
	}
}

func TestRefresherKeepsSnapshotWhenRefreshFails(t *testing.T) {
	mock := fixedMock(t)
	now := mock.Now()

	client := &fakeClient{
		last: &ci.BuildRef{Number: 2},
		builds: map[int]ci.Build{
			2: {Job: "j", Number: 2, Result: ci.ResultFailure, Timestamp: now.Add(-time.Hour)},
			1: {Job: "j", Number: 1, Result: ci.ResultFailure, Timestamp: now.Add(-30 * time.Hour)},
		},
		console: map[int]string{2: "java.lang.OutOfMemoryError"},
	}
	runner := NewRunner(nil, client, mustCatalog(t, triageCatalog), mock, 1)
	refresher := NewRefresher(nil, runner, Params{Job: "j", HoursAgo: 24}, time.Minute, mock)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- refresher.Run(ctx) }()

	first := waitForSnapshot(t, refresher, func(s *Snapshot) bool { return true })

	client.mu.Lock()
	client.lastErr = errors.New("jenkins unreachable")
	client.mu.Unlock()

	for i := 0; i < 3; i++ {
		mock.Add(time.Minute)
		time.Sleep(2 * time.Millisecond)
	}

	current, ok := refresher.Latest()
	if !ok || current != first {
		t.Fatalf("failed refreshes must keep the previous snapshot")
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("run returned %v", err)
	}
}
