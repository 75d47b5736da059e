package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	"buildtriage/internal/ci"
)

type fakeConsoleSource struct {
	text    map[int]string
	err     error
	fetches int
}

func (f *fakeConsoleSource) LastCompletedBuild(context.Context, string) (*ci.BuildRef, error) {
	return nil, nil
}

func (f *fakeConsoleSource) BuildInfo(context.Context, string, int) (ci.Build, error) {
	return ci.Build{}, ci.ErrBuildNotFound
}

func (f *fakeConsoleSource) ConsoleText(_ context.Context, _ string, number int) (string, error) {
	f.fetches++
	if f.err != nil {
		return "", f.err
	}
	return f.text[number], nil
}

func (f *fakeConsoleSource) ListJobs(context.Context) ([]ci.JobRef, error) { return nil, nil }

func TestMemoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(nil)

	if _, err := c.Get(ctx, "missing"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("Get(missing) = %v, want ErrCacheMiss", err)
	}
	if err := c.Set(ctx, "k", []byte("v"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := c.Get(ctx, "k")
	if err != nil || string(got) != "v" {
		t.Fatalf("Get(k) = %q, %v", got, err)
	}
	if err := c.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := c.Get(ctx, "k"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("Get after Delete = %v, want ErrCacheMiss", err)
	}
}

func TestMemoryExpiresEntries(t *testing.T) {
	ctx := context.Background()
	mock := clock.NewMock()
	c := NewMemory(mock)

	if err := c.Set(ctx, "ttl", []byte("v"), time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := c.Set(ctx, "pinned", []byte("v"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}

	mock.Add(30 * time.Second)
	if _, err := c.Get(ctx, "ttl"); err != nil {
		t.Fatalf("entry expired early: %v", err)
	}

	mock.Add(31 * time.Second)
	if _, err := c.Get(ctx, "ttl"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("Get after TTL = %v, want ErrCacheMiss", err)
	}
	if _, err := c.Get(ctx, "pinned"); err != nil {
		t.Fatalf("zero-TTL entry should not expire: %v", err)
	}
}

func TestConsoleClientMemoises(t *testing.T) {
	ctx := context.Background()
	upstream := &fakeConsoleSource{text: map[int]string{7: "OutOfMemoryError", 8: "ok"}}
	client := NewConsoleClient(upstream, NewMemory(nil), time.Minute, nil)

	for i := 0; i < 3; i++ {
		got, err := client.ConsoleText(ctx, "nightly-deploy", 7)
		if err != nil || got != "OutOfMemoryError" {
			t.Fatalf("ConsoleText = %q, %v", got, err)
		}
	}
	if upstream.fetches != 1 {
		t.Fatalf("upstream fetched %d times, want 1", upstream.fetches)
	}

	// A different build number is a different key.
	if _, err := client.ConsoleText(ctx, "nightly-deploy", 8); err != nil {
		t.Fatalf("ConsoleText: %v", err)
	}
	if upstream.fetches != 2 {
		t.Fatalf("upstream fetched %d times, want 2", upstream.fetches)
	}
}

func TestConsoleClientDoesNotCacheErrors(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("console unavailable")
	upstream := &fakeConsoleSource{err: boom}
	client := NewConsoleClient(upstream, NewMemory(nil), time.Minute, nil)

	if _, err := client.ConsoleText(ctx, "nightly-deploy", 7); !errors.Is(err, boom) {
		t.Fatalf("ConsoleText error = %v, want %v", err, boom)
	}

	upstream.err = nil
	upstream.text = map[int]string{7: "recovered"}
	got, err := client.ConsoleText(ctx, "nightly-deploy", 7)
	if err != nil || got != "recovered" {
		t.Fatalf("ConsoleText after recovery = %q, %v", got, err)
	}
	if upstream.fetches != 2 {
		t.Fatalf("upstream fetched %d times, want 2", upstream.fetches)
	}
}

func TestConsoleClientNilCacheAlwaysFetches(t *testing.T) {
	ctx := context.Background()
	upstream := &fakeConsoleSource{text: map[int]string{1: "log"}}
	client := NewConsoleClient(upstream, nil, time.Minute, nil)

	for i := 0; i < 2; i++ {
		if _, err := client.ConsoleText(ctx, "nightly-deploy", 1); err != nil {
			t.Fatalf("ConsoleText: %v", err)
		}
	}
	if upstream.fetches != 2 {
		t.Fatalf("upstream fetched %d times, want 2", upstream.fetches)
	}
}
