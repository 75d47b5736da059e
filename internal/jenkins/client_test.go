package jenkins

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"buildtriage/internal/ci"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := New(server.URL, "ci-bot", "token123", 5*time.Second, nil)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestNewRequiresBaseURL(t *testing.T) {
	if _, err := New("  ", "", "", 0, nil); err == nil {
		t.Fatalf("expected error for empty base URL")
	}
}

func TestLastCompletedBuild(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/job/example_job/api/json", func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "ci-bot" || pass != "token123" {
			t.Errorf("missing or wrong basic auth: %q %q", user, pass)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"name":"example_job","lastCompletedBuild":{"number":50,"url":"http://ci/job/example_job/50/"}}`))
	})
	client := newTestClient(t, mux)

	ref, err := client.LastCompletedBuild(context.Background(), "example_job")
	if err != nil {
		t.Fatalf("last completed build: %v", err)
	}
	if ref == nil || ref.Number != 50 {
		t.Fatalf("unexpected ref: %+v", ref)
	}
}

func TestLastCompletedBuildNone(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/job/fresh/api/json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"name":"fresh","lastCompletedBuild":null}`))
	})
	client := newTestClient(t, mux)

	ref, err := client.LastCompletedBuild(context.Background(), "fresh")
	if err != nil {
		t.Fatalf("last completed build: %v", err)
	}
	if ref != nil {
		t.Fatalf("expected nil ref for a job that never completed, got %+v", ref)
	}
}

func TestLastCompletedBuildUnknownJob(t *testing.T) {
	client := newTestClient(t, http.NotFoundHandler())

	_, err := client.LastCompletedBuild(context.Background(), "ghost")
	if !errors.Is(err, ci.ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
}

func TestBuildInfo(t *testing.T) {
	start := time.Date(2024, 5, 20, 10, 0, 0, 0, time.UTC)
	mux := http.NewServeMux()
	mux.HandleFunc("/job/example_job/49/api/json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"number":49,"result":"FAILURE","timestamp":1716199200000,"url":"http://ci/job/example_job/49/","displayName":"#49"}`))
	})
	client := newTestClient(t, mux)

	b, err := client.BuildInfo(context.Background(), "example_job", 49)
	if err != nil {
		t.Fatalf("build info: %v", err)
	}
	if b.Result != ci.ResultFailure {
		t.Fatalf("result = %q, want FAILURE", b.Result)
	}
	if !b.Timestamp.Equal(start) {
		t.Fatalf("timestamp = %v, want %v", b.Timestamp, start)
	}
	if b.Job != "example_job" || b.Number != 49 || b.DisplayName != "#49" {
		t.Fatalf("unexpected build: %+v", b)
	}
}

func TestBuildInfoInProgress(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/job/example_job/51/api/json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"number":51,"result":null,"timestamp":1716199200000,"url":"http://ci/job/example_job/51/","displayName":"#51"}`))
	})
	client := newTestClient(t, mux)

	b, err := client.BuildInfo(context.Background(), "example_job", 51)
	if err != nil {
		t.Fatalf("build info: %v", err)
	}
	if b.Result != "" {
		t.Fatalf("in-progress build must have empty result, got %q", b.Result)
	}
}

func TestBuildInfoNotFound(t *testing.T) {
	client := newTestClient(t, http.NotFoundHandler())

	_, err := client.BuildInfo(context.Background(), "example_job", 7)
	if !errors.Is(err, ci.ErrBuildNotFound) {
		t.Fatalf("expected ErrBuildNotFound, got %v", err)
	}
}

func TestConsoleText(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/job/example_job/49/consoleText", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("started\njava.lang.OutOfMemoryError: heap\n"))
	})
	client := newTestClient(t, mux)

	text, err := client.ConsoleText(context.Background(), "example_job", 49)
	if err != nil {
		t.Fatalf("console text: %v", err)
	}
	if text != "started\njava.lang.OutOfMemoryError: heap\n" {
		t.Fatalf("unexpected console text: %q", text)
	}
}

func TestListJobs(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"jobs":[{"name":"mojo_runner","url":"http://ci/job/mojo_runner/","color":"red"},{"name":"test_charm_lint","url":"http://ci/job/test_charm_lint/","color":"blue"}]}`))
	})
	client := newTestClient(t, mux)

	jobs, err := client.ListJobs(context.Background())
	if err != nil {
		t.Fatalf("list jobs: %v", err)
	}
	if len(jobs) != 2 || jobs[0].Name != "mojo_runner" || jobs[1].Color != "blue" {
		t.Fatalf("unexpected jobs: %+v", jobs)
	}
}

func TestJobNameEscaping(t *testing.T) {
	var gotPath string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		w.Write([]byte(`{}`))
	})
	client := newTestClient(t, handler)

	if _, err := client.LastCompletedBuild(context.Background(), "team charms"); err != nil {
		t.Fatalf("last completed build: %v", err)
	}
	if gotPath != "/job/team%20charms/api/json" {
		t.Fatalf("job name not escaped, path was %q", gotPath)
	}
}

func TestServerErrorPropagates(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	client := newTestClient(t, handler)

	_, err := client.BuildInfo(context.Background(), "j", 1)
	if err == nil {
		t.Fatalf("expected error on 500")
	}
	if errors.Is(err, ci.ErrBuildNotFound) {
		t.Fatalf("500 must not map to ErrBuildNotFound")
	}
}
