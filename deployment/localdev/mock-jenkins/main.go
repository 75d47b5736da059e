package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const jobName = "mojo_runner"

type build struct {
	number  int
	result  string
	age     time.Duration
	console string
}

// Ages are relative to process start so a default report window always finds
// fresh builds. Build 211 is deliberately absent to simulate log rotation.
var builds = []build{
	{214, "SUCCESS", 45 * time.Minute, "Started by timer\nFinished: SUCCESS\n"},
	{213, "FAILURE", 3 * time.Hour, "Started by timer\njava.lang.OutOfMemoryError: Java heap space\nFinished: FAILURE\n"},
	{212, "UNSTABLE", 7 * time.Hour, "unit-keystone-0: hook failed: \"config-changed\"\nunit entered error state\nFinished: UNSTABLE\n"},
	{210, "FAILURE", 12 * time.Hour, "tar: workspace/builds: No space left on device\nFinished: FAILURE\n"},
	{209, "FAILURE", 22 * time.Hour, "E: Failed to fetch http://archive.ubuntu.com/ubuntu/dists/jammy/InRelease\nFinished: FAILURE\n"},
	{208, "SUCCESS", 26 * time.Hour, "Finished: SUCCESS\n"},
	{207, "FAILURE", 30 * time.Hour, "Mojo phase failed: collect\nFinished: FAILURE\n"},
	{206, "FAILURE", 34 * time.Hour, "ReadTimeoutError: HTTPSConnectionPool(host='pypi.org', port=443)\nFinished: FAILURE\n"},
	{205, "SUCCESS", 40 * time.Hour, "Finished: SUCCESS\n"},
}

var startedAt = time.Now()

func main() {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/api/json", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]any{
			"jobs": []map[string]string{
				{"name": jobName, "url": jobURL(), "color": "red"},
				{"name": "test_charm_lint", "url": "http://localhost:8080/job/test_charm_lint/", "color": "blue"},
			},
		})
	})

	mux.HandleFunc("/job/", handleJob)

	logger := log.New(log.Writer(), "jenkins-mock ", log.LstdFlags|log.Lmicroseconds)
	srv := &http.Server{
		Addr:    ":8080",
		Handler: logRequests(logger, mux),
	}

	logger.Println("listening on :8080")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("server error: %v", err)
	}
}

func handleJob(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/job/"), "/"), "/")
	if len(parts) == 0 || parts[0] != jobName {
		http.NotFound(w, r)
		return
	}

	switch {
	case len(parts) == 3 && parts[1] == "api" && parts[2] == "json":
		writeJSON(w, map[string]any{
			"name": jobName,
			"lastCompletedBuild": map[string]any{
				"number": builds[0].number,
				"url":    buildURL(builds[0].number),
			},
		})
	case len(parts) == 4 && parts[2] == "api" && parts[3] == "json":
		b, ok := lookupBuild(parts[1])
		if !ok {
			http.NotFound(w, r)
			return
		}
		writeJSON(w, map[string]any{
			"number":      b.number,
			"result":      b.result,
			"timestamp":   startedAt.Add(-b.age).UnixMilli(),
			"url":         buildURL(b.number),
			"displayName": fmt.Sprintf("#%d", b.number),
		})
	case len(parts) == 3 && parts[2] == "consoleText":
		b, ok := lookupBuild(parts[1])
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(b.console))
	default:
		http.NotFound(w, r)
	}
}

func lookupBuild(raw string) (build, bool) {
	number, err := strconv.Atoi(raw)
	if err != nil {
		return build{}, false
	}
	for _, b := range builds {
		if b.number == number {
			return b, true
		}
	}
	return build{}, false
}

func jobURL() string {
	return fmt.Sprintf("http://localhost:8080/job/%s/", jobName)
}

func buildURL(number int) string {
	return fmt.Sprintf("http://localhost:8080/job/%s/%d/", jobName, number)
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("encode error: %v", err)
	}
}

func logRequests(logger *log.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		logger.Printf("%s %s %d %s", r.Method, r.URL.Path, rw.status, time.Since(start))
	})
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
