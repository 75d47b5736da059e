package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"buildtriage/internal/report"
	"buildtriage/internal/triage"
)

// SnapshotSource provides the most recent triage snapshot, when one exists.
type SnapshotSource interface {
	Latest() (*triage.Snapshot, bool)
}

type handler struct {
	source SnapshotSource
	logger *slog.Logger
}

// NewHandler wires the report routes onto a fresh mux.
func NewHandler(source SnapshotSource, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &handler{source: source, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("/", h.reportText)
	mux.HandleFunc("/report.json", h.reportJSON)
	mux.HandleFunc("/healthz", h.healthz)
	return logRequests(logger, mux)
}

func (h *handler) reportText(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	snap, ok := h.source.Latest()
	if !ok {
		http.Error(w, "report not ready yet", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(w, "%s: %d builds since %s, %d reported (generated %s)\n\n",
		snap.Job,
		snap.Visited,
		snap.Window.Cutoff.Format(time.RFC3339),
		len(snap.Rows),
		snap.GeneratedAt.Format(time.RFC3339),
	)
	fmt.Fprintln(w, report.Render(snap.Rows, report.ModeASCII))
	fmt.Fprintln(w)
	fmt.Fprintln(w, report.RenderSummary(snap.Summary, report.ModeASCII))
}

func (h *handler) reportJSON(w http.ResponseWriter, _ *http.Request) {
	snap, ok := h.source.Latest()
	if !ok {
		http.Error(w, "report not ready yet", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(snap); err != nil {
		h.logger.Error("encode report snapshot", "error", err)
	}
}

func (h *handler) healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func logRequests(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rw.status,
			"duration", time.Since(start),
		)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
