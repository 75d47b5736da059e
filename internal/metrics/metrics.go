package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeSuccess labels report runs that produced a snapshot.
	OutcomeSuccess = "success"
	// OutcomeError labels report runs aborted by a walk or transport failure.
	OutcomeError = "error"
)

var (
	reportsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "buildtriage",
			Name:      "reports_total",
			Help:      "Total number of report runs, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	reportDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "buildtriage",
			Name:      "report_seconds",
			Help:      "Report run latency in seconds.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		},
	)

	buildsVisitedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "buildtriage",
			Name:      "builds_visited_total",
			Help:      "Builds whose metadata the walk fetched.",
		},
	)

	buildsMissingTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "buildtriage",
			Name:      "builds_missing_total",
			Help:      "Build numbers skipped because the server had no record of them.",
		},
	)

	logFetchFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "buildtriage",
			Name:      "log_fetch_failures_total",
			Help:      "Console log fetches that failed; the build stays in the report unclassified.",
		},
	)

	signatureMatchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "buildtriage",
			Name:      "signature_matches_total",
			Help:      "Classification hits, partitioned by signature name.",
		},
		[]string{"signature"},
	)
)

// Register attaches buildtriage collectors to the supplied Prometheus
// registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		reportsTotal,
		reportDurationSeconds,
		buildsVisitedTotal,
		buildsMissingTotal,
		logFetchFailuresTotal,
		signatureMatchesTotal,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveReport records a report run's duration and outcome label.
func ObserveReport(duration time.Duration, outcome string) {
	label := outcome
	if label != OutcomeError {
		label = OutcomeSuccess
	}
	reportsTotal.WithLabelValues(label).Inc()
	if duration < 0 {
		duration = 0
	}
	reportDurationSeconds.Observe(duration.Seconds())
}

// CountBuildVisited records one successful metadata fetch during a walk.
func CountBuildVisited() { buildsVisitedTotal.Inc() }

// CountBuildMissing records one skipped build number.
func CountBuildMissing() { buildsMissingTotal.Inc() }

// CountLogFetchFailure records one failed console fetch.
func CountLogFetchFailure() { logFetchFailuresTotal.Inc() }

// CountSignatureMatch records one classification hit for a signature.
func CountSignatureMatch(signature string) {
	signatureMatchesTotal.WithLabelValues(signature).Inc()
}
