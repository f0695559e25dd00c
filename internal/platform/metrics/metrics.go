package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "evalhub"

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of HTTP requests broken down by method and status code.",
	}, []string{"method", "status"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method"})

	assignmentsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "assignments",
		Name:      "created_total",
		Help:      "Assignments created, by source (manual or auto).",
	}, []string{"source"})

	assignmentsSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "assignments",
		Name:      "skipped_total",
		Help:      "Auto-assignment candidates that were not created, by reason.",
	}, []string{"reason"})

	resultsCalculated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "results",
		Name:      "calculated_total",
		Help:      "Result calculations persisted.",
	})

	resultsPublished = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "results",
		Name:      "published_total",
		Help:      "Result publications.",
	})

	notificationsEnqueued = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "notifications",
		Name:      "enqueued_total",
		Help:      "Notification intents handed to the dispatcher, by template and outcome.",
	}, []string{"template", "outcome"})

	jobRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "jobs",
		Name:      "runs_total",
		Help:      "Background job runs, by job type and final status.",
	}, []string{"job", "status"})
)

func RecordHTTP(method string, status int, duration time.Duration) {
	httpRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(method).Observe(duration.Seconds())
}

func AssignmentCreated(source string) {
	assignmentsCreated.WithLabelValues(source).Inc()
}

func AssignmentSkipped(reason string) {
	assignmentsSkipped.WithLabelValues(reason).Inc()
}

func ResultCalculated() {
	resultsCalculated.Inc()
}

func ResultPublished() {
	resultsPublished.Inc()
}

func NotificationEnqueued(template string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	notificationsEnqueued.WithLabelValues(template, outcome).Inc()
}

func JobFinished(jobType, status string) {
	jobRuns.WithLabelValues(jobType, status).Inc()
}

func Handler() http.Handler {
	return promhttp.Handler()
}
