package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

var (
	// Client request metrics
	ClientRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "todoclient_requests_total",
			Help: "Total number of requests issued to the todo backend",
		},
		[]string{"operation", "outcome"},
	)

	ClientRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "todoclient_request_duration_seconds",
			Help:    "Round trip duration of todo backend requests in seconds",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
		},
		[]string{"operation"},
	)

	ClientRequestErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "todoclient_request_errors_total",
			Help: "Total number of failed todo backend requests by status",
		},
		[]string{"operation", "status"},
	)

	// Exporter metrics
	Tasks = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "todoexporter_tasks",
			Help: "Number of tasks seen in the last successful scrape",
		},
		[]string{"state"},
	)

	LastScrapeSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "todoexporter_last_scrape_success",
			Help: "Whether the last scrape of the todo backend succeeded",
		},
	)

	ScrapesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "todoexporter_scrapes_total",
			Help: "Total number of scrapes of the todo backend",
		},
		[]string{"outcome"},
	)
)

// RecordClientRequest records a completed client request
func RecordClientRequest(operation, outcome string, duration float64) {
	ClientRequestsTotal.WithLabelValues(operation, outcome).Inc()
	ClientRequestDuration.WithLabelValues(operation).Observe(duration)
}

// RecordClientError records a failed client request. A zero status means no
// response was received.
func RecordClientError(operation string, status int) {
	label := "none"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	ClientRequestErrors.WithLabelValues(operation, label).Inc()
}

// ClientRecorder feeds todo client calls into the todoclient_* metrics.
// Pass it to the client with client.WithMetrics.
type ClientRecorder struct{}

func (ClientRecorder) ObserveRequest(operation string, ok bool, status int, duration time.Duration) {
	if !ok {
		RecordClientRequest(operation, OutcomeFailure, duration.Seconds())
		RecordClientError(operation, status)
		return
	}
	RecordClientRequest(operation, OutcomeSuccess, duration.Seconds())
}

// SetTaskCounts updates the task gauges
func SetTaskCounts(open, completed int) {
	Tasks.WithLabelValues("open").Set(float64(open))
	Tasks.WithLabelValues("completed").Set(float64(completed))
}

// RecordScrape records the outcome of an exporter scrape
func RecordScrape(ok bool) {
	if ok {
		LastScrapeSuccess.Set(1)
		ScrapesTotal.WithLabelValues(OutcomeSuccess).Inc()
		return
	}
	LastScrapeSuccess.Set(0)
	ScrapesTotal.WithLabelValues(OutcomeFailure).Inc()
}
