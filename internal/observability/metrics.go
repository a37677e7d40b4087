// Package observability holds the Prometheus collectors for the relay.
package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Extraction outcomes.
const (
	OutcomeOK          = "ok"
	OutcomeUnsupported = "unsupported"
	OutcomeError       = "error"
)

var (
	extractionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatrelay_extractions_total",
			Help: "Total number of uploaded files processed, by extension and outcome",
		},
		[]string{"extension", "outcome"},
	)

	upstreamRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatrelay_upstream_requests_total",
			Help: "Total number of calls to the upstream chat API, by status code (\"error\" for transport failures)",
		},
		[]string{"status"},
	)

	upstreamDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "chatrelay_upstream_request_duration_seconds",
			Help:    "Latency of calls to the upstream chat API",
			Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 60, 120},
		},
	)
)

// RecordExtraction counts one upload. An empty extension is reported as "none".
func RecordExtraction(ext, outcome string) {
	if ext == "" {
		ext = "none"
	}
	extractionsTotal.WithLabelValues(ext, outcome).Inc()
}

// RecordUpstream records one upstream call. statusCode 0 means the call never
// produced a response.
func RecordUpstream(statusCode int, elapsed time.Duration) {
	status := "error"
	if statusCode > 0 {
		status = strconv.Itoa(statusCode)
	}
	upstreamRequestsTotal.WithLabelValues(status).Inc()
	upstreamDuration.Observe(elapsed.Seconds())
}
