// Package metrics provides Prometheus metrics for the Criteo connector.
//
// # Basic Usage
//
//	// Count an emitted record
//	metrics.RecordsEmitted.WithLabelValues("statistics").Inc()
//
//	// Time an API request
//	timer := metrics.NewTimer()
//	resp, err := client.Do(req)
//	metrics.RequestDuration.WithLabelValues("POST", "/2023-01/statistics/report", "200").Observe(timer.Seconds())
//
// Metrics register on the default registry and are exposed by the CLI when
// --metrics-addr is given.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RecordsEmitted counts RECORD messages per stream
	RecordsEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "criteo_records_emitted_total",
			Help: "Total number of records emitted",
		},
		[]string{"stream"},
	)

	// RecordsSkipped counts records dropped under the skip coercion policy
	RecordsSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "criteo_records_skipped_total",
			Help: "Total number of records skipped after a coercion failure",
		},
		[]string{"stream", "field"},
	)

	// RequestDuration observes API request latency
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "criteo_api_request_duration_seconds",
			Help:    "Criteo API request latency",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		},
		[]string{"method", "path", "status"},
	)

	// RequestRetries counts retried API requests
	RequestRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "criteo_api_request_retries_total",
			Help: "Total number of retried API requests",
		},
		[]string{"path"},
	)

	// TokenRequests counts client-credentials exchanges by outcome
	TokenRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "criteo_token_requests_total",
			Help: "Total number of OAuth2 token exchanges",
		},
		[]string{"result"},
	)

	// StreamDuration observes how long each stream took to sync
	StreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "criteo_stream_sync_duration_seconds",
			Help:    "Stream sync duration",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
		},
		[]string{"stream", "status"},
	)
)

// Timer measures elapsed time
type Timer struct {
	start time.Time
}

// NewTimer starts a timer
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Seconds returns the elapsed time in seconds
func (t *Timer) Seconds() float64 {
	return time.Since(t.start).Seconds()
}

// Handler returns the HTTP handler exposing the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}
