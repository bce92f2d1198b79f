// Package metrics declares the process-wide Prometheus collectors exposed
// at /metrics, grounded on the teacher-pack's metrics.go
// (cuemby-warren/pkg/metrics): package-level collector vars registered at
// init, one metric per collector, reused across packages via simple
// method calls rather than a struct threaded through every caller.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ClaimsTotal counts claim attempts on the Job Repository's atomic
	// lock, split by outcome (won/lost) and backend.
	ClaimsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskmesh_claims_total",
			Help: "Total job claim attempts by backend and outcome (won, lost)",
		},
		[]string{"backend", "outcome"},
	)

	// BrokerEnqueueTotal counts tasks pushed onto a named queue.
	BrokerEnqueueTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskmesh_broker_enqueue_total",
			Help: "Total tasks enqueued, by queue",
		},
		[]string{"queue"},
	)

	// BrokerDequeueTotal counts tasks popped off a named queue, by
	// outcome (delivered, empty, error).
	BrokerDequeueTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskmesh_broker_dequeue_total",
			Help: "Total broker dequeue attempts by queue and outcome",
		},
		[]string{"queue", "outcome"},
	)

	// BrokerQueueDepth tracks the current length of a named queue.
	BrokerQueueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "taskmesh_broker_queue_depth",
			Help: "Current number of pending tasks in a queue",
		},
		[]string{"queue"},
	)

	// WebhookNotificationsTotal counts outbound webhook deliveries by
	// status (success, failure, disabled).
	WebhookNotificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskmesh_webhook_notifications_total",
			Help: "Total webhook notification attempts by outcome",
		},
		[]string{"outcome"},
	)

	// WebhookDuration observes webhook POST round-trip latency.
	WebhookDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "taskmesh_webhook_duration_seconds",
			Help:    "Webhook POST round-trip latency",
			Buckets: prometheus.DefBuckets,
		},
	)

	// ChunksProcessedTotal counts document chunks produced by the
	// embedding processor, by source.
	ChunksProcessedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskmesh_chunks_processed_total",
			Help: "Total document chunks processed, by source",
		},
		[]string{"source"},
	)

	// JobsProcessedTotal counts completed jobs by type and terminal
	// status (completed, failed).
	JobsProcessedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskmesh_jobs_processed_total",
			Help: "Total jobs reaching a terminal status, by type and status",
		},
		[]string{"type", "status"},
	)

	// JobProcessingDuration observes end-to-end processing latency from
	// claim to terminal status, by job type.
	JobProcessingDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "taskmesh_job_processing_duration_seconds",
			Help:    "Job processing duration from claim to terminal status",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"type"},
	)

	// HTTPRequestsTotal counts API requests by route and status code.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskmesh_http_requests_total",
			Help: "Total HTTP requests by route and status",
		},
		[]string{"route", "status"},
	)

	// RateLimitRejectionsTotal counts requests rejected by the rate
	// limiter, by tier.
	RateLimitRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskmesh_rate_limit_rejections_total",
			Help: "Total requests rejected for exceeding the tier rate limit",
		},
		[]string{"tier"},
	)
)

func init() {
	prometheus.MustRegister(
		ClaimsTotal,
		BrokerEnqueueTotal,
		BrokerDequeueTotal,
		BrokerQueueDepth,
		WebhookNotificationsTotal,
		WebhookDuration,
		ChunksProcessedTotal,
		JobsProcessedTotal,
		JobProcessingDuration,
		HTTPRequestsTotal,
		RateLimitRejectionsTotal,
	)
}

// Handler returns the HTTP handler exposing all registered collectors in
// the Prometheus exposition format, mounted at /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
