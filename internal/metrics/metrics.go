package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Job Metrics
	JobsInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "grabbot_jobs_in_progress",
			Help: "Number of download jobs currently being processed",
		},
	)

	JobsCompletedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grabbot_jobs_completed_total",
			Help: "Total number of terminal job outcomes",
		},
		[]string{"outcome"},
	)

	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "grabbot_job_duration_seconds",
			Help:    "Job processing duration in seconds, from admission to outcome",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12), // 1s to ~1 hour
		},
		[]string{"kind"},
	)

	GateWaitTime = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "grabbot_gate_wait_seconds",
			Help:    "Time jobs spend waiting for a concurrency slot",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 10),
		},
	)

	ArtifactSizeBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "grabbot_artifact_size_bytes",
			Help:    "On-disk size of downloaded artifacts",
			Buckets: prometheus.ExponentialBuckets(1024*1024, 2, 12), // 1MB to 2GB
		},
	)

	// Chat Metrics
	LinksReceivedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "grabbot_links_received_total",
			Help: "Total number of media links submitted by users",
		},
	)

	SessionsCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "grabbot_sessions_created_total",
			Help: "Total number of per-user sessions created",
		},
	)

	MembershipDeniedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "grabbot_membership_denied_total",
			Help: "Total number of requests rejected by the membership gate",
		},
	)

	ResolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grabbot_resolutions_total",
			Help: "Total number of metadata resolutions",
		},
		[]string{"status"},
	)
)

// RecordOutcome updates the outcome counter for one terminal job result.
func RecordOutcome(outcome string) {
	JobsCompletedTotal.WithLabelValues(outcome).Inc()
}
