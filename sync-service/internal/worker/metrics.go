package worker

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Registry is the local metrics registry of the sync worker, served by
	// the side metrics endpoint in main.
	Registry = prometheus.NewRegistry()

	jobsReceived = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_worker_jobs_received_total",
			Help: "Total number of jobs dequeued, partitioned by function.",
		},
		[]string{"function"},
	)
	jobsSucceeded = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_worker_jobs_succeeded_total",
			Help: "Total number of successfully executed jobs, partitioned by function.",
		},
		[]string{"function"},
	)
	jobsFailed = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_worker_jobs_failed_total",
			Help: "Total number of failed jobs, partitioned by function and failure reason.",
		},
		[]string{"function", "reason"},
	)
	syncDuration = promauto.With(Registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sync_worker_sync_duration_seconds",
			Help:    "Wall-clock duration of library sync jobs.",
			Buckets: []float64{1, 5, 15, 60, 300, 900, 3600},
		},
	)
	gamesProcessed = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Name: "sync_worker_games_processed_total",
			Help: "Total number of games processed across all syncs.",
		},
	)
	rateLimitDelays = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Name: "sync_worker_rate_limit_delay_seconds_total",
			Help: "Cumulative time spent waiting on the platform rate limiter.",
		},
	)
)

func metricJobReceived(function string)       { jobsReceived.WithLabelValues(function).Inc() }
func metricJobSucceeded(function string)      { jobsSucceeded.WithLabelValues(function).Inc() }
func metricJobFailed(function, reason string) { jobsFailed.WithLabelValues(function, reason).Inc() }
func metricSyncDuration(d time.Duration)      { syncDuration.Observe(d.Seconds()) }
func metricGamesProcessed(n int)              { gamesProcessed.Add(float64(n)) }
func metricRateLimitDelay(d time.Duration)    { rateLimitDelays.Add(d.Seconds()) }
