// Package metrics provides Prometheus exporters for application metrics.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for penpath.
var (
	// Submissions.
	SubmissionsScoredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "submissions_scored_total",
			Help: "Total number of submissions sent for scoring",
		},
		[]string{"type", "status"},
	)

	SubmissionsDeletedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "submissions_deleted_total",
			Help: "Total number of submissions deleted with XP compensation",
		},
	)

	SubmissionScore = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "submission_score",
			Help:    "Score given to scored submissions",
			Buckets: prometheus.LinearBuckets(10, 10, 10), // 10 to 100
		},
		[]string{"type"},
	)

	// Progression.
	XPAwardedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "xp_awarded_total",
			Help: "Total XP awarded",
		},
		[]string{"type"},
	)

	LevelUpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "level_ups_total",
			Help: "Total number of level ups by level reached",
		},
		[]string{"level"},
	)

	// Challenge supply.
	ChallengesGeneratedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "challenges_generated_total",
			Help: "Total number of challenges generated",
		},
		[]string{"trigger"},
	)

	ChallengeRefillsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "challenge_refills_total",
			Help: "Total background refill attempts",
		},
		[]string{"status"},
	)

	// Text generation provider.
	LLMRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "llm_request_duration_seconds",
			Help:    "Duration of text generation requests",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 8), // 250ms to ~32s
		},
		[]string{"operation", "status"},
	)

	// Auth.
	AuthEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_events_total",
			Help: "Total session events",
		},
		[]string{"type"},
	)

	// Scheduler metrics.
	SchedulerJobsRunTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheduler_jobs_run_total",
			Help: "Total scheduler job executions",
		},
		[]string{"job", "status"},
	)

	SchedulerLastRunTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "scheduler_last_run_timestamp",
			Help: "Unix timestamp of last scheduler run",
		},
	)

	SchedulerJobDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scheduler_job_duration_seconds",
			Help:    "Time taken to execute a scheduler job",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10), // 1s to ~1024s
		},
	)
)

// RecordSubmissionScored records a scoring attempt.
func RecordSubmissionScored(challengeType, status string) {
	SubmissionsScoredTotal.WithLabelValues(challengeType, status).Inc()
}

// ObserveSubmissionScore observes a submission score.
func ObserveSubmissionScore(challengeType string, score int) {
	SubmissionScore.WithLabelValues(challengeType).Observe(float64(score))
}

// RecordSubmissionDeleted records a compensated deletion.
func RecordSubmissionDeleted() {
	SubmissionsDeletedTotal.Inc()
}

// RecordXPAwarded adds awarded XP.
func RecordXPAwarded(challengeType string, amount int) {
	XPAwardedTotal.WithLabelValues(challengeType).Add(float64(amount))
}

// RecordLevelUp records a profile reaching levelID.
func RecordLevelUp(levelID uint) {
	LevelUpsTotal.WithLabelValues(strconv.FormatUint(uint64(levelID), 10)).Inc()
}

// RecordChallengesGenerated adds generated challenges for a trigger (refill, refresh, sweep).
func RecordChallengesGenerated(trigger string, count int) {
	ChallengesGeneratedTotal.WithLabelValues(trigger).Add(float64(count))
}

// RecordChallengeRefill records a background refill outcome.
func RecordChallengeRefill(status string) {
	ChallengeRefillsTotal.WithLabelValues(status).Inc()
}

// ObserveLLMRequest observes a provider call.
func ObserveLLMRequest(operation, status string, seconds float64) {
	LLMRequestDurationSeconds.WithLabelValues(operation, status).Observe(seconds)
}

// RecordAuthEvent records a session event.
func RecordAuthEvent(eventType string) {
	AuthEventsTotal.WithLabelValues(eventType).Inc()
}

// RecordSchedulerJobRun records a scheduler job execution.
func RecordSchedulerJobRun(job, status string) {
	SchedulerJobsRunTotal.WithLabelValues(job, status).Inc()
}

// SetSchedulerLastRun sets the timestamp of the last scheduler run.
func SetSchedulerLastRun() {
	SchedulerLastRunTimestamp.SetToCurrentTime()
}

// ObserveSchedulerJobDuration observes the duration of a scheduler job.
func ObserveSchedulerJobDuration(seconds float64) {
	SchedulerJobDurationSeconds.Observe(seconds)
}
