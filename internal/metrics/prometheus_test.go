package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordSubmissionScored(t *testing.T) {
	SubmissionsScoredTotal.Reset()

	RecordSubmissionScored("copywriting", "success")
	RecordSubmissionScored("copywriting", "success")
	RecordSubmissionScored("content", "provider_error")

	count := testutil.ToFloat64(SubmissionsScoredTotal.WithLabelValues("copywriting", "success"))
	if count != 2 {
		t.Errorf("Expected copywriting success count = 2, got %f", count)
	}

	count = testutil.ToFloat64(SubmissionsScoredTotal.WithLabelValues("content", "provider_error"))
	if count != 1 {
		t.Errorf("Expected content provider_error count = 1, got %f", count)
	}
}

func TestRecordXPAwarded(t *testing.T) {
	XPAwardedTotal.Reset()

	RecordXPAwarded("uxwriting", 120)
	RecordXPAwarded("uxwriting", 80)

	total := testutil.ToFloat64(XPAwardedTotal.WithLabelValues("uxwriting"))
	if total != 200 {
		t.Errorf("Expected 200 xp awarded, got %f", total)
	}
}

func TestRecordLevelUp(t *testing.T) {
	LevelUpsTotal.Reset()

	RecordLevelUp(3)

	count := testutil.ToFloat64(LevelUpsTotal.WithLabelValues("3"))
	if count != 1 {
		t.Errorf("Expected level 3 count = 1, got %f", count)
	}
}

func TestRecordSubmissionDeleted(t *testing.T) {
	before := testutil.ToFloat64(SubmissionsDeletedTotal)

	RecordSubmissionDeleted()

	after := testutil.ToFloat64(SubmissionsDeletedTotal)
	if after-before != 1 {
		t.Errorf("Expected counter to increase by 1, got %f", after-before)
	}
}

func TestObserveSubmissionScore(t *testing.T) {
	SubmissionScore.Reset()

	ObserveSubmissionScore("content", 72)
	ObserveSubmissionScore("content", 95)

	if n := testutil.CollectAndCount(SubmissionScore); n != 1 {
		t.Errorf("Expected 1 histogram series, got %d", n)
	}
}

func TestRecordChallengesGenerated(t *testing.T) {
	ChallengesGeneratedTotal.Reset()
	ChallengeRefillsTotal.Reset()

	RecordChallengesGenerated("refill", 10)
	RecordChallengeRefill("success")
	RecordChallengeRefill("skipped")

	if got := testutil.ToFloat64(ChallengesGeneratedTotal.WithLabelValues("refill")); got != 10 {
		t.Errorf("Expected 10 generated challenges, got %f", got)
	}
	if got := testutil.ToFloat64(ChallengeRefillsTotal.WithLabelValues("skipped")); got != 1 {
		t.Errorf("Expected 1 skipped refill, got %f", got)
	}
}

func TestSchedulerMetrics(t *testing.T) {
	SchedulerJobsRunTotal.Reset()

	RecordSchedulerJobRun("supply_sweep", "success")
	SetSchedulerLastRun()
	ObserveSchedulerJobDuration(1.5)

	if got := testutil.ToFloat64(SchedulerJobsRunTotal.WithLabelValues("supply_sweep", "success")); got != 1 {
		t.Errorf("Expected 1 sweep run, got %f", got)
	}
	if ts := testutil.ToFloat64(SchedulerLastRunTimestamp); ts <= 0 {
		t.Errorf("Expected last run timestamp to be set, got %f", ts)
	}
}

func TestObserveLLMRequest(t *testing.T) {
	LLMRequestDurationSeconds.Reset()
	AuthEventsTotal.Reset()

	ObserveLLMRequest("score", "success", 1.2)
	RecordAuthEvent("signed_in")

	if n := testutil.CollectAndCount(LLMRequestDurationSeconds); n != 1 {
		t.Errorf("Expected 1 histogram series, got %d", n)
	}
	if got := testutil.ToFloat64(AuthEventsTotal.WithLabelValues("signed_in")); got != 1 {
		t.Errorf("Expected 1 signed_in event, got %f", got)
	}
}
