package workers

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
)

func TestStartRequiresRedisAndRunner(t *testing.T) {
	p := &MeetingWorkerPool{}
	if err := p.Start(context.Background()); err == nil {
		t.Fatal("expected error when Redis and Runner are unset")
	}
}

func TestScheduleRetryExhaustedBudget(t *testing.T) {
	l, hook := logtest.NewNullLogger()
	p := &MeetingWorkerPool{Logger: l}

	// attempt == maxRetries: nothing is scheduled and nothing touches redis.
	p.scheduleRetry(context.Background(), KindProcess, "m1", 3, "", 3, time.Hour, l.WithField("kind", KindProcess))

	last := hook.LastEntry()
	if last == nil {
		t.Fatal("expected an exhaustion log entry")
	}
	if last.Level != logrus.ErrorLevel {
		t.Fatalf("level = %v, want error", last.Level)
	}
	if last.Message != "retry budget exhausted, job stays failed" {
		t.Fatalf("unexpected message %q", last.Message)
	}
}

func TestScheduleRetryIncrementsAttempt(t *testing.T) {
	l, hook := logtest.NewNullLogger()
	p := &MeetingWorkerPool{Logger: l}

	// Long delay so the timer never fires during the test; we only check the
	// scheduling decision itself.
	p.scheduleRetry(context.Background(), KindPublishConfluence, "m1", 1, "", 2, time.Hour, l.WithField("kind", KindPublishConfluence))

	last := hook.LastEntry()
	if last == nil {
		t.Fatal("expected a scheduling log entry")
	}
	if last.Message != "scheduling retry" {
		t.Fatalf("unexpected message %q", last.Message)
	}
	if got := last.Data["next_attempt"]; got != 2 {
		t.Fatalf("next_attempt = %v, want 2", got)
	}
}
