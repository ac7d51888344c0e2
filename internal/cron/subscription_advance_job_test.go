package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/quickcart-labs/quickcart-backend/pkg/logger"
)

type fakeAdvancer struct {
	now   time.Time
	limit int
	err   error
}

func (f *fakeAdvancer) AdvanceDue(_ context.Context, now time.Time, limit int) (int, error) {
	f.now, f.limit = now, limit
	return 1, f.err
}

func TestSubscriptionAdvanceJob(t *testing.T) {
	now := time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC)
	advancer := &fakeAdvancer{}
	job, err := NewSubscriptionAdvanceJob(SubscriptionAdvanceJobParams{Logger: logger.Nop(), Subscriptions: advancer})
	if err != nil {
		t.Fatalf("NewSubscriptionAdvanceJob: %v", err)
	}
	job.(*subscriptionAdvanceJob).now = func() time.Time { return now }

	if job.Name() != SubscriptionAdvanceJobName {
		t.Fatalf("unexpected name %s", job.Name())
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !advancer.now.Equal(now) || advancer.limit != defaultExpireBatch {
		t.Fatalf("unexpected call now=%s limit=%d", advancer.now, advancer.limit)
	}

	advancer.err = errors.New("partial failure")
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
