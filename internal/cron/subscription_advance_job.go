package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/quickcart-labs/quickcart-backend/pkg/logger"
)

const SubscriptionAdvanceJobName = "subscription_advance"

type dueSubscriptionAdvancer interface {
	AdvanceDue(ctx context.Context, now time.Time, limit int) (int, error)
}

type SubscriptionAdvanceJobParams struct {
	Logger        *logger.Logger
	Subscriptions dueSubscriptionAdvancer
	Batch         int
}

func NewSubscriptionAdvanceJob(params SubscriptionAdvanceJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Subscriptions == nil {
		return nil, fmt.Errorf("subscription advancer required")
	}
	batch := params.Batch
	if batch <= 0 {
		batch = defaultExpireBatch
	}
	return &subscriptionAdvanceJob{logg: params.Logger, subs: params.Subscriptions, batch: batch, now: time.Now}, nil
}

type subscriptionAdvanceJob struct {
	logg  *logger.Logger
	subs  dueSubscriptionAdvancer
	batch int
	now   func() time.Time
}

func (j *subscriptionAdvanceJob) Name() string { return SubscriptionAdvanceJobName }

func (j *subscriptionAdvanceJob) Run(ctx context.Context) error {
	advanced, err := j.subs.AdvanceDue(ctx, j.now().UTC(), j.batch)
	j.logg.Info(j.logg.WithField(ctx, "advanced", advanced), "cron.subscriptions_advanced")
	if err != nil {
		return fmt.Errorf("advance subscriptions: %w", err)
	}
	return nil
}
