package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/quickcart-labs/quickcart-backend/pkg/logger"
)

const (
	OutboxRetentionJobName = "outbox_retention"
	defaultOutboxRetention = 30 * 24 * time.Hour
)

type publishedEventPruner interface {
	DeletePublishedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type OutboxRetentionJobParams struct {
	Logger     *logger.Logger
	Repository publishedEventPruner
	Retention  time.Duration
}

// NewOutboxRetentionJob deletes outbox rows that were published longer ago
// than the retention window. Unpublished and dead-lettered rows are kept.
func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("outbox repository required")
	}
	retention := params.Retention
	if retention <= 0 {
		retention = defaultOutboxRetention
	}
	return &outboxRetentionJob{logg: params.Logger, repo: params.Repository, retention: retention, now: time.Now}, nil
}

type outboxRetentionJob struct {
	logg      *logger.Logger
	repo      publishedEventPruner
	retention time.Duration
	now       func() time.Time
}

func (j *outboxRetentionJob) Name() string { return OutboxRetentionJobName }

func (j *outboxRetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.retention)
	deleted, err := j.repo.DeletePublishedBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("outbox retention: %w", err)
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":       cutoff,
		"rows_deleted": deleted,
	}), "cron.outbox_pruned")
	return nil
}
