package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/quickcart-labs/quickcart-backend/pkg/logger"
)

const (
	OrderTTLJobName    = "order_ttl"
	defaultOrderTTL    = 30 * time.Minute
	defaultExpireBatch = 100
)

type staleOrderExpirer interface {
	ExpireStale(ctx context.Context, cutoff time.Time, limit int) (int, error)
}

type OrderTTLJobParams struct {
	Logger *logger.Logger
	Orders staleOrderExpirer
	TTL    time.Duration
	Batch  int
}

// NewOrderTTLJob expires online orders that stayed unpaid past the TTL. The
// orders service restores their stock and fails the open gateway payment.
func NewOrderTTLJob(params OrderTTLJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("order expirer required")
	}
	ttl := params.TTL
	if ttl <= 0 {
		ttl = defaultOrderTTL
	}
	batch := params.Batch
	if batch <= 0 {
		batch = defaultExpireBatch
	}
	return &orderTTLJob{logg: params.Logger, orders: params.Orders, ttl: ttl, batch: batch, now: time.Now}, nil
}

type orderTTLJob struct {
	logg   *logger.Logger
	orders staleOrderExpirer
	ttl    time.Duration
	batch  int
	now    func() time.Time
}

func (j *orderTTLJob) Name() string { return OrderTTLJobName }

func (j *orderTTLJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.ttl)
	expired, err := j.orders.ExpireStale(ctx, cutoff, j.batch)
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":  cutoff,
		"expired": expired,
	}), "cron.orders_expired")
	if err != nil {
		return fmt.Errorf("expire stale orders: %w", err)
	}
	return nil
}
