package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/quickcart-labs/quickcart-backend/pkg/config"
	"github.com/quickcart-labs/quickcart-backend/pkg/db/models"
	"github.com/quickcart-labs/quickcart-backend/pkg/enums"
	"github.com/quickcart-labs/quickcart-backend/pkg/logger"
	"github.com/quickcart-labs/quickcart-backend/pkg/outbox/registry"
)

const (
	defaultBatchSize   = 50
	defaultPollMs      = 500
	defaultMaxAttempts = 10
	publishTimeout     = 15 * time.Second
	maxBackoff         = 10 * time.Second
	jitterWindow       = 250 * time.Millisecond
)

type transactor interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type outboxStore interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error
}

type deadLetters interface {
	InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error
}

type resolver interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

// RelayParams wires a Relay. Topics defaults to the Pub/Sub backed set.
type RelayParams struct {
	Config      config.OutboxConfig
	Logger      *logger.Logger
	DB          transactor
	Outbox      outboxStore
	DeadLetters deadLetters
	Registry    resolver
	Topics      topicSet
}

// Relay moves committed order, payment and delivery events from
// outbox_events onto their Pub/Sub topics. Rows are locked per batch so
// several relays can run side by side.
type Relay struct {
	logg         *logger.Logger
	db           transactor
	outbox       outboxStore
	dlq          deadLetters
	registry     resolver
	topics       topicSet
	batchSize    int
	maxAttempts  int
	pollInterval time.Duration
}

func NewRelay(params RelayParams) (*Relay, error) {
	switch {
	case params.Logger == nil:
		return nil, errors.New("logger is required")
	case params.DB == nil:
		return nil, errors.New("database client is required")
	case params.Outbox == nil:
		return nil, errors.New("outbox repository is required")
	case params.DeadLetters == nil:
		return nil, errors.New("dlq repository is required")
	case params.Registry == nil:
		return nil, errors.New("event registry is required")
	case params.Topics == nil:
		return nil, errors.New("topic publishers are required")
	}

	cfg := params.Config
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.PollIntervalMS <= 0 {
		cfg.PollIntervalMS = defaultPollMs
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}

	return &Relay{
		logg:         params.Logger,
		db:           params.DB,
		outbox:       params.Outbox,
		dlq:          params.DeadLetters,
		registry:     params.Registry,
		topics:       params.Topics,
		batchSize:    cfg.BatchSize,
		maxAttempts:  cfg.MaxAttempts,
		pollInterval: time.Duration(cfg.PollIntervalMS) * time.Millisecond,
	}, nil
}

// Run drains the outbox until ctx is cancelled. A full batch is followed
// immediately by the next one; an empty batch waits one poll interval and
// a failing batch backs off up to maxBackoff.
func (r *Relay) Run(ctx context.Context) error {
	if err := r.db.Ping(ctx); err != nil {
		r.logg.Error(ctx, "outbox.relay_db_unavailable", err)
		return fmt.Errorf("database ping failed: %w", err)
	}

	wait := r.pollInterval
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		drained, err := r.drain(ctx)
		switch {
		case err != nil:
			r.logg.Error(ctx, "outbox.relay_batch_failed", err)
			wait = min(wait*2, maxBackoff)
		case drained > 0:
			wait = r.pollInterval
			continue
		default:
			wait = r.pollInterval
		}

		if err := sleep(ctx, wait+rand.N(jitterWindow)); err != nil {
			return err
		}
	}
}

// drain publishes one locked batch and reports how many rows it handled.
func (r *Relay) drain(ctx context.Context) (int, error) {
	handled := 0
	err := r.db.WithTx(ctx, func(tx *gorm.DB) error {
		events, err := r.outbox.FetchUnpublishedForPublish(tx, r.batchSize, r.maxAttempts)
		if err != nil {
			return err
		}
		for _, event := range events {
			if err := r.relay(ctx, tx, event); err != nil {
				return err
			}
			handled++
		}
		return nil
	})
	return handled, err
}

// relay settles a single row. Only bookkeeping failures are returned; a
// failed publish is recorded on the row or dead-lettered.
func (r *Relay) relay(ctx context.Context, tx *gorm.DB, event models.OutboxEvent) error {
	logCtx := r.logg.WithFields(ctx, map[string]any{
		"outbox_id":      event.ID.String(),
		"event_type":     event.EventType,
		"aggregate_type": event.AggregateType,
		"aggregate_id":   event.AggregateID.String(),
		"attempt_count":  event.AttemptCount,
	})

	resolved, err := r.registry.Resolve(event)
	if err != nil {
		return r.deadLetter(logCtx, tx, event, enums.OutboxDLQReasonNonRetryable, err)
	}
	logCtx = r.logg.WithFields(logCtx, map[string]any{
		"topic":    resolved.Descriptor.Topic,
		"event_id": resolved.Envelope.EventID,
	})

	serverID, err := r.publish(ctx, event, resolved)
	if err == nil {
		if err := r.outbox.MarkPublishedTx(tx, event.ID); err != nil {
			return fmt.Errorf("mark published %s: %w", event.ID, err)
		}
		r.logg.Info(r.logg.WithField(logCtx, "message_id", serverID), "outbox.event_published")
		return nil
	}

	var nonRetryable registry.NonRetryableError
	if errors.As(err, &nonRetryable) {
		return r.deadLetter(logCtx, tx, event, enums.OutboxDLQReasonNonRetryable, err)
	}
	if event.AttemptCount+1 >= r.maxAttempts {
		return r.deadLetter(logCtx, tx, event, enums.OutboxDLQReasonMaxAttempts, fmt.Errorf("max publish attempts reached: %w", err))
	}

	r.logg.Warn(r.logg.WithField(logCtx, "error", err.Error()), "outbox.publish_retry")
	if err := r.outbox.MarkFailedTx(tx, event.ID, err); err != nil {
		return fmt.Errorf("mark failure %s: %w", event.ID, err)
	}
	return nil
}

func (r *Relay) publish(ctx context.Context, event models.OutboxEvent, resolved *registry.ResolvedEvent) (string, error) {
	topic := resolved.Descriptor.Topic
	pub := r.topics.For(topic)
	if pub == nil {
		return "", registry.NewNonRetryableError(fmt.Errorf("publisher not configured for topic %s", topic))
	}

	publishCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	return pub.Publish(publishCtx, newMessage(event, resolved))
}

func (r *Relay) deadLetter(ctx context.Context, tx *gorm.DB, event models.OutboxEvent, reason enums.OutboxDLQErrorReason, cause error) error {
	r.logg.Warn(r.logg.WithFields(ctx, map[string]any{
		"error_reason": reason,
		"error":        cause.Error(),
	}), "outbox.event_dead_lettered")

	message := cause.Error()
	entry := models.OutboxDLQ{
		EventID:       event.ID,
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       event.Payload,
		ErrorReason:   reason,
		ErrorMessage:  &message,
		AttemptCount:  event.AttemptCount,
		FailedAt:      time.Now().UTC(),
	}
	if err := r.dlq.InsertTx(tx, entry); err != nil {
		return fmt.Errorf("insert dlq %s: %w", event.ID, err)
	}
	if err := r.outbox.MarkTerminalTx(tx, event.ID, cause, r.maxAttempts); err != nil {
		return fmt.Errorf("mark terminal %s: %w", event.ID, err)
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
