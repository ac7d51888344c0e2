package outbox

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quickcart-labs/quickcart-backend/pkg/db/dbtest"
	"github.com/quickcart-labs/quickcart-backend/pkg/db/models"
	"github.com/quickcart-labs/quickcart-backend/pkg/enums"
	"github.com/quickcart-labs/quickcart-backend/pkg/logger"
	"github.com/quickcart-labs/quickcart-backend/pkg/outbox/payloads"
)

func TestEmitWritesEnvelope(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	svc := NewService(repo, logger.Nop())

	orderID := uuid.New()
	actor := &ActorRef{UserID: uuid.New(), Role: enums.RoleCustomer}
	err := svc.Emit(context.Background(), db, DomainEvent{
		EventType:     enums.EventOrderCancelled,
		AggregateType: enums.AggregateOrder,
		AggregateID:   orderID,
		Actor:         actor,
		Data:          payloads.OrderCancelledEvent{OrderID: orderID, PaymentStatus: enums.PaymentStatusCancelled},
	})
	require.NoError(t, err)

	rows, err := repo.ListForAggregate(context.Background(), orderID)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	var envelope PayloadEnvelope
	require.NoError(t, json.Unmarshal(rows[0].Payload, &envelope))
	assert.Equal(t, 1, envelope.Version)
	assert.NotEmpty(t, envelope.EventID)
	require.NotNil(t, envelope.Actor)
	assert.Equal(t, actor.UserID, envelope.Actor.UserID)

	var data payloads.OrderCancelledEvent
	require.NoError(t, json.Unmarshal(envelope.Data, &data))
	assert.Equal(t, orderID, data.OrderID)
}

func TestEmitRequiresTransactionAndKnownType(t *testing.T) {
	db := dbtest.Open(t)
	svc := NewService(NewRepository(db), nil)

	err := svc.Emit(context.Background(), nil, DomainEvent{EventType: enums.EventOrderCreated})
	assert.Error(t, err)

	err = svc.Emit(context.Background(), db, DomainEvent{EventType: "order.unknown", AggregateID: uuid.New()})
	assert.Error(t, err)
}

func TestRepositoryPublishLifecycle(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	ctx := context.Background()

	old := time.Now().UTC().Add(-48 * time.Hour)
	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Insert(db, models.OutboxEvent{
			EventType:     enums.EventPaymentCaptured,
			AggregateType: enums.AggregatePayment,
			AggregateID:   uuid.New(),
			Payload:       json.RawMessage(`{"version":1}`),
			CreatedAt:     old.Add(time.Duration(i) * time.Minute),
		}))
	}

	batch, err := repo.FetchUnpublishedForPublish(db, 10, 5)
	require.NoError(t, err)
	require.Len(t, batch, 3)

	require.NoError(t, repo.MarkPublishedTx(db, batch[0].ID))
	require.NoError(t, repo.MarkTerminalTx(db, batch[1].ID, assert.AnError, 5))
	require.NoError(t, repo.MarkFailedTx(db, batch[2].ID, assert.AnError))

	remaining, err := repo.FetchUnpublishedForPublish(db, 10, 5)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, batch[2].ID, remaining[0].ID)
	assert.Equal(t, 1, remaining[0].AttemptCount)
	require.NotNil(t, remaining[0].LastError)

	deleted, err := repo.DeletePublishedBefore(ctx, time.Now().UTC().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
}

func TestDLQRepositoryTruncatesMessages(t *testing.T) {
	db := dbtest.Open(t)
	dlq := NewDLQRepository(db)

	long := make([]byte, maxDLQErrorLen+50)
	for i := range long {
		long[i] = 'x'
	}
	msg := string(long)
	eventID := uuid.New()
	require.NoError(t, dlq.InsertTx(db, models.OutboxDLQ{
		EventID:       eventID,
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       json.RawMessage(`{}`),
		ErrorReason:   enums.OutboxDLQReasonMaxAttempts,
		ErrorMessage:  &msg,
		FailedAt:      time.Now().UTC(),
	}))

	found, err := dlq.FindByEventID(context.Background(), eventID)
	require.NoError(t, err)
	require.NotNil(t, found)
	require.NotNil(t, found.ErrorMessage)
	assert.Len(t, *found.ErrorMessage, maxDLQErrorLen)

	count, err := dlq.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}
