package main

import (
	"strconv"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/quickcart-labs/quickcart-backend/pkg/db/models"
	"github.com/quickcart-labs/quickcart-backend/pkg/outbox/payloads"
	"github.com/quickcart-labs/quickcart-backend/pkg/outbox/registry"
)

// newMessage carries the stored envelope as-is. Attributes let subscribers
// filter without decoding; order_id is set for every event tied to an order
// so payment and delivery consumers can join on it.
func newMessage(event models.OutboxEvent, resolved *registry.ResolvedEvent) *gcppubsub.Message {
	attrs := map[string]string{
		"event_id":       resolved.Envelope.EventID,
		"event_type":     string(event.EventType),
		"aggregate_type": string(event.AggregateType),
		"aggregate_id":   event.AggregateID.String(),
		"version":        strconv.Itoa(max(resolved.Envelope.Version, 1)),
		"occurred_at":    resolved.Envelope.OccurredAt.UTC().Format(time.RFC3339Nano),
	}
	if orderID := orderIDOf(resolved.Payload); orderID != uuid.Nil {
		attrs["order_id"] = orderID.String()
	}
	return &gcppubsub.Message{Data: event.Payload, Attributes: attrs}
}

func orderIDOf(payload any) uuid.UUID {
	switch p := payload.(type) {
	case *payloads.OrderCreatedEvent:
		return p.OrderID
	case *payloads.OrderCancelledEvent:
		return p.OrderID
	case *payloads.OrderStatusChangedEvent:
		return p.OrderID
	case *payloads.OrderExpiredEvent:
		return p.OrderID
	case *payloads.PaymentCapturedEvent:
		return p.OrderID
	case *payloads.PaymentFailedEvent:
		return p.OrderID
	case *payloads.PaymentRefundedEvent:
		return p.OrderID
	case *payloads.PaymentAbandonedEvent:
		return p.OrderID
	case *payloads.DeliveryCreatedEvent:
		return p.OrderID
	case *payloads.DeliveryCompletedEvent:
		return p.OrderID
	}
	return uuid.Nil
}
