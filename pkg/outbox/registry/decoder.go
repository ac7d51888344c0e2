package registry

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/quickcart-labs/quickcart-backend/pkg/enums"
	"github.com/quickcart-labs/quickcart-backend/pkg/outbox/payloads"
)

// DecodeFunc turns envelope data into a typed payload pointer.
type DecodeFunc func(data json.RawMessage) (any, error)

type decoderKey struct {
	eventType enums.OutboxEventType
	version   int
}

// PayloadDecoder is the consumer side of the outbox: it maps an event type and
// envelope version onto the payload struct that version was written with.
type PayloadDecoder struct {
	mtx      sync.RWMutex
	decoders map[decoderKey]DecodeFunc
}

func decodeAs[T any]() DecodeFunc {
	return func(data json.RawMessage) (any, error) {
		var payload T
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, err
		}
		return &payload, nil
	}
}

// NewPayloadDecoder knows version 1 of every event the services emit.
func NewPayloadDecoder() *PayloadDecoder {
	d := &PayloadDecoder{decoders: make(map[decoderKey]DecodeFunc)}
	for eventType, decode := range map[enums.OutboxEventType]DecodeFunc{
		enums.EventOrderCreated:       decodeAs[payloads.OrderCreatedEvent](),
		enums.EventOrderCancelled:     decodeAs[payloads.OrderCancelledEvent](),
		enums.EventOrderStatusChanged: decodeAs[payloads.OrderStatusChangedEvent](),
		enums.EventOrderExpired:       decodeAs[payloads.OrderExpiredEvent](),
		enums.EventPaymentCaptured:    decodeAs[payloads.PaymentCapturedEvent](),
		enums.EventPaymentFailed:      decodeAs[payloads.PaymentFailedEvent](),
		enums.EventPaymentRefunded:    decodeAs[payloads.PaymentRefundedEvent](),
		enums.EventPaymentAbandoned:   decodeAs[payloads.PaymentAbandonedEvent](),
		enums.EventDeliveryCreated:    decodeAs[payloads.DeliveryCreatedEvent](),
		enums.EventDeliveryCompleted:  decodeAs[payloads.DeliveryCompletedEvent](),
		enums.EventSubscriptionDue:    decodeAs[payloads.SubscriptionDueEvent](),
	} {
		d.Register(eventType, 1, decode)
	}
	return d
}

// Register adds or replaces the decoder for one event version.
func (d *PayloadDecoder) Register(eventType enums.OutboxEventType, version int, decode DecodeFunc) {
	d.mtx.Lock()
	defer d.mtx.Unlock()
	d.decoders[decoderKey{eventType: eventType, version: version}] = decode
}

// Decode treats a missing version as 1, which is what envelopes written
// before versioning carry.
func (d *PayloadDecoder) Decode(eventType enums.OutboxEventType, version int, data json.RawMessage) (any, error) {
	if version == 0 {
		version = 1
	}
	d.mtx.RLock()
	decode, ok := d.decoders[decoderKey{eventType: eventType, version: version}]
	d.mtx.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no decoder for %s v%d", eventType, version)
	}
	return decode(data)
}
