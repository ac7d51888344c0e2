package registry

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"

	"github.com/quickcart-labs/quickcart-backend/pkg/enums"
	"github.com/quickcart-labs/quickcart-backend/pkg/outbox/payloads"
)

func TestPayloadDecoderReturnsTypedPayloads(t *testing.T) {
	dec := NewPayloadDecoder()
	orderID := uuid.New()
	raw, _ := json.Marshal(payloads.OrderCancelledEvent{OrderID: orderID, PaymentStatus: enums.PaymentStatusRefundPending})

	for _, version := range []int{0, 1} {
		out, err := dec.Decode(enums.EventOrderCancelled, version, raw)
		if err != nil {
			t.Fatalf("v%d: %v", version, err)
		}
		payload, ok := out.(*payloads.OrderCancelledEvent)
		if !ok || payload.OrderID != orderID || payload.PaymentStatus != enums.PaymentStatusRefundPending {
			t.Fatalf("v%d: unexpected payload %#v", version, out)
		}
	}
}

func TestPayloadDecoderVersions(t *testing.T) {
	dec := NewPayloadDecoder()
	raw := json.RawMessage(`{"delivery_id":"` + uuid.NewString() + `","otp_verified":true}`)
	if _, err := dec.Decode(enums.EventDeliveryCompleted, 2, raw); err == nil {
		t.Fatal("expected unknown version error")
	}

	dec.Register(enums.EventDeliveryCompleted, 2, func(data json.RawMessage) (any, error) {
		var generic map[string]any
		err := json.Unmarshal(data, &generic)
		return generic, err
	})
	out, err := dec.Decode(enums.EventDeliveryCompleted, 2, raw)
	if err != nil {
		t.Fatalf("Decode v2: %v", err)
	}
	if _, ok := out.(map[string]any); !ok {
		t.Fatalf("expected v2 decoder output, got %T", out)
	}

	if _, err := dec.Decode(enums.EventPaymentCaptured, 1, json.RawMessage(`{"amount":"not a number"}`)); err == nil {
		t.Fatal("expected decode error for malformed payload")
	}
}
