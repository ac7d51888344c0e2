package payments

import (
	"encoding/json"
	"strings"

	"github.com/quickcart-labs/quickcart-backend/pkg/enums"
)

const (
	eventPaymentAuthorized = "payment.authorized"
	eventPaymentCaptured   = "payment.captured"
	eventPaymentFailed     = "payment.failed"
	eventOrderPaid         = "order.paid"
)

type webhookEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity paymentEntity `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

type paymentEntity struct {
	ID               string `json:"id"`
	OrderID          string `json:"order_id"`
	Status           string `json:"status"`
	Amount           int64  `json:"amount"`
	Currency         string `json:"currency"`
	Method           string `json:"method"`
	ErrorDescription string `json:"error_description"`
}

func parseWebhook(body []byte) (*webhookEvent, error) {
	var event webhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, err
	}
	return &event, nil
}

// outcome maps the webhook onto the gateway status it settles to. ok is false
// for events that do not move a payment.
func (e *webhookEvent) outcome() (enums.GatewayPaymentStatus, bool) {
	status := strings.ToLower(strings.TrimSpace(e.Payload.Payment.Entity.Status))
	switch e.Event {
	case eventPaymentCaptured, eventOrderPaid:
		return enums.GatewayPaymentCaptured, true
	case eventPaymentFailed:
		return enums.GatewayPaymentFailed, true
	case eventPaymentAuthorized:
		return enums.GatewayPaymentAuthorized, true
	}
	// events without a recognised name still settle by entity status
	switch status {
	case "captured":
		return enums.GatewayPaymentCaptured, true
	case "failed":
		return enums.GatewayPaymentFailed, true
	}
	return "", false
}

// dedupeKey prefers the delivery id header and falls back to payment id and event.
func (e *webhookEvent) dedupeKey(eventID string) string {
	if id := strings.TrimSpace(eventID); id != "" {
		return id
	}
	entity := e.Payload.Payment.Entity
	if entity.ID == "" {
		return ""
	}
	return entity.ID + ":" + e.Event
}
