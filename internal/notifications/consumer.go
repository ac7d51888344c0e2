package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/quickcart-labs/quickcart-backend/pkg/db/models"
	"github.com/quickcart-labs/quickcart-backend/pkg/enums"
	"github.com/quickcart-labs/quickcart-backend/pkg/logger"
	"github.com/quickcart-labs/quickcart-backend/pkg/outbox"
	"github.com/quickcart-labs/quickcart-backend/pkg/outbox/payloads"
	"github.com/quickcart-labs/quickcart-backend/pkg/outbox/registry"
)

const orderNotificationConsumer = "order-notifications"

type recipients interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type processedGuard interface {
	CheckAndMarkProcessed(ctx context.Context, consumer, eventID string) (bool, error)
	Delete(ctx context.Context, consumer, eventID string) error
}

type messageSource interface {
	Receive(ctx context.Context, f func(context.Context, *pubsub.Message)) error
}

// Consumer turns order domain events into customer emails.
type Consumer struct {
	users        recipients
	mailer       Mailer
	subscription messageSource
	idempotency  processedGuard
	decoder      *registry.PayloadDecoder
	logg         *logger.Logger
}

// NewConsumer builds an order notification consumer.
func NewConsumer(users recipients, mailer Mailer, subscription *pubsub.Subscriber, guard processedGuard, logg *logger.Logger) (*Consumer, error) {
	if users == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if mailer == nil {
		return nil, fmt.Errorf("mailer required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("domain subscription required")
	}
	if guard == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		users:        users,
		mailer:       mailer,
		subscription: subscription,
		idempotency:  guard,
		decoder:      registry.NewPayloadDecoder(),
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg.ID, msg.Attributes["event_type"], msg.Data)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, messageID, eventType string, data []byte) processResult {
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": messageID,
		"event_type": eventType,
	})

	switch enums.OutboxEventType(eventType) {
	case enums.EventOrderStatusChanged, enums.EventOrderCancelled:
	default:
		return processResult{ack: true}
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}
	if strings.TrimSpace(envelope.EventID) == "" {
		c.logg.Warn(logCtx, "event id missing")
		return processResult{ack: true}
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, orderNotificationConsumer, envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	payload, err := c.decoder.Decode(enums.OutboxEventType(eventType), envelope.Version, envelope.Data)
	if err != nil {
		c.logg.Error(logCtx, "failed to parse payload", err)
		return processResult{ack: true}
	}
	email, userID := buildEmail(payload)
	if email == nil {
		return processResult{ack: true}
	}

	if err := c.deliver(ctx, userID, *email); err != nil {
		c.logg.Error(logCtx, "notification handling failed", err)
		_ = c.idempotency.Delete(ctx, orderNotificationConsumer, envelope.EventID)
		return processResult{nack: true}
	}
	c.logg.Info(c.logg.WithField(logCtx, "user_id", userID.String()), "notification.order_update_sent")
	return processResult{ack: true}
}

func (c *Consumer) deliver(ctx context.Context, userID uuid.UUID, email Email) error {
	user, err := c.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	email.ToAddress = user.Email
	email.ToName = user.Name
	return c.mailer.Send(ctx, email)
}

// buildEmail returns a nil email for events that do not warrant one.
func buildEmail(payload any) (*Email, uuid.UUID) {
	switch payload := payload.(type) {
	case *payloads.OrderCancelledEvent:
		text := fmt.Sprintf("Your order %s has been cancelled.", shortID(payload.OrderID))
		if payload.PaymentStatus == enums.PaymentStatusRefundPending {
			text += " Your payment will be refunded to the original method."
		}
		return &Email{Subject: "Order cancelled", Text: text, HTML: "<p>" + text + "</p>"}, payload.UserID

	case *payloads.OrderStatusChangedEvent:
		var text string
		switch payload.To {
		case enums.OrderStatusShipped:
			text = fmt.Sprintf("Your order %s has shipped.", shortID(payload.OrderID))
		case enums.OrderStatusOutForDelivery:
			text = fmt.Sprintf("Your order %s is out for delivery. You will receive a code to share with the driver.", shortID(payload.OrderID))
		case enums.OrderStatusDelivered:
			text = fmt.Sprintf("Your order %s has been delivered.", shortID(payload.OrderID))
		default:
			return nil, payload.UserID
		}
		return &Email{Subject: "Order update", Text: text, HTML: "<p>" + text + "</p>"}, payload.UserID
	}
	return nil, uuid.Nil
}

func shortID(id uuid.UUID) string {
	return strings.ToUpper(id.String()[:8])
}
