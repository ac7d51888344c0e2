package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/quickcart-labs/quickcart-backend/pkg/enums"
)

// OrderCreatedEvent announces a placed order. Amounts are decimal strings.
type OrderCreatedEvent struct {
	OrderID        uuid.UUID           `json:"order_id"`
	UserID         uuid.UUID           `json:"user_id"`
	PaymentMethod  enums.PaymentMethod `json:"payment_method"`
	Status         enums.OrderStatus   `json:"status"`
	GrandTotal     string              `json:"grand_total"`
	Currency       string              `json:"currency"`
	ItemCount      int                 `json:"item_count"`
	GatewayOrderID *string             `json:"gateway_order_id,omitempty"`
}

type OrderCancelledEvent struct {
	OrderID       uuid.UUID           `json:"order_id"`
	UserID        uuid.UUID           `json:"user_id"`
	PaymentStatus enums.PaymentStatus `json:"payment_status"`
	CancelledAt   time.Time           `json:"cancelled_at"`
	CancelledBy   enums.UserRole      `json:"cancelled_by"`
	Reason        string              `json:"reason,omitempty"`
}

type OrderStatusChangedEvent struct {
	OrderID       uuid.UUID           `json:"order_id"`
	UserID        uuid.UUID           `json:"user_id"`
	From          enums.OrderStatus   `json:"from"`
	To            enums.OrderStatus   `json:"to"`
	PaymentStatus enums.PaymentStatus `json:"payment_status"`
}

type OrderExpiredEvent struct {
	OrderID   uuid.UUID `json:"order_id"`
	UserID    uuid.UUID `json:"user_id"`
	ExpiredAt time.Time `json:"expired_at"`
}

type PaymentCapturedEvent struct {
	PaymentID        uuid.UUID `json:"payment_id"`
	OrderID          uuid.UUID `json:"order_id"`
	GatewayPaymentID string    `json:"gateway_payment_id"`
	Amount           int64     `json:"amount"`
	Currency         string    `json:"currency"`
}

type PaymentFailedEvent struct {
	PaymentID uuid.UUID `json:"payment_id"`
	OrderID   uuid.UUID `json:"order_id"`
	Reason    string    `json:"reason,omitempty"`
}

type PaymentRefundedEvent struct {
	PaymentID uuid.UUID                  `json:"payment_id"`
	OrderID   uuid.UUID                  `json:"order_id"`
	RefundID  string                     `json:"refund_id"`
	Amount    int64                      `json:"amount"`
	Remaining int64                      `json:"remaining"`
	Status    enums.GatewayPaymentStatus `json:"status"`
}

// PaymentAbandonedEvent records a gateway order whose checkout was rolled
// back. No order or payment row survives, so this is the reconciliation trail.
type PaymentAbandonedEvent struct {
	OrderID        uuid.UUID `json:"order_id"`
	UserID         uuid.UUID `json:"user_id"`
	GatewayOrderID string    `json:"gateway_order_id"`
	Amount         int64     `json:"amount"`
	Currency       string    `json:"currency"`
	Reason         string    `json:"reason"`
}

type DeliveryCreatedEvent struct {
	DeliveryID   uuid.UUID            `json:"delivery_id"`
	OrderID      uuid.UUID            `json:"order_id"`
	TrackingCode string               `json:"tracking_code"`
	Status       enums.DeliveryStatus `json:"status"`
}

type DeliveryCompletedEvent struct {
	DeliveryID  uuid.UUID  `json:"delivery_id"`
	OrderID     uuid.UUID  `json:"order_id"`
	DriverID    *uuid.UUID `json:"driver_id,omitempty"`
	DeliveredAt time.Time  `json:"delivered_at"`
}

// SubscriptionDueEvent asks downstream fulfilment to dispatch a recurring delivery.
type SubscriptionDueEvent struct {
	SubscriptionID   uuid.UUID `json:"subscription_id"`
	UserID           uuid.UUID `json:"user_id"`
	ProductID        uuid.UUID `json:"product_id"`
	Quantity         int       `json:"quantity"`
	DueDate          time.Time `json:"due_date"`
	NextDeliveryDate time.Time `json:"next_delivery_date"`
}
