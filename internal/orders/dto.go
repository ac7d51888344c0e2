package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/quickcart-labs/quickcart-backend/pkg/db/models"
	"github.com/quickcart-labs/quickcart-backend/pkg/enums"
	"github.com/quickcart-labs/quickcart-backend/pkg/types"
)

type OrderItemDTO struct {
	ID          uuid.UUID       `json:"id"`
	ProductID   uuid.UUID       `json:"productId"`
	ProductName string          `json:"productName"`
	ProductSlug string          `json:"productSlug"`
	SKU         *string         `json:"sku,omitempty"`
	ImageURL    *string         `json:"imageUrl,omitempty"`
	Variation   string          `json:"variation,omitempty"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Quantity    int             `json:"quantity"`
	LineTotal   decimal.Decimal `json:"lineTotal"`
}

// PaymentSummary is the gateway view attached to an order response.
type PaymentSummary struct {
	ID               uuid.UUID                  `json:"id"`
	GatewayOrderID   string                     `json:"gatewayOrderId"`
	GatewayPaymentID *string                    `json:"gatewayPaymentId,omitempty"`
	Status           enums.GatewayPaymentStatus `json:"status"`
	Amount           int64                      `json:"amount"`
	Refunded         int64                      `json:"refunded"`
	CapturedAt       *time.Time                 `json:"capturedAt,omitempty"`
}

type DeliverySummary struct {
	ID                  uuid.UUID            `json:"id"`
	Status              enums.DeliveryStatus `json:"status"`
	TrackingCode        string               `json:"trackingCode"`
	DriverID            *uuid.UUID           `json:"driverId,omitempty"`
	EstimatedDeliveryAt *time.Time           `json:"estimatedDeliveryAt,omitempty"`
	ActualDeliveryAt    *time.Time           `json:"actualDeliveryAt,omitempty"`
	OTPRequired         bool                 `json:"otpRequired"`
}

type OrderDTO struct {
	ID              uuid.UUID                `json:"id"`
	UserID          uuid.UUID                `json:"userId"`
	Items           []OrderItemDTO           `json:"items"`
	Subtotal        decimal.Decimal          `json:"subtotal"`
	ShippingFee     decimal.Decimal          `json:"shippingFee"`
	HandlingFee     decimal.Decimal          `json:"handlingFee"`
	GrandTotal      decimal.Decimal          `json:"grandTotal"`
	Currency        string                   `json:"currency"`
	ShippingAddress types.Address            `json:"shippingAddress"`
	PaymentMethod   enums.PaymentMethod      `json:"paymentMethod"`
	PaymentStatus   enums.PaymentStatus      `json:"paymentStatus"`
	Status          enums.OrderStatus        `json:"status"`
	GatewayOrderID  *string                  `json:"gatewayOrderId,omitempty"`
	PaymentLink     *string                  `json:"paymentLink,omitempty"`
	StatusHistory   types.OrderStatusHistory `json:"statusHistory"`
	Notes           *string                  `json:"notes,omitempty"`
	CancelledAt     *time.Time               `json:"cancelledAt,omitempty"`
	DeliveredAt     *time.Time               `json:"deliveredAt,omitempty"`
	CreatedAt       time.Time                `json:"createdAt"`
	UpdatedAt       time.Time                `json:"updatedAt"`
	Payment         *PaymentSummary          `json:"payment,omitempty"`
	Delivery        *DeliverySummary         `json:"delivery,omitempty"`
}

// ListQuery carries GET /orders query parameters as received.
type ListQuery struct {
	Page   int
	Limit  int
	Status string
	Sort   string
}

type CancelInput struct {
	Reason string `json:"reason" validate:"omitempty,max=500"`
}

// UpdateStatusInput is the admin status change body.
type UpdateStatusInput struct {
	Status string `json:"status" validate:"required"`
	Note   string `json:"note" validate:"omitempty,max=500"`
}

func FromModel(order models.Order) OrderDTO {
	items := make([]OrderItemDTO, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, OrderItemDTO{
			ID:          item.ID,
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			ProductSlug: item.ProductSlug,
			SKU:         item.SKU,
			ImageURL:    item.ImageURL,
			Variation:   item.Variation,
			UnitPrice:   item.UnitPrice,
			Quantity:    item.Quantity,
			LineTotal:   item.LineTotal,
		})
	}
	history := order.StatusHistory
	if history == nil {
		history = types.OrderStatusHistory{}
	}
	return OrderDTO{
		ID:              order.ID,
		UserID:          order.UserID,
		Items:           items,
		Subtotal:        order.Subtotal,
		ShippingFee:     order.ShippingFee,
		HandlingFee:     order.HandlingFee,
		GrandTotal:      order.GrandTotal,
		Currency:        order.Currency,
		ShippingAddress: order.ShippingAddress,
		PaymentMethod:   order.PaymentMethod,
		PaymentStatus:   order.PaymentStatus,
		Status:          order.Status,
		GatewayOrderID:  order.GatewayOrderID,
		PaymentLink:     order.PaymentLink,
		StatusHistory:   history,
		Notes:           order.Notes,
		CancelledAt:     order.CancelledAt,
		DeliveredAt:     order.DeliveredAt,
		CreatedAt:       order.CreatedAt,
		UpdatedAt:       order.UpdatedAt,
	}
}

func paymentSummary(p models.Payment) *PaymentSummary {
	return &PaymentSummary{
		ID:               p.ID,
		GatewayOrderID:   p.GatewayOrderID,
		GatewayPaymentID: p.GatewayPaymentID,
		Status:           p.Status,
		Amount:           p.Amount,
		Refunded:         p.Refunds.Total(),
		CapturedAt:       p.CapturedAt,
	}
}

func deliverySummary(d models.Delivery) *DeliverySummary {
	return &DeliverySummary{
		ID:                  d.ID,
		Status:              d.Status,
		TrackingCode:        d.TrackingCode,
		DriverID:            d.DriverID,
		EstimatedDeliveryAt: d.EstimatedDeliveryAt,
		ActualDeliveryAt:    d.ActualDeliveryAt,
		OTPRequired:         d.OTPRequired(),
	}
}
