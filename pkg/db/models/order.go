package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/quickcart-labs/quickcart-backend/pkg/enums"
	"github.com/quickcart-labs/quickcart-backend/pkg/types"
)

// Order is never physically deleted outside failed-placement compensation.
type Order struct {
	ID              uuid.UUID                `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID          uuid.UUID                `gorm:"column:user_id;type:uuid;not null;index"`
	Items           []OrderItem              `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Subtotal        decimal.Decimal          `gorm:"column:subtotal;type:numeric(12,2);not null"`
	ShippingFee     decimal.Decimal          `gorm:"column:shipping_fee;type:numeric(12,2);not null"`
	HandlingFee     decimal.Decimal          `gorm:"column:handling_fee;type:numeric(12,2);not null"`
	GrandTotal      decimal.Decimal          `gorm:"column:grand_total;type:numeric(12,2);not null"`
	Currency        string                   `gorm:"column:currency;not null"`
	ShippingAddress types.Address            `gorm:"column:shipping_address;type:jsonb;not null"`
	PaymentMethod   enums.PaymentMethod      `gorm:"column:payment_method;type:text;not null"`
	PaymentStatus   enums.PaymentStatus      `gorm:"column:payment_status;type:text;not null"`
	Status          enums.OrderStatus        `gorm:"column:status;type:text;not null;index"`
	GatewayOrderID  *string                  `gorm:"column:gateway_order_id"`
	PaymentID       *uuid.UUID               `gorm:"column:payment_id;type:uuid"`
	PaymentLink     *string                  `gorm:"column:payment_link"`
	StatusHistory   types.OrderStatusHistory `gorm:"column:status_history;type:jsonb;not null"`
	Notes           *string                  `gorm:"column:notes"`
	CancelledAt     *time.Time               `gorm:"column:cancelled_at"`
	DeliveredAt     *time.Time               `gorm:"column:delivered_at"`
	CreatedAt       time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}

// OrderItem is an immutable snapshot of a purchased line.
type OrderItem struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID     uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID   uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	ProductName string          `gorm:"column:product_name;not null"`
	ProductSlug string          `gorm:"column:product_slug;not null"`
	SKU         *string         `gorm:"column:sku"`
	ImageURL    *string         `gorm:"column:image_url"`
	Variation   string          `gorm:"column:variation;not null;default:''"`
	UnitPrice   decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	Quantity    int             `gorm:"column:quantity;not null"`
	LineTotal   decimal.Decimal `gorm:"column:line_total;type:numeric(12,2);not null"`
}
