package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/quickcart-labs/quickcart-backend/pkg/enums"
)

type Subscription struct {
	ID               uuid.UUID                   `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID           uuid.UUID                   `gorm:"column:user_id;type:uuid;not null;index"`
	ProductID        uuid.UUID                   `gorm:"column:product_id;type:uuid;not null"`
	Product          *Product                    `gorm:"foreignKey:ProductID"`
	Quantity         int                         `gorm:"column:quantity;not null;default:1"`
	Frequency        enums.SubscriptionFrequency `gorm:"column:frequency;type:text;not null"`
	DeliveryDay      enums.DeliveryDay           `gorm:"column:delivery_day;type:text;not null"`
	NextDeliveryDate time.Time                   `gorm:"column:next_delivery_date;not null;index"`
	TotalCost        decimal.Decimal             `gorm:"column:total_cost;type:numeric(12,2);not null"`
	Status           enums.SubscriptionStatus    `gorm:"column:status;type:text;not null"`
	LastDueAt        *time.Time                  `gorm:"column:last_due_at"`
	CancelledAt      *time.Time                  `gorm:"column:cancelled_at"`
	CreatedAt        time.Time                   `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time                   `gorm:"column:updated_at;autoUpdateTime"`
}
