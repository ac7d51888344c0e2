package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/quickcart-labs/quickcart-backend/pkg/enums"
	"github.com/quickcart-labs/quickcart-backend/pkg/types"
)

// Payment tracks one gateway order. Amount and refunds are in minor units.
type Payment struct {
	ID               uuid.UUID                  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID           uuid.UUID                  `gorm:"column:user_id;type:uuid;not null;index"`
	OrderID          uuid.UUID                  `gorm:"column:order_id;type:uuid;not null;index"`
	GatewayOrderID   string                     `gorm:"column:gateway_order_id;not null;uniqueIndex"`
	GatewayPaymentID *string                    `gorm:"column:gateway_payment_id"`
	Signature        *string                    `gorm:"column:signature"`
	Amount           int64                      `gorm:"column:amount;not null"`
	Currency         string                     `gorm:"column:currency;not null"`
	Receipt          string                     `gorm:"column:receipt;not null"`
	Status           enums.GatewayPaymentStatus `gorm:"column:status;type:text;not null"`
	Method           *string                    `gorm:"column:method"`
	FailureReason    *string                    `gorm:"column:failure_reason"`
	Refunds          types.RefundRecords        `gorm:"column:refunds;type:jsonb;not null"`
	CapturedAt       *time.Time                 `gorm:"column:captured_at"`
	CreatedAt        time.Time                  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time                  `gorm:"column:updated_at;autoUpdateTime"`
}

// RefundableAmount is the captured amount minus prior refunds.
func (p Payment) RefundableAmount() int64 {
	remaining := p.Amount - p.Refunds.Total()
	if remaining < 0 {
		return 0
	}
	return remaining
}
