package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/quickcart-labs/quickcart-backend/pkg/enums"
	"github.com/quickcart-labs/quickcart-backend/pkg/types"
)

// Delivery is unique per order. The OTP is kept only as a digest.
type Delivery struct {
	ID                  uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID             uuid.UUID            `gorm:"column:order_id;type:uuid;not null;uniqueIndex"`
	UserID              uuid.UUID            `gorm:"column:user_id;type:uuid;not null;index"`
	DriverID            *uuid.UUID           `gorm:"column:driver_id;type:uuid;index"`
	Status              enums.DeliveryStatus `gorm:"column:status;type:text;not null"`
	TrackingCode        string               `gorm:"column:tracking_code;not null;uniqueIndex"`
	DeliveryAddress     types.Address        `gorm:"column:delivery_address;type:jsonb;not null"`
	CurrentLat          *float64             `gorm:"column:current_lat"`
	CurrentLng          *float64             `gorm:"column:current_lng"`
	LocationUpdatedAt   *time.Time           `gorm:"column:location_updated_at"`
	OTPDigest           *string              `gorm:"column:otp_digest"`
	OTPExpiresAt        *time.Time           `gorm:"column:otp_expires_at"`
	OTPVerified         bool                 `gorm:"column:otp_verified;not null;default:false"`
	EstimatedDeliveryAt *time.Time           `gorm:"column:estimated_delivery_at"`
	ActualDeliveryAt    *time.Time           `gorm:"column:actual_delivery_at"`
	ProofURL            *string              `gorm:"column:proof_url"`
	Notes               *string              `gorm:"column:notes"`
	CreatedAt           time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

// OTPRequired reports whether the recipient still has to confirm with a code.
func (d Delivery) OTPRequired() bool {
	return d.Status == enums.DeliveryStatusOutForDelivery && !d.OTPVerified
}
