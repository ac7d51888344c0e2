package deliveries

import (
	"time"

	"github.com/google/uuid"

	"github.com/quickcart-labs/quickcart-backend/pkg/db/models"
	"github.com/quickcart-labs/quickcart-backend/pkg/enums"
	"github.com/quickcart-labs/quickcart-backend/pkg/types"
)

type Location struct {
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type DeliveryDTO struct {
	ID                  uuid.UUID            `json:"id"`
	OrderID             uuid.UUID            `json:"orderId"`
	UserID              uuid.UUID            `json:"userId"`
	DriverID            *uuid.UUID           `json:"driverId,omitempty"`
	Status              enums.DeliveryStatus `json:"status"`
	TrackingCode        string               `json:"trackingCode"`
	DeliveryAddress     types.Address        `json:"deliveryAddress"`
	CurrentLocation     *Location            `json:"currentLocation,omitempty"`
	OTPRequired         bool                 `json:"otpRequired"`
	OTPVerified         bool                 `json:"otpVerified"`
	EstimatedDeliveryAt *time.Time           `json:"estimatedDeliveryAt,omitempty"`
	ActualDeliveryAt    *time.Time           `json:"actualDeliveryAt,omitempty"`
	ProofURL            *string              `json:"proofUrl,omitempty"`
	Notes               *string              `json:"notes,omitempty"`
	CreatedAt           time.Time            `json:"createdAt"`
	UpdatedAt           time.Time            `json:"updatedAt"`
}

// OTPIssued acknowledges a code request. The code itself only goes to the recipient.
type OTPIssued struct {
	DeliveryID uuid.UUID `json:"deliveryId"`
	ExpiresAt  time.Time `json:"expiresAt"`
}

type VerifyOTPInput struct {
	OTP string `json:"otp" validate:"required,len=6,numeric"`
}

type LocationInput struct {
	Lat *float64 `json:"lat" validate:"required,gte=-90,lte=90"`
	Lng *float64 `json:"lng" validate:"required,gte=-180,lte=180"`
}

// AdminUpdateInput assigns a driver, moves the status, or both.
type AdminUpdateInput struct {
	DriverID *uuid.UUID `json:"driverId"`
	Status   string     `json:"status" validate:"omitempty"`
	Notes    *string    `json:"notes" validate:"omitempty,max=500"`
	ProofURL *string    `json:"proofUrl" validate:"omitempty,url"`
}

type ListQuery struct {
	Page   int
	Limit  int
	Status string
}

func FromModel(d models.Delivery) DeliveryDTO {
	dto := DeliveryDTO{
		ID:                  d.ID,
		OrderID:             d.OrderID,
		UserID:              d.UserID,
		DriverID:            d.DriverID,
		Status:              d.Status,
		TrackingCode:        d.TrackingCode,
		DeliveryAddress:     d.DeliveryAddress,
		OTPRequired:         d.OTPRequired(),
		OTPVerified:         d.OTPVerified,
		EstimatedDeliveryAt: d.EstimatedDeliveryAt,
		ActualDeliveryAt:    d.ActualDeliveryAt,
		ProofURL:            d.ProofURL,
		Notes:               d.Notes,
		CreatedAt:           d.CreatedAt,
		UpdatedAt:           d.UpdatedAt,
	}
	if d.CurrentLat != nil && d.CurrentLng != nil {
		loc := &Location{Lat: *d.CurrentLat, Lng: *d.CurrentLng}
		if d.LocationUpdatedAt != nil {
			loc.UpdatedAt = *d.LocationUpdatedAt
		}
		dto.CurrentLocation = loc
	}
	return dto
}
