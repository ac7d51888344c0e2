package subscriptions

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/quickcart-labs/quickcart-backend/pkg/db/models"
	"github.com/quickcart-labs/quickcart-backend/pkg/enums"
)

type CreateInput struct {
	ProductID   uuid.UUID `json:"productId" validate:"required"`
	Quantity    int       `json:"quantity" validate:"omitempty,min=1,max=100"`
	Frequency   string    `json:"frequency" validate:"omitempty,oneof=daily weekly monthly"`
	DeliveryDay string    `json:"deliveryDay" validate:"omitempty"`
}

// UpdateInput changes only the fields that are set. The next delivery date is
// always recomputed.
type UpdateInput struct {
	Quantity    *int    `json:"quantity" validate:"omitempty,min=1,max=100"`
	Frequency   *string `json:"frequency" validate:"omitempty,oneof=daily weekly monthly"`
	DeliveryDay *string `json:"deliveryDay"`
	Status      *string `json:"status" validate:"omitempty,oneof=active paused"`
}

type ListQuery struct {
	Page   int
	Limit  int
	Status string
}

type ProductSummary struct {
	ID       uuid.UUID       `json:"id"`
	Title    string          `json:"title"`
	Slug     string          `json:"slug"`
	Price    decimal.Decimal `json:"price"`
	ImageURL *string         `json:"imageUrl,omitempty"`
}

type SubscriptionDTO struct {
	ID               uuid.UUID                   `json:"id"`
	UserID           uuid.UUID                   `json:"userId"`
	ProductID        uuid.UUID                   `json:"productId"`
	Product          *ProductSummary             `json:"product,omitempty"`
	Quantity         int                         `json:"quantity"`
	Frequency        enums.SubscriptionFrequency `json:"frequency"`
	DeliveryDay      enums.DeliveryDay           `json:"deliveryDay"`
	NextDeliveryDate time.Time                   `json:"nextDeliveryDate"`
	TotalCost        decimal.Decimal             `json:"totalCost"`
	Status           enums.SubscriptionStatus    `json:"status"`
	LastDueAt        *time.Time                  `json:"lastDueAt,omitempty"`
	CancelledAt      *time.Time                  `json:"cancelledAt,omitempty"`
	CreatedAt        time.Time                   `json:"createdAt"`
	UpdatedAt        time.Time                   `json:"updatedAt"`
}

func FromModel(s models.Subscription) SubscriptionDTO {
	dto := SubscriptionDTO{
		ID:               s.ID,
		UserID:           s.UserID,
		ProductID:        s.ProductID,
		Quantity:         s.Quantity,
		Frequency:        s.Frequency,
		DeliveryDay:      s.DeliveryDay,
		NextDeliveryDate: s.NextDeliveryDate,
		TotalCost:        s.TotalCost,
		Status:           s.Status,
		LastDueAt:        s.LastDueAt,
		CancelledAt:      s.CancelledAt,
		CreatedAt:        s.CreatedAt,
		UpdatedAt:        s.UpdatedAt,
	}
	if s.Product != nil {
		dto.Product = &ProductSummary{
			ID:       s.Product.ID,
			Title:    s.Product.Title,
			Slug:     s.Product.Slug,
			Price:    s.Product.EffectivePrice(),
			ImageURL: s.Product.ImageURL,
		}
	}
	return dto
}
