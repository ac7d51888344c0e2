package cart

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/quickcart-labs/quickcart-backend/pkg/db/models"
)

type CartItemDTO struct {
	ID          uuid.UUID       `json:"id"`
	ProductID   uuid.UUID       `json:"productId"`
	ProductName string          `json:"productName"`
	ProductSlug string          `json:"productSlug"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	Variation   string          `json:"variation,omitempty"`
	LineTotal   decimal.Decimal `json:"lineTotal"`
}

type CartDTO struct {
	ID        uuid.UUID       `json:"id"`
	Items     []CartItemDTO   `json:"items"`
	ItemCount int             `json:"itemCount"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// ValidationDTO is returned by GET /cart/validate.
type ValidationDTO struct {
	Valid       bool    `json:"valid"`
	Issues      []Issue `json:"issues"`
	UpdatedCart CartDTO `json:"updatedCart"`
}

// AddItemInput is the POST /cart/items body.
type AddItemInput struct {
	ProductID string `json:"productId" validate:"required"`
	Quantity  int    `json:"quantity" validate:"omitempty,min=1,max=100"`
	Variation string `json:"variation" validate:"omitempty,max=64"`
}

type UpdateItemInput struct {
	Quantity *int `json:"quantity" validate:"required,min=0,max=100"`
}

func FromModel(record models.Cart) CartDTO {
	items := make([]CartItemDTO, 0, len(record.Items))
	count := 0
	for _, item := range record.Items {
		items = append(items, CartItemDTO{
			ID:          item.ID,
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			ProductSlug: item.ProductSlug,
			Quantity:    item.Quantity,
			Price:       item.Price,
			Variation:   item.Variation,
			LineTotal:   item.LineTotal(),
		})
		count += item.Quantity
	}
	return CartDTO{
		ID:        record.ID,
		Items:     items,
		ItemCount: count,
		Subtotal:  record.Subtotal(),
	}
}
