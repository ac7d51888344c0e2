package products

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/quickcart-labs/quickcart-backend/pkg/db/models"
)

// ProductDTO is the public shape of a catalog entry.
type ProductDTO struct {
	ID                uuid.UUID        `json:"id"`
	Slug              string           `json:"slug"`
	Title             string           `json:"title"`
	Category          string           `json:"category"`
	SubCategory       *string          `json:"subCategory,omitempty"`
	ImageURL          *string          `json:"imageUrl,omitempty"`
	SKU               *string          `json:"sku,omitempty"`
	Price             decimal.Decimal  `json:"price"`
	SalePrice         *decimal.Decimal `json:"salePrice,omitempty"`
	EffectivePrice    decimal.Decimal  `json:"effectivePrice"`
	InStock           bool             `json:"inStock"`
	Stock             int              `json:"stock"`
	IsActive          bool             `json:"isActive"`
	AllowSubscription bool             `json:"allowSubscription"`
}

func FromModel(p models.Product) ProductDTO {
	dto := ProductDTO{
		ID:                p.ID,
		Slug:              p.Slug,
		Title:             p.Title,
		Category:          p.Category,
		SubCategory:       p.SubCategory,
		ImageURL:          p.ImageURL,
		SKU:               p.SKU,
		Price:             p.Price,
		EffectivePrice:    p.EffectivePrice(),
		InStock:           p.Stock > 0,
		Stock:             p.Stock,
		IsActive:          p.IsActive,
		AllowSubscription: p.AllowSubscription,
	}
	if p.SalePrice.Valid {
		sale := p.SalePrice.Decimal
		dto.SalePrice = &sale
	}
	return dto
}
