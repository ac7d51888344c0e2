package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is a catalog entry. Stock is only ever changed through atomic SQL.
type Product struct {
	ID                uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Slug              string              `gorm:"column:slug;not null;uniqueIndex"`
	Title             string              `gorm:"column:title;not null"`
	Category          string              `gorm:"column:category;not null;default:''"`
	SubCategory       *string             `gorm:"column:sub_category"`
	ImageURL          *string             `gorm:"column:image_url"`
	SKU               *string             `gorm:"column:sku"`
	Price             decimal.Decimal     `gorm:"column:price;type:numeric(12,2);not null"`
	SalePrice         decimal.NullDecimal `gorm:"column:sale_price;type:numeric(12,2)"`
	Stock             int                 `gorm:"column:stock;not null;default:0"`
	IsActive          bool                `gorm:"column:is_active;not null"`
	AllowSubscription bool                `gorm:"column:allow_subscription;not null;default:false"`
	Aliases           []ProductAlias      `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt         time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// EffectivePrice is the sale price when set and lower than the list price.
func (p Product) EffectivePrice() decimal.Decimal {
	if p.SalePrice.Valid && p.SalePrice.Decimal.LessThan(p.Price) {
		return p.SalePrice.Decimal
	}
	return p.Price
}
