package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	AliasKindLegacyID     = "legacy_id"
	AliasKindExternalCode = "external_code"
)

// ProductAlias maps legacy and external identifiers onto the canonical product id.
type ProductAlias struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;not null;index"`
	Alias     string    `gorm:"column:alias;not null;uniqueIndex"`
	Kind      string    `gorm:"column:kind;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
