package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/quickcart-labs/quickcart-backend/pkg/enums"
)

// User is the minimal identity record the commerce flows rely on.
type User struct {
	ID        uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Email     string         `gorm:"column:email;type:text;not null;uniqueIndex"`
	Name      string         `gorm:"column:name;not null"`
	Phone     *string        `gorm:"column:phone"`
	Role      enums.UserRole `gorm:"column:role;type:text;not null;default:'customer'"`
	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
