package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	pkgerrors "github.com/quickcart-labs/quickcart-backend/pkg/errors"
)

// Base provides a shared foundation for domain repositories.
type Base struct {
	db *gorm.DB
}

// NewBase constructs a Base repository backed by the provided GORM connection.
func NewBase(db *gorm.DB) Base {
	return Base{db: db}
}

// DB returns the GORM connection bound to the supplied context (if any).
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.db
	}
	return b.db.WithContext(ctx)
}

// Conn is the unbound handle, used to derive repositories for a unit of work.
func (b Base) Conn() *gorm.DB {
	return b.db
}

// NotFound converts gorm's missing-row error into a typed NOT_FOUND error and
// wraps anything else as internal.
func NotFound(err error, message string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, message)
	}
	return pkgerrors.Passthrough(err, pkgerrors.CodeInternal, "database error")
}
