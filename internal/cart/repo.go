package cart

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/quickcart-labs/quickcart-backend/internal/repo"
	"github.com/quickcart-labs/quickcart-backend/pkg/db"
	"github.com/quickcart-labs/quickcart-backend/pkg/db/models"
)

// Repository persists carts and their line items.
type Repository struct {
	repo.Base
}

// NewRepository constructs a cart repository bound to the provided DB.
func NewRepository(conn *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(conn)}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return NewRepository(tx)
}

func (r *Repository) withItems(ctx context.Context) *gorm.DB {
	return r.DB(ctx).Preload("Items", func(q *gorm.DB) *gorm.DB {
		return q.Order("created_at ASC").Order("id ASC")
	})
}

// FindByUser returns the user's cart or gorm.ErrRecordNotFound.
func (r *Repository) FindByUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	var record models.Cart
	if err := r.withItems(ctx).Where("user_id = ?", userID).First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// FindOrCreate loads the user's cart, creating an empty one on first use.
func (r *Repository) FindOrCreate(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	record, err := r.FindByUser(ctx, userID)
	if err == nil {
		return record, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	created := &models.Cart{UserID: userID}
	if err := r.DB(ctx).Create(created).Error; err != nil {
		if db.IsUniqueViolation(err, "") {
			return r.FindByUser(ctx, userID)
		}
		return nil, err
	}
	created.Items = []models.CartItem{}
	return created, nil
}

func (r *Repository) FindItem(ctx context.Context, cartID, itemID uuid.UUID) (*models.CartItem, error) {
	var item models.CartItem
	if err := r.DB(ctx).Where("id = ? AND cart_id = ?", itemID, cartID).First(&item).Error; err != nil {
		return nil, repo.NotFound(err, "cart item not found")
	}
	return &item, nil
}

// FindLine looks up the line for (product, variation), or gorm.ErrRecordNotFound.
func (r *Repository) FindLine(ctx context.Context, cartID, productID uuid.UUID, variation string) (*models.CartItem, error) {
	var item models.CartItem
	err := r.DB(ctx).
		Where("cart_id = ? AND product_id = ? AND variation = ?", cartID, productID, variation).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *Repository) InsertItem(ctx context.Context, item *models.CartItem) error {
	return r.DB(ctx).Create(item).Error
}

// UpdateItem writes quantity, price and the denormalized product fields.
func (r *Repository) UpdateItem(ctx context.Context, item *models.CartItem) error {
	return r.DB(ctx).Model(&models.CartItem{}).
		Where("id = ?", item.ID).
		Updates(map[string]any{
			"product_id":   item.ProductID,
			"quantity":     item.Quantity,
			"price":        item.Price,
			"product_name": item.ProductName,
			"product_slug": item.ProductSlug,
		}).Error
}

func (r *Repository) DeleteItems(ctx context.Context, cartID uuid.UUID, itemIDs []uuid.UUID) error {
	if len(itemIDs) == 0 {
		return nil
	}
	return r.DB(ctx).Where("cart_id = ? AND id IN ?", cartID, itemIDs).Delete(&models.CartItem{}).Error
}

// Clear empties the cart; the cart row itself is kept.
func (r *Repository) Clear(ctx context.Context, cartID uuid.UUID) error {
	if err := r.DB(ctx).Where("cart_id = ?", cartID).Delete(&models.CartItem{}).Error; err != nil {
		return err
	}
	return r.Touch(ctx, cartID)
}

// ClearForUser empties the user's cart if one exists.
func (r *Repository) ClearForUser(ctx context.Context, userID uuid.UUID) error {
	sub := r.DB(ctx).Model(&models.Cart{}).Select("id").Where("user_id = ?", userID)
	return r.DB(ctx).Where("cart_id IN (?)", sub).Delete(&models.CartItem{}).Error
}

func (r *Repository) Touch(ctx context.Context, cartID uuid.UUID) error {
	return r.DB(ctx).Model(&models.Cart{}).Where("id = ?", cartID).UpdateColumn("updated_at", time.Now().UTC()).Error
}

// PersistCorrections applies the outcome of a validation pass in one go.
func (r *Repository) PersistCorrections(ctx context.Context, cartID uuid.UUID, dropped []uuid.UUID, corrected []models.CartItem) error {
	if err := r.DeleteItems(ctx, cartID, dropped); err != nil {
		return err
	}
	for i := range corrected {
		if err := r.UpdateItem(ctx, &corrected[i]); err != nil {
			return err
		}
	}
	return r.Touch(ctx, cartID)
}
