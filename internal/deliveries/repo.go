package deliveries

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/quickcart-labs/quickcart-backend/internal/repo"
	"github.com/quickcart-labs/quickcart-backend/pkg/db/models"
	"github.com/quickcart-labs/quickcart-backend/pkg/enums"
	"github.com/quickcart-labs/quickcart-backend/pkg/pagination"
)

type Repository struct {
	repo.Base
}

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

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Delivery, error) {
	var delivery models.Delivery
	if err := r.DB(ctx).Where("id = ?", id).First(&delivery).Error; err != nil {
		return nil, repo.NotFound(err, "delivery not found")
	}
	return &delivery, nil
}

// FindByOrder returns (nil, nil) when the order has no delivery yet.
func (r *Repository) FindByOrder(ctx context.Context, orderID uuid.UUID) (*models.Delivery, error) {
	var delivery models.Delivery
	err := r.DB(ctx).Where("order_id = ?", orderID).First(&delivery).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &delivery, nil
}

// Insert writes the row inside a savepoint so a unique violation leaves the
// surrounding transaction usable for a retry.
func (r *Repository) Insert(ctx context.Context, delivery *models.Delivery) error {
	return r.DB(ctx).Transaction(func(inner *gorm.DB) error {
		return inner.Create(delivery).Error
	})
}

func (r *Repository) Update(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	return r.DB(ctx).Model(&models.Delivery{}).Where("id = ?", id).Updates(fields).Error
}

// ListFilter narrows delivery listings. Zero values mean "any".
type ListFilter struct {
	UserID   *uuid.UUID
	DriverID *uuid.UUID
	Status   enums.DeliveryStatus
}

func (r *Repository) List(ctx context.Context, filter ListFilter, params pagination.Params) ([]models.Delivery, int64, error) {
	params = params.Normalize()
	query := r.DB(ctx).Model(&models.Delivery{})
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.DriverID != nil {
		query = query.Where("driver_id = ?", *filter.DriverID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []models.Delivery
	err := query.Order("created_at DESC").Order("id DESC").
		Limit(params.Limit).
		Offset(params.Offset()).
		Find(&rows).Error
	return rows, total, err
}
