package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/quickcart-labs/quickcart-backend/internal/repo"
	"github.com/quickcart-labs/quickcart-backend/pkg/db/models"
	"github.com/quickcart-labs/quickcart-backend/pkg/enums"
	"github.com/quickcart-labs/quickcart-backend/pkg/pagination"
)

// Repository persists orders and their item snapshots.
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

// Create inserts the order together with its items.
func (r *Repository) Create(ctx context.Context, order *models.Order) error {
	return r.DB(ctx).Create(order).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.DB(ctx).
		Preload("Items").
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, repo.NotFound(err, "order not found")
	}
	return &order, nil
}

// Update writes fields unconditionally.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	return r.DB(ctx).Model(&models.Order{}).Where("id = ?", id).Updates(fields).Error
}

// UpdateFromStatus writes fields only while the order is still in one of from.
// It reports false when another writer moved the order first.
func (r *Repository) UpdateFromStatus(ctx context.Context, id uuid.UUID, from []enums.OrderStatus, fields map[string]any) (bool, error) {
	res := r.DB(ctx).Model(&models.Order{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(fields)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// Delete removes a just-created order and its items. Only failed placement
// compensation calls it.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := r.DB(ctx).Where("order_id = ?", id).Delete(&models.OrderItem{}).Error; err != nil {
		return err
	}
	return r.DB(ctx).Where("id = ?", id).Delete(&models.Order{}).Error
}

// ListFilter narrows user order listings.
type ListFilter struct {
	Statuses []enums.OrderStatus
	Sort     pagination.Sort
}

func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID, filter ListFilter, params pagination.Params) ([]models.Order, int64, error) {
	params = params.Normalize()
	query := r.DB(ctx).Model(&models.Order{}).Where("user_id = ?", userID)
	if len(filter.Statuses) > 0 {
		query = query.Where("status IN ?", filter.Statuses)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	sort := filter.Sort
	if sort.Field == "" {
		sort = pagination.Sort{Field: "created_at", Desc: true}
	}
	var rows []models.Order
	err := query.
		Preload("Items").
		Order(sort.Clause()).
		Order("id DESC").
		Limit(params.Limit).
		Offset(params.Offset()).
		Find(&rows).Error
	return rows, total, err
}

// ListStalePending returns unpaid online orders created before cutoff.
func (r *Repository) ListStalePending(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []models.Order
	err := r.DB(ctx).
		Preload("Items").
		Where("status = ? AND payment_method = ? AND payment_status = ? AND created_at < ?",
			enums.OrderStatusPending, enums.PaymentMethodOnline, enums.PaymentStatusPending, cutoff.UTC()).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// FailOpenPayments marks gateway payments for the order that never settled as
// failed.
func (r *Repository) FailOpenPayments(ctx context.Context, orderID uuid.UUID, reason string) error {
	return r.DB(ctx).Model(&models.Payment{}).
		Where("order_id = ? AND status IN ?", orderID, []enums.GatewayPaymentStatus{enums.GatewayPaymentCreated, enums.GatewayPaymentAuthorized}).
		Updates(map[string]any{
			"status":         enums.GatewayPaymentFailed,
			"failure_reason": reason,
			"updated_at":     time.Now().UTC(),
		}).Error
}
