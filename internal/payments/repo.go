package payments

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

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return NewRepository(tx)
}

func (r *Repository) Create(ctx context.Context, payment *models.Payment) error {
	return r.DB(ctx).Create(payment).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	if err := r.DB(ctx).Where("id = ?", id).First(&payment).Error; err != nil {
		return nil, repo.NotFound(err, "payment not found")
	}
	return &payment, nil
}

func (r *Repository) FindByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*models.Payment, error) {
	var payment models.Payment
	if err := r.DB(ctx).Where("gateway_order_id = ?", gatewayOrderID).First(&payment).Error; err != nil {
		return nil, repo.NotFound(err, "payment not found")
	}
	return &payment, nil
}

// FindByOrder returns the newest payment for the order, or nil when none exists.
func (r *Repository) FindByOrder(ctx context.Context, orderID uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	err := r.DB(ctx).Where("order_id = ?", orderID).Order("created_at DESC").First(&payment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// UpdateFromStatus writes fields only while the payment is still in from. It
// reports whether this call won the transition.
func (r *Repository) UpdateFromStatus(ctx context.Context, id uuid.UUID, from enums.GatewayPaymentStatus, fields map[string]any) (bool, error) {
	res := r.DB(ctx).Model(&models.Payment{}).
		Where("id = ? AND status = ?", id, from).
		Updates(fields)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.DB(ctx).Where("id = ?", id).Delete(&models.Payment{}).Error
}

func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.Payment, int64, error) {
	params = params.Normalize()
	query := r.DB(ctx).Model(&models.Payment{}).Where("user_id = ?", userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []models.Payment
	err := query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(params.Limit).
		Offset(params.Offset()).
		Find(&rows).Error
	return rows, total, err
}
