package subscriptions

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

func (r *Repository) Create(ctx context.Context, sub *models.Subscription) error {
	return r.DB(ctx).Create(sub).Error
}

// FindForUser scopes the lookup to the owner so foreign ids read as missing.
func (r *Repository) FindForUser(ctx context.Context, id, userID uuid.UUID) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.DB(ctx).
		Preload("Product").
		Where("id = ? AND user_id = ?", id, userID).
		First(&sub).Error
	if err != nil {
		return nil, repo.NotFound(err, "subscription not found")
	}
	return &sub, nil
}

// ListByUser returns the user's subscriptions in status, soonest delivery first.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID, status enums.SubscriptionStatus, params pagination.Params) ([]models.Subscription, int64, error) {
	params = params.Normalize()
	query := r.DB(ctx).Model(&models.Subscription{}).Where("user_id = ? AND status = ?", userID, status)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []models.Subscription
	err := query.
		Preload("Product").
		Order("next_delivery_date ASC").
		Order("id ASC").
		Limit(params.Limit).
		Offset(params.Offset()).
		Find(&rows).Error
	return rows, total, err
}

func (r *Repository) Update(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	return r.DB(ctx).Model(&models.Subscription{}).Where("id = ?", id).Updates(fields).Error
}

// ListDue returns active subscriptions whose next delivery is at or before now.
func (r *Repository) ListDue(ctx context.Context, now time.Time, limit int) ([]models.Subscription, error) {
	var rows []models.Subscription
	err := r.DB(ctx).
		Where("status = ? AND next_delivery_date <= ?", enums.SubscriptionActive, now).
		Order("next_delivery_date ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// Advance moves the schedule only while it is still due at now. It reports
// false when another worker got there first.
func (r *Repository) Advance(ctx context.Context, id uuid.UUID, due, next, now time.Time) (bool, error) {
	res := r.DB(ctx).Model(&models.Subscription{}).
		Where("id = ? AND status = ? AND next_delivery_date <= ?", id, enums.SubscriptionActive, now).
		Updates(map[string]any{
			"next_delivery_date": next,
			"last_due_at":        due,
			"updated_at":         now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
