package products

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/quickcart-labs/quickcart-backend/internal/repo"
	"github.com/quickcart-labs/quickcart-backend/pkg/db/models"
	pkgerrors "github.com/quickcart-labs/quickcart-backend/pkg/errors"
)

// Repository owns product reads, alias resolution and the atomic stock counters.
type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return NewRepository(tx)
}

func (r *Repository) Create(ctx context.Context, product *models.Product) error {
	return r.DB(ctx).Create(product).Error
}

func (r *Repository) AddAlias(ctx context.Context, productID uuid.UUID, alias, kind string) error {
	alias = strings.TrimSpace(alias)
	if alias == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "alias is required")
	}
	return r.DB(ctx).Create(&models.ProductAlias{ProductID: productID, Alias: alias, Kind: kind}).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.DB(ctx).Where("id = ?", id).First(&product).Error; err != nil {
		return nil, repo.NotFound(err, "product not found")
	}
	return &product, nil
}

// FindByIDs loads products keyed by id. Missing ids are simply absent.
func (r *Repository) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error) {
	out := make(map[uuid.UUID]models.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.Product
	if err := r.DB(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ID] = row
	}
	return out, nil
}

// Resolve finds a product by canonical id, then alias (legacy id or external
// code), then slug.
func (r *Repository) Resolve(ctx context.Context, ref string) (*models.Product, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product reference is required")
	}

	if id, err := uuid.Parse(ref); err == nil {
		product, err := r.FindByID(ctx, id)
		if err == nil {
			return product, nil
		}
		if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			return nil, err
		}
	}

	var alias models.ProductAlias
	err := r.DB(ctx).Where("alias = ?", ref).First(&alias).Error
	switch {
	case err == nil:
		return r.FindByID(ctx, alias.ProductID)
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, err
	}

	var product models.Product
	if err := r.DB(ctx).Where("slug = ?", strings.ToLower(ref)).First(&product).Error; err != nil {
		return nil, repo.NotFound(err, "product not found")
	}
	return &product, nil
}

// Decrement takes qty units in one conditional statement. It reports false
// when the row is missing or holds less than qty.
func (r *Repository) Decrement(ctx context.Context, id uuid.UUID, qty int) (bool, error) {
	if qty <= 0 {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	res := r.DB(ctx).
		Model(&models.Product{}).
		Where("id = ? AND stock >= ?", id, qty).
		UpdateColumn("stock", gorm.Expr("stock - ?", qty))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// DecrementWithFallback decrements by id and, when that id no longer exists,
// retries against whatever the slug resolves to. It returns the id that was
// actually decremented.
func (r *Repository) DecrementWithFallback(ctx context.Context, id uuid.UUID, slug string, qty int) (uuid.UUID, bool, error) {
	ok, err := r.Decrement(ctx, id, qty)
	if err != nil || ok {
		return id, ok, err
	}

	var exists int64
	if err := r.DB(ctx).Model(&models.Product{}).Where("id = ?", id).Count(&exists).Error; err != nil {
		return id, false, err
	}
	if exists > 0 || strings.TrimSpace(slug) == "" {
		return id, false, nil
	}

	resolved, err := r.Resolve(ctx, slug)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			return id, false, nil
		}
		return id, false, err
	}
	ok, err = r.Decrement(ctx, resolved.ID, qty)
	return resolved.ID, ok, err
}

// Increment returns stock. A missing product affects zero rows and reports false.
func (r *Repository) Increment(ctx context.Context, id uuid.UUID, qty int) (bool, error) {
	if qty <= 0 {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	res := r.DB(ctx).
		Model(&models.Product{}).
		Where("id = ?", id).
		UpdateColumn("stock", gorm.Expr("stock + ?", qty))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
