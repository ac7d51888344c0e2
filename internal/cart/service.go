package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/quickcart-labs/quickcart-backend/internal/products"
	"github.com/quickcart-labs/quickcart-backend/pkg/db/models"
	pkgerrors "github.com/quickcart-labs/quickcart-backend/pkg/errors"
	"github.com/quickcart-labs/quickcart-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes cart CRUD and validation to the HTTP layer.
type Service interface {
	Get(ctx context.Context, userID uuid.UUID) (*CartDTO, error)
	AddItem(ctx context.Context, userID uuid.UUID, input AddItemInput) (*CartDTO, error)
	UpdateItem(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*CartDTO, error)
	RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*CartDTO, error)
	Clear(ctx context.Context, userID uuid.UUID) (*CartDTO, error)
	Validate(ctx context.Context, userID uuid.UUID) (*ValidationDTO, error)
}

type service struct {
	tx      txRunner
	carts   *Repository
	catalog *products.Repository
	engine  *Engine
	logg    *logger.Logger
}

func NewService(tx txRunner, carts *Repository, catalog *products.Repository, logg *logger.Logger) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if carts == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("product repository required")
	}
	return &service{
		tx:      tx,
		carts:   carts,
		catalog: catalog,
		engine:  NewEngine(carts, catalog, logg),
		logg:    logg,
	}, nil
}

func (s *service) Get(ctx context.Context, userID uuid.UUID) (*CartDTO, error) {
	record, err := s.carts.FindOrCreate(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}
	dto := FromModel(*record)
	return &dto, nil
}

// AddItem merges into an existing (product, variation) line and refreshes its
// price and denormalized fields.
func (s *service) AddItem(ctx context.Context, userID uuid.UUID, input AddItemInput) (*CartDTO, error) {
	qty := input.Quantity
	if qty == 0 {
		qty = 1
	}
	if qty < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	variation := strings.TrimSpace(input.Variation)

	var out *CartDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		carts := s.carts.WithTx(tx)
		product, err := s.catalog.WithTx(tx).Resolve(ctx, input.ProductID)
		if err != nil {
			return err
		}
		if !product.IsActive {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%q is currently unavailable", product.Title))
		}

		record, err := carts.FindOrCreate(ctx, userID)
		if err != nil {
			return err
		}

		line, err := carts.FindLine(ctx, record.ID, product.ID, variation)
		switch {
		case err == nil:
			line.Quantity += qty
			line.Price = product.EffectivePrice()
			line.ProductName = product.Title
			line.ProductSlug = product.Slug
			if err := carts.UpdateItem(ctx, line); err != nil {
				return err
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			line = &models.CartItem{
				CartID:      record.ID,
				ProductID:   product.ID,
				ProductName: product.Title,
				ProductSlug: product.Slug,
				Quantity:    qty,
				Price:       product.EffectivePrice(),
				Variation:   variation,
			}
			if err := carts.InsertItem(ctx, line); err != nil {
				return err
			}
		default:
			return err
		}
		if err := carts.Touch(ctx, record.ID); err != nil {
			return err
		}

		refreshed, err := carts.FindByUser(ctx, userID)
		if err != nil {
			return err
		}
		dto := FromModel(*refreshed)
		out = &dto
		return nil
	})
	if err != nil {
		return nil, pkgerrors.Passthrough(err, pkgerrors.CodeInternal, "add cart item")
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithField(ctx, "product_ref", input.ProductID), "cart.item_added")
	}
	return out, nil
}

// UpdateItem sets an absolute quantity; zero removes the line.
func (s *service) UpdateItem(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*CartDTO, error) {
	if quantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be 0 or greater")
	}
	var out *CartDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		carts := s.carts.WithTx(tx)
		record, err := carts.FindOrCreate(ctx, userID)
		if err != nil {
			return err
		}
		item, err := carts.FindItem(ctx, record.ID, itemID)
		if err != nil {
			return err
		}

		if quantity == 0 {
			if err := carts.DeleteItems(ctx, record.ID, []uuid.UUID{item.ID}); err != nil {
				return err
			}
		} else {
			item.Quantity = quantity
			if product, err := s.catalog.WithTx(tx).FindByID(ctx, item.ProductID); err == nil {
				item.Price = product.EffectivePrice()
			}
			if err := carts.UpdateItem(ctx, item); err != nil {
				return err
			}
		}
		if err := carts.Touch(ctx, record.ID); err != nil {
			return err
		}
		refreshed, err := carts.FindByUser(ctx, userID)
		if err != nil {
			return err
		}
		dto := FromModel(*refreshed)
		out = &dto
		return nil
	})
	if err != nil {
		return nil, pkgerrors.Passthrough(err, pkgerrors.CodeInternal, "update cart item")
	}
	return out, nil
}

func (s *service) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*CartDTO, error) {
	return s.UpdateItem(ctx, userID, itemID, 0)
}

func (s *service) Clear(ctx context.Context, userID uuid.UUID) (*CartDTO, error) {
	record, err := s.carts.FindOrCreate(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}
	if err := s.carts.Clear(ctx, record.ID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear cart")
	}
	record.Items = []models.CartItem{}
	dto := FromModel(*record)
	return &dto, nil
}

func (s *service) Validate(ctx context.Context, userID uuid.UUID) (*ValidationDTO, error) {
	var result *ValidationResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		result, err = s.engine.WithTx(tx).Validate(ctx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &ValidationDTO{
		Valid:       result.IsValid,
		Issues:      result.Issues,
		UpdatedCart: FromModel(*result.Cart),
	}, nil
}
