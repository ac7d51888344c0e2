package cart

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/quickcart-labs/quickcart-backend/internal/products"
	"github.com/quickcart-labs/quickcart-backend/pkg/db/models"
	"github.com/quickcart-labs/quickcart-backend/pkg/enums"
	pkgerrors "github.com/quickcart-labs/quickcart-backend/pkg/errors"
	"github.com/quickcart-labs/quickcart-backend/pkg/logger"
)

// Issue reports one correction made to a cart line.
type Issue struct {
	ItemID      uuid.UUID           `json:"itemId"`
	ProductID   uuid.UUID           `json:"productId"`
	ProductName string              `json:"productName"`
	Type        enums.CartIssueType `json:"issue"`
	Message     string              `json:"message"`
	OldPrice    *decimal.Decimal    `json:"oldPrice,omitempty"`
	NewPrice    *decimal.Decimal    `json:"newPrice,omitempty"`
	Requested   *int                `json:"requested,omitempty"`
	Available   *int                `json:"available,omitempty"`
}

// ValidItem pairs a surviving line with the product it resolved to.
type ValidItem struct {
	Item    models.CartItem
	Product models.Product
}

type ValidationResult struct {
	Cart       *models.Cart
	IsValid    bool
	Issues     []Issue
	ValidItems []ValidItem
}

// HasStockIssues reports whether any line was dropped or clamped for stock.
func (r *ValidationResult) HasStockIssues() bool {
	for _, issue := range r.Issues {
		if issue.Type == enums.CartIssueOutOfStock || issue.Type == enums.CartIssueInsufficientStock {
			return true
		}
	}
	return false
}

type lineKey struct {
	productID uuid.UUID
	variation string
}

type resolvedLine struct {
	item    models.CartItem
	product *models.Product
	changed bool
}

// Engine normalizes a cart against the current catalog.
type Engine struct {
	carts   *Repository
	catalog *products.Repository
	logg    *logger.Logger
}

func NewEngine(carts *Repository, catalog *products.Repository, logg *logger.Logger) *Engine {
	return &Engine{carts: carts, catalog: catalog, logg: logg}
}

// WithTx returns an engine whose reads and writes go through tx.
func (e *Engine) WithTx(tx *gorm.DB) *Engine {
	return &Engine{carts: e.carts.WithTx(tx), catalog: e.catalog.WithTx(tx), logg: e.logg}
}

// Validate checks every line in order: product exists, product active, price
// current, stock sufficient. Lines that resolve to the same product and
// variation are merged. Corrections are saved before returning.
func (e *Engine) Validate(ctx context.Context, userID uuid.UUID) (*ValidationResult, error) {
	record, err := e.carts.FindOrCreate(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}
	result := &ValidationResult{Cart: record, IsValid: true, Issues: []Issue{}, ValidItems: []ValidItem{}}
	if len(record.Items) == 0 {
		return result, nil
	}

	ids := make([]uuid.UUID, 0, len(record.Items))
	for _, item := range record.Items {
		ids = append(ids, item.ProductID)
	}
	catalog, err := e.catalog.FindByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart products")
	}

	var (
		dropped   []uuid.UUID
		corrected []models.CartItem
		kept      []models.CartItem
		lines     []resolvedLine
	)
	positions := map[lineKey]int{}
	for _, item := range record.Items {
		product, found, err := e.resolve(ctx, item, catalog)
		if err != nil {
			return nil, err
		}
		if !found {
			dropped = append(dropped, item.ID)
			result.Issues = append(result.Issues, Issue{
				ItemID: item.ID, ProductID: item.ProductID, ProductName: item.ProductName,
				Type:    enums.CartIssueProductNotFound,
				Message: fmt.Sprintf("%q is no longer available and was removed.", item.ProductName),
			})
			continue
		}

		// a slug match repairs a stale product id
		repaired := product.ID != item.ProductID
		item.ProductID = product.ID
		key := lineKey{productID: product.ID, variation: item.Variation}
		if at, ok := positions[key]; ok {
			lines[at].item.Quantity += item.Quantity
			lines[at].changed = true
			dropped = append(dropped, item.ID)
			continue
		}
		positions[key] = len(lines)
		lines = append(lines, resolvedLine{item: item, product: product, changed: repaired})
	}

	// stock is shared by every variation of a product
	remaining := map[uuid.UUID]int{}
	for _, line := range lines {
		item, product, changed := line.item, line.product, line.changed
		if !product.IsActive {
			dropped = append(dropped, item.ID)
			result.Issues = append(result.Issues, Issue{
				ItemID: item.ID, ProductID: product.ID, ProductName: product.Title,
				Type:    enums.CartIssueProductUnavailable,
				Message: fmt.Sprintf("%q is currently unavailable and was removed.", product.Title),
			})
			continue
		}

		current := product.EffectivePrice()
		if !item.Price.Equal(current) {
			oldPrice, newPrice := item.Price, current
			result.Issues = append(result.Issues, Issue{
				ItemID: item.ID, ProductID: product.ID, ProductName: product.Title,
				Type:     enums.CartIssuePriceChanged,
				Message:  fmt.Sprintf("Price of %q changed from %s to %s.", product.Title, oldPrice.StringFixed(2), newPrice.StringFixed(2)),
				OldPrice: &oldPrice,
				NewPrice: &newPrice,
			})
			item.Price = current
			changed = true
		}

		available, seen := remaining[product.ID]
		if !seen {
			available = product.Stock
		}
		if item.Quantity > available {
			requested := item.Quantity
			if available <= 0 {
				available = 0
				dropped = append(dropped, item.ID)
				result.Issues = append(result.Issues, Issue{
					ItemID: item.ID, ProductID: product.ID, ProductName: product.Title,
					Type:      enums.CartIssueOutOfStock,
					Message:   fmt.Sprintf("%q is out of stock and was removed.", product.Title),
					Requested: &requested,
					Available: &available,
				})
				continue
			}
			result.Issues = append(result.Issues, Issue{
				ItemID: item.ID, ProductID: product.ID, ProductName: product.Title,
				Type:      enums.CartIssueInsufficientStock,
				Message:   fmt.Sprintf("Quantity of %q reduced to the %d available.", product.Title, available),
				Requested: &requested,
				Available: &available,
			})
			item.Quantity = available
			changed = true
		}
		remaining[product.ID] = available - item.Quantity

		if changed {
			item.ProductName = product.Title
			item.ProductSlug = product.Slug
			corrected = append(corrected, item)
		}
		kept = append(kept, item)
		result.ValidItems = append(result.ValidItems, ValidItem{Item: item, Product: *product})
	}

	if len(dropped) > 0 || len(corrected) > 0 {
		result.IsValid = false
		if err := e.carts.PersistCorrections(ctx, record.ID, dropped, corrected); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save corrected cart")
		}
		if e.logg != nil {
			fields := map[string]any{"cart_id": record.ID.String(), "issues": len(result.Issues)}
			e.logg.Info(e.logg.WithFields(ctx, fields), "cart.corrected")
		}
	}
	if kept == nil {
		kept = []models.CartItem{}
	}
	record.Items = kept
	return result, nil
}

// resolve uses the batch lookup first and falls back to the stored slug when
// the product id no longer matches a catalog row.
func (e *Engine) resolve(ctx context.Context, item models.CartItem, catalog map[uuid.UUID]models.Product) (*models.Product, bool, error) {
	if product, ok := catalog[item.ProductID]; ok {
		return &product, true, nil
	}
	if item.ProductSlug == "" {
		return nil, false, nil
	}
	product, err := e.catalog.Resolve(ctx, item.ProductSlug)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			return nil, false, nil
		}
		return nil, false, pkgerrors.Passthrough(err, pkgerrors.CodeInternal, "resolve cart product")
	}
	return product, true, nil
}
