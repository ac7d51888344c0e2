package checkout

import (
	"fmt"

	"github.com/google/uuid"

	pkgerrors "github.com/quickcart-labs/quickcart-backend/pkg/errors"
)

// StockCheckInput describes one line to compare against the current stock counter.
type StockCheckInput struct {
	ProductID   uuid.UUID
	ProductName string
	Requested   int
	Available   int
}

// StockShortfall is reported to callers for every product that cannot be filled.
type StockShortfall struct {
	ProductID   uuid.UUID `json:"productId"`
	ProductName string    `json:"productName,omitempty"`
	Requested   int       `json:"requested"`
	Available   int       `json:"available"`
}

// ValidateStock fails with INSUFFICIENT_STOCK listing every short product.
// Lines for the same product are summed before the comparison.
func ValidateStock(items []StockCheckInput) error {
	var order []uuid.UUID
	totals := make(map[uuid.UUID]*StockShortfall, len(items))
	for _, item := range items {
		if total, ok := totals[item.ProductID]; ok {
			total.Requested += item.Requested
			continue
		}
		order = append(order, item.ProductID)
		totals[item.ProductID] = &StockShortfall{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Requested:   item.Requested,
			Available:   item.Available,
		}
	}

	var shortfalls []StockShortfall
	for _, id := range order {
		if total := totals[id]; total.Requested > total.Available {
			shortfalls = append(shortfalls, *total)
		}
	}
	if len(shortfalls) == 0 {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeInsufficientStock, fmt.Sprintf("insufficient stock for %d item(s)", len(shortfalls))).WithDetails(map[string]any{
		"items": shortfalls,
	})
}
