package checkout

import (
	"github.com/shopspring/decimal"

	"github.com/quickcart-labs/quickcart-backend/pkg/config"
)

// Totals is the priced breakdown stored on an order.
type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Shipping decimal.Decimal `json:"shippingFee"`
	Handling decimal.Decimal `json:"handlingFee"`
	Grand    decimal.Decimal `json:"grandTotal"`
}

// ComputeTotals waives shipping when subtotal is strictly above the threshold.
func ComputeTotals(subtotal decimal.Decimal, cfg config.CheckoutConfig) Totals {
	shipping := cfg.ShippingFee
	if subtotal.GreaterThan(cfg.FreeShippingThreshold) {
		shipping = decimal.Zero
	}
	handling := cfg.HandlingFee
	return Totals{
		Subtotal: subtotal,
		Shipping: shipping,
		Handling: handling,
		Grand:    subtotal.Add(shipping).Add(handling),
	}
}

// MinorUnits converts a major-unit amount to paise/cents, rounding half away from zero.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// MajorUnits converts minor units back to a decimal amount.
func MajorUnits(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}
