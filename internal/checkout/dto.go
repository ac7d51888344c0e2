package checkout

import (
	"github.com/google/uuid"

	"github.com/quickcart-labs/quickcart-backend/internal/cart"
	"github.com/quickcart-labs/quickcart-backend/internal/orders"
	"github.com/quickcart-labs/quickcart-backend/pkg/types"
)

// PlaceOrderInput is the POST /orders body.
type PlaceOrderInput struct {
	ShippingAddress *types.Address `json:"shippingAddress" validate:"required"`
	PaymentMethod   string         `json:"paymentMethod" validate:"required"`
	Notes           *string        `json:"notes" validate:"omitempty,max=500"`
}

// PaymentInfo is what the storefront needs to open the gateway checkout.
type PaymentInfo struct {
	KeyID          string `json:"keyId"`
	GatewayOrderID string `json:"gatewayOrderId"`
	Amount         int64  `json:"amount"`
	Currency       string `json:"currency"`
	Receipt        string `json:"receipt"`
}

type PlaceOrderResult struct {
	OrderID         uuid.UUID       `json:"orderId"`
	Order           orders.OrderDTO `json:"order"`
	PaymentRequired bool            `json:"paymentRequired"`
	PaymentInfo     *PaymentInfo    `json:"paymentInfo,omitempty"`
	CartIssues      []cart.Issue    `json:"cartIssues,omitempty"`
}
