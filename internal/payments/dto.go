package payments

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/quickcart-labs/quickcart-backend/pkg/checkout"
	"github.com/quickcart-labs/quickcart-backend/pkg/db/models"
	"github.com/quickcart-labs/quickcart-backend/pkg/enums"
	"github.com/quickcart-labs/quickcart-backend/pkg/types"
)

type PaymentDTO struct {
	ID               uuid.UUID                  `json:"id"`
	OrderID          uuid.UUID                  `json:"orderId"`
	GatewayOrderID   string                     `json:"gatewayOrderId"`
	GatewayPaymentID *string                    `json:"gatewayPaymentId,omitempty"`
	Amount           int64                      `json:"amount"`
	AmountMajor      decimal.Decimal            `json:"amountMajor"`
	Currency         string                     `json:"currency"`
	Receipt          string                     `json:"receipt"`
	Status           enums.GatewayPaymentStatus `json:"status"`
	Method           *string                    `json:"method,omitempty"`
	FailureReason    *string                    `json:"failureReason,omitempty"`
	Refunds          types.RefundRecords        `json:"refunds"`
	Refundable       int64                      `json:"refundable"`
	CapturedAt       *time.Time                 `json:"capturedAt,omitempty"`
	CreatedAt        time.Time                  `json:"createdAt"`
}

// ClientVerifyInput is the storefront callback after checkout completes.
type ClientVerifyInput struct {
	GatewayOrderID   string `json:"razorpay_order_id" validate:"required"`
	GatewayPaymentID string `json:"razorpay_payment_id" validate:"required"`
	Signature        string `json:"razorpay_signature" validate:"required"`
}

// RefundInput takes the amount in major units. Nil refunds everything left.
type RefundInput struct {
	Amount *decimal.Decimal `json:"amount"`
	Notes  string           `json:"notes" validate:"omitempty,max=255"`
}

// VerifyResult reports how a verification attempt ended. AlreadyProcessed is
// a success outcome.
type VerifyResult struct {
	Status           enums.GatewayPaymentStatus `json:"status,omitempty"`
	AlreadyProcessed bool                       `json:"already_processed"`
	Acknowledged     bool                       `json:"acknowledged,omitempty"`
	PaymentID        *uuid.UUID                 `json:"paymentId,omitempty"`
	OrderID          *uuid.UUID                 `json:"orderId,omitempty"`
	OrderStatus      enums.OrderStatus          `json:"orderStatus,omitempty"`
	PaymentStatus    enums.PaymentStatus        `json:"paymentStatus,omitempty"`
}

func FromModel(p models.Payment) PaymentDTO {
	refunds := p.Refunds
	if refunds == nil {
		refunds = types.RefundRecords{}
	}
	return PaymentDTO{
		ID:               p.ID,
		OrderID:          p.OrderID,
		GatewayOrderID:   p.GatewayOrderID,
		GatewayPaymentID: p.GatewayPaymentID,
		Amount:           p.Amount,
		AmountMajor:      checkout.MajorUnits(p.Amount),
		Currency:         p.Currency,
		Receipt:          p.Receipt,
		Status:           p.Status,
		Method:           p.Method,
		FailureReason:    p.FailureReason,
		Refunds:          refunds,
		Refundable:       p.RefundableAmount(),
		CapturedAt:       p.CapturedAt,
		CreatedAt:        p.CreatedAt,
	}
}
