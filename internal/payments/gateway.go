package payments

import (
	"context"

	"github.com/quickcart-labs/quickcart-backend/pkg/razorpay"
)

// Gateway is the payment provider surface. *razorpay.Client satisfies it.
type Gateway interface {
	CreateOrder(ctx context.Context, req razorpay.OrderRequest) (*razorpay.Order, error)
	Refund(ctx context.Context, req razorpay.RefundRequest) (*razorpay.Refund, error)
	KeyID() string
}

var _ Gateway = (*razorpay.Client)(nil)
