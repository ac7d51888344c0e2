// Package razorpay wraps the razorpay-go SDK behind context-aware calls that
// return typed results.
package razorpay

import (
	"context"
	"errors"
	"fmt"
	"strings"

	sdk "github.com/razorpay/razorpay-go"

	"github.com/quickcart-labs/quickcart-backend/pkg/config"
	"github.com/quickcart-labs/quickcart-backend/pkg/logger"
)

var (
	errKeyIDRequired     = errors.New("razorpay key id is required")
	errKeySecretRequired = errors.New("razorpay key secret is required")
)

// OrderRequest creates a gateway order. Amount is in minor units.
type OrderRequest struct {
	Amount   int64
	Currency string
	Receipt  string
	Notes    map[string]string
}

type Order struct {
	ID       string
	Amount   int64
	Currency string
	Receipt  string
	Status   string
}

// RefundRequest refunds Amount minor units of a captured payment.
type RefundRequest struct {
	PaymentID string
	Amount    int64
	Notes     map[string]string
}

type Refund struct {
	ID        string
	PaymentID string
	Amount    int64
	Status    string
}

type sdkCall func(data map[string]interface{}, headers map[string]string) (map[string]interface{}, error)

type refundCall func(paymentID string, amount int, data map[string]interface{}, headers map[string]string) (map[string]interface{}, error)

// Client is the payment gateway used by checkout and refunds.
type Client struct {
	keyID       string
	createOrder sdkCall
	refund      refundCall
}

func NewClient(ctx context.Context, cfg config.RazorpayConfig, logg *logger.Logger) (*Client, error) {
	keyID := strings.TrimSpace(cfg.KeyID)
	if keyID == "" {
		return nil, errKeyIDRequired
	}
	secret := strings.TrimSpace(cfg.KeySecret)
	if secret == "" {
		return nil, errKeySecretRequired
	}

	api := sdk.NewClient(keyID, secret)
	if logg != nil {
		logg.Info(ctx, "razorpay client initialized")
	}
	return &Client{
		keyID:       keyID,
		createOrder: api.Order.Create,
		refund:      api.Payment.Refund,
	}, nil
}

// KeyID is the public key the storefront needs to open checkout.
func (c *Client) KeyID() string {
	if c == nil {
		return ""
	}
	return c.keyID
}

// CreateOrder registers an order with the gateway. The SDK has no context
// support, so the call is abandoned when ctx ends first.
func (c *Client) CreateOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	if req.Amount <= 0 {
		return nil, fmt.Errorf("razorpay order amount must be positive, got %d", req.Amount)
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = "INR"
	}
	data := map[string]interface{}{
		"amount":   req.Amount,
		"currency": currency,
		"receipt":  req.Receipt,
	}
	if len(req.Notes) > 0 {
		data["notes"] = req.Notes
	}

	body, err := withContext(ctx, func() (map[string]interface{}, error) {
		return c.createOrder(data, nil)
	})
	if err != nil {
		return nil, fmt.Errorf("razorpay create order: %w", err)
	}

	order := &Order{
		ID:       stringField(body, "id"),
		Amount:   int64Field(body, "amount"),
		Currency: stringField(body, "currency"),
		Receipt:  stringField(body, "receipt"),
		Status:   stringField(body, "status"),
	}
	if order.ID == "" {
		return nil, errors.New("razorpay create order: response missing id")
	}
	return order, nil
}

func (c *Client) Refund(ctx context.Context, req RefundRequest) (*Refund, error) {
	if strings.TrimSpace(req.PaymentID) == "" {
		return nil, errors.New("razorpay refund: payment id is required")
	}
	if req.Amount <= 0 {
		return nil, fmt.Errorf("razorpay refund amount must be positive, got %d", req.Amount)
	}
	data := map[string]interface{}{}
	if len(req.Notes) > 0 {
		data["notes"] = req.Notes
	}

	body, err := withContext(ctx, func() (map[string]interface{}, error) {
		return c.refund(req.PaymentID, int(req.Amount), data, nil)
	})
	if err != nil {
		return nil, fmt.Errorf("razorpay refund: %w", err)
	}

	refund := &Refund{
		ID:        stringField(body, "id"),
		PaymentID: stringField(body, "payment_id"),
		Amount:    int64Field(body, "amount"),
		Status:    stringField(body, "status"),
	}
	if refund.ID == "" {
		return nil, errors.New("razorpay refund: response missing id")
	}
	if refund.Amount == 0 {
		refund.Amount = req.Amount
	}
	return refund, nil
}

type result struct {
	body map[string]interface{}
	err  error
}

func withContext(ctx context.Context, call func() (map[string]interface{}, error)) (map[string]interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	done := make(chan result, 1)
	go func() {
		body, err := call()
		done <- result{body: body, err: err}
	}()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-done:
		return res.body, res.err
	}
}

func stringField(body map[string]interface{}, key string) string {
	if v, ok := body[key].(string); ok {
		return v
	}
	return ""
}

func int64Field(body map[string]interface{}, key string) int64 {
	switch v := body[key].(type) {
	case float64:
		return int64(v)
	case int:
		return int64(v)
	case int64:
		return v
	}
	return 0
}
