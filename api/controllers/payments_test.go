package controllers

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/quickcart-labs/quickcart-backend/internal/payments"
	"github.com/quickcart-labs/quickcart-backend/pkg/auth"
	"github.com/quickcart-labs/quickcart-backend/pkg/enums"
	pkgerrors "github.com/quickcart-labs/quickcart-backend/pkg/errors"
	"github.com/quickcart-labs/quickcart-backend/pkg/pagination"
)

type stubPayments struct {
	result  *payments.VerifyResult
	payment *payments.PaymentDTO
	err     error

	body      []byte
	signature string
	eventID   string
	client    *payments.ClientVerifyInput
	refund    payments.RefundInput
	params    pagination.Params
}

func (s *stubPayments) VerifyWebhook(_ context.Context, body []byte, signature, eventID string) (*payments.VerifyResult, error) {
	s.body, s.signature, s.eventID = body, signature, eventID
	return s.result, s.err
}

func (s *stubPayments) VerifyClient(_ context.Context, _ auth.Actor, input payments.ClientVerifyInput) (*payments.VerifyResult, error) {
	s.client = &input
	return s.result, s.err
}

func (s *stubPayments) Refund(_ context.Context, _ auth.Actor, _ uuid.UUID, input payments.RefundInput) (*payments.PaymentDTO, error) {
	s.refund = input
	return s.payment, s.err
}

func (s *stubPayments) Get(context.Context, auth.Actor, uuid.UUID) (*payments.PaymentDTO, error) {
	return s.payment, s.err
}

func (s *stubPayments) History(_ context.Context, _ uuid.UUID, params pagination.Params) (pagination.Page[payments.PaymentDTO], error) {
	s.params = params
	return pagination.Page[payments.PaymentDTO]{Items: []payments.PaymentDTO{}}, s.err
}

const webhookBody = `{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_1","order_id":"order_1"}}}}`

func TestPaymentVerifyRoutesSignedRequestsToWebhook(t *testing.T) {
	svc := &stubPayments{result: &payments.VerifyResult{Status: enums.GatewayPaymentCaptured}}
	req := newRequest(http.MethodPost, "/api/v1/payments/verify", webhookBody, nil, nil)
	req.Header.Set(signatureHeader, "abc123")
	req.Header.Set(eventIDHeader, "evt_1")

	resp := serve(PaymentVerify(svc, nil), req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if string(svc.body) != webhookBody {
		t.Fatalf("raw body not forwarded: %s", svc.body)
	}
	if svc.signature != "abc123" || svc.eventID != "evt_1" {
		t.Fatalf("unexpected headers sig=%q event=%q", svc.signature, svc.eventID)
	}
	if svc.client != nil {
		t.Fatal("client verification must not run for webhook deliveries")
	}
}

func TestPaymentVerifyClientRequiresActor(t *testing.T) {
	body := `{"razorpay_order_id":"order_1","razorpay_payment_id":"pay_1","razorpay_signature":"sig"}`
	resp := serve(PaymentVerify(&stubPayments{}, nil), newRequest(http.MethodPost, "/api/v1/payments/verify", body, nil, nil))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestPaymentVerifyClientAlreadyProcessed(t *testing.T) {
	svc := &stubPayments{result: &payments.VerifyResult{AlreadyProcessed: true}}
	body := `{"razorpay_order_id":"order_1","razorpay_payment_id":"pay_1","razorpay_signature":"sig"}`
	resp := serve(PaymentVerify(svc, nil), newRequest(http.MethodPost, "/api/v1/payments/verify", body, customer(), nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if env := decodeEnvelope(t, resp); env.Message != "Payment already processed" {
		t.Fatalf("unexpected message %q", env.Message)
	}
	if svc.client == nil || svc.client.GatewayPaymentID != "pay_1" {
		t.Fatalf("unexpected input %+v", svc.client)
	}
}

func TestRazorpayWebhookRejectsMissingSignature(t *testing.T) {
	resp := serve(RazorpayWebhook(&stubPayments{}, nil), newRequest(http.MethodPost, "/api/v1/webhooks/razorpay", webhookBody, nil, nil))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if env := decodeEnvelope(t, resp); env.Error.Code != string(pkgerrors.CodeInvalidSignature) {
		t.Fatalf("unexpected code %s", env.Error.Code)
	}
}

func TestRazorpayWebhookRejectsOversizedBody(t *testing.T) {
	req := newRequest(http.MethodPost, "/api/v1/webhooks/razorpay", strings.Repeat("x", maxWebhookBody+10), nil, nil)
	req.Header.Set(signatureHeader, "sig")
	svc := &stubPayments{}
	if resp := serve(RazorpayWebhook(svc, nil), req); resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if svc.body != nil {
		t.Fatal("service must not see oversized bodies")
	}
}

func TestRazorpayWebhookBadSignature(t *testing.T) {
	req := newRequest(http.MethodPost, "/api/v1/webhooks/razorpay", webhookBody, nil, nil)
	req.Header.Set(signatureHeader, "forged")
	svc := &stubPayments{err: pkgerrors.New(pkgerrors.CodeInvalidSignature, "invalid webhook signature")}
	if resp := serve(RazorpayWebhook(svc, nil), req); resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestPaymentRefundPartialAmount(t *testing.T) {
	paymentID := uuid.New().String()
	svc := &stubPayments{payment: &payments.PaymentDTO{}}
	req := newRequest(http.MethodPost, "/api/v1/admin/payments/"+paymentID+"/refund", `{"amount":"49.50","notes":"damaged"}`,
		&auth.Actor{UserID: uuid.New(), Role: enums.RoleAdmin}, map[string]string{"paymentId": paymentID})

	resp := serve(PaymentRefund(svc, nil), req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.refund.Amount == nil || !svc.refund.Amount.Equal(decimal.RequireFromString("49.50")) {
		t.Fatalf("unexpected amount %v", svc.refund.Amount)
	}
}

func TestPaymentRefundFullWithoutBody(t *testing.T) {
	paymentID := uuid.New().String()
	svc := &stubPayments{payment: &payments.PaymentDTO{}}
	req := newRequest(http.MethodPost, "/api/v1/admin/payments/"+paymentID+"/refund", "",
		&auth.Actor{UserID: uuid.New(), Role: enums.RoleAdmin}, map[string]string{"paymentId": paymentID})
	if resp := serve(PaymentRefund(svc, nil), req); resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.refund.Amount != nil {
		t.Fatal("expected a full refund")
	}
}

func TestPaymentHistoryAndGet(t *testing.T) {
	svc := &stubPayments{payment: &payments.PaymentDTO{}}
	resp := serve(PaymentHistory(svc, nil), newRequest(http.MethodGet, "/api/v1/payments/history?page=3", "", customer(), nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("history: expected 200 got %d", resp.Code)
	}
	if svc.params.Page != 3 || svc.params.Limit != pagination.DefaultLimit {
		t.Fatalf("unexpected params %+v", svc.params)
	}

	paymentID := uuid.New().String()
	resp = serve(PaymentGet(svc, nil), newRequest(http.MethodGet, "/api/v1/payments/"+paymentID, "", customer(), map[string]string{"paymentId": paymentID}))
	if resp.Code != http.StatusOK {
		t.Fatalf("get: expected 200 got %d", resp.Code)
	}
}
