package controllers

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/quickcart-labs/quickcart-backend/api/middleware"
	"github.com/quickcart-labs/quickcart-backend/api/responses"
	"github.com/quickcart-labs/quickcart-backend/api/validators"
	"github.com/quickcart-labs/quickcart-backend/internal/payments"
	"github.com/quickcart-labs/quickcart-backend/pkg/auth"
	pkgerrors "github.com/quickcart-labs/quickcart-backend/pkg/errors"
	"github.com/quickcart-labs/quickcart-backend/pkg/logger"
	"github.com/quickcart-labs/quickcart-backend/pkg/pagination"
)

const (
	maxWebhookBody = 1 << 20

	signatureHeader = "X-Razorpay-Signature"
	eventIDHeader   = "X-Razorpay-Event-Id"
)

// PaymentService is the slice of the payments service the HTTP layer needs.
type PaymentService interface {
	VerifyWebhook(ctx context.Context, body []byte, signature, eventID string) (*payments.VerifyResult, error)
	VerifyClient(ctx context.Context, actor auth.Actor, input payments.ClientVerifyInput) (*payments.VerifyResult, error)
	Refund(ctx context.Context, actor auth.Actor, paymentID uuid.UUID, input payments.RefundInput) (*payments.PaymentDTO, error)
	Get(ctx context.Context, actor auth.Actor, paymentID uuid.UUID) (*payments.PaymentDTO, error)
	History(ctx context.Context, userID uuid.UUID, params pagination.Params) (pagination.Page[payments.PaymentDTO], error)
}

// PaymentVerify accepts both verification modes on one route. A request
// carrying the gateway signature header is treated as a webhook delivery;
// anything else is the signed-in storefront callback.
func PaymentVerify(svc PaymentService, logg *logger.Logger) http.HandlerFunc {
	webhook := RazorpayWebhook(svc, logg)
	return func(w http.ResponseWriter, r *http.Request) {
		if strings.TrimSpace(r.Header.Get(signatureHeader)) != "" {
			webhook(w, r)
			return
		}
		actor, ok := middleware.ActorFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}
		var payload payments.ClientVerifyInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.VerifyClient(r.Context(), actor, payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessMessage(w, http.StatusOK, verifyMessage(result), result)
	}
}

// RazorpayWebhook verifies the HMAC over the raw body, so the body is read
// untouched before anything decodes it.
func RazorpayWebhook(svc PaymentService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		signature := strings.TrimSpace(r.Header.Get(signatureHeader))
		if signature == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInvalidSignature, "missing webhook signature"))
			return
		}
		body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody+1))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read webhook body"))
			return
		}
		if len(body) > maxWebhookBody {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "webhook body too large"))
			return
		}
		result, err := svc.VerifyWebhook(r.Context(), body, signature, strings.TrimSpace(r.Header.Get(eventIDHeader)))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessMessage(w, http.StatusOK, verifyMessage(result), result)
	}
}

func verifyMessage(result *payments.VerifyResult) string {
	if result != nil && result.AlreadyProcessed {
		return "Payment already processed"
	}
	return "Payment verified"
}

func PaymentHistory(svc PaymentService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := svc.History(r.Context(), actor.UserID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func PaymentGet(svc PaymentService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		paymentID, err := validators.ParseUUIDParam(r, "paymentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		payment, err := svc.Get(r.Context(), actor, paymentID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, payment)
	}
}

// PaymentRefund issues a full or partial refund. Admin only.
func PaymentRefund(svc PaymentService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		paymentID, err := validators.ParseUUIDParam(r, "paymentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload payments.RefundInput
		if err := validators.DecodeOptionalJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		payment, err := svc.Refund(r.Context(), actor, paymentID, payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessMessage(w, http.StatusOK, "Refund initiated", payment)
	}
}
