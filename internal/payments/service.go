package payments

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/quickcart-labs/quickcart-backend/internal/orders"
	"github.com/quickcart-labs/quickcart-backend/internal/products"
	"github.com/quickcart-labs/quickcart-backend/pkg/auth"
	"github.com/quickcart-labs/quickcart-backend/pkg/checkout"
	"github.com/quickcart-labs/quickcart-backend/pkg/config"
	"github.com/quickcart-labs/quickcart-backend/pkg/db/models"
	"github.com/quickcart-labs/quickcart-backend/pkg/enums"
	pkgerrors "github.com/quickcart-labs/quickcart-backend/pkg/errors"
	"github.com/quickcart-labs/quickcart-backend/pkg/logger"
	"github.com/quickcart-labs/quickcart-backend/pkg/outbox"
	"github.com/quickcart-labs/quickcart-backend/pkg/outbox/payloads"
	"github.com/quickcart-labs/quickcart-backend/pkg/pagination"
	"github.com/quickcart-labs/quickcart-backend/pkg/razorpay"
	"github.com/quickcart-labs/quickcart-backend/pkg/types"
)

const (
	webhookConsumer = "razorpay_webhook"

	sourceWebhook = "webhook"
	sourceClient  = "client"

	defaultGatewayTimeout = 10 * time.Second
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type deliveryEnsurer interface {
	EnsureForOrder(ctx context.Context, tx *gorm.DB, order *models.Order, status enums.DeliveryStatus) (*models.Delivery, bool, error)
}

// webhookGuard remembers webhook deliveries already handled.
// *idempotency.Manager satisfies it.
type webhookGuard interface {
	CheckAndMarkProcessed(ctx context.Context, consumer, eventID string) (bool, error)
	Delete(ctx context.Context, consumer, eventID string) error
}

type paymentMetrics interface {
	PaymentVerified(mode, outcome string)
	RefundIssued()
}

// Service owns gateway payments from initiation through refund.
type Service interface {
	Initiate(ctx context.Context, tx *gorm.DB, order *models.Order) (*models.Payment, error)
	VerifyWebhook(ctx context.Context, body []byte, signature, eventID string) (*VerifyResult, error)
	VerifyClient(ctx context.Context, actor auth.Actor, input ClientVerifyInput) (*VerifyResult, error)
	Refund(ctx context.Context, actor auth.Actor, paymentID uuid.UUID, input RefundInput) (*PaymentDTO, error)
	Get(ctx context.Context, actor auth.Actor, paymentID uuid.UUID) (*PaymentDTO, error)
	History(ctx context.Context, userID uuid.UUID, params pagination.Params) (pagination.Page[PaymentDTO], error)
	KeyID() string
}

type ServiceParams struct {
	Tx         txRunner
	Payments   *Repository
	Orders     *orders.Repository
	Catalog    *products.Repository
	Deliveries deliveryEnsurer
	Gateway    Gateway
	Outbox     outbox.Emitter
	Guard      webhookGuard
	Metrics    paymentMetrics
	Razorpay   config.RazorpayConfig
	Checkout   config.CheckoutConfig
	Logger     *logger.Logger
}

type service struct {
	tx         txRunner
	payments   *Repository
	orders     *orders.Repository
	catalog    *products.Repository
	deliveries deliveryEnsurer
	gateway    Gateway
	outbox     outbox.Emitter
	guard      webhookGuard
	metrics    paymentMetrics
	razorpay   config.RazorpayConfig
	checkout   config.CheckoutConfig
	logg       *logger.Logger
	now        func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Payments == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if params.Deliveries == nil {
		return nil, fmt.Errorf("delivery lifecycle required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		tx:         params.Tx,
		payments:   params.Payments,
		orders:     params.Orders,
		catalog:    params.Catalog,
		deliveries: params.Deliveries,
		gateway:    params.Gateway,
		outbox:     params.Outbox,
		guard:      params.Guard,
		metrics:    params.Metrics,
		razorpay:   params.Razorpay,
		checkout:   params.Checkout,
		logg:       logg,
		now:        time.Now,
	}, nil
}

func (s *service) KeyID() string {
	if s.gateway == nil {
		return ""
	}
	return s.gateway.KeyID()
}

func (s *service) gatewayTimeout() time.Duration {
	if s.checkout.GatewayTimeout > 0 {
		return s.checkout.GatewayTimeout
	}
	return defaultGatewayTimeout
}

// Initiate creates the gateway order for an online order and records the
// payment through tx. The gateway call is bounded by the configured timeout.
func (s *service) Initiate(ctx context.Context, tx *gorm.DB, order *models.Order) (*models.Payment, error) {
	if s.gateway == nil {
		return nil, pkgerrors.New(pkgerrors.CodePaymentInitiation, "payment gateway is not configured")
	}
	amount := checkout.MinorUnits(order.GrandTotal)
	receipt := "rcpt_" + strings.ReplaceAll(order.ID.String(), "-", "")[:20]

	gctx, cancel := context.WithTimeout(ctx, s.gatewayTimeout())
	defer cancel()
	gwOrder, err := s.gateway.CreateOrder(gctx, razorpay.OrderRequest{
		Amount:   amount,
		Currency: order.Currency,
		Receipt:  receipt,
		Notes:    map[string]string{"order_id": order.ID.String()},
	})
	if err != nil {
		s.logg.Error(s.logg.WithField(ctx, "order_id", order.ID.String()), "payment.initiate_failed", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodePaymentInitiation, err, "could not create gateway order")
	}

	currency := gwOrder.Currency
	if currency == "" {
		currency = order.Currency
	}
	payment := &models.Payment{
		UserID:         order.UserID,
		OrderID:        order.ID,
		GatewayOrderID: gwOrder.ID,
		Amount:         amount,
		Currency:       currency,
		Receipt:        receipt,
		Status:         enums.GatewayPaymentCreated,
		Refunds:        types.RefundRecords{},
	}
	if err := s.payments.WithTx(tx).Create(ctx, payment); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record payment")
	}
	return payment, nil
}

type settlement struct {
	source           string
	gatewayOrderID   string
	gatewayPaymentID string
	signature        string
	method           string
	failureReason    string
	status           enums.GatewayPaymentStatus
	actor            *auth.Actor
}

// VerifyWebhook handles gateway callbacks. Unknown payments and unrelated
// events are acknowledged so the gateway stops retrying.
func (s *service) VerifyWebhook(ctx context.Context, body []byte, signature, eventID string) (*VerifyResult, error) {
	if !VerifyWebhookSignature(body, signature, s.razorpay.WebhookSigningSecret()) {
		s.observe(sourceWebhook, "invalid_signature")
		return nil, pkgerrors.New(pkgerrors.CodeInvalidSignature, "webhook signature mismatch")
	}
	event, err := parseWebhook(body)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "malformed webhook payload")
	}
	status, ok := event.outcome()
	if !ok {
		s.logg.Info(s.logg.WithField(ctx, "webhook_event", event.Event), "payment.webhook_ignored")
		return &VerifyResult{Acknowledged: true}, nil
	}
	entity := event.Payload.Payment.Entity
	if strings.TrimSpace(entity.OrderID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "gateway order id missing")
	}

	key := event.dedupeKey(eventID)
	marked := false
	if s.guard != nil && key != "" {
		seen, err := s.guard.CheckAndMarkProcessed(ctx, webhookConsumer, key)
		switch {
		case err != nil:
			// the conditional settle below still rejects duplicates
			s.logg.Warn(s.logg.WithField(ctx, "webhook_key", key), "payment.webhook_guard_unavailable")
		case seen:
			s.observe(sourceWebhook, "already_processed")
			return &VerifyResult{AlreadyProcessed: true, Acknowledged: true}, nil
		default:
			marked = true
		}
	}

	result, err := s.settle(ctx, settlement{
		source:           sourceWebhook,
		gatewayOrderID:   entity.OrderID,
		gatewayPaymentID: entity.ID,
		signature:        signature,
		method:           entity.Method,
		failureReason:    entity.ErrorDescription,
		status:           status,
	})
	if err != nil {
		if marked {
			if delErr := s.guard.Delete(ctx, webhookConsumer, key); delErr != nil {
				s.logg.Error(s.logg.WithField(ctx, "webhook_key", key), "payment.webhook_guard_release_failed", delErr)
			}
		}
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			s.observe(sourceWebhook, "not_found")
			s.logg.Warn(s.logg.WithField(ctx, "gateway_order_id", entity.OrderID), "payment.webhook_unknown_order")
			return &VerifyResult{Acknowledged: true}, nil
		}
		return nil, err
	}
	result.Acknowledged = true
	return result, nil
}

// VerifyClient handles the storefront confirmation. Unlike webhooks a missing
// payment is reported as 404.
func (s *service) VerifyClient(ctx context.Context, actor auth.Actor, input ClientVerifyInput) (*VerifyResult, error) {
	orderID := strings.TrimSpace(input.GatewayOrderID)
	paymentID := strings.TrimSpace(input.GatewayPaymentID)
	if orderID == "" || paymentID == "" || strings.TrimSpace(input.Signature) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "razorpay_order_id, razorpay_payment_id and razorpay_signature are required")
	}
	if !VerifyClientSignature(orderID, paymentID, input.Signature, s.razorpay.KeySecret) {
		s.observe(sourceClient, "invalid_signature")
		return nil, pkgerrors.New(pkgerrors.CodeInvalidSignature, "payment signature mismatch")
	}
	result, err := s.settle(ctx, settlement{
		source:           sourceClient,
		gatewayOrderID:   orderID,
		gatewayPaymentID: paymentID,
		signature:        input.Signature,
		status:           enums.GatewayPaymentCaptured,
		actor:            &actor,
	})
	if err != nil && pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		s.observe(sourceClient, "not_found")
	}
	return result, err
}

func (s *service) settle(ctx context.Context, in settlement) (*VerifyResult, error) {
	var result *VerifyResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		payRepo := s.payments.WithTx(tx)
		payment, err := payRepo.FindByGatewayOrderID(ctx, in.gatewayOrderID)
		if err != nil {
			return err
		}
		if in.actor != nil && payment.UserID != in.actor.UserID && !in.actor.IsAdmin() {
			return pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
		}
		prior := payment.Status
		if prior.IsSettled() || prior == in.status {
			result = alreadyProcessed(payment)
			return nil
		}

		now := s.now().UTC()
		fields := map[string]any{"status": in.status, "updated_at": now}
		if in.gatewayPaymentID != "" {
			fields["gateway_payment_id"] = in.gatewayPaymentID
			payment.GatewayPaymentID = &in.gatewayPaymentID
		}
		if in.signature != "" {
			fields["signature"] = in.signature
		}
		if in.method != "" {
			fields["method"] = in.method
		}
		switch in.status {
		case enums.GatewayPaymentCaptured:
			fields["captured_at"] = now
			payment.CapturedAt = &now
		case enums.GatewayPaymentFailed:
			reason := in.failureReason
			if reason == "" {
				reason = "payment failed at gateway"
			}
			fields["failure_reason"] = reason
			in.failureReason = reason
		}

		won, err := payRepo.UpdateFromStatus(ctx, payment.ID, prior, fields)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "settle payment")
		}
		if !won {
			result = alreadyProcessed(payment)
			return nil
		}
		payment.Status = in.status

		result = &VerifyResult{Status: in.status, PaymentID: &payment.ID, OrderID: &payment.OrderID}

		order, err := s.orders.WithTx(tx).FindByID(ctx, payment.OrderID)
		if err != nil {
			return pkgerrors.Passthrough(err, pkgerrors.CodeInternal, "load order for payment")
		}
		// the order was confirmed when the payment was authorized
		if !(prior == enums.GatewayPaymentAuthorized && in.status == enums.GatewayPaymentCaptured) {
			if err := s.mirror(ctx, tx, order, payment, in, now); err != nil {
				return err
			}
		}
		result.OrderStatus = order.Status
		result.PaymentStatus = order.PaymentStatus
		return s.emitSettled(ctx, tx, payment, in)
	})
	if err != nil {
		return nil, err
	}

	outcome := string(result.Status)
	if result.AlreadyProcessed {
		outcome = "already_processed"
	}
	s.observe(in.source, outcome)
	if !result.AlreadyProcessed {
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"gateway_order_id": in.gatewayOrderID,
			"payment_status":   result.Status,
			"source":           in.source,
		}), "payment.verified")
	}
	return result, nil
}

// mirror copies a settled payment onto its order. order is updated in place.
func (s *service) mirror(ctx context.Context, tx *gorm.DB, order *models.Order, payment *models.Payment, in settlement, now time.Time) error {
	orderRepo := s.orders.WithTx(tx)
	fields := map[string]any{"payment_id": payment.ID, "updated_at": now}
	closed := order.Status == enums.OrderStatusCancelled || order.Status == enums.OrderStatusExpired

	switch in.status {
	case enums.GatewayPaymentCaptured, enums.GatewayPaymentAuthorized:
		if closed {
			fields["payment_status"] = enums.PaymentStatusRefundPending
			order.PaymentStatus = enums.PaymentStatusRefundPending
			s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
				"order_id":     order.ID.String(),
				"order_status": order.Status,
			}), "payment.captured_for_closed_order")
			return orderRepo.Update(ctx, order.ID, fields)
		}
		fields["payment_status"] = enums.PaymentStatusPaid
		order.PaymentStatus = enums.PaymentStatusPaid
		if order.Status == enums.OrderStatusPending {
			order.StatusHistory = order.StatusHistory.Append(enums.OrderStatusConfirmed, "payment "+string(in.status), nil, now)
			order.Status = enums.OrderStatusConfirmed
			fields["status"] = order.Status
			fields["status_history"] = order.StatusHistory
		}
		if err := orderRepo.Update(ctx, order.ID, fields); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mirror payment onto order")
		}
		if _, _, err := s.deliveries.EnsureForOrder(ctx, tx, order, enums.DeliveryStatusPendingAssignment); err != nil {
			return pkgerrors.Passthrough(err, pkgerrors.CodeInternal, "create delivery")
		}
		return nil

	case enums.GatewayPaymentFailed:
		if closed {
			return orderRepo.Update(ctx, order.ID, fields)
		}
		fields["payment_status"] = enums.PaymentStatusFailed
		order.PaymentStatus = enums.PaymentStatusFailed
		if order.Status == enums.OrderStatusPending {
			order.StatusHistory = order.StatusHistory.Append(enums.OrderStatusFailed, in.failureReason, nil, now)
			order.Status = enums.OrderStatusFailed
			fields["status"] = order.Status
			fields["status_history"] = order.StatusHistory
			if err := s.restoreStock(ctx, tx, order); err != nil {
				return err
			}
		}
		if err := orderRepo.Update(ctx, order.ID, fields); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mirror payment onto order")
		}
	}
	return nil
}

func (s *service) restoreStock(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	catalog := s.catalog.WithTx(tx)
	for _, item := range order.Items {
		ok, err := catalog.Increment(ctx, item.ProductID, item.Quantity)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeStockUpdate, err, "restore stock")
		}
		if !ok {
			s.logg.Warn(s.logg.WithField(ctx, "product_id", item.ProductID.String()), "payment.restock_product_missing")
		}
	}
	return nil
}

func (s *service) emitSettled(ctx context.Context, tx *gorm.DB, payment *models.Payment, in settlement) error {
	event := outbox.DomainEvent{
		AggregateType: enums.AggregatePayment,
		AggregateID:   payment.ID,
	}
	if in.actor != nil {
		event.Actor = &outbox.ActorRef{UserID: in.actor.UserID, Role: in.actor.Role}
	}
	switch in.status {
	case enums.GatewayPaymentCaptured:
		event.EventType = enums.EventPaymentCaptured
		event.Data = payloads.PaymentCapturedEvent{
			PaymentID:        payment.ID,
			OrderID:          payment.OrderID,
			GatewayPaymentID: in.gatewayPaymentID,
			Amount:           payment.Amount,
			Currency:         payment.Currency,
		}
	case enums.GatewayPaymentFailed:
		event.EventType = enums.EventPaymentFailed
		event.Data = payloads.PaymentFailedEvent{
			PaymentID: payment.ID,
			OrderID:   payment.OrderID,
			Reason:    in.failureReason,
		}
	default:
		return nil
	}
	return s.outbox.Emit(ctx, tx, event)
}

func alreadyProcessed(payment *models.Payment) *VerifyResult {
	return &VerifyResult{
		Status:           payment.Status,
		AlreadyProcessed: true,
		PaymentID:        &payment.ID,
		OrderID:          &payment.OrderID,
	}
}

// Refund issues a gateway refund for amount (major units) or for everything
// still refundable, and mirrors the result onto the order.
func (s *service) Refund(ctx context.Context, actor auth.Actor, paymentID uuid.UUID, input RefundInput) (*PaymentDTO, error) {
	payment, err := s.payments.FindByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if !payment.Status.IsRefundable() || payment.GatewayPaymentID == nil || strings.TrimSpace(*payment.GatewayPaymentID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeNotRefundable, fmt.Sprintf("payment in status %s cannot be refunded", payment.Status))
	}

	refundable := payment.RefundableAmount()
	amount := refundable
	if input.Amount != nil {
		if !input.Amount.IsPositive() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "refund amount must be positive")
		}
		amount = checkout.MinorUnits(*input.Amount)
	}
	if refundable <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotRefundable, "payment has been fully refunded")
	}
	if amount > refundable {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "refund amount exceeds refundable balance").
			WithDetails(map[string]any{"requested": amount, "refundable": refundable})
	}
	if s.gateway == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payment gateway is not configured")
	}

	notes := map[string]string{"order_id": payment.OrderID.String()}
	if trimmed := strings.TrimSpace(input.Notes); trimmed != "" {
		notes["notes"] = trimmed
	}
	gctx, cancel := context.WithTimeout(ctx, s.gatewayTimeout())
	defer cancel()
	refund, err := s.gateway.Refund(gctx, razorpay.RefundRequest{
		PaymentID: *payment.GatewayPaymentID,
		Amount:    amount,
		Notes:     notes,
	})
	if err != nil {
		s.logg.Error(s.logg.WithField(ctx, "payment_id", payment.ID.String()), "payment.refund_failed", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "gateway refund failed")
	}

	var updated *models.Payment
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		updated, err = s.recordRefund(ctx, tx, actor, payment.ID, refund, strings.TrimSpace(input.Notes))
		return err
	})
	if err != nil {
		// the gateway already moved the money, so this needs a human
		s.logg.Error(s.logg.WithFields(ctx, map[string]any{
			"payment_id": payment.ID.String(),
			"refund_id":  refund.ID,
		}), "payment.refund_record_failed", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeReconciliation, err, "refund issued but not recorded")
	}
	if s.metrics != nil {
		s.metrics.RefundIssued()
	}
	dto := FromModel(*updated)
	return &dto, nil
}

func (s *service) recordRefund(ctx context.Context, tx *gorm.DB, actor auth.Actor, paymentID uuid.UUID, refund *razorpay.Refund, notes string) (*models.Payment, error) {
	payRepo := s.payments.WithTx(tx)
	payment, err := payRepo.FindByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	records := append(types.RefundRecords{}, payment.Refunds...)
	records = append(records, types.RefundRecord{
		RefundID:  refund.ID,
		Amount:    refund.Amount,
		Status:    refund.Status,
		Notes:     notes,
		CreatedAt: now,
	})
	payment.Refunds = records

	status := enums.GatewayPaymentPartiallyRefunded
	orderPaymentStatus := enums.PaymentStatusPartiallyRefunded
	if payment.RefundableAmount() == 0 {
		status = enums.GatewayPaymentRefunded
		orderPaymentStatus = enums.PaymentStatusRefunded
	}
	if err := tx.WithContext(ctx).Model(&models.Payment{}).Where("id = ?", payment.ID).Updates(map[string]any{
		"status":     status,
		"refunds":    records,
		"updated_at": now,
	}).Error; err != nil {
		return nil, err
	}
	payment.Status = status

	orderRepo := s.orders.WithTx(tx)
	order, err := orderRepo.FindByID(ctx, payment.OrderID)
	if err != nil {
		return nil, err
	}
	fields := map[string]any{"payment_status": orderPaymentStatus, "updated_at": now}
	if status == enums.GatewayPaymentRefunded && order.Status != enums.OrderStatusCancelled && order.Status != enums.OrderStatusRefunded {
		fields["status"] = enums.OrderStatusRefunded
		fields["status_history"] = order.StatusHistory.Append(enums.OrderStatusRefunded, "payment refunded", &actor.UserID, now)
	}
	if err := orderRepo.Update(ctx, order.ID, fields); err != nil {
		return nil, err
	}

	if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventPaymentRefunded,
		AggregateType: enums.AggregatePayment,
		AggregateID:   payment.ID,
		Actor:         &outbox.ActorRef{UserID: actor.UserID, Role: actor.Role},
		Data: payloads.PaymentRefundedEvent{
			PaymentID: payment.ID,
			OrderID:   payment.OrderID,
			RefundID:  refund.ID,
			Amount:    refund.Amount,
			Remaining: payment.RefundableAmount(),
			Status:    status,
		},
	}); err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"payment_id": payment.ID.String(),
		"refund_id":  refund.ID,
		"amount":     refund.Amount,
		"status":     status,
	}), "payment.refunded")
	return payment, nil
}

func (s *service) Get(ctx context.Context, actor auth.Actor, paymentID uuid.UUID) (*PaymentDTO, error) {
	payment, err := s.payments.FindByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if payment.UserID != actor.UserID && !actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "payment belongs to another user")
	}
	dto := FromModel(*payment)
	return &dto, nil
}

func (s *service) History(ctx context.Context, userID uuid.UUID, params pagination.Params) (pagination.Page[PaymentDTO], error) {
	params = params.Normalize()
	rows, total, err := s.payments.ListByUser(ctx, userID, params)
	if err != nil {
		return pagination.Page[PaymentDTO]{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list payments")
	}
	items := make([]PaymentDTO, 0, len(rows))
	for _, row := range rows {
		items = append(items, FromModel(row))
	}
	return pagination.NewPage(items, total, params), nil
}

func (s *service) observe(mode, outcome string) {
	if s.metrics != nil {
		s.metrics.PaymentVerified(mode, outcome)
	}
}
