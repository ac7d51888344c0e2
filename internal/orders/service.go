package orders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/quickcart-labs/quickcart-backend/internal/products"
	"github.com/quickcart-labs/quickcart-backend/pkg/auth"
	"github.com/quickcart-labs/quickcart-backend/pkg/db/models"
	"github.com/quickcart-labs/quickcart-backend/pkg/enums"
	pkgerrors "github.com/quickcart-labs/quickcart-backend/pkg/errors"
	"github.com/quickcart-labs/quickcart-backend/pkg/logger"
	"github.com/quickcart-labs/quickcart-backend/pkg/outbox"
	"github.com/quickcart-labs/quickcart-backend/pkg/outbox/payloads"
	"github.com/quickcart-labs/quickcart-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// DeliverySync is the slice of the delivery lifecycle order transitions need.
type DeliverySync interface {
	EnsureForOrder(ctx context.Context, tx *gorm.DB, order *models.Order, status enums.DeliveryStatus) (*models.Delivery, bool, error)
	SyncForOrderStatus(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, status enums.OrderStatus) (bool, error)
}

type DeliveryReader interface {
	FindByOrder(ctx context.Context, orderID uuid.UUID) (*models.Delivery, error)
}

type PaymentReader interface {
	FindByOrder(ctx context.Context, orderID uuid.UUID) (*models.Payment, error)
}

// Service covers order reads and every post-placement status change.
type Service interface {
	Get(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*OrderDTO, error)
	List(ctx context.Context, userID uuid.UUID, query ListQuery) (pagination.Page[OrderDTO], error)
	Cancel(ctx context.Context, actor auth.Actor, orderID uuid.UUID, input CancelInput) (*OrderDTO, error)
	UpdateStatus(ctx context.Context, actor auth.Actor, orderID uuid.UUID, input UpdateStatusInput) (*OrderDTO, error)
	ExpireStale(ctx context.Context, cutoff time.Time, limit int) (int, error)
}

// Option wires optional read-side collaborators.
type Option func(*service)

func WithDeliveryReader(r DeliveryReader) Option {
	return func(s *service) { s.deliveryReader = r }
}

func WithPaymentReader(r PaymentReader) Option {
	return func(s *service) { s.paymentReader = r }
}

type service struct {
	tx             txRunner
	orders         *Repository
	catalog        *products.Repository
	deliveries     DeliverySync
	outbox         outbox.Emitter
	logg           *logger.Logger
	deliveryReader DeliveryReader
	paymentReader  PaymentReader
	now            func() time.Time
}

func NewService(tx txRunner, orders *Repository, catalog *products.Repository, deliveries DeliverySync, emitter outbox.Emitter, logg *logger.Logger, opts ...Option) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if deliveries == nil {
		return nil, fmt.Errorf("delivery sync required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	s := &service{
		tx:         tx,
		orders:     orders,
		catalog:    catalog,
		deliveries: deliveries,
		outbox:     emitter,
		logg:       logg,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

var listSortFields = map[string]string{
	"createdAt":  "created_at",
	"grandTotal": "grand_total",
	"status":     "status",
}

// Get returns 403 for an existing order owned by someone else so callers can
// tell it apart from a missing one.
func (s *service) Get(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*OrderDTO, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != actor.UserID && !actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another user")
	}
	return s.present(ctx, order), nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID, query ListQuery) (pagination.Page[OrderDTO], error) {
	params := pagination.Params{Page: query.Page, Limit: query.Limit}.Normalize()
	statuses, err := parseStatuses(query.Status)
	if err != nil {
		return pagination.Page[OrderDTO]{}, err
	}
	filter := ListFilter{
		Statuses: statuses,
		Sort:     pagination.ParseSort(query.Sort, listSortFields, pagination.Sort{Field: "created_at", Desc: true}),
	}

	rows, total, err := s.orders.ListByUser(ctx, userID, filter, params)
	if err != nil {
		return pagination.Page[OrderDTO]{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders")
	}
	items := make([]OrderDTO, 0, len(rows))
	for _, row := range rows {
		items = append(items, FromModel(row))
	}
	return pagination.NewPage(items, total, params), nil
}

func parseStatuses(raw string) ([]enums.OrderStatus, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	var out []enums.OrderStatus
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		status, err := enums.ParseOrderStatus(part)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter")
		}
		out = append(out, status)
	}
	return out, nil
}

// Cancel lets the owner cancel while the order has not shipped. Orders owned
// by someone else are reported as missing.
func (s *service) Cancel(ctx context.Context, actor auth.Actor, orderID uuid.UUID, input CancelInput) (*OrderDTO, error) {
	var result *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		order, err := s.orders.WithTx(tx).FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		if order.UserID != actor.UserID {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		if !order.Status.IsUserCancellable() {
			return pkgerrors.New(pkgerrors.CodeCannotCancel, fmt.Sprintf("orders in status %s cannot be cancelled", order.Status)).
				WithDetails(map[string]any{"status": order.Status})
		}
		result, err = s.applyCancellation(ctx, tx, order, actor, input.Reason)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.present(ctx, result), nil
}

// UpdateStatus moves an order along the admin transition table and keeps the
// delivery in step.
func (s *service) UpdateStatus(ctx context.Context, actor auth.Actor, orderID uuid.UUID, input UpdateStatusInput) (*OrderDTO, error) {
	target, err := enums.ParseOrderStatus(input.Status)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order status")
	}

	var result *models.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.orders.WithTx(tx)
		order, err := repo.FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		if err := validateAdminTransition(order.Status, target); err != nil {
			return err
		}
		if target == enums.OrderStatusCancelled {
			result, err = s.applyCancellation(ctx, tx, order, actor, input.Note)
			return err
		}

		from := order.Status
		now := s.now().UTC()
		history := order.StatusHistory.Append(target, input.Note, &actor.UserID, now)
		fields := map[string]any{
			"status":         target,
			"status_history": history,
			"updated_at":     now,
		}
		paymentStatus := order.PaymentStatus
		if target == enums.OrderStatusDelivered {
			fields["delivered_at"] = now
			order.DeliveredAt = &now
			if order.PaymentMethod == enums.PaymentMethodCashOnDelivery {
				paymentStatus = enums.PaymentStatusPaid
				fields["payment_status"] = paymentStatus
			}
		}

		updated, err := repo.UpdateFromStatus(ctx, order.ID, []enums.OrderStatus{from}, fields)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update order status")
		}
		if !updated {
			return pkgerrors.New(pkgerrors.CodeConflict, "order was modified concurrently")
		}
		order.Status = target
		order.StatusHistory = history
		order.PaymentStatus = paymentStatus

		if target == enums.OrderStatusShipped {
			if _, _, err := s.deliveries.EnsureForOrder(ctx, tx, order, enums.DeliveryStatusAssigned); err != nil {
				return pkgerrors.Passthrough(err, pkgerrors.CodeInternal, "create delivery")
			}
		}
		if _, err := s.deliveries.SyncForOrderStatus(ctx, tx, order.ID, target); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "sync delivery status")
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: actor.UserID, Role: actor.Role},
			Data: payloads.OrderStatusChangedEvent{
				OrderID:       order.ID,
				UserID:        order.UserID,
				From:          from,
				To:            target,
				PaymentStatus: paymentStatus,
			},
		}); err != nil {
			return err
		}

		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"order_id": order.ID.String(),
			"from":     from,
			"to":       target,
		}), "order.status_changed")
		result = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.present(ctx, result), nil
}

// applyCancellation is shared by owner and admin cancellation. It must run
// inside tx.
func (s *service) applyCancellation(ctx context.Context, tx *gorm.DB, order *models.Order, actor auth.Actor, reason string) (*models.Order, error) {
	from := order.Status
	now := s.now().UTC()
	paymentStatus := enums.PaymentStatusCancelled
	if order.PaymentStatus == enums.PaymentStatusPaid {
		paymentStatus = enums.PaymentStatusRefundPending
	}
	reason = strings.TrimSpace(reason)
	history := order.StatusHistory.Append(enums.OrderStatusCancelled, reason, &actor.UserID, now)

	updated, err := s.orders.WithTx(tx).UpdateFromStatus(ctx, order.ID, []enums.OrderStatus{from}, map[string]any{
		"status":         enums.OrderStatusCancelled,
		"payment_status": paymentStatus,
		"status_history": history,
		"cancelled_at":   now,
		"updated_at":     now,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "cancel order")
	}
	if !updated {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "order was modified concurrently")
	}

	if err := s.restoreStock(ctx, tx, order); err != nil {
		return nil, err
	}
	if _, err := s.deliveries.SyncForOrderStatus(ctx, tx, order.ID, enums.OrderStatusCancelled); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "cancel delivery")
	}

	if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderCancelled,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         &outbox.ActorRef{UserID: actor.UserID, Role: actor.Role},
		Data: payloads.OrderCancelledEvent{
			OrderID:       order.ID,
			UserID:        order.UserID,
			PaymentStatus: paymentStatus,
			CancelledAt:   now,
			CancelledBy:   actor.Role,
			Reason:        reason,
		},
	}); err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"order_id":       order.ID.String(),
		"from":           from,
		"payment_status": paymentStatus,
		"cancelled_by":   actor.Role,
	}), "order.cancelled")

	order.Status = enums.OrderStatusCancelled
	order.PaymentStatus = paymentStatus
	order.StatusHistory = history
	order.CancelledAt = &now
	return order, nil
}

// restoreStock puts every snapshot quantity back. A product that no longer
// exists is logged and skipped.
func (s *service) restoreStock(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	catalog := s.catalog.WithTx(tx)
	for _, item := range order.Items {
		ok, err := catalog.Increment(ctx, item.ProductID, item.Quantity)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeStockUpdate, err, "restore stock")
		}
		if !ok {
			s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
				"order_id":   order.ID.String(),
				"product_id": item.ProductID.String(),
				"quantity":   item.Quantity,
			}), "order.restock_product_missing")
		}
	}
	return nil
}

// ExpireStale expires unpaid online orders created before cutoff, restoring
// their stock. It returns how many orders were expired.
func (s *service) ExpireStale(ctx context.Context, cutoff time.Time, limit int) (int, error) {
	stale, err := s.orders.ListStalePending(ctx, cutoff, limit)
	if err != nil {
		return 0, err
	}

	expired := 0
	var errs error
	for i := range stale {
		order := &stale[i]
		err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			return s.expire(ctx, tx, order)
		})
		switch {
		case err == nil:
			expired++
		case pkgerrors.IsCode(err, pkgerrors.CodeConflict):
			// paid or cancelled between the scan and the update
		default:
			errs = multierr.Append(errs, fmt.Errorf("expire order %s: %w", order.ID, err))
		}
	}
	return expired, errs
}

func (s *service) expire(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	now := s.now().UTC()
	history := order.StatusHistory.Append(enums.OrderStatusExpired, "payment window elapsed", nil, now)
	res := tx.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND status = ? AND payment_status = ?", order.ID, enums.OrderStatusPending, enums.PaymentStatusPending).
		Updates(map[string]any{
			"status":         enums.OrderStatusExpired,
			"payment_status": enums.PaymentStatusFailed,
			"status_history": history,
			"updated_at":     now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected != 1 {
		return pkgerrors.New(pkgerrors.CodeConflict, "order no longer pending")
	}

	if err := s.restoreStock(ctx, tx, order); err != nil {
		return err
	}
	if err := s.orders.WithTx(tx).FailOpenPayments(ctx, order.ID, "order expired before payment"); err != nil {
		return err
	}

	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderExpired,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Data: payloads.OrderExpiredEvent{
			OrderID:   order.ID,
			UserID:    order.UserID,
			ExpiredAt: now,
		},
	})
}

func (s *service) present(ctx context.Context, order *models.Order) *OrderDTO {
	dto := FromModel(*order)
	if s.paymentReader != nil && order.PaymentMethod == enums.PaymentMethodOnline {
		payment, err := s.paymentReader.FindByOrder(ctx, order.ID)
		if err != nil {
			s.logg.Warn(s.logg.WithField(ctx, "order_id", order.ID.String()), "order.payment_lookup_failed")
		} else if payment != nil {
			dto.Payment = paymentSummary(*payment)
		}
	}
	if s.deliveryReader != nil {
		delivery, err := s.deliveryReader.FindByOrder(ctx, order.ID)
		if err != nil {
			s.logg.Warn(s.logg.WithField(ctx, "order_id", order.ID.String()), "order.delivery_lookup_failed")
		} else if delivery != nil {
			dto.Delivery = deliverySummary(*delivery)
		}
	}
	return &dto
}
