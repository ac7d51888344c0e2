package deliveries

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/quickcart-labs/quickcart-backend/internal/notifications"
	"github.com/quickcart-labs/quickcart-backend/internal/orders"
	"github.com/quickcart-labs/quickcart-backend/pkg/auth"
	"github.com/quickcart-labs/quickcart-backend/pkg/config"
	"github.com/quickcart-labs/quickcart-backend/pkg/db/models"
	"github.com/quickcart-labs/quickcart-backend/pkg/enums"
	pkgerrors "github.com/quickcart-labs/quickcart-backend/pkg/errors"
	"github.com/quickcart-labs/quickcart-backend/pkg/logger"
	"github.com/quickcart-labs/quickcart-backend/pkg/outbox"
	"github.com/quickcart-labs/quickcart-backend/pkg/outbox/payloads"
	"github.com/quickcart-labs/quickcart-backend/pkg/pagination"
	"github.com/quickcart-labs/quickcart-backend/pkg/security"
)

const (
	otpDigits     = 6
	defaultOTPTTL = 5 * time.Minute
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type userDirectory interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	RequireRole(ctx context.Context, id uuid.UUID, role enums.UserRole) (*models.User, error)
}

type otpNotifier interface {
	SendDeliveryOTP(ctx context.Context, msg notifications.OTPMessage) error
}

// rateLimiter is satisfied by *redis.Client.
type rateLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

type otpMetrics interface {
	DeliveryOTP(result string)
}

// Service exposes delivery tracking and the OTP handshake.
type Service interface {
	Get(ctx context.Context, actor auth.Actor, deliveryID uuid.UUID) (*DeliveryDTO, error)
	GetByOrder(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*DeliveryDTO, error)
	ListMine(ctx context.Context, actor auth.Actor, query ListQuery) (pagination.Page[DeliveryDTO], error)
	AdminList(ctx context.Context, query ListQuery) (pagination.Page[DeliveryDTO], error)
	RequestOTP(ctx context.Context, actor auth.Actor, deliveryID uuid.UUID) (*OTPIssued, error)
	VerifyOTP(ctx context.Context, actor auth.Actor, deliveryID uuid.UUID, input VerifyOTPInput) (*DeliveryDTO, error)
	UpdateLocation(ctx context.Context, actor auth.Actor, deliveryID uuid.UUID, input LocationInput) (*DeliveryDTO, error)
	AdminUpdate(ctx context.Context, actor auth.Actor, deliveryID uuid.UUID, input AdminUpdateInput) (*DeliveryDTO, error)
}

type ServiceParams struct {
	Tx         txRunner
	Deliveries *Repository
	Orders     *orders.Repository
	Users      userDirectory
	Notifier   otpNotifier
	Limiter    rateLimiter
	Outbox     outbox.Emitter
	Metrics    otpMetrics
	Config     config.DeliveryConfig
	OTPHash    config.OTPHashConfig
	Logger     *logger.Logger
}

type service struct {
	tx         txRunner
	deliveries *Repository
	orders     *orders.Repository
	users      userDirectory
	notifier   otpNotifier
	limiter    rateLimiter
	outbox     outbox.Emitter
	metrics    otpMetrics
	cfg        config.DeliveryConfig
	hashCfg    config.OTPHashConfig
	logg       *logger.Logger
	now        func() time.Time
	codeGen    func(int) (string, error)
}

func NewService(params ServiceParams) (Service, error) {
	if params.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Deliveries == nil {
		return nil, fmt.Errorf("deliveries repository required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if params.Notifier == nil {
		return nil, fmt.Errorf("otp notifier required")
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
		deliveries: params.Deliveries,
		orders:     params.Orders,
		users:      params.Users,
		notifier:   params.Notifier,
		limiter:    params.Limiter,
		outbox:     params.Outbox,
		metrics:    params.Metrics,
		cfg:        params.Config,
		hashCfg:    params.OTPHash,
		logg:       logg,
		now:        time.Now,
		codeGen:    security.GenerateNumericCode,
	}, nil
}

func isAssignedDriver(actor auth.Actor, d *models.Delivery) bool {
	return d.DriverID != nil && *d.DriverID == actor.UserID
}

func canView(actor auth.Actor, d *models.Delivery) bool {
	return actor.IsAdmin() || d.UserID == actor.UserID || isAssignedDriver(actor, d)
}

func (s *service) Get(ctx context.Context, actor auth.Actor, deliveryID uuid.UUID) (*DeliveryDTO, error) {
	delivery, err := s.deliveries.FindByID(ctx, deliveryID)
	if err != nil {
		return nil, err
	}
	if !canView(actor, delivery) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "delivery belongs to another user")
	}
	dto := FromModel(*delivery)
	return &dto, nil
}

func (s *service) GetByOrder(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*DeliveryDTO, error) {
	delivery, err := s.deliveries.FindByOrder(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load delivery")
	}
	if delivery == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "delivery not found for order")
	}
	if !canView(actor, delivery) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "delivery belongs to another user")
	}
	dto := FromModel(*delivery)
	return &dto, nil
}

// ListMine lists deliveries assigned to a driver, or addressed to anyone else.
func (s *service) ListMine(ctx context.Context, actor auth.Actor, query ListQuery) (pagination.Page[DeliveryDTO], error) {
	filter := ListFilter{}
	if actor.IsDriver() {
		filter.DriverID = &actor.UserID
	} else {
		filter.UserID = &actor.UserID
	}
	return s.list(ctx, filter, query)
}

func (s *service) AdminList(ctx context.Context, query ListQuery) (pagination.Page[DeliveryDTO], error) {
	return s.list(ctx, ListFilter{}, query)
}

func (s *service) list(ctx context.Context, filter ListFilter, query ListQuery) (pagination.Page[DeliveryDTO], error) {
	if raw := strings.TrimSpace(query.Status); raw != "" {
		status, err := enums.ParseDeliveryStatus(raw)
		if err != nil {
			return pagination.Page[DeliveryDTO]{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter")
		}
		filter.Status = status
	}
	params := pagination.Params{Page: query.Page, Limit: query.Limit}.Normalize()
	rows, total, err := s.deliveries.List(ctx, filter, params)
	if err != nil {
		return pagination.Page[DeliveryDTO]{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list deliveries")
	}
	items := make([]DeliveryDTO, 0, len(rows))
	for _, row := range rows {
		items = append(items, FromModel(row))
	}
	return pagination.NewPage(items, total, params), nil
}

func (s *service) otpTTL() time.Duration {
	if s.cfg.OTPTTL > 0 {
		return s.cfg.OTPTTL
	}
	return defaultOTPTTL
}

// allow applies the per-delivery window. A limiter outage lets the request through.
func (s *service) allow(ctx context.Context, action string, deliveryID uuid.UUID, limit int) error {
	if s.limiter == nil || limit <= 0 {
		return nil
	}
	window := s.cfg.OTPLimitWindow
	if window <= 0 {
		window = 15 * time.Minute
	}
	scope := fmt.Sprintf("delivery_otp_%s:%s", action, deliveryID)
	ok, count, err := s.limiter.FixedWindowAllow(ctx, scope, int64(limit), window)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "scope", scope), "delivery.otp_rate_limit_unavailable")
		return nil
	}
	if !ok {
		s.observe("rate_limited")
		return pkgerrors.New(pkgerrors.CodeRateLimit, "too many otp attempts, try again later").
			WithDetails(map[string]any{"attempts": count, "limit": limit, "windowSeconds": int(window.Seconds())})
	}
	return nil
}

// RequestOTP issues a fresh code to the recipient, replacing any earlier one.
func (s *service) RequestOTP(ctx context.Context, actor auth.Actor, deliveryID uuid.UUID) (*OTPIssued, error) {
	delivery, err := s.deliveries.FindByID(ctx, deliveryID)
	if err != nil {
		return nil, err
	}
	if delivery.UserID != actor.UserID && !actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the recipient can request a delivery code")
	}
	if delivery.OTPVerified {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery has already been confirmed")
	}
	if delivery.Status != enums.DeliveryStatusOutForDelivery {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "a delivery code can only be requested while out for delivery").
			WithDetails(map[string]any{"status": delivery.Status})
	}
	if err := s.allow(ctx, "request", delivery.ID, s.cfg.OTPRequestLimit); err != nil {
		return nil, err
	}

	recipient, err := s.users.FindByID(ctx, delivery.UserID)
	if err != nil {
		return nil, pkgerrors.Passthrough(err, pkgerrors.CodeInternal, "load recipient")
	}

	code, err := s.codeGen(otpDigits)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate otp")
	}
	digest, err := security.HashSecret(code, s.hashCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash otp")
	}
	now := s.now().UTC()
	expiresAt := now.Add(s.otpTTL())

	res := s.deliveries.DB(ctx).Model(&models.Delivery{}).
		Where("id = ? AND status = ? AND otp_verified = ?", delivery.ID, enums.DeliveryStatusOutForDelivery, false).
		Updates(map[string]any{"otp_digest": digest, "otp_expires_at": expiresAt, "updated_at": now})
	if res.Error != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "store otp")
	}
	if res.RowsAffected != 1 {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "delivery changed while issuing the code")
	}

	if err := s.notifier.SendDeliveryOTP(ctx, notifications.OTPMessage{
		ToAddress:    recipient.Email,
		ToName:       recipient.Name,
		TrackingCode: delivery.TrackingCode,
		Code:         code,
		ExpiresAt:    expiresAt,
	}); err != nil {
		s.logg.Error(s.logg.WithField(ctx, "delivery_id", delivery.ID.String()), "delivery.otp_send_failed", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "could not send the delivery code")
	}

	s.observe("issued")
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"delivery_id": delivery.ID.String(),
		"expires_at":  expiresAt,
	}), "delivery.otp_issued")
	return &OTPIssued{DeliveryID: delivery.ID, ExpiresAt: expiresAt}, nil
}

// VerifyOTP completes the delivery when the assigned driver presents the
// recipient's code. The delivery and its order are updated together.
func (s *service) VerifyOTP(ctx context.Context, actor auth.Actor, deliveryID uuid.UUID, input VerifyOTPInput) (*DeliveryDTO, error) {
	code := strings.TrimSpace(input.OTP)
	if len(code) != otpDigits {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "otp must be 6 digits")
	}
	delivery, err := s.deliveries.FindByID(ctx, deliveryID)
	if err != nil {
		return nil, err
	}
	if !isAssignedDriver(actor, delivery) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "only the assigned driver can confirm this delivery")
	}
	if delivery.OTPVerified {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery has already been confirmed")
	}
	if delivery.Status != enums.DeliveryStatusOutForDelivery {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery is not out for delivery").
			WithDetails(map[string]any{"status": delivery.Status})
	}
	if err := s.allow(ctx, "verify", delivery.ID, s.cfg.OTPVerifyLimit); err != nil {
		return nil, err
	}
	if delivery.OTPDigest == nil || delivery.OTPExpiresAt == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no delivery code has been issued")
	}

	now := s.now().UTC()
	if !now.Before(*delivery.OTPExpiresAt) {
		if err := s.deliveries.Update(ctx, delivery.ID, map[string]any{
			"otp_digest":     nil,
			"otp_expires_at": nil,
			"updated_at":     now,
		}); err != nil {
			s.logg.Error(s.logg.WithField(ctx, "delivery_id", delivery.ID.String()), "delivery.otp_clear_failed", err)
		}
		s.observe("expired")
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery code has expired, request a new one")
	}

	ok, err := security.VerifySecret(code, *delivery.OTPDigest)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify otp")
	}
	if !ok {
		s.observe("rejected")
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid delivery code")
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		res := tx.WithContext(ctx).Model(&models.Delivery{}).
			Where("id = ? AND status = ? AND otp_verified = ?", delivery.ID, enums.DeliveryStatusOutForDelivery, false).
			Updates(map[string]any{
				"status":             enums.DeliveryStatusDelivered,
				"otp_verified":       true,
				"otp_digest":         nil,
				"otp_expires_at":     nil,
				"actual_delivery_at": now,
				"updated_at":         now,
			})
		if res.Error != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "complete delivery")
		}
		if res.RowsAffected != 1 {
			return pkgerrors.New(pkgerrors.CodeConflict, "delivery was modified concurrently")
		}
		if err := s.mirrorOnOrder(ctx, tx, actor, delivery.OrderID, enums.DeliveryStatusDelivered, now, true); err != nil {
			return err
		}
		return s.emitCompleted(ctx, tx, actor, delivery, now)
	})
	if err != nil {
		return nil, err
	}

	s.observe("verified")
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"delivery_id": delivery.ID.String(),
		"order_id":    delivery.OrderID.String(),
	}), "delivery.otp_verified")
	return s.reload(ctx, delivery.ID)
}

// mirrorOnOrder moves the order along with its delivery. When strict is set
// an order that cannot follow aborts the unit of work.
func (s *service) mirrorOnOrder(ctx context.Context, tx *gorm.DB, actor auth.Actor, orderID uuid.UUID, status enums.DeliveryStatus, now time.Time, strict bool) error {
	target, from, ok := orderStatusFor(status)
	if !ok {
		return nil
	}
	orderRepo := s.orders.WithTx(tx)
	order, err := orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return pkgerrors.Passthrough(err, pkgerrors.CodeInternal, "load order for delivery")
	}
	if order.Status == target {
		return nil
	}

	paymentStatus := order.PaymentStatus
	fields := map[string]any{
		"status":         target,
		"status_history": order.StatusHistory.Append(target, "delivery "+string(status), &actor.UserID, now),
		"updated_at":     now,
	}
	if target == enums.OrderStatusDelivered {
		fields["delivered_at"] = now
		if order.PaymentMethod == enums.PaymentMethodCashOnDelivery {
			fields["payment_status"] = enums.PaymentStatusPaid
			paymentStatus = enums.PaymentStatusPaid
		}
	}
	won, err := orderRepo.UpdateFromStatus(ctx, order.ID, from, fields)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mirror delivery onto order")
	}
	if !won {
		if strict {
			return pkgerrors.New(pkgerrors.CodeConflict, "order cannot follow the delivery").
				WithDetails(map[string]any{"orderStatus": order.Status})
		}
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"order_id":     order.ID.String(),
			"order_status": order.Status,
		}), "delivery.order_mirror_skipped")
		return nil
	}

	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderStatusChanged,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         &outbox.ActorRef{UserID: actor.UserID, Role: actor.Role},
		Data: payloads.OrderStatusChangedEvent{
			OrderID:       order.ID,
			UserID:        order.UserID,
			From:          order.Status,
			To:            target,
			PaymentStatus: paymentStatus,
		},
	})
}

func (s *service) emitCompleted(ctx context.Context, tx *gorm.DB, actor auth.Actor, delivery *models.Delivery, at time.Time) error {
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventDeliveryCompleted,
		AggregateType: enums.AggregateDelivery,
		AggregateID:   delivery.ID,
		Actor:         &outbox.ActorRef{UserID: actor.UserID, Role: actor.Role},
		Data: payloads.DeliveryCompletedEvent{
			DeliveryID:  delivery.ID,
			OrderID:     delivery.OrderID,
			DriverID:    delivery.DriverID,
			DeliveredAt: at,
		},
	})
}

func (s *service) UpdateLocation(ctx context.Context, actor auth.Actor, deliveryID uuid.UUID, input LocationInput) (*DeliveryDTO, error) {
	if input.Lat == nil || input.Lng == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "lat and lng are required")
	}
	lat, lng := *input.Lat, *input.Lng
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coordinates out of range").
			WithDetails(map[string]any{"lat": lat, "lng": lng})
	}
	delivery, err := s.deliveries.FindByID(ctx, deliveryID)
	if err != nil {
		return nil, err
	}
	if !isAssignedDriver(actor, delivery) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the assigned driver can report location")
	}
	if !delivery.Status.AcceptsLocation() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery is not in transit").
			WithDetails(map[string]any{"status": delivery.Status})
	}
	now := s.now().UTC()
	if err := s.deliveries.Update(ctx, delivery.ID, map[string]any{
		"current_lat":         lat,
		"current_lng":         lng,
		"location_updated_at": now,
		"updated_at":          now,
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update location")
	}
	return s.reload(ctx, delivery.ID)
}

// AdminUpdate assigns a driver and/or moves the delivery through the
// transition table. Assigning a driver to an unassigned delivery implies
// assigned when no status is given.
func (s *service) AdminUpdate(ctx context.Context, actor auth.Actor, deliveryID uuid.UUID, input AdminUpdateInput) (*DeliveryDTO, error) {
	delivery, err := s.deliveries.FindByID(ctx, deliveryID)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	fields := map[string]any{"updated_at": now}
	driverID := delivery.DriverID

	if input.DriverID != nil {
		if _, err := s.users.RequireRole(ctx, *input.DriverID, enums.RoleDriver); err != nil {
			return nil, err
		}
		fields["driver_id"] = *input.DriverID
		driverID = input.DriverID
	}

	target := delivery.Status
	if raw := strings.TrimSpace(input.Status); raw != "" {
		parsed, err := enums.ParseDeliveryStatus(raw)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid delivery status")
		}
		target = parsed
	} else if input.DriverID != nil && delivery.Status == enums.DeliveryStatusPendingAssignment {
		target = enums.DeliveryStatusAssigned
	}

	if target != delivery.Status {
		if err := validateTransition(delivery.Status, target); err != nil {
			return nil, err
		}
		if driverID == nil && (target == enums.DeliveryStatusAssigned || target == enums.DeliveryStatusOutForDelivery) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "assign a driver first")
		}
		fields["status"] = target
		switch target {
		case enums.DeliveryStatusDelivered:
			fields["actual_delivery_at"] = now
		case enums.DeliveryStatusPendingAssignment:
			fields["driver_id"] = nil
		case enums.DeliveryStatusOutForDelivery:
			// a retry after failed_delivery starts a fresh handshake
			fields["otp_digest"] = nil
			fields["otp_expires_at"] = nil
		}
	}
	if input.Notes != nil {
		fields["notes"] = strings.TrimSpace(*input.Notes)
	}
	if input.ProofURL != nil {
		fields["proof_url"] = strings.TrimSpace(*input.ProofURL)
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		res := tx.WithContext(ctx).Model(&models.Delivery{}).
			Where("id = ? AND status = ?", delivery.ID, delivery.Status).
			Updates(fields)
		if res.Error != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "update delivery")
		}
		if res.RowsAffected != 1 {
			return pkgerrors.New(pkgerrors.CodeConflict, "delivery was modified concurrently")
		}
		if target == delivery.Status {
			return nil
		}
		if err := s.mirrorOnOrder(ctx, tx, actor, delivery.OrderID, target, now, false); err != nil {
			return err
		}
		if target == enums.DeliveryStatusDelivered {
			delivery.DriverID = driverID
			return s.emitCompleted(ctx, tx, actor, delivery, now)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"delivery_id": delivery.ID.String(),
		"from":        delivery.Status,
		"to":          target,
	}), "delivery.updated")
	return s.reload(ctx, delivery.ID)
}

func (s *service) reload(ctx context.Context, id uuid.UUID) (*DeliveryDTO, error) {
	fresh, err := s.deliveries.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := FromModel(*fresh)
	return &dto, nil
}

func (s *service) observe(result string) {
	if s.metrics != nil {
		s.metrics.DeliveryOTP(result)
	}
}
