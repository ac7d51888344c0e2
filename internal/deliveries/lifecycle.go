package deliveries

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/quickcart-labs/quickcart-backend/pkg/config"
	"github.com/quickcart-labs/quickcart-backend/pkg/db"
	"github.com/quickcart-labs/quickcart-backend/pkg/db/models"
	"github.com/quickcart-labs/quickcart-backend/pkg/enums"
	pkgerrors "github.com/quickcart-labs/quickcart-backend/pkg/errors"
	"github.com/quickcart-labs/quickcart-backend/pkg/logger"
	"github.com/quickcart-labs/quickcart-backend/pkg/outbox"
	"github.com/quickcart-labs/quickcart-backend/pkg/outbox/payloads"
)

const trackingCodeConstraint = "deliveries_tracking_code_key"

// orderToDelivery is the fixed mapping applied when an order status changes.
var orderToDelivery = map[enums.OrderStatus]enums.DeliveryStatus{
	enums.OrderStatusShipped:        enums.DeliveryStatusAssigned,
	enums.OrderStatusOutForDelivery: enums.DeliveryStatusOutForDelivery,
	enums.OrderStatusDelivered:      enums.DeliveryStatusDelivered,
	enums.OrderStatusCancelled:      enums.DeliveryStatusCancelled,
}

// DeliveryStatusFor maps an order status onto the delivery status it implies.
func DeliveryStatusFor(status enums.OrderStatus) (enums.DeliveryStatus, bool) {
	mapped, ok := orderToDelivery[status]
	return mapped, ok
}

// GenerateTrackingCode returns QCK-<last 6 digits of unix ms>-<6 upper hex>.
func GenerateTrackingCode(now time.Time) (string, error) {
	buf := make([]byte, 3)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return fmt.Sprintf("QCK-%06d-%s", now.UnixMilli()%1_000_000, strings.ToUpper(hex.EncodeToString(buf))), nil
}

// Lifecycle creates and synchronizes deliveries on behalf of order and payment
// flows. Every method takes the unit-of-work handle explicitly.
type Lifecycle struct {
	cfg     config.DeliveryConfig
	emitter outbox.Emitter
	logg    *logger.Logger
	now     func() time.Time
	codeGen func(time.Time) (string, error)
}

// NewLifecycle builds the lifecycle. emitter may be nil, in which case no
// delivery.created events are written.
func NewLifecycle(cfg config.DeliveryConfig, emitter outbox.Emitter, logg *logger.Logger) *Lifecycle {
	return &Lifecycle{cfg: cfg, emitter: emitter, logg: logg, now: time.Now, codeGen: GenerateTrackingCode}
}

// EnsureForOrder returns the order's delivery, creating it with status when
// none exists. created reports whether a new row was written.
func (l *Lifecycle) EnsureForOrder(ctx context.Context, tx *gorm.DB, order *models.Order, status enums.DeliveryStatus) (*models.Delivery, bool, error) {
	repo := NewRepository(tx)
	existing, err := repo.FindByOrder(ctx, order.ID)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	now := l.now().UTC()
	etaDays := l.cfg.EstimatedETADays
	if etaDays <= 0 {
		etaDays = 3
	}
	eta := now.AddDate(0, 0, etaDays)
	attempts := l.cfg.TrackingCodeRetry
	if attempts <= 0 {
		attempts = 3
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		code, err := l.codeGen(now)
		if err != nil {
			return nil, false, err
		}
		delivery := &models.Delivery{
			OrderID:             order.ID,
			UserID:              order.UserID,
			Status:              status,
			TrackingCode:        code,
			DeliveryAddress:     order.ShippingAddress,
			EstimatedDeliveryAt: &eta,
		}
		err = repo.Insert(ctx, delivery)
		if err == nil {
			if err := l.emitCreated(ctx, tx, delivery); err != nil {
				return nil, false, err
			}
			if l.logg != nil {
				fields := map[string]any{"order_id": order.ID.String(), "tracking_code": code, "delivery_status": status}
				l.logg.Info(l.logg.WithFields(ctx, fields), "delivery.created")
			}
			return delivery, true, nil
		}
		if db.IsUniqueViolation(err, "") {
			if isTrackingCollision(err) {
				continue
			}
			// lost a race with another writer for the same order
			if existing, findErr := repo.FindByOrder(ctx, order.ID); findErr == nil && existing != nil {
				return existing, false, nil
			}
		}
		return nil, false, err
	}
	return nil, false, pkgerrors.New(pkgerrors.CodeConflict, "could not allocate a unique tracking code")
}

// SyncStatus moves the order's delivery to status when one exists. It reports
// whether a delivery row was touched.
func (l *Lifecycle) SyncStatus(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, status enums.DeliveryStatus) (bool, error) {
	fields := map[string]any{"status": status, "updated_at": l.now().UTC()}
	if status == enums.DeliveryStatusDelivered {
		fields["actual_delivery_at"] = l.now().UTC()
	}
	res := tx.WithContext(ctx).Model(&models.Delivery{}).Where("order_id = ?", orderID).Updates(fields)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// SyncForOrderStatus applies the order-to-delivery status mapping. Order
// statuses without a mapping leave the delivery untouched.
func (l *Lifecycle) SyncForOrderStatus(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, status enums.OrderStatus) (bool, error) {
	mapped, ok := DeliveryStatusFor(status)
	if !ok {
		return false, nil
	}
	return l.SyncStatus(ctx, tx, orderID, mapped)
}

func (l *Lifecycle) emitCreated(ctx context.Context, tx *gorm.DB, delivery *models.Delivery) error {
	if l.emitter == nil {
		return nil
	}
	return l.emitter.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventDeliveryCreated,
		AggregateType: enums.AggregateDelivery,
		AggregateID:   delivery.ID,
		Data: payloads.DeliveryCreatedEvent{
			DeliveryID:   delivery.ID,
			OrderID:      delivery.OrderID,
			TrackingCode: delivery.TrackingCode,
			Status:       delivery.Status,
		},
	})
}

// isTrackingCollision distinguishes the tracking-code index from the order index.
func isTrackingCollision(err error) bool {
	if db.IsUniqueViolation(err, trackingCodeConstraint) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "tracking_code")
}
