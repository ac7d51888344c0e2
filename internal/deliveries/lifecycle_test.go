package deliveries

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quickcart-labs/quickcart-backend/pkg/config"
	"github.com/quickcart-labs/quickcart-backend/pkg/db/dbtest"
	"github.com/quickcart-labs/quickcart-backend/pkg/db/models"
	"github.com/quickcart-labs/quickcart-backend/pkg/enums"
	pkgerrors "github.com/quickcart-labs/quickcart-backend/pkg/errors"
	"github.com/quickcart-labs/quickcart-backend/pkg/logger"
	"github.com/quickcart-labs/quickcart-backend/pkg/outbox"
)

var trackingCodePattern = regexp.MustCompile(`^QCK-\d{6}-[0-9A-F]{6}$`)

func TestGenerateTrackingCode(t *testing.T) {
	t.Parallel()
	now := time.UnixMilli(1_700_000_123_456)

	code, err := GenerateTrackingCode(now)
	require.NoError(t, err)
	assert.Regexp(t, trackingCodePattern, code)
	assert.Equal(t, "QCK-123456-", code[:11])
}

func TestDeliveryStatusFor(t *testing.T) {
	t.Parallel()
	cases := map[enums.OrderStatus]enums.DeliveryStatus{
		enums.OrderStatusShipped:        enums.DeliveryStatusAssigned,
		enums.OrderStatusOutForDelivery: enums.DeliveryStatusOutForDelivery,
		enums.OrderStatusDelivered:      enums.DeliveryStatusDelivered,
		enums.OrderStatusCancelled:      enums.DeliveryStatusCancelled,
	}
	for order, want := range cases {
		got, ok := DeliveryStatusFor(order)
		if !ok || got != want {
			t.Fatalf("DeliveryStatusFor(%s) = %s, %v; want %s", order, got, ok, want)
		}
	}
	if _, ok := DeliveryStatusFor(enums.OrderStatusProcessing); ok {
		t.Fatal("processing should not map onto a delivery status")
	}
}

func TestEnsureForOrderIsIdempotent(t *testing.T) {
	conn := dbtest.Open(t)
	lifecycle := NewLifecycle(config.DeliveryConfig{EstimatedETADays: 3}, outbox.NewService(outbox.NewRepository(conn), logger.Nop()), logger.Nop())
	user := dbtest.MustCreateUser(t, conn, enums.RoleCustomer)
	product := dbtest.MustCreateProduct(t, conn, "10", 1)
	order := dbtest.MustCreateOrder(t, conn, user.ID, enums.PaymentMethodOnline, enums.OrderStatusConfirmed,
		[]dbtest.OrderLine{{Product: product, Quantity: 1}})

	first, created, err := lifecycle.EnsureForOrder(context.Background(), conn, order, enums.DeliveryStatusPendingAssignment)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Regexp(t, trackingCodePattern, first.TrackingCode)
	require.NotNil(t, first.EstimatedDeliveryAt)
	assert.WithinDuration(t, time.Now().AddDate(0, 0, 3), *first.EstimatedDeliveryAt, time.Minute)
	assert.Equal(t, order.ShippingAddress, first.DeliveryAddress)

	second, created, err := lifecycle.EnsureForOrder(context.Background(), conn, order, enums.DeliveryStatusAssigned)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, enums.DeliveryStatusPendingAssignment, second.Status)
	assert.EqualValues(t, 1, dbtest.CountEvents(t, conn, enums.EventDeliveryCreated))
}

func TestEnsureForOrderRetriesTrackingCollision(t *testing.T) {
	conn := dbtest.Open(t)
	lifecycle := NewLifecycle(config.DeliveryConfig{}, nil, logger.Nop())
	user := dbtest.MustCreateUser(t, conn, enums.RoleCustomer)
	product := dbtest.MustCreateProduct(t, conn, "10", 1)
	taken := dbtest.MustCreateOrder(t, conn, user.ID, enums.PaymentMethodOnline, enums.OrderStatusConfirmed,
		[]dbtest.OrderLine{{Product: product, Quantity: 1}})
	dbtest.MustCreateDelivery(t, conn, taken, enums.DeliveryStatusAssigned, func(d *models.Delivery) {
		d.TrackingCode = "QCK-000001-AAAAAA"
	})
	order := dbtest.MustCreateOrder(t, conn, user.ID, enums.PaymentMethodOnline, enums.OrderStatusConfirmed,
		[]dbtest.OrderLine{{Product: product, Quantity: 1}})

	codes := []string{"QCK-000001-AAAAAA", "QCK-000001-BBBBBB"}
	lifecycle.codeGen = func(time.Time) (string, error) {
		code := codes[0]
		codes = codes[1:]
		return code, nil
	}

	delivery, created, err := lifecycle.EnsureForOrder(context.Background(), conn, order, enums.DeliveryStatusPendingAssignment)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "QCK-000001-BBBBBB", delivery.TrackingCode)
}

func TestEnsureForOrderGivesUpAfterRetries(t *testing.T) {
	conn := dbtest.Open(t)
	lifecycle := NewLifecycle(config.DeliveryConfig{TrackingCodeRetry: 2}, nil, logger.Nop())
	user := dbtest.MustCreateUser(t, conn, enums.RoleCustomer)
	product := dbtest.MustCreateProduct(t, conn, "10", 1)
	taken := dbtest.MustCreateOrder(t, conn, user.ID, enums.PaymentMethodOnline, enums.OrderStatusConfirmed,
		[]dbtest.OrderLine{{Product: product, Quantity: 1}})
	dbtest.MustCreateDelivery(t, conn, taken, enums.DeliveryStatusAssigned, func(d *models.Delivery) {
		d.TrackingCode = "QCK-000001-AAAAAA"
	})
	order := dbtest.MustCreateOrder(t, conn, user.ID, enums.PaymentMethodOnline, enums.OrderStatusConfirmed,
		[]dbtest.OrderLine{{Product: product, Quantity: 1}})
	lifecycle.codeGen = func(time.Time) (string, error) { return "QCK-000001-AAAAAA", nil }

	_, _, err := lifecycle.EnsureForOrder(context.Background(), conn, order, enums.DeliveryStatusPendingAssignment)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict), "got %v", err)
}

func TestSyncForOrderStatus(t *testing.T) {
	conn := dbtest.Open(t)
	lifecycle := NewLifecycle(config.DeliveryConfig{}, nil, logger.Nop())
	user := dbtest.MustCreateUser(t, conn, enums.RoleCustomer)
	product := dbtest.MustCreateProduct(t, conn, "10", 1)
	order := dbtest.MustCreateOrder(t, conn, user.ID, enums.PaymentMethodOnline, enums.OrderStatusShipped,
		[]dbtest.OrderLine{{Product: product, Quantity: 1}})
	delivery := dbtest.MustCreateDelivery(t, conn, order, enums.DeliveryStatusAssigned)

	touched, err := lifecycle.SyncForOrderStatus(context.Background(), conn, order.ID, enums.OrderStatusProcessing)
	require.NoError(t, err)
	assert.False(t, touched)

	touched, err = lifecycle.SyncForOrderStatus(context.Background(), conn, order.ID, enums.OrderStatusDelivered)
	require.NoError(t, err)
	assert.True(t, touched)

	var stored models.Delivery
	require.NoError(t, conn.Where("id = ?", delivery.ID).First(&stored).Error)
	assert.Equal(t, enums.DeliveryStatusDelivered, stored.Status)
	assert.NotNil(t, stored.ActualDeliveryAt)
}

func TestDeliveryTransitions(t *testing.T) {
	t.Parallel()
	assert.True(t, CanTransition(enums.DeliveryStatusAssigned, enums.DeliveryStatusOutForDelivery))
	assert.True(t, CanTransition(enums.DeliveryStatusFailed, enums.DeliveryStatusOutForDelivery))
	assert.False(t, CanTransition(enums.DeliveryStatusDelivered, enums.DeliveryStatusCancelled))
	assert.False(t, CanTransition(enums.DeliveryStatusPendingAssignment, enums.DeliveryStatusDelivered))

	err := validateTransition(enums.DeliveryStatusCancelled, enums.DeliveryStatusAssigned)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
