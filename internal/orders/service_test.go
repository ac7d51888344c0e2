package orders_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/quickcart-labs/quickcart-backend/internal/deliveries"
	"github.com/quickcart-labs/quickcart-backend/internal/orders"
	"github.com/quickcart-labs/quickcart-backend/internal/products"
	"github.com/quickcart-labs/quickcart-backend/pkg/auth"
	"github.com/quickcart-labs/quickcart-backend/pkg/config"
	"github.com/quickcart-labs/quickcart-backend/pkg/db"
	"github.com/quickcart-labs/quickcart-backend/pkg/db/dbtest"
	"github.com/quickcart-labs/quickcart-backend/pkg/db/models"
	"github.com/quickcart-labs/quickcart-backend/pkg/enums"
	pkgerrors "github.com/quickcart-labs/quickcart-backend/pkg/errors"
	"github.com/quickcart-labs/quickcart-backend/pkg/logger"
	"github.com/quickcart-labs/quickcart-backend/pkg/outbox"
)

type fixture struct {
	db    *gorm.DB
	svc   orders.Service
	user  *models.User
	admin *models.User
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	conn := dbtest.Open(t)
	emitter := outbox.NewService(outbox.NewRepository(conn), logger.Nop())
	lifecycle := deliveries.NewLifecycle(config.DeliveryConfig{EstimatedETADays: 3, TrackingCodeRetry: 3}, emitter, logger.Nop())
	svc, err := orders.NewService(
		db.NewFromGorm(conn),
		orders.NewRepository(conn),
		products.NewRepository(conn),
		lifecycle,
		emitter,
		logger.Nop(),
		orders.WithDeliveryReader(deliveries.NewRepository(conn)),
	)
	require.NoError(t, err)
	return fixture{
		db:    conn,
		svc:   svc,
		user:  dbtest.MustCreateUser(t, conn, enums.RoleCustomer),
		admin: dbtest.MustCreateUser(t, conn, enums.RoleAdmin),
	}
}

func (f fixture) owner() auth.Actor {
	return auth.Actor{UserID: f.user.ID, Role: enums.RoleCustomer}
}

func (f fixture) adminActor() auth.Actor {
	return auth.Actor{UserID: f.admin.ID, Role: enums.RoleAdmin}
}

func TestCancelRestoresStockAndCancelsDelivery(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	product := dbtest.MustCreateProduct(t, f.db, "100", 5)
	order := dbtest.MustCreateOrder(t, f.db, f.user.ID, enums.PaymentMethodOnline, enums.OrderStatusConfirmed,
		[]dbtest.OrderLine{{Product: product, Quantity: 2}},
		func(o *models.Order) { o.PaymentStatus = enums.PaymentStatusPaid })
	dbtest.MustCreateDelivery(t, f.db, order, enums.DeliveryStatusPendingAssignment)

	dto, err := f.svc.Cancel(ctx, f.owner(), order.ID, orders.CancelInput{Reason: "changed my mind"})
	require.NoError(t, err)

	assert.Equal(t, enums.OrderStatusCancelled, dto.Status)
	assert.Equal(t, enums.PaymentStatusRefundPending, dto.PaymentStatus)
	assert.NotNil(t, dto.CancelledAt)
	require.NotNil(t, dto.Delivery)
	assert.Equal(t, enums.DeliveryStatusCancelled, dto.Delivery.Status)
	assert.Equal(t, 7, dbtest.StockOf(t, f.db, product.ID))

	stored := dbtest.LoadOrder(t, f.db, order.ID)
	last := stored.StatusHistory[len(stored.StatusHistory)-1]
	assert.Equal(t, enums.OrderStatusCancelled, last.Status)
	assert.Equal(t, "changed my mind", last.Note)
	assert.EqualValues(t, 1, dbtest.CountEvents(t, f.db, enums.EventOrderCancelled))
}

func TestCancelUnpaidOrderMarksPaymentCancelled(t *testing.T) {
	f := newFixture(t)
	product := dbtest.MustCreateProduct(t, f.db, "50", 1)
	order := dbtest.MustCreateOrder(t, f.db, f.user.ID, enums.PaymentMethodCashOnDelivery, enums.OrderStatusPending,
		[]dbtest.OrderLine{{Product: product, Quantity: 1}})

	dto, err := f.svc.Cancel(context.Background(), f.owner(), order.ID, orders.CancelInput{})
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusCancelled, dto.PaymentStatus)
	assert.Equal(t, 2, dbtest.StockOf(t, f.db, product.ID))
}

func TestCancelRejectsShippedOrder(t *testing.T) {
	f := newFixture(t)
	product := dbtest.MustCreateProduct(t, f.db, "100", 3)
	order := dbtest.MustCreateOrder(t, f.db, f.user.ID, enums.PaymentMethodOnline, enums.OrderStatusShipped,
		[]dbtest.OrderLine{{Product: product, Quantity: 1}})

	_, err := f.svc.Cancel(context.Background(), f.owner(), order.ID, orders.CancelInput{})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeCannotCancel), "got %v", err)
	assert.Equal(t, 3, dbtest.StockOf(t, f.db, product.ID))
	assert.Equal(t, enums.OrderStatusShipped, dbtest.LoadOrder(t, f.db, order.ID).Status)
}

func TestCancelOtherUsersOrderIsNotFound(t *testing.T) {
	f := newFixture(t)
	product := dbtest.MustCreateProduct(t, f.db, "100", 3)
	stranger := dbtest.MustCreateUser(t, f.db, enums.RoleCustomer)
	order := dbtest.MustCreateOrder(t, f.db, stranger.ID, enums.PaymentMethodOnline, enums.OrderStatusPending,
		[]dbtest.OrderLine{{Product: product, Quantity: 1}})

	_, err := f.svc.Cancel(context.Background(), f.owner(), order.ID, orders.CancelInput{})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "got %v", err)
}

func TestCancelSkipsMissingProduct(t *testing.T) {
	f := newFixture(t)
	kept := dbtest.MustCreateProduct(t, f.db, "10", 0)
	gone := dbtest.MustCreateProduct(t, f.db, "20", 0)
	order := dbtest.MustCreateOrder(t, f.db, f.user.ID, enums.PaymentMethodCashOnDelivery, enums.OrderStatusProcessing,
		[]dbtest.OrderLine{{Product: kept, Quantity: 2}, {Product: gone, Quantity: 1}})
	require.NoError(t, f.db.Where("id = ?", gone.ID).Delete(&models.Product{}).Error)

	dto, err := f.svc.Cancel(context.Background(), f.owner(), order.ID, orders.CancelInput{})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelled, dto.Status)
	assert.Equal(t, 2, dbtest.StockOf(t, f.db, kept.ID))
}

func TestGetEnforcesOwnership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	product := dbtest.MustCreateProduct(t, f.db, "100", 3)
	order := dbtest.MustCreateOrder(t, f.db, f.user.ID, enums.PaymentMethodOnline, enums.OrderStatusPending,
		[]dbtest.OrderLine{{Product: product, Quantity: 1}})

	dto, err := f.svc.Get(ctx, f.owner(), order.ID)
	require.NoError(t, err)
	assert.Len(t, dto.Items, 1)

	stranger := auth.Actor{UserID: dbtest.MustCreateUser(t, f.db, enums.RoleCustomer).ID, Role: enums.RoleCustomer}
	_, err = f.svc.Get(ctx, stranger, order.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden), "got %v", err)

	_, err = f.svc.Get(ctx, f.adminActor(), order.ID)
	assert.NoError(t, err)

	_, err = f.svc.Get(ctx, f.owner(), order.UserID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "got %v", err)
}

func TestAdminShipCreatesAssignedDelivery(t *testing.T) {
	f := newFixture(t)
	product := dbtest.MustCreateProduct(t, f.db, "100", 3)
	order := dbtest.MustCreateOrder(t, f.db, f.user.ID, enums.PaymentMethodOnline, enums.OrderStatusConfirmed,
		[]dbtest.OrderLine{{Product: product, Quantity: 1}})

	dto, err := f.svc.UpdateStatus(context.Background(), f.adminActor(), order.ID, orders.UpdateStatusInput{Status: "shipped"})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusShipped, dto.Status)
	require.NotNil(t, dto.Delivery)
	assert.Equal(t, enums.DeliveryStatusAssigned, dto.Delivery.Status)
	assert.Regexp(t, `^QCK-\d{6}-[0-9A-F]{6}$`, dto.Delivery.TrackingCode)
	assert.EqualValues(t, 1, dbtest.CountEvents(t, f.db, enums.EventDeliveryCreated))
	assert.EqualValues(t, 1, dbtest.CountEvents(t, f.db, enums.EventOrderStatusChanged))
}

func TestAdminDeliveredMarksCashOnDeliveryPaid(t *testing.T) {
	f := newFixture(t)
	product := dbtest.MustCreateProduct(t, f.db, "100", 3)
	order := dbtest.MustCreateOrder(t, f.db, f.user.ID, enums.PaymentMethodCashOnDelivery, enums.OrderStatusShipped,
		[]dbtest.OrderLine{{Product: product, Quantity: 1}})
	dbtest.MustCreateDelivery(t, f.db, order, enums.DeliveryStatusAssigned)

	dto, err := f.svc.UpdateStatus(context.Background(), f.adminActor(), order.ID, orders.UpdateStatusInput{Status: "delivered"})
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusPaid, dto.PaymentStatus)
	assert.NotNil(t, dto.DeliveredAt)
	require.NotNil(t, dto.Delivery)
	assert.Equal(t, enums.DeliveryStatusDelivered, dto.Delivery.Status)
	assert.NotNil(t, dto.Delivery.ActualDeliveryAt)
}

func TestAdminCancelUsesCancellationRules(t *testing.T) {
	f := newFixture(t)
	product := dbtest.MustCreateProduct(t, f.db, "100", 0)
	order := dbtest.MustCreateOrder(t, f.db, f.user.ID, enums.PaymentMethodOnline, enums.OrderStatusShipped,
		[]dbtest.OrderLine{{Product: product, Quantity: 4}},
		func(o *models.Order) { o.PaymentStatus = enums.PaymentStatusPaid })

	dto, err := f.svc.UpdateStatus(context.Background(), f.adminActor(), order.ID, orders.UpdateStatusInput{Status: "cancelled", Note: "warehouse damage"})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelled, dto.Status)
	assert.Equal(t, enums.PaymentStatusRefundPending, dto.PaymentStatus)
	assert.Equal(t, 4, dbtest.StockOf(t, f.db, product.ID))
}

func TestAdminRejectsInvalidTransitions(t *testing.T) {
	f := newFixture(t)
	product := dbtest.MustCreateProduct(t, f.db, "100", 3)
	order := dbtest.MustCreateOrder(t, f.db, f.user.ID, enums.PaymentMethodOnline, enums.OrderStatusPending,
		[]dbtest.OrderLine{{Product: product, Quantity: 1}})

	for _, target := range []string{"delivered", "pending", "refunded", "bogus"} {
		_, err := f.svc.UpdateStatus(context.Background(), f.adminActor(), order.ID, orders.UpdateStatusInput{Status: target})
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "%s: got %v", target, err)
	}
	assert.Equal(t, enums.OrderStatusPending, dbtest.LoadOrder(t, f.db, order.ID).Status)
}

func TestExpireStaleRestoresStock(t *testing.T) {
	f := newFixture(t)
	product := dbtest.MustCreateProduct(t, f.db, "100", 1)
	old := time.Now().UTC().Add(-2 * time.Hour)
	stale := dbtest.MustCreateOrder(t, f.db, f.user.ID, enums.PaymentMethodOnline, enums.OrderStatusPending,
		[]dbtest.OrderLine{{Product: product, Quantity: 3}},
		func(o *models.Order) { o.CreatedAt = old })
	payment := dbtest.MustCreatePayment(t, f.db, stale, "order_stale", enums.GatewayPaymentCreated)
	fresh := dbtest.MustCreateOrder(t, f.db, f.user.ID, enums.PaymentMethodOnline, enums.OrderStatusPending,
		[]dbtest.OrderLine{{Product: product, Quantity: 1}})

	n, err := f.svc.ExpireStale(context.Background(), time.Now().UTC().Add(-30*time.Minute), 10)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	expired := dbtest.LoadOrder(t, f.db, stale.ID)
	assert.Equal(t, enums.OrderStatusExpired, expired.Status)
	assert.Equal(t, enums.PaymentStatusFailed, expired.PaymentStatus)
	assert.Equal(t, enums.OrderStatusPending, dbtest.LoadOrder(t, f.db, fresh.ID).Status)
	assert.Equal(t, 4, dbtest.StockOf(t, f.db, product.ID))

	var stored models.Payment
	require.NoError(t, f.db.Where("id = ?", payment.ID).First(&stored).Error)
	assert.Equal(t, enums.GatewayPaymentFailed, stored.Status)
	assert.EqualValues(t, 1, dbtest.CountEvents(t, f.db, enums.EventOrderExpired))
}

func TestListFiltersAndPaginates(t *testing.T) {
	f := newFixture(t)
	product := dbtest.MustCreateProduct(t, f.db, "10", 10)
	lines := []dbtest.OrderLine{{Product: product, Quantity: 1}}
	for i := 0; i < 3; i++ {
		dbtest.MustCreateOrder(t, f.db, f.user.ID, enums.PaymentMethodOnline, enums.OrderStatusPending, lines)
	}
	dbtest.MustCreateOrder(t, f.db, f.user.ID, enums.PaymentMethodOnline, enums.OrderStatusDelivered, lines)
	other := dbtest.MustCreateUser(t, f.db, enums.RoleCustomer)
	dbtest.MustCreateOrder(t, f.db, other.ID, enums.PaymentMethodOnline, enums.OrderStatusPending, lines)

	page, err := f.svc.List(context.Background(), f.user.ID, orders.ListQuery{Page: 1, Limit: 2, Status: "pending"})
	require.NoError(t, err)
	assert.EqualValues(t, 3, page.Total)
	assert.Equal(t, 2, page.TotalPages)
	assert.Len(t, page.Items, 2)

	page, err = f.svc.List(context.Background(), f.user.ID, orders.ListQuery{Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 4, page.Total)
	assert.Len(t, page.Items, 2)

	_, err = f.svc.List(context.Background(), f.user.ID, orders.ListQuery{Status: "lost"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)
}
