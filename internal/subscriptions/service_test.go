package subscriptions

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/quickcart-labs/quickcart-backend/internal/products"
	"github.com/quickcart-labs/quickcart-backend/pkg/auth"
	"github.com/quickcart-labs/quickcart-backend/pkg/db"
	"github.com/quickcart-labs/quickcart-backend/pkg/db/dbtest"
	"github.com/quickcart-labs/quickcart-backend/pkg/db/models"
	"github.com/quickcart-labs/quickcart-backend/pkg/enums"
	pkgerrors "github.com/quickcart-labs/quickcart-backend/pkg/errors"
	"github.com/quickcart-labs/quickcart-backend/pkg/logger"
	"github.com/quickcart-labs/quickcart-backend/pkg/outbox"
)

// Wednesday morning.
var fixedNow = time.Date(2024, 5, 15, 9, 0, 0, 0, time.UTC)

type subFixture struct {
	db      *gorm.DB
	svc     *service
	user    *models.User
	product *models.Product
}

func newSubFixture(t *testing.T) subFixture {
	t.Helper()
	conn := dbtest.Open(t)
	svc, err := NewService(db.NewFromGorm(conn), NewRepository(conn), products.NewRepository(conn),
		outbox.NewService(outbox.NewRepository(conn), logger.Nop()), logger.Nop())
	require.NoError(t, err)
	impl := svc.(*service)
	impl.now = func() time.Time { return fixedNow }
	return subFixture{
		db:   conn,
		svc:  impl,
		user: dbtest.MustCreateUser(t, conn, enums.RoleCustomer),
		product: dbtest.MustCreateProduct(t, conn, "60", 20, func(p *models.Product) {
			p.AllowSubscription = true
		}),
	}
}

func (f subFixture) actor() auth.Actor {
	return auth.Actor{UserID: f.user.ID, Role: enums.RoleCustomer}
}

func TestCreateDefaultsToWeeklyMonday(t *testing.T) {
	f := newSubFixture(t)

	dto, err := f.svc.Create(context.Background(), f.actor(), CreateInput{ProductID: f.product.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, dto.Quantity)
	assert.Equal(t, enums.FrequencyWeekly, dto.Frequency)
	assert.Equal(t, enums.Monday, dto.DeliveryDay)
	assert.Equal(t, enums.SubscriptionActive, dto.Status)
	assert.Equal(t, time.Date(2024, 5, 20, 9, 0, 0, 0, time.UTC), dto.NextDeliveryDate)
	assert.True(t, dto.TotalCost.Equal(decimal.NewFromInt(60)))
	require.NotNil(t, dto.Product)
	assert.Equal(t, f.product.Slug, dto.Product.Slug)
}

func TestCreateRejectsIneligibleProducts(t *testing.T) {
	f := newSubFixture(t)
	plain := dbtest.MustCreateProduct(t, f.db, "10", 5)

	_, err := f.svc.Create(context.Background(), f.actor(), CreateInput{ProductID: plain.ID})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)

	_, err = f.svc.Create(context.Background(), f.actor(), CreateInput{ProductID: uuid.New()})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "got %v", err)

	_, err = f.svc.Create(context.Background(), f.actor(), CreateInput{ProductID: f.product.ID, Frequency: "hourly"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)

	_, err = f.svc.Create(context.Background(), f.actor(), CreateInput{ProductID: f.product.ID, DeliveryDay: "someday"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)
}

func TestUpdateRecomputesSchedule(t *testing.T) {
	f := newSubFixture(t)
	created, err := f.svc.Create(context.Background(), f.actor(), CreateInput{ProductID: f.product.ID, Quantity: 2})
	require.NoError(t, err)

	daily := "daily"
	qty := 3
	updated, err := f.svc.Update(context.Background(), f.actor(), created.ID, UpdateInput{Frequency: &daily, Quantity: &qty})
	require.NoError(t, err)
	assert.Equal(t, enums.FrequencyDaily, updated.Frequency)
	assert.Equal(t, fixedNow.AddDate(0, 0, 1), updated.NextDeliveryDate)
	assert.True(t, updated.TotalCost.Equal(decimal.NewFromInt(180)))

	paused := "paused"
	updated, err = f.svc.Update(context.Background(), f.actor(), created.ID, UpdateInput{Status: &paused})
	require.NoError(t, err)
	assert.Equal(t, enums.SubscriptionPaused, updated.Status)

	stranger := auth.Actor{UserID: uuid.New(), Role: enums.RoleCustomer}
	_, err = f.svc.Update(context.Background(), stranger, created.ID, UpdateInput{Status: &paused})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "got %v", err)
}

func TestCancelIsIdempotent(t *testing.T) {
	f := newSubFixture(t)
	created, err := f.svc.Create(context.Background(), f.actor(), CreateInput{ProductID: f.product.ID})
	require.NoError(t, err)

	first, err := f.svc.Cancel(context.Background(), f.actor(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.SubscriptionCancelled, first.Status)
	require.NotNil(t, first.CancelledAt)

	f.svc.now = func() time.Time { return fixedNow.Add(time.Hour) }
	second, err := f.svc.Cancel(context.Background(), f.actor(), created.ID)
	require.NoError(t, err)
	require.NotNil(t, second.CancelledAt)
	assert.True(t, first.CancelledAt.Equal(*second.CancelledAt))

	active := "active"
	_, err = f.svc.Update(context.Background(), f.actor(), created.ID, UpdateInput{Status: &active})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict), "got %v", err)
}

func TestListFiltersByStatusSortedByNextDelivery(t *testing.T) {
	f := newSubFixture(t)
	monthly, err := f.svc.Create(context.Background(), f.actor(), CreateInput{ProductID: f.product.ID, Frequency: "monthly"})
	require.NoError(t, err)
	daily, err := f.svc.Create(context.Background(), f.actor(), CreateInput{ProductID: f.product.ID, Frequency: "daily"})
	require.NoError(t, err)
	gone, err := f.svc.Create(context.Background(), f.actor(), CreateInput{ProductID: f.product.ID})
	require.NoError(t, err)
	_, err = f.svc.Cancel(context.Background(), f.actor(), gone.ID)
	require.NoError(t, err)

	page, err := f.svc.List(context.Background(), f.user.ID, ListQuery{})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, daily.ID, page.Items[0].ID)
	assert.Equal(t, monthly.ID, page.Items[1].ID)

	cancelled, err := f.svc.List(context.Background(), f.user.ID, ListQuery{Status: "cancelled"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, cancelled.Total)

	_, err = f.svc.List(context.Background(), f.user.ID, ListQuery{Status: "expired"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)
}

func TestAdvanceDueRollsForwardAndEmits(t *testing.T) {
	f := newSubFixture(t)
	dueSub, err := f.svc.Create(context.Background(), f.actor(), CreateInput{ProductID: f.product.ID, Frequency: "daily"})
	require.NoError(t, err)
	_, err = f.svc.Create(context.Background(), f.actor(), CreateInput{ProductID: f.product.ID, Frequency: "monthly"})
	require.NoError(t, err)

	later := fixedNow.AddDate(0, 0, 3)
	advanced, err := f.svc.AdvanceDue(context.Background(), later, 50)
	require.NoError(t, err)
	assert.Equal(t, 1, advanced)
	assert.EqualValues(t, 1, dbtest.CountEvents(t, f.db, enums.EventSubscriptionDue))

	var stored models.Subscription
	require.NoError(t, f.db.Where("id = ?", dueSub.ID).First(&stored).Error)
	assert.True(t, stored.NextDeliveryDate.After(later))
	assert.True(t, stored.NextDeliveryDate.Equal(fixedNow.AddDate(0, 0, 4)), "got %s", stored.NextDeliveryDate)
	require.NotNil(t, stored.LastDueAt)

	again, err := f.svc.AdvanceDue(context.Background(), later, 50)
	require.NoError(t, err)
	assert.Zero(t, again)
}
