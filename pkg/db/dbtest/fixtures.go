package dbtest

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/quickcart-labs/quickcart-backend/pkg/db/models"
	"github.com/quickcart-labs/quickcart-backend/pkg/enums"
	"github.com/quickcart-labs/quickcart-backend/pkg/types"
)

// MustCreateUser inserts a user with the given role.
func MustCreateUser(t testing.TB, conn *gorm.DB, role enums.UserRole) *models.User {
	t.Helper()
	user := &models.User{
		Email: fmt.Sprintf("qc_test_%s@example.com", uuid.NewString()),
		Name:  "Test " + string(role),
		Role:  role,
	}
	if err := conn.Create(user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

// MustCreateProduct inserts an active product priced at price with stock units.
// Mutators run before the insert.
func MustCreateProduct(t testing.TB, conn *gorm.DB, price string, stock int, mutators ...func(*models.Product)) *models.Product {
	t.Helper()
	id := uuid.New()
	product := &models.Product{
		ID:       id,
		Slug:     "product-" + id.String()[:8],
		Title:    "Product " + id.String()[:8],
		Category: "grocery",
		Price:    decimal.RequireFromString(price),
		Stock:    stock,
		IsActive: true,
	}
	for _, mutate := range mutators {
		mutate(product)
	}
	if err := conn.Create(product).Error; err != nil {
		t.Fatalf("create product: %v", err)
	}
	return product
}

// StockOf reads the current stock counter.
func StockOf(t testing.TB, conn *gorm.DB, id uuid.UUID) int {
	t.Helper()
	var product models.Product
	if err := conn.Select("stock").Where("id = ?", id).First(&product).Error; err != nil {
		t.Fatalf("load product stock: %v", err)
	}
	return product.Stock
}

// OrderLine is one product and quantity for MustCreateOrder.
type OrderLine struct {
	Product  *models.Product
	Quantity int
}

// TestAddress is a complete shipping address.
func TestAddress() types.Address {
	return types.Address{
		FullName:   "Asha Rao",
		Phone:      "+919800000000",
		Line1:      "12 MG Road",
		City:       "Bengaluru",
		State:      "KA",
		PostalCode: "560001",
		Country:    "IN",
	}
}

// MustCreateOrder inserts an order snapshotting lines at their effective
// price. Stock is not touched. Mutators run before the insert.
func MustCreateOrder(t testing.TB, conn *gorm.DB, userID uuid.UUID, method enums.PaymentMethod, status enums.OrderStatus, lines []OrderLine, mutators ...func(*models.Order)) *models.Order {
	t.Helper()
	subtotal := decimal.Zero
	items := make([]models.OrderItem, 0, len(lines))
	for _, line := range lines {
		unit := line.Product.EffectivePrice()
		total := unit.Mul(decimal.NewFromInt(int64(line.Quantity)))
		subtotal = subtotal.Add(total)
		items = append(items, models.OrderItem{
			ProductID:   line.Product.ID,
			ProductName: line.Product.Title,
			ProductSlug: line.Product.Slug,
			UnitPrice:   unit,
			Quantity:    line.Quantity,
			LineTotal:   total,
		})
	}
	now := time.Now().UTC()
	order := &models.Order{
		UserID:          userID,
		Items:           items,
		Subtotal:        subtotal,
		ShippingFee:     decimal.Zero,
		HandlingFee:     decimal.Zero,
		GrandTotal:      subtotal,
		Currency:        "INR",
		ShippingAddress: TestAddress(),
		PaymentMethod:   method,
		PaymentStatus:   enums.PaymentStatusPending,
		Status:          status,
		StatusHistory:   types.OrderStatusHistory{}.Append(status, "fixture", nil, now),
	}
	for _, mutate := range mutators {
		mutate(order)
	}
	if err := conn.Create(order).Error; err != nil {
		t.Fatalf("create order: %v", err)
	}
	return order
}

// MustCreatePayment inserts a gateway payment for order in status.
func MustCreatePayment(t testing.TB, conn *gorm.DB, order *models.Order, gatewayOrderID string, status enums.GatewayPaymentStatus, mutators ...func(*models.Payment)) *models.Payment {
	t.Helper()
	payment := &models.Payment{
		UserID:         order.UserID,
		OrderID:        order.ID,
		GatewayOrderID: gatewayOrderID,
		Amount:         order.GrandTotal.Mul(decimal.NewFromInt(100)).Round(0).IntPart(),
		Currency:       order.Currency,
		Receipt:        "rcpt_" + order.ID.String()[:8],
		Status:         status,
		Refunds:        types.RefundRecords{},
	}
	for _, mutate := range mutators {
		mutate(payment)
	}
	if err := conn.Create(payment).Error; err != nil {
		t.Fatalf("create payment: %v", err)
	}
	return payment
}

// MustCreateDelivery inserts a delivery for order in status.
func MustCreateDelivery(t testing.TB, conn *gorm.DB, order *models.Order, status enums.DeliveryStatus, mutators ...func(*models.Delivery)) *models.Delivery {
	t.Helper()
	delivery := &models.Delivery{
		OrderID:         order.ID,
		UserID:          order.UserID,
		Status:          status,
		TrackingCode:    "QCK-000000-" + strings.ToUpper(uuid.NewString()[:6]),
		DeliveryAddress: order.ShippingAddress,
	}
	for _, mutate := range mutators {
		mutate(delivery)
	}
	if err := conn.Create(delivery).Error; err != nil {
		t.Fatalf("create delivery: %v", err)
	}
	return delivery
}

// LoadOrder reads an order with its items.
func LoadOrder(t testing.TB, conn *gorm.DB, id uuid.UUID) *models.Order {
	t.Helper()
	var order models.Order
	if err := conn.Preload("Items").Where("id = ?", id).First(&order).Error; err != nil {
		t.Fatalf("load order: %v", err)
	}
	return &order
}

// CountEvents counts outbox rows of the given type.
func CountEvents(t testing.TB, conn *gorm.DB, eventType enums.OutboxEventType) int64 {
	t.Helper()
	var n int64
	if err := conn.Model(&models.OutboxEvent{}).Where("event_type = ?", eventType).Count(&n).Error; err != nil {
		t.Fatalf("count outbox events: %v", err)
	}
	return n
}
