package checkout

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/quickcart-labs/quickcart-backend/internal/cart"
	"github.com/quickcart-labs/quickcart-backend/internal/orders"
	"github.com/quickcart-labs/quickcart-backend/internal/products"
	"github.com/quickcart-labs/quickcart-backend/internal/uow"
	"github.com/quickcart-labs/quickcart-backend/pkg/auth"
	pkgcheckout "github.com/quickcart-labs/quickcart-backend/pkg/checkout"
	"github.com/quickcart-labs/quickcart-backend/pkg/config"
	"github.com/quickcart-labs/quickcart-backend/pkg/db/models"
	"github.com/quickcart-labs/quickcart-backend/pkg/enums"
	pkgerrors "github.com/quickcart-labs/quickcart-backend/pkg/errors"
	"github.com/quickcart-labs/quickcart-backend/pkg/logger"
	"github.com/quickcart-labs/quickcart-backend/pkg/outbox"
	"github.com/quickcart-labs/quickcart-backend/pkg/outbox/payloads"
	"github.com/quickcart-labs/quickcart-backend/pkg/types"
)

// Service turns a user's cart into an order.
type Service interface {
	PlaceOrder(ctx context.Context, actor auth.Actor, input PlaceOrderInput) (*PlaceOrderResult, error)
}

type paymentInitiator interface {
	Initiate(ctx context.Context, tx *gorm.DB, order *models.Order) (*models.Payment, error)
	KeyID() string
}

type cartValidator interface {
	Validate(ctx context.Context, userID uuid.UUID) (*cart.ValidationResult, error)
}

type cartClearer interface {
	ClearForUser(ctx context.Context, userID uuid.UUID) error
}

type checkoutMetrics interface {
	OrderPlaced(paymentMethod string)
	CheckoutFailed(code string)
}

type ServiceParams struct {
	Runner   uow.Runner
	Engine   cartValidator
	Carts    cartClearer
	Catalog  *products.Repository
	Orders   *orders.Repository
	Payments paymentInitiator
	Outbox   outbox.Emitter
	Metrics  checkoutMetrics
	Config   config.CheckoutConfig
	Logger   *logger.Logger
}

type service struct {
	runner   uow.Runner
	engine   cartValidator
	carts    cartClearer
	catalog  *products.Repository
	orders   *orders.Repository
	payments paymentInitiator
	outbox   outbox.Emitter
	metrics  checkoutMetrics
	cfg      config.CheckoutConfig
	logg     *logger.Logger
	now      func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Runner == nil {
		return nil, fmt.Errorf("unit of work runner required")
	}
	if params.Engine == nil {
		return nil, fmt.Errorf("cart validation engine required")
	}
	if params.Carts == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		runner:   params.Runner,
		engine:   params.Engine,
		carts:    params.Carts,
		catalog:  params.Catalog,
		orders:   params.Orders,
		payments: params.Payments,
		outbox:   params.Outbox,
		metrics:  params.Metrics,
		cfg:      params.Config,
		logg:     logg,
		now:      time.Now,
	}, nil
}

// PlaceOrder validates the cart, prices it and writes the order, the gateway
// payment for online orders, and the stock decrements as one unit of work.
// The cart is cleared afterwards on a best-effort basis.
func (s *service) PlaceOrder(ctx context.Context, actor auth.Actor, input PlaceOrderInput) (*PlaceOrderResult, error) {
	result, err := s.placeOrder(ctx, actor, input)
	if err != nil {
		s.observeFailure(ctx, actor, err)
		return nil, err
	}
	return result, nil
}

func (s *service) placeOrder(ctx context.Context, actor auth.Actor, input PlaceOrderInput) (*PlaceOrderResult, error) {
	if input.ShippingAddress == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shippingAddress is required")
	}
	if err := input.ShippingAddress.Validate(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid shipping address")
	}
	address := input.ShippingAddress.Normalized()
	method, err := enums.ParsePaymentMethod(input.PaymentMethod)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid paymentMethod")
	}
	if method == enums.PaymentMethodOnline && s.payments == nil {
		return nil, pkgerrors.New(pkgerrors.CodePaymentInitiation, "online payments are not configured")
	}

	validation, err := s.engine.Validate(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	if validation.HasStockIssues() {
		return nil, stockIssueError(validation.Issues)
	}
	if len(validation.ValidItems) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeEmptyCart, "cart is empty").
			WithDetails(map[string]any{"issues": validation.Issues})
	}

	var (
		order   *models.Order
		payment *models.Payment
	)
	err = s.runner.Do(ctx, func(ctx context.Context, scope uow.Scope) error {
		tx := scope.DB()
		catalog := s.catalog.WithTx(tx)
		orderRepo := s.orders.WithTx(tx)

		current, err := s.recheckStock(ctx, catalog, validation.ValidItems)
		if err != nil {
			return err
		}

		order = s.buildOrder(actor.UserID, address, method, input.Notes, validation.ValidItems, current)
		if err := orderRepo.Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create order")
		}
		orderID := order.ID
		scope.Compensate("delete_order", func(ctx context.Context) error {
			return s.orders.Delete(ctx, orderID)
		})

		if method == enums.PaymentMethodOnline {
			payment, err = s.payments.Initiate(ctx, tx, order)
			if err != nil {
				return err
			}
			paymentID, gatewayOrderID := payment.ID, payment.GatewayOrderID
			scope.Compensate("discard_payment", func(ctx context.Context) error {
				return s.orders.DB(ctx).Where("id = ?", paymentID).Delete(&models.Payment{}).Error
			})
			if err := orderRepo.Update(ctx, order.ID, map[string]any{"gateway_order_id": gatewayOrderID}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "attach gateway order")
			}
			order.GatewayOrderID = &gatewayOrderID
		}

		if err := s.decrementStock(ctx, scope, catalog, order); err != nil {
			return err
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: actor.UserID, Role: actor.Role},
			Data: payloads.OrderCreatedEvent{
				OrderID:        order.ID,
				UserID:         order.UserID,
				PaymentMethod:  order.PaymentMethod,
				Status:         order.Status,
				GrandTotal:     order.GrandTotal.StringFixed(2),
				Currency:       order.Currency,
				ItemCount:      len(order.Items),
				GatewayOrderID: order.GatewayOrderID,
			},
		})
	})
	if err != nil {
		if payment != nil {
			s.recordAbandonedPayment(ctx, actor, order, payment, err)
		}
		return nil, err
	}

	if err := s.carts.ClearForUser(ctx, actor.UserID); err != nil {
		s.logg.Error(s.logg.WithField(ctx, "order_id", order.ID.String()), "checkout.cart_clear_failed", err)
	}
	if s.metrics != nil {
		s.metrics.OrderPlaced(string(method))
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"order_id":       order.ID.String(),
		"user_id":        actor.UserID.String(),
		"payment_method": method,
		"grand_total":    order.GrandTotal.StringFixed(2),
		"items":          len(order.Items),
		"uow_mode":       s.runner.Mode(),
	}), "order.created")

	res := &PlaceOrderResult{
		OrderID:    order.ID,
		Order:      orders.FromModel(*order),
		CartIssues: validation.Issues,
	}
	if payment != nil {
		res.PaymentRequired = true
		res.PaymentInfo = &PaymentInfo{
			KeyID:          s.payments.KeyID(),
			GatewayOrderID: payment.GatewayOrderID,
			Amount:         payment.Amount,
			Currency:       payment.Currency,
			Receipt:        payment.Receipt,
		}
	}
	return res, nil
}

// recheckStock reads the catalog again inside the unit of work so a sale that
// landed after cart validation is caught before anything is written.
func (s *service) recheckStock(ctx context.Context, catalog *products.Repository, items []cart.ValidItem) (map[uuid.UUID]models.Product, error) {
	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.Product.ID)
	}
	current, err := catalog.FindByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load products")
	}

	checks := make([]pkgcheckout.StockCheckInput, 0, len(items))
	for _, item := range items {
		available := 0
		if product, ok := current[item.Product.ID]; ok && product.IsActive {
			available = product.Stock
		}
		checks = append(checks, pkgcheckout.StockCheckInput{
			ProductID:   item.Product.ID,
			ProductName: item.Product.Title,
			Requested:   item.Item.Quantity,
			Available:   available,
		})
	}
	if err := pkgcheckout.ValidateStock(checks); err != nil {
		return nil, err
	}
	return current, nil
}

func (s *service) buildOrder(userID uuid.UUID, address types.Address, method enums.PaymentMethod, notes *string, items []cart.ValidItem, current map[uuid.UUID]models.Product) *models.Order {
	now := s.now().UTC()
	subtotal := decimal.Zero
	lines := make([]models.OrderItem, 0, len(items))
	for _, item := range items {
		product := item.Product
		if fresh, ok := current[product.ID]; ok {
			product = fresh
		}
		price := item.Item.Price
		lineTotal := price.Mul(decimal.NewFromInt(int64(item.Item.Quantity)))
		subtotal = subtotal.Add(lineTotal)
		lines = append(lines, models.OrderItem{
			ProductID:   product.ID,
			ProductName: product.Title,
			ProductSlug: product.Slug,
			SKU:         product.SKU,
			ImageURL:    product.ImageURL,
			Variation:   item.Item.Variation,
			UnitPrice:   price,
			Quantity:    item.Item.Quantity,
			LineTotal:   lineTotal,
		})
	}
	totals := pkgcheckout.ComputeTotals(subtotal, s.cfg)

	status := enums.OrderStatusPending
	history := types.OrderStatusHistory{}.Append(enums.OrderStatusPending, "order placed", &userID, now)
	if method == enums.PaymentMethodCashOnDelivery {
		status = enums.OrderStatusConfirmed
		history = history.Append(enums.OrderStatusConfirmed, "cash on delivery", &userID, now)
	}
	if notes != nil {
		trimmed := strings.TrimSpace(*notes)
		if trimmed == "" {
			notes = nil
		} else {
			notes = &trimmed
		}
	}

	return &models.Order{
		ID:              uuid.New(),
		UserID:          userID,
		Items:           lines,
		Subtotal:        totals.Subtotal,
		ShippingFee:     totals.Shipping,
		HandlingFee:     totals.Handling,
		GrandTotal:      totals.Grand,
		Currency:        s.cfg.Currency,
		ShippingAddress: address,
		PaymentMethod:   method,
		PaymentStatus:   enums.PaymentStatusPending,
		Status:          status,
		StatusHistory:   history,
		Notes:           notes,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// decrementStock takes every line atomically. Each successful decrement
// registers its own restore so a compensating run gives back exactly what was
// taken.
func (s *service) decrementStock(ctx context.Context, scope uow.Scope, catalog *products.Repository, order *models.Order) error {
	for _, item := range order.Items {
		productID, ok, err := catalog.DecrementWithFallback(ctx, item.ProductID, item.ProductSlug, item.Quantity)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeStockUpdate, err, "decrement stock")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeStockUpdate, fmt.Sprintf("could not reserve stock for %q", item.ProductName)).
				WithDetails(map[string]any{"productId": item.ProductID, "requested": item.Quantity})
		}
		qty := item.Quantity
		scope.Compensate("restore_stock:"+productID.String(), func(ctx context.Context) error {
			restored, err := s.catalog.Increment(ctx, productID, qty)
			if err != nil {
				return err
			}
			if !restored {
				s.logg.Warn(s.logg.WithField(ctx, "product_id", productID.String()), "stock.compensation_skipped")
			}
			return nil
		})
	}
	return nil
}

// recordAbandonedPayment writes a payment.abandoned event outside the failed
// unit of work so the orphaned gateway order can be reconciled.
func (s *service) recordAbandonedPayment(ctx context.Context, actor auth.Actor, order *models.Order, payment *models.Payment, cause error) {
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"order_id":         order.ID.String(),
		"gateway_order_id": payment.GatewayOrderID,
	})
	reason := cause.Error()
	if typed := pkgerrors.As(cause); typed != nil {
		reason = string(typed.Code())
	}
	err := s.outbox.Emit(ctx, s.orders.DB(ctx), outbox.DomainEvent{
		EventType:     enums.EventPaymentAbandoned,
		AggregateType: enums.AggregatePayment,
		AggregateID:   payment.ID,
		Actor:         &outbox.ActorRef{UserID: actor.UserID, Role: actor.Role},
		Data: payloads.PaymentAbandonedEvent{
			OrderID:        order.ID,
			UserID:         order.UserID,
			GatewayOrderID: payment.GatewayOrderID,
			Amount:         payment.Amount,
			Currency:       payment.Currency,
			Reason:         reason,
		},
	})
	if err != nil {
		s.logg.Error(logCtx, "checkout.gateway_order_unrecorded", err)
		return
	}
	s.logg.Warn(logCtx, "checkout.gateway_order_abandoned")
}

// stockIssueError reports what the caller asked for against what is left,
// using the quantities from before the cart was clamped.
func stockIssueError(issues []cart.Issue) error {
	var shortfalls []pkgcheckout.StockShortfall
	for _, issue := range issues {
		if issue.Type != enums.CartIssueOutOfStock && issue.Type != enums.CartIssueInsufficientStock {
			continue
		}
		shortfall := pkgcheckout.StockShortfall{ProductID: issue.ProductID, ProductName: issue.ProductName}
		if issue.Requested != nil {
			shortfall.Requested = *issue.Requested
		}
		if issue.Available != nil {
			shortfall.Available = *issue.Available
		}
		shortfalls = append(shortfalls, shortfall)
	}
	return pkgerrors.New(pkgerrors.CodeInsufficientStock, fmt.Sprintf("insufficient stock for %d item(s)", len(shortfalls))).
		WithDetails(map[string]any{"items": shortfalls, "issues": issues})
}

func (s *service) observeFailure(ctx context.Context, actor auth.Actor, err error) {
	code := pkgerrors.CodeInternal
	if typed := pkgerrors.As(err); typed != nil {
		code = typed.Code()
	}
	if s.metrics != nil {
		s.metrics.CheckoutFailed(string(code))
	}
	fields := map[string]any{"user_id": actor.UserID.String(), "code": code}
	if code == pkgerrors.CodeInternal || code == pkgerrors.CodeReconciliation {
		s.logg.Error(s.logg.WithFields(ctx, fields), "checkout.failed", err)
		return
	}
	s.logg.Warn(s.logg.WithFields(ctx, fields), "checkout.rejected")
}
