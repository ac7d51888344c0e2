package controllers

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"

	"github.com/quickcart-labs/quickcart-backend/internal/checkout"
	"github.com/quickcart-labs/quickcart-backend/internal/orders"
	"github.com/quickcart-labs/quickcart-backend/pkg/auth"
	pkgerrors "github.com/quickcart-labs/quickcart-backend/pkg/errors"
	"github.com/quickcart-labs/quickcart-backend/pkg/pagination"
)

type stubPlacer struct {
	input  checkout.PlaceOrderInput
	result *checkout.PlaceOrderResult
	err    error
}

func (s *stubPlacer) PlaceOrder(_ context.Context, _ auth.Actor, input checkout.PlaceOrderInput) (*checkout.PlaceOrderResult, error) {
	s.input = input
	return s.result, s.err
}

type stubOrders struct {
	order  *orders.OrderDTO
	page   pagination.Page[orders.OrderDTO]
	err    error
	query  orders.ListQuery
	cancel orders.CancelInput
	update orders.UpdateStatusInput
}

func (s *stubOrders) Get(context.Context, auth.Actor, uuid.UUID) (*orders.OrderDTO, error) {
	return s.order, s.err
}

func (s *stubOrders) List(_ context.Context, _ uuid.UUID, query orders.ListQuery) (pagination.Page[orders.OrderDTO], error) {
	s.query = query
	return s.page, s.err
}

func (s *stubOrders) Cancel(_ context.Context, _ auth.Actor, _ uuid.UUID, input orders.CancelInput) (*orders.OrderDTO, error) {
	s.cancel = input
	return s.order, s.err
}

func (s *stubOrders) UpdateStatus(_ context.Context, _ auth.Actor, _ uuid.UUID, input orders.UpdateStatusInput) (*orders.OrderDTO, error) {
	s.update = input
	return s.order, s.err
}

const placeOrderBody = `{
	"shippingAddress": {
		"fullName": "Asha Rao",
		"phone": "9876543210",
		"line1": "12 MG Road",
		"city": "Bengaluru",
		"state": "KA",
		"postalCode": "560001"
	},
	"paymentMethod": "cash_on_delivery"
}`

func TestOrderCreateReturnsCreated(t *testing.T) {
	orderID := uuid.New()
	svc := &stubPlacer{result: &checkout.PlaceOrderResult{OrderID: orderID}}
	resp := serve(OrderCreate(svc, nil), newRequest(http.MethodPost, "/api/v1/orders", placeOrderBody, customer(), nil))

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	env := decodeEnvelope(t, resp)
	if env.Message != "Order placed successfully" {
		t.Fatalf("unexpected message %q", env.Message)
	}
	if svc.input.PaymentMethod != "cash_on_delivery" || svc.input.ShippingAddress.City != "Bengaluru" {
		t.Fatalf("unexpected input %+v", svc.input)
	}
}

func TestOrderCreateRequiresAddress(t *testing.T) {
	resp := serve(OrderCreate(&stubPlacer{}, nil),
		newRequest(http.MethodPost, "/api/v1/orders", `{"paymentMethod":"online"}`, customer(), nil))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestOrderCreateSurfacesStockIssues(t *testing.T) {
	svc := &stubPlacer{err: pkgerrors.New(pkgerrors.CodeInsufficientStock, "some items are unavailable").
		WithDetails(map[string]any{"issues": []string{"out of stock"}})}
	resp := serve(OrderCreate(svc, nil), newRequest(http.MethodPost, "/api/v1/orders", placeOrderBody, customer(), nil))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	env := decodeEnvelope(t, resp)
	if env.Error.Code != string(pkgerrors.CodeInsufficientStock) || env.Error.Details == nil {
		t.Fatalf("unexpected error %+v", env.Error)
	}
}

func TestOrderListForwardsQuery(t *testing.T) {
	svc := &stubOrders{page: pagination.Page[orders.OrderDTO]{Items: []orders.OrderDTO{}}}
	req := newRequest(http.MethodGet, "/api/v1/orders?page=2&limit=5&status=pending,confirmed&sort=total:asc", "", customer(), nil)
	resp := serve(OrderList(svc, nil), req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	want := orders.ListQuery{Page: 2, Limit: 5, Status: "pending,confirmed", Sort: "total:asc"}
	if svc.query != want {
		t.Fatalf("unexpected query %+v", svc.query)
	}
}

func TestOrderListRejectsOversizedLimit(t *testing.T) {
	req := newRequest(http.MethodGet, "/api/v1/orders?limit=1000", "", customer(), nil)
	if resp := serve(OrderList(&stubOrders{}, nil), req); resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestOrderGetForbidden(t *testing.T) {
	orderID := uuid.New().String()
	svc := &stubOrders{err: pkgerrors.New(pkgerrors.CodeForbidden, "not your order")}
	resp := serve(OrderGet(svc, nil), newRequest(http.MethodGet, "/api/v1/orders/"+orderID, "", customer(), map[string]string{"orderId": orderID}))
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
}

func TestOrderCancelBodyIsOptional(t *testing.T) {
	orderID := uuid.New().String()
	params := map[string]string{"orderId": orderID}
	svc := &stubOrders{order: &orders.OrderDTO{}}

	resp := serve(OrderCancel(svc, nil), newRequest(http.MethodDelete, "/api/v1/orders/"+orderID, "", customer(), params))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 without body got %d", resp.Code)
	}

	resp = serve(OrderCancel(svc, nil), newRequest(http.MethodDelete, "/api/v1/orders/"+orderID, `{"reason":"changed my mind"}`, customer(), params))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.cancel.Reason != "changed my mind" {
		t.Fatalf("reason not forwarded: %+v", svc.cancel)
	}
}

func TestOrderCancelNotCancellable(t *testing.T) {
	orderID := uuid.New().String()
	svc := &stubOrders{err: pkgerrors.New(pkgerrors.CodeCannotCancel, "order cannot be cancelled in status delivered")}
	resp := serve(OrderCancel(svc, nil), newRequest(http.MethodDelete, "/api/v1/orders/"+orderID, "", customer(), map[string]string{"orderId": orderID}))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestOrderUpdateStatusRequiresStatus(t *testing.T) {
	orderID := uuid.New().String()
	params := map[string]string{"orderId": orderID}
	svc := &stubOrders{order: &orders.OrderDTO{}}

	resp := serve(OrderUpdateStatus(svc, nil), newRequest(http.MethodPut, "/api/v1/admin/orders/"+orderID+"/status", `{}`, customer(), params))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}

	resp = serve(OrderUpdateStatus(svc, nil), newRequest(http.MethodPut, "/api/v1/admin/orders/"+orderID+"/status", `{"status":"shipped","note":"handed over"}`, customer(), params))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.update.Status != "shipped" || svc.update.Note != "handed over" {
		t.Fatalf("unexpected input %+v", svc.update)
	}
}
