package controllers

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/quickcart-labs/quickcart-backend/internal/deliveries"
	"github.com/quickcart-labs/quickcart-backend/pkg/auth"
	"github.com/quickcart-labs/quickcart-backend/pkg/enums"
	pkgerrors "github.com/quickcart-labs/quickcart-backend/pkg/errors"
	"github.com/quickcart-labs/quickcart-backend/pkg/pagination"
)

type stubDeliveries struct {
	delivery *deliveries.DeliveryDTO
	issued   *deliveries.OTPIssued
	err      error

	query    deliveries.ListQuery
	admin    bool
	otp      deliveries.VerifyOTPInput
	location deliveries.LocationInput
	update   deliveries.AdminUpdateInput
}

func (s *stubDeliveries) Get(context.Context, auth.Actor, uuid.UUID) (*deliveries.DeliveryDTO, error) {
	return s.delivery, s.err
}

func (s *stubDeliveries) GetByOrder(context.Context, auth.Actor, uuid.UUID) (*deliveries.DeliveryDTO, error) {
	return s.delivery, s.err
}

func (s *stubDeliveries) ListMine(_ context.Context, _ auth.Actor, query deliveries.ListQuery) (pagination.Page[deliveries.DeliveryDTO], error) {
	s.query = query
	return pagination.Page[deliveries.DeliveryDTO]{Items: []deliveries.DeliveryDTO{}}, s.err
}

func (s *stubDeliveries) AdminList(_ context.Context, query deliveries.ListQuery) (pagination.Page[deliveries.DeliveryDTO], error) {
	s.query, s.admin = query, true
	return pagination.Page[deliveries.DeliveryDTO]{Items: []deliveries.DeliveryDTO{}}, s.err
}

func (s *stubDeliveries) RequestOTP(context.Context, auth.Actor, uuid.UUID) (*deliveries.OTPIssued, error) {
	return s.issued, s.err
}

func (s *stubDeliveries) VerifyOTP(_ context.Context, _ auth.Actor, _ uuid.UUID, input deliveries.VerifyOTPInput) (*deliveries.DeliveryDTO, error) {
	s.otp = input
	return s.delivery, s.err
}

func (s *stubDeliveries) UpdateLocation(_ context.Context, _ auth.Actor, _ uuid.UUID, input deliveries.LocationInput) (*deliveries.DeliveryDTO, error) {
	s.location = input
	return s.delivery, s.err
}

func (s *stubDeliveries) AdminUpdate(_ context.Context, _ auth.Actor, _ uuid.UUID, input deliveries.AdminUpdateInput) (*deliveries.DeliveryDTO, error) {
	s.update = input
	return s.delivery, s.err
}

func driver() *auth.Actor {
	return &auth.Actor{UserID: uuid.New(), Role: enums.RoleDriver}
}

func deliveryParams() (string, map[string]string) {
	id := uuid.New().String()
	return id, map[string]string{"deliveryId": id}
}

func TestDeliveryRequestOTP(t *testing.T) {
	id, params := deliveryParams()
	svc := &stubDeliveries{issued: &deliveries.OTPIssued{ExpiresAt: time.Now().Add(10 * time.Minute)}}
	resp := serve(DeliveryRequestOTP(svc, nil), newRequest(http.MethodPost, "/api/v1/deliveries/"+id+"/request-otp", "", driver(), params))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if env := decodeEnvelope(t, resp); env.Message != "OTP sent to customer" {
		t.Fatalf("unexpected message %q", env.Message)
	}
}

func TestDeliveryRequestOTPRateLimited(t *testing.T) {
	id, params := deliveryParams()
	svc := &stubDeliveries{err: pkgerrors.New(pkgerrors.CodeRateLimit, "too many OTP requests")}
	resp := serve(DeliveryRequestOTP(svc, nil), newRequest(http.MethodPost, "/api/v1/deliveries/"+id+"/request-otp", "", driver(), params))
	if resp.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 got %d", resp.Code)
	}
}

func TestDeliveryVerifyOTPValidatesFormat(t *testing.T) {
	id, params := deliveryParams()
	svc := &stubDeliveries{delivery: &deliveries.DeliveryDTO{}}
	handler := DeliveryVerifyOTP(svc, nil)

	for _, body := range []string{`{}`, `{"otp":"12345"}`, `{"otp":"12a456"}`} {
		resp := serve(handler, newRequest(http.MethodPost, "/api/v1/deliveries/"+id+"/verify-otp", body, driver(), params))
		if resp.Code != http.StatusBadRequest {
			t.Fatalf("body %s: expected 400 got %d", body, resp.Code)
		}
	}

	resp := serve(handler, newRequest(http.MethodPost, "/api/v1/deliveries/"+id+"/verify-otp", `{"otp":"123456"}`, driver(), params))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.otp.OTP != "123456" {
		t.Fatalf("otp not forwarded: %+v", svc.otp)
	}
}

func TestDeliveryUpdateLocationBounds(t *testing.T) {
	id, params := deliveryParams()
	svc := &stubDeliveries{delivery: &deliveries.DeliveryDTO{}}
	handler := DeliveryUpdateLocation(svc, nil)

	resp := serve(handler, newRequest(http.MethodPut, "/api/v1/deliveries/"+id+"/location", `{"lat":91,"lng":77.6}`, driver(), params))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}

	resp = serve(handler, newRequest(http.MethodPut, "/api/v1/deliveries/"+id+"/location", `{"lat":0,"lng":0}`, driver(), params))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for zero coordinates got %d", resp.Code)
	}
	if svc.location.Lat == nil || *svc.location.Lat != 0 {
		t.Fatalf("unexpected location %+v", svc.location)
	}
}

func TestDeliveriesMineAndAdminList(t *testing.T) {
	svc := &stubDeliveries{}
	resp := serve(DeliveriesMine(svc, nil), newRequest(http.MethodGet, "/api/v1/deliveries?status=in_transit", "", driver(), nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("mine: expected 200 got %d", resp.Code)
	}
	if svc.query.Status != "in_transit" || svc.admin {
		t.Fatalf("unexpected query %+v admin=%v", svc.query, svc.admin)
	}

	resp = serve(AdminDeliveriesList(svc, nil), newRequest(http.MethodGet, "/api/v1/admin/deliveries?limit=20", "", nil, nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("admin: expected 200 got %d", resp.Code)
	}
	if !svc.admin || svc.query.Limit != 20 {
		t.Fatalf("unexpected admin query %+v", svc.query)
	}
}

func TestAdminDeliveryUpdateAssignsDriver(t *testing.T) {
	id, params := deliveryParams()
	driverID := uuid.New()
	svc := &stubDeliveries{delivery: &deliveries.DeliveryDTO{}}
	admin := &auth.Actor{UserID: uuid.New(), Role: enums.RoleAdmin}
	body := `{"driverId":"` + driverID.String() + `","status":"assigned"}`

	resp := serve(AdminDeliveryUpdate(svc, nil), newRequest(http.MethodPut, "/api/v1/admin/deliveries/"+id, body, admin, params))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.update.DriverID == nil || *svc.update.DriverID != driverID || svc.update.Status != "assigned" {
		t.Fatalf("unexpected update %+v", svc.update)
	}
}

func TestDeliveryByOrderNotFound(t *testing.T) {
	orderID := uuid.New().String()
	svc := &stubDeliveries{err: pkgerrors.New(pkgerrors.CodeNotFound, "delivery not found")}
	resp := serve(DeliveryByOrder(svc, nil), newRequest(http.MethodGet, "/api/v1/deliveries/order/"+orderID, "", customer(), map[string]string{"orderId": orderID}))
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}
