package controllers

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"

	"github.com/quickcart-labs/quickcart-backend/internal/subscriptions"
	"github.com/quickcart-labs/quickcart-backend/pkg/auth"
	pkgerrors "github.com/quickcart-labs/quickcart-backend/pkg/errors"
	"github.com/quickcart-labs/quickcart-backend/pkg/pagination"
)

type stubSubscriptions struct {
	sub    *subscriptions.SubscriptionDTO
	err    error
	create subscriptions.CreateInput
	update subscriptions.UpdateInput
	query  subscriptions.ListQuery
}

func (s *stubSubscriptions) Create(_ context.Context, _ auth.Actor, input subscriptions.CreateInput) (*subscriptions.SubscriptionDTO, error) {
	s.create = input
	return s.sub, s.err
}

func (s *stubSubscriptions) List(_ context.Context, _ uuid.UUID, query subscriptions.ListQuery) (pagination.Page[subscriptions.SubscriptionDTO], error) {
	s.query = query
	return pagination.Page[subscriptions.SubscriptionDTO]{Items: []subscriptions.SubscriptionDTO{}}, s.err
}

func (s *stubSubscriptions) Update(_ context.Context, _ auth.Actor, _ uuid.UUID, input subscriptions.UpdateInput) (*subscriptions.SubscriptionDTO, error) {
	s.update = input
	return s.sub, s.err
}

func (s *stubSubscriptions) Cancel(context.Context, auth.Actor, uuid.UUID) (*subscriptions.SubscriptionDTO, error) {
	return s.sub, s.err
}

func TestSubscriptionCreate(t *testing.T) {
	productID := uuid.New()
	svc := &stubSubscriptions{sub: &subscriptions.SubscriptionDTO{}}
	body := `{"productId":"` + productID.String() + `","quantity":2,"frequency":"weekly","deliveryDay":"monday"}`

	resp := serve(SubscriptionCreate(svc, nil), newRequest(http.MethodPost, "/api/v1/subscriptions", body, customer(), nil))
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.create.ProductID != productID || svc.create.Frequency != "weekly" {
		t.Fatalf("unexpected input %+v", svc.create)
	}
}

func TestSubscriptionCreateRejectsUnknownFrequency(t *testing.T) {
	body := `{"productId":"` + uuid.NewString() + `","frequency":"hourly"}`
	resp := serve(SubscriptionCreate(&stubSubscriptions{}, nil), newRequest(http.MethodPost, "/api/v1/subscriptions", body, customer(), nil))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestSubscriptionListStatusFilter(t *testing.T) {
	svc := &stubSubscriptions{}
	resp := serve(SubscriptionList(svc, nil), newRequest(http.MethodGet, "/api/v1/subscriptions?status=paused", "", customer(), nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.query.Status != "paused" || svc.query.Page != 1 {
		t.Fatalf("unexpected query %+v", svc.query)
	}
}

func TestSubscriptionUpdateCancelledConflict(t *testing.T) {
	id := uuid.NewString()
	svc := &stubSubscriptions{err: pkgerrors.New(pkgerrors.CodeConflict, "subscription is cancelled")}
	req := newRequest(http.MethodPut, "/api/v1/subscriptions/"+id, `{"quantity":3}`, customer(), map[string]string{"subscriptionId": id})
	if resp := serve(SubscriptionUpdate(svc, nil), req); resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
	if svc.update.Quantity == nil || *svc.update.Quantity != 3 {
		t.Fatalf("unexpected update %+v", svc.update)
	}
}

func TestSubscriptionCancel(t *testing.T) {
	id := uuid.NewString()
	svc := &stubSubscriptions{sub: &subscriptions.SubscriptionDTO{}}
	req := newRequest(http.MethodDelete, "/api/v1/subscriptions/"+id, "", customer(), map[string]string{"subscriptionId": id})
	resp := serve(SubscriptionCancel(svc, nil), req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if env := decodeEnvelope(t, resp); env.Message != "Subscription cancelled" {
		t.Fatalf("unexpected message %q", env.Message)
	}
}
