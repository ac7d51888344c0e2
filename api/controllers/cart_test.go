package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/google/uuid"

	cartsvc "github.com/quickcart-labs/quickcart-backend/internal/cart"
	pkgerrors "github.com/quickcart-labs/quickcart-backend/pkg/errors"
)

type stubCart struct {
	cart       *cartsvc.CartDTO
	validation *cartsvc.ValidationDTO
	err        error

	added    cartsvc.AddItemInput
	itemID   uuid.UUID
	quantity int
}

func (s *stubCart) Get(context.Context, uuid.UUID) (*cartsvc.CartDTO, error) { return s.cart, s.err }

func (s *stubCart) AddItem(_ context.Context, _ uuid.UUID, input cartsvc.AddItemInput) (*cartsvc.CartDTO, error) {
	s.added = input
	return s.cart, s.err
}

func (s *stubCart) UpdateItem(_ context.Context, _, itemID uuid.UUID, quantity int) (*cartsvc.CartDTO, error) {
	s.itemID, s.quantity = itemID, quantity
	return s.cart, s.err
}

func (s *stubCart) RemoveItem(_ context.Context, _, itemID uuid.UUID) (*cartsvc.CartDTO, error) {
	s.itemID = itemID
	return s.cart, s.err
}

func (s *stubCart) Clear(context.Context, uuid.UUID) (*cartsvc.CartDTO, error) { return s.cart, s.err }

func (s *stubCart) Validate(context.Context, uuid.UUID) (*cartsvc.ValidationDTO, error) {
	return s.validation, s.err
}

func TestCartGetRequiresActor(t *testing.T) {
	resp := serve(CartGet(&stubCart{}, nil), newRequest(http.MethodGet, "/api/v1/cart", "", nil, nil))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestCartGetSuccess(t *testing.T) {
	cartID := uuid.New()
	svc := &stubCart{cart: &cartsvc.CartDTO{ID: cartID, Items: []cartsvc.CartItemDTO{}}}
	resp := serve(CartGet(svc, nil), newRequest(http.MethodGet, "/api/v1/cart", "", customer(), nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	env := decodeEnvelope(t, resp)
	var got cartsvc.CartDTO
	if err := json.Unmarshal(env.Data, &got); err != nil {
		t.Fatalf("decode cart: %v", err)
	}
	if !env.Success || got.ID != cartID {
		t.Fatalf("unexpected body %+v", env)
	}
}

func TestCartAddItemValidatesBody(t *testing.T) {
	svc := &stubCart{cart: &cartsvc.CartDTO{}}
	handler := CartAddItem(svc, nil)

	resp := serve(handler, newRequest(http.MethodPost, "/api/v1/cart/items", `{"quantity":2}`, customer(), nil))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing product got %d", resp.Code)
	}

	resp = serve(handler, newRequest(http.MethodPost, "/api/v1/cart/items", `{"productId":"p1","quantity":2,"extra":true}`, customer(), nil))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown field got %d", resp.Code)
	}

	resp = serve(handler, newRequest(http.MethodPost, "/api/v1/cart/items", `{"productId":"p1","quantity":2}`, customer(), nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.added.ProductID != "p1" || svc.added.Quantity != 2 {
		t.Fatalf("unexpected input %+v", svc.added)
	}
}

func TestCartUpdateItemPassesQuantity(t *testing.T) {
	itemID := uuid.New()
	svc := &stubCart{cart: &cartsvc.CartDTO{}}
	req := newRequest(http.MethodPut, "/api/v1/cart/items/"+itemID.String(), `{"quantity":0}`, customer(),
		map[string]string{"itemId": itemID.String()})

	resp := serve(CartUpdateItem(svc, nil), req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.itemID != itemID || svc.quantity != 0 {
		t.Fatalf("unexpected call item=%s qty=%d", svc.itemID, svc.quantity)
	}
}

func TestCartUpdateItemRequiresQuantity(t *testing.T) {
	itemID := uuid.New()
	req := newRequest(http.MethodPut, "/api/v1/cart/items/"+itemID.String(), `{}`, customer(),
		map[string]string{"itemId": itemID.String()})
	if resp := serve(CartUpdateItem(&stubCart{}, nil), req); resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestCartRemoveItemRejectsBadID(t *testing.T) {
	req := newRequest(http.MethodDelete, "/api/v1/cart/items/nope", "", customer(), map[string]string{"itemId": "nope"})
	if resp := serve(CartRemoveItem(&stubCart{}, nil), req); resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestCartRemoveItemNotFound(t *testing.T) {
	itemID := uuid.New()
	svc := &stubCart{err: pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")}
	req := newRequest(http.MethodDelete, "/api/v1/cart/items/"+itemID.String(), "", customer(),
		map[string]string{"itemId": itemID.String()})
	resp := serve(CartRemoveItem(svc, nil), req)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
	if env := decodeEnvelope(t, resp); env.Error.Code != string(pkgerrors.CodeNotFound) {
		t.Fatalf("unexpected error code %s", env.Error.Code)
	}
}

func TestCartClearAndValidate(t *testing.T) {
	svc := &stubCart{cart: &cartsvc.CartDTO{}, validation: &cartsvc.ValidationDTO{}}
	if resp := serve(CartClear(svc, nil), newRequest(http.MethodDelete, "/api/v1/cart", "", customer(), nil)); resp.Code != http.StatusOK {
		t.Fatalf("clear: expected 200 got %d", resp.Code)
	}
	if resp := serve(CartValidate(svc, nil), newRequest(http.MethodGet, "/api/v1/cart/validate", "", customer(), nil)); resp.Code != http.StatusOK {
		t.Fatalf("validate: expected 200 got %d", resp.Code)
	}
}
