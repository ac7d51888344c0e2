package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/quickcart-labs/quickcart-backend/api/responses"
	"github.com/quickcart-labs/quickcart-backend/api/validators"
	cartsvc "github.com/quickcart-labs/quickcart-backend/internal/cart"
	"github.com/quickcart-labs/quickcart-backend/pkg/logger"
)

// CartService is the slice of the cart service the HTTP layer needs.
type CartService interface {
	Get(ctx context.Context, userID uuid.UUID) (*cartsvc.CartDTO, error)
	AddItem(ctx context.Context, userID uuid.UUID, input cartsvc.AddItemInput) (*cartsvc.CartDTO, error)
	UpdateItem(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*cartsvc.CartDTO, error)
	RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*cartsvc.CartDTO, error)
	Clear(ctx context.Context, userID uuid.UUID) (*cartsvc.CartDTO, error)
	Validate(ctx context.Context, userID uuid.UUID) (*cartsvc.ValidationDTO, error)
}

// CartGet returns the caller's cart, creating an empty one on first use.
func CartGet(svc CartService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cart, err := svc.Get(r.Context(), actor.UserID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cart)
	}
}

func CartAddItem(svc CartService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload cartsvc.AddItemInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cart, err := svc.AddItem(r.Context(), actor.UserID, payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessMessage(w, http.StatusOK, "Item added to cart", cart)
	}
}

// CartUpdateItem sets an item's quantity; zero removes the line.
func CartUpdateItem(svc CartService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		itemID, err := validators.ParseUUIDParam(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload cartsvc.UpdateItemInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cart, err := svc.UpdateItem(r.Context(), actor.UserID, itemID, *payload.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cart)
	}
}

func CartRemoveItem(svc CartService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		itemID, err := validators.ParseUUIDParam(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cart, err := svc.RemoveItem(r.Context(), actor.UserID, itemID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cart)
	}
}

func CartClear(svc CartService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cart, err := svc.Clear(r.Context(), actor.UserID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessMessage(w, http.StatusOK, "Cart cleared", cart)
	}
}

// CartValidate re-checks every line against the catalog and persists the
// corrections it makes.
func CartValidate(svc CartService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.Validate(r.Context(), actor.UserID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
