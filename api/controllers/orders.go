package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/quickcart-labs/quickcart-backend/api/responses"
	"github.com/quickcart-labs/quickcart-backend/api/validators"
	"github.com/quickcart-labs/quickcart-backend/internal/checkout"
	"github.com/quickcart-labs/quickcart-backend/internal/orders"
	"github.com/quickcart-labs/quickcart-backend/pkg/auth"
	"github.com/quickcart-labs/quickcart-backend/pkg/logger"
	"github.com/quickcart-labs/quickcart-backend/pkg/pagination"
)

// CheckoutService places orders from the cart.
type CheckoutService interface {
	PlaceOrder(ctx context.Context, actor auth.Actor, input checkout.PlaceOrderInput) (*checkout.PlaceOrderResult, error)
}

// OrderService is the slice of the orders service the HTTP layer needs.
type OrderService interface {
	Get(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*orders.OrderDTO, error)
	List(ctx context.Context, userID uuid.UUID, query orders.ListQuery) (pagination.Page[orders.OrderDTO], error)
	Cancel(ctx context.Context, actor auth.Actor, orderID uuid.UUID, input orders.CancelInput) (*orders.OrderDTO, error)
	UpdateStatus(ctx context.Context, actor auth.Actor, orderID uuid.UUID, input orders.UpdateStatusInput) (*orders.OrderDTO, error)
}

// OrderCreate places an order from the caller's cart.
func OrderCreate(svc CheckoutService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload checkout.PlaceOrderInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.PlaceOrder(r.Context(), actor, payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessMessage(w, http.StatusCreated, "Order placed successfully", result)
	}
}

// OrderList pages through the caller's orders. status accepts a comma
// separated list and sort takes `field:direction`.
func OrderList(svc OrderService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		q := r.URL.Query()
		page, err := svc.List(r.Context(), actor.UserID, orders.ListQuery{
			Page:   params.Page,
			Limit:  params.Limit,
			Status: q.Get("status"),
			Sort:   q.Get("sort"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func OrderGet(svc OrderService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.Get(r.Context(), actor, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// OrderCancel cancels an order the caller owns. The body is optional.
func OrderCancel(svc OrderService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload orders.CancelInput
		if err := validators.DecodeOptionalJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.Cancel(r.Context(), actor, orderID, payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessMessage(w, http.StatusOK, "Order cancelled", order)
	}
}

// OrderUpdateStatus is the admin status transition.
func OrderUpdateStatus(svc OrderService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload orders.UpdateStatusInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.UpdateStatus(r.Context(), actor, orderID, payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}
