package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/quickcart-labs/quickcart-backend/api/responses"
	"github.com/quickcart-labs/quickcart-backend/api/validators"
	"github.com/quickcart-labs/quickcart-backend/internal/deliveries"
	"github.com/quickcart-labs/quickcart-backend/pkg/auth"
	"github.com/quickcart-labs/quickcart-backend/pkg/logger"
	"github.com/quickcart-labs/quickcart-backend/pkg/pagination"
)

// DeliveryService is the slice of the deliveries service the HTTP layer needs.
type DeliveryService interface {
	Get(ctx context.Context, actor auth.Actor, deliveryID uuid.UUID) (*deliveries.DeliveryDTO, error)
	GetByOrder(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*deliveries.DeliveryDTO, error)
	ListMine(ctx context.Context, actor auth.Actor, query deliveries.ListQuery) (pagination.Page[deliveries.DeliveryDTO], error)
	AdminList(ctx context.Context, query deliveries.ListQuery) (pagination.Page[deliveries.DeliveryDTO], error)
	RequestOTP(ctx context.Context, actor auth.Actor, deliveryID uuid.UUID) (*deliveries.OTPIssued, error)
	VerifyOTP(ctx context.Context, actor auth.Actor, deliveryID uuid.UUID, input deliveries.VerifyOTPInput) (*deliveries.DeliveryDTO, error)
	UpdateLocation(ctx context.Context, actor auth.Actor, deliveryID uuid.UUID, input deliveries.LocationInput) (*deliveries.DeliveryDTO, error)
	AdminUpdate(ctx context.Context, actor auth.Actor, deliveryID uuid.UUID, input deliveries.AdminUpdateInput) (*deliveries.DeliveryDTO, error)
}

func DeliveryGet(svc DeliveryService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		deliveryID, err := validators.ParseUUIDParam(r, "deliveryId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		delivery, err := svc.Get(r.Context(), actor, deliveryID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, delivery)
	}
}

func DeliveryByOrder(svc DeliveryService, logg *logger.Logger) http.HandlerFunc {
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
		delivery, err := svc.GetByOrder(r.Context(), actor, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, delivery)
	}
}

// DeliveriesMine lists deliveries for the caller: the customer's own, or the
// ones assigned to a driver.
func DeliveriesMine(svc DeliveryService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		query, err := deliveryListQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := svc.ListMine(r.Context(), actor, query)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func AdminDeliveriesList(svc DeliveryService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query, err := deliveryListQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := svc.AdminList(r.Context(), query)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func deliveryListQuery(r *http.Request) (deliveries.ListQuery, error) {
	params, err := validators.ParsePagination(r)
	if err != nil {
		return deliveries.ListQuery{}, err
	}
	return deliveries.ListQuery{Page: params.Page, Limit: params.Limit, Status: r.URL.Query().Get("status")}, nil
}

// DeliveryRequestOTP sends a fresh delivery code to the customer.
func DeliveryRequestOTP(svc DeliveryService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		deliveryID, err := validators.ParseUUIDParam(r, "deliveryId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		issued, err := svc.RequestOTP(r.Context(), actor, deliveryID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessMessage(w, http.StatusOK, "OTP sent to customer", issued)
	}
}

func DeliveryVerifyOTP(svc DeliveryService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		deliveryID, err := validators.ParseUUIDParam(r, "deliveryId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload deliveries.VerifyOTPInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		delivery, err := svc.VerifyOTP(r.Context(), actor, deliveryID, payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessMessage(w, http.StatusOK, "Delivery completed", delivery)
	}
}

func DeliveryUpdateLocation(svc DeliveryService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		deliveryID, err := validators.ParseUUIDParam(r, "deliveryId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload deliveries.LocationInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		delivery, err := svc.UpdateLocation(r.Context(), actor, deliveryID, payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, delivery)
	}
}

func AdminDeliveryUpdate(svc DeliveryService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		deliveryID, err := validators.ParseUUIDParam(r, "deliveryId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload deliveries.AdminUpdateInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		delivery, err := svc.AdminUpdate(r.Context(), actor, deliveryID, payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, delivery)
	}
}
