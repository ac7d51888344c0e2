package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/quickcart-labs/quickcart-backend/api/responses"
	"github.com/quickcart-labs/quickcart-backend/api/validators"
	"github.com/quickcart-labs/quickcart-backend/internal/subscriptions"
	"github.com/quickcart-labs/quickcart-backend/pkg/auth"
	"github.com/quickcart-labs/quickcart-backend/pkg/logger"
	"github.com/quickcart-labs/quickcart-backend/pkg/pagination"
)

type SubscriptionService interface {
	Create(ctx context.Context, actor auth.Actor, input subscriptions.CreateInput) (*subscriptions.SubscriptionDTO, error)
	List(ctx context.Context, userID uuid.UUID, query subscriptions.ListQuery) (pagination.Page[subscriptions.SubscriptionDTO], error)
	Update(ctx context.Context, actor auth.Actor, id uuid.UUID, input subscriptions.UpdateInput) (*subscriptions.SubscriptionDTO, error)
	Cancel(ctx context.Context, actor auth.Actor, id uuid.UUID) (*subscriptions.SubscriptionDTO, error)
}

func SubscriptionCreate(svc SubscriptionService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload subscriptions.CreateInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		sub, err := svc.Create(r.Context(), actor, payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessMessage(w, http.StatusCreated, "Subscription created", sub)
	}
}

func SubscriptionList(svc SubscriptionService, logg *logger.Logger) http.HandlerFunc {
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
		page, err := svc.List(r.Context(), actor.UserID, subscriptions.ListQuery{
			Page:   params.Page,
			Limit:  params.Limit,
			Status: r.URL.Query().Get("status"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func SubscriptionUpdate(svc SubscriptionService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := validators.ParseUUIDParam(r, "subscriptionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload subscriptions.UpdateInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		sub, err := svc.Update(r.Context(), actor, id, payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, sub)
	}
}

// SubscriptionCancel is a soft cancel; the record stays listable.
func SubscriptionCancel(svc SubscriptionService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := validators.ParseUUIDParam(r, "subscriptionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		sub, err := svc.Cancel(r.Context(), actor, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessMessage(w, http.StatusOK, "Subscription cancelled", sub)
	}
}
