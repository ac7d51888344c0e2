package controllers

import (
	"net/http"

	"github.com/quickcart-labs/quickcart-backend/api/middleware"
	"github.com/quickcart-labs/quickcart-backend/pkg/auth"
	pkgerrors "github.com/quickcart-labs/quickcart-backend/pkg/errors"
)

func requireActor(r *http.Request) (auth.Actor, error) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		return auth.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	return actor, nil
}
