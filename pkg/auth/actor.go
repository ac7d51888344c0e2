package auth

import (
	"github.com/google/uuid"

	"github.com/quickcart-labs/quickcart-backend/pkg/enums"
)

// Actor is the authenticated caller as services see it.
type Actor struct {
	UserID uuid.UUID
	Role   enums.UserRole
}

func (a Actor) IsAdmin() bool { return a.Role == enums.RoleAdmin }

func (a Actor) IsDriver() bool { return a.Role == enums.RoleDriver }

// ActorFromClaims lifts verified token claims into an Actor.
func ActorFromClaims(claims *AccessTokenClaims) Actor {
	if claims == nil {
		return Actor{}
	}
	return Actor{UserID: claims.UserID, Role: claims.Role}
}
