package orders

import (
	"fmt"

	"github.com/quickcart-labs/quickcart-backend/pkg/enums"
	pkgerrors "github.com/quickcart-labs/quickcart-backend/pkg/errors"
)

// adminTransitions lists every status an admin may move an order to from a
// given status. Statuses without an entry are terminal.
var adminTransitions = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusPending: {
		enums.OrderStatusConfirmed,
		enums.OrderStatusProcessing,
		enums.OrderStatusOnHold,
		enums.OrderStatusCancelled,
		enums.OrderStatusFailed,
	},
	enums.OrderStatusConfirmed: {
		enums.OrderStatusProcessing,
		enums.OrderStatusShipped,
		enums.OrderStatusOnHold,
		enums.OrderStatusCancelled,
	},
	enums.OrderStatusProcessing: {
		enums.OrderStatusShipped,
		enums.OrderStatusOnHold,
		enums.OrderStatusCancelled,
	},
	enums.OrderStatusOnHold: {
		enums.OrderStatusPending,
		enums.OrderStatusConfirmed,
		enums.OrderStatusProcessing,
		enums.OrderStatusCancelled,
	},
	enums.OrderStatusShipped: {
		enums.OrderStatusOutForDelivery,
		enums.OrderStatusDelivered,
		enums.OrderStatusCancelled,
	},
	enums.OrderStatusOutForDelivery: {
		enums.OrderStatusDelivered,
		enums.OrderStatusFailed,
		enums.OrderStatusShipped,
	},
}

// CanTransition reports whether the admin table allows from -> to.
func CanTransition(from, to enums.OrderStatus) bool {
	for _, allowed := range adminTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// AllowedTransitions returns a copy of the targets reachable from from.
func AllowedTransitions(from enums.OrderStatus) []enums.OrderStatus {
	targets := adminTransitions[from]
	out := make([]enums.OrderStatus, len(targets))
	copy(out, targets)
	return out
}

func validateAdminTransition(from, to enums.OrderStatus) error {
	if !to.IsAdminSettable() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("status %q cannot be set manually", to))
	}
	if from == to {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("order is already %s", to))
	}
	if !CanTransition(from, to) {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("cannot move order from %s to %s", from, to)).
			WithDetails(map[string]any{"from": from, "to": to, "allowed": AllowedTransitions(from)})
	}
	return nil
}
