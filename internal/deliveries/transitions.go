package deliveries

import (
	"github.com/quickcart-labs/quickcart-backend/pkg/enums"
	pkgerrors "github.com/quickcart-labs/quickcart-backend/pkg/errors"
)

// deliveryTransitions lists the moves an admin may make directly. delivered
// and cancelled are terminal.
var deliveryTransitions = map[enums.DeliveryStatus][]enums.DeliveryStatus{
	enums.DeliveryStatusPendingAssignment: {enums.DeliveryStatusAssigned, enums.DeliveryStatusCancelled},
	enums.DeliveryStatusAssigned:          {enums.DeliveryStatusOutForDelivery, enums.DeliveryStatusPendingAssignment, enums.DeliveryStatusCancelled},
	enums.DeliveryStatusOutForDelivery:    {enums.DeliveryStatusDelivered, enums.DeliveryStatusFailed, enums.DeliveryStatusCancelled},
	enums.DeliveryStatusFailed:            {enums.DeliveryStatusOutForDelivery, enums.DeliveryStatusCancelled},
}

func CanTransition(from, to enums.DeliveryStatus) bool {
	for _, next := range deliveryTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func validateTransition(from, to enums.DeliveryStatus) error {
	if CanTransition(from, to) {
		return nil
	}
	allowed := append([]enums.DeliveryStatus{}, deliveryTransitions[from]...)
	return pkgerrors.New(pkgerrors.CodeValidation, "delivery status transition not allowed").
		WithDetails(map[string]any{"from": from, "to": to, "allowed": allowed})
}

// orderStatusFor is the order status a delivery move is mirrored onto, with
// the order statuses it may be applied from.
func orderStatusFor(status enums.DeliveryStatus) (enums.OrderStatus, []enums.OrderStatus, bool) {
	switch status {
	case enums.DeliveryStatusOutForDelivery:
		return enums.OrderStatusOutForDelivery, []enums.OrderStatus{
			enums.OrderStatusConfirmed, enums.OrderStatusProcessing, enums.OrderStatusShipped,
		}, true
	case enums.DeliveryStatusDelivered:
		return enums.OrderStatusDelivered, []enums.OrderStatus{
			enums.OrderStatusConfirmed, enums.OrderStatusProcessing, enums.OrderStatusShipped, enums.OrderStatusOutForDelivery,
		}, true
	}
	return "", nil, false
}
