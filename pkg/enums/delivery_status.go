package enums

// DeliveryStatus tracks the physical delivery of an order.
type DeliveryStatus string

const (
	DeliveryStatusPendingAssignment DeliveryStatus = "pending_assignment"
	DeliveryStatusAssigned          DeliveryStatus = "assigned"
	DeliveryStatusOutForDelivery    DeliveryStatus = "out_for_delivery"
	DeliveryStatusDelivered         DeliveryStatus = "delivered"
	DeliveryStatusCancelled         DeliveryStatus = "cancelled"
	DeliveryStatusFailed            DeliveryStatus = "failed_delivery"
)

var validDeliveryStatuses = []DeliveryStatus{
	DeliveryStatusPendingAssignment,
	DeliveryStatusAssigned,
	DeliveryStatusOutForDelivery,
	DeliveryStatusDelivered,
	DeliveryStatusCancelled,
	DeliveryStatusFailed,
}

func (s DeliveryStatus) String() string { return string(s) }

func (s DeliveryStatus) IsValid() bool { return containsEnum(validDeliveryStatuses, s) }

// AcceptsLocation reports whether a driver may still push location pings.
func (s DeliveryStatus) AcceptsLocation() bool {
	return s == DeliveryStatusAssigned || s == DeliveryStatusOutForDelivery
}

func ParseDeliveryStatus(value string) (DeliveryStatus, error) {
	return parseEnum(validDeliveryStatuses, "delivery status", value)
}
