package enums

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusPending        OrderStatus = "pending"
	OrderStatusConfirmed      OrderStatus = "confirmed"
	OrderStatusProcessing     OrderStatus = "processing"
	OrderStatusShipped        OrderStatus = "shipped"
	OrderStatusOutForDelivery OrderStatus = "out_for_delivery"
	OrderStatusDelivered      OrderStatus = "delivered"
	OrderStatusCancelled      OrderStatus = "cancelled"
	OrderStatusFailed         OrderStatus = "failed"
	OrderStatusOnHold         OrderStatus = "on_hold"
	OrderStatusRefunded       OrderStatus = "refunded"
	OrderStatusExpired        OrderStatus = "expired"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusOutForDelivery,
	OrderStatusDelivered,
	OrderStatusCancelled,
	OrderStatusFailed,
	OrderStatusOnHold,
	OrderStatusRefunded,
	OrderStatusExpired,
}

// adminOrderStatuses are the targets an admin may request. refunded and
// expired are only reached through the refund flow and the TTL job.
var adminOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusOutForDelivery,
	OrderStatusDelivered,
	OrderStatusCancelled,
	OrderStatusFailed,
	OrderStatusOnHold,
}

var userCancellableStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusProcessing,
}

func (s OrderStatus) String() string { return string(s) }

func (s OrderStatus) IsValid() bool { return containsEnum(validOrderStatuses, s) }

// IsAdminSettable reports whether the status may be requested by an admin.
func (s OrderStatus) IsAdminSettable() bool { return containsEnum(adminOrderStatuses, s) }

// IsUserCancellable reports whether the owner may still cancel from this status.
func (s OrderStatus) IsUserCancellable() bool { return containsEnum(userCancellableStatuses, s) }

func ParseOrderStatus(value string) (OrderStatus, error) {
	return parseEnum(validOrderStatuses, "order status", value)
}
