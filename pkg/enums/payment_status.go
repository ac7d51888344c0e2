package enums

// PaymentStatus is the order-side view of payment state.
type PaymentStatus string

const (
	PaymentStatusPending           PaymentStatus = "pending"
	PaymentStatusPaid              PaymentStatus = "paid"
	PaymentStatusFailed            PaymentStatus = "failed"
	PaymentStatusRefunded          PaymentStatus = "refunded"
	PaymentStatusPartiallyRefunded PaymentStatus = "partially_refunded"
	PaymentStatusRefundPending     PaymentStatus = "refund_pending"
	PaymentStatusCancelled         PaymentStatus = "cancelled"
)

var validPaymentStatuses = []PaymentStatus{
	PaymentStatusPending,
	PaymentStatusPaid,
	PaymentStatusFailed,
	PaymentStatusRefunded,
	PaymentStatusPartiallyRefunded,
	PaymentStatusRefundPending,
	PaymentStatusCancelled,
}

func (p PaymentStatus) String() string { return string(p) }

func (p PaymentStatus) IsValid() bool { return containsEnum(validPaymentStatuses, p) }

func ParsePaymentStatus(value string) (PaymentStatus, error) {
	return parseEnum(validPaymentStatuses, "payment status", value)
}
