package enums

// GatewayPaymentStatus mirrors the state of a gateway order on the payment row.
type GatewayPaymentStatus string

const (
	GatewayPaymentCreated           GatewayPaymentStatus = "created"
	GatewayPaymentAuthorized        GatewayPaymentStatus = "authorized"
	GatewayPaymentCaptured          GatewayPaymentStatus = "captured"
	GatewayPaymentFailed            GatewayPaymentStatus = "failed"
	GatewayPaymentRefunded          GatewayPaymentStatus = "refunded"
	GatewayPaymentPartiallyRefunded GatewayPaymentStatus = "partially_refunded"
)

var validGatewayPaymentStatuses = []GatewayPaymentStatus{
	GatewayPaymentCreated,
	GatewayPaymentAuthorized,
	GatewayPaymentCaptured,
	GatewayPaymentFailed,
	GatewayPaymentRefunded,
	GatewayPaymentPartiallyRefunded,
}

// verification never moves a payment out of these.
var settledGatewayPaymentStatuses = []GatewayPaymentStatus{
	GatewayPaymentCaptured,
	GatewayPaymentFailed,
	GatewayPaymentRefunded,
	GatewayPaymentPartiallyRefunded,
}

func (s GatewayPaymentStatus) String() string { return string(s) }

func (s GatewayPaymentStatus) IsValid() bool { return containsEnum(validGatewayPaymentStatuses, s) }

// IsSettled reports whether verification already ran for this payment.
func (s GatewayPaymentStatus) IsSettled() bool {
	return containsEnum(settledGatewayPaymentStatuses, s)
}

// IsRefundable reports whether a refund may be issued from this status.
func (s GatewayPaymentStatus) IsRefundable() bool {
	return s == GatewayPaymentCaptured || s == GatewayPaymentPartiallyRefunded
}

func ParseGatewayPaymentStatus(value string) (GatewayPaymentStatus, error) {
	return parseEnum(validGatewayPaymentStatuses, "gateway payment status", value)
}
