package enums

import "strings"

// PaymentMethod selects how an order is paid.
type PaymentMethod string

const (
	PaymentMethodOnline         PaymentMethod = "online"
	PaymentMethodCashOnDelivery PaymentMethod = "cash_on_delivery"
)

var validPaymentMethods = []PaymentMethod{
	PaymentMethodOnline,
	PaymentMethodCashOnDelivery,
}

var paymentMethodAliases = map[string]PaymentMethod{
	"razorpay": PaymentMethodOnline,
	"cod":      PaymentMethodCashOnDelivery,
}

func (m PaymentMethod) String() string { return string(m) }

func (m PaymentMethod) IsValid() bool { return containsEnum(validPaymentMethods, m) }

// ParsePaymentMethod accepts canonical names plus the legacy client aliases.
func ParsePaymentMethod(value string) (PaymentMethod, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if alias, ok := paymentMethodAliases[normalized]; ok {
		return alias, nil
	}
	return parseEnum(validPaymentMethods, "payment method", normalized)
}
