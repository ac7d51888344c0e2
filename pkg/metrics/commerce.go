package metrics

import "github.com/prometheus/client_golang/prometheus"

// CommerceMetrics counts checkout, payment and delivery outcomes.
type CommerceMetrics struct {
	ordersPlaced       *prometheus.CounterVec
	checkoutFailures   *prometheus.CounterVec
	stockCompensations prometheus.Counter
	paymentsVerified   *prometheus.CounterVec
	refunds            prometheus.Counter
	deliveryOTP        *prometheus.CounterVec
}

func NewCommerceMetrics(reg prometheus.Registerer) *CommerceMetrics {
	if reg == nil {
		return &CommerceMetrics{}
	}
	m := &CommerceMetrics{
		ordersPlaced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "checkout",
			Name:      "orders_placed_total",
			Help:      "Orders successfully placed, by payment method.",
		}, []string{"payment_method"}),
		checkoutFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "checkout",
			Name:      "failures_total",
			Help:      "Failed order placements, by error code.",
		}, []string{"code"}),
		stockCompensations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "checkout",
			Name:      "compensations_total",
			Help:      "Compensating actions run after a failed sequential placement.",
		}),
		paymentsVerified: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "payments",
			Name:      "verifications_total",
			Help:      "Payment verification outcomes.",
		}, []string{"mode", "outcome"}),
		refunds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "payments",
			Name:      "refunds_total",
			Help:      "Refunds issued through the gateway.",
		}),
		deliveryOTP: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "deliveries",
			Name:      "otp_events_total",
			Help:      "Delivery OTP issue and verification results.",
		}, []string{"result"}),
	}
	reg.MustRegister(m.ordersPlaced, m.checkoutFailures, m.stockCompensations, m.paymentsVerified, m.refunds, m.deliveryOTP)
	return m
}

func (m *CommerceMetrics) OrderPlaced(paymentMethod string) {
	if m == nil || m.ordersPlaced == nil {
		return
	}
	m.ordersPlaced.WithLabelValues(normalizeLabel(paymentMethod)).Inc()
}

func (m *CommerceMetrics) CheckoutFailed(code string) {
	if m == nil || m.checkoutFailures == nil {
		return
	}
	m.checkoutFailures.WithLabelValues(normalizeLabel(code)).Inc()
}

func (m *CommerceMetrics) CompensationRan() {
	if m == nil || m.stockCompensations == nil {
		return
	}
	m.stockCompensations.Inc()
}

func (m *CommerceMetrics) PaymentVerified(mode, outcome string) {
	if m == nil || m.paymentsVerified == nil {
		return
	}
	m.paymentsVerified.WithLabelValues(normalizeLabel(mode), normalizeLabel(outcome)).Inc()
}

func (m *CommerceMetrics) RefundIssued() {
	if m == nil || m.refunds == nil {
		return
	}
	m.refunds.Inc()
}

func (m *CommerceMetrics) DeliveryOTP(result string) {
	if m == nil || m.deliveryOTP == nil {
		return
	}
	m.deliveryOTP.WithLabelValues(normalizeLabel(result)).Inc()
}
