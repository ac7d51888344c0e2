package enums

// OutboxAggregateType names the entity an outbox event belongs to.
type OutboxAggregateType string

const (
	AggregateOrder        OutboxAggregateType = "order"
	AggregatePayment      OutboxAggregateType = "payment"
	AggregateDelivery     OutboxAggregateType = "delivery"
	AggregateSubscription OutboxAggregateType = "subscription"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateOrder,
	AggregatePayment,
	AggregateDelivery,
	AggregateSubscription,
}

func (a OutboxAggregateType) IsValid() bool { return containsEnum(validAggregateTypes, a) }

func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	return parseEnum(validAggregateTypes, "aggregate type", value)
}

// OutboxEventType names a domain event.
type OutboxEventType string

const (
	EventOrderCreated       OutboxEventType = "order.created"
	EventOrderCancelled     OutboxEventType = "order.cancelled"
	EventOrderStatusChanged OutboxEventType = "order.status_changed"
	EventOrderExpired       OutboxEventType = "order.expired"
	EventPaymentCaptured    OutboxEventType = "payment.captured"
	EventPaymentFailed      OutboxEventType = "payment.failed"
	EventPaymentRefunded    OutboxEventType = "payment.refunded"
	EventPaymentAbandoned   OutboxEventType = "payment.abandoned"
	EventDeliveryCreated    OutboxEventType = "delivery.created"
	EventDeliveryCompleted  OutboxEventType = "delivery.completed"
	EventSubscriptionDue    OutboxEventType = "subscription.due"
)

var validOutboxEventTypes = []OutboxEventType{
	EventOrderCreated,
	EventOrderCancelled,
	EventOrderStatusChanged,
	EventOrderExpired,
	EventPaymentCaptured,
	EventPaymentFailed,
	EventPaymentRefunded,
	EventPaymentAbandoned,
	EventDeliveryCreated,
	EventDeliveryCompleted,
	EventSubscriptionDue,
}

func (e OutboxEventType) String() string { return string(e) }

func (e OutboxEventType) IsValid() bool { return containsEnum(validOutboxEventTypes, e) }

func ParseOutboxEventType(value string) (OutboxEventType, error) {
	return parseEnum(validOutboxEventTypes, "event type", value)
}

type OutboxDLQErrorReason string

const (
	OutboxDLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts"
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
)
