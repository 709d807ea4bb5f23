package enums

// OutboxEventType names the domain events emitted by the payment module.
type OutboxEventType string

const (
	OutboxEventPaymentCollectionAuthorized OutboxEventType = "payment_collection.authorized"
	OutboxEventPaymentCaptured             OutboxEventType = "payment.captured"
	OutboxEventPaymentRefunded             OutboxEventType = "payment.refunded"
	OutboxEventPaymentCanceled             OutboxEventType = "payment.canceled"
)

// OutboxAggregateType names the aggregate an outbox event belongs to.
type OutboxAggregateType string

const (
	OutboxAggregatePaymentCollection OutboxAggregateType = "payment_collection"
	OutboxAggregatePayment           OutboxAggregateType = "payment"
)
