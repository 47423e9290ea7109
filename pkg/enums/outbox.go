package enums

// OutboxEventType identifies a domain event persisted to the outbox table.
type OutboxEventType string

const (
	EventEnrollmentChanged  OutboxEventType = "enrollment.changed"
	EventBlockCompleted     OutboxEventType = "course.block_completed"
	EventCertificateRevoked OutboxEventType = "certificate.revoked"
)

func (t OutboxEventType) String() string {
	return string(t)
}

// OutboxAggregateType names the entity an outbox event belongs to.
type OutboxAggregateType string

const (
	AggregateEnrollment OutboxAggregateType = "enrollment"
	AggregateCompletion OutboxAggregateType = "completion"
	AggregateCredential OutboxAggregateType = "credential"
)

func (t OutboxAggregateType) String() string {
	return string(t)
}
