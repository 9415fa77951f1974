package enums

// OutboxAggregateType names the aggregate an outbox row describes.
type OutboxAggregateType string

const (
	AggregateOrder      OutboxAggregateType = "order"
	AggregateOrderGroup OutboxAggregateType = "order_group"
)

var outboxAggregateTypes = []OutboxAggregateType{AggregateOrder, AggregateOrderGroup}

func (a OutboxAggregateType) IsValid() bool { return oneOf(a, outboxAggregateTypes) }

// OutboxEventType names the domain event carried by an outbox row.
type OutboxEventType string

const (
	EventOrderCreated            OutboxEventType = "order_created"
	EventOrderGroupStatusChanged OutboxEventType = "order_group_status_changed"
)

var outboxEventTypes = []OutboxEventType{EventOrderCreated, EventOrderGroupStatusChanged}

func (e OutboxEventType) IsValid() bool { return oneOf(e, outboxEventTypes) }

// OutboxDLQErrorReason records why a row was parked in the dead-letter table.
type OutboxDLQErrorReason string

const (
	OutboxDLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts"
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
)
