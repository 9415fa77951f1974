package enums

import "slices"

// FulfillmentStatus tracks a vendor group and its items from placement to
// delivery.
type FulfillmentStatus string

const (
	FulfillmentStatusPending    FulfillmentStatus = "pending"
	FulfillmentStatusProcessing FulfillmentStatus = "processing"
	FulfillmentStatusShipped    FulfillmentStatus = "shipped"
	FulfillmentStatusDelivered  FulfillmentStatus = "delivered"
	FulfillmentStatusCancelled  FulfillmentStatus = "cancelled"
)

var fulfillmentStatuses = []FulfillmentStatus{
	FulfillmentStatusPending,
	FulfillmentStatusProcessing,
	FulfillmentStatusShipped,
	FulfillmentStatusDelivered,
	FulfillmentStatusCancelled,
}

// Delivered and cancelled have no successors.
var fulfillmentTransitions = map[FulfillmentStatus][]FulfillmentStatus{
	FulfillmentStatusPending:    {FulfillmentStatusProcessing, FulfillmentStatusCancelled},
	FulfillmentStatusProcessing: {FulfillmentStatusShipped, FulfillmentStatusCancelled},
	FulfillmentStatusShipped:    {FulfillmentStatusDelivered},
}

func (s FulfillmentStatus) String() string { return string(s) }

func (s FulfillmentStatus) IsValid() bool { return oneOf(s, fulfillmentStatuses) }

func (s FulfillmentStatus) IsTerminal() bool {
	return len(fulfillmentTransitions[s]) == 0
}

// CanTransitionTo reports whether next is a legal successor of s.
func (s FulfillmentStatus) CanTransitionTo(next FulfillmentStatus) bool {
	return slices.Contains(fulfillmentTransitions[s], next)
}

func ParseFulfillmentStatus(value string) (FulfillmentStatus, error) {
	return parse(value, "fulfillment status", fulfillmentStatuses)
}
