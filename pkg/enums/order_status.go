package enums

// OrderStatus is the buyer-facing status of a whole order, derived from its groups.
type OrderStatus string

const (
	OrderStatusPending          OrderStatus = "pending"
	OrderStatusProcessing       OrderStatus = "processing"
	OrderStatusPartiallyShipped OrderStatus = "partially_shipped"
	OrderStatusShipped          OrderStatus = "shipped"
	OrderStatusDelivered        OrderStatus = "delivered"
	OrderStatusCancelled        OrderStatus = "cancelled"
)

var orderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusProcessing,
	OrderStatusPartiallyShipped,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

func (s OrderStatus) String() string { return string(s) }

func (s OrderStatus) IsValid() bool { return oneOf(s, orderStatuses) }

func ParseOrderStatus(value string) (OrderStatus, error) {
	return parse(value, "order status", orderStatuses)
}

// DeriveOrderStatus folds group statuses into the order status. Cancelled
// groups are ignored unless every group is cancelled.
func DeriveOrderStatus(groups []FulfillmentStatus) OrderStatus {
	var active, processing, shipped, delivered int
	for _, status := range groups {
		switch status {
		case FulfillmentStatusCancelled:
			continue
		case FulfillmentStatusProcessing:
			processing++
		case FulfillmentStatusShipped:
			shipped++
		case FulfillmentStatusDelivered:
			delivered++
		}
		active++
	}
	switch {
	case active == 0 && len(groups) > 0:
		return OrderStatusCancelled
	case active == 0:
		return OrderStatusPending
	case delivered == active:
		return OrderStatusDelivered
	case shipped+delivered == active:
		return OrderStatusShipped
	case shipped+delivered > 0:
		return OrderStatusPartiallyShipped
	case processing > 0:
		return OrderStatusProcessing
	}
	return OrderStatusPending
}
