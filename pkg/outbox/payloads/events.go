package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// OrderCreatedEvent is emitted once per committed checkout.
type OrderCreatedEvent struct {
	OrderID     uuid.UUID         `json:"order_id"`
	UserID      uuid.UUID         `json:"user_id"`
	CountryID   uuid.UUID         `json:"country_id"`
	Total       decimal.Decimal   `json:"total"`
	Groups      []OrderGroupRef   `json:"groups"`
	CouponCodes []string          `json:"coupon_codes,omitempty"`
	Status      enums.OrderStatus `json:"status"`
	PlacedAt    time.Time         `json:"placed_at"`
}

// OrderGroupRef summarizes one vendor's share of an order.
type OrderGroupRef struct {
	OrderGroupID uuid.UUID       `json:"order_group_id"`
	VendorID     uuid.UUID       `json:"vendor_id"`
	ShippingFee  decimal.Decimal `json:"shipping_fee"`
	Total        decimal.Decimal `json:"total"`
	ItemCount    int             `json:"item_count"`
}

// OrderGroupStatusChangedEvent is emitted when a vendor moves its group forward.
type OrderGroupStatusChangedEvent struct {
	OrderID        uuid.UUID               `json:"order_id"`
	OrderGroupID   uuid.UUID               `json:"order_group_id"`
	VendorID       uuid.UUID               `json:"vendor_id"`
	PreviousStatus enums.FulfillmentStatus `json:"previous_status"`
	Status         enums.FulfillmentStatus `json:"status"`
	OrderStatus    enums.OrderStatus       `json:"order_status"`
	ChangedAt      time.Time               `json:"changed_at"`
}

// OrderingKey keeps every event of one order on a single Pub/Sub ordering
// key, so a group status change never overtakes the order it belongs to.
func (e *OrderCreatedEvent) OrderingKey() string { return orderKey(e.OrderID) }

func (e *OrderGroupStatusChangedEvent) OrderingKey() string { return orderKey(e.OrderID) }

func orderKey(id uuid.UUID) string {
	if id == uuid.Nil {
		return ""
	}
	return id.String()
}
