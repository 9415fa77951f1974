package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// Order is the buyer-facing aggregate produced by one checkout.
type Order struct {
	ID              uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	UserID          uuid.UUID           `gorm:"column:user_id;type:uuid;not null;index"`
	CountryID       uuid.UUID           `gorm:"column:country_id;type:uuid;not null"`
	ShippingAddress *types.Address      `gorm:"column:shipping_address;type:jsonb;serializer:json"`
	SubTotal        decimal.Decimal     `gorm:"column:sub_total;type:numeric(12,2);not null"`
	ShippingFees    decimal.Decimal     `gorm:"column:shipping_fees;type:numeric(12,2);not null"`
	Total           decimal.Decimal     `gorm:"column:total;type:numeric(12,2);not null"`
	Status          enums.OrderStatus   `gorm:"column:status;type:text;not null;default:'pending'"`
	PaymentStatus   enums.PaymentStatus `gorm:"column:payment_status;type:text;not null;default:'pending'"`
	Groups          []OrderGroup        `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	ensureID(&o.ID)
	return nil
}

// OrderGroup holds one vendor's share of an order.
type OrderGroup struct {
	ID       uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	OrderID  uuid.UUID `gorm:"column:order_id;type:uuid;not null;index"`
	VendorID uuid.UUID `gorm:"column:vendor_id;type:uuid;not null;index"`
	// Position is the vendor's bucket index in the cart.
	Position              int                     `gorm:"column:position;not null;default:0"`
	SubTotal              decimal.Decimal         `gorm:"column:sub_total;type:numeric(12,2);not null"`
	ShippingFees          decimal.Decimal         `gorm:"column:shipping_fees;type:numeric(12,2);not null"`
	Total                 decimal.Decimal         `gorm:"column:total;type:numeric(12,2);not null"`
	CouponID              *uuid.UUID              `gorm:"column:coupon_id;type:uuid"`
	CouponDiscountPercent decimal.NullDecimal     `gorm:"column:coupon_discount_percent;type:numeric(5,2)"`
	ShippingService       string                  `gorm:"column:shipping_service;not null"`
	DeliveryTimeMin       int                     `gorm:"column:delivery_time_min;not null"`
	DeliveryTimeMax       int                     `gorm:"column:delivery_time_max;not null"`
	ReturnPolicy          string                  `gorm:"column:return_policy;not null"`
	Status                enums.FulfillmentStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	Warnings              types.CheckoutWarnings  `gorm:"column:warnings;type:jsonb;serializer:json"`
	Items                 []OrderItem             `gorm:"foreignKey:OrderGroupID;constraint:OnDelete:CASCADE"`
	CreatedAt             time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}

func (g *OrderGroup) BeforeCreate(*gorm.DB) error {
	ensureID(&g.ID)
	return nil
}

// OrderItem is a priced, shipped line inside an order group.
type OrderItem struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	OrderGroupID uuid.UUID `gorm:"column:order_group_id;type:uuid;not null;index"`
	Position     int       `gorm:"column:position;not null;default:0"`
	ProductID    uuid.UUID `gorm:"column:product_id;type:uuid;not null"`
	VariantID    uuid.UUID `gorm:"column:variant_id;type:uuid;not null"`
	SizeID       uuid.UUID `gorm:"column:size_id;type:uuid;not null"`
	ProductName  string    `gorm:"column:product_name;not null"`
	Quantity     int       `gorm:"column:quantity;not null"`
	// UnitPrice is after the line discount; ListPrice is the catalog price before it.
	UnitPrice         decimal.Decimal         `gorm:"column:unit_price;type:numeric(12,2);not null"`
	ListPrice         decimal.Decimal         `gorm:"column:list_price;type:numeric(12,2);not null;default:0"`
	DiscountPercent   decimal.Decimal         `gorm:"column:discount_percent;type:numeric(5,2);not null;default:0"`
	TotalPrice        decimal.Decimal         `gorm:"column:total_price;type:numeric(12,2);not null"`
	ShippingFee       decimal.Decimal         `gorm:"column:shipping_fee;type:numeric(12,2);not null"`
	ShippingFeeMethod enums.ShippingFeeMethod `gorm:"column:shipping_fee_method;type:text;not null"`
	FreeShipping      bool                    `gorm:"column:free_shipping;not null;default:false"`
	Status            enums.FulfillmentStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	CreatedAt         time.Time               `gorm:"column:created_at;autoCreateTime"`
}

func (i *OrderItem) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}
