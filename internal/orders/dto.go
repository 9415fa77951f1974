package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// OrderSummary is one row of the customer order list.
type OrderSummary struct {
	ID            uuid.UUID           `json:"id"`
	CreatedAt     time.Time           `json:"created_at"`
	SubTotal      decimal.Decimal     `json:"sub_total"`
	ShippingFees  decimal.Decimal     `json:"shipping_fees"`
	Total         decimal.Decimal     `json:"total"`
	Status        enums.OrderStatus   `json:"status"`
	PaymentStatus enums.PaymentStatus `json:"payment_status"`
	VendorCount   int                 `json:"vendor_count"`
}

// OrderList wraps the paginated orders plus the next page cursor.
type OrderList struct {
	Orders     []OrderSummary `json:"orders"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

// OrderDetail is the full order aggregate as returned to customers.
type OrderDetail struct {
	ID              uuid.UUID           `json:"id"`
	UserID          uuid.UUID           `json:"user_id"`
	CountryID       uuid.UUID           `json:"country_id"`
	ShippingAddress *types.Address      `json:"shipping_address,omitempty"`
	SubTotal        decimal.Decimal     `json:"sub_total"`
	ShippingFees    decimal.Decimal     `json:"shipping_fees"`
	Total           decimal.Decimal     `json:"total"`
	Status          enums.OrderStatus   `json:"status"`
	PaymentStatus   enums.PaymentStatus `json:"payment_status"`
	CreatedAt       time.Time           `json:"created_at"`
	Groups          []GroupDetail       `json:"groups"`
}

// GroupDetail is one vendor's share of an order.
type GroupDetail struct {
	ID                    uuid.UUID               `json:"id"`
	VendorID              uuid.UUID               `json:"vendor_id"`
	SubTotal              decimal.Decimal         `json:"sub_total"`
	ShippingFees          decimal.Decimal         `json:"shipping_fees"`
	Total                 decimal.Decimal         `json:"total"`
	Status                enums.FulfillmentStatus `json:"status"`
	CouponID              *uuid.UUID              `json:"coupon_id,omitempty"`
	CouponDiscountPercent *decimal.Decimal        `json:"coupon_discount_percent,omitempty"`
	ShippingService       string                  `json:"shipping_service"`
	DeliveryTimeMin       int                     `json:"delivery_time_min"`
	DeliveryTimeMax       int                     `json:"delivery_time_max"`
	ReturnPolicy          string                  `json:"return_policy"`
	Warnings              types.CheckoutWarnings  `json:"warnings,omitempty"`
	Items                 []ItemDetail            `json:"items"`
}

// ItemDetail is one purchased size.
type ItemDetail struct {
	ID                uuid.UUID               `json:"id"`
	ProductID         uuid.UUID               `json:"product_id"`
	VariantID         uuid.UUID               `json:"variant_id"`
	SizeID            uuid.UUID               `json:"size_id"`
	ProductName       string                  `json:"product_name"`
	Quantity          int                     `json:"quantity"`
	UnitPrice         decimal.Decimal         `json:"unit_price"`
	ListPrice         decimal.Decimal         `json:"list_price"`
	DiscountPercent   decimal.Decimal         `json:"discount_percent"`
	TotalPrice        decimal.Decimal         `json:"total_price"`
	ShippingFee       decimal.Decimal         `json:"shipping_fee"`
	ShippingFeeMethod enums.ShippingFeeMethod `json:"shipping_fee_method"`
	FreeShipping      bool                    `json:"free_shipping"`
	Status            enums.FulfillmentStatus `json:"status"`
}

// NewOrderDetail maps a loaded aggregate onto its response shape.
func NewOrderDetail(order *models.Order) *OrderDetail {
	if order == nil {
		return nil
	}
	out := &OrderDetail{
		ID:              order.ID,
		UserID:          order.UserID,
		CountryID:       order.CountryID,
		ShippingAddress: order.ShippingAddress,
		SubTotal:        order.SubTotal,
		ShippingFees:    order.ShippingFees,
		Total:           order.Total,
		Status:          order.Status,
		PaymentStatus:   order.PaymentStatus,
		CreatedAt:       order.CreatedAt,
		Groups:          make([]GroupDetail, 0, len(order.Groups)),
	}
	for _, g := range order.Groups {
		group := GroupDetail{
			ID:              g.ID,
			VendorID:        g.VendorID,
			SubTotal:        g.SubTotal,
			ShippingFees:    g.ShippingFees,
			Total:           g.Total,
			Status:          g.Status,
			CouponID:        g.CouponID,
			ShippingService: g.ShippingService,
			DeliveryTimeMin: g.DeliveryTimeMin,
			DeliveryTimeMax: g.DeliveryTimeMax,
			ReturnPolicy:    g.ReturnPolicy,
			Warnings:        g.Warnings,
			Items:           make([]ItemDetail, 0, len(g.Items)),
		}
		if g.CouponDiscountPercent.Valid {
			pct := g.CouponDiscountPercent.Decimal
			group.CouponDiscountPercent = &pct
		}
		for _, item := range g.Items {
			group.Items = append(group.Items, ItemDetail{
				ID:                item.ID,
				ProductID:         item.ProductID,
				VariantID:         item.VariantID,
				SizeID:            item.SizeID,
				ProductName:       item.ProductName,
				Quantity:          item.Quantity,
				UnitPrice:         item.UnitPrice,
				ListPrice:         item.ListPrice,
				DiscountPercent:   item.DiscountPercent,
				TotalPrice:        item.TotalPrice,
				ShippingFee:       item.ShippingFee,
				ShippingFeeMethod: item.ShippingFeeMethod,
				FreeShipping:      item.FreeShipping,
				Status:            item.Status,
			})
		}
		out.Groups = append(out.Groups, group)
	}
	return out
}
