package cart

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/internal/shipping"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/money"
)

// Line is a cart item joined with the catalog data needed for pricing.
type Line struct {
	CartItemID      uuid.UUID               `json:"cart_item_id"`
	VendorID        uuid.UUID               `json:"vendor_id"`
	ProductID       uuid.UUID               `json:"product_id"`
	VariantID       uuid.UUID               `json:"variant_id"`
	SizeID          uuid.UUID               `json:"size_id"`
	ProductName     string                  `json:"product_name"`
	Quantity        int                     `json:"quantity"`
	UnitWeight      decimal.Decimal         `json:"unit_weight_kg"`
	UnitPrice       decimal.Decimal         `json:"unit_price"`
	DiscountPercent decimal.Decimal         `json:"discount_percent"`
	FeeMethod       enums.ShippingFeeMethod `json:"shipping_fee_method"`
	FreeShipping    shipping.FreeShipping   `json:"-"`
	Available       int                     `json:"-"`
}

// Validate checks the line invariants required before pricing.
func (l Line) Validate() error {
	if l.Quantity < 1 {
		return lineErr(l, fmt.Sprintf("quantity must be at least 1, got %d", l.Quantity))
	}
	if !l.UnitWeight.IsPositive() {
		return lineErr(l, "unit weight must be positive")
	}
	if l.UnitPrice.IsNegative() {
		return lineErr(l, "unit price must not be negative")
	}
	if err := money.ValidatePercent(l.DiscountPercent); err != nil {
		return lineErr(l, err.Error())
	}
	return nil
}

// EffectiveUnitPrice is the unit price after the line discount, rounded.
func (l Line) EffectiveUnitPrice() decimal.Decimal {
	return money.ApplyDiscount(l.UnitPrice, l.DiscountPercent)
}

func lineErr(l Line, msg string) error {
	return pkgerrors.Validation(msg).WithDetails(map[string]any{
		"product_id": l.ProductID,
		"size_id":    l.SizeID,
	})
}
