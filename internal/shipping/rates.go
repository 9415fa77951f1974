package shipping

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// Field names used in fallback diagnostics and resolution errors.
const (
	FieldService              = "service"
	FieldFeePerItem           = "fee_per_item"
	FieldFeeForAdditionalItem = "fee_for_additional_item"
	FieldFeePerKg             = "fee_per_kg"
	FieldFeeFixed             = "fee_fixed"
	FieldDeliveryTimeMin      = "delivery_time_min"
	FieldDeliveryTimeMax      = "delivery_time_max"
	FieldReturnPolicy         = "return_policy"
)

// Rates is one layer of shipping parameters. Every field is independently
// optional so a layer can distinguish an explicit zero from "not set".
type Rates struct {
	Service              *string             `json:"service" validate:"omitempty,max=120"`
	FeePerItem           decimal.NullDecimal `json:"fee_per_item" validate:"omitempty,gte=0"`
	FeeForAdditionalItem decimal.NullDecimal `json:"fee_for_additional_item" validate:"omitempty,gte=0"`
	FeePerKg             decimal.NullDecimal `json:"fee_per_kg" validate:"omitempty,gte=0"`
	FeeFixed             decimal.NullDecimal `json:"fee_fixed" validate:"omitempty,gte=0"`
	DeliveryTimeMin      *int                `json:"delivery_time_min" validate:"omitempty,gte=0"`
	DeliveryTimeMax      *int                `json:"delivery_time_max" validate:"omitempty,gte=0"`
	ReturnPolicy         *string             `json:"return_policy" validate:"omitempty,max=2000"`
}

// ResolvedRates is a fully populated rate bundle ready for fee calculation.
type ResolvedRates struct {
	Service              string          `json:"service"`
	FeePerItem           decimal.Decimal `json:"fee_per_item"`
	FeeForAdditionalItem decimal.Decimal `json:"fee_for_additional_item"`
	FeePerKg             decimal.Decimal `json:"fee_per_kg"`
	FeeFixed             decimal.Decimal `json:"fee_fixed"`
	DeliveryTimeMin      int             `json:"delivery_time_min"`
	DeliveryTimeMax      int             `json:"delivery_time_max"`
	ReturnPolicy         string          `json:"return_policy"`
}

// Overlay returns r with every unset field taken from fallback.
func (r Rates) Overlay(fallback Rates) Rates {
	out := r
	if out.Service == nil {
		out.Service = fallback.Service
	}
	if !out.FeePerItem.Valid {
		out.FeePerItem = fallback.FeePerItem
	}
	if !out.FeeForAdditionalItem.Valid {
		out.FeeForAdditionalItem = fallback.FeeForAdditionalItem
	}
	if !out.FeePerKg.Valid {
		out.FeePerKg = fallback.FeePerKg
	}
	if !out.FeeFixed.Valid {
		out.FeeFixed = fallback.FeeFixed
	}
	if out.DeliveryTimeMin == nil {
		out.DeliveryTimeMin = fallback.DeliveryTimeMin
	}
	if out.DeliveryTimeMax == nil {
		out.DeliveryTimeMax = fallback.DeliveryTimeMax
	}
	if out.ReturnPolicy == nil {
		out.ReturnPolicy = fallback.ReturnPolicy
	}
	return out
}

// MissingFields lists the fields that are not set, in declaration order.
func (r Rates) MissingFields() []string {
	var missing []string
	if r.Service == nil {
		missing = append(missing, FieldService)
	}
	if !r.FeePerItem.Valid {
		missing = append(missing, FieldFeePerItem)
	}
	if !r.FeeForAdditionalItem.Valid {
		missing = append(missing, FieldFeeForAdditionalItem)
	}
	if !r.FeePerKg.Valid {
		missing = append(missing, FieldFeePerKg)
	}
	if !r.FeeFixed.Valid {
		missing = append(missing, FieldFeeFixed)
	}
	if r.DeliveryTimeMin == nil {
		missing = append(missing, FieldDeliveryTimeMin)
	}
	if r.DeliveryTimeMax == nil {
		missing = append(missing, FieldDeliveryTimeMax)
	}
	if r.ReturnPolicy == nil {
		missing = append(missing, FieldReturnPolicy)
	}
	return missing
}

// IsEmpty reports whether no field is set.
func (r Rates) IsEmpty() bool {
	return len(r.MissingFields()) == 8
}

// Resolved converts a complete layer into ResolvedRates. Incomplete layers
// return the list of missing fields.
func (r Rates) Resolved() (ResolvedRates, []string) {
	if missing := r.MissingFields(); len(missing) > 0 {
		return ResolvedRates{}, missing
	}
	return ResolvedRates{
		Service:              *r.Service,
		FeePerItem:           r.FeePerItem.Decimal,
		FeeForAdditionalItem: r.FeeForAdditionalItem.Decimal,
		FeePerKg:             r.FeePerKg.Decimal,
		FeeFixed:             r.FeeFixed.Decimal,
		DeliveryTimeMin:      *r.DeliveryTimeMin,
		DeliveryTimeMax:      *r.DeliveryTimeMax,
		ReturnPolicy:         *r.ReturnPolicy,
	}, nil
}

// RatesFromVendor reads the vendor default layer.
func RatesFromVendor(v models.Vendor) Rates {
	return Rates{
		Service:              v.ShippingService,
		FeePerItem:           v.ShippingFeePerItem,
		FeeForAdditionalItem: v.ShippingFeeForAdditionalItem,
		FeePerKg:             v.ShippingFeePerKg,
		FeeFixed:             v.ShippingFeeFixed,
		DeliveryTimeMin:      v.DeliveryTimeMin,
		DeliveryTimeMax:      v.DeliveryTimeMax,
		ReturnPolicy:         v.ReturnPolicy,
	}
}

// RatesFromOverride reads a (vendor, country) override layer.
func RatesFromOverride(o models.ShippingRateOverride) Rates {
	return Rates{
		Service:              o.ShippingService,
		FeePerItem:           o.ShippingFeePerItem,
		FeeForAdditionalItem: o.ShippingFeeForAdditionalItem,
		FeePerKg:             o.ShippingFeePerKg,
		FeeFixed:             o.ShippingFeeFixed,
		DeliveryTimeMin:      o.DeliveryTimeMin,
		DeliveryTimeMax:      o.DeliveryTimeMax,
		ReturnPolicy:         o.ReturnPolicy,
	}
}

// PlatformRates is the always-complete platform default layer.
func PlatformRates(cfg config.ShippingConfig) Rates {
	service := cfg.DefaultService
	policy := cfg.DefaultReturnPolicy
	minDays := cfg.DefaultDeliveryTimeMin
	maxDays := cfg.DefaultDeliveryTimeMax
	return Rates{
		Service:              &service,
		FeePerItem:           decimal.NewNullDecimal(cfg.DefaultFeePerItem),
		FeeForAdditionalItem: decimal.NewNullDecimal(cfg.DefaultFeeForAdditionalItem),
		FeePerKg:             decimal.NewNullDecimal(cfg.DefaultFeePerKg),
		FeeFixed:             decimal.NewNullDecimal(cfg.DefaultFeeFixed),
		DeliveryTimeMin:      &minDays,
		DeliveryTimeMax:      &maxDays,
		ReturnPolicy:         &policy,
	}
}

func (r Rates) applyToVendor(v *models.Vendor) {
	v.ShippingService = r.Service
	v.ShippingFeePerItem = r.FeePerItem
	v.ShippingFeeForAdditionalItem = r.FeeForAdditionalItem
	v.ShippingFeePerKg = r.FeePerKg
	v.ShippingFeeFixed = r.FeeFixed
	v.DeliveryTimeMin = r.DeliveryTimeMin
	v.DeliveryTimeMax = r.DeliveryTimeMax
	v.ReturnPolicy = r.ReturnPolicy
}

func (r Rates) toOverride(vendorID, countryID uuid.UUID) models.ShippingRateOverride {
	return models.ShippingRateOverride{
		VendorID:                     vendorID,
		CountryID:                    countryID,
		ShippingService:              r.Service,
		ShippingFeePerItem:           r.FeePerItem,
		ShippingFeeForAdditionalItem: r.FeeForAdditionalItem,
		ShippingFeePerKg:             r.FeePerKg,
		ShippingFeeFixed:             r.FeeFixed,
		DeliveryTimeMin:              r.DeliveryTimeMin,
		DeliveryTimeMax:              r.DeliveryTimeMax,
		ReturnPolicy:                 r.ReturnPolicy,
	}
}

// Validate rejects negative fees and an inverted delivery window.
func (r Rates) Validate() error {
	for field, fee := range map[string]decimal.NullDecimal{
		FieldFeePerItem:           r.FeePerItem,
		FieldFeeForAdditionalItem: r.FeeForAdditionalItem,
		FieldFeePerKg:             r.FeePerKg,
		FieldFeeFixed:             r.FeeFixed,
	} {
		if fee.Valid && fee.Decimal.IsNegative() {
			return invalidField(field, "must not be negative")
		}
	}
	if r.DeliveryTimeMin != nil && *r.DeliveryTimeMin < 0 {
		return invalidField(FieldDeliveryTimeMin, "must not be negative")
	}
	if r.DeliveryTimeMin != nil && r.DeliveryTimeMax != nil && *r.DeliveryTimeMax < *r.DeliveryTimeMin {
		return invalidField(FieldDeliveryTimeMax, "must not be before delivery_time_min")
	}
	return nil
}
