package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ShippingRateOverride replaces individual vendor defaults for one destination country.
type ShippingRateOverride struct {
	ID                           uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	VendorID                     uuid.UUID           `gorm:"column:vendor_id;type:uuid;not null;uniqueIndex:ux_shipping_rate_overrides_vendor_country"`
	CountryID                    uuid.UUID           `gorm:"column:country_id;type:uuid;not null;uniqueIndex:ux_shipping_rate_overrides_vendor_country"`
	ShippingService              *string             `gorm:"column:shipping_service"`
	ShippingFeePerItem           decimal.NullDecimal `gorm:"column:shipping_fee_per_item;type:numeric(12,2)"`
	ShippingFeeForAdditionalItem decimal.NullDecimal `gorm:"column:shipping_fee_for_additional_item;type:numeric(12,2)"`
	ShippingFeePerKg             decimal.NullDecimal `gorm:"column:shipping_fee_per_kg;type:numeric(12,2)"`
	ShippingFeeFixed             decimal.NullDecimal `gorm:"column:shipping_fee_fixed;type:numeric(12,2)"`
	DeliveryTimeMin              *int                `gorm:"column:delivery_time_min"`
	DeliveryTimeMax              *int                `gorm:"column:delivery_time_max"`
	ReturnPolicy                 *string             `gorm:"column:return_policy"`
	CreatedAt                    time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt                    time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *ShippingRateOverride) BeforeCreate(*gorm.DB) error {
	ensureID(&o.ID)
	return nil
}
