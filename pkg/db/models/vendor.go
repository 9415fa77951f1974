package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Vendor is a seller on the storefront together with its default shipping
// parameters. Nullable shipping columns mean "not configured".
type Vendor struct {
	ID                           uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	OwnerUserID                  uuid.UUID           `gorm:"column:owner_user_id;type:uuid;not null"`
	Name                         string              `gorm:"column:name;not null"`
	Slug                         string              `gorm:"column:slug;not null;uniqueIndex"`
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
	DeletedAt                    gorm.DeletedAt      `gorm:"column:deleted_at;index"`
}

func (v *Vendor) BeforeCreate(*gorm.DB) error {
	ensureID(&v.ID)
	return nil
}
