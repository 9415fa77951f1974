package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Coupon is a vendor-scoped percentage discount valid between StartsAt and
// EndsAt inclusive. MaxUses nil means unlimited.
type Coupon struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	VendorID        uuid.UUID       `gorm:"column:vendor_id;type:uuid;not null;uniqueIndex:ux_coupons_vendor_code"`
	Code            string          `gorm:"column:code;not null;uniqueIndex:ux_coupons_vendor_code"`
	DiscountPercent decimal.Decimal `gorm:"column:discount_percent;type:numeric(5,2);not null;check:chk_coupons_discount_percent,discount_percent > 0 AND discount_percent <= 100"`
	StartsAt        time.Time       `gorm:"column:starts_at;not null"`
	EndsAt          time.Time       `gorm:"column:ends_at;not null"`
	MaxUses         *int            `gorm:"column:max_uses"`
	UsedCount       int             `gorm:"column:used_count;not null;default:0"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (c *Coupon) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}
