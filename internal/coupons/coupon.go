package coupons

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/money"
)

// EligibilityError explains why a coupon was not applied. It is never fatal
// to a checkout; the discount is dropped and a warning returned instead.
type EligibilityError struct {
	Code     string
	VendorID uuid.UUID
	Reason   enums.CouponRejectionReason
}

func (e *EligibilityError) Error() string {
	return fmt.Sprintf("coupon %q rejected for vendor %s: %s", e.Code, e.VendorID, e.Reason)
}

// Applied is a coupon accepted for one vendor group.
type Applied struct {
	CouponID        uuid.UUID       `json:"coupon_id"`
	Code            string          `json:"code"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
}

// NormalizeCode trims and upper-cases a coupon code for lookup.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Validate decides whether coupon applies to vendorID at now. The active
// window is inclusive on both ends. A nil coupon means the code was unknown.
func Validate(code string, coupon *models.Coupon, vendorID uuid.UUID, now time.Time) (*Applied, error) {
	reject := func(reason enums.CouponRejectionReason) (*Applied, error) {
		return nil, &EligibilityError{Code: code, VendorID: vendorID, Reason: reason}
	}
	if coupon == nil {
		return reject(enums.CouponRejectionNotFound)
	}
	if coupon.VendorID != vendorID {
		return reject(enums.CouponRejectionVendorMismatch)
	}
	if now.Before(coupon.StartsAt) {
		return reject(enums.CouponRejectionNotStarted)
	}
	if now.After(coupon.EndsAt) {
		return reject(enums.CouponRejectionExpired)
	}
	if coupon.MaxUses != nil && coupon.UsedCount >= *coupon.MaxUses {
		return reject(enums.CouponRejectionExhausted)
	}
	// The discount must lie in (0, 100].
	if money.ValidatePercent(coupon.DiscountPercent) != nil || !coupon.DiscountPercent.IsPositive() {
		return reject(enums.CouponRejectionBadDiscount)
	}
	return &Applied{
		CouponID:        coupon.ID,
		Code:            coupon.Code,
		DiscountPercent: coupon.DiscountPercent,
	}, nil
}
