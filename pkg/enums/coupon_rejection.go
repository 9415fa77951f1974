package enums

// CouponRejectionReason explains why a coupon was not applied to a vendor group.
type CouponRejectionReason string

const (
	CouponRejectionNotFound       CouponRejectionReason = "not_found"
	CouponRejectionVendorMismatch CouponRejectionReason = "vendor_mismatch"
	CouponRejectionNotStarted     CouponRejectionReason = "not_started"
	CouponRejectionExpired        CouponRejectionReason = "expired"
	CouponRejectionExhausted      CouponRejectionReason = "usage_exhausted"
	CouponRejectionBadDiscount    CouponRejectionReason = "invalid_discount"
)

// String implements fmt.Stringer.
func (r CouponRejectionReason) String() string {
	return string(r)
}
