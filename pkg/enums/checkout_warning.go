package enums

// CheckoutWarningCode enumerates recoverable conditions surfaced alongside a
// checkout result.
type CheckoutWarningCode string

const (
	CheckoutWarningRateFallback       CheckoutWarningCode = "shipping_rate_fallback"
	CheckoutWarningUnknownDestination CheckoutWarningCode = "unknown_destination"
	CheckoutWarningUnknownFeeMethod   CheckoutWarningCode = "unknown_fee_method"
	CheckoutWarningCouponRejected     CheckoutWarningCode = "coupon_rejected"
	CheckoutWarningCouponExhausted    CheckoutWarningCode = "coupon_usage_exhausted"
)

var checkoutWarningCodes = []CheckoutWarningCode{
	CheckoutWarningRateFallback,
	CheckoutWarningUnknownDestination,
	CheckoutWarningUnknownFeeMethod,
	CheckoutWarningCouponRejected,
	CheckoutWarningCouponExhausted,
}

func (c CheckoutWarningCode) String() string { return string(c) }

func (c CheckoutWarningCode) IsValid() bool { return oneOf(c, checkoutWarningCodes) }

func ParseCheckoutWarningCode(value string) (CheckoutWarningCode, error) {
	return parse(value, "checkout warning code", checkoutWarningCodes)
}
