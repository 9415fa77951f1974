package enums

// ShippingFeeMethod selects the formula used to price shipping for a product.
type ShippingFeeMethod string

const (
	ShippingFeeMethodItem   ShippingFeeMethod = "item"
	ShippingFeeMethodWeight ShippingFeeMethod = "weight"
	ShippingFeeMethodFixed  ShippingFeeMethod = "fixed"
)

var shippingFeeMethods = []ShippingFeeMethod{
	ShippingFeeMethodItem,
	ShippingFeeMethodWeight,
	ShippingFeeMethodFixed,
}

func (m ShippingFeeMethod) String() string { return string(m) }

func (m ShippingFeeMethod) IsValid() bool { return oneOf(m, shippingFeeMethods) }

// ParseShippingFeeMethod is case-insensitive, so "ITEM" and "item" are the
// same method.
func ParseShippingFeeMethod(value string) (ShippingFeeMethod, error) {
	return parse(value, "shipping fee method", shippingFeeMethods)
}
