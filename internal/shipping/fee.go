package shipping

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/money"
)

// Method is the closed set of fee formulas. Only ItemFee, WeightFee and
// FixedFee implement it.
type Method interface {
	Kind() enums.ShippingFeeMethod
	fee(r ResolvedRates, qty int, unitWeight decimal.Decimal) (decimal.Decimal, error)
}

// ItemFee charges feePerItem for the first unit and feeForAdditionalItem for each further unit.
type ItemFee struct{}

// WeightFee charges feePerKg on the total line weight.
type WeightFee struct{}

// FixedFee charges feeFixed once per line.
type FixedFee struct{}

func (ItemFee) Kind() enums.ShippingFeeMethod   { return enums.ShippingFeeMethodItem }
func (WeightFee) Kind() enums.ShippingFeeMethod { return enums.ShippingFeeMethodWeight }
func (FixedFee) Kind() enums.ShippingFeeMethod  { return enums.ShippingFeeMethodFixed }

func (ItemFee) fee(r ResolvedRates, qty int, _ decimal.Decimal) (decimal.Decimal, error) {
	return r.FeePerItem.Add(money.MulQty(r.FeeForAdditionalItem, qty-1)), nil
}

func (WeightFee) fee(r ResolvedRates, qty int, unitWeight decimal.Decimal) (decimal.Decimal, error) {
	if !unitWeight.IsPositive() {
		return decimal.Zero, pkgerrors.Validation(fmt.Sprintf("unit weight must be positive, got %s", unitWeight))
	}
	return money.MulQty(r.FeePerKg.Mul(unitWeight), qty), nil
}

func (FixedFee) fee(r ResolvedRates, _ int, _ decimal.Decimal) (decimal.Decimal, error) {
	return r.FeeFixed, nil
}

// UnknownMethodError is returned when a stored fee method has no formula.
type UnknownMethodError struct {
	Raw string
}

func (e *UnknownMethodError) Error() string {
	return fmt.Sprintf("unknown shipping fee method %q", e.Raw)
}

// MethodFor maps the stored enum onto its formula.
func MethodFor(method enums.ShippingFeeMethod) (Method, error) {
	switch method {
	case enums.ShippingFeeMethodItem:
		return ItemFee{}, nil
	case enums.ShippingFeeMethodWeight:
		return WeightFee{}, nil
	case enums.ShippingFeeMethodFixed:
		return FixedFee{}, nil
	}
	return nil, &UnknownMethodError{Raw: string(method)}
}

// CalculateFee prices shipping for one line. Free-shipping lines cost 0 under
// every method. The result is rounded to currency precision.
func CalculateFee(method Method, rates ResolvedRates, qty int, unitWeight decimal.Decimal, freeShipping bool) (decimal.Decimal, error) {
	if qty < 1 {
		return decimal.Zero, pkgerrors.Validation(fmt.Sprintf("quantity must be at least 1, got %d", qty))
	}
	if method == nil {
		return decimal.Zero, pkgerrors.Validation("shipping fee method required")
	}
	if freeShipping {
		return decimal.Zero, nil
	}
	fee, err := method.fee(rates, qty, unitWeight)
	if err != nil {
		return decimal.Zero, err
	}
	return money.Round(fee), nil
}
