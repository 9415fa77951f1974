package cart

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/internal/shipping"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/money"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// Destination is the checkout's shipping country. Known is false when the
// country id did not match a stored country.
type Destination struct {
	CountryID uuid.UUID
	Known     bool
}

// PricedLine is a line annotated with its price and shipping fee.
type PricedLine struct {
	Line
	EffectiveUnitPrice decimal.Decimal `json:"effective_unit_price"`
	LineTotal          decimal.Decimal `json:"line_total"`
	ShippingFee        decimal.Decimal `json:"shipping_fee"`
	FreeShipping       bool            `json:"free_shipping"`
}

// Bucket holds one vendor's lines in cart order.
type Bucket struct {
	VendorID uuid.UUID            `json:"vendor_id"`
	Lines    []PricedLine         `json:"lines"`
	Rates    *shipping.Resolution `json:"rates,omitempty"`
}

// SubTotal is the sum of discounted line totals.
func (b Bucket) SubTotal() decimal.Decimal {
	total := decimal.Zero
	for _, l := range b.Lines {
		total = total.Add(l.LineTotal)
	}
	return total
}

// ShippingFees is the sum of line shipping fees.
func (b Bucket) ShippingFees() decimal.Decimal {
	total := decimal.Zero
	for _, l := range b.Lines {
		total = total.Add(l.ShippingFee)
	}
	return total
}

// Partition is the vendor split of a cart.
type Partition struct {
	Buckets  []Bucket
	Warnings types.CheckoutWarnings
}

// LineCount returns the number of lines across buckets.
func (p Partition) LineCount() int {
	n := 0
	for _, b := range p.Buckets {
		n += len(b.Lines)
	}
	return n
}

// RateTable maps vendor id to its resolution for the destination.
type RateTable map[uuid.UUID]shipping.Resolution

// Split groups lines by vendor, keeping cart order inside each bucket and
// ordering buckets by first appearance. Every line lands in exactly one bucket.
func Split(lines []Line, dest Destination, rates RateTable) (*Partition, error) {
	out := &Partition{}
	index := map[uuid.UUID]int{}

	if !dest.Known && len(lines) > 0 {
		out.Warnings = append(out.Warnings, types.CheckoutWarning{
			Code:    enums.CheckoutWarningUnknownDestination,
			Message: fmt.Sprintf("destination country %s not found; shipping set to 0 pending manual review", dest.CountryID),
		})
	}

	for _, line := range lines {
		if err := line.Validate(); err != nil {
			return nil, err
		}

		pos, ok := index[line.VendorID]
		if !ok {
			pos = len(out.Buckets)
			index[line.VendorID] = pos
			bucket := Bucket{VendorID: line.VendorID}
			if dest.Known {
				res, found := rates[line.VendorID]
				if !found {
					return nil, fmt.Errorf("no shipping rates loaded for vendor %s", line.VendorID)
				}
				bucket.Rates = &res
				if res.UsedFallback() {
					vendorID := line.VendorID
					out.Warnings = append(out.Warnings, types.CheckoutWarning{
						Code:     enums.CheckoutWarningRateFallback,
						Message:  "vendor shipping rates incomplete; platform defaults applied",
						VendorID: &vendorID,
						Fields:   res.FallbackFields,
					})
				}
			}
			out.Buckets = append(out.Buckets, bucket)
		}

		priced, warning, err := priceLine(line, dest, out.Buckets[pos].Rates)
		if err != nil {
			return nil, err
		}
		if warning != nil {
			out.Warnings = append(out.Warnings, *warning)
		}
		out.Buckets[pos].Lines = append(out.Buckets[pos].Lines, priced)
	}
	return out, nil
}

func priceLine(line Line, dest Destination, res *shipping.Resolution) (PricedLine, *types.CheckoutWarning, error) {
	unit := line.EffectiveUnitPrice()
	priced := PricedLine{
		Line:               line,
		EffectiveUnitPrice: unit,
		LineTotal:          money.Round(money.MulQty(unit, line.Quantity)),
		ShippingFee:        decimal.Zero,
		FreeShipping:       dest.Known && line.FreeShipping.Eligible(dest.CountryID),
	}
	if !dest.Known {
		return priced, nil, nil
	}

	method, err := shipping.MethodFor(line.FeeMethod)
	if err != nil {
		var unknown *shipping.UnknownMethodError
		if errors.As(err, &unknown) {
			vendorID, productID := line.VendorID, line.ProductID
			return priced, &types.CheckoutWarning{
				Code:      enums.CheckoutWarningUnknownFeeMethod,
				Message:   err.Error() + "; shipping set to 0",
				VendorID:  &vendorID,
				ProductID: &productID,
			}, nil
		}
		return PricedLine{}, nil, err
	}

	fee, err := shipping.CalculateFee(method, res.Rates, line.Quantity, line.UnitWeight, priced.FreeShipping)
	if err != nil {
		return PricedLine{}, nil, err
	}
	priced.ShippingFee = fee
	return priced, nil, nil
}
