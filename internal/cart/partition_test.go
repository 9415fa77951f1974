package cart

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/internal/shipping"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

func dec(raw string) decimal.Decimal { return decimal.RequireFromString(raw) }

func resolution(vendorID uuid.UUID, perItem, additional, perKg, fixed string) shipping.Resolution {
	return shipping.Resolution{
		VendorID: vendorID,
		Rates: shipping.ResolvedRates{
			Service:              "standard",
			FeePerItem:           dec(perItem),
			FeeForAdditionalItem: dec(additional),
			FeePerKg:             dec(perKg),
			FeeFixed:             dec(fixed),
			DeliveryTimeMin:      2,
			DeliveryTimeMax:      5,
		},
	}
}

func line(vendorID uuid.UUID, qty int, price string, method enums.ShippingFeeMethod) Line {
	return Line{
		CartItemID:      uuid.New(),
		VendorID:        vendorID,
		ProductID:       uuid.New(),
		VariantID:       uuid.New(),
		SizeID:          uuid.New(),
		Quantity:        qty,
		UnitWeight:      dec("1"),
		UnitPrice:       dec(price),
		DiscountPercent: decimal.Zero,
		FeeMethod:       method,
	}
}

func TestSplitIsLosslessAndOrderPreserving(t *testing.T) {
	v1, v2, v3 := uuid.New(), uuid.New(), uuid.New()
	dest := Destination{CountryID: uuid.New(), Known: true}
	rates := RateTable{
		v1: resolution(v1, "5", "2", "1", "8"),
		v2: resolution(v2, "5", "2", "1", "8"),
		v3: resolution(v3, "5", "2", "1", "8"),
	}
	lines := []Line{
		line(v2, 1, "1.00", enums.ShippingFeeMethodItem),
		line(v1, 2, "2.00", enums.ShippingFeeMethodItem),
		line(v2, 3, "3.00", enums.ShippingFeeMethodFixed),
		line(v3, 1, "4.00", enums.ShippingFeeMethodWeight),
		line(v1, 1, "5.00", enums.ShippingFeeMethodItem),
	}

	p, err := Split(lines, dest, rates)
	require.NoError(t, err)
	require.Len(t, p.Buckets, 3)
	assert.Equal(t, len(lines), p.LineCount())

	assert.Equal(t, []uuid.UUID{v2, v1, v3}, []uuid.UUID{p.Buckets[0].VendorID, p.Buckets[1].VendorID, p.Buckets[2].VendorID})

	seen := map[uuid.UUID]int{}
	for _, b := range p.Buckets {
		for _, pl := range b.Lines {
			assert.Equal(t, b.VendorID, pl.VendorID)
			seen[pl.CartItemID]++
		}
	}
	for _, l := range lines {
		assert.Equal(t, 1, seen[l.CartItemID], "every line appears exactly once")
	}

	assert.Equal(t, lines[0].CartItemID, p.Buckets[0].Lines[0].CartItemID)
	assert.Equal(t, lines[2].CartItemID, p.Buckets[0].Lines[1].CartItemID)
	assert.Equal(t, lines[1].CartItemID, p.Buckets[1].Lines[0].CartItemID)
	assert.Equal(t, lines[4].CartItemID, p.Buckets[1].Lines[1].CartItemID)
}

func TestSplitPricesScenarioLines(t *testing.T) {
	v1, v2 := uuid.New(), uuid.New()
	dest := Destination{CountryID: uuid.New(), Known: true}
	rates := RateTable{
		v1: resolution(v1, "5", "2", "0", "0"),
		v2: resolution(v2, "0", "0", "0", "8"),
	}
	p, err := Split([]Line{
		line(v1, 2, "10.00", enums.ShippingFeeMethodItem),
		line(v2, 1, "20.00", enums.ShippingFeeMethodFixed),
	}, dest, rates)
	require.NoError(t, err)

	assert.True(t, p.Buckets[0].SubTotal().Equal(dec("20")))
	assert.True(t, p.Buckets[0].ShippingFees().Equal(dec("7")))
	assert.True(t, p.Buckets[1].SubTotal().Equal(dec("20")))
	assert.True(t, p.Buckets[1].ShippingFees().Equal(dec("8")))
	assert.Empty(t, p.Warnings)
}

func TestSplitAppliesLineDiscountWithHalfUpRounding(t *testing.T) {
	v := uuid.New()
	l := line(v, 3, "9.99", enums.ShippingFeeMethodItem)
	l.DiscountPercent = dec("15")
	p, err := Split([]Line{l}, Destination{CountryID: uuid.New(), Known: true}, RateTable{v: resolution(v, "0", "0", "0", "0")})
	require.NoError(t, err)

	priced := p.Buckets[0].Lines[0]
	// 9.99 * 0.85 = 8.4915 -> 8.49
	assert.True(t, priced.EffectiveUnitPrice.Equal(dec("8.49")), priced.EffectiveUnitPrice.String())
	assert.True(t, priced.LineTotal.Equal(dec("25.47")), priced.LineTotal.String())
}

func TestSplitFreeShippingLineCostsNothing(t *testing.T) {
	v := uuid.New()
	dest := Destination{CountryID: uuid.New(), Known: true}
	free := line(v, 4, "1.00", enums.ShippingFeeMethodItem)
	free.FreeShipping = shipping.FreeShipping{Countries: []uuid.UUID{dest.CountryID}}
	paid := line(v, 1, "1.00", enums.ShippingFeeMethodItem)

	p, err := Split([]Line{free, paid}, dest, RateTable{v: resolution(v, "5", "2", "0", "0")})
	require.NoError(t, err)
	assert.True(t, p.Buckets[0].Lines[0].FreeShipping)
	assert.True(t, p.Buckets[0].Lines[0].ShippingFee.IsZero())
	assert.True(t, p.Buckets[0].Lines[1].ShippingFee.Equal(dec("5")))
}

func TestSplitUnknownDestinationZeroFeesWithWarning(t *testing.T) {
	v := uuid.New()
	p, err := Split([]Line{line(v, 2, "10.00", enums.ShippingFeeMethodItem)}, Destination{CountryID: uuid.New()}, nil)
	require.NoError(t, err)
	assert.True(t, p.Buckets[0].ShippingFees().IsZero())
	require.Len(t, p.Warnings, 1)
	assert.Equal(t, enums.CheckoutWarningUnknownDestination, p.Warnings[0].Code)
}

func TestSplitUnknownMethodZeroFeeWithWarning(t *testing.T) {
	v := uuid.New()
	p, err := Split([]Line{line(v, 1, "10.00", enums.ShippingFeeMethod("pallet"))},
		Destination{CountryID: uuid.New(), Known: true}, RateTable{v: resolution(v, "5", "2", "1", "8")})
	require.NoError(t, err)
	assert.True(t, p.Buckets[0].Lines[0].ShippingFee.IsZero())
	require.Len(t, p.Warnings, 1)
	assert.Equal(t, enums.CheckoutWarningUnknownFeeMethod, p.Warnings[0].Code)
	assert.Equal(t, v, *p.Warnings[0].VendorID)
}

func TestSplitFallbackWarningOncePerVendor(t *testing.T) {
	v := uuid.New()
	res := resolution(v, "5", "2", "1", "8")
	res.FallbackFields = []string{shipping.FieldFeePerKg}
	p, err := Split([]Line{
		line(v, 1, "1.00", enums.ShippingFeeMethodItem),
		line(v, 1, "1.00", enums.ShippingFeeMethodItem),
	}, Destination{CountryID: uuid.New(), Known: true}, RateTable{v: res})
	require.NoError(t, err)
	require.Len(t, p.Warnings, 1)
	assert.Equal(t, enums.CheckoutWarningRateFallback, p.Warnings[0].Code)
	assert.Equal(t, []string{shipping.FieldFeePerKg}, p.Warnings[0].Fields)
}

func TestSplitRejectsMalformedLines(t *testing.T) {
	v := uuid.New()
	dest := Destination{CountryID: uuid.New(), Known: true}
	rates := RateTable{v: resolution(v, "5", "2", "1", "8")}

	zeroQty := line(v, 0, "1.00", enums.ShippingFeeMethodItem)
	_, err := Split([]Line{zeroQty}, dest, rates)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))

	noWeight := line(v, 1, "1.00", enums.ShippingFeeMethodWeight)
	noWeight.UnitWeight = decimal.Zero
	_, err = Split([]Line{noWeight}, dest, rates)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))

	badDiscount := line(v, 1, "1.00", enums.ShippingFeeMethodItem)
	badDiscount.DiscountPercent = dec("120")
	_, err = Split([]Line{badDiscount}, dest, rates)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
}
