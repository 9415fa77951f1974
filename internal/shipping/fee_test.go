package shipping

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

func dec(raw string) decimal.Decimal {
	return decimal.RequireFromString(raw)
}

func sampleRates() ResolvedRates {
	return ResolvedRates{
		Service:              "standard",
		FeePerItem:           dec("5.00"),
		FeeForAdditionalItem: dec("2.00"),
		FeePerKg:             dec("3.50"),
		FeeFixed:             dec("8.00"),
		DeliveryTimeMin:      2,
		DeliveryTimeMax:      5,
		ReturnPolicy:         "30 days",
	}
}

func TestCalculateFeeFormulas(t *testing.T) {
	rates := sampleRates()
	cases := []struct {
		name   string
		method Method
		qty    int
		weight string
		want   string
	}{
		{name: "item single", method: ItemFee{}, qty: 1, weight: "1", want: "5.00"},
		{name: "item multiple", method: ItemFee{}, qty: 2, weight: "1", want: "7.00"},
		{name: "item many", method: ItemFee{}, qty: 5, weight: "1", want: "13.00"},
		{name: "weight", method: WeightFee{}, qty: 3, weight: "0.5", want: "5.25"},
		{name: "weight rounds half up", method: WeightFee{}, qty: 1, weight: "0.333", want: "1.17"},
		{name: "fixed ignores qty", method: FixedFee{}, qty: 7, weight: "12", want: "8.00"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := CalculateFee(tc.method, rates, tc.qty, dec(tc.weight), false)
			require.NoError(t, err)
			assert.Truef(t, got.Equal(dec(tc.want)), "expected %s got %s", tc.want, got)
		})
	}
}

func TestCalculateFeeFreeShippingIsZeroForEveryMethod(t *testing.T) {
	for _, m := range []Method{ItemFee{}, WeightFee{}, FixedFee{}} {
		got, err := CalculateFee(m, sampleRates(), 4, dec("2.5"), true)
		require.NoError(t, err)
		assert.Truef(t, got.IsZero(), "%s: expected 0, got %s", m.Kind(), got)
	}
}

func TestCalculateFeeValidation(t *testing.T) {
	_, err := CalculateFee(ItemFee{}, sampleRates(), 0, dec("1"), false)
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))

	_, err = CalculateFee(WeightFee{}, sampleRates(), 1, decimal.Zero, false)
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))

	_, err = CalculateFee(WeightFee{}, sampleRates(), 1, dec("-1"), false)
	require.Error(t, err)
}

func TestMethodFor(t *testing.T) {
	for _, raw := range []enums.ShippingFeeMethod{enums.ShippingFeeMethodItem, enums.ShippingFeeMethodWeight, enums.ShippingFeeMethodFixed} {
		m, err := MethodFor(raw)
		require.NoError(t, err)
		assert.Equal(t, raw, m.Kind())
	}

	_, err := MethodFor(enums.ShippingFeeMethod("pallet"))
	var unknown *UnknownMethodError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "pallet", unknown.Raw)
}

func TestFreeShippingEligibility(t *testing.T) {
	us, ca, mx := uuidFor(1), uuidFor(2), uuidFor(3)

	assert.False(t, FreeShipping{}.Eligible(us), "no configuration never ships free")
	assert.True(t, FreeShipping{AllCountries: true}.Eligible(mx))

	explicit := FreeShipping{Countries: []uuid.UUID{us, ca}}
	assert.True(t, explicit.Eligible(ca))
	assert.False(t, explicit.Eligible(mx))
}
