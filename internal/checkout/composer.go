package checkout

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/checkout/reservation"
	"github.com/angelmondragon/storefront-backend/internal/coupons"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/money"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// ComposeInput is the pure input of Compose.
type ComposeInput struct {
	UserID    uuid.UUID
	CountryID uuid.UUID
	Address   *types.Address
	Partition *cart.Partition
	// Requested maps vendor id to the code the customer entered.
	Requested map[uuid.UUID]string
	Coupons   map[uuid.UUID]CouponLookup
	// Exhausted lists vendors whose coupon hit its usage cap at commit.
	Exhausted map[uuid.UUID]bool
	Now       time.Time
	NewID     func() uuid.UUID
}

// AppliedCoupon ties an accepted coupon to the group it discounts.
type AppliedCoupon struct {
	GroupID  uuid.UUID
	VendorID uuid.UUID
	coupons.Applied
}

// Composition is a fully priced, not yet persisted order.
type Composition struct {
	Order       *models.Order
	Warnings    types.CheckoutWarnings
	Coupons     []AppliedCoupon
	Stock       []reservation.StockRequest
	CartItemIDs []uuid.UUID
}

// Compose builds the order aggregate from a partition. It performs no I/O.
// Coupon problems never fail composition; they become warnings and the
// group is priced without a discount.
func Compose(in ComposeInput) (*Composition, error) {
	if in.Partition == nil || in.Partition.LineCount() == 0 {
		return nil, errors.New("partition has no lines")
	}
	newID := in.NewID
	if newID == nil {
		newID = uuid.New
	}
	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	out := &Composition{
		Warnings: append(types.CheckoutWarnings{}, in.Partition.Warnings...),
	}
	order := &models.Order{
		ID:              newID(),
		UserID:          in.UserID,
		CountryID:       in.CountryID,
		ShippingAddress: in.Address,
		SubTotal:        decimal.Zero,
		ShippingFees:    decimal.Zero,
		Total:           decimal.Zero,
		Status:          enums.OrderStatusPending,
		PaymentStatus:   enums.PaymentStatusPending,
		CreatedAt:       now,
	}

	inCart := map[uuid.UUID]struct{}{}
	for bi, bucket := range in.Partition.Buckets {
		inCart[bucket.VendorID] = struct{}{}

		group := models.OrderGroup{
			ID:           newID(),
			OrderID:      order.ID,
			VendorID:     bucket.VendorID,
			Position:     bi,
			SubTotal:     money.Round(bucket.SubTotal()),
			ShippingFees: money.Round(bucket.ShippingFees()),
			Status:       enums.FulfillmentStatusPending,
			CreatedAt:    now,
		}
		if bucket.Rates != nil {
			rates := bucket.Rates.Rates
			group.ShippingService = rates.Service
			group.DeliveryTimeMin = rates.DeliveryTimeMin
			group.DeliveryTimeMax = rates.DeliveryTimeMax
			group.ReturnPolicy = rates.ReturnPolicy
		}

		discounted := group.SubTotal
		if code, ok := in.Requested[bucket.VendorID]; ok && code != "" {
			applied, warning := evaluateCoupon(in, bucket.VendorID, code, now)
			if warning != nil {
				out.Warnings = append(out.Warnings, *warning)
			}
			if applied != nil {
				couponID := applied.CouponID
				group.CouponID = &couponID
				group.CouponDiscountPercent = decimal.NewNullDecimal(applied.DiscountPercent)
				discounted = money.ApplyDiscount(group.SubTotal, applied.DiscountPercent)
				out.Coupons = append(out.Coupons, AppliedCoupon{GroupID: group.ID, VendorID: bucket.VendorID, Applied: *applied})
			}
		}
		group.Total = money.Round(discounted.Add(group.ShippingFees))

		for li, line := range bucket.Lines {
			group.Items = append(group.Items, models.OrderItem{
				ID:                newID(),
				OrderGroupID:      group.ID,
				Position:          li,
				ProductID:         line.ProductID,
				VariantID:         line.VariantID,
				SizeID:            line.SizeID,
				ProductName:       line.ProductName,
				Quantity:          line.Quantity,
				UnitPrice:         line.EffectiveUnitPrice,
				ListPrice:         line.UnitPrice,
				DiscountPercent:   line.DiscountPercent,
				TotalPrice:        line.LineTotal,
				ShippingFee:       line.ShippingFee,
				ShippingFeeMethod: line.FeeMethod,
				FreeShipping:      line.FreeShipping,
				Status:            enums.FulfillmentStatusPending,
				CreatedAt:         now,
			})
			out.Stock = append(out.Stock, reservation.StockRequest{SizeID: line.SizeID, Qty: line.Quantity})
			out.CartItemIDs = append(out.CartItemIDs, line.CartItemID)
		}

		order.SubTotal = order.SubTotal.Add(group.SubTotal)
		order.ShippingFees = order.ShippingFees.Add(group.ShippingFees)
		order.Total = order.Total.Add(group.Total)
		order.Groups = append(order.Groups, group)
	}

	for _, vendorID := range sortedVendors(in.Requested) {
		if _, ok := inCart[vendorID]; ok || in.Requested[vendorID] == "" {
			continue
		}
		out.Warnings = append(out.Warnings, couponWarning(enums.CheckoutWarningCouponRejected, vendorID,
			fmt.Sprintf("coupon %q rejected: vendor %s has no items in the cart", in.Requested[vendorID], vendorID)))
	}

	for i := range order.Groups {
		order.Groups[i].Warnings = out.Warnings.ForVendor(order.Groups[i].VendorID)
	}
	out.Order = order
	return out, nil
}

func evaluateCoupon(in ComposeInput, vendorID uuid.UUID, code string, now time.Time) (*coupons.Applied, *types.CheckoutWarning) {
	if in.Exhausted[vendorID] {
		w := couponWarning(enums.CheckoutWarningCouponExhausted, vendorID,
			fmt.Sprintf("coupon %q reached its usage limit; discount not applied", code))
		return nil, &w
	}
	lookup := in.Coupons[vendorID]
	applied, err := coupons.Validate(code, lookup.Coupon, vendorID, now)
	if err != nil {
		w := couponWarning(enums.CheckoutWarningCouponRejected, vendorID, err.Error())
		return nil, &w
	}
	return applied, nil
}

func couponWarning(code enums.CheckoutWarningCode, vendorID uuid.UUID, msg string) types.CheckoutWarning {
	return types.CheckoutWarning{Code: code, Message: msg, VendorID: &vendorID}
}

func sortedVendors(m map[uuid.UUID]string) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(m))
	for id := range m {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i][:], out[j][:]) < 0
	})
	return out
}
