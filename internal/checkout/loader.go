package checkout

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/shipping"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

type cartReader interface {
	Lines(ctx context.Context, userID uuid.UUID) ([]cart.Line, error)
}

type countryChecker interface {
	Exists(ctx context.Context, countryID uuid.UUID) (bool, error)
}

type couponFinder interface {
	FindByCode(ctx context.Context, vendorID uuid.UUID, code string) (*models.Coupon, error)
}

type memoFactory interface {
	NewMemo() *shipping.Memo
}

// CouponLookup is the stored coupon found for a requested code. Coupon is nil
// when no vendor owns the code.
type CouponLookup struct {
	Code   string
	Coupon *models.Coupon
}

// Snapshot is everything one checkout attempt reads before composing.
type Snapshot struct {
	Lines       []cart.Line
	Destination cart.Destination
	Rates       cart.RateTable
	Coupons     map[uuid.UUID]CouponLookup
}

// Loader reads the cart, destination, rates and coupons for one attempt.
// Rate resolution and coupon lookups fan out concurrently, bounded by limit.
type Loader struct {
	cart      cartReader
	countries countryChecker
	coupons   couponFinder
	rates     memoFactory
	limit     int
}

// NewLoader builds a loader. limit <= 0 means unbounded.
func NewLoader(cartSvc cartReader, countries countryChecker, coupons couponFinder, rates memoFactory, limit int) (*Loader, error) {
	if cartSvc == nil {
		return nil, fmt.Errorf("cart service required")
	}
	if countries == nil {
		return nil, fmt.Errorf("country lookup required")
	}
	if coupons == nil {
		return nil, fmt.Errorf("coupon repository required")
	}
	if rates == nil {
		return nil, fmt.Errorf("shipping resolver required")
	}
	return &Loader{cart: cartSvc, countries: countries, coupons: coupons, rates: rates, limit: limit}, nil
}

// Load gathers a fresh snapshot. codes maps vendor id to the coupon code the
// customer entered for that vendor; codes for vendors absent from the cart
// are not looked up.
func (l *Loader) Load(ctx context.Context, userID, countryID uuid.UUID, codes map[uuid.UUID]string) (*Snapshot, error) {
	lines, err := l.cart.Lines(ctx, userID)
	if err != nil {
		return nil, err
	}

	known, err := l.countries.Exists(ctx, countryID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load destination country")
	}

	vendors := vendorOrder(lines)
	rates := make([]shipping.Resolution, len(vendors))
	lookups := make([]*CouponLookup, len(vendors))
	memo := l.rates.NewMemo()

	g, gctx := errgroup.WithContext(ctx)
	if l.limit > 0 {
		g.SetLimit(l.limit)
	}
	for i, vendorID := range vendors {
		if known {
			g.Go(func() error {
				res, err := memo.Resolve(gctx, vendorID, countryID)
				if err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve shipping rates").
						WithDetails(map[string]any{"vendor_id": vendorID, "country_id": countryID})
				}
				rates[i] = res
				return nil
			})
		}
		code, ok := codes[vendorID]
		if !ok || code == "" {
			continue
		}
		g.Go(func() error {
			coupon, err := l.coupons.FindByCode(gctx, vendorID, code)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load coupon")
			}
			lookups[i] = &CouponLookup{Code: code, Coupon: coupon}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	snap := &Snapshot{
		Lines:       lines,
		Destination: cart.Destination{CountryID: countryID, Known: known},
		Rates:       cart.RateTable{},
		Coupons:     map[uuid.UUID]CouponLookup{},
	}
	for i, vendorID := range vendors {
		if known {
			snap.Rates[vendorID] = rates[i]
		}
		if lookups[i] != nil {
			snap.Coupons[vendorID] = *lookups[i]
		}
	}
	return snap, nil
}

func vendorOrder(lines []cart.Line) []uuid.UUID {
	seen := map[uuid.UUID]struct{}{}
	var out []uuid.UUID
	for _, line := range lines {
		if _, ok := seen[line.VendorID]; ok {
			continue
		}
		seen[line.VendorID] = struct{}{}
		out = append(out, line.VendorID)
	}
	return out
}
