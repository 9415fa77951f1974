package shipping

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// RateSource loads the stored rate layers.
type RateSource interface {
	VendorRates(ctx context.Context, vendorID uuid.UUID) (Rates, error)
	// OverrideRates returns nil when the vendor has no override for countryID.
	OverrideRates(ctx context.Context, vendorID, countryID uuid.UUID) (*Rates, error)
}

// LayerCache stores loaded layers across requests. Invalidate must drop every
// entry of a vendor and advance its generation; Put must store nothing once
// the generation has moved past gen.
type LayerCache interface {
	Get(ctx context.Context, vendorID, countryID uuid.UUID) (*Layers, error)
	Generation(ctx context.Context, vendorID uuid.UUID) (int64, error)
	Put(ctx context.Context, vendorID, countryID uuid.UUID, gen int64, layers Layers) error
	Invalidate(ctx context.Context, vendorID uuid.UUID) error
}

// Layers are the stored inputs to resolution for one (vendor, country).
type Layers struct {
	Vendor   Rates  `json:"vendor"`
	Override *Rates `json:"override,omitempty"`
}

// Merged applies the override on top of the vendor defaults field by field.
func (l Layers) Merged() Rates {
	if l.Override == nil {
		return l.Vendor
	}
	return l.Override.Overlay(l.Vendor)
}

// Resolution is a complete rate bundle plus the fields that had to come from
// the platform defaults.
type Resolution struct {
	VendorID       uuid.UUID     `json:"vendor_id"`
	CountryID      uuid.UUID     `json:"country_id"`
	Rates          ResolvedRates `json:"rates"`
	FallbackFields []string      `json:"fallback_fields,omitempty"`
}

// UsedFallback reports whether any field came from the platform defaults.
func (r Resolution) UsedFallback() bool {
	return len(r.FallbackFields) > 0
}

// Resolver computes effective shipping parameters for (vendor, country).
type Resolver struct {
	source   RateSource
	cache    LayerCache
	platform Rates
	logg     *logger.Logger
}

// NewResolver builds a resolver. cache may be nil.
func NewResolver(source RateSource, cache LayerCache, cfg config.ShippingConfig, logg *logger.Logger) *Resolver {
	return &Resolver{
		source:   source,
		cache:    cache,
		platform: PlatformRates(cfg),
		logg:     logg,
	}
}

// Layers returns the stored layers, reading through the cache when configured.
func (r *Resolver) Layers(ctx context.Context, vendorID, countryID uuid.UUID) (Layers, error) {
	var (
		gen      int64
		fillable bool
	)
	if r.cache != nil {
		cached, err := r.cache.Get(ctx, vendorID, countryID)
		if err != nil {
			r.warn(ctx, "shipping rate cache read failed", err)
		} else if cached != nil {
			return *cached, nil
		}
		// The generation is read before the load so an edit committed while
		// loading makes the fill below a no-op.
		if gen, err = r.cache.Generation(ctx, vendorID); err != nil {
			r.warn(ctx, "shipping rate cache generation read failed", err)
		} else {
			fillable = true
		}
	}

	vendor, err := r.source.VendorRates(ctx, vendorID)
	if err != nil {
		return Layers{}, err
	}
	override, err := r.source.OverrideRates(ctx, vendorID, countryID)
	if err != nil {
		return Layers{}, err
	}
	layers := Layers{Vendor: vendor, Override: override}

	if fillable {
		if err := r.cache.Put(ctx, vendorID, countryID, gen, layers); err != nil {
			r.warn(ctx, "shipping rate cache write failed", err)
		}
	}
	return layers, nil
}

// Resolve merges override and vendor defaults. Fields missing from both
// produce a *ResolutionError.
func (r *Resolver) Resolve(ctx context.Context, vendorID, countryID uuid.UUID) (ResolvedRates, error) {
	layers, err := r.Layers(ctx, vendorID, countryID)
	if err != nil {
		return ResolvedRates{}, err
	}
	resolved, missing := layers.Merged().Resolved()
	if len(missing) > 0 {
		return ResolvedRates{}, &ResolutionError{VendorID: vendorID, CountryID: countryID, Fields: missing}
	}
	return resolved, nil
}

// ResolveWithFallback is Resolve with unresolved fields taken from the
// platform defaults. The substituted fields are reported on the result.
func (r *Resolver) ResolveWithFallback(ctx context.Context, vendorID, countryID uuid.UUID) (Resolution, error) {
	layers, err := r.Layers(ctx, vendorID, countryID)
	if err != nil {
		return Resolution{}, err
	}
	merged := layers.Merged()
	out := Resolution{VendorID: vendorID, CountryID: countryID}
	if missing := merged.MissingFields(); len(missing) > 0 {
		out.FallbackFields = missing
		r.warn(ctx, "shipping rates fell back to platform defaults",
			&ResolutionError{VendorID: vendorID, CountryID: countryID, Fields: missing})
		merged = merged.Overlay(r.platform)
	}
	resolved, missing := merged.Resolved()
	if len(missing) > 0 {
		return Resolution{}, errors.New("platform shipping defaults are incomplete")
	}
	out.Rates = resolved
	return out, nil
}

// Invalidate drops cached layers for vendorID.
func (r *Resolver) Invalidate(ctx context.Context, vendorID uuid.UUID) error {
	if r.cache == nil {
		return nil
	}
	return r.cache.Invalidate(ctx, vendorID)
}

// NewMemo returns a resolution memo scoped to one checkout call.
func (r *Resolver) NewMemo() *Memo {
	return &Memo{resolver: r, entries: map[memoKey]Resolution{}}
}

func (r *Resolver) warn(ctx context.Context, msg string, err error) {
	if r.logg == nil {
		return
	}
	r.logg.WarnErr(ctx, msg, err)
}

type memoKey struct {
	vendorID  uuid.UUID
	countryID uuid.UUID
}

// Memo caches resolutions for the lifetime of one checkout. It is safe for
// concurrent use. Errors are not memoized.
type Memo struct {
	resolver *Resolver
	mu       sync.Mutex
	entries  map[memoKey]Resolution
}

// Resolve returns the memoized resolution, resolving on first use.
func (m *Memo) Resolve(ctx context.Context, vendorID, countryID uuid.UUID) (Resolution, error) {
	key := memoKey{vendorID: vendorID, countryID: countryID}
	m.mu.Lock()
	if res, ok := m.entries[key]; ok {
		m.mu.Unlock()
		return res, nil
	}
	m.mu.Unlock()

	res, err := m.resolver.ResolveWithFallback(ctx, vendorID, countryID)
	if err != nil {
		return Resolution{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.entries[key]; ok {
		return existing, nil
	}
	m.entries[key] = res
	return res, nil
}
