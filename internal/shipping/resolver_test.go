package shipping

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

func uuidFor(n byte) uuid.UUID {
	var id uuid.UUID
	id[15] = n
	return id
}

func strPtr(v string) *string { return &v }
func intPtr(v int) *int       { return &v }

func nd(raw string) decimal.NullDecimal {
	return decimal.NewNullDecimal(dec(raw))
}

func completeRates() Rates {
	return Rates{
		Service:              strPtr("standard"),
		FeePerItem:           nd("5.00"),
		FeeForAdditionalItem: nd("2.00"),
		FeePerKg:             nd("3.00"),
		FeeFixed:             nd("8.00"),
		DeliveryTimeMin:      intPtr(2),
		DeliveryTimeMax:      intPtr(6),
		ReturnPolicy:         strPtr("14 days"),
	}
}

func testShippingConfig() config.ShippingConfig {
	return config.ShippingConfig{
		DefaultService:              "platform",
		DefaultFeePerItem:           dec("9.00"),
		DefaultFeeForAdditionalItem: dec("1.00"),
		DefaultFeePerKg:             dec("4.00"),
		DefaultFeeFixed:             dec("12.00"),
		DefaultDeliveryTimeMin:      3,
		DefaultDeliveryTimeMax:      10,
		DefaultReturnPolicy:         "platform policy",
	}
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

type stubSource struct {
	vendor        map[uuid.UUID]Rates
	overrides     map[memoKey]Rates
	vendorCalls   int
	overrideCalls int
	err           error
	// afterVendorLoad runs once the vendor layer has been read, standing in
	// for an edit that commits while the load is in flight.
	afterVendorLoad func()
}

func (s *stubSource) VendorRates(_ context.Context, vendorID uuid.UUID) (Rates, error) {
	s.vendorCalls++
	if s.err != nil {
		return Rates{}, s.err
	}
	rates := s.vendor[vendorID]
	if hook := s.afterVendorLoad; hook != nil {
		s.afterVendorLoad = nil
		hook()
	}
	return rates, nil
}

func (s *stubSource) OverrideRates(_ context.Context, vendorID, countryID uuid.UUID) (*Rates, error) {
	s.overrideCalls++
	r, ok := s.overrides[memoKey{vendorID: vendorID, countryID: countryID}]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

type mapCache struct {
	entries map[memoKey]Layers
	gens    map[uuid.UUID]int64
	getErr  error
	genErr  error
	puts    int
}

func newMapCache() *mapCache {
	return &mapCache{entries: map[memoKey]Layers{}, gens: map[uuid.UUID]int64{}}
}

func (c *mapCache) Get(_ context.Context, vendorID, countryID uuid.UUID) (*Layers, error) {
	if c.getErr != nil {
		return nil, c.getErr
	}
	l, ok := c.entries[memoKey{vendorID, countryID}]
	if !ok {
		return nil, nil
	}
	return &l, nil
}

func (c *mapCache) Generation(_ context.Context, vendorID uuid.UUID) (int64, error) {
	if c.genErr != nil {
		return 0, c.genErr
	}
	return c.gens[vendorID], nil
}

func (c *mapCache) Put(_ context.Context, vendorID, countryID uuid.UUID, gen int64, layers Layers) error {
	if c.gens[vendorID] != gen {
		return nil
	}
	c.puts++
	c.entries[memoKey{vendorID, countryID}] = layers
	return nil
}

func (c *mapCache) Invalidate(_ context.Context, vendorID uuid.UUID) error {
	c.gens[vendorID]++
	for k := range c.entries {
		if k.vendorID == vendorID {
			delete(c.entries, k)
		}
	}
	return nil
}

func TestResolveWithoutOverrideEqualsVendorDefaults(t *testing.T) {
	vendor, country := uuidFor(1), uuidFor(10)
	src := &stubSource{vendor: map[uuid.UUID]Rates{vendor: completeRates()}}
	resolver := NewResolver(src, nil, testShippingConfig(), testLogger())

	got, err := resolver.Resolve(context.Background(), vendor, country)
	require.NoError(t, err)

	want, missing := completeRates().Resolved()
	require.Empty(t, missing)
	assert.Equal(t, want.Service, got.Service)
	assert.True(t, want.FeePerItem.Equal(got.FeePerItem))
	assert.True(t, want.FeeFixed.Equal(got.FeeFixed))
	assert.Equal(t, want.DeliveryTimeMax, got.DeliveryTimeMax)
}

func TestResolveOverrideWinsPerField(t *testing.T) {
	vendor, country := uuidFor(1), uuidFor(10)
	src := &stubSource{
		vendor: map[uuid.UUID]Rates{vendor: completeRates()},
		overrides: map[memoKey]Rates{
			{vendor, country}: {
				FeePerItem:      nd("0"),
				DeliveryTimeMax: intPtr(20),
			},
		},
	}
	resolver := NewResolver(src, nil, testShippingConfig(), testLogger())

	got, err := resolver.Resolve(context.Background(), vendor, country)
	require.NoError(t, err)
	assert.True(t, got.FeePerItem.IsZero(), "explicit zero override must win over the vendor default")
	assert.True(t, got.FeeForAdditionalItem.Equal(dec("2.00")), "unset override field falls back to vendor")
	assert.Equal(t, 20, got.DeliveryTimeMax)
	assert.Equal(t, 2, got.DeliveryTimeMin)
	assert.Equal(t, "standard", got.Service)
}

func TestResolveReportsMissingFields(t *testing.T) {
	vendor, country := uuidFor(1), uuidFor(10)
	partial := completeRates()
	partial.FeePerKg = decimal.NullDecimal{}
	partial.ReturnPolicy = nil
	src := &stubSource{vendor: map[uuid.UUID]Rates{vendor: partial}}
	resolver := NewResolver(src, nil, testShippingConfig(), testLogger())

	_, err := resolver.Resolve(context.Background(), vendor, country)
	var resErr *ResolutionError
	require.True(t, errors.As(err, &resErr))
	assert.Equal(t, []string{FieldFeePerKg, FieldReturnPolicy}, resErr.Fields)
	assert.Equal(t, vendor, resErr.VendorID)
}

func TestResolveWithFallbackUsesPlatformDefaultsOnlyForMissingFields(t *testing.T) {
	vendor, country := uuidFor(1), uuidFor(10)
	partial := completeRates()
	partial.FeePerKg = decimal.NullDecimal{}
	src := &stubSource{vendor: map[uuid.UUID]Rates{vendor: partial}}
	resolver := NewResolver(src, nil, testShippingConfig(), testLogger())

	res, err := resolver.ResolveWithFallback(context.Background(), vendor, country)
	require.NoError(t, err)
	assert.True(t, res.UsedFallback())
	assert.Equal(t, []string{FieldFeePerKg}, res.FallbackFields)
	assert.True(t, res.Rates.FeePerKg.Equal(dec("4.00")))
	assert.True(t, res.Rates.FeePerItem.Equal(dec("5.00")), "configured vendor value is kept")
	assert.Equal(t, "standard", res.Rates.Service)
}

func TestResolveWithFallbackUnconfiguredVendor(t *testing.T) {
	vendor, country := uuidFor(1), uuidFor(10)
	src := &stubSource{vendor: map[uuid.UUID]Rates{vendor: {}}}
	resolver := NewResolver(src, nil, testShippingConfig(), testLogger())

	res, err := resolver.ResolveWithFallback(context.Background(), vendor, country)
	require.NoError(t, err)
	assert.Len(t, res.FallbackFields, 8)
	assert.Equal(t, "platform", res.Rates.Service)
	assert.True(t, res.Rates.FeeFixed.Equal(dec("12.00")))
}

func TestResolveSourceErrorPropagates(t *testing.T) {
	src := &stubSource{err: errors.New("db down")}
	resolver := NewResolver(src, nil, testShippingConfig(), testLogger())

	_, err := resolver.ResolveWithFallback(context.Background(), uuidFor(1), uuidFor(2))
	require.EqualError(t, err, "db down")
}

func TestMemoResolvesOncePerVendorCountry(t *testing.T) {
	vendor, country, other := uuidFor(1), uuidFor(10), uuidFor(11)
	src := &stubSource{vendor: map[uuid.UUID]Rates{vendor: completeRates()}}
	memo := NewResolver(src, nil, testShippingConfig(), testLogger()).NewMemo()

	for i := 0; i < 3; i++ {
		_, err := memo.Resolve(context.Background(), vendor, country)
		require.NoError(t, err)
	}
	_, err := memo.Resolve(context.Background(), vendor, other)
	require.NoError(t, err)

	assert.Equal(t, 2, src.vendorCalls)
	assert.Equal(t, 2, src.overrideCalls)
}

func TestCacheReadThroughAndInvalidation(t *testing.T) {
	vendor, country := uuidFor(1), uuidFor(10)
	src := &stubSource{vendor: map[uuid.UUID]Rates{vendor: completeRates()}}
	cache := newMapCache()
	resolver := NewResolver(src, cache, testShippingConfig(), testLogger())
	ctx := context.Background()

	_, err := resolver.Resolve(ctx, vendor, country)
	require.NoError(t, err)
	_, err = resolver.Resolve(ctx, vendor, country)
	require.NoError(t, err)
	assert.Equal(t, 1, src.vendorCalls, "second resolve is served from cache")

	updated := completeRates()
	updated.FeeFixed = nd("1.00")
	src.vendor[vendor] = updated
	require.NoError(t, resolver.Invalidate(ctx, vendor))

	got, err := resolver.Resolve(ctx, vendor, country)
	require.NoError(t, err)
	assert.Equal(t, 2, src.vendorCalls)
	assert.True(t, got.FeeFixed.Equal(dec("1.00")))
}

func TestCacheReadErrorFallsThroughToSource(t *testing.T) {
	vendor, country := uuidFor(1), uuidFor(10)
	src := &stubSource{vendor: map[uuid.UUID]Rates{vendor: completeRates()}}
	cache := newMapCache()
	cache.getErr = errors.New("redis unavailable")
	resolver := NewResolver(src, cache, testShippingConfig(), testLogger())

	_, err := resolver.Resolve(context.Background(), vendor, country)
	require.NoError(t, err)
	assert.Equal(t, 1, src.vendorCalls)
}

func TestCacheDropsFillThatRacedAnEdit(t *testing.T) {
	vendor, country := uuidFor(1), uuidFor(10)
	src := &stubSource{vendor: map[uuid.UUID]Rates{vendor: completeRates()}}
	cache := newMapCache()
	resolver := NewResolver(src, cache, testShippingConfig(), testLogger())
	ctx := context.Background()

	src.afterVendorLoad = func() {
		edited := completeRates()
		edited.FeeFixed = nd("99.00")
		src.vendor[vendor] = edited
		require.NoError(t, resolver.Invalidate(ctx, vendor))
	}

	stale, err := resolver.Resolve(ctx, vendor, country)
	require.NoError(t, err)
	assert.True(t, stale.FeeFixed.Equal(dec("8.00")), "the in-flight read still sees the old row")
	assert.Zero(t, cache.puts, "a fill older than the edit is not cached")

	got, err := resolver.Resolve(ctx, vendor, country)
	require.NoError(t, err)
	assert.True(t, got.FeeFixed.Equal(dec("99.00")))
	assert.Equal(t, 2, src.vendorCalls)
	assert.Equal(t, 1, cache.puts)
}

func TestCacheGenerationErrorSkipsFill(t *testing.T) {
	vendor, country := uuidFor(1), uuidFor(10)
	src := &stubSource{vendor: map[uuid.UUID]Rates{vendor: completeRates()}}
	cache := newMapCache()
	cache.genErr = errors.New("redis unavailable")
	resolver := NewResolver(src, cache, testShippingConfig(), testLogger())

	_, err := resolver.Resolve(context.Background(), vendor, country)
	require.NoError(t, err)
	assert.Zero(t, cache.puts)
	assert.Empty(t, cache.entries)
}

type memHashStore struct {
	hashes map[string]map[string]string
	ttls   map[string]time.Duration
	gens   map[string]int64
}

func newMemHashStore() *memHashStore {
	return &memHashStore{
		hashes: map[string]map[string]string{},
		ttls:   map[string]time.Duration{},
		gens:   map[string]int64{},
	}
}

func (m *memHashStore) HGet(_ context.Context, key, field string) (string, bool, error) {
	v, ok := m.hashes[key][field]
	return v, ok, nil
}

func (m *memHashStore) Generation(_ context.Context, genKey string) (int64, error) {
	return m.gens[genKey], nil
}

func (m *memHashStore) HSetIfGeneration(_ context.Context, key, genKey string, gen int64, field string, value any, ttl time.Duration) (bool, error) {
	if m.gens[genKey] != gen {
		return false, nil
	}
	if m.hashes[key] == nil {
		m.hashes[key] = map[string]string{}
	}
	m.hashes[key][field] = value.(string)
	m.ttls[key] = ttl
	return true, nil
}

func (m *memHashStore) BumpGeneration(_ context.Context, key, genKey string) (int64, error) {
	m.gens[genKey]++
	delete(m.hashes, key)
	return m.gens[genKey], nil
}

func (m *memHashStore) ShippingRatesKey(vendorID string) string {
	return "sf:shipping_rates:" + vendorID
}

func (m *memHashStore) ShippingRatesGenerationKey(vendorID string) string {
	return "sf:shipping_rates:" + vendorID + ":gen"
}

func TestRedisLayerCachePreservesZeroVersusAbsent(t *testing.T) {
	store := newMemHashStore()
	cache := NewRedisLayerCache(store, time.Minute)
	ctx := context.Background()
	vendor, country := uuidFor(1), uuidFor(10)

	gen, err := cache.Generation(ctx, vendor)
	require.NoError(t, err)
	override := Rates{FeePerItem: nd("0")}
	require.NoError(t, cache.Put(ctx, vendor, country, gen, Layers{Vendor: completeRates(), Override: &override}))
	assert.Equal(t, time.Minute, store.ttls["sf:shipping_rates:"+vendor.String()])

	got, err := cache.Get(ctx, vendor, country)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.NotNil(t, got.Override)
	assert.True(t, got.Override.FeePerItem.Valid)
	assert.True(t, got.Override.FeePerItem.Decimal.IsZero())
	assert.False(t, got.Override.FeeFixed.Valid)
	assert.True(t, got.Merged().FeePerItem.Decimal.IsZero())

	require.NoError(t, cache.Invalidate(ctx, vendor))
	got, err = cache.Get(ctx, vendor, country)
	require.NoError(t, err)
	assert.Nil(t, got)

	// A fill that read the generation before the invalidation stores nothing.
	require.NoError(t, cache.Put(ctx, vendor, country, gen, Layers{Vendor: completeRates()}))
	got, err = cache.Get(ctx, vendor, country)
	require.NoError(t, err)
	assert.Nil(t, got)
}
