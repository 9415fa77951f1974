package shipping

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/redis"
)

type redisLayerCache struct {
	store redis.HashStore
	ttl   time.Duration
}

// NewRedisLayerCache stores layers in one redis hash per vendor with a field
// per destination country. A per-vendor generation counter guards writes so a
// fill that loaded before an edit cannot overwrite the invalidation.
func NewRedisLayerCache(store redis.HashStore, ttl time.Duration) LayerCache {
	return &redisLayerCache{store: store, ttl: ttl}
}

func (c *redisLayerCache) Get(ctx context.Context, vendorID, countryID uuid.UUID) (*Layers, error) {
	raw, found, err := c.store.HGet(ctx, c.store.ShippingRatesKey(vendorID.String()), countryID.String())
	if err != nil || !found {
		return nil, err
	}
	var layers Layers
	if err := json.Unmarshal([]byte(raw), &layers); err != nil {
		return nil, fmt.Errorf("decode cached shipping rates: %w", err)
	}
	return &layers, nil
}

func (c *redisLayerCache) Generation(ctx context.Context, vendorID uuid.UUID) (int64, error) {
	return c.store.Generation(ctx, c.store.ShippingRatesGenerationKey(vendorID.String()))
}

func (c *redisLayerCache) Put(ctx context.Context, vendorID, countryID uuid.UUID, gen int64, layers Layers) error {
	payload, err := json.Marshal(layers)
	if err != nil {
		return fmt.Errorf("encode shipping rates: %w", err)
	}
	v := vendorID.String()
	_, err = c.store.HSetIfGeneration(ctx, c.store.ShippingRatesKey(v), c.store.ShippingRatesGenerationKey(v),
		gen, countryID.String(), string(payload), c.ttl)
	return err
}

func (c *redisLayerCache) Invalidate(ctx context.Context, vendorID uuid.UUID) error {
	v := vendorID.String()
	_, err := c.store.BumpGeneration(ctx, c.store.ShippingRatesKey(v), c.store.ShippingRatesGenerationKey(v))
	return err
}
