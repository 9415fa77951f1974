// Package redis wraps go-redis with the few operations the storefront uses:
// idempotency records, the shipping rate cache and the cron lock.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

var errNotConnected = errors.New("redis client not initialized")

// releaseScript deletes KEYS[1] only while it still holds ARGV[1].
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// putIfGenerationScript sets field ARGV[2] of hash KEYS[1] to ARGV[3] and
// refreshes its TTL (ARGV[4] ms) only while KEYS[2] still holds generation
// ARGV[1]. A missing generation key counts as 0.
var putIfGenerationScript = redis.NewScript(`
local current = redis.call("GET", KEYS[2]) or "0"
if current ~= ARGV[1] then
	return 0
end
redis.call("HSET", KEYS[1], ARGV[2], ARGV[3])
if tonumber(ARGV[4]) > 0 then
	redis.call("PEXPIRE", KEYS[1], ARGV[4])
end
return 1`)

// bumpGenerationScript advances generation KEYS[2] and drops hash KEYS[1].
var bumpGenerationScript = redis.NewScript(`
local gen = redis.call("INCR", KEYS[2])
redis.call("DEL", KEYS[1])
return gen`)

type commands interface {
	redis.Scripter
	Ping(context.Context) *redis.StatusCmd
	Get(context.Context, string) *redis.StringCmd
	SetNX(context.Context, string, any, time.Duration) *redis.BoolCmd
	HGet(context.Context, string, string) *redis.StringCmd
	Del(context.Context, ...string) *redis.IntCmd
}

// Client is the storefront's redis handle.
type Client struct {
	cmd  commands
	conn *redis.Client
}

// IdempotencyStore is what the idempotency middleware needs.
type IdempotencyStore interface {
	Get(context.Context, string) (string, error)
	SetNX(context.Context, string, any, time.Duration) (bool, error)
	IdempotencyKey(scope, id string) string
	Del(context.Context, ...string) error
}

// HashStore is what the shipping rate cache needs. Writes are guarded by a
// generation counter so a fill that raced an invalidation is dropped.
type HashStore interface {
	HGet(ctx context.Context, key, field string) (string, bool, error)
	Generation(ctx context.Context, genKey string) (int64, error)
	HSetIfGeneration(ctx context.Context, key, genKey string, gen int64, field string, value any, ttl time.Duration) (bool, error)
	BumpGeneration(ctx context.Context, key, genKey string) (int64, error)
	ShippingRatesKey(vendorID string) string
	ShippingRatesGenerationKey(vendorID string) string
}

// New connects and pings. cfg.URL wins over the discrete address fields;
// pool and timeout settings fill whatever the URL left unset.
func New(ctx context.Context, cfg config.RedisConfig, logg *logger.Logger) (*Client, error) {
	opts, err := options(cfg)
	if err != nil {
		return nil, err
	}
	conn := redis.NewClient(opts)
	if err := conn.Ping(ctx).Err(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	if logg != nil {
		logg.Info(logg.WithField(ctx, "redis_addr", opts.Addr), "redis connected")
	}
	return &Client{cmd: conn, conn: conn}, nil
}

func options(cfg config.RedisConfig) (*redis.Options, error) {
	var opts *redis.Options
	switch {
	case cfg.URL != "":
		parsed, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("parsing redis url: %w", err)
		}
		opts = parsed
	case cfg.Address != "":
		opts = &redis.Options{Addr: cfg.Address, Password: cfg.Password}
	default:
		return nil, errors.New("redis url or address is required")
	}
	setIfZero(&opts.DB, cfg.DB)
	setIfZero(&opts.PoolSize, cfg.PoolSize)
	setIfZero(&opts.MinIdleConns, cfg.MinIdleConns)
	setIfZero(&opts.DialTimeout, cfg.DialTimeout)
	setIfZero(&opts.ReadTimeout, cfg.ReadTimeout)
	setIfZero(&opts.WriteTimeout, cfg.WriteTimeout)
	return opts, nil
}

func setIfZero[T comparable](dst *T, v T) {
	var zero T
	if *dst == zero {
		*dst = v
	}
}

func (c *Client) Ping(ctx context.Context) error {
	if c.cmd == nil {
		return errNotConnected
	}
	return c.cmd.Ping(ctx).Err()
}

// Get returns redis.Nil for a missing key.
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	if c.cmd == nil {
		return "", errNotConnected
	}
	return c.cmd.Get(ctx, key).Result()
}

func (c *Client) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if c.cmd == nil {
		return false, errNotConnected
	}
	return c.cmd.SetNX(ctx, key, value, ttl).Result()
}

func (c *Client) Del(ctx context.Context, keys ...string) error {
	if c.cmd == nil {
		return errNotConnected
	}
	return c.cmd.Del(ctx, keys...).Err()
}

// ReleaseIfOwner deletes key atomically when its value is still owner and
// reports whether it did.
func (c *Client) ReleaseIfOwner(ctx context.Context, key, owner string) (bool, error) {
	if c.cmd == nil {
		return false, errNotConnected
	}
	n, err := releaseScript.Run(ctx, c.cmd, []string{key}, owner).Int64()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// HGet reports found=false for a missing key or field.
func (c *Client) HGet(ctx context.Context, key, field string) (string, bool, error) {
	if c.cmd == nil {
		return "", false, errNotConnected
	}
	value, err := c.cmd.HGet(ctx, key, field).Result()
	switch {
	case errors.Is(err, redis.Nil):
		return "", false, nil
	case err != nil:
		return "", false, err
	}
	return value, true, nil
}

// Generation reads a counter written by BumpGeneration; a missing key is 0.
func (c *Client) Generation(ctx context.Context, genKey string) (int64, error) {
	if c.cmd == nil {
		return 0, errNotConnected
	}
	raw, err := c.cmd.Get(ctx, genKey).Result()
	switch {
	case errors.Is(err, redis.Nil):
		return 0, nil
	case err != nil:
		return 0, err
	}
	gen, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse generation %q: %w", genKey, err)
	}
	return gen, nil
}

// HSetIfGeneration writes one hash field and refreshes the hash TTL only
// while genKey still holds gen. It reports whether the write happened.
func (c *Client) HSetIfGeneration(ctx context.Context, key, genKey string, gen int64, field string, value any, ttl time.Duration) (bool, error) {
	if c.cmd == nil {
		return false, errNotConnected
	}
	n, err := putIfGenerationScript.Run(ctx, c.cmd, []string{key, genKey},
		strconv.FormatInt(gen, 10), field, value, ttl.Milliseconds()).Int64()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// BumpGeneration atomically advances genKey and deletes key, returning the
// new generation.
func (c *Client) BumpGeneration(ctx context.Context, key, genKey string) (int64, error) {
	if c.cmd == nil {
		return 0, errNotConnected
	}
	return bumpGenerationScript.Run(ctx, c.cmd, []string{key, genKey}).Int64()
}

func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}
