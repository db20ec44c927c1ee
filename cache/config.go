package cache

import (
	"context"
	"time"

	"github.com/goliatone/go-memoize/internal/cacheinfra"
)

// Config configures the TTL store returned by NewTTLCache.
type Config struct {
	Capacity           int
	NumShards          int
	TTL                time.Duration
	EvictionPercentage int
	// EvictionInterval is how often expired entries are swept. Zero keeps
	// the sturdyc default.
	EvictionInterval time.Duration
}

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() Config {
	return convertFromInternal(cacheinfra.DefaultConfig())
}

// Validate checks whether the configuration values are valid.
func (c Config) Validate() error {
	return c.toInternal().Validate()
}

// NewTTLCache constructs a sturdyc backed store whose entries expire after
// cfg.TTL. When capacity is reached sturdyc evicts EvictionPercentage of the
// entries, so this store is bounded but not LRU ordered.
func NewTTLCache[V any](cfg Config) (*TTLCache[V], error) {
	store, err := cacheinfra.NewStore[V](cfg.toInternal())
	if err != nil {
		return nil, err
	}
	return &TTLCache[V]{store: store}, nil
}

// TTLCache adapts the internal sturdyc store to Cache.
type TTLCache[V any] struct {
	store *cacheinfra.Store[V]
}

func (c *TTLCache[V]) Has(ctx context.Context, key Key) (bool, error) {
	return c.store.Has(ctx, string(key))
}

func (c *TTLCache[V]) Get(ctx context.Context, key Key) (V, bool, error) {
	return c.store.Get(ctx, string(key))
}

func (c *TTLCache[V]) Set(ctx context.Context, key Key, value V) error {
	return c.store.Set(ctx, string(key), value)
}

func (c *TTLCache[V]) Delete(ctx context.Context, key Key) error {
	return c.store.Delete(ctx, string(key))
}

// Clear drops every entry.
func (c *TTLCache[V]) Clear(ctx context.Context) error {
	return c.store.Clear(ctx)
}

// Len returns the number of entries currently held.
func (c *TTLCache[V]) Len() int {
	return c.store.Len()
}

func (c Config) toInternal() cacheinfra.Config {
	return cacheinfra.Config{
		Capacity:           c.Capacity,
		NumShards:          c.NumShards,
		TTL:                c.TTL,
		EvictionPercentage: c.EvictionPercentage,
		EvictionInterval:   c.EvictionInterval,
	}
}

func convertFromInternal(cfg cacheinfra.Config) Config {
	return Config{
		Capacity:           cfg.Capacity,
		NumShards:          cfg.NumShards,
		TTL:                cfg.TTL,
		EvictionPercentage: cfg.EvictionPercentage,
		EvictionInterval:   cfg.EvictionInterval,
	}
}
