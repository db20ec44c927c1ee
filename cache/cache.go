package cache

import (
	"context"

	"github.com/goliatone/go-memoize/internal/cacheinfra"
)

// Key is a cache key. Keys compare by value: equal logical inputs must produce
// equal keys.
type Key string

// Cache is the contract every backing store satisfies. The memoizer only ever
// talks to a store through these four methods.
//
// Has and Get may update bookkeeping such as recency, but never the stored
// value. Set must accept both new and existing keys. Delete of a missing key
// is a no-op and returns nil.
type Cache[V any] interface {
	Has(ctx context.Context, key Key) (bool, error)
	Get(ctx context.Context, key Key) (V, bool, error)
	Set(ctx context.Context, key Key, value V) error
	Delete(ctx context.Context, key Key) error
}

// Deleter is the part of Cache the key serializer needs to purge entries.
type Deleter interface {
	Delete(ctx context.Context, key Key) error
}

// Clearer is implemented by stores that can drop every entry at once.
type Clearer interface {
	Clear(ctx context.Context) error
}

// Sizer is implemented by stores that can report their entry count.
type Sizer interface {
	Len() int
}

// ConfigError reports an invalid configuration value.
type ConfigError = cacheinfra.ConfigError
