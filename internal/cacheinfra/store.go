// Package cacheinfra holds the sturdyc backed TTL store used behind the
// public cache package.
package cacheinfra

import (
	"context"
	"time"

	"github.com/viccon/sturdyc"
)

// Config holds the configuration for the sturdyc cache adapter.
// It encapsulates the core sturdyc options needed for cache initialization.
type Config struct {
	// Capacity defines the maximum number of entries that the cache can store.
	// Must be greater than 0.
	Capacity int

	// NumShards determines the number of cache shards for concurrent access.
	// Higher values improve concurrency but increase memory overhead.
	// Must be greater than 0. Default: 256
	NumShards int

	// TTL is the default time-to-live for cached entries.
	// After this duration, entries are considered expired.
	// Must be greater than 0.
	TTL time.Duration

	// EvictionPercentage specifies what percentage of entries to evict
	// when the cache reaches its capacity. Must be between 1-100.
	// Default: 10 (evict 10% of entries)
	EvictionPercentage int

	// EvictionInterval sets how often the cache checks for expired entries.
	// Zero value uses the default interval.
	EvictionInterval time.Duration
}

// DefaultConfig returns a Config with sensible defaults for memoized results.
func DefaultConfig() Config {
	return Config{
		Capacity:           10000,
		NumShards:          256,
		TTL:                5 * time.Minute,
		EvictionPercentage: 10,
		EvictionInterval:   0, // Use default
	}
}

// options returns the sturdyc options that are not constructor arguments.
func (c Config) options() []sturdyc.Option {
	var options []sturdyc.Option
	if c.EvictionInterval > 0 {
		options = append(options, sturdyc.WithEvictionInterval(c.EvictionInterval))
	}
	return options
}

// Validate checks if the configuration values are valid.
// Returns an error if any configuration parameter is invalid.
func (c Config) Validate() error {
	if c.Capacity <= 0 {
		return &ConfigError{Field: "Capacity", Message: "must be greater than 0"}
	}

	if c.NumShards <= 0 {
		return &ConfigError{Field: "NumShards", Message: "must be greater than 0"}
	}

	if c.TTL <= 0 {
		return &ConfigError{Field: "TTL", Message: "must be greater than 0"}
	}

	if c.EvictionPercentage < 1 || c.EvictionPercentage > 100 {
		return &ConfigError{Field: "EvictionPercentage", Message: "must be between 1 and 100"}
	}

	if c.EvictionInterval < 0 {
		return &ConfigError{Field: "EvictionInterval", Message: "must be non-negative"}
	}

	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "config error in field " + e.Field + ": " + e.Message
}

// Store is a TTL bounded store backed by a sturdyc client. Keys are plain
// strings so this package stays free of the public cache types.
type Store[V any] struct {
	client *sturdyc.Client[V]
}

// NewStore creates a new sturdyc backed store.
// It validates the configuration and initializes a sturdyc client with the provided settings.
//
// The constructor translates Config parameters to sturdyc initialization:
// - Capacity, NumShards, TTL, EvictionPercentage are passed to sturdyc.New()
// - EvictionInterval is applied as an option
func NewStore[V any](cfg Config) (*Store[V], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := sturdyc.New[V](
		cfg.Capacity,
		cfg.NumShards,
		cfg.TTL,
		cfg.EvictionPercentage,
		cfg.options()...,
	)

	return &Store[V]{client: client}, nil
}

// Has reports whether a live entry exists for key.
func (s *Store[V]) Has(_ context.Context, key string) (bool, error) {
	_, ok := s.client.Get(key)
	return ok, nil
}

// Get returns the live entry for key.
func (s *Store[V]) Get(_ context.Context, key string) (V, bool, error) {
	v, ok := s.client.Get(key)
	return v, ok, nil
}

// Set stores value under key for the configured TTL.
func (s *Store[V]) Set(_ context.Context, key string, value V) error {
	s.client.Set(key, value)
	return nil
}

// Delete removes a single entry from the cache using the provided key.
// Deleting a missing key is a no-op.
func (s *Store[V]) Delete(_ context.Context, key string) error {
	s.client.Delete(key)
	return nil
}

// Clear removes every entry.
func (s *Store[V]) Clear(_ context.Context) error {
	for _, key := range s.client.ScanKeys() {
		s.client.Delete(key)
	}
	return nil
}

// Len returns the number of entries currently held.
func (s *Store[V]) Len() int {
	return s.client.Size()
}
