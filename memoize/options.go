package memoize

import (
	"go.uber.org/zap"

	"github.com/goliatone/go-memoize/cache"
)

// KeyFunc derives the cache key for a call from its receiver and arguments.
type KeyFunc func(this any, args ...any) (cache.Key, error)

// Option configures a memoized function.
type Option func(*config)

type config struct {
	store    any
	keyFunc  KeyFunc
	truncate bool
	arity    int
	logger   *zap.Logger
}

func defaultConfig() config {
	return config{
		arity:  -1,
		logger: zap.NewNop(),
	}
}

// WithCache sets the backing store. Its value type must match the result
// type of the memoized function; New panics otherwise.
func WithCache[V any](store cache.Cache[V]) Option {
	return func(c *config) {
		c.store = store
	}
}

// WithKeyFunc replaces the default serializer. No serializer is built when a
// key function is supplied, so keys are never purged on reclamation.
func WithKeyFunc(fn KeyFunc) Option {
	return func(c *config) {
		c.keyFunc = fn
	}
}

// WithTruncateArgs limits both key derivation and the forwarded arguments to
// the declared arity of the function.
func WithTruncateArgs() Option {
	return func(c *config) {
		c.truncate = true
	}
}

// WithArity declares how many positional arguments the function takes.
func WithArity(n int) Option {
	return func(c *config) {
		c.arity = n
	}
}

// WithLogger sets the logger for misses, async evictions and reclamation
// purges.
func WithLogger(logger *zap.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}
