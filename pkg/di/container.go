package di

import (
	"fmt"

	repository "github.com/goliatone/go-repository-bun"
	"go.uber.org/zap"

	"github.com/goliatone/go-memoize/cache"
	"github.com/goliatone/go-memoize/memoize"
	"github.com/goliatone/go-memoize/repositorycache"
)

// StoreKind selects the backing store the container builds.
type StoreKind string

const (
	// StoreMap is the unbounded in-memory store.
	StoreMap StoreKind = "map"
	// StoreLRU bounds every store to MaxEntries.
	StoreLRU StoreKind = "lru"
	// StoreTTL expires entries after TTL.TTL.
	StoreTTL StoreKind = "ttl"
)

// Config configures a Container.
type Config struct {
	Store      StoreKind
	MaxEntries int
	TTL        cache.Config
	Logger     *zap.Logger
}

// DefaultConfig returns a Config that builds unbounded stores.
func DefaultConfig() Config {
	return Config{
		Store:      StoreMap,
		MaxEntries: 1024,
		TTL:        cache.DefaultConfig(),
	}
}

// Validate checks the settings relevant to the selected store kind.
func (c Config) Validate() error {
	switch c.Store {
	case StoreMap:
		return nil
	case StoreLRU:
		if c.MaxEntries < 1 {
			return &cache.ConfigError{Field: "MaxEntries", Message: "must be greater than 0"}
		}
		return nil
	case StoreTTL:
		return c.TTL.Validate()
	default:
		return &cache.ConfigError{Field: "Store", Message: fmt.Sprintf("unknown store kind %q", c.Store)}
	}
}

// Container wires stores, memoized functions and cached repositories from
// one configuration and one logger.
type Container struct {
	config Config
	logger *zap.Logger
}

// NewContainer validates config and creates a container.
func NewContainer(config Config) (*Container, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Container{config: config, logger: logger}, nil
}

// NewContainerWithDefaults creates a container using DefaultConfig.
func NewContainerWithDefaults() (*Container, error) {
	return NewContainer(DefaultConfig())
}

// Config returns a copy of the configuration used by this container.
func (c *Container) Config() Config {
	return c.config
}

// Logger returns the logger shared by everything the container builds.
func (c *Container) Logger() *zap.Logger {
	return c.logger
}

// NewStore builds a fresh store of the configured kind.
//
// Since Go methods cannot have type parameters, this and the helpers below
// are package-level functions.
func NewStore[V any](c *Container) (cache.Cache[V], error) {
	switch c.config.Store {
	case StoreLRU:
		lru, err := cache.NewLRU(c.config.MaxEntries, cache.WithLRULogger[V](c.logger))
		if err != nil {
			return nil, err
		}
		return lru, nil
	case StoreTTL:
		ttl, err := cache.NewTTLCache[V](c.config.TTL)
		if err != nil {
			return nil, err
		}
		return ttl, nil
	default:
		return cache.NewMapCache[V](), nil
	}
}

// Memoize wraps fn with a store from NewStore and the container logger.
// opts are applied last and may override either.
func Memoize[R any](c *Container, fn memoize.Func[R], opts ...memoize.Option) (*memoize.Memoized[R], error) {
	store, err := NewStore[R](c)
	if err != nil {
		return nil, err
	}
	base := []memoize.Option{memoize.WithCache(store), memoize.WithLogger(c.logger)}
	return memoize.New(fn, append(base, opts...)...), nil
}

// NewCachedRepository wraps base so its reads are memoized with stores of
// the configured kind.
// Example: NewCachedRepository[User](container, baseUserRepository)
func NewCachedRepository[T any](c *Container, base repository.Repository[T]) (*repositorycache.CachedRepository[T], error) {
	opts := repositorycache.Options{Logger: c.logger}
	switch c.config.Store {
	case StoreLRU:
		opts.MaxEntries = c.config.MaxEntries
	case StoreTTL:
		ttl := c.config.TTL
		opts.TTL = &ttl
	}
	return repositorycache.New(base, opts)
}
