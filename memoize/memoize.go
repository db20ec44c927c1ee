package memoize

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/goliatone/go-memoize/cache"
)

// Func is the shape of a memoizable function. this is the receiver the call
// was made on, or nil.
type Func[R any] func(ctx context.Context, this any, args ...any) (R, error)

// Memoized wraps a Func with a cache.
type Memoized[R any] struct {
	fn         Func[R]
	store      cache.Cache[R]
	keyFunc    KeyFunc
	serializer *cache.KeySerializer
	truncate   bool
	arity      int
	logger     *zap.Logger
	group      singleflight.Group
}

// New memoizes fn. Without WithCache the results are kept in an unbounded
// cache.MapCache; without WithKeyFunc keys come from a cache.KeySerializer
// bound to that store.
//
// New panics if fn is nil, if the store passed to WithCache does not hold R,
// or if WithTruncateArgs is used without a declared arity.
func New[R any](fn Func[R], opts ...Option) *Memoized[R] {
	if fn == nil {
		panic("memoize: nil function")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.truncate && cfg.arity < 0 {
		panic("memoize: WithTruncateArgs requires WithArity")
	}

	m := &Memoized[R]{
		fn:       fn,
		truncate: cfg.truncate,
		arity:    cfg.arity,
		logger:   cfg.logger,
	}

	switch store := cfg.store.(type) {
	case nil:
		m.store = cache.NewMapCache[R]()
	case cache.Cache[R]:
		m.store = store
	default:
		var zero R
		panic(fmt.Sprintf("memoize: cache %T cannot hold results of type %T", store, &zero))
	}

	if cfg.keyFunc != nil {
		m.keyFunc = cfg.keyFunc
	} else {
		m.serializer = cache.NewKeySerializer(m.store, cache.WithSerializerLogger(cfg.logger))
		m.keyFunc = func(this any, args ...any) (cache.Key, error) {
			return m.serializer.Key(this, args...), nil
		}
	}
	return m
}

// Call invokes the function without a receiver.
func (m *Memoized[R]) Call(ctx context.Context, args ...any) (R, error) {
	return m.CallWith(ctx, nil, args...)
}

// CallWith invokes the function on receiver this. The cached result is
// returned on a hit; on a miss the function runs once per key no matter how
// many callers are waiting, and its result is stored unless it failed.
//
// Concurrent callers that miss on the same key share the first caller's
// invocation, including its ctx: if that ctx is cancelled and the function
// returns the error, every waiter receives it and nothing is cached.
func (m *Memoized[R]) CallWith(ctx context.Context, this any, args ...any) (R, error) {
	args = m.truncated(args)

	key, err := m.keyFunc(this, args...)
	if err != nil {
		var zero R
		return zero, err
	}

	if val, ok, err := m.lookup(ctx, key); err != nil || ok {
		return val, err
	}

	res, err, _ := m.group.Do(string(key), func() (any, error) {
		if val, ok, err := m.lookup(ctx, key); err != nil || ok {
			return val, err
		}

		m.logger.Debug("memoize miss", zap.String("key", string(key)))
		val, err := m.fn(ctx, this, args...)
		if err != nil {
			return val, err
		}
		future, async := any(val).(asyncResult)
		if async {
			release := future.hold()
			defer release()
		}
		if err := m.store.Set(ctx, key, val); err != nil {
			return val, err
		}
		if async {
			m.evictOnFailure(context.WithoutCancel(ctx), key, future)
		}
		return val, nil
	})

	val, _ := res.(R)
	return val, err
}

// Cache returns the backing store.
func (m *Memoized[R]) Cache() cache.Cache[R] {
	return m.store
}

// Serializer returns the default serializer, or nil when WithKeyFunc was used.
func (m *Memoized[R]) Serializer() *cache.KeySerializer {
	return m.serializer
}

// Key derives the key a call with these arguments would use, truncating them
// the same way a call does.
func (m *Memoized[R]) Key(this any, args ...any) (cache.Key, error) {
	return m.keyFunc(this, m.truncated(args)...)
}

// Arity is the declared number of positional arguments, or -1 if unknown.
func (m *Memoized[R]) Arity() int {
	return m.arity
}

// Forget deletes the entry a call with these arguments would hit.
func (m *Memoized[R]) Forget(ctx context.Context, this any, args ...any) error {
	key, err := m.Key(this, args...)
	if err != nil {
		return err
	}
	return m.store.Delete(ctx, key)
}

func (m *Memoized[R]) truncated(args []any) []any {
	if m.truncate && len(args) > m.arity {
		return args[:m.arity]
	}
	return args
}

func (m *Memoized[R]) lookup(ctx context.Context, key cache.Key) (R, bool, error) {
	var zero R
	ok, err := m.store.Has(ctx, key)
	if err != nil || !ok {
		return zero, false, err
	}
	return m.store.Get(ctx, key)
}

// evictOnFailure deletes key once future fails, unless the entry has already
// been replaced by another result.
func (m *Memoized[R]) evictOnFailure(ctx context.Context, key cache.Key, future asyncResult) {
	future.whenFailed(func(cause error) {
		cur, ok, err := m.store.Get(ctx, key)
		if err != nil {
			m.logger.Warn("failed to read entry of rejected future", zap.String("key", string(key)), zap.Error(err))
			return
		}
		if stored, isFuture := any(cur).(asyncResult); !ok || !isFuture || stored != future {
			return
		}
		if err := m.store.Delete(ctx, key); err != nil {
			m.logger.Warn("failed to evict rejected future", zap.String("key", string(key)), zap.Error(err))
			return
		}
		m.logger.Debug("evicted rejected future", zap.String("key", string(key)), zap.NamedError("cause", cause))
	})
}
