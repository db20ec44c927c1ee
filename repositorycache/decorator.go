package repositorycache

import (
	"context"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
	"go.uber.org/zap"

	"github.com/goliatone/go-memoize/cache"
	"github.com/goliatone/go-memoize/memoize"
)

var _ repository.Repository[any] = (*CachedRepository[any])(nil)

// listResult wraps the tuple result from List operations for caching
type listResult[T any] struct {
	Records []T `json:"records"`
	Total   int `json:"total"`
}

// Options configures a CachedRepository.
type Options struct {
	// MaxEntries bounds each read operation's cache with an LRU. Zero means
	// unbounded.
	MaxEntries int
	// TTL, when set, backs every read with an expiring store instead and
	// MaxEntries is ignored.
	TTL *cache.Config
	// KeyFunc derives keys from the read arguments. Defaults to
	// cache.ValueKey. Criteria are closures whose captured values are
	// invisible to ValueKey, so without a KeyFunc any read given criteria
	// bypasses the cache. A KeyFunc is responsible for telling criteria
	// apart, and reads with criteria are memoized under it.
	KeyFunc memoize.KeyFunc
	Logger  *zap.Logger
}

// CachedRepository decorates a base repository so its reads are memoized.
// Each read operation has its own memoized function and store; writes clear
// the stores they may have made stale.
type CachedRepository[T any] struct {
	base   repository.Repository[T]
	logger *zap.Logger

	// keysCriteria reports whether the KeyFunc can distinguish criteria.
	keysCriteria bool

	get             *memoize.Memoized[T]
	getByID         *memoize.Memoized[T]
	getByIdentifier *memoize.Memoized[T]
	list            *memoize.Memoized[listResult[T]]
	count           *memoize.Memoized[int]
}

// New creates a CachedRepository around base.
func New[T any](base repository.Repository[T], opts Options) (*CachedRepository[T], error) {
	keysCriteria := opts.KeyFunc != nil
	if opts.KeyFunc == nil {
		opts.KeyFunc = cache.ValueKey
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.MaxEntries < 0 {
		return nil, &cache.ConfigError{Field: "MaxEntries", Message: "must not be negative"}
	}

	c := &CachedRepository[T]{base: base, logger: opts.Logger, keysCriteria: keysCriteria}
	var err error

	if c.get, err = memoized(opts, "Get", func(ctx context.Context, _ any, args ...any) (T, error) {
		return base.Get(ctx, selectCriteria(args, 0)...)
	}); err != nil {
		return nil, err
	}
	if c.getByID, err = memoized(opts, "GetByID", func(ctx context.Context, _ any, args ...any) (T, error) {
		return base.GetByID(ctx, args[0].(string), selectCriteria(args, 1)...)
	}); err != nil {
		return nil, err
	}
	if c.getByIdentifier, err = memoized(opts, "GetByIdentifier", func(ctx context.Context, _ any, args ...any) (T, error) {
		return base.GetByIdentifier(ctx, args[0].(string), selectCriteria(args, 1)...)
	}); err != nil {
		return nil, err
	}
	if c.list, err = memoized(opts, "List", func(ctx context.Context, _ any, args ...any) (listResult[T], error) {
		records, total, err := base.List(ctx, selectCriteria(args, 0)...)
		return listResult[T]{Records: records, Total: total}, err
	}); err != nil {
		return nil, err
	}
	if c.count, err = memoized(opts, "Count", func(ctx context.Context, _ any, args ...any) (int, error) {
		return base.Count(ctx, selectCriteria(args, 0)...)
	}); err != nil {
		return nil, err
	}
	return c, nil
}

func memoized[V any](opts Options, operation string, fn memoize.Func[V]) (*memoize.Memoized[V], error) {
	logger := opts.Logger.With(zap.String("operation", operation))
	var store cache.Cache[V]
	switch {
	case opts.TTL != nil:
		ttl, err := cache.NewTTLCache[V](*opts.TTL)
		if err != nil {
			return nil, err
		}
		store = ttl
	case opts.MaxEntries > 0:
		lru, err := cache.NewLRU(opts.MaxEntries, cache.WithLRULogger[V](logger))
		if err != nil {
			return nil, err
		}
		store = lru
	default:
		store = cache.NewMapCache[V]()
	}
	return memoize.New(fn,
		memoize.WithCache(store),
		memoize.WithKeyFunc(opts.KeyFunc),
		memoize.WithLogger(logger),
	), nil
}

// cacheable reports whether a read with criteria may be served from cache.
func (c *CachedRepository[T]) cacheable(criteria []repository.SelectCriteria) bool {
	return len(criteria) == 0 || c.keysCriteria
}

func selectCriteria(args []any, at int) []repository.SelectCriteria {
	if len(args) <= at {
		return nil
	}
	criteria, _ := args[at].([]repository.SelectCriteria)
	return criteria
}

// Get retrieves a single record using the provided criteria, with caching
func (c *CachedRepository[T]) Get(ctx context.Context, criteria ...repository.SelectCriteria) (T, error) {
	if !c.cacheable(criteria) {
		return c.base.Get(ctx, criteria...)
	}
	return c.get.Call(ctx, criteria)
}

// GetByID retrieves a record by ID with optional criteria, with caching
func (c *CachedRepository[T]) GetByID(ctx context.Context, id string, criteria ...repository.SelectCriteria) (T, error) {
	if !c.cacheable(criteria) {
		return c.base.GetByID(ctx, id, criteria...)
	}
	return c.getByID.Call(ctx, id, criteria)
}

// List retrieves multiple records using the provided criteria, with caching
func (c *CachedRepository[T]) List(ctx context.Context, criteria ...repository.SelectCriteria) ([]T, int, error) {
	if !c.cacheable(criteria) {
		return c.base.List(ctx, criteria...)
	}
	res, err := c.list.Call(ctx, criteria)
	if err != nil {
		return nil, 0, err
	}
	return res.Records, res.Total, nil
}

// Count returns the number of records matching the criteria, with caching
func (c *CachedRepository[T]) Count(ctx context.Context, criteria ...repository.SelectCriteria) (int, error) {
	if !c.cacheable(criteria) {
		return c.base.Count(ctx, criteria...)
	}
	return c.count.Call(ctx, criteria)
}

// GetByIdentifier retrieves a record by identifier with optional criteria, with caching
func (c *CachedRepository[T]) GetByIdentifier(ctx context.Context, identifier string, criteria ...repository.SelectCriteria) (T, error) {
	if !c.cacheable(criteria) {
		return c.base.GetByIdentifier(ctx, identifier, criteria...)
	}
	return c.getByIdentifier.Call(ctx, identifier, criteria)
}

// Create creates a new record. Write operations pass through to base repository
func (c *CachedRepository[T]) Create(ctx context.Context, record T, criteria ...repository.InsertCriteria) (T, error) {
	result, err := c.base.Create(ctx, record, criteria...)
	if err == nil {
		c.invalidateAfterCreate(ctx)
	}
	return result, err
}

// CreateTx creates a new record within a transaction
func (c *CachedRepository[T]) CreateTx(ctx context.Context, tx bun.IDB, record T, criteria ...repository.InsertCriteria) (T, error) {
	result, err := c.base.CreateTx(ctx, tx, record, criteria...)
	if err == nil {
		c.invalidateAfterCreate(ctx)
	}
	return result, err
}

// CreateMany creates multiple records
func (c *CachedRepository[T]) CreateMany(ctx context.Context, records []T, criteria ...repository.InsertCriteria) ([]T, error) {
	result, err := c.base.CreateMany(ctx, records, criteria...)
	if err == nil {
		c.invalidateAfterCreate(ctx)
	}
	return result, err
}

// CreateManyTx creates multiple records within a transaction
func (c *CachedRepository[T]) CreateManyTx(ctx context.Context, tx bun.IDB, records []T, criteria ...repository.InsertCriteria) ([]T, error) {
	result, err := c.base.CreateManyTx(ctx, tx, records, criteria...)
	if err == nil {
		c.invalidateAfterCreate(ctx)
	}
	return result, err
}

// GetOrCreate gets a record or creates it if it doesn't exist
func (c *CachedRepository[T]) GetOrCreate(ctx context.Context, record T) (T, error) {
	result, err := c.base.GetOrCreate(ctx, record)
	if err == nil {
		c.invalidateAfterCreate(ctx)
	}
	return result, err
}

// GetOrCreateTx gets a record or creates it if it doesn't exist within a transaction
func (c *CachedRepository[T]) GetOrCreateTx(ctx context.Context, tx bun.IDB, record T) (T, error) {
	result, err := c.base.GetOrCreateTx(ctx, tx, record)
	if err == nil {
		c.invalidateAfterCreate(ctx)
	}
	return result, err
}

// Update updates a record
func (c *CachedRepository[T]) Update(ctx context.Context, record T, criteria ...repository.UpdateCriteria) (T, error) {
	result, err := c.base.Update(ctx, record, criteria...)
	if err == nil {
		c.invalidateAll(ctx)
	}
	return result, err
}

// UpdateTx updates a record within a transaction
func (c *CachedRepository[T]) UpdateTx(ctx context.Context, tx bun.IDB, record T, criteria ...repository.UpdateCriteria) (T, error) {
	result, err := c.base.UpdateTx(ctx, tx, record, criteria...)
	if err == nil {
		c.invalidateAll(ctx)
	}
	return result, err
}

// UpdateMany updates multiple records
func (c *CachedRepository[T]) UpdateMany(ctx context.Context, records []T, criteria ...repository.UpdateCriteria) ([]T, error) {
	result, err := c.base.UpdateMany(ctx, records, criteria...)
	if err == nil {
		c.invalidateAll(ctx)
	}
	return result, err
}

// UpdateManyTx updates multiple records within a transaction
func (c *CachedRepository[T]) UpdateManyTx(ctx context.Context, tx bun.IDB, records []T, criteria ...repository.UpdateCriteria) ([]T, error) {
	result, err := c.base.UpdateManyTx(ctx, tx, records, criteria...)
	if err == nil {
		c.invalidateAll(ctx)
	}
	return result, err
}

// Upsert inserts or updates a record
func (c *CachedRepository[T]) Upsert(ctx context.Context, record T, criteria ...repository.UpdateCriteria) (T, error) {
	result, err := c.base.Upsert(ctx, record, criteria...)
	if err == nil {
		c.invalidateAll(ctx)
	}
	return result, err
}

// UpsertTx inserts or updates a record within a transaction
func (c *CachedRepository[T]) UpsertTx(ctx context.Context, tx bun.IDB, record T, criteria ...repository.UpdateCriteria) (T, error) {
	result, err := c.base.UpsertTx(ctx, tx, record, criteria...)
	if err == nil {
		c.invalidateAll(ctx)
	}
	return result, err
}

// UpsertMany inserts or updates multiple records
func (c *CachedRepository[T]) UpsertMany(ctx context.Context, records []T, criteria ...repository.UpdateCriteria) ([]T, error) {
	result, err := c.base.UpsertMany(ctx, records, criteria...)
	if err == nil {
		c.invalidateAll(ctx)
	}
	return result, err
}

// UpsertManyTx inserts or updates multiple records within a transaction
func (c *CachedRepository[T]) UpsertManyTx(ctx context.Context, tx bun.IDB, records []T, criteria ...repository.UpdateCriteria) ([]T, error) {
	result, err := c.base.UpsertManyTx(ctx, tx, records, criteria...)
	if err == nil {
		c.invalidateAll(ctx)
	}
	return result, err
}

// Delete deletes a record
func (c *CachedRepository[T]) Delete(ctx context.Context, record T) error {
	err := c.base.Delete(ctx, record)
	if err == nil {
		c.invalidateAll(ctx)
	}
	return err
}

// DeleteTx deletes a record within a transaction
func (c *CachedRepository[T]) DeleteTx(ctx context.Context, tx bun.IDB, record T) error {
	err := c.base.DeleteTx(ctx, tx, record)
	if err == nil {
		c.invalidateAll(ctx)
	}
	return err
}

// DeleteMany deletes multiple records based on criteria
func (c *CachedRepository[T]) DeleteMany(ctx context.Context, criteria ...repository.DeleteCriteria) error {
	err := c.base.DeleteMany(ctx, criteria...)
	if err == nil {
		c.invalidateAll(ctx)
	}
	return err
}

// DeleteManyTx deletes multiple records based on criteria within a transaction
func (c *CachedRepository[T]) DeleteManyTx(ctx context.Context, tx bun.IDB, criteria ...repository.DeleteCriteria) error {
	err := c.base.DeleteManyTx(ctx, tx, criteria...)
	if err == nil {
		c.invalidateAll(ctx)
	}
	return err
}

// DeleteWhere deletes records based on criteria
func (c *CachedRepository[T]) DeleteWhere(ctx context.Context, criteria ...repository.DeleteCriteria) error {
	err := c.base.DeleteWhere(ctx, criteria...)
	if err == nil {
		c.invalidateAll(ctx)
	}
	return err
}

// DeleteWhereTx deletes records based on criteria within a transaction
func (c *CachedRepository[T]) DeleteWhereTx(ctx context.Context, tx bun.IDB, criteria ...repository.DeleteCriteria) error {
	err := c.base.DeleteWhereTx(ctx, tx, criteria...)
	if err == nil {
		c.invalidateAll(ctx)
	}
	return err
}

// ForceDelete force deletes a record (bypassing soft delete)
func (c *CachedRepository[T]) ForceDelete(ctx context.Context, record T) error {
	err := c.base.ForceDelete(ctx, record)
	if err == nil {
		c.invalidateAll(ctx)
	}
	return err
}

// ForceDeleteTx force deletes a record within a transaction (bypassing soft delete)
func (c *CachedRepository[T]) ForceDeleteTx(ctx context.Context, tx bun.IDB, record T) error {
	err := c.base.ForceDeleteTx(ctx, tx, record)
	if err == nil {
		c.invalidateAll(ctx)
	}
	return err
}

// GetTx retrieves a single record using the provided criteria within a transaction
func (c *CachedRepository[T]) GetTx(ctx context.Context, tx bun.IDB, criteria ...repository.SelectCriteria) (T, error) {
	return c.base.GetTx(ctx, tx, criteria...)
}

// GetByIDTx retrieves a record by ID with optional criteria within a transaction
func (c *CachedRepository[T]) GetByIDTx(ctx context.Context, tx bun.IDB, id string, criteria ...repository.SelectCriteria) (T, error) {
	return c.base.GetByIDTx(ctx, tx, id, criteria...)
}

// ListTx retrieves multiple records using the provided criteria within a transaction
func (c *CachedRepository[T]) ListTx(ctx context.Context, tx bun.IDB, criteria ...repository.SelectCriteria) ([]T, int, error) {
	return c.base.ListTx(ctx, tx, criteria...)
}

// CountTx returns the number of records matching the criteria within a transaction
func (c *CachedRepository[T]) CountTx(ctx context.Context, tx bun.IDB, criteria ...repository.SelectCriteria) (int, error) {
	return c.base.CountTx(ctx, tx, criteria...)
}

// GetByIdentifierTx retrieves a record by identifier with optional criteria within a transaction
func (c *CachedRepository[T]) GetByIdentifierTx(ctx context.Context, tx bun.IDB, identifier string, criteria ...repository.SelectCriteria) (T, error) {
	return c.base.GetByIdentifierTx(ctx, tx, identifier, criteria...)
}

// Raw executes a raw SQL query and returns the results
func (c *CachedRepository[T]) Raw(ctx context.Context, sql string, args ...any) ([]T, error) {
	return c.base.Raw(ctx, sql, args...)
}

// RawTx executes a raw SQL query within a transaction and returns the results
func (c *CachedRepository[T]) RawTx(ctx context.Context, tx bun.IDB, sql string, args ...any) ([]T, error) {
	return c.base.RawTx(ctx, tx, sql, args...)
}

// Handlers returns the model handlers from the base repository
func (c *CachedRepository[T]) Handlers() repository.ModelHandlers[T] {
	return c.base.Handlers()
}

// Invalidate drops every cached read.
func (c *CachedRepository[T]) Invalidate(ctx context.Context) {
	c.invalidateAll(ctx)
}

// invalidateAfterCreate clears List and Count, since new records change
// pagination and totals but not lookups of existing ones.
func (c *CachedRepository[T]) invalidateAfterCreate(ctx context.Context) {
	c.clear(ctx, "List", c.list.Cache())
	c.clear(ctx, "Count", c.count.Cache())
}

// invalidateAll clears every read cache. Updates and deletes may change any
// record, and criteria based writes do not tell us which.
func (c *CachedRepository[T]) invalidateAll(ctx context.Context) {
	c.clear(ctx, "Get", c.get.Cache())
	c.clear(ctx, "GetByID", c.getByID.Cache())
	c.clear(ctx, "GetByIdentifier", c.getByIdentifier.Cache())
	c.invalidateAfterCreate(ctx)
}

func (c *CachedRepository[T]) clear(ctx context.Context, operation string, store any) {
	clearer, ok := store.(cache.Clearer)
	if !ok {
		return
	}
	if err := clearer.Clear(ctx); err != nil {
		c.logger.Warn("failed to invalidate cached reads", zap.String("operation", operation), zap.Error(err))
	}
}
