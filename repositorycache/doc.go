// Package repositorycache provides a memoizing decorator for go-repository-bun repositories.
//
// # Overview
//
// CachedRepository wraps a base repository. Each read operation is a
// memoize.Memoized function with its own store, so a read with the same
// arguments is answered from memory until a write makes it stale.
//
// # Basic Usage
//
//	base := myrepo.New(db) // Your existing go-repository-bun repository
//
//	cached, err := repositorycache.New(base, repositorycache.Options{
//		MaxEntries: 1000,
//		Logger:     logger,
//	})
//	if err != nil {
//		return err
//	}
//
//	user, err := cached.GetByID(ctx, "user-123")
//	users, total, err := cached.List(ctx)
//
// # Cached vs Pass-through Operations
//
// Cached:
//   - Get, GetByID, GetByIdentifier
//   - List, Count
//
// Pass-through:
//   - All write operations (Create, Update, Upsert, Delete and variants)
//   - All transaction-based operations (*Tx methods), so reads inside a
//     transaction never see or fill the cache
//   - Raw SQL queries
//
// # Keys
//
// Keys default to cache.ValueKey over the call arguments. Criteria are
// closures, and what a closure captured cannot be read back, so by default a
// read given any criteria goes straight to the base repository. Supply
// Options.KeyFunc to memoize reads with criteria; the KeyFunc then decides
// which criteria are equivalent.
//
// # Invalidation
//
// Successful writes clear whole stores rather than individual keys:
//
//   - Create, CreateMany and GetOrCreate clear List and Count
//   - Update, Upsert, Delete, ForceDelete and criteria deletes clear every store
//
// Failed writes leave the cache untouched. Invalidate clears everything on
// demand.
//
// # Error Handling
//
// Errors from the base repository are returned unchanged and are never
// cached, so the next read retries. Failures while clearing a store are
// logged and do not fail the write.
package repositorycache
