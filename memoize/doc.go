// Package memoize caches the results of functions keyed by their arguments.
//
// # Basic Usage
//
//	lookup := memoize.New(func(ctx context.Context, _ any, args ...any) (User, error) {
//		return repo.GetByID(ctx, args[0].(string))
//	})
//
//	u, err := lookup.Call(ctx, "user-123") // runs the function
//	u, err = lookup.Call(ctx, "user-123")  // served from the cache
//
// Typed helpers avoid the argument slice for small signatures:
//
//	square, m := memoize.Memoize1(func(ctx context.Context, n int) (int, error) {
//		return n * n, nil
//	})
//
// and Reflect adapts any function value:
//
//	m, err := memoize.Reflect(strings.Repeat)
//
// # Keys
//
// By default keys come from a cache.KeySerializer bound to the store. Equal
// primitives share a key; pointers, maps, slices and channels are compared by
// identity and their entries are purged once the object is garbage
// collected. WithKeyFunc replaces that behavior entirely, for instance with
// cache.ValueKey for structural keys.
//
// WithTruncateArgs together with WithArity ignores surplus arguments both in
// the key and in the call.
//
// # Failures
//
// A function returning an error has nothing cached, so the next call runs it
// again. A function returning a *Future has the future cached immediately and
// shared by every caller of that key; if the future is rejected the entry is
// deleted before any awaiter sees the error.
//
// Errors from the store or from a custom key function are returned as is.
//
// # Invalidation
//
// Key computes the key a call would use and Cache exposes the store, so an
// entry can be dropped with Cache().Delete, or with Forget in one step.
package memoize
