// Package cache provides the stores and key serializers used by memoized functions.
//
// # Overview
//
// The package exports one store interface and the pieces that feed it:
//
//   - Cache: a generic Has/Get/Set/Delete store keyed by Key
//   - MapCache: the default unbounded store
//   - LRU: a bounded store that evicts the least recently used entry
//   - TTLCache: a sharded store whose entries expire, configured through Config
//   - KeySerializer: the identity aware serializer memoized functions use by default
//   - ValueKey: a structural serializer for callers that want value semantics everywhere
//
// # Keys
//
// KeySerializer renders every argument as a Segment and joins them with ",".
// Primitives become literals, so two calls with equal numbers, strings and
// booleans share a key:
//
//	s := cache.NewKeySerializer(store)
//	s.Key(nil, 1, "a")  // `nil,1,"a"`
//
// Pointers, maps, slices and channels become "{n}" tokens. The same object
// always gets the same token and distinct objects never share one, even if
// they hold equal values:
//
//	a, b := &User{ID: 1}, &User{ID: 1}
//	s.Key(nil, a)       // "nil,{0}"
//	s.Key(nil, b)       // "nil,{1}"
//
// Tokens are held weakly. When the object behind a token is garbage
// collected, every key that used the token is deleted from the store, so
// results computed for a dead object do not outlive it.
//
// Structs and arrays are rendered field by field:
//
//	s.Key(nil, Point{1, 2}) // "nil,main.Point{1,2}"
//
// # Function Identity
//
// Funcs are identified by their closure object and tracked like pointers.
// Two closures built from the same literal get different tokens, and a
// closure's keys are purged once it is collected. Funcs without captures are
// static and keep one token for the life of the process.
//
// # Custom Stores
//
// Any type implementing Cache can back a memoized function. Stores that also
// implement Clearer or Sizer expose Clear and Len to callers that need them.
package cache
