package cache

import (
	"context"

	"github.com/puzpuzpuz/xsync/v3"
)

// MapCache is an unbounded, concurrency safe store. It is the default backing
// store of a memoized function. Entries live until deleted or cleared.
type MapCache[V any] struct {
	entries *xsync.MapOf[Key, V]
}

// NewMapCache creates an empty MapCache.
func NewMapCache[V any]() *MapCache[V] {
	return &MapCache[V]{entries: xsync.NewMapOf[Key, V]()}
}

func (c *MapCache[V]) Has(_ context.Context, key Key) (bool, error) {
	_, ok := c.entries.Load(key)
	return ok, nil
}

func (c *MapCache[V]) Get(_ context.Context, key Key) (V, bool, error) {
	v, ok := c.entries.Load(key)
	return v, ok, nil
}

func (c *MapCache[V]) Set(_ context.Context, key Key, value V) error {
	c.entries.Store(key, value)
	return nil
}

func (c *MapCache[V]) Delete(_ context.Context, key Key) error {
	c.entries.Delete(key)
	return nil
}

// Len returns the number of stored entries.
func (c *MapCache[V]) Len() int {
	return c.entries.Size()
}

// Clear drops every entry.
func (c *MapCache[V]) Clear(_ context.Context) error {
	c.entries.Range(func(key Key, _ V) bool {
		c.entries.Delete(key)
		return true
	})
	return nil
}
