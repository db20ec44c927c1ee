package cache

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// LRU is a bounded store that evicts the least recently used entry once more
// than maxSize entries are held. Get and Has count as use.
//
// Entries form a ring around a sentinel root:
//
//	root <-> least recent <-> ... <-> most recent <-> root
//
// so promotion, insertion and eviction never need nil checks.
type LRU[V any] struct {
	mu      sync.Mutex
	maxSize int
	items   map[Key]*lruNode[V]
	root    lruNode[V]
	onEvict func(Key, V)
	logger  *zap.Logger
}

type lruNode[V any] struct {
	key   Key
	value V
	prev  *lruNode[V]
	next  *lruNode[V]
}

// LRUOption configures an LRU.
type LRUOption[V any] func(*LRU[V])

// WithEvictionCallback registers fn to be called for every entry evicted for
// capacity. It is not called for Delete or Clear. fn runs with the LRU lock
// held and must not call back into the cache.
func WithEvictionCallback[V any](fn func(Key, V)) LRUOption[V] {
	return func(l *LRU[V]) {
		l.onEvict = fn
	}
}

// WithLRULogger sets the logger used to report evictions at debug level.
func WithLRULogger[V any](logger *zap.Logger) LRUOption[V] {
	return func(l *LRU[V]) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewLRU creates an LRU holding at most maxSize entries.
func NewLRU[V any](maxSize int, opts ...LRUOption[V]) (*LRU[V], error) {
	if maxSize < 1 {
		return nil, &ConfigError{Field: "maxSize", Message: "must be greater than 0"}
	}
	l := &LRU[V]{
		maxSize: maxSize,
		items:   make(map[Key]*lruNode[V], maxSize),
		logger:  zap.NewNop(),
	}
	l.root.prev, l.root.next = &l.root, &l.root
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

func (l *LRU[V]) Has(_ context.Context, key Key) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	n, ok := l.items[key]
	if ok {
		l.moveToBack(n)
	}
	return ok, nil
}

func (l *LRU[V]) Get(_ context.Context, key Key) (V, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	n, ok := l.items[key]
	if !ok {
		var zero V
		return zero, false, nil
	}
	l.moveToBack(n)
	return n.value, true, nil
}

// Peek returns the value for key without promoting it.
func (l *LRU[V]) Peek(key Key) (V, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	n, ok := l.items[key]
	if !ok {
		var zero V
		return zero, false
	}
	return n.value, true
}

func (l *LRU[V]) Set(_ context.Context, key Key, value V) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if n, ok := l.items[key]; ok {
		n.value = value
		l.moveToBack(n)
		return nil
	}

	n := &lruNode[V]{key: key, value: value}
	l.items[key] = n
	l.pushBack(n)

	if len(l.items) > l.maxSize {
		l.evict(l.root.next)
	}
	return nil
}

func (l *LRU[V]) Delete(_ context.Context, key Key) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if n, ok := l.items[key]; ok {
		unlink(n)
		delete(l.items, key)
	}
	return nil
}

// Clear drops every entry.
func (l *LRU[V]) Clear(_ context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	clear(l.items)
	l.root.prev, l.root.next = &l.root, &l.root
	return nil
}

// Len returns the number of stored entries.
func (l *LRU[V]) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.items)
}

// Keys returns the stored keys from least to most recently used.
func (l *LRU[V]) Keys() []Key {
	l.mu.Lock()
	defer l.mu.Unlock()
	keys := make([]Key, 0, len(l.items))
	for n := l.root.next; n != &l.root; n = n.next {
		keys = append(keys, n.key)
	}
	return keys
}

func (l *LRU[V]) evict(n *lruNode[V]) {
	unlink(n)
	delete(l.items, n.key)
	l.logger.Debug("lru evicted entry", zap.String("key", string(n.key)), zap.Int("max_size", l.maxSize))
	if l.onEvict != nil {
		l.onEvict(n.key, n.value)
	}
}

func (l *LRU[V]) pushBack(n *lruNode[V]) {
	last := l.root.prev
	last.next, n.prev = n, last
	n.next, l.root.prev = &l.root, n
}

func (l *LRU[V]) moveToBack(n *lruNode[V]) {
	if l.root.prev == n {
		return
	}
	unlink(n)
	l.pushBack(n)
}

func unlink[V any](n *lruNode[V]) {
	n.prev.next, n.next.prev = n.next, n.prev
	n.prev, n.next = nil, nil
}
