package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLRU(t *testing.T, maxSize int, opts ...LRUOption[int]) *LRU[int] {
	t.Helper()
	l, err := NewLRU[int](maxSize, opts...)
	require.NoError(t, err)
	return l
}

func TestNewLRU_RejectsNonPositiveSize(t *testing.T) {
	for _, size := range []int{0, -1} {
		l, err := NewLRU[int](size)
		assert.Nil(t, l)

		var cfgErr *ConfigError
		require.True(t, errors.As(err, &cfgErr), "expected ConfigError for size %d", size)
		assert.Equal(t, "maxSize", cfgErr.Field)
	}
}

func TestLRU_EvictsLeastRecentlySet(t *testing.T) {
	ctx := context.Background()
	l := newTestLRU(t, 3)

	for _, k := range []Key{"1", "2", "1", "3", "4"} {
		require.NoError(t, l.Set(ctx, k, 0))
	}

	assert.Equal(t, []Key{"1", "3", "4"}, l.Keys())
	ok, _ := l.Has(ctx, "2")
	assert.False(t, ok, "key 2 should have been evicted")
}

func TestLRU_GetPromotes(t *testing.T) {
	ctx := context.Background()
	l := newTestLRU(t, 2)

	_ = l.Set(ctx, "a", 1)
	_ = l.Set(ctx, "b", 2)

	v, ok, err := l.Get(ctx, "a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, v)

	_ = l.Set(ctx, "c", 3)
	assert.Equal(t, []Key{"a", "c"}, l.Keys())
}

func TestLRU_HasPromotes(t *testing.T) {
	ctx := context.Background()
	l := newTestLRU(t, 2)

	_ = l.Set(ctx, "a", 1)
	_ = l.Set(ctx, "b", 2)

	ok, err := l.Has(ctx, "a")
	require.NoError(t, err)
	require.True(t, ok)

	_ = l.Set(ctx, "c", 3)
	assert.Equal(t, []Key{"a", "c"}, l.Keys())
}

func TestLRU_PeekDoesNotPromote(t *testing.T) {
	ctx := context.Background()
	l := newTestLRU(t, 2)

	_ = l.Set(ctx, "a", 1)
	_ = l.Set(ctx, "b", 2)

	v, ok := l.Peek("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	_ = l.Set(ctx, "c", 3)
	assert.Equal(t, []Key{"b", "c"}, l.Keys())
}

func TestLRU_SetOverwritesAndPromotes(t *testing.T) {
	ctx := context.Background()
	l := newTestLRU(t, 2)

	_ = l.Set(ctx, "a", 1)
	_ = l.Set(ctx, "b", 2)
	_ = l.Set(ctx, "a", 10)

	assert.Equal(t, 2, l.Len())
	assert.Equal(t, []Key{"b", "a"}, l.Keys())

	v, _, _ := l.Get(ctx, "a")
	assert.Equal(t, 10, v)
}

func TestLRU_SizeOne(t *testing.T) {
	ctx := context.Background()
	l := newTestLRU(t, 1)

	_ = l.Set(ctx, "a", 1)
	_ = l.Set(ctx, "b", 2)

	assert.Equal(t, []Key{"b"}, l.Keys())
	_, ok, _ := l.Get(ctx, "a")
	assert.False(t, ok)
}

func TestLRU_DeleteKeepsOrder(t *testing.T) {
	ctx := context.Background()
	l := newTestLRU(t, 4)

	for _, k := range []Key{"a", "b", "c", "d"} {
		_ = l.Set(ctx, k, 0)
	}
	require.NoError(t, l.Delete(ctx, "b"))
	require.NoError(t, l.Delete(ctx, "missing"))

	assert.Equal(t, []Key{"a", "c", "d"}, l.Keys())
	assert.Equal(t, 3, l.Len())
}

func TestLRU_Clear(t *testing.T) {
	ctx := context.Background()
	l := newTestLRU(t, 3)

	_ = l.Set(ctx, "a", 1)
	_ = l.Set(ctx, "b", 2)
	require.NoError(t, l.Clear(ctx))

	assert.Zero(t, l.Len())
	assert.Empty(t, l.Keys())

	_ = l.Set(ctx, "c", 3)
	assert.Equal(t, []Key{"c"}, l.Keys())
}

func TestLRU_EvictionCallback(t *testing.T) {
	ctx := context.Background()
	var evicted []Key
	l := newTestLRU(t, 2, WithEvictionCallback(func(k Key, _ int) {
		evicted = append(evicted, k)
	}))

	_ = l.Set(ctx, "a", 1)
	_ = l.Set(ctx, "b", 2)
	_ = l.Delete(ctx, "b")
	_ = l.Set(ctx, "c", 3)
	_ = l.Set(ctx, "d", 4)

	assert.Equal(t, []Key{"a"}, evicted)
}

func TestLRU_NeverExceedsMaxSize(t *testing.T) {
	ctx := context.Background()
	l := newTestLRU(t, 8)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := Key(fmt.Sprintf("%d-%d", g, i%16))
				_ = l.Set(ctx, key, i)
				_, _, _ = l.Get(ctx, key)
				_, _ = l.Has(ctx, Key(fmt.Sprintf("%d-%d", g, i%5)))
			}
		}(g)
	}
	wg.Wait()

	assert.LessOrEqual(t, l.Len(), 8)
	assert.Len(t, l.Keys(), l.Len())
}
