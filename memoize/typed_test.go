package memoize

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-memoize/cache"
)

func TestMemoize1(t *testing.T) {
	ctx := context.Background()
	var calls atomic.Int32
	square, m := Memoize1(func(_ context.Context, n int) (int, error) {
		calls.Add(1)
		return n * n, nil
	})

	for i := 0; i < 3; i++ {
		v, err := square(ctx, 4)
		require.NoError(t, err)
		assert.Equal(t, 16, v)
	}

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, 1, m.Arity())

	key, err := m.Key(nil, 4)
	require.NoError(t, err)
	assert.Equal(t, cache.Key("nil,4"), key)
}

func TestMemoize2_WithLRU(t *testing.T) {
	ctx := context.Background()
	lru, err := cache.NewLRU[string](1)
	require.NoError(t, err)

	var calls atomic.Int32
	label, m := Memoize2(func(_ context.Context, name string, n int) (string, error) {
		calls.Add(1)
		return fmt.Sprintf("%s-%d", name, n), nil
	}, WithCache[string](lru))

	v, err := label(ctx, "a", 1)
	require.NoError(t, err)
	assert.Equal(t, "a-1", v)

	_, _ = label(ctx, "a", 1)
	_, _ = label(ctx, "b", 2)
	_, _ = label(ctx, "a", 1)

	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, 2, m.Arity())
	assert.Equal(t, []cache.Key{`nil,"a",1`}, lru.Keys())
}

func TestMemoize1_NilInterfaceArgument(t *testing.T) {
	describe, _ := Memoize1(func(_ context.Context, err error) (string, error) {
		if err == nil {
			return "ok", nil
		}
		return err.Error(), nil
	})

	v, err := describe(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
}

func TestMemoize2_MissingArgumentsUseZeroValues(t *testing.T) {
	ctx := context.Background()
	_, m := Memoize2(func(_ context.Context, name string, n int) (string, error) {
		return fmt.Sprintf("%q-%d", name, n), nil
	})

	var v string
	var err error
	require.NotPanics(t, func() { v, err = m.Call(ctx) })
	require.NoError(t, err)
	assert.Equal(t, `""-0`, v)

	require.NotPanics(t, func() { v, err = m.Call(ctx, "a") })
	require.NoError(t, err)
	assert.Equal(t, `"a"-0`, v)

	v, err = m.Call(ctx, 7, "swapped")
	require.NoError(t, err)
	assert.Equal(t, `""-0`, v, "mistyped arguments fall back to zero values")
}

func TestMemoize1_CallWithoutArguments(t *testing.T) {
	_, m := Memoize1(func(_ context.Context, n int) (int, error) {
		return n + 1, nil
	})

	var v int
	var err error
	require.NotPanics(t, func() { v, err = m.Call(context.Background()) })
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}
