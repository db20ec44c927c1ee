package memoize

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromFunc_RejectsInvalidFunctions(t *testing.T) {
	tests := []struct {
		name string
		fn   any
	}{
		{"nil", nil},
		{"not a function", 42},
		{"nil function", (func(int) int)(nil)},
		{"no results", func(int) {}},
		{"second result not error", func() (int, int) { return 0, 0 }},
		{"three results", func() (int, int, error) { return 0, 0, nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := FromFunc(tt.fn)
			var cfgErr *ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, "fn", cfgErr.Field)
		})
	}
}

func TestFromFunc_Arity(t *testing.T) {
	tests := []struct {
		name  string
		fn    any
		arity int
	}{
		{"no params", func() int { return 0 }, 0},
		{"plain", func(int, string) int { return 0 }, 2},
		{"context excluded", func(context.Context, int) (int, error) { return 0, nil }, 1},
		{"variadic excluded", func(string, ...int) int { return 0 }, 1},
		{"context and variadic", func(context.Context, ...string) error { return nil }, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, arity, err := FromFunc(tt.fn)
			require.NoError(t, err)
			assert.Equal(t, tt.arity, arity)
		})
	}
}

type ctxKey struct{}

func TestFromFunc_Call(t *testing.T) {
	ctx := context.WithValue(context.Background(), ctxKey{}, "traced")

	t.Run("forwards context", func(t *testing.T) {
		call, _, err := FromFunc(func(ctx context.Context, s string) (string, error) {
			return ctx.Value(ctxKey{}).(string) + ":" + s, nil
		})
		require.NoError(t, err)

		v, err := call(ctx, nil, "x")
		require.NoError(t, err)
		assert.Equal(t, "traced:x", v)
	})

	t.Run("zero fills and drops", func(t *testing.T) {
		call, _, err := FromFunc(func(a int, b string) string {
			return strings.Repeat(b, a)
		})
		require.NoError(t, err)

		v, err := call(ctx, nil, 2)
		require.NoError(t, err)
		assert.Equal(t, "", v)

		v, err = call(ctx, nil, 2, "ab", "surplus")
		require.NoError(t, err)
		assert.Equal(t, "abab", v)
	})

	t.Run("variadic tail", func(t *testing.T) {
		call, _, err := FromFunc(func(sep string, parts ...string) string {
			return strings.Join(parts, sep)
		})
		require.NoError(t, err)

		v, err := call(ctx, nil, "-", "a", "b", "c")
		require.NoError(t, err)
		assert.Equal(t, "a-b-c", v)
	})

	t.Run("numeric conversion", func(t *testing.T) {
		call, _, err := FromFunc(func(n int64, f float32) float64 { return float64(n) + float64(f) })
		require.NoError(t, err)

		v, err := call(ctx, nil, 2, 1)
		require.NoError(t, err)
		assert.Equal(t, 3.0, v)
	})

	t.Run("nil for reference params", func(t *testing.T) {
		call, _, err := FromFunc(func(m map[string]int, p *int) bool { return m == nil && p == nil })
		require.NoError(t, err)

		v, err := call(ctx, nil, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, true, v)
	})

	t.Run("error only", func(t *testing.T) {
		boom := errors.New("boom")
		call, _, err := FromFunc(func() error { return boom })
		require.NoError(t, err)

		v, err := call(ctx, nil)
		assert.ErrorIs(t, err, boom)
		assert.Nil(t, v)
	})
}

func TestFromFunc_ArgumentErrors(t *testing.T) {
	call, _, err := FromFunc(func(n int, s string) string { return s })
	require.NoError(t, err)

	_, err = call(context.Background(), nil, "not a number", "s")
	var argErr *ArgumentError
	require.ErrorAs(t, err, &argErr)
	assert.Equal(t, 0, argErr.Index)
	assert.Contains(t, argErr.Error(), "cannot use string as int")

	_, err = call(context.Background(), nil, 1, nil)
	require.ErrorAs(t, err, &argErr)
	assert.Equal(t, 1, argErr.Index)
	assert.Contains(t, argErr.Error(), "nil is not a valid string")
}

func TestReflect(t *testing.T) {
	ctx := context.Background()
	var calls atomic.Int32
	m, err := Reflect(func(s string, n int) string {
		calls.Add(1)
		return strings.Repeat(s, n)
	}, WithTruncateArgs())
	require.NoError(t, err)
	assert.Equal(t, 2, m.Arity())

	v, err := m.Call(ctx, "ab", 2)
	require.NoError(t, err)
	assert.Equal(t, "abab", v)

	v, err = m.Call(ctx, "ab", 2, "ignored")
	require.NoError(t, err)
	assert.Equal(t, "abab", v)
	assert.Equal(t, int32(1), calls.Load())

	// The receiver is part of the key even though the function never sees it.
	_, err = m.CallWith(ctx, "other", "ab", 2)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestReflect_AsyncResults(t *testing.T) {
	ctx := context.Background()
	var calls atomic.Int32
	m, err := Reflect(func(ctx context.Context, id string) *Future[string] {
		calls.Add(1)
		return Go(ctx, func(context.Context) (string, error) {
			return "", errors.New("not found: " + id)
		})
	})
	require.NoError(t, err)

	res, err := m.Call(ctx, "u1")
	require.NoError(t, err)
	f := res.(*Future[string])
	_, err = f.Await(ctx)
	assert.EqualError(t, err, "not found: u1")

	_, err = m.Call(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load(), "a rejected future is retried")
}

func TestReflect_InvalidFunction(t *testing.T) {
	m, err := Reflect("nope")
	assert.Nil(t, m)
	var cfgErr *ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}
