package memoize

import "context"

// Memoize1 memoizes a single argument function and returns a typed wrapper
// along with the underlying Memoized for cache access.
func Memoize1[A, R any](fn func(context.Context, A) (R, error), opts ...Option) (func(context.Context, A) (R, error), *Memoized[R]) {
	m := New(func(ctx context.Context, _ any, args ...any) (R, error) {
		a, _ := argAt[A](args, 0)
		return fn(ctx, a)
	}, append([]Option{WithArity(1)}, opts...)...)

	return func(ctx context.Context, a A) (R, error) {
		return m.Call(ctx, a)
	}, m
}

// Memoize2 is Memoize1 for two argument functions.
func Memoize2[A, B, R any](fn func(context.Context, A, B) (R, error), opts ...Option) (func(context.Context, A, B) (R, error), *Memoized[R]) {
	m := New(func(ctx context.Context, _ any, args ...any) (R, error) {
		a, _ := argAt[A](args, 0)
		b, _ := argAt[B](args, 1)
		return fn(ctx, a, b)
	}, append([]Option{WithArity(2)}, opts...)...)

	return func(ctx context.Context, a A, b B) (R, error) {
		return m.Call(ctx, a, b)
	}, m
}

// argAt returns args[i] as T, or the zero T when the argument is missing or
// of another type. Calls through Memoized.Call can pass fewer arguments than
// the typed wrapper declares.
func argAt[T any](args []any, i int) (T, bool) {
	if i < len(args) {
		if v, ok := args[i].(T); ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}
