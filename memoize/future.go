package memoize

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrRejected is the failure recorded when Reject is called with a nil error.
var ErrRejected = errors.New("memoize: future rejected")

// Future is a result that settles once, either with a value or an error.
//
// When a memoized function returns a *Future, the future itself is cached.
// Every caller that hits the entry before it settles receives the same
// pointer and therefore the same outcome. If the future fails, its entry is
// deleted before Done is closed, so no awaiter can observe the failure while
// the entry is still cached.
type Future[T any] struct {
	done chan struct{}

	mu        sync.Mutex
	settled   bool
	published bool
	holds     int
	value     T
	err       error
	onFail    []func(error)
}

// NewFuture returns a pending future to be settled with Resolve or Reject.
func NewFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Go runs fn on a new goroutine and returns a future for its result. A panic
// in fn rejects the future with an error wrapping ErrPanic.
func Go[T any](ctx context.Context, fn func(context.Context) (T, error)) *Future[T] {
	f := NewFuture[T]()
	go func() {
		defer func() {
			if r := recover(); r != nil {
				f.Reject(fmt.Errorf("%w: %v", ErrPanic, r))
			}
		}()
		v, err := fn(ctx)
		if err != nil {
			f.Reject(err)
			return
		}
		f.Resolve(v)
	}()
	return f
}

// Resolve settles the future with v. It reports false if it was already settled.
func (f *Future[T]) Resolve(v T) bool {
	return f.settle(v, nil)
}

// Reject settles the future with err. It reports false if it was already settled.
func (f *Future[T]) Reject(err error) bool {
	if err == nil {
		err = ErrRejected
	}
	var zero T
	return f.settle(zero, err)
}

// Done is closed once the future settles.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Await blocks until the future settles or ctx is done. Giving up on ctx
// does not affect the future or other awaiters.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

func (f *Future[T]) settle(v T, err error) bool {
	f.mu.Lock()
	if f.settled {
		f.mu.Unlock()
		return false
	}
	f.settled = true
	f.value, f.err = v, err
	held := f.holds > 0
	f.mu.Unlock()

	if !held {
		f.publish()
	}
	return true
}

// publish runs the failure hooks and then closes done, exactly once.
func (f *Future[T]) publish() {
	f.mu.Lock()
	if f.published {
		f.mu.Unlock()
		return
	}
	f.published = true
	hooks := f.onFail
	f.onFail = nil
	err := f.err
	f.mu.Unlock()

	if err != nil {
		for _, hook := range hooks {
			hook(err)
		}
	}
	close(f.done)
}

// asyncResult is implemented by every *Future regardless of T.
type asyncResult interface {
	hold() (release func())
	whenFailed(func(error))
}

// hold defers publishing a settlement until release is called, so hooks
// registered in between still run before done is closed.
func (f *Future[T]) hold() (release func()) {
	if f == nil {
		return func() {}
	}
	f.mu.Lock()
	f.holds++
	f.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			f.holds--
			ready := f.holds == 0 && f.settled
			f.mu.Unlock()
			if ready {
				f.publish()
			}
		})
	}
}

// whenFailed registers fn to run if the future fails. It runs immediately
// when the failure has already been published.
func (f *Future[T]) whenFailed(fn func(error)) {
	if f == nil {
		return
	}
	f.mu.Lock()
	if !f.published {
		f.onFail = append(f.onFail, fn)
		f.mu.Unlock()
		return
	}
	err := f.err
	f.mu.Unlock()
	if err != nil {
		fn(err)
	}
}
