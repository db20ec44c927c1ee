package memoize

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/goliatone/go-memoize/cache"
)

// ConfigError reports an invalid construction argument.
type ConfigError = cache.ConfigError

// ErrPanic wraps the value recovered from a panicking Go function.
var ErrPanic = errors.New("memoize: function panicked")

// ArgumentError reports an argument that cannot be passed to a reflected
// function parameter.
type ArgumentError struct {
	Index int
	Want  reflect.Type
	Got   reflect.Type
}

func (e *ArgumentError) Error() string {
	if e.Got == nil {
		return fmt.Sprintf("memoize: argument %d: nil is not a valid %s", e.Index, e.Want)
	}
	return fmt.Sprintf("memoize: argument %d: cannot use %s as %s", e.Index, e.Got, e.Want)
}
