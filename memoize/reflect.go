package memoize

import (
	"context"
	"fmt"
	"reflect"
)

var (
	contextType = reflect.TypeFor[context.Context]()
	errorType   = reflect.TypeFor[error]()
)

// FromFunc adapts an ordinary Go function to a Func. fn may take a leading
// context.Context and must return one value, one error, or a value and an
// error. The returned arity counts the positional parameters, excluding the
// context and a variadic tail.
//
// Missing arguments are passed as zero values and surplus arguments beyond a
// non variadic signature are dropped. Numeric arguments are converted to the
// parameter type; any other mismatch fails the call with an *ArgumentError.
// The receiver of the call is not passed to fn; bind it with a method value.
func FromFunc(fn any) (Func[any], int, error) {
	rv := reflect.ValueOf(fn)
	if !rv.IsValid() || rv.Kind() != reflect.Func || rv.IsNil() {
		return nil, 0, &ConfigError{Field: "fn", Message: fmt.Sprintf("expected a non-nil function, got %T", fn)}
	}

	t := rv.Type()
	if err := checkResults(t); err != nil {
		return nil, 0, err
	}

	first := 0
	if t.NumIn() > 0 && t.In(0) == contextType {
		first = 1
	}
	fixed := t.NumIn()
	if t.IsVariadic() {
		fixed--
	}
	arity := fixed - first

	call := func(ctx context.Context, _ any, args ...any) (any, error) {
		in := make([]reflect.Value, 0, t.NumIn()+len(args))
		if first == 1 {
			in = append(in, reflect.ValueOf(&ctx).Elem())
		}
		for i := first; i < fixed; i++ {
			pos := i - first
			if pos >= len(args) {
				in = append(in, reflect.Zero(t.In(i)))
				continue
			}
			v, err := argumentValue(pos, args[pos], t.In(i))
			if err != nil {
				return nil, err
			}
			in = append(in, v)
		}
		if t.IsVariadic() {
			elem := t.In(t.NumIn() - 1).Elem()
			for pos := arity; pos < len(args); pos++ {
				v, err := argumentValue(pos, args[pos], elem)
				if err != nil {
					return nil, err
				}
				in = append(in, v)
			}
		}
		return results(t, rv.Call(in))
	}
	return call, arity, nil
}

// Reflect memoizes an ordinary Go function; see FromFunc for the accepted
// shapes. The declared arity is set before opts are applied.
func Reflect(fn any, opts ...Option) (*Memoized[any], error) {
	call, arity, err := FromFunc(fn)
	if err != nil {
		return nil, err
	}
	return New(call, append([]Option{WithArity(arity)}, opts...)...), nil
}

func checkResults(t reflect.Type) error {
	switch t.NumOut() {
	case 1:
		return nil
	case 2:
		if t.Out(1) == errorType {
			return nil
		}
	}
	return &ConfigError{Field: "fn", Message: fmt.Sprintf("%s must return a value, an error, or a value and an error", t)}
}

func results(t reflect.Type, out []reflect.Value) (any, error) {
	if t.NumOut() == 1 && t.Out(0) == errorType {
		err, _ := out[0].Interface().(error)
		return nil, err
	}
	var err error
	if len(out) == 2 {
		err, _ = out[1].Interface().(error)
	}
	return out[0].Interface(), err
}

func argumentValue(pos int, arg any, want reflect.Type) (reflect.Value, error) {
	if arg == nil {
		switch want.Kind() {
		case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func, reflect.Interface, reflect.UnsafePointer:
			return reflect.Zero(want), nil
		}
		return reflect.Value{}, &ArgumentError{Index: pos, Want: want}
	}

	v := reflect.ValueOf(arg)
	if v.Type().AssignableTo(want) {
		return v, nil
	}
	if isNumeric(v.Kind()) && isNumeric(want.Kind()) {
		return v.Convert(want), nil
	}
	return reflect.Value{}, &ArgumentError{Index: pos, Want: want, Got: v.Type()}
}

func isNumeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}
