package cache

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// KeySeparator defines the delimiter used between ValueKey segments.
const KeySeparator = "::"

// maxValueDepth bounds pointer chasing in ValueKey so cyclic graphs terminate.
const maxValueDepth = 32

// ErrNotKeyable is returned by ValueKey for values that have no structural
// identity, such as non-nil funcs.
var ErrNotKeyable = errors.New("cache: value cannot be keyed by value")

// ValueKey builds a key from the structural value of its inputs rather than
// their identity. Pointers are dereferenced, maps are rendered with sorted
// keys and structs with their exported fields, so two calls with equal data
// share a key even when every argument was freshly allocated.
//
// Strings are quoted and other primitives are tagged with their type, so 1,
// "1" and int64(1) give three different keys.
//
// A closure's behaviour depends on what it captured, which reflection cannot
// see, so a non-nil func anywhere in the inputs makes ValueKey fail with
// ErrNotKeyable. Channels render by address.
//
// ValueKey never tracks references, so nothing is purged on reclamation. Its
// signature matches a memoizer key function.
func ValueKey(this any, args ...any) (Key, error) {
	parts := make([]string, 0, len(args)+1)
	if this != nil {
		part, err := SerializeValue(this)
		if err != nil {
			return "", err
		}
		parts = append(parts, part)
	}
	for i, arg := range args {
		part, err := SerializeValue(arg)
		if err != nil {
			return "", fmt.Errorf("argument %d: %w", i, err)
		}
		parts = append(parts, part)
	}
	return Key(strings.Join(parts, KeySeparator)), nil
}

// SerializeValue renders a single value the way ValueKey does.
func SerializeValue(v any) (string, error) {
	return serializeValue(v, 0)
}

func serializeValue(v any, depth int) (string, error) {
	if v == nil {
		return "nil", nil
	}
	if depth > maxValueDepth {
		return "...", nil
	}

	rv := reflect.ValueOf(v)
	rt := rv.Type()

	switch rt.Kind() {
	case reflect.Func:
		if rv.IsNil() {
			return "func:nil", nil
		}
		return "", fmt.Errorf("%w: %s", ErrNotKeyable, rt)
	case reflect.Pointer:
		if rv.IsNil() {
			return "nil", nil
		}
		return serializeValue(rv.Elem().Interface(), depth+1)
	case reflect.Slice:
		if rv.IsNil() {
			return "slice:nil", nil
		}
		return serializeElems("slice", rv, depth)
	case reflect.Array:
		return serializeElems("array", rv, depth)
	case reflect.Map:
		if rv.IsNil() {
			return "map:nil", nil
		}
		return serializeMap(rv, depth)
	case reflect.Struct:
		return serializeStruct(rv, rt, depth)
	case reflect.Chan:
		return fmt.Sprintf("chan:%p", v), nil
	case reflect.UnsafePointer:
		return fmt.Sprintf("unsafe:%p", v), nil
	case reflect.String:
		if rt.Name() == "string" {
			return strconv.Quote(rv.String()), nil
		}
		return rt.String() + ":" + strconv.Quote(rv.String()), nil
	case reflect.Bool:
		if rt.Name() == "bool" {
			return strconv.FormatBool(rv.Bool()), nil
		}
		return rt.String() + ":" + strconv.FormatBool(rv.Bool()), nil
	}

	if isBasicKind(rt.Kind()) {
		return rt.String() + ":" + fmt.Sprintf("%v", v), nil
	}
	return "type:" + rt.String(), nil
}

func serializeElems(prefix string, rv reflect.Value, depth int) (string, error) {
	length := rv.Len()
	parts := make([]string, length)
	for i := 0; i < length; i++ {
		part, err := serializeValue(rv.Index(i).Interface(), depth+1)
		if err != nil {
			return "", err
		}
		parts[i] = part
	}
	return fmt.Sprintf("%s[%d]:{%s}", prefix, length, strings.Join(parts, ",")), nil
}

// serializeMap renders entries sorted by serialized key for determinism.
func serializeMap(rv reflect.Value, depth int) (string, error) {
	pairs := make([]string, 0, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		k, err := serializeValue(iter.Key().Interface(), depth+1)
		if err != nil {
			return "", err
		}
		v, err := serializeValue(iter.Value().Interface(), depth+1)
		if err != nil {
			return "", err
		}
		pairs = append(pairs, k+"="+v)
	}
	sort.Strings(pairs)
	return fmt.Sprintf("map[%d]:{%s}", len(pairs), strings.Join(pairs, ",")), nil
}

// serializeStruct renders exported fields as name:value pairs.
func serializeStruct(rv reflect.Value, rt reflect.Type, depth int) (string, error) {
	numFields := rv.NumField()
	parts := make([]string, 0, numFields)
	for i := 0; i < numFields; i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}
		fieldValue := rv.Field(i)
		if !fieldValue.CanInterface() {
			continue
		}
		part, err := serializeValue(fieldValue.Interface(), depth+1)
		if err != nil {
			return "", fmt.Errorf("field %s: %w", field.Name, err)
		}
		parts = append(parts, field.Name+":"+part)
	}
	return rt.String() + "{" + strings.Join(parts, ",") + "}", nil
}

func isBasicKind(kind reflect.Kind) bool {
	switch kind {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64,
		reflect.Complex64, reflect.Complex128:
		return true
	default:
		return false
	}
}
