package cache

import (
	"context"
	"math"
	"math/big"
	"reflect"
	"runtime"
	"slices"
	"strconv"
	"strings"
	"sync"
	"unsafe"
	"weak"

	"go.uber.org/zap"
)

// KeySerializer turns a receiver and an argument list into a Key.
//
// Primitives render as literals, so value-equal primitives share a key.
// Pointers, maps, slices and channels are reference identities: each distinct
// one gets a "{n}" token. Tokens are held weakly and, once the object they
// stand for is reclaimed, every key built from that token is deleted from the
// store the serializer was created for.
//
// Funcs are reference identities too: each closure object gets its own
// token, so two closures built from one literal never share a key while both
// are reachable. unsafe.Pointer values cannot be tracked weakly and are kept
// in a strong identity table whose tokens never expire.
//
// Pointers into memory not managed by the Go runtime are not supported.
//
// A KeySerializer is safe for concurrent use.
type KeySerializer struct {
	mu     sync.Mutex
	store  Deleter
	logger *zap.Logger
	next   uint64

	weakRefs   map[weakRef]string
	strongRefs map[strongRef]string

	// index maps a weak token to every key built with it; keyRefs is the
	// reverse, used to unlink purged keys from sibling tokens.
	index   map[string]map[Key]struct{}
	keyRefs map[Key][]string
}

type weakRef struct {
	ptr      weak.Pointer[byte]
	typ      reflect.Type
	len, cap int
}

type strongRef struct {
	addr     uintptr
	typ      reflect.Type
	len, cap int
}

type releaseTicket struct {
	ref     weakRef
	segment string
}

// SerializerOption configures a KeySerializer.
type SerializerOption func(*KeySerializer)

// WithSerializerLogger sets the logger used to report reclamation purges.
func WithSerializerLogger(logger *zap.Logger) SerializerOption {
	return func(s *KeySerializer) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewKeySerializer creates a serializer that purges keys from store when the
// references they were built from are reclaimed.
func NewKeySerializer(store Deleter, opts ...SerializerOption) *KeySerializer {
	s := &KeySerializer{
		store:      store,
		logger:     zap.NewNop(),
		weakRefs:   make(map[weakRef]string),
		strongRefs: make(map[strongRef]string),
		index:      make(map[string]map[Key]struct{}),
		keyRefs:    make(map[Key][]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Key derives the cache key for a call. A nil receiver renders as "nil".
func (s *KeySerializer) Key(this any, args ...any) Key {
	s.mu.Lock()
	defer s.mu.Unlock()

	var refs []string
	key := JoinSegments(s.segmentsLocked(&refs, this, args))
	s.indexLocked(key, refs)
	return key
}

// Segments returns the segments Key would join, registering any new
// references but without indexing a key.
func (s *KeySerializer) Segments(this any, args ...any) []Segment {
	s.mu.Lock()
	defer s.mu.Unlock()
	var refs []string
	return s.segmentsLocked(&refs, this, args)
}

// Tracked reports how many weakly tracked references are registered.
func (s *KeySerializer) Tracked() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.weakRefs)
}

// Indexed returns the keys currently recorded for a reference token.
func (s *KeySerializer) Indexed(token string) []Key {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]Key, 0, len(s.index[token]))
	for k := range s.index[token] {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func (s *KeySerializer) segmentsLocked(refs *[]string, this any, args []any) []Segment {
	segments := make([]Segment, 0, len(args)+1)
	segments = append(segments, s.segment(reflect.ValueOf(this), refs))
	for _, arg := range args {
		segments = append(segments, s.segment(reflect.ValueOf(arg), refs))
	}
	return segments
}

func (s *KeySerializer) indexLocked(key Key, refs []string) {
	if len(refs) == 0 {
		return
	}
	slices.Sort(refs)
	refs = slices.Compact(refs)
	if _, ok := s.keyRefs[key]; !ok {
		s.keyRefs[key] = refs
	}
	for _, token := range refs {
		keys, ok := s.index[token]
		if !ok {
			keys = make(map[Key]struct{})
			s.index[token] = keys
		}
		keys[key] = struct{}{}
	}
}

var (
	bigIntType    = reflect.TypeOf(big.Int{})
	bigIntPtrType = reflect.TypeOf((*big.Int)(nil))
)

func (s *KeySerializer) segment(rv reflect.Value, refs *[]string) Segment {
	if !rv.IsValid() {
		return literal("nil")
	}
	if seg, ok := bigIntSegment(rv); ok {
		return seg
	}

	switch rv.Kind() {
	case reflect.Bool:
		return literal(strconv.FormatBool(rv.Bool()))
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return literal(strconv.FormatInt(rv.Int(), 10))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return literal(strconv.FormatUint(rv.Uint(), 10))
	case reflect.Float32, reflect.Float64:
		return literal(formatFloat(rv.Float()))
	case reflect.Complex64, reflect.Complex128:
		return literal(formatComplex(rv.Complex()))
	case reflect.String:
		return literal(strconv.Quote(rv.String()))
	case reflect.Interface:
		if rv.IsNil() {
			return literal("nil")
		}
		elem := rv.Elem()
		if elem.Kind() == reflect.Func && !elem.IsNil() && rv.CanAddr() {
			// The data word of an interface holding a func is the closure.
			p := (*[2]unsafe.Pointer)(rv.Addr().UnsafePointer())[1]
			return s.reference(p, elem.Type(), -1, -1, refs)
		}
		return s.segment(elem, refs)
	case reflect.Pointer, reflect.Map, reflect.Chan:
		if rv.IsNil() {
			return literal("null")
		}
		return s.reference(rv.UnsafePointer(), rv.Type(), -1, -1, refs)
	case reflect.Slice:
		if rv.IsNil() {
			return literal("null")
		}
		return s.reference(rv.UnsafePointer(), rv.Type(), rv.Len(), rv.Cap(), refs)
	case reflect.Func:
		if rv.IsNil() {
			return literal("null")
		}
		if p, ok := closureOf(rv); ok {
			return s.reference(p, rv.Type(), -1, -1, refs)
		}
		return s.strongReference(strongRef{addr: uintptr(rv.UnsafePointer()), typ: rv.Type(), len: -1, cap: -1})
	case reflect.UnsafePointer:
		if rv.IsNil() {
			return literal("null")
		}
		return s.strongReference(strongRef{addr: uintptr(rv.UnsafePointer()), typ: rv.Type(), len: -1, cap: -1})
	case reflect.Struct:
		rv = addressable(rv)
		return s.composite(rv, refs, '{', '}', rv.NumField(), rv.Field)
	case reflect.Array:
		rv = addressable(rv)
		return s.composite(rv, refs, '[', ']', rv.Len(), rv.Index)
	default:
		return literal(rv.Type().String())
	}
}

// bigIntSegment renders big integers by value with an "n" suffix so they never
// collide with a same-valued machine integer.
// formatFloat renders f by numeric value: integral floats match the integer
// rendering, -0 is 0, and float32 values widen first so equal numbers of
// either width agree.
func formatFloat(f float64) string {
	switch {
	case f == 0:
		return "0"
	case math.IsInf(f, 0) || math.IsNaN(f):
		return strconv.FormatFloat(f, 'g', -1, 64)
	case f == math.Trunc(f):
		if f >= math.MinInt64 && f < math.MaxInt64 {
			return strconv.FormatInt(int64(f), 10)
		}
		return new(big.Float).SetFloat64(f).Text('f', 0)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func formatComplex(c complex128) string {
	im := formatFloat(imag(c))
	if im[0] != '-' && im[0] != '+' {
		im = "+" + im
	}
	return "(" + formatFloat(real(c)) + im + "i)"
}

// closureOf returns the closure object behind a func value. Closures sharing
// a body are distinct objects; a func without captures points at static data.
func closureOf(rv reflect.Value) (unsafe.Pointer, bool) {
	switch {
	case rv.CanAddr():
		return *(*unsafe.Pointer)(rv.Addr().UnsafePointer()), true
	case rv.CanInterface():
		fn := rv.Interface()
		return (*[2]unsafe.Pointer)(unsafe.Pointer(&fn))[1], true
	}
	return nil, false
}

// addressable copies a value that cannot be addressed so funcs nested in
// unexported fields can still be resolved to their closures.
func addressable(rv reflect.Value) reflect.Value {
	if rv.CanAddr() || !rv.CanInterface() {
		return rv
	}
	cp := reflect.New(rv.Type()).Elem()
	cp.Set(rv)
	return cp
}

func bigIntSegment(rv reflect.Value) (Segment, bool) {
	switch rv.Type() {
	case bigIntPtrType:
		if rv.IsNil() {
			return Segment{}, false
		}
		return literal((*big.Int)(rv.UnsafePointer()).String() + "n"), true
	case bigIntType:
		if rv.CanAddr() {
			return literal((*big.Int)(rv.Addr().UnsafePointer()).String() + "n"), true
		}
		if rv.CanInterface() {
			v := rv.Interface().(big.Int)
			return literal(v.String() + "n"), true
		}
	}
	return Segment{}, false
}

func (s *KeySerializer) composite(rv reflect.Value, refs *[]string, open, closing byte, n int, at func(int) reflect.Value) Segment {
	var b strings.Builder
	b.WriteString(rv.Type().String())
	b.WriteByte(open)
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteString(SegmentSeparator)
		}
		b.WriteString(s.segment(at(i), refs).Text)
	}
	b.WriteByte(closing)
	return Segment{Kind: CompositeSegment, Text: b.String()}
}

// reference tokenizes the object at p. Slices also carry len and cap, since
// two slices over one backing array are different values.
func (s *KeySerializer) reference(p unsafe.Pointer, typ reflect.Type, length, capacity int, refs *[]string) Segment {
	strong := strongRef{addr: uintptr(p), typ: typ, len: length, cap: capacity}
	if token, ok := s.strongRefs[strong]; ok {
		return Segment{Kind: ReferenceSegment, Text: token}
	}

	ref := weakRef{ptr: weak.Make((*byte)(p)), typ: typ, len: length, cap: capacity}
	token, ok := s.weakRefs[ref]
	if !ok {
		token = s.nextToken()
		ticket := &releaseTicket{ref: ref, segment: token}
		if !s.attachCleanup(p, ticket) {
			s.strongRefs[strong] = token
			return Segment{Kind: ReferenceSegment, Text: token}
		}
		s.weakRefs[ref] = token
	}
	*refs = append(*refs, token)
	return Segment{Kind: ReferenceSegment, Text: token}
}

func (s *KeySerializer) strongReference(ref strongRef) Segment {
	token, ok := s.strongRefs[ref]
	if !ok {
		token = s.nextToken()
		s.strongRefs[ref] = token
	}
	return Segment{Kind: ReferenceSegment, Text: token}
}

func (s *KeySerializer) nextToken() string {
	token := "{" + strconv.FormatUint(s.next, 10) + "}"
	s.next++
	return token
}

// attachCleanup reports false when the runtime refuses to track p.
func (s *KeySerializer) attachCleanup(p unsafe.Pointer, ticket *releaseTicket) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Debug("reference not trackable, holding strongly", zap.Any("reason", r))
			ok = false
		}
	}()
	runtime.AddCleanup((*byte)(p), s.release, ticket)
	return true
}

// release runs on the runtime cleanup goroutine once a tracked reference is
// unreachable.
func (s *KeySerializer) release(ticket *releaseTicket) {
	s.mu.Lock()
	if token, ok := s.weakRefs[ticket.ref]; ok && token == ticket.segment {
		delete(s.weakRefs, ticket.ref)
	}
	keys := s.index[ticket.segment]
	delete(s.index, ticket.segment)
	for key := range keys {
		for _, other := range s.keyRefs[key] {
			if other == ticket.segment {
				continue
			}
			if siblings, ok := s.index[other]; ok {
				delete(siblings, key)
				if len(siblings) == 0 {
					delete(s.index, other)
				}
			}
		}
		delete(s.keyRefs, key)
	}
	s.mu.Unlock()

	ctx := context.Background()
	for key := range keys {
		if err := s.store.Delete(ctx, key); err != nil {
			s.logger.Warn("failed to purge key of reclaimed reference",
				zap.String("segment", ticket.segment),
				zap.String("key", string(key)),
				zap.Error(err),
			)
		}
	}
	s.logger.Debug("reference reclaimed",
		zap.String("segment", ticket.segment),
		zap.Int("purged", len(keys)),
	)
}
