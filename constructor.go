package autoreg

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
)

var (
	constructorFinderType = reflect.TypeFor[ConstructorFinder]()
	errorType             = reflect.TypeFor[error]()
)

// Constructor is a function declared as able to create instances of a type.
// A usable constructor is a non-nil, non-variadic func whose first result is the
// type and whose optional second result is an error.
type Constructor struct {
	fn reflect.Value
	id uint64
}

var lastConstructorID atomic.Uint64

// NewConstructor wraps fn. fn is not checked; see Usable.
func NewConstructor(fn any) Constructor {
	return newConstructor(fn)
}

func newConstructor(fn any) Constructor {
	return Constructor{fn: reflect.ValueOf(fn), id: lastConstructorID.Add(1)}
}

// Func returns the wrapped function value.
func (c Constructor) Func() reflect.Value {
	return c.fn
}

// Usable reports whether c can construct values of type t.
func (c Constructor) Usable(t reflect.Type) bool {
	if !c.fn.IsValid() || c.fn.Kind() != reflect.Func || c.fn.IsNil() {
		return false
	}
	ft := c.fn.Type()
	if ft.IsVariadic() {
		return false
	}
	switch ft.NumOut() {
	case 1:
	case 2:
		if ft.Out(1) != errorType {
			return false
		}
	default:
		return false
	}
	return ft.Out(0) == t
}

// Params returns the parameter types of the constructor.
func (c Constructor) Params() []reflect.Type {
	if !c.fn.IsValid() || c.fn.Kind() != reflect.Func {
		return nil
	}
	ft := c.fn.Type()
	params := make([]reflect.Type, ft.NumIn())
	for i := range params {
		params[i] = ft.In(i)
	}
	return params
}

// Call invokes the constructor with args and returns the constructed value.
func (c Constructor) Call(args []reflect.Value) (any, error) {
	out := c.fn.Call(args)
	if len(out) == 2 && !out[1].IsNil() {
		return nil, out[1].Interface().(error)
	}
	return out[0].Interface(), nil
}

func (c Constructor) String() string {
	if !c.fn.IsValid() {
		return "<invalid constructor>"
	}
	return c.fn.Type().String()
}

// ConstructorFinder selects the constructors a binder may use to activate target.
// declared holds every constructor declared for target in the universe.
//
// A finder named by a find-constructors-with fact is created from its zero value,
// once per pass, so it must be usable without further initialization.
type ConstructorFinder interface {
	FindConstructors(target reflect.Type, declared []Constructor) ([]Constructor, error)
}

// ConstructorCache memoizes the default policy's result per type and declared
// constructor set. Each NewConstructor call, and each constructor declared in a
// Universe, is a distinct entry of that set, so one cache may be shared across
// universes and passes. The zero value and a nil *ConstructorCache are usable;
// a nil cache computes every time. It is safe for concurrent use.
type ConstructorCache struct {
	m sync.Map // map[cacheKey][]Constructor
}

type cacheKey struct {
	t        reflect.Type
	declared string
}

func newCacheKey(t reflect.Type, declared []Constructor) cacheKey {
	var b strings.Builder
	for i, c := range declared {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatUint(c.id, 10))
	}
	return cacheKey{t: t, declared: b.String()}
}

// NewConstructorCache creates an empty cache.
func NewConstructorCache() *ConstructorCache {
	return &ConstructorCache{}
}

// GetOrAdd returns the cached constructors of t for the declared set, computing and
// storing them with compute on first use. Concurrent first uses store exactly one result.
func (c *ConstructorCache) GetOrAdd(t reflect.Type, declared []Constructor, compute func() []Constructor) []Constructor {
	if c == nil {
		return compute()
	}
	key := newCacheKey(t, declared)
	if v, ok := c.m.Load(key); ok {
		return v.([]Constructor)
	}
	v, _ := c.m.LoadOrStore(key, compute())
	return v.([]Constructor)
}

// Len returns the number of cached entries.
func (c *ConstructorCache) Len() int {
	if c == nil {
		return 0
	}
	n := 0
	c.m.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// AllConstructors is the default policy: every usable declared constructor.
// The zero value computes without caching, so the type can also be named by a
// find-constructors-with fact.
type AllConstructors struct {
	cache *ConstructorCache
}

var _ ConstructorFinder = (*AllConstructors)(nil)

// NewAllConstructors returns the default policy backed by cache. A nil cache gets a fresh one.
func NewAllConstructors(cache *ConstructorCache) *AllConstructors {
	if cache == nil {
		cache = NewConstructorCache()
	}
	return &AllConstructors{cache: cache}
}

// FindConstructors returns the usable declared constructors of target, or a
// *NoConstructorsError if there are none.
func (f *AllConstructors) FindConstructors(target reflect.Type, declared []Constructor) ([]Constructor, error) {
	found := f.cache.GetOrAdd(target, declared, func() []Constructor {
		out := make([]Constructor, 0, len(declared))
		for _, c := range declared {
			if c.Usable(target) {
				out = append(out, c)
			}
		}
		return out
	})
	if len(found) == 0 {
		return nil, &NoConstructorsError{Type: target}
	}
	return found, nil
}

// finderSet holds the override finders created during one pass.
type finderSet struct {
	mu      sync.Mutex
	created map[reflect.Type]finderResult
}

type finderResult struct {
	finder ConstructorFinder
	err    error
}

func newFinderSet() *finderSet {
	return &finderSet{created: make(map[reflect.Type]finderResult)}
}

// get returns the finder instance for finderType, creating it on first use.
func (s *finderSet) get(owner, finderType reflect.Type) (ConstructorFinder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, ok := s.created[finderType]
	if !ok {
		res.finder, res.err = instantiateFinder(finderType)
		s.created[finderType] = res
	}
	if res.err != nil {
		return nil, &PolicyInstantiationError{Type: owner, Finder: finderType, Err: res.err}
	}
	return res.finder, nil
}

func (s *finderSet) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.created)
}

var errNoZeroValue = errors.New("type has no usable zero value; only struct or pointer-to-struct finders are supported")

func instantiateFinder(t reflect.Type) (ConstructorFinder, error) {
	var v reflect.Value
	switch t.Kind() {
	case reflect.Pointer:
		v = reflect.New(t.Elem())
	case reflect.Interface, reflect.Func, reflect.Chan, reflect.Map, reflect.Slice, reflect.UnsafePointer, reflect.Invalid:
		return nil, errNoZeroValue
	default:
		v = reflect.New(t).Elem()
	}
	finder, ok := v.Interface().(ConstructorFinder)
	if !ok || finder == nil {
		return nil, fmt.Errorf("%s does not implement ConstructorFinder", t)
	}
	return finder, nil
}
