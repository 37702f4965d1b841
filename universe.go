package autoreg

import (
	"reflect"
	"sync"
)

// Universe is the materialized set of types a pass works on: candidate types with
// their declared constructors, the interfaces they may be exposed as, and any
// auxiliary types (interceptors, finders, owners) that should be resolvable by name.
type Universe struct {
	mu         sync.RWMutex
	types      []reflect.Type
	interfaces []reflect.Type
	ctors      map[reflect.Type][]Constructor
	generic    map[reflect.Type]bool
	byName     map[string][]reflect.Type
}

// NewUniverse creates an empty universe.
func NewUniverse() *Universe {
	return &Universe{
		ctors:   make(map[reflect.Type][]Constructor),
		generic: make(map[reflect.Type]bool),
		byName:  make(map[string][]reflect.Type),
	}
}

// Type adds a candidate type together with its declared constructors.
// Declaring the same type again appends constructors.
func (u *Universe) Type(t reflect.Type, ctors ...any) *Universe {
	u.add(t, false, ctors)
	return u
}

// Generic adds a candidate that stands in for an open generic type definition.
// t is a representative instantiation; plans for it go through Binder.RegisterGeneric.
func (u *Universe) Generic(t reflect.Type, ctors ...any) *Universe {
	u.add(t, true, ctors)
	return u
}

// Interface declares an interface that candidate types may be exposed as.
func (u *Universe) Interface(t reflect.Type) *Universe {
	if t == nil || t.Kind() != reflect.Interface {
		return u
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	for _, known := range u.interfaces {
		if known == t {
			return u
		}
	}
	u.interfaces = append(u.interfaces, t)
	u.index(t)
	return u
}

// Known makes auxiliary types resolvable through Lookup without making them candidates.
func (u *Universe) Known(types ...reflect.Type) *Universe {
	u.mu.Lock()
	defer u.mu.Unlock()
	for _, t := range types {
		if t != nil {
			u.index(t)
		}
	}
	return u
}

func (u *Universe) add(t reflect.Type, generic bool, ctors []any) {
	if t == nil {
		return
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	if _, ok := u.ctors[t]; !ok {
		u.types = append(u.types, t)
		u.ctors[t] = nil
	}
	for _, c := range ctors {
		u.ctors[t] = append(u.ctors[t], newConstructor(c))
	}
	if generic {
		u.generic[t] = true
	}
	u.index(t)
}

// index makes t resolvable by its short and package-qualified names. u.mu must be held.
func (u *Universe) index(t reflect.Type) {
	for _, name := range []string{t.String(), qualifiedName(t)} {
		if !containsType(u.byName[name], t) {
			u.byName[name] = append(u.byName[name], t)
		}
	}
}

// Types returns the candidate types in declaration order.
func (u *Universe) Types() []reflect.Type {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return append([]reflect.Type(nil), u.types...)
}

// Interfaces returns the declared interfaces in declaration order.
func (u *Universe) Interfaces() []reflect.Type {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return append([]reflect.Type(nil), u.interfaces...)
}

// ImplementedInterfaces returns the declared interfaces t implements, in declaration order.
func (u *Universe) ImplementedInterfaces(t reflect.Type) []reflect.Type {
	u.mu.RLock()
	defer u.mu.RUnlock()
	var out []reflect.Type
	for _, iface := range u.interfaces {
		if iface != t && t.Implements(iface) {
			out = append(out, iface)
		}
	}
	return out
}

// Constructors returns the constructors declared for t.
func (u *Universe) Constructors(t reflect.Type) []Constructor {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return append([]Constructor(nil), u.ctors[t]...)
}

// IsGeneric reports whether t was declared with Generic.
func (u *Universe) IsGeneric(t reflect.Type) bool {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.generic[t]
}

// Lookup finds a type of the universe by name. Both the reflect.Type.String() form,
// e.g. "*app.UserService", and the package-qualified form, e.g.
// "*example.com/app.UserService", are accepted. A short name shared by types of
// different packages resolves to nothing; see Matches.
func (u *Universe) Lookup(name string) (reflect.Type, bool) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	types := u.byName[name]
	if len(types) != 1 {
		return nil, false
	}
	return types[0], true
}

// Matches returns every type known under name.
func (u *Universe) Matches(name string) []reflect.Type {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return append([]reflect.Type(nil), u.byName[name]...)
}

// qualifiedName is t.String() with the package path in place of the package name.
func qualifiedName(t reflect.Type) string {
	prefix := ""
	for t.Kind() == reflect.Pointer && t.Name() == "" {
		prefix += "*"
		t = t.Elem()
	}
	if t.Name() == "" || t.PkgPath() == "" {
		return prefix + t.String()
	}
	return prefix + t.PkgPath() + "." + t.Name()
}

func containsType(types []reflect.Type, t reflect.Type) bool {
	for _, known := range types {
		if known == t {
			return true
		}
	}
	return false
}
