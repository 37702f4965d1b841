package autoreg

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
)

// ErrNilType is returned when a nil reflect.Type is annotated.
var ErrNilType = errors.New("nil reflect.Type provided")

// Metadata maps types to the facts declared for them. It is filled at startup
// by one or more annotation sources and read, unchanged, by every pass.
type Metadata struct {
	mu    sync.RWMutex
	facts map[reflect.Type][]Fact
	order []reflect.Type
}

// NewMetadata creates an empty registry.
func NewMetadata() *Metadata {
	return &Metadata{facts: make(map[reflect.Type][]Fact)}
}

// Annotate attaches facts to t. Each fact is validated first; a malformed fact,
// or a second fact of a single-valued kind, is rejected with a *StructuralError
// and none of the given facts are stored.
func (m *Metadata) Annotate(t reflect.Type, facts ...Fact) error {
	if t == nil {
		return ErrNilType
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	seen := make(map[FactKind]bool, len(facts))
	for _, f := range m.facts[t] {
		seen[f.Kind()] = true
	}
	for _, f := range facts {
		if f == nil {
			return &StructuralError{Type: t, Kind: "unknown", Err: errors.New("nil fact")}
		}
		if err := f.validate(); err != nil {
			return &StructuralError{Type: t, Kind: f.Kind(), Err: err}
		}
		if f.Kind().singleValued() && seen[f.Kind()] {
			return &StructuralError{Type: t, Kind: f.Kind(), Err: fmt.Errorf("at most one %s fact is allowed", f.Kind())}
		}
		seen[f.Kind()] = true
	}

	if _, ok := m.facts[t]; !ok {
		m.order = append(m.order, t)
	}
	m.facts[t] = append(m.facts[t], facts...)
	return nil
}

// MustAnnotate is like Annotate but panics on error. It is meant for package-level
// declarations where a malformed fact is a programming error.
func (m *Metadata) MustAnnotate(t reflect.Type, facts ...Fact) {
	if err := m.Annotate(t, facts...); err != nil {
		panic(err)
	}
}

// Facts returns a copy of the facts attached to t, in the order they were attached.
func (m *Metadata) Facts(t reflect.Type) []Fact {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Fact(nil), m.facts[t]...)
}

// Types returns every annotated type in first-annotation order.
func (m *Metadata) Types() []reflect.Type {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]reflect.Type(nil), m.order...)
}

// Len returns the number of annotated types.
func (m *Metadata) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.order)
}
