package container

import (
	"context"
	"reflect"
	"sync"

	"go.uber.org/multierr"
)

// requestTag is the tag of request scopes.
type requestTag struct{}

// RequestTag tags the scopes that own per-request instances.
var RequestTag any = requestTag{}

// Scope is a lifetime scope. It extends context.Context with scope-local values and
// owns the shared instances whose lifetime it bounds. Scopes form a tree rooted at
// the container's root scope.
type Scope struct {
	context.Context
	values sync.Map

	container *Container
	parent    *Scope
	tag       any

	mu          sync.Mutex
	slots       map[*registration]*slot
	disposables []disposable
	closed      bool
}

type slot struct {
	once     sync.Once
	instance any
	err      error
}

type disposable struct {
	typ      reflect.Type
	instance Shutdowner
}

func newScope(parent context.Context, c *Container, owner *Scope, tag any) *Scope {
	if parent == nil {
		parent = context.Background()
	}
	return &Scope{
		Context:   parent,
		container: c,
		parent:    owner,
		tag:       tag,
		slots:     make(map[*registration]*slot),
	}
}

// BeginScope opens a child scope tagged with tag. Tags must be comparable;
// a nil tag opens an anonymous scope.
func (s *Scope) BeginScope(tag any) *Scope {
	return newScope(s, s.container, s, tag)
}

// BeginRequest opens a child scope tagged with RequestTag.
func (s *Scope) BeginRequest() *Scope {
	return s.BeginScope(RequestTag)
}

// BeginOwned opens a child scope owning the per-owned instances of owner.
func (s *Scope) BeginOwned(owner reflect.Type) *Scope {
	return s.BeginScope(owner)
}

// Tag returns the tag the scope was opened with.
func (s *Scope) Tag() any {
	return s.tag
}

// Parent returns the enclosing scope, nil for the root scope.
func (s *Scope) Parent() *Scope {
	return s.parent
}

// WithValue stores a scope-local value and returns s.
func (s *Scope) WithValue(key, val any) *Scope {
	s.values.Store(key, val)
	return s
}

func (s *Scope) Value(key any) any {
	if s == nil {
		return nil
	}
	if val, ok := s.values.Load(key); ok {
		return val
	}
	if s.Context != nil {
		return s.Context.Value(key)
	}
	return nil
}

// Resolve returns an instance of service, created according to its registration's lifetime.
func (s *Scope) Resolve(service reflect.Type) (any, error) {
	return s.container.resolve(s, service, nil)
}

// Close shuts down the instances the scope created, in reverse creation order.
// Every instance is shut down even if some fail; the failures are combined.
func (s *Scope) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	toShutdown := s.disposables
	s.disposables = nil
	s.slots = make(map[*registration]*slot)
	s.mu.Unlock()

	var err error
	for i := len(toShutdown) - 1; i >= 0; i-- {
		d := toShutdown[i]
		if shutdownErr := d.instance.OnShutdown(ctx); shutdownErr != nil {
			err = multierr.Append(err, &ShutdownError{Type: d.typ.String(), Err: shutdownErr})
		}
	}
	return err
}

// nearest returns the closest scope, starting at s, whose tag matches.
func (s *Scope) nearest(match func(tag any) bool) *Scope {
	for cur := s; cur != nil; cur = cur.parent {
		if cur.tag != nil && match(cur.tag) {
			return cur
		}
	}
	return nil
}

func (s *Scope) root() *Scope {
	cur := s
	for cur.parent != nil {
		cur = cur.parent
	}
	return cur
}

// slotFor returns the shared-instance slot of reg, creating it on first use.
func (s *Scope) slotFor(reg *registration) (*slot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrScopeClosed
	}
	sl, ok := s.slots[reg]
	if !ok {
		sl = &slot{}
		s.slots[reg] = sl
	}
	return sl, nil
}

func (s *Scope) track(t reflect.Type, instance any) {
	sd, ok := instance.(Shutdowner)
	if !ok {
		return
	}
	s.mu.Lock()
	s.disposables = append(s.disposables, disposable{typ: t, instance: sd})
	s.mu.Unlock()
}

func (s *Scope) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func tagEqual(a, b any) bool {
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || ta == nil || !ta.Comparable() {
		return false
	}
	return a == b
}
