// Package container is an in-memory binder for registration plans. It resolves
// plan exposures through lifetime scopes and wraps intercepted exposures in
// caller-supplied proxies.
package container

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/centraunit/autoreg"
	"github.com/centraunit/autoreg/intercept"
	"go.uber.org/zap"
)

// Booter is implemented by instances that need initialization after construction.
type Booter interface {
	// OnBoot is called once the instance is constructed, with the scope owning it.
	OnBoot(ctx context.Context) error
}

// Shutdowner is implemented by instances holding resources.
type Shutdowner interface {
	// OnShutdown is called when the scope owning the instance is closed.
	OnShutdown(ctx context.Context) error
}

// ProxyFactory wraps target so that calls made through the returned value run chain.
// The returned value must be assignable to the service type it is registered for.
type ProxyFactory func(target any, chain []intercept.Interceptor) (any, error)

// Option configures a Container.
type Option func(*Container)

// WithProxy registers the proxy factory used for intercepted exposures of service.
func WithProxy(service reflect.Type, factory ProxyFactory) Option {
	return func(c *Container) {
		c.proxies[service] = factory
	}
}

// WithLogger sets the logger activations are reported to.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Container) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithContext sets the context of the root scope.
func WithContext(ctx context.Context) Option {
	return func(c *Container) {
		c.rootCtx = ctx
	}
}

var (
	contextType = reflect.TypeFor[context.Context]()
	scopeType   = reflect.TypeFor[*Scope]()
)

// registration is one bound plan.
type registration struct {
	plan         *autoreg.Plan
	interceptors []autoreg.InterceptorRef

	ctorsOnce sync.Once
	ctors     []autoreg.Constructor
	ctorsErr  error
}

// constructors consults the plan's constructor policy once and orders the result
// by descending parameter count.
func (r *registration) constructors() ([]autoreg.Constructor, error) {
	r.ctorsOnce.Do(func() {
		found, err := r.plan.FindConstructors()
		if err != nil {
			r.ctorsErr = err
			return
		}
		ctors := append([]autoreg.Constructor(nil), found...)
		sort.SliceStable(ctors, func(i, j int) bool {
			return len(ctors[i].Params()) > len(ctors[j].Params())
		})
		r.ctors = ctors
	})
	return r.ctors, r.ctorsErr
}

type handle struct {
	reg *registration
}

func (h *handle) Type() reflect.Type {
	return h.reg.plan.Type
}

// Container binds plans and resolves their exposures.
type Container struct {
	mu            sync.RWMutex
	bindings      map[reflect.Type][]*registration
	registrations []*registration
	generics      map[reflect.Type]bool
	interceptors  map[reflect.Type]autoreg.InterceptorFactory
	proxies       map[reflect.Type]ProxyFactory

	rootCtx  context.Context
	root     *Scope
	bootOnce sync.Once
	bootErr  error
	logger   *zap.Logger
}

var (
	_ autoreg.Binder               = (*Container)(nil)
	_ autoreg.InterceptorAttacher  = (*Container)(nil)
	_ autoreg.InterceptorRegistrar = (*Container)(nil)
)

// New creates an empty container.
func New(opts ...Option) *Container {
	c := &Container{
		bindings:     make(map[reflect.Type][]*registration, 32),
		generics:     make(map[reflect.Type]bool),
		interceptors: make(map[reflect.Type]autoreg.InterceptorFactory),
		proxies:      make(map[reflect.Type]ProxyFactory),
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.root = newScope(c.rootCtx, c, nil, nil)
	return c
}

// RegisterConcrete binds plan under every one of its exposures.
func (c *Container) RegisterConcrete(plan *autoreg.Plan) (autoreg.Handle, error) {
	return c.register(plan)
}

// RegisterGeneric binds a plan standing in for a generic definition. It resolves
// like a concrete registration of its representative instantiation.
func (c *Container) RegisterGeneric(plan *autoreg.Plan) (autoreg.Handle, error) {
	h, err := c.register(plan)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.generics[plan.Type] = true
	c.mu.Unlock()
	return h, nil
}

func (c *Container) register(plan *autoreg.Plan) (autoreg.Handle, error) {
	if plan == nil || plan.Type == nil {
		return nil, errors.New("nil plan")
	}
	if len(plan.Exposures) == 0 {
		return nil, fmt.Errorf("plan for %s has no exposures", plan.Type)
	}
	for _, exposure := range plan.Exposures {
		if exposure != plan.Type && !plan.Type.AssignableTo(exposure) {
			return nil, &TypeMismatchError{Expected: exposure.String(), Got: plan.Type.String()}
		}
	}

	reg := &registration{plan: plan}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, exposure := range plan.Exposures {
		c.bindings[exposure] = append(c.bindings[exposure], reg)
	}
	c.registrations = append(c.registrations, reg)
	return &handle{reg: reg}, nil
}

// AttachInterceptor appends interceptor to the chain of the registration behind h.
func (c *Container) AttachInterceptor(h autoreg.Handle, interceptor reflect.Type, async bool) error {
	hd, ok := h.(*handle)
	if !ok {
		return &TypeMismatchError{Expected: "*container.handle", Got: fmt.Sprintf("%T", h)}
	}
	if !intercept.IsInterceptor(interceptor) {
		return &TypeMismatchError{Expected: "intercept.Interceptor", Got: interceptor.String()}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	hd.reg.interceptors = append(hd.reg.interceptors, autoreg.InterceptorRef{Type: interceptor, Async: async})
	return nil
}

// RegisterInterceptor sets the factory used to create interceptors of type interceptor.
// Interceptor types without a factory are resolved from the container.
func (c *Container) RegisterInterceptor(interceptor reflect.Type, factory autoreg.InterceptorFactory) error {
	if factory == nil {
		return fmt.Errorf("nil factory for interceptor %s", interceptor)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.interceptors[interceptor] = factory
	return nil
}

// Root returns the root scope, which owns singletons.
func (c *Container) Root() *Scope {
	return c.root
}

// BeginScope opens a child of the root scope.
func (c *Container) BeginScope(tag any) *Scope {
	return c.root.BeginScope(tag)
}

// Resolve resolves service from the root scope.
func (c *Container) Resolve(service reflect.Type) (any, error) {
	return c.resolve(c.root, service, nil)
}

// ResolveAll resolves every registration exposed as service, in registration order.
func (c *Container) ResolveAll(scope *Scope, service reflect.Type) ([]any, error) {
	c.mu.RLock()
	regs := append([]*registration(nil), c.bindings[service]...)
	c.mu.RUnlock()

	out := make([]any, 0, len(regs))
	for _, reg := range regs {
		v, err := c.resolveRegistration(scope, service, reg, nil)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// IsRegistered reports whether service has at least one registration.
func (c *Container) IsRegistered(service reflect.Type) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.bindings[service]) > 0
}

// IsGeneric reports whether t was bound through RegisterGeneric.
func (c *Container) IsGeneric(t reflect.Type) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.generics[t]
}

// Boot creates every singleton eagerly. It runs once; later calls return the first result.
func (c *Container) Boot() error {
	c.bootOnce.Do(func() {
		c.mu.RLock()
		regs := append([]*registration(nil), c.registrations...)
		c.mu.RUnlock()

		for _, reg := range regs {
			if reg.plan.Lifetime.Lifetime != autoreg.LifetimeSingleton {
				continue
			}
			if _, err := c.resolveRegistration(c.root, reg.plan.Exposures[0], reg, nil); err != nil {
				c.bootErr = err
				return
			}
		}
	})
	return c.bootErr
}

// Shutdown closes the root scope.
func (c *Container) Shutdown(ctx context.Context) error {
	return c.root.Close(ctx)
}

// Resolve resolves T from r, a *Container or *Scope.
func Resolve[T any](r interface {
	Resolve(reflect.Type) (any, error)
}) (T, error) {
	var zero T
	serviceType := reflect.TypeFor[T]()
	v, err := r.Resolve(serviceType)
	if err != nil {
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		return zero, &TypeMismatchError{Expected: serviceType.String(), Got: fmt.Sprintf("%T", v)}
	}
	return typed, nil
}

func (c *Container) resolve(scope *Scope, service reflect.Type, chain []*registration) (any, error) {
	reg := c.binding(service)
	if reg == nil {
		return nil, &BindingNotFoundError{Type: service.String()}
	}
	return c.resolveRegistration(scope, service, reg, chain)
}

func (c *Container) resolveRegistration(scope *Scope, service reflect.Type, reg *registration, chain []*registration) (any, error) {
	if scope.isClosed() {
		return nil, ErrScopeClosed
	}
	for _, r := range chain {
		if r == reg {
			return nil, &CircularDependencyError{Type: reg.plan.Type.String(), Chain: chainNames(chain)}
		}
	}
	chain = append(chain[:len(chain):len(chain)], reg)

	instance, err := c.instance(scope, reg, chain)
	if err != nil {
		return nil, err
	}
	return c.expose(scope, service, reg, instance, chain)
}

// instance returns the instance of reg visible from scope, creating it in the
// scope its lifetime selects.
func (c *Container) instance(scope *Scope, reg *registration, chain []*registration) (any, error) {
	plan := reg.plan
	var owner *Scope
	switch plan.Lifetime.Lifetime {
	case autoreg.LifetimeSingleton:
		owner = scope.root()
	case autoreg.LifetimePerScope:
		owner = scope
	case autoreg.LifetimePerMatchingScope:
		owner = scope.nearest(func(tag any) bool {
			for _, want := range plan.Lifetime.Tags {
				if tagEqual(tag, want) {
					return true
				}
			}
			return false
		})
	case autoreg.LifetimePerRequest:
		owner = scope.nearest(func(tag any) bool { return tagEqual(tag, RequestTag) })
	case autoreg.LifetimePerOwned:
		owner = scope.nearest(func(tag any) bool { return tagEqual(tag, plan.Lifetime.Owner) })
	case autoreg.LifetimePerDependency:
		return c.create(scope, reg, chain)
	default:
		return nil, &InitializationError{Type: plan.Type.String(), Err: fmt.Errorf("unsupported lifetime %q", plan.Lifetime.Lifetime)}
	}
	if owner == nil {
		return nil, &ScopeNotFoundError{Type: plan.Type.String(), Lifetime: plan.Lifetime.String()}
	}

	sl, err := owner.slotFor(reg)
	if err != nil {
		return nil, err
	}
	sl.once.Do(func() {
		sl.instance, sl.err = c.create(owner, reg, chain)
	})
	return sl.instance, sl.err
}

// create activates reg with the constructor having the most parameters that can
// all be resolved, then boots it and hands it to scope for shutdown.
func (c *Container) create(scope *Scope, reg *registration, chain []*registration) (any, error) {
	t := reg.plan.Type
	ctors, err := reg.constructors()
	if err != nil {
		return nil, &InitializationError{Type: t.String(), Err: err}
	}

	var selected *autoreg.Constructor
	for i := range ctors {
		if c.satisfiable(ctors[i]) {
			selected = &ctors[i]
			break
		}
	}
	if selected == nil {
		return nil, &InitializationError{Type: t.String(), Err: errNoSatisfiableConstructor}
	}
	if err := c.checkCycle(reg, nil); err != nil {
		return nil, err
	}

	params := selected.Params()
	args := make([]reflect.Value, len(params))
	for i, p := range params {
		switch p {
		case contextType:
			args[i] = reflect.ValueOf(context.Context(scope))
		case scopeType:
			args[i] = reflect.ValueOf(scope)
		default:
			dep, err := c.resolve(scope, p, chain)
			if err != nil {
				return nil, err
			}
			args[i] = valueOf(dep, p)
		}
	}

	instance, err := selected.Call(args)
	if err != nil {
		return nil, &InitializationError{Type: t.String(), Err: err}
	}
	if b, ok := instance.(Booter); ok {
		if err := b.OnBoot(scope); err != nil {
			return nil, &InitializationError{Type: t.String(), Err: err}
		}
	}
	scope.track(t, instance)

	c.logger.Debug("instance created",
		zap.Stringer("type", t),
		zap.Stringer("lifetime", reg.plan.Lifetime),
		zap.String("constructor", selected.String()))
	return instance, nil
}

// checkCycle walks the constructors that would be selected from reg onward and
// reports a cycle before any dependency is created. Shared instances are created
// under a per-slot sync.Once, so concurrent resolutions entering a cycle from
// different ends would otherwise wait on each other forever.
func (c *Container) checkCycle(reg *registration, path []*registration) error {
	if reg == nil {
		return nil
	}
	for _, r := range path {
		if r == reg {
			return &CircularDependencyError{Type: reg.plan.Type.String(), Chain: chainNames(path)}
		}
	}
	path = append(path[:len(path):len(path)], reg)

	ctors, err := reg.constructors()
	if err != nil {
		return nil
	}
	for _, ctor := range ctors {
		if !c.satisfiable(ctor) {
			continue
		}
		for _, p := range ctor.Params() {
			if p == contextType || p == scopeType {
				continue
			}
			if err := c.checkCycle(c.binding(p), path); err != nil {
				return err
			}
		}
		return nil
	}
	return nil
}

// binding returns the registration Resolve uses for service, nil if there is none.
func (c *Container) binding(service reflect.Type) *registration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	regs := c.bindings[service]
	if len(regs) == 0 {
		return nil
	}
	return regs[len(regs)-1]
}

func (c *Container) satisfiable(ctor autoreg.Constructor) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, p := range ctor.Params() {
		if p == contextType || p == scopeType {
			continue
		}
		if len(c.bindings[p]) == 0 {
			return false
		}
	}
	return true
}

// expose returns instance as seen through service, proxied when the plan
// intercepts that kind of exposure.
func (c *Container) expose(scope *Scope, service reflect.Type, reg *registration, instance any, chain []*registration) (any, error) {
	plan := reg.plan
	c.mu.RLock()
	refs := append([]autoreg.InterceptorRef(nil), reg.interceptors...)
	c.mu.RUnlock()

	proxied := false
	if plan.Intercepted() && len(refs) > 0 {
		if service.Kind() == reflect.Interface {
			proxied = plan.ProxyInterfaces()
		} else if service == plan.Type {
			proxied = plan.ProxyConcrete()
		}
	}
	if !proxied {
		return instance, nil
	}

	c.mu.RLock()
	factory := c.proxies[service]
	c.mu.RUnlock()
	if factory == nil {
		return nil, &MissingProxyError{Type: service.String()}
	}

	interceptors := make([]intercept.Interceptor, 0, len(refs))
	for _, ref := range refs {
		ic, err := c.interceptor(scope, ref, chain)
		if err != nil {
			return nil, err
		}
		interceptors = append(interceptors, ic)
	}

	proxy, err := factory(instance, interceptors)
	if err != nil {
		return nil, &InitializationError{Type: service.String(), Err: err}
	}
	if proxy == nil || !reflect.TypeOf(proxy).AssignableTo(service) {
		return nil, &TypeMismatchError{Expected: service.String(), Got: fmt.Sprintf("%T", proxy)}
	}
	return proxy, nil
}

func (c *Container) interceptor(scope *Scope, ref autoreg.InterceptorRef, chain []*registration) (intercept.Interceptor, error) {
	c.mu.RLock()
	factory := c.interceptors[ref.Type]
	c.mu.RUnlock()

	var (
		v   any
		err error
	)
	if factory != nil {
		v, err = factory()
	} else {
		v, err = c.resolve(scope, ref.Type, chain)
	}
	if err != nil {
		return nil, &InitializationError{Type: ref.Type.String(), Err: err}
	}

	if ref.Async {
		if a, ok := v.(intercept.AsyncInterceptor); ok {
			return intercept.Adapt(a), nil
		}
		return nil, &TypeMismatchError{Expected: "intercept.AsyncInterceptor", Got: fmt.Sprintf("%T", v)}
	}
	if ic, ok := v.(intercept.Interceptor); ok {
		return ic, nil
	}
	if a, ok := v.(intercept.AsyncInterceptor); ok {
		return intercept.Adapt(a), nil
	}
	return nil, &TypeMismatchError{Expected: "intercept.Interceptor", Got: fmt.Sprintf("%T", v)}
}

// valueOf converts a resolved dependency to a call argument of type t.
func valueOf(v any, t reflect.Type) reflect.Value {
	if v == nil {
		return reflect.Zero(t)
	}
	rv := reflect.ValueOf(v)
	if rv.Type() != t && rv.Type().ConvertibleTo(t) {
		return rv.Convert(t)
	}
	return rv
}

func chainNames(chain []*registration) []string {
	names := make([]string, len(chain))
	for i, r := range chain {
		names[i] = r.plan.Type.String()
	}
	return names
}
