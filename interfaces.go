package autoreg

import "reflect"

// Handle identifies a registration made by a Binder.
type Handle interface {
	// Type returns the implementation type of the registration.
	Type() reflect.Type
}

// Binder is the DI container a pass registers plans with.
// The engine calls it from a single goroutine.
type Binder interface {
	// RegisterConcrete binds a plan for a closed, concrete type.
	RegisterConcrete(plan *Plan) (Handle, error)
	// RegisterGeneric binds a plan standing in for an open generic definition.
	RegisterGeneric(plan *Plan) (Handle, error)
}

// InterceptorAttacher attaches interceptors to registrations. It is called once per
// chain entry, in extraction order, and only for plans with interception enabled.
type InterceptorAttacher interface {
	AttachInterceptor(h Handle, interceptor reflect.Type, async bool) error
}

// InterceptorFactory creates an interceptor instance.
type InterceptorFactory func() (any, error)

// InterceptorRegistrar is implemented by binders that accept interceptor factories.
// Factories configured with WithInterceptor are handed over before any plan is bound.
type InterceptorRegistrar interface {
	RegisterInterceptor(interceptor reflect.Type, factory InterceptorFactory) error
}
