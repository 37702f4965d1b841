// Package intercept defines the call-interception contracts used by registration plans:
// synchronous and asynchronous interceptors, the invocation they act on, and the
// adapter that lets an asynchronous interceptor take part in a synchronous chain.
//
// Proxy generation itself is not provided. A hand-written proxy routes its calls
// through Invoke, which runs the chain around the real call.
package intercept

import (
	"context"
	"reflect"
)

// Invocation is one intercepted method call travelling through an interceptor chain.
type Invocation interface {
	// Context returns the context the call was made with.
	Context() context.Context
	// Target returns the instance whose method is being called.
	Target() any
	// Method returns the name of the called method.
	Method() string
	// Arguments returns the call arguments. Interceptors may modify the slice in place.
	Arguments() []any
	// ReturnValues returns the values produced by the call, if it has proceeded.
	ReturnValues() []any
	// SetReturnValues replaces the values returned to the caller.
	SetReturnValues(values ...any)
	// Err returns the error produced by the call, if any.
	Err() error
	// SetErr replaces the error returned to the caller.
	SetErr(err error)
	// Proceed runs the rest of the chain and, at its end, the call itself.
	Proceed()
}

// Interceptor wraps a call synchronously. Implementations call inv.Proceed to continue.
type Interceptor interface {
	Intercept(inv Invocation)
}

// InterceptorFunc adapts a function to Interceptor.
type InterceptorFunc func(inv Invocation)

// Intercept calls f(inv).
func (f InterceptorFunc) Intercept(inv Invocation) {
	f(inv)
}

// ProceedFunc continues an intercepted call and reports its completion on the returned channel.
type ProceedFunc func() <-chan error

// AsyncInterceptor wraps a call whose completion is observed through channels.
// The returned channel delivers the interceptor's outcome once it is done;
// a nil error keeps whatever the call itself produced.
type AsyncInterceptor interface {
	InterceptAsync(inv Invocation, proceed ProceedFunc) <-chan error
}

var (
	interceptorType      = reflect.TypeFor[Interceptor]()
	asyncInterceptorType = reflect.TypeFor[AsyncInterceptor]()
)

// IsAsync reports whether values of t, or pointers to t, implement AsyncInterceptor.
func IsAsync(t reflect.Type) bool {
	return implements(t, asyncInterceptorType)
}

// IsInterceptor reports whether values of t, or pointers to t, implement
// Interceptor or AsyncInterceptor.
func IsInterceptor(t reflect.Type) bool {
	return implements(t, interceptorType) || implements(t, asyncInterceptorType)
}

func implements(t, iface reflect.Type) bool {
	if t == nil {
		return false
	}
	if t.Implements(iface) {
		return true
	}
	return t.Kind() != reflect.Pointer && t.Kind() != reflect.Interface && reflect.PointerTo(t).Implements(iface)
}
