package autoreg

import (
	"reflect"
	"runtime"

	"go.uber.org/zap"
)

// Option configures an Engine.
type Option func(*options)

type options struct {
	defaultLifetime    LifetimeChoice
	workers            int
	verifyConstructors bool
	logger             *zap.Logger
	metrics            *Metrics
	cache              *ConstructorCache
	attacher           InterceptorAttacher
	interceptors       []interceptorEntry
}

type interceptorEntry struct {
	typ     reflect.Type
	factory InterceptorFactory
}

func defaultOptions() options {
	return options{
		defaultLifetime: InstancePerScope(),
		workers:         runtime.GOMAXPROCS(0),
		logger:          zap.NewNop(),
	}
}

// WithDefaultLifetime sets the lifetime used for types without a lifetime fact.
// The default is InstancePerScope().
func WithDefaultLifetime(choice LifetimeChoice) Option {
	return func(o *options) {
		o.defaultLifetime = choice
	}
}

// WithWorkers bounds the number of types planned concurrently. Values below 1 mean 1.
func WithWorkers(n int) Option {
	return func(o *options) {
		if n < 1 {
			n = 1
		}
		o.workers = n
	}
}

// WithConstructorVerification makes a pass consult every plan's constructor policy
// before binding, so a type without usable constructors aborts the pass instead of
// failing at its first resolution.
func WithConstructorVerification(enabled bool) Option {
	return func(o *options) {
		o.verifyConstructors = enabled
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics records pass metrics on m.
func WithMetrics(m *Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithConstructorCache shares cache with the default constructor policy.
// Without it every engine owns a private cache.
func WithConstructorCache(cache *ConstructorCache) Option {
	return func(o *options) {
		o.cache = cache
	}
}

// WithInterceptorAttacher sets the interception boundary. By default the binder is
// used when it implements InterceptorAttacher.
func WithInterceptorAttacher(a InterceptorAttacher) Option {
	return func(o *options) {
		o.attacher = a
	}
}

// WithInterceptor hands an interceptor factory to the binder at the start of every pass.
// The binder must implement InterceptorRegistrar.
func WithInterceptor(t reflect.Type, factory InterceptorFactory) Option {
	return func(o *options) {
		o.interceptors = append(o.interceptors, interceptorEntry{typ: t, factory: factory})
	}
}

// WithInterceptorFor is WithInterceptor for the interceptor type T.
func WithInterceptorFor[T any](factory func() (T, error)) Option {
	return WithInterceptor(reflect.TypeFor[T](), func() (any, error) {
		return factory()
	})
}
