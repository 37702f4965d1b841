package autoreg

import (
	"fmt"
	"reflect"

	"github.com/centraunit/autoreg/intercept"
)

// FactKind identifies one of the kinds of declarative facts a type can carry.
type FactKind string

// Available fact kinds
const (
	KindService              FactKind = "service"
	KindLifetime             FactKind = "lifetime"
	KindRegisterAs           FactKind = "register-as"
	KindInterceptedBy        FactKind = "intercepted-by"
	KindEnableInterception   FactKind = "enable-interception"
	KindFindConstructorsWith FactKind = "find-constructors-with"
)

// singleValued reports whether a type may carry at most one fact of kind k.
func (k FactKind) singleValued() bool {
	return k != KindRegisterAs && k != KindInterceptedBy
}

// Fact is a declarative statement about how a type is registered.
// Facts are created with the constructors in this package and attached to
// types through Metadata.Annotate, which validates them.
type Fact interface {
	Kind() FactKind
	validate() error
}

// ServiceFact marks a type as a candidate for registration.
type ServiceFact struct{}

// Service returns the service marker.
func Service() Fact { return ServiceFact{} }

func (ServiceFact) Kind() FactKind  { return KindService }
func (ServiceFact) validate() error { return nil }

// LifetimeFact selects the lifetime of a registration.
type LifetimeFact struct {
	Choice LifetimeChoice
}

// WithLifetime returns a lifetime fact for choice.
func WithLifetime(choice LifetimeChoice) Fact { return LifetimeFact{Choice: choice} }

// Singleton is shorthand for WithLifetime(SingleInstance()).
func Singleton() Fact { return WithLifetime(SingleInstance()) }

// PerRequest is shorthand for WithLifetime(InstancePerRequest()).
func PerRequest() Fact { return WithLifetime(InstancePerRequest()) }

// PerScope is shorthand for WithLifetime(InstancePerScope()).
func PerScope() Fact { return WithLifetime(InstancePerScope()) }

// PerDependency is shorthand for WithLifetime(InstancePerDependency()).
func PerDependency() Fact { return WithLifetime(InstancePerDependency()) }

// PerMatchingScope is shorthand for WithLifetime(InstancePerMatchingScope(tags...)).
func PerMatchingScope(tags ...any) Fact { return WithLifetime(InstancePerMatchingScope(tags...)) }

// PerOwned is shorthand for WithLifetime(InstancePerOwned(owner)).
func PerOwned(owner reflect.Type) Fact { return WithLifetime(InstancePerOwned(owner)) }

func (LifetimeFact) Kind() FactKind { return KindLifetime }

func (f LifetimeFact) validate() error {
	return f.Choice.Validate()
}

// RegisterAsOption is a symbolic exposure request.
type RegisterAsOption string

// Available register-as options
const (
	RegisterAsSelf                  RegisterAsOption = "self"
	RegisterAsImplementedInterfaces RegisterAsOption = "implemented-interfaces"
)

// RegisterAsFact requests one exposure: either a named service type or a symbolic option.
type RegisterAsFact struct {
	Type   reflect.Type
	Option RegisterAsOption
}

// As exposes the type as service type t.
func As(t reflect.Type) Fact { return RegisterAsFact{Type: t} }

// AsType exposes the type as service type T.
func AsType[T any]() Fact { return As(reflect.TypeFor[T]()) }

// AsSelf exposes the type as itself.
func AsSelf() Fact { return RegisterAsFact{Option: RegisterAsSelf} }

// AsImplementedInterfaces exposes the type as every interface it implements.
func AsImplementedInterfaces() Fact {
	return RegisterAsFact{Option: RegisterAsImplementedInterfaces}
}

func (RegisterAsFact) Kind() FactKind { return KindRegisterAs }

func (f RegisterAsFact) validate() error {
	if f.Type != nil && f.Option != "" {
		return fmt.Errorf("register-as names both type %s and option %q", f.Type, f.Option)
	}
	if f.Type != nil {
		return nil
	}
	switch f.Option {
	case RegisterAsSelf, RegisterAsImplementedInterfaces:
		return nil
	case "":
		return fmt.Errorf("register-as requires a service type or an option")
	default:
		return fmt.Errorf("unknown register-as option %q", string(f.Option))
	}
}

// InterceptedByFact adds one interceptor to the type's interception chain.
// Async is inferred from whether the interceptor implements intercept.AsyncInterceptor.
type InterceptedByFact struct {
	Interceptor reflect.Type
	Async       bool
}

// InterceptedBy adds the interceptor type t to the chain.
func InterceptedBy(t reflect.Type) Fact {
	return InterceptedByFact{Interceptor: t, Async: intercept.IsAsync(t)}
}

// InterceptedByType adds the interceptor type T to the chain.
func InterceptedByType[T any]() Fact { return InterceptedBy(reflect.TypeFor[T]()) }

func (InterceptedByFact) Kind() FactKind { return KindInterceptedBy }

func (f InterceptedByFact) validate() error {
	if f.Interceptor == nil {
		return fmt.Errorf("intercepted-by requires an interceptor type")
	}
	if !intercept.IsInterceptor(f.Interceptor) {
		return fmt.Errorf("%s implements neither intercept.Interceptor nor intercept.AsyncInterceptor", f.Interceptor)
	}
	return nil
}

// InterceptMode selects which proxies are requested for an intercepted registration.
type InterceptMode string

// Available intercept modes
const (
	// InterceptNone is implied when no enable-interception fact is present.
	InterceptNone InterceptMode = "none"
	// InterceptInterface proxies the interface exposures.
	InterceptInterface InterceptMode = "interface"
	// InterceptConcrete proxies the concrete type.
	InterceptConcrete InterceptMode = "concrete"
	// InterceptInterfaceAndConcrete proxies both.
	InterceptInterfaceAndConcrete InterceptMode = "interface-and-concrete"
)

// ParseInterceptMode parses the string form of an InterceptMode.
func ParseInterceptMode(s string) (InterceptMode, error) {
	switch m := InterceptMode(s); m {
	case InterceptNone, InterceptInterface, InterceptConcrete, InterceptInterfaceAndConcrete:
		return m, nil
	default:
		return "", fmt.Errorf("unknown intercept mode %q", s)
	}
}

// EnableInterceptionFact turns interception on for the type.
type EnableInterceptionFact struct {
	Mode InterceptMode
}

// EnableInterception enables interception in the given mode.
func EnableInterception(mode InterceptMode) Fact { return EnableInterceptionFact{Mode: mode} }

func (EnableInterceptionFact) Kind() FactKind { return KindEnableInterception }

func (f EnableInterceptionFact) validate() error {
	switch f.Mode {
	case InterceptInterface, InterceptConcrete, InterceptInterfaceAndConcrete:
		return nil
	default:
		return fmt.Errorf("enable-interception requires interface, concrete or interface-and-concrete mode, got %q", string(f.Mode))
	}
}

// FindConstructorsWithFact overrides the constructor selection policy of the type.
type FindConstructorsWithFact struct {
	Finder reflect.Type
}

// FindConstructorsWith selects the ConstructorFinder implementation t for the type.
func FindConstructorsWith(t reflect.Type) Fact { return FindConstructorsWithFact{Finder: t} }

// FindConstructorsWithType selects the ConstructorFinder implementation T for the type.
func FindConstructorsWithType[T any]() Fact { return FindConstructorsWith(reflect.TypeFor[T]()) }

func (FindConstructorsWithFact) Kind() FactKind { return KindFindConstructorsWith }

func (f FindConstructorsWithFact) validate() error {
	if f.Finder == nil {
		return fmt.Errorf("find-constructors-with requires a finder type")
	}
	if !f.Finder.Implements(constructorFinderType) {
		return fmt.Errorf("%s does not implement ConstructorFinder", f.Finder)
	}
	return nil
}
