package autoreg

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// InterceptorRef identifies one interceptor of a plan's chain.
type InterceptorRef struct {
	Type  reflect.Type
	Async bool
}

// Plan is the normalized, container-agnostic description of how one type is bound.
// A plan is built once per pass, handed to the binder and then dropped.
type Plan struct {
	// Type is the implementation type.
	Type reflect.Type
	// Generic selects Binder.RegisterGeneric instead of Binder.RegisterConcrete.
	Generic bool
	// Lifetime is the resolved lifetime.
	Lifetime LifetimeChoice
	// Exposures is the set of service types the implementation is reachable as,
	// sorted by type name. All exposures share one activator.
	Exposures []reflect.Type
	// SelfFallback is set when no exposure resolved and the type is exposed as itself.
	SelfFallback bool
	// Interception is InterceptNone unless interception was enabled.
	Interception InterceptMode
	// Interceptors is the chain in extraction order. It is inert when Interception is InterceptNone.
	Interceptors []InterceptorRef
	// FinderType is the constructor finder override, nil for the default policy.
	FinderType reflect.Type
	// Finder is the policy the binder consults; attached by the engine.
	Finder ConstructorFinder
	// Constructors are the constructors declared for Type.
	Constructors []Constructor
}

// Intercepted reports whether interception is enabled.
func (p *Plan) Intercepted() bool {
	return p.Interception != InterceptNone
}

// ProxyInterfaces reports whether interface exposures must be proxied.
func (p *Plan) ProxyInterfaces() bool {
	return p.Interception == InterceptInterface || p.Interception == InterceptInterfaceAndConcrete
}

// ProxyConcrete reports whether the concrete type must be proxied.
func (p *Plan) ProxyConcrete() bool {
	return p.Interception == InterceptConcrete || p.Interception == InterceptInterfaceAndConcrete
}

// Exposes reports whether t is one of the plan's exposures.
func (p *Plan) Exposes(t reflect.Type) bool {
	for _, e := range p.Exposures {
		if e == t {
			return true
		}
	}
	return false
}

// ExposesSelf reports whether the implementation type is exposed as itself.
func (p *Plan) ExposesSelf() bool {
	return p.Exposes(p.Type)
}

// FindConstructors consults the plan's constructor policy. An empty result is
// reported as a *NoConstructorsError whichever policy produced it.
func (p *Plan) FindConstructors() ([]Constructor, error) {
	if p.Finder == nil {
		return nil, &NoConstructorsError{Type: p.Type}
	}
	found, err := p.Finder.FindConstructors(p.Type, p.Constructors)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, &NoConstructorsError{Type: p.Type}
	}
	return found, nil
}

func (p *Plan) String() string {
	names := make([]string, len(p.Exposures))
	for i, e := range p.Exposures {
		names[i] = e.String()
	}
	return fmt.Sprintf("%s as [%s] %s intercept=%s", p.Type, strings.Join(names, ", "), p.Lifetime, p.Interception)
}

// BuildPlan resolves the facts of one descriptor into a plan. defaultLifetime is
// used verbatim when no lifetime fact is present. BuildPlan is a pure function of
// its arguments; the constructor finder instance is attached later by the engine.
func BuildPlan(d Descriptor, f Facts, defaultLifetime LifetimeChoice) (*Plan, error) {
	if err := Validate(d.Type, f); err != nil {
		return nil, err
	}

	lifetime := defaultLifetime
	if f.Lifetime != nil {
		lifetime = f.Lifetime.Choice
	}
	if err := lifetime.Validate(); err != nil {
		return nil, &StructuralError{Type: d.Type, Kind: KindLifetime, Err: err}
	}

	exposures, fallback := resolveExposures(d, f.RegisterAs)

	mode := InterceptNone
	if f.Interception != nil {
		mode = f.Interception.Mode
	}

	chain := make([]InterceptorRef, len(f.Interceptors))
	for i, ic := range f.Interceptors {
		chain[i] = InterceptorRef{Type: ic.Interceptor, Async: ic.Async}
	}

	plan := &Plan{
		Type:         d.Type,
		Generic:      d.Generic,
		Lifetime:     lifetime,
		Exposures:    exposures,
		SelfFallback: fallback,
		Interception: mode,
		Interceptors: chain,
		Constructors: append([]Constructor(nil), d.Constructors...),
	}
	if f.Finder != nil {
		plan.FinderType = f.Finder.Finder
	}
	return plan, nil
}

// resolveExposures applies the exposure rules: no declarations means implemented
// interfaces; self and implemented interfaces are added on request; explicit types
// are added as named. An empty result falls back to self.
func resolveExposures(d Descriptor, decls []RegisterAsFact) ([]reflect.Type, bool) {
	set := make(map[reflect.Type]struct{})
	asSelf := false
	asInterfaces := len(decls) == 0

	for _, r := range decls {
		switch {
		case r.Type != nil:
			set[r.Type] = struct{}{}
		case r.Option == RegisterAsSelf:
			asSelf = true
		case r.Option == RegisterAsImplementedInterfaces:
			asInterfaces = true
		}
	}
	if asSelf {
		set[d.Type] = struct{}{}
	}
	if asInterfaces {
		for _, iface := range d.Interfaces {
			set[iface] = struct{}{}
		}
	}

	fallback := false
	if len(set) == 0 {
		set[d.Type] = struct{}{}
		fallback = true
	}

	out := make([]reflect.Type, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		return typeLess(out[i], out[j])
	})
	return out, fallback
}

// typeLess orders types by name, then by package path for same-named types.
func typeLess(a, b reflect.Type) bool {
	if as, bs := a.String(), b.String(); as != bs {
		return as < bs
	}
	return pkgPath(a) < pkgPath(b)
}

func pkgPath(t reflect.Type) string {
	for t.Kind() == reflect.Pointer || t.Kind() == reflect.Slice || t.Kind() == reflect.Array {
		t = t.Elem()
	}
	return t.PkgPath()
}
