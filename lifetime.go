package autoreg

import (
	"fmt"
	"reflect"
	"strings"
)

// Lifetime names the instance-sharing policy of a registration.
type Lifetime string

// Available lifetimes
const (
	// LifetimeSingleton shares one instance across the whole container.
	LifetimeSingleton Lifetime = "singleton"
	// LifetimePerRequest shares an instance within the enclosing request scope.
	LifetimePerRequest Lifetime = "per-request"
	// LifetimePerScope shares an instance within the current lifetime scope.
	LifetimePerScope Lifetime = "per-scope"
	// LifetimePerMatchingScope shares an instance within the nearest scope carrying one of the tags.
	LifetimePerMatchingScope Lifetime = "per-matching-scope"
	// LifetimePerDependency creates a new instance for every dependent.
	LifetimePerDependency Lifetime = "per-dependency"
	// LifetimePerOwned shares an instance within the scope of an owned instance of the owner type.
	LifetimePerOwned Lifetime = "per-owned"
)

var lifetimes = []Lifetime{
	LifetimeSingleton,
	LifetimePerRequest,
	LifetimePerScope,
	LifetimePerMatchingScope,
	LifetimePerDependency,
	LifetimePerOwned,
}

// ParseLifetime parses the string form of a Lifetime. Matching is case-insensitive
// and accepts underscores in place of dashes.
func ParseLifetime(s string) (Lifetime, error) {
	norm := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "-")
	for _, l := range lifetimes {
		if string(l) == norm {
			return l, nil
		}
	}
	return "", fmt.Errorf("unknown lifetime %q", s)
}

func (l Lifetime) String() string {
	return string(l)
}

// LifetimeChoice is a resolved lifetime together with the parameters some lifetimes require.
// Tags is only meaningful for LifetimePerMatchingScope and Owner for LifetimePerOwned.
type LifetimeChoice struct {
	Lifetime Lifetime
	Tags     []any
	Owner    reflect.Type
}

// SingleInstance returns a singleton lifetime choice.
func SingleInstance() LifetimeChoice {
	return LifetimeChoice{Lifetime: LifetimeSingleton}
}

// InstancePerRequest returns a per-request lifetime choice.
func InstancePerRequest() LifetimeChoice {
	return LifetimeChoice{Lifetime: LifetimePerRequest}
}

// InstancePerScope returns a per-scope lifetime choice.
func InstancePerScope() LifetimeChoice {
	return LifetimeChoice{Lifetime: LifetimePerScope}
}

// InstancePerDependency returns a per-dependency lifetime choice.
func InstancePerDependency() LifetimeChoice {
	return LifetimeChoice{Lifetime: LifetimePerDependency}
}

// InstancePerMatchingScope returns a lifetime choice bound to scopes tagged with one of tags.
func InstancePerMatchingScope(tags ...any) LifetimeChoice {
	return LifetimeChoice{Lifetime: LifetimePerMatchingScope, Tags: tags}
}

// InstancePerOwned returns a lifetime choice bound to owned instances of owner.
func InstancePerOwned(owner reflect.Type) LifetimeChoice {
	return LifetimeChoice{Lifetime: LifetimePerOwned, Owner: owner}
}

// Validate checks the structural invariants of the choice.
func (c LifetimeChoice) Validate() error {
	switch c.Lifetime {
	case LifetimeSingleton, LifetimePerRequest, LifetimePerScope, LifetimePerDependency:
		return nil
	case LifetimePerMatchingScope:
		if len(c.Tags) == 0 {
			return fmt.Errorf("lifetime %s requires at least one tag", c.Lifetime)
		}
		return nil
	case LifetimePerOwned:
		if c.Owner == nil {
			return fmt.Errorf("lifetime %s requires an owner type", c.Lifetime)
		}
		return nil
	default:
		return fmt.Errorf("unknown lifetime %q", string(c.Lifetime))
	}
}

func (c LifetimeChoice) String() string {
	switch c.Lifetime {
	case LifetimePerMatchingScope:
		return fmt.Sprintf("%s%v", c.Lifetime, c.Tags)
	case LifetimePerOwned:
		if c.Owner == nil {
			return fmt.Sprintf("%s(<nil>)", c.Lifetime)
		}
		return fmt.Sprintf("%s(%s)", c.Lifetime, c.Owner)
	default:
		return string(c.Lifetime)
	}
}
