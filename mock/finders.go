package mock

import (
	"reflect"

	"github.com/centraunit/autoreg"
)

// FewestParamsFinder keeps only the declared constructors with the fewest parameters.
type FewestParamsFinder struct {
	name string
}

func (f *FewestParamsFinder) FindConstructors(target reflect.Type, declared []autoreg.Constructor) ([]autoreg.Constructor, error) {
	var (
		out  []autoreg.Constructor
		best = -1
	)
	for _, c := range declared {
		if !c.Usable(target) {
			continue
		}
		n := len(c.Params())
		switch {
		case best == -1 || n < best:
			best = n
			out = []autoreg.Constructor{c}
		case n == best:
			out = append(out, c)
		}
	}
	return out, nil
}

// EmptyFinder never finds a constructor.
type EmptyFinder struct{}

func (EmptyFinder) FindConstructors(reflect.Type, []autoreg.Constructor) ([]autoreg.Constructor, error) {
	return nil, nil
}

// FinderContract is an interface finder type; it has no zero value to instantiate.
type FinderContract interface {
	autoreg.ConstructorFinder
}

// FinderFunc is a function finder type; it has no zero value to instantiate.
type FinderFunc func(reflect.Type, []autoreg.Constructor) ([]autoreg.Constructor, error)

func (f FinderFunc) FindConstructors(t reflect.Type, declared []autoreg.Constructor) ([]autoreg.Constructor, error) {
	return f(t, declared)
}
