package autoreg

import "reflect"

// Facts is the raw, uninterpreted view of the facts declared on one type.
type Facts struct {
	Service      bool
	Lifetime     *LifetimeFact
	RegisterAs   []RegisterAsFact
	Interceptors []InterceptedByFact
	Finder       *FindConstructorsWithFact
	Interception *EnableInterceptionFact
}

// Extract reads the facts of d by kind. It does not relate facts to each other.
func Extract(d Descriptor) Facts {
	var f Facts
	for _, fact := range d.Facts {
		switch v := fact.(type) {
		case ServiceFact:
			f.Service = true
		case LifetimeFact:
			if f.Lifetime == nil {
				f.Lifetime = &v
			}
		case RegisterAsFact:
			f.RegisterAs = append(f.RegisterAs, v)
		case InterceptedByFact:
			f.Interceptors = append(f.Interceptors, v)
		case FindConstructorsWithFact:
			if f.Finder == nil {
				f.Finder = &v
			}
		case EnableInterceptionFact:
			if f.Interception == nil {
				f.Interception = &v
			}
		}
	}
	return f
}

// Validate rejects combinations of facts that cannot be reconciled on type t.
// A custom constructor finder cannot be combined with interception, since proxy
// generation relies on the default constructor discovery.
func Validate(t reflect.Type, f Facts) error {
	if f.Finder != nil && f.Interception != nil {
		return &ConflictError{
			Type: t,
			Rule: "a custom constructor finder (" + typeString(f.Finder.Finder) + ") cannot be combined with interception",
		}
	}
	return nil
}
