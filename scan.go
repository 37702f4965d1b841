package autoreg

import "reflect"

// Descriptor is one candidate type of a pass together with everything the
// planner needs to know about it. It is built fresh per pass and never mutated.
type Descriptor struct {
	Type         reflect.Type
	Generic      bool
	Facts        []Fact
	Interfaces   []reflect.Type
	Constructors []Constructor
}

// Scan returns a descriptor for every type of u that carries the service marker,
// in universe order. Interface types are never candidates.
func Scan(u *Universe, md *Metadata) []Descriptor {
	var out []Descriptor
	for _, t := range u.Types() {
		if t.Kind() == reflect.Interface {
			continue
		}
		facts := md.Facts(t)
		if !hasService(facts) {
			continue
		}
		out = append(out, Descriptor{
			Type:         t,
			Generic:      u.IsGeneric(t),
			Facts:        facts,
			Interfaces:   u.ImplementedInterfaces(t),
			Constructors: u.Constructors(t),
		})
	}
	return out
}

func hasService(facts []Fact) bool {
	for _, f := range facts {
		if f.Kind() == KindService {
			return true
		}
	}
	return false
}
