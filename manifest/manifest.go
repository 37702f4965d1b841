// Package manifest reads registration facts from YAML documents, as an alternative
// to declaring them in code. Type names are resolved through a Universe, so every
// type a manifest mentions must have been declared there first.
//
//	types:
//	  - type: "*app.EmailNotifier"
//	    lifetime: singleton
//	    registerAs: [self, app.Notifier]
//	    interceptedBy: ["*app.Tracing"]
//	    interception: interface
package manifest

import (
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"

	"github.com/centraunit/autoreg"
	"gopkg.in/yaml.v3"
)

// Manifest is a parsed manifest document.
type Manifest struct {
	Types []Entry `yaml:"types"`
}

// Entry declares the facts of one type. The type is always marked as a service.
type Entry struct {
	Type              string   `yaml:"type"`
	Lifetime          string   `yaml:"lifetime,omitempty"`
	Tags              []string `yaml:"tags,omitempty"`
	Owner             string   `yaml:"owner,omitempty"`
	RegisterAs        []string `yaml:"registerAs,omitempty"`
	InterceptedBy     []string `yaml:"interceptedBy,omitempty"`
	Interception      string   `yaml:"interception,omitempty"`
	ConstructorFinder string   `yaml:"constructorFinder,omitempty"`
}

// Error locates a manifest problem.
type Error struct {
	Entry int
	Type  string
	Field string
	Err   error
}

func (e *Error) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("manifest entry %d (%s): %v", e.Entry, e.Type, e.Err)
	}
	return fmt.Sprintf("manifest entry %d (%s) %s: %v", e.Entry, e.Type, e.Field, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

var (
	// ErrUnknownType is wrapped by *Error when a name is not declared in the universe.
	ErrUnknownType = errors.New("type not declared in universe")
	// ErrAmbiguousType is wrapped by *Error when a short name matches types of several packages.
	ErrAmbiguousType = errors.New("type name is ambiguous")
)

// Load parses a manifest from r. Unknown fields are rejected.
func Load(r io.Reader) (*Manifest, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var m Manifest
	if err := dec.Decode(&m); err != nil {
		if errors.Is(err, io.EOF) {
			return &m, nil
		}
		return nil, fmt.Errorf("manifest: %w", err)
	}
	return &m, nil
}

// LoadFile parses the manifest stored at path.
func LoadFile(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("manifest: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Apply resolves every entry against u and annotates md with the resulting facts.
// All names are resolved before anything is annotated, so an unknown name leaves md
// untouched. Structural errors from md are returned wrapped in *Error.
func (m *Manifest) Apply(u *autoreg.Universe, md *autoreg.Metadata) error {
	type resolved struct {
		typ   reflect.Type
		facts []autoreg.Fact
	}

	all := make([]resolved, 0, len(m.Types))
	for i, entry := range m.Types {
		t, facts, err := entry.resolve(i, u)
		if err != nil {
			return err
		}
		all = append(all, resolved{typ: t, facts: facts})
	}

	for i, r := range all {
		if err := md.Annotate(r.typ, r.facts...); err != nil {
			return &Error{Entry: i, Type: m.Types[i].Type, Err: err}
		}
	}
	return nil
}

func (e Entry) resolve(index int, u *autoreg.Universe) (reflect.Type, []autoreg.Fact, error) {
	fail := func(field string, err error) error {
		return &Error{Entry: index, Type: e.Type, Field: field, Err: err}
	}
	lookup := func(field, name string) (reflect.Type, error) {
		t, ok := u.Lookup(name)
		if !ok {
			if n := len(u.Matches(name)); n > 1 {
				return nil, fail(field, fmt.Errorf("%w: %q matches %d types, use the package-qualified name", ErrAmbiguousType, name, n))
			}
			return nil, fail(field, fmt.Errorf("%w: %q", ErrUnknownType, name))
		}
		return t, nil
	}

	if e.Type == "" {
		return nil, nil, fail("type", errors.New("missing type name"))
	}
	t, err := lookup("type", e.Type)
	if err != nil {
		return nil, nil, err
	}

	facts := []autoreg.Fact{autoreg.Service()}

	if e.Lifetime != "" {
		choice, err := e.lifetime(lookup)
		if err != nil {
			if _, ok := err.(*Error); ok {
				return nil, nil, err
			}
			return nil, nil, fail("lifetime", err)
		}
		facts = append(facts, autoreg.WithLifetime(choice))
	}

	for _, name := range e.RegisterAs {
		switch autoreg.RegisterAsOption(name) {
		case autoreg.RegisterAsSelf:
			facts = append(facts, autoreg.AsSelf())
		case autoreg.RegisterAsImplementedInterfaces:
			facts = append(facts, autoreg.AsImplementedInterfaces())
		default:
			service, err := lookup("registerAs", name)
			if err != nil {
				return nil, nil, err
			}
			facts = append(facts, autoreg.As(service))
		}
	}

	for _, name := range e.InterceptedBy {
		ic, err := lookup("interceptedBy", name)
		if err != nil {
			return nil, nil, err
		}
		facts = append(facts, autoreg.InterceptedBy(ic))
	}

	if e.Interception != "" {
		mode, err := autoreg.ParseInterceptMode(e.Interception)
		if err != nil {
			return nil, nil, fail("interception", err)
		}
		facts = append(facts, autoreg.EnableInterception(mode))
	}

	if e.ConstructorFinder != "" {
		finder, err := lookup("constructorFinder", e.ConstructorFinder)
		if err != nil {
			return nil, nil, err
		}
		facts = append(facts, autoreg.FindConstructorsWith(finder))
	}

	return t, facts, nil
}

func (e Entry) lifetime(lookup func(field, name string) (reflect.Type, error)) (autoreg.LifetimeChoice, error) {
	l, err := autoreg.ParseLifetime(e.Lifetime)
	if err != nil {
		return autoreg.LifetimeChoice{}, err
	}
	choice := autoreg.LifetimeChoice{Lifetime: l}
	switch l {
	case autoreg.LifetimePerMatchingScope:
		for _, tag := range e.Tags {
			choice.Tags = append(choice.Tags, tag)
		}
	case autoreg.LifetimePerOwned:
		if e.Owner == "" {
			return autoreg.LifetimeChoice{}, errors.New("per-owned lifetime requires an owner")
		}
		owner, err := lookup("owner", e.Owner)
		if err != nil {
			return autoreg.LifetimeChoice{}, err
		}
		choice.Owner = owner
	}
	return choice, nil
}
