// Package autoreg plans dependency injection registrations from declarative facts.
//
// Types are declared in a Universe together with their constructors and the
// interfaces they may be exposed as. Facts (service marker, lifetime, exposures,
// interceptors, interception mode, constructor finder) are attached to types in a
// Metadata registry, either in code or from a manifest. An Engine scans the
// universe for marked types, turns each one into a Plan and hands the plans to a
// Binder, the DI container doing the actual wiring:
//
//	u := autoreg.NewUniverse().
//		Interface(reflect.TypeFor[Notifier]()).
//		Type(reflect.TypeFor[*EmailNotifier](), NewEmailNotifier)
//
//	md := autoreg.NewMetadata()
//	md.MustAnnotate(reflect.TypeFor[*EmailNotifier](), autoreg.Service(), autoreg.Singleton())
//
//	report, err := autoreg.New(container.New()).Run(u, md)
//
// A pass is all or nothing: every plan is built before the first one is bound,
// and the first error aborts the pass.
package autoreg
