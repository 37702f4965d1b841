package autoreg

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrNoBinder is returned by Run on an engine created without a binder.
	ErrNoBinder = errors.New("no binder configured")
	// ErrNoAttacher is returned when a plan enables interception but nothing can attach interceptors.
	ErrNoAttacher = errors.New("no interceptor attacher configured")
	// ErrNoRegistrar is returned when interceptor factories are configured but the binder cannot take them.
	ErrNoRegistrar = errors.New("binder does not accept interceptor factories")
)

// Engine turns declared facts into registration plans and applies them to a binder.
type Engine struct {
	binder        Binder
	attacher      InterceptorAttacher
	defaultFinder *AllConstructors
	opts          options
}

// Report summarizes a completed pass.
type Report struct {
	// ID identifies the pass in logs.
	ID string
	// Registered counts bound plans, generic ones included.
	Registered int
	// Generic counts plans bound through RegisterGeneric.
	Generic int
	// Intercepted counts plans with interception enabled.
	Intercepted int
	// Inert counts plans carrying interceptors without interception enabled.
	Inert    int
	Duration time.Duration
}

// New creates an engine binding to binder. binder may be nil for an engine that
// only computes plans.
func New(binder Binder, opts ...Option) *Engine {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	e := &Engine{
		binder:        binder,
		attacher:      o.attacher,
		defaultFinder: NewAllConstructors(o.cache),
		opts:          o,
	}
	if e.attacher == nil {
		if a, ok := binder.(InterceptorAttacher); ok {
			e.attacher = a
		}
	}
	return e
}

// Plan computes the registration plans of every marked type of u without binding them.
// Plans come back in universe order. On failure the error of the first failing type,
// in universe order, is returned and no plan is.
func (e *Engine) Plan(u *Universe, md *Metadata) ([]*Plan, error) {
	return e.plan(e.opts.logger, u, md)
}

// Run performs one registration pass: every plan is computed first, and only when all
// succeeded are they bound, in universe order. The first error aborts the pass.
func (e *Engine) Run(u *Universe, md *Metadata) (*Report, error) {
	start := time.Now()
	id := uuid.NewString()
	log := e.opts.logger.With(zap.String("pass", id))
	log.Info("registration pass started", zap.Int("candidates", len(u.Types())))

	report, err := e.run(log, u, md)
	elapsed := time.Since(start)
	e.opts.metrics.observeDuration(elapsed)
	if err != nil {
		e.opts.metrics.observeFailure(err)
		log.Error("registration pass aborted",
			zap.String("reason", errorReason(err)),
			zap.Error(err),
			zap.Duration("elapsed", elapsed))
		return nil, err
	}

	report.ID = id
	report.Duration = elapsed
	log.Info("registration pass finished",
		zap.Int("registered", report.Registered),
		zap.Int("generic", report.Generic),
		zap.Int("intercepted", report.Intercepted),
		zap.Duration("elapsed", elapsed))
	return report, nil
}

func (e *Engine) run(log *zap.Logger, u *Universe, md *Metadata) (*Report, error) {
	if e.binder == nil {
		return nil, ErrNoBinder
	}

	plans, err := e.plan(log, u, md)
	if err != nil {
		return nil, err
	}

	for _, p := range plans {
		if p.Intercepted() && len(p.Interceptors) > 0 && e.attacher == nil {
			return nil, &BindError{Type: p.Type, Op: "attach interceptor", Err: ErrNoAttacher}
		}
	}

	if err := e.registerInterceptors(log); err != nil {
		return nil, err
	}

	report := &Report{}
	for _, p := range plans {
		if err := e.bind(log, p, report); err != nil {
			return nil, err
		}
		e.opts.metrics.observePlan(p)
	}
	return report, nil
}

func (e *Engine) registerInterceptors(log *zap.Logger) error {
	if len(e.opts.interceptors) == 0 {
		return nil
	}
	registrar, ok := e.binder.(InterceptorRegistrar)
	if !ok {
		return &BindError{Type: e.opts.interceptors[0].typ, Op: "register interceptor", Err: ErrNoRegistrar}
	}
	for _, ic := range e.opts.interceptors {
		if err := registrar.RegisterInterceptor(ic.typ, ic.factory); err != nil {
			return &BindError{Type: ic.typ, Op: "register interceptor", Err: err}
		}
		log.Debug("interceptor factory registered", zap.Stringer("interceptor", ic.typ))
	}
	return nil
}

func (e *Engine) bind(log *zap.Logger, p *Plan, report *Report) error {
	var (
		h   Handle
		err error
		op  = "register concrete"
	)
	if p.Generic {
		op = "register generic"
		h, err = e.binder.RegisterGeneric(p)
	} else {
		h, err = e.binder.RegisterConcrete(p)
	}
	if err != nil {
		return &BindError{Type: p.Type, Op: op, Err: err}
	}

	report.Registered++
	if p.Generic {
		report.Generic++
	}

	switch {
	case p.Intercepted():
		report.Intercepted++
		for _, ic := range p.Interceptors {
			if err := e.attacher.AttachInterceptor(h, ic.Type, ic.Async); err != nil {
				return &BindError{Type: p.Type, Op: "attach interceptor", Err: err}
			}
		}
	case len(p.Interceptors) > 0:
		report.Inert++
		log.Debug("interceptor chain is inert without enable-interception",
			zap.Stringer("type", p.Type),
			zap.Int("interceptors", len(p.Interceptors)))
	}

	log.Debug("type registered", planFields(p)...)
	return nil
}

func (e *Engine) plan(log *zap.Logger, u *Universe, md *Metadata) ([]*Plan, error) {
	if err := e.opts.defaultLifetime.Validate(); err != nil {
		return nil, &StructuralError{Kind: KindLifetime, Err: fmt.Errorf("default lifetime: %w", err)}
	}

	descs := Scan(u, md)
	plans := make([]*Plan, len(descs))
	errs := make([]error, len(descs))
	finders := newFinderSet()

	var g errgroup.Group
	g.SetLimit(e.opts.workers)
	for i, d := range descs {
		g.Go(func() error {
			p, err := e.planOne(d, finders)
			if err != nil {
				errs[i] = err
				return err
			}
			plans[i] = p
			return nil
		})
	}
	_ = g.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	for _, p := range plans {
		if p.SelfFallback {
			log.Debug("no exposure resolved, exposing type as itself", zap.Stringer("type", p.Type))
		}
	}
	log.Debug("plans built", zap.Int("plans", len(plans)), zap.Int("finders", finders.len()))
	return plans, nil
}

func (e *Engine) planOne(d Descriptor, finders *finderSet) (*Plan, error) {
	facts := Extract(d)
	if err := Validate(d.Type, facts); err != nil {
		return nil, err
	}

	p, err := BuildPlan(d, facts, e.opts.defaultLifetime)
	if err != nil {
		return nil, err
	}

	if p.FinderType != nil {
		finder, err := finders.get(d.Type, p.FinderType)
		if err != nil {
			return nil, err
		}
		p.Finder = finder
	} else {
		p.Finder = e.defaultFinder
	}

	if e.opts.verifyConstructors {
		if _, err := p.FindConstructors(); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func planFields(p *Plan) []zap.Field {
	exposures := make([]string, len(p.Exposures))
	for i, t := range p.Exposures {
		exposures[i] = t.String()
	}
	fields := []zap.Field{
		zap.Stringer("type", p.Type),
		zap.Bool("generic", p.Generic),
		zap.Stringer("lifetime", p.Lifetime),
		zap.Strings("exposures", exposures),
		zap.String("interception", string(p.Interception)),
		zap.Int("interceptors", len(p.Interceptors)),
	}
	if p.FinderType != nil {
		fields = append(fields, zap.Stringer("finder", p.FinderType))
	}
	return fields
}
