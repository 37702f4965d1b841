package autoreg_test

import (
	"errors"
	"reflect"
	"testing"

	"github.com/centraunit/autoreg"
	"github.com/centraunit/autoreg/mock"
	"github.com/stretchr/testify/suite"
)

type PlanTestSuite struct {
	suite.Suite
	u  *autoreg.Universe
	md *autoreg.Metadata
}

func (s *PlanTestSuite) SetupTest() {
	s.u = newUniverse()
	s.md = autoreg.NewMetadata()
}

// plan annotates t with facts and builds its plan with the given default lifetime.
func (s *PlanTestSuite) plan(t reflect.Type, defaultLifetime autoreg.LifetimeChoice, facts ...autoreg.Fact) (*autoreg.Plan, error) {
	s.Require().NoError(s.md.Annotate(t, append([]autoreg.Fact{autoreg.Service()}, facts...)...))
	for _, d := range autoreg.Scan(s.u, s.md) {
		if d.Type == t {
			return autoreg.BuildPlan(d, autoreg.Extract(d), defaultLifetime)
		}
	}
	s.FailNow("type not scanned", t.String())
	return nil, nil
}

func (s *PlanTestSuite) TestScanSkipsUnmarkedAndInterfaceTypes() {
	s.md.MustAnnotate(plainType, autoreg.Service())
	s.md.MustAnnotate(emailNotifierType, autoreg.Singleton())
	s.md.MustAnnotate(notifierType, autoreg.Service())

	descs := autoreg.Scan(s.u, s.md)
	s.Require().Len(descs, 1)
	s.Equal(plainType, descs[0].Type)
	s.Len(descs[0].Constructors, 1)
}

func (s *PlanTestSuite) TestNoDeclarations() {
	p, err := s.plan(auditServiceType, autoreg.InstancePerScope())
	s.Require().NoError(err)

	s.Equal([]reflect.Type{auditorType, notifierType}, p.Exposures)
	s.NotContains(p.Exposures, reflect.TypeFor[mock.Undeclared](), "only declared interfaces are exposures")
	s.Equal(autoreg.InstancePerScope(), p.Lifetime)
	s.Equal(autoreg.InterceptNone, p.Interception)
	s.False(p.SelfFallback)
	s.False(p.Generic)
	s.Nil(p.FinderType)
}

func (s *PlanTestSuite) TestInterfaceAndConcreteInterception() {
	p, err := s.plan(emailNotifierType, autoreg.InstancePerScope(),
		autoreg.EnableInterception(autoreg.InterceptInterfaceAndConcrete),
		autoreg.InterceptedByType[*mock.FirstInterceptor](),
	)
	s.Require().NoError(err)

	s.Equal(autoreg.InterceptInterfaceAndConcrete, p.Interception)
	s.Equal([]autoreg.InterceptorRef{{Type: firstType}}, p.Interceptors)
	s.True(p.Intercepted())
	s.True(p.ProxyInterfaces())
	s.True(p.ProxyConcrete())
}

func (s *PlanTestSuite) TestInterceptModes() {
	cases := []struct {
		mode      autoreg.InterceptMode
		iface     bool
		concrete  bool
		intercept bool
	}{
		{autoreg.InterceptNone, false, false, false},
		{autoreg.InterceptInterface, true, false, true},
		{autoreg.InterceptConcrete, false, true, true},
		{autoreg.InterceptInterfaceAndConcrete, true, true, true},
	}
	for _, tc := range cases {
		p := &autoreg.Plan{Interception: tc.mode}
		s.Equal(tc.iface, p.ProxyInterfaces(), tc.mode)
		s.Equal(tc.concrete, p.ProxyConcrete(), tc.mode)
		s.Equal(tc.intercept, p.Intercepted(), tc.mode)
	}
}

func (s *PlanTestSuite) TestFinderWithInterceptionConflicts() {
	p, err := s.plan(plainType, autoreg.InstancePerScope(),
		autoreg.FindConstructorsWithType[*mock.FewestParamsFinder](),
		autoreg.EnableInterception(autoreg.InterceptInterface),
	)
	s.Nil(p)
	s.ErrorIs(err, autoreg.ErrConfigurationConflict)

	var conflict *autoreg.ConflictError
	s.Require().True(errors.As(err, &conflict))
	s.Equal(plainType, conflict.Type)
	s.Contains(err.Error(), "*mock.Plain")
	s.Contains(err.Error(), "*mock.FewestParamsFinder")
}

func (s *PlanTestSuite) TestFinderWithInertChainIsAllowed() {
	p, err := s.plan(plainType, autoreg.InstancePerScope(),
		autoreg.FindConstructorsWithType[*mock.FewestParamsFinder](),
		autoreg.InterceptedByType[*mock.FirstInterceptor](),
	)
	s.Require().NoError(err)
	s.Equal(reflect.TypeFor[*mock.FewestParamsFinder](), p.FinderType)
	s.False(p.Intercepted())
}

func (s *PlanTestSuite) TestPerOwned() {
	p, err := s.plan(unitOfWorkType, autoreg.InstancePerScope(), autoreg.PerOwned(sessionType))
	s.Require().NoError(err)
	s.Equal(autoreg.InstancePerOwned(sessionType), p.Lifetime)
	s.Equal("per-owned(*mock.Session)", p.Lifetime.String())

	md := autoreg.NewMetadata()
	s.ErrorIs(md.Annotate(unitOfWorkType, autoreg.Service(), autoreg.PerOwned(nil)), autoreg.ErrStructuralMetadata)
}

func (s *PlanTestSuite) TestSelfIncludedOnce() {
	p, err := s.plan(emailNotifierType, autoreg.InstancePerScope(),
		autoreg.AsSelf(),
		autoreg.AsSelf(),
		autoreg.AsSelf(),
	)
	s.Require().NoError(err)
	s.Equal([]reflect.Type{emailNotifierType}, p.Exposures)
	s.True(p.ExposesSelf())
}

func (s *PlanTestSuite) TestExplicitSelfTypeMergesWithSelf() {
	p, err := s.plan(emailNotifierType, autoreg.InstancePerScope(),
		autoreg.AsSelf(),
		autoreg.AsType[*mock.EmailNotifier](),
	)
	s.Require().NoError(err)
	s.Equal([]reflect.Type{emailNotifierType}, p.Exposures)
}

func (s *PlanTestSuite) TestSelfAndImplementedInterfaces() {
	p, err := s.plan(auditServiceType, autoreg.InstancePerScope(),
		autoreg.AsSelf(),
		autoreg.AsImplementedInterfaces(),
	)
	s.Require().NoError(err)
	s.Equal([]reflect.Type{auditServiceType, auditorType, notifierType}, p.Exposures)
}

func (s *PlanTestSuite) TestExplicitExposureOnly() {
	p, err := s.plan(auditServiceType, autoreg.InstancePerScope(), autoreg.AsType[mock.Notifier]())
	s.Require().NoError(err)
	s.Equal([]reflect.Type{notifierType}, p.Exposures)
	s.True(p.Exposes(notifierType))
	s.False(p.Exposes(auditorType))
	s.False(p.ExposesSelf())
}

func (s *PlanTestSuite) TestNoInterfacesFallsBackToSelf() {
	p, err := s.plan(plainType, autoreg.InstancePerScope())
	s.Require().NoError(err)
	s.Equal([]reflect.Type{plainType}, p.Exposures)
	s.True(p.SelfFallback)
}

func (s *PlanTestSuite) TestDefaultLifetimeUsedVerbatim() {
	def := autoreg.InstancePerMatchingScope("tenant", "batch")
	p, err := s.plan(memoryRepoType, def)
	s.Require().NoError(err)
	s.Equal(def, p.Lifetime)
}

func (s *PlanTestSuite) TestExplicitLifetimeWins() {
	p, err := s.plan(memoryRepoType, autoreg.InstancePerScope(), autoreg.Singleton())
	s.Require().NoError(err)
	s.Equal(autoreg.SingleInstance(), p.Lifetime)
}

func (s *PlanTestSuite) TestInvalidDefaultLifetime() {
	_, err := s.plan(memoryRepoType, autoreg.InstancePerMatchingScope())
	s.ErrorIs(err, autoreg.ErrStructuralMetadata)
}

func (s *PlanTestSuite) TestInertChain() {
	p, err := s.plan(emailNotifierType, autoreg.InstancePerScope(),
		autoreg.InterceptedByType[*mock.FirstInterceptor](),
		autoreg.InterceptedByType[*mock.FirstInterceptor](),
		autoreg.InterceptedByType[*mock.AsyncInterceptor](),
	)
	s.Require().NoError(err)
	s.Equal(autoreg.InterceptNone, p.Interception)
	s.False(p.Intercepted())
	s.Equal([]autoreg.InterceptorRef{
		{Type: firstType},
		{Type: firstType},
		{Type: asyncType, Async: true},
	}, p.Interceptors, "duplicates are kept in extraction order")
}

func (s *PlanTestSuite) TestGenericUsesSamePlanShape() {
	p, err := s.plan(boxType, autoreg.InstancePerScope(),
		autoreg.Singleton(),
		autoreg.EnableInterception(autoreg.InterceptConcrete),
		autoreg.InterceptedByType[*mock.FirstInterceptor](),
	)
	s.Require().NoError(err)
	s.True(p.Generic)
	s.Equal([]reflect.Type{repositoryType}, p.Exposures)
	s.Equal(autoreg.SingleInstance(), p.Lifetime)
	s.Equal(autoreg.InterceptConcrete, p.Interception)
	s.True(p.ProxyConcrete())
}

func (s *PlanTestSuite) TestExtractKeepsFirstSingleValuedFact() {
	d := autoreg.Descriptor{
		Type: plainType,
		Facts: []autoreg.Fact{
			autoreg.Service(),
			autoreg.Singleton(),
			autoreg.PerDependency(),
			autoreg.AsSelf(),
			autoreg.AsType[mock.Notifier](),
		},
	}
	f := autoreg.Extract(d)
	s.True(f.Service)
	s.Require().NotNil(f.Lifetime)
	s.Equal(autoreg.SingleInstance(), f.Lifetime.Choice)
	s.Len(f.RegisterAs, 2)
	s.Nil(f.Finder)
	s.Nil(f.Interception)
}

func (s *PlanTestSuite) TestIdempotence() {
	s.md.MustAnnotate(auditServiceType, autoreg.Service(), autoreg.AsSelf(), autoreg.AsImplementedInterfaces())
	s.md.MustAnnotate(emailNotifierType, autoreg.Service(), autoreg.Singleton(),
		autoreg.EnableInterception(autoreg.InterceptInterface),
		autoreg.InterceptedByType[*mock.AsyncInterceptor]())
	s.md.MustAnnotate(plainType, autoreg.Service())
	s.md.MustAnnotate(boxType, autoreg.Service())

	build := func() []*autoreg.Plan {
		var plans []*autoreg.Plan
		for _, d := range autoreg.Scan(s.u, s.md) {
			p, err := autoreg.BuildPlan(d, autoreg.Extract(d), autoreg.InstancePerRequest())
			s.Require().NoError(err)
			plans = append(plans, p)
		}
		return plans
	}

	first, second := build(), build()
	s.Require().Len(first, 4)
	s.Equal(first, second)
}

func TestPlanSuite(t *testing.T) {
	suite.Run(t, new(PlanTestSuite))
}
