package autoreg_test

import (
	"errors"
	"reflect"
	"sync"
	"testing"

	"github.com/centraunit/autoreg"
	"github.com/centraunit/autoreg/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

func TestConstructorUsable(t *testing.T) {
	var nilFunc func() *mock.Plain

	cases := []struct {
		name   string
		fn     any
		target reflect.Type
		usable bool
	}{
		{"SingleResult", mock.NewPlain, plainType, true},
		{"WithError", func() (*mock.Plain, error) { return nil, nil }, plainType, true},
		{"WithParams", mock.NewEmailNotifier, emailNotifierType, true},
		{"WrongResult", mock.NewPlain, emailNotifierType, false},
		{"SecondResultNotError", func() (*mock.Plain, int) { return nil, 0 }, plainType, false},
		{"Variadic", func(...int) *mock.Plain { return nil }, plainType, false},
		{"NoResult", func() {}, plainType, false},
		{"NilFunc", nilFunc, plainType, false},
		{"NotAFunc", 42, plainType, false},
		{"Nil", nil, plainType, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.usable, autoreg.NewConstructor(tc.fn).Usable(tc.target))
		})
	}
}

func TestConstructorCall(t *testing.T) {
	t.Run("ReturnsInstance", func(t *testing.T) {
		v, err := autoreg.NewConstructor(mock.NewPlain).Call(nil)
		require.NoError(t, err)
		assert.IsType(t, &mock.Plain{}, v)
	})

	t.Run("ReturnsError", func(t *testing.T) {
		boom := errors.New("boom")
		ctor := autoreg.NewConstructor(func() (*mock.Plain, error) { return nil, boom })
		_, err := ctor.Call(nil)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("Params", func(t *testing.T) {
		ctor := autoreg.NewConstructor(mock.NewEmailNotifier)
		assert.Equal(t, []reflect.Type{repositoryType}, ctor.Params())
		assert.Equal(t, "func(mock.Repository) *mock.EmailNotifier", ctor.String())
	})
}

func TestAllConstructors(t *testing.T) {
	t.Run("FiltersAndCaches", func(t *testing.T) {
		cache := autoreg.NewConstructorCache()
		finder := autoreg.NewAllConstructors(cache)
		declared := []autoreg.Constructor{
			autoreg.NewConstructor(mock.NewEmailNotifier),
			autoreg.NewConstructor(mock.NewPlain),
			autoreg.NewConstructor(mock.NewStandaloneEmailNotifier),
		}

		found, err := finder.FindConstructors(emailNotifierType, declared)
		require.NoError(t, err)
		assert.Len(t, found, 2)
		assert.Equal(t, 1, cache.Len())

		again, err := finder.FindConstructors(emailNotifierType, declared)
		require.NoError(t, err)
		assert.Equal(t, found, again)
		assert.Equal(t, 1, cache.Len(), "the same declared set is memoized")

		_, err = finder.FindConstructors(emailNotifierType, nil)
		assert.ErrorIs(t, err, autoreg.ErrNoUsableConstructors, "another declared set is not served the cached result")
		assert.Equal(t, 2, cache.Len())
	})

	t.Run("ZeroValue", func(t *testing.T) {
		var finder autoreg.AllConstructors
		found, err := finder.FindConstructors(plainType, []autoreg.Constructor{autoreg.NewConstructor(mock.NewPlain)})
		require.NoError(t, err)
		assert.Len(t, found, 1)

		_, err = finder.FindConstructors(plainType, nil)
		assert.ErrorIs(t, err, autoreg.ErrNoUsableConstructors)
	})

	t.Run("NoUsableConstructors", func(t *testing.T) {
		finder := autoreg.NewAllConstructors(nil)
		_, err := finder.FindConstructors(plainType, []autoreg.Constructor{autoreg.NewConstructor(mock.NewSession)})
		assert.ErrorIs(t, err, autoreg.ErrNoUsableConstructors)

		var noCtors *autoreg.NoConstructorsError
		require.True(t, errors.As(err, &noCtors))
		assert.Equal(t, plainType, noCtors.Type)
	})
}

func TestConstructorCacheConcurrentAccess(t *testing.T) {
	cache := autoreg.NewConstructorCache()
	const workers = 64

	var (
		wg      sync.WaitGroup
		start   = make(chan struct{})
		results = make([][]autoreg.Constructor, workers)
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			<-start
			results[id] = cache.GetOrAdd(plainType, nil, func() []autoreg.Constructor {
				return []autoreg.Constructor{autoreg.NewConstructor(mock.NewPlain)}
			})
		}(i)
	}
	close(start)
	wg.Wait()

	first := reflect.ValueOf(results[0]).Pointer()
	for _, r := range results {
		assert.Equal(t, first, reflect.ValueOf(r).Pointer(), "every caller must see the stored slice")
	}
	assert.Equal(t, 1, cache.Len())
}

type FinderTestSuite struct {
	suite.Suite
	u  *autoreg.Universe
	md *autoreg.Metadata
}

func (s *FinderTestSuite) SetupTest() {
	s.u = newUniverse()
	s.md = autoreg.NewMetadata()
}

func (s *FinderTestSuite) TestOverrideInstantiatedOncePerPass() {
	s.md.MustAnnotate(memoryRepoType, autoreg.Service(), autoreg.FindConstructorsWithType[*mock.FewestParamsFinder]())
	s.md.MustAnnotate(emailNotifierType, autoreg.Service(), autoreg.FindConstructorsWithType[*mock.FewestParamsFinder]())

	engine := autoreg.New(nil, autoreg.WithWorkers(4))
	plans, err := engine.Plan(s.u, s.md)
	s.Require().NoError(err)
	s.Require().Len(plans, 2)
	s.Same(plans[0].Finder, plans[1].Finder)

	ctors, err := plans[1].FindConstructors()
	s.Require().NoError(err)
	s.Require().Len(ctors, 1)
	s.Empty(ctors[0].Params(), "the override keeps the parameterless constructor only")

	again, err := engine.Plan(s.u, s.md)
	s.Require().NoError(err)
	s.NotSame(plans[0].Finder, again[0].Finder, "overrides are not shared across passes")
}

func (s *FinderTestSuite) TestValueFinder() {
	s.md.MustAnnotate(plainType, autoreg.Service(), autoreg.FindConstructorsWithType[mock.EmptyFinder]())

	plans, err := autoreg.New(nil).Plan(s.u, s.md)
	s.Require().NoError(err)
	s.IsType(mock.EmptyFinder{}, plans[0].Finder)

	_, err = plans[0].FindConstructors()
	s.ErrorIs(err, autoreg.ErrNoUsableConstructors, "an empty override result is no usable constructors")

	_, err = autoreg.New(nil, autoreg.WithConstructorVerification(true)).Plan(s.u, s.md)
	s.ErrorIs(err, autoreg.ErrNoUsableConstructors)
}

func (s *FinderTestSuite) TestUninstantiableFinders() {
	cases := map[string]reflect.Type{
		"Interface": reflect.TypeFor[mock.FinderContract](),
		"Func":      reflect.TypeFor[mock.FinderFunc](),
	}
	for name, finder := range cases {
		s.Run(name, func() {
			md := autoreg.NewMetadata()
			md.MustAnnotate(plainType, autoreg.Service(), autoreg.FindConstructorsWith(finder))

			plans, err := autoreg.New(nil).Plan(s.u, md)
			s.Nil(plans)
			s.ErrorIs(err, autoreg.ErrPolicyInstantiation)

			var policyErr *autoreg.PolicyInstantiationError
			s.Require().True(errors.As(err, &policyErr))
			s.Equal(plainType, policyErr.Type)
			s.Equal(finder, policyErr.Finder)
		})
	}
}

func (s *FinderTestSuite) TestDefaultPolicyVerification() {
	u := autoreg.NewUniverse().Type(plainType)
	s.md.MustAnnotate(plainType, autoreg.Service())

	plans, err := autoreg.New(nil).Plan(u, s.md)
	s.Require().NoError(err, "without verification constructors are consulted by the binder")
	_, err = plans[0].FindConstructors()
	s.ErrorIs(err, autoreg.ErrNoUsableConstructors)

	_, err = autoreg.New(nil, autoreg.WithConstructorVerification(true)).Plan(u, s.md)
	s.ErrorIs(err, autoreg.ErrNoUsableConstructors)
}

func (s *FinderTestSuite) TestSharedCache() {
	cache := autoreg.NewConstructorCache()
	s.md.MustAnnotate(plainType, autoreg.Service())
	s.md.MustAnnotate(emailNotifierType, autoreg.Service())
	s.md.MustAnnotate(memoryRepoType, autoreg.Service(), autoreg.FindConstructorsWithType[*mock.FewestParamsFinder]())

	_, err := autoreg.New(nil,
		autoreg.WithConstructorCache(cache),
		autoreg.WithConstructorVerification(true),
	).Plan(s.u, s.md)
	s.Require().NoError(err)
	s.Equal(2, cache.Len(), "overridden types bypass the default cache")
}

func (s *FinderTestSuite) TestDefaultPolicyAsOverride() {
	s.md.MustAnnotate(plainType, autoreg.Service(), autoreg.FindConstructorsWithType[*autoreg.AllConstructors]())

	plans, err := autoreg.New(nil).Plan(s.u, s.md)
	s.Require().NoError(err)
	s.IsType(&autoreg.AllConstructors{}, plans[0].Finder)
	ctors, err := plans[0].FindConstructors()
	s.Require().NoError(err)
	s.Len(ctors, 1)

	plans, err = autoreg.New(nil, autoreg.WithConstructorVerification(true), autoreg.WithWorkers(4)).Plan(s.u, s.md)
	s.Require().NoError(err)
	s.Require().Len(plans, 1)

	bare := autoreg.NewUniverse().Type(plainType)
	_, err = autoreg.New(nil, autoreg.WithConstructorVerification(true)).Plan(bare, s.md)
	s.ErrorIs(err, autoreg.ErrNoUsableConstructors)
}

func (s *FinderTestSuite) TestCacheSharedAcrossUniverses() {
	cache := autoreg.NewConstructorCache()
	s.md.MustAnnotate(plainType, autoreg.Service())
	engine := autoreg.New(nil, autoreg.WithConstructorCache(cache), autoreg.WithConstructorVerification(true))

	_, err := engine.Plan(autoreg.NewUniverse().Type(plainType), s.md)
	s.ErrorIs(err, autoreg.ErrNoUsableConstructors)

	plans, err := engine.Plan(autoreg.NewUniverse().Type(plainType, mock.NewPlain), s.md)
	s.Require().NoError(err, "a universe declaring constructors is not served an earlier empty result")
	ctors, err := plans[0].FindConstructors()
	s.Require().NoError(err)
	s.Len(ctors, 1)
	s.Equal(2, cache.Len())
}

func TestFinderSuite(t *testing.T) {
	suite.Run(t, new(FinderTestSuite))
}
