package autoreg_test

import (
	"errors"
	"reflect"
	"sync"

	"github.com/centraunit/autoreg"
	"github.com/centraunit/autoreg/mock"
)

var (
	repositoryType    = reflect.TypeFor[mock.Repository]()
	notifierType      = reflect.TypeFor[mock.Notifier]()
	auditorType       = reflect.TypeFor[mock.Auditor]()
	memoryRepoType    = reflect.TypeFor[*mock.MemoryRepository]()
	emailNotifierType = reflect.TypeFor[*mock.EmailNotifier]()
	auditServiceType  = reflect.TypeFor[*mock.AuditService]()
	plainType         = reflect.TypeFor[*mock.Plain]()
	boxType           = reflect.TypeFor[*mock.Box[string]]()
	sessionType       = reflect.TypeFor[*mock.Session]()
	unitOfWorkType    = reflect.TypeFor[*mock.UnitOfWork]()
	firstType         = reflect.TypeFor[*mock.FirstInterceptor]()
	secondType        = reflect.TypeFor[*mock.SecondInterceptor]()
	asyncType         = reflect.TypeFor[*mock.AsyncInterceptor]()
)

// newUniverse declares every fixture in a fixed order.
func newUniverse() *autoreg.Universe {
	return autoreg.NewUniverse().
		Interface(repositoryType).
		Interface(notifierType).
		Interface(auditorType).
		Type(memoryRepoType, mock.NewMemoryRepository).
		Type(emailNotifierType, mock.NewEmailNotifier, mock.NewStandaloneEmailNotifier).
		Type(auditServiceType, mock.NewAuditService).
		Type(plainType, mock.NewPlain).
		Type(sessionType, mock.NewSession).
		Type(unitOfWorkType, mock.NewUnitOfWork).
		Generic(boxType, mock.NewBox[string])
}

type recordedHandle struct {
	t reflect.Type
}

func (h recordedHandle) Type() reflect.Type { return h.t }

// recordingBinder records every call the engine makes across the binder boundary.
type recordingBinder struct {
	mu           sync.Mutex
	calls        []string
	attached     []string
	interceptors []reflect.Type
	failOn       reflect.Type
}

var errBinderRejected = errors.New("rejected by binder")

func (b *recordingBinder) RegisterConcrete(p *autoreg.Plan) (autoreg.Handle, error) {
	return b.record("concrete", p)
}

func (b *recordingBinder) RegisterGeneric(p *autoreg.Plan) (autoreg.Handle, error) {
	return b.record("generic", p)
}

func (b *recordingBinder) record(kind string, p *autoreg.Plan) (autoreg.Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if p.Type == b.failOn {
		return nil, errBinderRejected
	}
	b.calls = append(b.calls, kind+":"+p.Type.String())
	return recordedHandle{t: p.Type}, nil
}

func (b *recordingBinder) AttachInterceptor(h autoreg.Handle, interceptor reflect.Type, async bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	entry := h.Type().String() + "<-" + interceptor.String()
	if async {
		entry += "(async)"
	}
	b.attached = append(b.attached, entry)
	return nil
}

func (b *recordingBinder) RegisterInterceptor(t reflect.Type, factory autoreg.InterceptorFactory) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.interceptors = append(b.interceptors, t)
	return nil
}

// bareBinder binds plans but cannot attach interceptors or take factories.
type bareBinder struct {
	rec *recordingBinder
}

func (b bareBinder) RegisterConcrete(p *autoreg.Plan) (autoreg.Handle, error) {
	return b.rec.RegisterConcrete(p)
}

func (b bareBinder) RegisterGeneric(p *autoreg.Plan) (autoreg.Handle, error) {
	return b.rec.RegisterGeneric(p)
}
