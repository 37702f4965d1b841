package mock

import (
	"context"
	"sync"

	"github.com/centraunit/autoreg/intercept"
)

// Trace records interceptor activity in order.
type Trace struct {
	mu      sync.Mutex
	entries []string
}

func (t *Trace) Add(entry string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = append(t.entries, entry)
}

func (t *Trace) Entries() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.entries...)
}

type FirstInterceptor struct {
	Trace *Trace
}

func (i *FirstInterceptor) Intercept(inv intercept.Invocation) {
	i.Trace.Add("first:before")
	inv.Proceed()
	i.Trace.Add("first:after")
}

type SecondInterceptor struct {
	Trace *Trace
}

func (i *SecondInterceptor) Intercept(inv intercept.Invocation) {
	i.Trace.Add("second:before")
	inv.Proceed()
	i.Trace.Add("second:after")
}

// AsyncInterceptor proceeds from another goroutine and reports completion on a channel.
type AsyncInterceptor struct {
	Trace *Trace
}

func (i *AsyncInterceptor) InterceptAsync(inv intercept.Invocation, proceed intercept.ProceedFunc) <-chan error {
	done := make(chan error, 1)
	go func() {
		defer close(done)
		i.Trace.Add("async:before")
		err := <-proceed()
		i.Trace.Add("async:after")
		done <- err
	}()
	return done
}

// NotAnInterceptor has an Intercept method with the wrong signature.
type NotAnInterceptor struct{}

func (NotAnInterceptor) Intercept() {}

// NotifierProxy routes Notifier calls through an interceptor chain.
type NotifierProxy struct {
	Target Notifier
	Chain  []intercept.Interceptor
}

// NewNotifierProxy is a container.ProxyFactory for Notifier.
func NewNotifierProxy(target any, chain []intercept.Interceptor) (any, error) {
	return &NotifierProxy{Target: target.(Notifier), Chain: chain}, nil
}

func (p *NotifierProxy) Notify(msg string) error {
	_, err := intercept.Invoke(context.Background(), p.Target, "Notify", []any{msg},
		func(ctx context.Context, args []any) ([]any, error) {
			return nil, p.Target.Notify(args[0].(string))
		}, p.Chain...)
	return err
}

// NewAuditServiceProxy proxies the concrete *AuditService. The proxy shares the
// target's id and carries the chain it was built with.
func NewAuditServiceProxy(target any, chain []intercept.Interceptor) (any, error) {
	inner := target.(*AuditService)
	return &AuditService{ID: inner.ID, Chain: chain}, nil
}
