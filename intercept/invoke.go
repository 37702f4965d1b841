package intercept

import "context"

// CallFunc performs the intercepted call itself once every interceptor has proceeded.
type CallFunc func(ctx context.Context, args []any) ([]any, error)

// Invoke runs chain around call and returns what the outermost interceptor leaves
// on the invocation. Interceptors run in chain order; nil entries are skipped.
func Invoke(ctx context.Context, target any, method string, args []any, call CallFunc, chain ...Interceptor) ([]any, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	inv := &invocation{
		ctx:    ctx,
		target: target,
		method: method,
		args:   args,
		call:   call,
		chain:  compact(chain),
	}
	inv.Proceed()
	return inv.results, inv.err
}

type invocation struct {
	ctx     context.Context
	target  any
	method  string
	args    []any
	results []any
	err     error
	call    CallFunc
	chain   []Interceptor
	pos     int
}

func (i *invocation) Context() context.Context { return i.ctx }
func (i *invocation) Target() any              { return i.target }
func (i *invocation) Method() string           { return i.method }
func (i *invocation) Arguments() []any         { return i.args }
func (i *invocation) ReturnValues() []any      { return i.results }
func (i *invocation) Err() error               { return i.err }

func (i *invocation) SetReturnValues(values ...any) {
	i.results = values
}

func (i *invocation) SetErr(err error) {
	i.err = err
}

// Proceed advances to the next interceptor. The position is restored on return
// so an interceptor may proceed more than once (retries).
func (i *invocation) Proceed() {
	if i.pos < len(i.chain) {
		cur := i.pos
		i.pos++
		defer func() { i.pos = cur }()
		i.chain[cur].Intercept(i)
		return
	}
	if i.call == nil {
		return
	}
	i.results, i.err = i.call(i.ctx, i.args)
}

func compact(chain []Interceptor) []Interceptor {
	out := make([]Interceptor, 0, len(chain))
	for _, ic := range chain {
		if ic != nil {
			out = append(out, ic)
		}
	}
	return out
}
