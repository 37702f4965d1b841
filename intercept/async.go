package intercept

// AsyncAdapter lets an AsyncInterceptor take part in a synchronous interceptor chain.
// It only adapts the calling convention: the wrapped interceptor still decides
// when the call proceeds, and Intercept returns once it reports completion.
type AsyncAdapter struct {
	async AsyncInterceptor
}

var _ Interceptor = (*AsyncAdapter)(nil)

// Adapt wraps an asynchronous interceptor.
func Adapt(async AsyncInterceptor) *AsyncAdapter {
	return &AsyncAdapter{async: async}
}

// Unwrap returns the wrapped asynchronous interceptor.
func (a *AsyncAdapter) Unwrap() AsyncInterceptor {
	return a.async
}

// Intercept runs the wrapped interceptor and blocks until its completion channel
// delivers a value or is closed.
func (a *AsyncAdapter) Intercept(inv Invocation) {
	done := a.async.InterceptAsync(inv, func() <-chan error {
		ch := make(chan error, 1)
		inv.Proceed()
		ch <- inv.Err()
		close(ch)
		return ch
	})
	if done == nil {
		return
	}
	if err := <-done; err != nil {
		inv.SetErr(err)
	}
}
