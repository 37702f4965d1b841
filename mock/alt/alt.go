// Package mock under mock/alt shares its package name with the main fixtures so
// that same-named types of different packages can be declared side by side.
package mock

// Notifier has the same short name and method set as the main fixture's Notifier.
type Notifier interface {
	Notify(msg string) error
}

// Pager is a candidate type implementing Notifier.
type Pager struct{}

func NewPager() *Pager {
	return &Pager{}
}

func (p *Pager) Notify(msg string) error { return nil }
