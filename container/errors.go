package container

import (
	"errors"
	"fmt"
	"strings"
)

// ErrScopeClosed is returned when resolving from a scope that has been closed.
var ErrScopeClosed = errors.New("scope is closed")

var errNoSatisfiableConstructor = errors.New("no constructor has all of its parameters registered")

// CircularDependencyError represents a circular dependency detection error.
type CircularDependencyError struct {
	Type  string
	Chain []string
}

func (e *CircularDependencyError) Error() string {
	if len(e.Chain) == 0 {
		return fmt.Sprintf("circular dependency detected for type: %s", e.Type)
	}
	return fmt.Sprintf("circular dependency detected for type: %s (%s -> %s)", e.Type, strings.Join(e.Chain, " -> "), e.Type)
}

// BindingNotFoundError represents a missing binding error.
type BindingNotFoundError struct {
	Type string
}

func (e *BindingNotFoundError) Error() string {
	return fmt.Sprintf("no binding found for type: %s", e.Type)
}

// InitializationError represents a service initialization failure.
type InitializationError struct {
	Type string
	Err  error
}

func (e *InitializationError) Error() string {
	return fmt.Sprintf("initialization failed for type %s: %v", e.Type, e.Err)
}

func (e *InitializationError) Unwrap() error {
	return e.Err
}

// TypeMismatchError represents a type assertion failure.
type TypeMismatchError struct {
	Expected string
	Got      string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("type mismatch: expected %s, got %s", e.Expected, e.Got)
}

// ScopeNotFoundError is returned when no enclosing scope can own an instance
// of a per-request, per-matching-scope or per-owned registration.
type ScopeNotFoundError struct {
	Type     string
	Lifetime string
}

func (e *ScopeNotFoundError) Error() string {
	return fmt.Sprintf("no enclosing scope for %s instance of type %s", e.Lifetime, e.Type)
}

// MissingProxyError is returned when an intercepted exposure has no proxy factory.
type MissingProxyError struct {
	Type string
}

func (e *MissingProxyError) Error() string {
	return fmt.Sprintf("no proxy factory registered for intercepted type: %s", e.Type)
}

// ShutdownError represents a service shutdown failure.
type ShutdownError struct {
	Type string
	Err  error
}

func (e *ShutdownError) Error() string {
	return fmt.Sprintf("shutdown failed for type %s: %v", e.Type, e.Err)
}

func (e *ShutdownError) Unwrap() error {
	return e.Err
}
