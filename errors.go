package autoreg

import (
	"errors"
	"fmt"
	"reflect"
)

// Error kinds. Every typed error below matches exactly one of them with errors.Is.
var (
	ErrConfigurationConflict = errors.New("configuration conflict")
	ErrStructuralMetadata    = errors.New("structural metadata error")
	ErrPolicyInstantiation   = errors.New("constructor policy instantiation failed")
	ErrNoUsableConstructors  = errors.New("no usable constructors")
	ErrBind                  = errors.New("binder rejected registration")
)

// ConflictError represents a mutually exclusive combination of facts on one type.
type ConflictError struct {
	Type reflect.Type
	Rule string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("configuration conflict on type %s: %s", typeString(e.Type), e.Rule)
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrConfigurationConflict
}

// StructuralError represents a single malformed fact, rejected when it is attached to a type.
type StructuralError struct {
	Type reflect.Type
	Kind FactKind
	Err  error
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("invalid %s fact on type %s: %v", e.Kind, typeString(e.Type), e.Err)
}

func (e *StructuralError) Unwrap() error {
	return e.Err
}

func (e *StructuralError) Is(target error) bool {
	return target == ErrStructuralMetadata
}

// PolicyInstantiationError represents a constructor finder override that could not be created.
type PolicyInstantiationError struct {
	Type   reflect.Type
	Finder reflect.Type
	Err    error
}

func (e *PolicyInstantiationError) Error() string {
	return fmt.Sprintf("cannot create constructor finder %s for type %s: %v",
		typeString(e.Finder), typeString(e.Type), e.Err)
}

func (e *PolicyInstantiationError) Unwrap() error {
	return e.Err
}

func (e *PolicyInstantiationError) Is(target error) bool {
	return target == ErrPolicyInstantiation
}

// NoConstructorsError represents a type for which the constructor policy found nothing usable.
type NoConstructorsError struct {
	Type reflect.Type
}

func (e *NoConstructorsError) Error() string {
	return fmt.Sprintf("no usable constructors found for type %s", typeString(e.Type))
}

func (e *NoConstructorsError) Is(target error) bool {
	return target == ErrNoUsableConstructors
}

// BindError represents a binder failure while applying a plan.
type BindError struct {
	Type reflect.Type
	Op   string
	Err  error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("%s failed for type %s: %v", e.Op, typeString(e.Type), e.Err)
}

func (e *BindError) Unwrap() error {
	return e.Err
}

func (e *BindError) Is(target error) bool {
	return target == ErrBind
}

// errorReason maps an error to the label used in failure metrics and logs.
func errorReason(err error) string {
	switch {
	case errors.Is(err, ErrConfigurationConflict):
		return "conflict"
	case errors.Is(err, ErrStructuralMetadata):
		return "structural"
	case errors.Is(err, ErrPolicyInstantiation):
		return "policy"
	case errors.Is(err, ErrNoUsableConstructors):
		return "constructors"
	case errors.Is(err, ErrBind):
		return "bind"
	default:
		return "other"
	}
}

func typeString(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}
