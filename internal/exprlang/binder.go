package exprlang

import (
	"fmt"
	"reflect"
)

// AnyType is the runtime type vector placeholder substituted for a null
// argument.
var AnyType = reflect.TypeOf((*any)(nil)).Elem()

// ArgumentError is raised when a function binder lookup finds no candidate
// with matching name and arity at all.
type ArgumentError struct {
	Name  string
	Arity int
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("exprlang: no function named %q with %d argument(s)", e.Name, e.Arity)
}

// Candidate is one registered overload: its declared parameter types and the
// callable itself.
type Candidate struct {
	Name       string
	ParamTypes []reflect.Type
	Invoke     func(args []any) (any, error)
}

// Binder resolves (name, argument-type-vector) to a callable, preferring
// exact-match over assignable-match, in registration order within each tier.
type Binder struct {
	byKey map[string][]Candidate
}

func NewBinder() *Binder {
	return &Binder{byKey: map[string][]Candidate{}}
}

func key(name string, arity int) string {
	return fmt.Sprintf("%s/%d", name, arity)
}

// Register adds a candidate overload. Later registrations for the same
// (name, arity) are appended after earlier ones, preserving resolution
// order.
func (b *Binder) Register(c Candidate) {
	k := key(c.Name, len(c.ParamTypes))
	b.byKey[k] = append(b.byKey[k], c)
}

// Resolve gathers same-name-and-arity candidates in registration order;
// exact-match beats assignable-match; otherwise return
// (nil, false) — the "null sentinel" for unresolved, as opposed to
// ArgumentError for zero candidates entirely.
func (b *Binder) Resolve(name string, argTypes []reflect.Type) (*Candidate, error) {
	candidates := b.byKey[key(name, len(argTypes))]
	if len(candidates) == 0 {
		return nil, &ArgumentError{Name: name, Arity: len(argTypes)}
	}

	for i := range candidates {
		if paramsExactMatch(candidates[i].ParamTypes, argTypes) {
			return &candidates[i], nil
		}
	}
	for i := range candidates {
		if paramsAssignableMatch(candidates[i].ParamTypes, argTypes) {
			return &candidates[i], nil
		}
	}
	return nil, nil
}

func paramsExactMatch(params, args []reflect.Type) bool {
	for i := range params {
		if params[i] != args[i] {
			return false
		}
	}
	return true
}

func paramsAssignableMatch(params, args []reflect.Type) bool {
	for i := range params {
		if !args[i].AssignableTo(params[i]) {
			return false
		}
	}
	return true
}
