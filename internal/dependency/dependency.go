// Package dependency implements the Dependency model, the network-status
// aggregator, and concrete OS-level availability providers.
package dependency

import (
	"context"
)

// Dependency is a named predicate with a disposable lifetime.
// IsDependencyAvailable must be idempotent and side-effect-free from the
// caller's perspective.
type Dependency interface {
	Name() string
	IsDependencyAvailable(ctx context.Context) (bool, error)
	Close() error
}

// noopCloser can be embedded by providers with nothing to release.
type noopCloser struct{}

func (noopCloser) Close() error { return nil }

// Aggregate composes several dependencies by unanimous AND: available only
// when every member reports available. The first error encountered short
// circuits and is returned, matching "on exception, treat the dependency as
// unavailable" from the source runtime above it.
type Aggregate struct {
	noopCloser
	name  string
	parts []Dependency
}

func NewAggregate(name string, parts ...Dependency) *Aggregate {
	return &Aggregate{name: name, parts: parts}
}

func (a *Aggregate) Name() string { return a.name }

func (a *Aggregate) IsDependencyAvailable(ctx context.Context) (bool, error) {
	for _, part := range a.parts {
		ok, err := part.IsDependencyAvailable(ctx)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func (a *Aggregate) Close() error {
	var firstErr error
	for _, part := range a.parts {
		if err := part.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
