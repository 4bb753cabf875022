package config

import (
	"fmt"
	"strings"
	"sync"

	"github.com/cloudshuttle/logshuttle/internal/agenterrors"
)

// Factory builds one instance of T from its configuration Section.
type Factory[T any] func(Section) (T, error)

// Catalog is a case-insensitive type-tag registry: it is how Sources, Sinks
// and Credentials sections in the configuration tree are bound to concrete
// constructors. Unknown tags fail startup rather than silently no-op.
type Catalog[T any] struct {
	mu        sync.RWMutex
	factories map[string]Factory[T]
}

func NewCatalog[T any]() *Catalog[T] {
	return &Catalog[T]{factories: map[string]Factory[T]{}}
}

// Register binds a type tag to a factory. Tags are matched
// case-insensitively at Create time.
func (c *Catalog[T]) Register(tag string, f Factory[T]) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.factories[strings.ToLower(tag)] = f
}

// Create looks up sec.Type case-insensitively and invokes its factory. An
// unregistered tag is a Configuration error: configuration problems fail
// startup fast rather than surfacing later as a runtime error.
func (c *Catalog[T]) Create(sec Section) (T, error) {
	var zero T
	c.mu.RLock()
	f, ok := c.factories[strings.ToLower(sec.Type)]
	c.mu.RUnlock()
	if !ok {
		return zero, agenterrors.Configuration(fmt.Sprintf("unknown type %q for entry %q", sec.Type, sec.ID), nil)
	}
	v, err := f(sec)
	if err != nil {
		return zero, agenterrors.Configuration(fmt.Sprintf("failed to construct %q (%s)", sec.ID, sec.Type), err)
	}
	return v, nil
}
