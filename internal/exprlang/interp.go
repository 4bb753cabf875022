package exprlang

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/sirupsen/logrus"
)

// GlobalResolver looks up a global (pipeline-wide) variable by name.
type GlobalResolver func(name string) (string, bool)

// LocalResolver looks up a per-record local variable, given the record being
// evaluated.
type LocalResolver[T any] func(name string, record T) (any, bool)

// EvaluationContext carries everything needed to evaluate an expression tree
// against one record: the variable resolvers, an ephemeral per-evaluation
// variable map, the function binder, and an optional logger for
// null-propagation warnings.
type EvaluationContext[T any] struct {
	Global GlobalResolver
	Local  LocalResolver[T]
	Vars   map[string]any
	Binder *Binder
	Log    *logrus.Entry
}

// NewEvaluationContext constructs a context with an empty ephemeral variable
// map, ready for one evaluation pass.
func NewEvaluationContext[T any](global GlobalResolver, local LocalResolver[T], binder *Binder, log *logrus.Entry) *EvaluationContext[T] {
	return &EvaluationContext[T]{Global: global, Local: local, Vars: map[string]any{}, Binder: binder, Log: log}
}

// Reset clears the ephemeral variable map between records; callers are
// expected to call this between every record evaluated against the context.
func (c *EvaluationContext[T]) Reset() {
	c.Vars = map[string]any{}
}

func isLocalName(name string) bool {
	if name == "" {
		return false
	}
	if name[0] == '$' || name[0] == '_' {
		return true
	}
	return strings.EqualFold(name, "timestamp")
}

// Evaluate performs a post-order evaluation of node against record.
func Evaluate[T any](ctx *EvaluationContext[T], node Node, record T) (any, error) {
	switch n := node.(type) {
	case *LiteralNode:
		return n.Value, nil

	case *IdentifierNode:
		if ephemeral, ok := ctx.Vars[n.Name]; ok {
			return ephemeral, nil
		}
		if isLocalName(n.Name) {
			if v, ok := ctx.Local(n.Name, record); ok {
				return v, nil
			}
			return nil, nil
		}
		if v, ok := ctx.Global(n.Name); ok {
			return v, nil
		}
		return nil, nil

	case *InvocationNode:
		return evaluateInvocation(ctx, n, record)

	case *NodeList:
		var b strings.Builder
		for _, item := range n.Items {
			v, err := Evaluate(ctx, item, record)
			if err != nil {
				return nil, err
			}
			b.WriteString(stringify(v))
		}
		return b.String(), nil

	default:
		return nil, fmt.Errorf("exprlang: unknown node type %T", node)
	}
}

func evaluateInvocation[T any](ctx *EvaluationContext[T], n *InvocationNode, record T) (any, error) {
	args := make([]any, len(n.Args))
	argTypes := make([]reflect.Type, len(n.Args))
	anyNull := false
	for i, argNode := range n.Args {
		v, err := Evaluate(ctx, argNode, record)
		if err != nil {
			return nil, err
		}
		args[i] = v
		if v == nil {
			argTypes[i] = AnyType
			anyNull = true
		} else {
			argTypes[i] = reflect.TypeOf(v)
		}
	}

	candidate, err := ctx.Binder.Resolve(n.Name, argTypes)
	if err != nil || candidate == nil {
		if anyNull {
			return nil, nil
		}
		if ctx.Log != nil {
			ctx.Log.WithField("function", n.Name).Warn("function binder could not resolve invocation; yielding null")
		}
		return nil, nil
	}

	return candidate.Invoke(args)
}

func stringify(v any) string {
	if v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprintf("%v", t)
	}
}
