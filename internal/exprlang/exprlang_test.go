package exprlang

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTemplate_LiteralAndInterpolation(t *testing.T) {
	nl, err := ParseTemplate("host=${hostname} static")
	require.NoError(t, err)
	require.Len(t, nl.Items, 2)

	ident, ok := nl.Items[0].(*IdentifierNode)
	require.True(t, ok)
	assert.Equal(t, "hostname", ident.Name)

	lit, ok := nl.Items[1].(*LiteralNode)
	require.True(t, ok)
	assert.Equal(t, " static", lit.Value)
}

func TestParseExpression_QuotedIdentifierUnescapes(t *testing.T) {
	node, err := ParseExpression(`[Some \[Field\]]`)
	require.NoError(t, err)
	ident := node.(*IdentifierNode)
	assert.Equal(t, "Some [Field]", ident.Name)
}

func TestParseExpression_Invocation(t *testing.T) {
	node, err := ParseExpression(`upper(name, 2)`)
	require.NoError(t, err)
	inv := node.(*InvocationNode)
	assert.Equal(t, "upper", inv.Name)
	assert.Len(t, inv.Args, 2)
}

func TestBinder_ExactMatchBeatsAssignable(t *testing.T) {
	b := NewBinder()
	var assignableCalled, exactCalled bool
	b.Register(Candidate{
		Name:       "f",
		ParamTypes: []reflect.Type{AnyType},
		Invoke: func(args []any) (any, error) {
			assignableCalled = true
			return "any", nil
		},
	})
	b.Register(Candidate{
		Name:       "f",
		ParamTypes: []reflect.Type{reflect.TypeOf("")},
		Invoke: func(args []any) (any, error) {
			exactCalled = true
			return "exact", nil
		},
	})

	candidate, err := b.Resolve("f", []reflect.Type{reflect.TypeOf("")})
	require.NoError(t, err)
	require.NotNil(t, candidate)
	result, err := candidate.Invoke([]any{"x"})
	require.NoError(t, err)
	assert.Equal(t, "exact", result)
	assert.True(t, exactCalled)
	assert.False(t, assignableCalled)
}

func TestBinder_UnknownNameRaisesArgumentError(t *testing.T) {
	b := NewBinder()
	_, err := b.Resolve("missing", []reflect.Type{reflect.TypeOf(1)})
	require.Error(t, err)
	var argErr *ArgumentError
	assert.ErrorAs(t, err, &argErr)
}

func TestBinder_NoMatchReturnsNilCandidate(t *testing.T) {
	b := NewBinder()
	b.Register(Candidate{
		Name:       "f",
		ParamTypes: []reflect.Type{reflect.TypeOf(1)},
		Invoke:     func(args []any) (any, error) { return nil, nil },
	})
	candidate, err := b.Resolve("f", []reflect.Type{reflect.TypeOf("string-arg")})
	require.NoError(t, err)
	assert.Nil(t, candidate)
}

func TestEvaluate_NullArgumentPropagatesSilently(t *testing.T) {
	b := NewBinder()
	b.Register(Candidate{
		Name:       "f",
		ParamTypes: []reflect.Type{reflect.TypeOf(1)},
		Invoke:     func(args []any) (any, error) { return "should not run", nil },
	})

	ctx := NewEvaluationContext[map[string]any](
		func(name string) (string, bool) { return "", false },
		func(name string, record map[string]any) (any, bool) { return nil, false },
		b, nil,
	)

	node, err := ParseExpression("f(missingvar)")
	require.NoError(t, err)
	result, err := Evaluate(ctx, node, map[string]any{})
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestEvaluate_UnresolvedNonNullYieldsNullWithoutError(t *testing.T) {
	b := NewBinder()
	ctx := NewEvaluationContext[map[string]any](
		func(name string) (string, bool) { return "", false },
		func(name string, record map[string]any) (any, bool) { return nil, false },
		b, nil,
	)

	node, err := ParseExpression(`unknownFn("x")`)
	require.NoError(t, err)
	result, err := Evaluate(ctx, node, map[string]any{})
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestEvaluate_LocalVsGlobalIdentifierResolution(t *testing.T) {
	b := NewBinder()
	ctx := NewEvaluationContext[map[string]any](
		func(name string) (string, bool) {
			if name == "env" {
				return "prod", true
			}
			return "", false
		},
		func(name string, record map[string]any) (any, bool) {
			if name == "$field" {
				return record["$field"], true
			}
			return nil, false
		},
		b, nil,
	)

	record := map[string]any{"$field": "local-value"}

	localNode := &IdentifierNode{Name: "$field"}
	v, err := Evaluate(ctx, localNode, record)
	require.NoError(t, err)
	assert.Equal(t, "local-value", v)

	globalNode := &IdentifierNode{Name: "env"}
	v, err = Evaluate(ctx, globalNode, record)
	require.NoError(t, err)
	assert.Equal(t, "prod", v)
}
