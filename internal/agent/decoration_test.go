package agent

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudshuttle/logshuttle/internal/exprlang"
)

func TestDecorator_AppliesTemplateAndPreservesExistingFields(t *testing.T) {
	dec, err := exprlang.ParseDecoration(
		[]string{"Environment", "Greeting"},
		map[string]string{
			"Environment": "${env}",
			"Greeting":    "hello ${name}",
		},
	)
	require.NoError(t, err)

	d := newDecorator(dec, map[string]string{"env": "prod"}, nil)

	out := d.apply([]byte(`{"name":"world","existing":1}`))

	var record map[string]any
	require.NoError(t, json.Unmarshal(out, &record))
	assert.Equal(t, "prod", record["Environment"])
	assert.Equal(t, "hello world", record["Greeting"])
	assert.Equal(t, float64(1), record["existing"])
}

func TestDecorator_NilDecorationPassesThroughUnmodified(t *testing.T) {
	d := newDecorator(nil, nil, nil)
	raw := []byte(`{"name":"world"}`)
	assert.Equal(t, raw, d.apply(raw))
}

func TestDecorator_NonJSONRecordPassesThroughUnmodified(t *testing.T) {
	dec, err := exprlang.ParseDecoration([]string{"X"}, map[string]string{"X": "${y}"})
	require.NoError(t, err)

	d := newDecorator(dec, nil, nil)
	raw := []byte("not json")
	assert.Equal(t, raw, d.apply(raw))
}

func TestDefaultBinder_UpperLowerConcatCoalesce(t *testing.T) {
	b := defaultBinder()

	candidate, err := b.Resolve("upper", []reflect.Type{reflect.TypeOf("")})
	require.NoError(t, err)
	require.NotNil(t, candidate)
	result, err := candidate.Invoke([]any{"abc"})
	require.NoError(t, err)
	assert.Equal(t, "ABC", result)
}
