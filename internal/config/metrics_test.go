package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMetricDefinition_DefaultsUnitAndDropsUnparseableValue(t *testing.T) {
	def, err := ParseMetricDefinition(map[string]interface{}{
		"Namespace": "LogShuttle",
		"Metrics": []interface{}{
			map[string]interface{}{"Name": "Errors"},
			map[string]interface{}{"Name": "Latency", "Unit": "Milliseconds", "Value": "12.5"},
		},
	})
	require.NoError(t, err)
	require.Len(t, def.Metrics, 2)
	assert.Equal(t, "None", def.Metrics[0].Unit)
	assert.Nil(t, def.Metrics[0].Value)
	require.NotNil(t, def.Metrics[1].Value)
	assert.Equal(t, 12.5, *def.Metrics[1].Value)
}

func TestParseMetricDefinition_RequiresNamespaceAndMetrics(t *testing.T) {
	_, err := ParseMetricDefinition(map[string]interface{}{"Metrics": []interface{}{map[string]interface{}{"Name": "X"}}})
	assert.Error(t, err)

	_, err = ParseMetricDefinition(map[string]interface{}{"Namespace": "NS"})
	assert.Error(t, err)
}

func TestTree_MetricDefinitions_ParsesEachEntryInOrder(t *testing.T) {
	tree := &Tree{
		Metrics: []map[string]interface{}{
			{"Namespace": "A", "Metrics": []interface{}{map[string]interface{}{"Name": "X"}}},
			{"Namespace": "B", "Metrics": []interface{}{map[string]interface{}{"Name": "Y"}}},
		},
	}

	defs, err := tree.MetricDefinitions()
	require.NoError(t, err)
	require.Len(t, defs, 2)
	assert.Equal(t, "A", defs[0].Namespace)
	assert.Equal(t, "B", defs[1].Namespace)
}

func TestTree_MetricDefinitions_AbortsOnFirstParseError(t *testing.T) {
	tree := &Tree{
		Metrics: []map[string]interface{}{
			{"Namespace": "A", "Metrics": []interface{}{map[string]interface{}{"Name": "X"}}},
			{"Namespace": ""},
		},
	}

	_, err := tree.MetricDefinitions()
	assert.Error(t, err)
}
