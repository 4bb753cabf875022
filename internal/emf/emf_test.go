package emf

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestMetricScope_SerializesExpectedEnvelope(t *testing.T) {
	scope := NewMetricScope()
	scope.AddCloudWatchMetric("NS", "Errors", 1, "Count", map[string]string{"Env": "Prod"})

	raw, err := json.Marshal(scope)
	require.NoError(t, err)

	parsed := gjson.ParseBytes(raw)
	assert.Equal(t, scope.EpochMillis(), parsed.Get("Timestamp").Int())
	assert.Equal(t, "NS", parsed.Get("CloudWatchMetrics.0.Namespace").String())
	assert.Equal(t, "Env", parsed.Get("CloudWatchMetrics.0.Dimensions.0.0").String())
	assert.Equal(t, "Errors", parsed.Get("CloudWatchMetrics.0.Metrics.0.Name").String())
	assert.Equal(t, "Count", parsed.Get("CloudWatchMetrics.0.Metrics.0.Unit").String())
	assert.Equal(t, "Prod", parsed.Get("Env").String())
	assert.Equal(t, float64(1), parsed.Get("Errors").Float())
}

func TestMetricScope_FirstWriteWinsOnDuplicateKeys(t *testing.T) {
	scope := NewMetricScope()
	scope.AddCloudWatchMetric("NS", "Errors", 1, "Count", map[string]string{"Env": "Prod"})
	scope.AddCloudWatchMetric("NS", "Errors", 99, "Count", map[string]string{"Env": "Staging"})

	assert.Equal(t, float64(1), scope.MetricValues["Errors"])
	assert.Equal(t, "Prod", scope.DimensionValues["Env"])
}

func TestCloudWatchMetric_DedupesDimensionGroups(t *testing.T) {
	scope := NewMetricScope()
	scope.AddCloudWatchMetricWithGroups("NS", "Latency", 12, "Milliseconds", [][]string{
		{"Env", "Region"},
		{"Env", "Region"},
	})

	cw := scope.byNamespace["NS"]
	assert.Len(t, cw.dimensionGroups(), 1)
	assert.ElementsMatch(t, []string{"Env", "Region"}, cw.UniqueDimensions())
}

func TestMetricScope_DimensionGroupsSortedByName(t *testing.T) {
	scope := NewMetricScope()
	scope.AddCloudWatchMetricWithGroups("NS", "Latency", 12, "ms", [][]string{
		{"Zone"},
		{"Alpha"},
	})

	raw, err := json.Marshal(scope)
	require.NoError(t, err)
	parsed := gjson.ParseBytes(raw)
	assert.Equal(t, "Alpha", parsed.Get("CloudWatchMetrics.0.Dimensions.0.0").String())
	assert.Equal(t, "Zone", parsed.Get("CloudWatchMetrics.0.Dimensions.1.0").String())
}
