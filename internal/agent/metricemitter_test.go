package agent

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/cloudshuttle/logshuttle/internal/config"
)

func TestMetricEmitter_EmitWritesEMFLine(t *testing.T) {
	def, err := config.ParseMetricDefinition(map[string]interface{}{
		"Namespace": "LogShuttle",
		"Metrics": []interface{}{
			map[string]interface{}{"Name": "RecordsShipped", "Unit": "Count", "Value": 5},
		},
		"Dimensions": []interface{}{
			[]interface{}{"Pipe"},
		},
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	e := &MetricEmitter{Definitions: []*config.MetricDefinition{def}, Out: &buf}
	e.Emit()

	require.NotZero(t, buf.Len())
	parsed := gjson.ParseBytes(bytes.TrimSpace(buf.Bytes()))
	assert.Equal(t, "LogShuttle", parsed.Get("CloudWatchMetrics.0.Namespace").String())
	assert.Equal(t, "RecordsShipped", parsed.Get("CloudWatchMetrics.0.Metrics.0.Name").String())
	assert.Equal(t, float64(5), parsed.Get("RecordsShipped").Float())
}

func TestMetricEmitter_EmitWithNoDefinitionsWritesNothing(t *testing.T) {
	var buf bytes.Buffer
	e := &MetricEmitter{Out: &buf}
	e.Emit()
	assert.Zero(t, buf.Len())
}
