package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cloudshuttle/logshuttle/internal/agenterrors"
	"github.com/cloudshuttle/logshuttle/internal/emf"
)

// MetricSpec is one {Name, Unit?, Value?} entry under a metric definition's
// Metrics array.
type MetricSpec struct {
	Name  string
	Unit  string
	Value *float64
}

// MetricDefinition is a "metric definition section": Namespace, Metrics and
// Dimensions groups.
//
// The original behavior resolved an empty first Dimensions entry via a
// path-suffix heuristic on the configuration source. IncludeNoDimensionsTuple
// replaces that heuristic with an explicit flag: set it true in
// configuration to opt into the "no-dimensions" tuple rather than inferring
// it from an empty array entry.
type MetricDefinition struct {
	Namespace                string
	Metrics                  []MetricSpec
	Dimensions               [][]string
	IncludeNoDimensionsTuple bool
}

// ParseMetricDefinition builds a MetricDefinition from a decoded YAML map:
// Unit defaults to "None", and a non-parseable Value is dropped rather than
// rejected.
func ParseMetricDefinition(raw map[string]interface{}) (*MetricDefinition, error) {
	ns, _ := raw["Namespace"].(string)
	ns = strings.TrimSpace(ns)
	if ns == "" {
		return nil, agenterrors.Configuration("metric definition requires a non-empty Namespace", nil)
	}

	rawMetrics, _ := raw["Metrics"].([]interface{})
	if len(rawMetrics) == 0 {
		return nil, agenterrors.Configuration(fmt.Sprintf("metric definition %q requires a non-empty Metrics array", ns), nil)
	}

	def := &MetricDefinition{Namespace: ns}
	for _, item := range rawMetrics {
		m, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		name, _ := m["Name"].(string)
		if strings.TrimSpace(name) == "" {
			continue
		}
		unit, _ := m["Unit"].(string)
		if strings.TrimSpace(unit) == "" {
			unit = "None"
		}
		spec := MetricSpec{Name: name, Unit: unit}
		if v, ok := parseMetricValue(m["Value"]); ok {
			spec.Value = &v
		}
		def.Metrics = append(def.Metrics, spec)
	}

	if rawDims, ok := raw["Dimensions"].([]interface{}); ok {
		for _, group := range rawDims {
			names, ok := group.([]interface{})
			if !ok {
				continue
			}
			var strs []string
			for _, n := range names {
				if s, ok := n.(string); ok {
					strs = append(strs, s)
				}
			}
			def.Dimensions = append(def.Dimensions, strs)
		}
	}

	if v, ok := raw["IncludeNoDimensionsTuple"].(bool); ok {
		def.IncludeNoDimensionsTuple = v
	}

	return def, nil
}

func parseMetricValue(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// Apply emits this definition's metrics into scope, honoring each metric's
// own Value when present and IncludeNoDimensionsTuple to add the
// zero-dimension group alongside any named groups.
func (d *MetricDefinition) Apply(scope *emf.MetricScope) {
	groups := append([][]string(nil), d.Dimensions...)
	if d.IncludeNoDimensionsTuple {
		groups = append(groups, []string{})
	}
	if len(groups) == 0 {
		groups = [][]string{{}}
	}

	for _, m := range d.Metrics {
		value := 0.0
		if m.Value != nil {
			value = *m.Value
		}
		scope.AddCloudWatchMetricWithGroups(d.Namespace, m.Name, value, m.Unit, groups)
	}
}
