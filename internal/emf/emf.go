// Package emf implements the CloudWatch embedded-metric-format scope and its
// exact wire serialization.
package emf

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MetricValue is a single metric declaration within a CloudWatchMetric.
type MetricValue struct {
	Name    string
	Unit    string
	Default *float64
}

// CloudWatchMetric groups metric declarations and the dimension groups they
// are reported against, scoped to one namespace.
type CloudWatchMetric struct {
	Namespace string

	mu      sync.Mutex
	groups  [][]string
	metrics []MetricValue

	uniqueCache []string
	uniqueValid bool
}

func newCloudWatchMetric(namespace string) *CloudWatchMetric {
	return &CloudWatchMetric{Namespace: namespace}
}

// AddDimensionGroup adds an ordered tuple of dimension names, de-duplicating
// by exact ordered content.
func (m *CloudWatchMetric) AddDimensionGroup(group []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.groups {
		if sameGroup(existing, group) {
			return
		}
	}
	cp := append([]string(nil), group...)
	m.groups = append(m.groups, cp)
	m.uniqueValid = false
}

func sameGroup(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (m *CloudWatchMetric) addMetric(name, unit string, def *float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.metrics {
		if existing.Name == name {
			return
		}
	}
	m.metrics = append(m.metrics, MetricValue{Name: name, Unit: unit, Default: def})
}

// UniqueDimensions returns the union of all dimension names referenced by any
// group, computed lazily and cached until the groups next mutate.
func (m *CloudWatchMetric) UniqueDimensions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.uniqueValid {
		return m.uniqueCache
	}
	seen := map[string]struct{}{}
	var out []string
	for _, group := range m.groups {
		for _, name := range group {
			if _, ok := seen[name]; !ok {
				seen[name] = struct{}{}
				out = append(out, name)
			}
		}
	}
	m.uniqueCache = out
	m.uniqueValid = true
	return out
}

func (m *CloudWatchMetric) dimensionGroups() [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	sorted := append([][]string(nil), m.groups...)
	sort.Slice(sorted, func(i, j int) bool {
		return groupKey(sorted[i]) < groupKey(sorted[j])
	})
	return sorted
}

func groupKey(g []string) string {
	var b bytes.Buffer
	for _, s := range g {
		b.WriteString(s)
		b.WriteByte(0)
	}
	return b.String()
}

func (m *CloudWatchMetric) metricValues() []MetricValue {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MetricValue(nil), m.metrics...)
}

// MetricScope accumulates metrics, dimensions and properties for a single
// emission and serializes to the EMF JSON envelope.
type MetricScope struct {
	mu sync.Mutex

	Timestamp time.Time
	Version   string

	namespaceOrder []string
	byNamespace    map[string]*CloudWatchMetric

	DimensionValues map[string]any
	MetricValues    map[string]float64
	Properties      map[string]any
}

// NewMetricScope creates an empty scope stamped with the current UTC time.
func NewMetricScope() *MetricScope {
	return &MetricScope{
		Timestamp:       time.Now().UTC(),
		Version:         "0",
		byNamespace:     map[string]*CloudWatchMetric{},
		DimensionValues: map[string]any{},
		MetricValues:    map[string]float64{},
		Properties:      map[string]any{},
	}
}

// EpochMillis returns the scope's timestamp as Unix epoch milliseconds.
func (s *MetricScope) EpochMillis() int64 {
	return s.Timestamp.UnixMilli()
}

func (s *MetricScope) metricFor(namespace string) *CloudWatchMetric {
	if cw, ok := s.byNamespace[namespace]; ok {
		return cw
	}
	cw := newCloudWatchMetric(namespace)
	s.byNamespace[namespace] = cw
	s.namespaceOrder = append(s.namespaceOrder, namespace)
	return cw
}

// AddCloudWatchMetric adds a metric under a single dimension-name tuple.
// Scope-level dimension/metric values are first-write-wins; later writes to
// the same key are ignored.
func (s *MetricScope) AddCloudWatchMetric(namespace, name string, value float64, unit string, dimensions map[string]string) {
	names := make([]string, 0, len(dimensions))
	for k, v := range dimensions {
		names = append(names, k)
		s.setDimensionValue(k, v)
	}
	sort.Strings(names)
	s.addMetricCommon(namespace, name, value, unit, [][]string{names})
}

// AddCloudWatchMetricWithGroups adds a metric against explicit dimension
// groups, with dimension values supplied out of band via SetDimensionValue.
func (s *MetricScope) AddCloudWatchMetricWithGroups(namespace, name string, value float64, unit string, groups [][]string) {
	s.addMetricCommon(namespace, name, value, unit, groups)
}

func (s *MetricScope) addMetricCommon(namespace, name string, value float64, unit string, groups [][]string) {
	s.mu.Lock()
	if unit == "" {
		unit = "None"
	}
	if _, exists := s.MetricValues[name]; !exists {
		s.MetricValues[name] = value
	}
	s.mu.Unlock()

	cw := s.lockedMetricFor(namespace)
	def := value
	cw.addMetric(name, unit, &def)
	for _, g := range groups {
		if len(g) == 0 {
			cw.AddDimensionGroup([]string{})
			continue
		}
		cw.AddDimensionGroup(g)
	}
}

func (s *MetricScope) lockedMetricFor(namespace string) *CloudWatchMetric {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.metricFor(namespace)
}

// SetDimensionValue records a dimension's value, first-write-wins.
func (s *MetricScope) SetDimensionValue(name, value string) {
	s.setDimensionValue(name, value)
}

func (s *MetricScope) setDimensionValue(name, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.DimensionValues[name]; !exists {
		s.DimensionValues[name] = value
	}
}

// PutProperty attaches an arbitrary, non-dimensional property.
func (s *MetricScope) PutProperty(name string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.Properties[name]; !exists {
		s.Properties[name] = value
	}
}

type wireMetric struct {
	Name string `json:"Name"`
	Unit string `json:"Unit"`
}

type wireCloudWatchMetric struct {
	Namespace  string       `json:"Namespace"`
	Dimensions [][]string   `json:"Dimensions"`
	Metrics    []wireMetric `json:"Metrics"`
}

// MarshalJSON renders the embedded metric format envelope: Timestamp,
// Version, CloudWatchMetrics, then each dimension value, metric value and
// property as sibling top-level fields.
func (s *MetricScope) MarshalJSON() ([]byte, error) {
	s.mu.Lock()
	namespaces := append([]string(nil), s.namespaceOrder...)
	dimVals := cloneAny(s.DimensionValues)
	metricVals := cloneFloat(s.MetricValues)
	props := cloneAny(s.Properties)
	byNS := s.byNamespace
	s.mu.Unlock()

	cwMetrics := make([]wireCloudWatchMetric, 0, len(namespaces))
	for _, ns := range namespaces {
		cw := byNS[ns]
		groups := cw.dimensionGroups()
		dims := make([][]string, 0, len(groups))
		for _, g := range groups {
			dims = append(dims, append([]string(nil), g...))
		}
		vals := cw.metricValues()
		wm := make([]wireMetric, 0, len(vals))
		for _, v := range vals {
			wm = append(wm, wireMetric{Name: v.Name, Unit: v.Unit})
		}
		cwMetrics = append(cwMetrics, wireCloudWatchMetric{Namespace: ns, Dimensions: dims, Metrics: wm})
	}

	var buf bytes.Buffer
	buf.WriteByte('{')

	fmt.Fprintf(&buf, `"Timestamp":%d,`, s.EpochMillis())
	writeJSONField(&buf, "Version", s.Version)
	buf.WriteByte(',')

	cwJSON, err := json.Marshal(cwMetrics)
	if err != nil {
		return nil, err
	}
	buf.WriteString(`"CloudWatchMetrics":`)
	buf.Write(cwJSON)

	for _, k := range sortedKeys(dimVals) {
		buf.WriteByte(',')
		writeJSONAnyField(&buf, k, dimVals[k])
	}
	for _, k := range sortedFloatKeys(metricVals) {
		buf.WriteByte(',')
		fmt.Fprintf(&buf, `%q:%s`, k, formatFloat(metricVals[k]))
	}
	for _, k := range sortedKeys(props) {
		buf.WriteByte(',')
		writeJSONAnyField(&buf, k, props[k])
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func formatFloat(f float64) string {
	b, _ := json.Marshal(f)
	return string(b)
}

func writeJSONField(buf *bytes.Buffer, key, value string) {
	b, _ := json.Marshal(value)
	fmt.Fprintf(buf, "%q:%s", key, b)
}

func writeJSONAnyField(buf *bytes.Buffer, key string, value any) {
	b, _ := json.Marshal(value)
	fmt.Fprintf(buf, "%q:%s", key, b)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedFloatKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func cloneAny(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneFloat(m map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
