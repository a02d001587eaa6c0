package telemetry

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// Metrics collects the process instruments on demand.
type Metrics struct {
	reader   *sdkmetric.ManualReader
	provider *sdkmetric.MeterProvider
}

// SetupMetrics installs a global meter provider read by Snapshot. It must run
// before clients create their instruments.
func SetupMetrics() *Metrics {
	m := NewMetrics()
	otel.SetMeterProvider(m.provider)
	return m
}

// NewMetrics builds a meter provider without installing it.
func NewMetrics() *Metrics {
	reader := sdkmetric.NewManualReader()
	return &Metrics{
		reader:   reader,
		provider: sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)),
	}
}

func (m *Metrics) Provider() *sdkmetric.MeterProvider {
	return m.provider
}

// Point is one series of an instrument. Value is the sum for counters and the
// observation count for histograms.
type Point struct {
	Name       string            `json:"name"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Value      float64           `json:"value"`
	Sum        float64           `json:"sum,omitempty"`
}

// Snapshot returns every series collected so far, ordered by name and
// attributes.
func (m *Metrics) Snapshot(ctx context.Context) ([]Point, error) {
	var rm metricdata.ResourceMetrics
	if err := m.reader.Collect(ctx, &rm); err != nil {
		return nil, fmt.Errorf("failed to collect metrics: %w", err)
	}

	var points []Point
	for _, sm := range rm.ScopeMetrics {
		for _, md := range sm.Metrics {
			switch data := md.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					points = append(points, Point{Name: md.Name, Attributes: attrMap(dp.Attributes), Value: float64(dp.Value)})
				}
			case metricdata.Sum[float64]:
				for _, dp := range data.DataPoints {
					points = append(points, Point{Name: md.Name, Attributes: attrMap(dp.Attributes), Value: dp.Value})
				}
			case metricdata.Histogram[float64]:
				for _, dp := range data.DataPoints {
					points = append(points, Point{Name: md.Name, Attributes: attrMap(dp.Attributes), Value: float64(dp.Count), Sum: dp.Sum})
				}
			}
		}
	}

	sort.Slice(points, func(i, j int) bool {
		if points[i].Name != points[j].Name {
			return points[i].Name < points[j].Name
		}
		return attrKey(points[i].Attributes) < attrKey(points[j].Attributes)
	})
	return points, nil
}

func attrMap(set attribute.Set) map[string]string {
	if set.Len() == 0 {
		return nil
	}
	out := make(map[string]string, set.Len())
	for _, kv := range set.ToSlice() {
		out[string(kv.Key)] = kv.Value.Emit()
	}
	return out
}

func attrKey(attrs map[string]string) string {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k+"="+attrs[k])
	}
	sort.Strings(keys)
	return strings.Join(keys, ",")
}
