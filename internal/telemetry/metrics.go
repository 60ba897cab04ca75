package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/xraph/distribution/observability"
)

var _ observability.MetricFactory = (*Metrics)(nil)

// Metrics adapts an OpenTelemetry meter to observability.MetricFactory.
// Instruments that fail to register fall back to no-ops.
type Metrics struct {
	meter metric.Meter
}

// NewMetrics returns a factory backed by the global meter provider.
func NewMetrics(scope string) *Metrics {
	return &Metrics{meter: otel.Meter(scope)}
}

// Counter implements observability.MetricFactory.
func (m *Metrics) Counter(name string) observability.Counter {
	c, err := m.meter.Float64Counter(name)
	if err != nil {
		return nopMetric{}
	}
	return counter{c: c}
}

// Histogram implements observability.MetricFactory.
func (m *Metrics) Histogram(name string) observability.Histogram {
	h, err := m.meter.Float64Histogram(name)
	if err != nil {
		return nopMetric{}
	}
	return histogram{h: h}
}

type counter struct{ c metric.Float64Counter }

func (c counter) Inc()          { c.c.Add(context.Background(), 1) }
func (c counter) Add(v float64) { c.c.Add(context.Background(), v) }

type histogram struct{ h metric.Float64Histogram }

func (h histogram) Observe(v float64) { h.h.Record(context.Background(), v) }

type nopMetric struct{}

func (nopMetric) Inc()            {}
func (nopMetric) Add(float64)     {}
func (nopMetric) Observe(float64) {}
