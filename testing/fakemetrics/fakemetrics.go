// Package fakemetrics records metric calls so tests can assert on what a span or loop emitted.
package fakemetrics

import (
	"sync"

	gocmp "github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

type MetricCall struct {
	Metric   string
	Name     string
	Value    float64
	ValueInt int64
	Tags     []string
	Rate     float64
}

// CMPMetrics ignores call order and measured values, which vary between runs.
var CMPMetrics = gocmp.Options{
	cmpopts.SortSlices(func(x, y MetricCall) bool {
		if x.Metric != y.Metric {
			return x.Metric < y.Metric
		}
		return x.Name < y.Name
	}),
	cmpopts.IgnoreFields(MetricCall{}, "Value"),
}

type Provider struct {
	mu    sync.Mutex
	calls []MetricCall
}

func (f *Provider) record(c MetricCall) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
	return nil
}

// Calls returns a copy of every call recorded so far.
func (f *Provider) Calls() []MetricCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]MetricCall(nil), f.calls...)
}

// Named returns the recorded calls with the given metric name.
func (f *Provider) Named(name string) []MetricCall {
	var out []MetricCall
	for _, c := range f.Calls() {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

func (f *Provider) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
}

func (f *Provider) TimeInMilliseconds(name string, value float64, tags []string, rate float64) error {
	return f.record(MetricCall{Metric: "timer", Name: name, Value: value, Tags: tags, Rate: rate})
}

func (f *Provider) Gauge(name string, value float64, tags []string, rate float64) error {
	return f.record(MetricCall{Metric: "gauge", Name: name, Value: value, Tags: tags, Rate: rate})
}

func (f *Provider) Count(name string, value int64, tags []string, rate float64) error {
	return f.record(MetricCall{Metric: "count", Name: name, ValueInt: value, Tags: tags, Rate: rate})
}

func (f *Provider) Histogram(name string, value float64, tags []string, rate float64) error {
	return f.record(MetricCall{Metric: "histogram", Name: name, Value: value, Tags: tags, Rate: rate})
}

func (f *Provider) Close() error {
	return nil
}
