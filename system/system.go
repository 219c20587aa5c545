package system

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/circleci/ex-demos/o11y"
	"github.com/circleci/ex-demos/termination"
)

// HealthChecker is implemented by anything the admin server should report on.
// Either check func may be nil.
type HealthChecker interface {
	HealthChecks() (name string, ready, live func(ctx context.Context) error)
}

type System struct {
	services        []func(context.Context) error
	healthChecks    []HealthChecker
	metricProducers []MetricProducer
	cleanups        []func(ctx context.Context) error
}

func New() *System {
	return &System{}
}

var terminationTestHook = termination.Handle

// Run starts every service and blocks until one of them returns, or a termination
// signal arrives. Shutdown waits delay after the signal before the services are stopped.
func (r *System) Run(ctx context.Context, delay time.Duration) (err error) {
	ctx, span := o11y.StartSpan(ctx, "system: run")
	defer o11y.End(span, &err)
	span.RecordMetric(o11y.Timing("system.run", "result"))

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return terminationTestHook(ctx, delay)
	})

	for _, f := range r.services {
		f := f
		g.Go(func() error {
			return f(ctx)
		})
	}

	if len(r.metricProducers) > 0 {
		g.Go(metricsReporter(ctx, r.metricProducers))
	}

	return g.Wait()
}

func (r *System) AddService(s func(ctx context.Context) error) {
	r.services = append(r.services, s)
}

func (r *System) AddHealthCheck(h HealthChecker) {
	r.healthChecks = append(r.healthChecks, h)
}

func (r *System) AddMetrics(m MetricProducer) {
	r.metricProducers = append(r.metricProducers, m)
}

func (r *System) AddCleanup(c func(ctx context.Context) error) {
	r.cleanups = append(r.cleanups, c)
}

func (r *System) HealthChecks() []HealthChecker {
	return r.healthChecks
}

// Cleanup runs the cleanups in reverse order of registration, so something added
// later, which may depend on something earlier, is released first.
func (r *System) Cleanup(ctx context.Context) {
	for i := len(r.cleanups) - 1; i >= 0; i-- {
		if err := r.cleanups[i](ctx); err != nil {
			o11y.LogError(ctx, "system: cleanup", err)
		}
	}
}
