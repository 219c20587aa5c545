package system

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/circleci/ex-demos/o11y"
	"github.com/circleci/ex-demos/worker"
)

type MetricProducer interface {
	// MetricName scopes the gauges, eg. "mongo" or "redis"
	MetricName() string
	Gauges(context.Context) map[string]float64
}

const metricsInterval = 10 * time.Second

func traceMetrics(ctx context.Context, producers []MetricProducer) {
	metrics := o11y.FromContext(ctx).MetricsProvider()
	for _, producer := range producers {
		traceMetric(ctx, metrics, producer)
	}
}

func traceMetric(ctx context.Context, provider o11y.MetricsProvider, producer MetricProducer) {
	name := strings.ReplaceAll(producer.MetricName(), "-", "_")
	for f, v := range producer.Gauges(ctx) {
		_ = provider.Gauge(fmt.Sprintf("gauge.%s.%s", name, f), v, []string{}, 1)
	}
}

func metricsReporter(ctx context.Context, producers []MetricProducer) func() error {
	return func() error {
		worker.Run(ctx, worker.Config{
			Name:          "metric_loop",
			MaxWorkTime:   time.Second,
			NoWorkBackOff: backoff.NewConstantBackOff(metricsInterval),
			WorkFunc: func(ctx context.Context) error {
				traceMetrics(ctx, producers)
				return worker.ErrShouldBackoff
			},
		})
		return nil
	}
}
