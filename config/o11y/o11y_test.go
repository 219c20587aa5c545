package o11y

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"gotest.tools/v3/assert"
	"gotest.tools/v3/assert/cmp"
	"gotest.tools/v3/poll"

	"github.com/circleci/ex-demos/config/secret"
	"github.com/circleci/ex-demos/o11y"
	"github.com/circleci/ex-demos/o11y/honeycomb"
	"github.com/circleci/ex-demos/testing/fakestatsd"
)

func TestSecretRedacted(t *testing.T) {
	buf := bytes.Buffer{}
	provider := honeycomb.New(honeycomb.Config{
		Writer: &buf,
	})
	ctx, span := provider.StartSpan(context.Background(), "connect to mongo")
	span.AddField("uri", secret.String("mongodb://root:hunter2@db:27017"))
	span.End()
	provider.Close(ctx)

	assert.Check(t, !strings.Contains(buf.String(), "hunter2"), buf.String())
	assert.Check(t, cmp.Contains(buf.String(), "REDACTED"))
}

func TestSetup(t *testing.T) {
	ctx, cleanup, err := Setup(context.Background(), Config{
		Statsd:            "127.0.0.1:8125",
		RollbarToken:      "qwertyuiop",
		RollbarDisabled:   true,
		RollbarEnv:        "test",
		RollbarServerRoot: "github.com/circleci/ex-demos",
		HoneycombDataset:  "demos",
		Format:            "text",
		Version:           "1.2.3",
		Service:           "counter",
		StatsNamespace:    "circleci.demos.",
		Mode:              "test",
	})
	assert.Assert(t, err)
	defer cleanup(ctx)

	_, ok := o11y.FromContext(ctx).(rollbarProvider)
	assert.Check(t, ok, "a rollbar token should wrap the provider")
}

func TestSetup_HoneycombNeedsKey(t *testing.T) {
	_, _, err := Setup(context.Background(), Config{
		HoneycombEnabled: true,
		Service:          "counter",
	})
	assert.Check(t, cmp.ErrorContains(err, "honeycomb_key"))
}

func TestSetup_StatsdMetrics(t *testing.T) {
	s := fakestatsd.New(t)

	ctx, cleanup, err := Setup(context.Background(), Config{
		Statsd:                  s.Addr(),
		Format:                  "none",
		Version:                 "1.2.3",
		Service:                 "visits",
		StatsNamespace:          "circleci.demos.",
		StatsdTelemetryDisabled: true,
	})
	assert.Assert(t, err)

	mp := o11y.FromContext(ctx).MetricsProvider()
	assert.Check(t, mp.Count("visits", 1, []string{"result:success"}, 1))
	cleanup(ctx)

	poll.WaitOn(t, func(t poll.LogT) poll.Result {
		if len(s.Named("circleci.demos.visits")) == 0 {
			return poll.Continue("waiting for visits metric: %v", s.Metrics())
		}
		return poll.Success()
	})
	m := s.Named("circleci.demos.visits")[0]
	assert.Check(t, cmp.Equal(m.Value, "1"))
	assert.Check(t, cmp.Contains(m.Tags, "service:visits"))
	assert.Check(t, cmp.Contains(m.Tags, "result:success"))
}
