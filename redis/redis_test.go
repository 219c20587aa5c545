package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"gotest.tools/v3/assert"
	"gotest.tools/v3/assert/cmp"

	"github.com/circleci/ex-demos/o11y"
	"github.com/circleci/ex-demos/system"
	"github.com/circleci/ex-demos/testing/redisfixture"
	"github.com/circleci/ex-demos/testing/testcontext"
)

func TestNew(t *testing.T) {
	ctx := testcontext.Background()
	fix := redisfixture.Setup(ctx, t, redisfixture.Connection{})

	client := New(Options{Addr: fix.Addr, DB: fix.DB})
	defer client.Close()

	assert.NilError(t, client.Set(ctx, "foo", "bar", 0).Err())
	v, err := client.Get(ctx, "foo").Result()
	assert.NilError(t, err)
	assert.Check(t, cmp.Equal(v, "bar"))

	err = client.Get(ctx, "missing").Err()
	assert.Check(t, errors.Is(err, redis.Nil))

	pipe := client.Pipeline()
	pipe.Incr(ctx, "n")
	pipe.Incr(ctx, "n")
	_, err = pipe.Exec(ctx)
	assert.NilError(t, err)
	assert.Check(t, cmp.Equal(client.Get(ctx, "n").Val(), "2"))
}

func TestLoad(t *testing.T) {
	ctx := testcontext.Background()
	fix := redisfixture.Setup(ctx, t, redisfixture.Connection{})

	sys := system.New()
	client := Load(Options{Addr: fix.Addr, DB: fix.DB}, sys)
	assert.Check(t, cmp.Len(sys.HealthChecks(), 1))

	assert.Check(t, WaitReady(ctx, client, 5*time.Second))

	name, ready, live := sys.HealthChecks()[0].HealthChecks()
	assert.Check(t, cmp.Equal(name, "redis"))
	assert.Check(t, live == nil)
	assert.Check(t, ready(ctx))

	gauges := NewMetrics("redis", client).Gauges(ctx)
	for _, k := range []string{"hits", "misses", "timeouts", "total_connections", "idle_connections", "stale_connections"} {
		_, ok := gauges[k]
		assert.Check(t, ok, k)
	}

	sys.Cleanup(ctx)
	assert.Check(t, errors.Is(client.Ping(ctx).Err(), redis.ErrClosed))
}

func TestWaitReady_Unreachable(t *testing.T) {
	ctx := testcontext.Background()
	client := New(Options{Addr: "127.0.0.1:1", Name: "unreachable"})
	defer client.Close()

	err := WaitReady(ctx, client, 300*time.Millisecond)
	assert.Check(t, cmp.ErrorContains(err, "redis not ready after 300ms"))

	_, ready, _ := NewHealthCheck(client, "").HealthChecks()
	assert.Check(t, cmp.ErrorContains(ready(ctx), "redis ping failed"))
}

func TestTracingHook(t *testing.T) {
	span := &recordingSpan{fields: map[string]interface{}{}}
	ctx := o11y.WithProvider(context.Background(), &recordingProvider{span: span})

	h := tracingHook{system: "redis"}
	cmd := redis.NewStringCmd(ctx, "get", "missing")
	cmd.SetErr(redis.Nil)

	ctx, err := h.BeforeProcess(ctx, cmd)
	assert.NilError(t, err)
	assert.NilError(t, h.AfterProcess(ctx, cmd))

	assert.Check(t, span.ended)
	assert.Check(t, cmp.Equal(span.fields["db.query_name"], "get"))
	assert.Check(t, cmp.Equal(span.fields["result"], "success"))
	assert.Check(t, cmp.Equal(span.name, "redis: get"))
}

type recordingProvider struct {
	o11y.Provider
	span *recordingSpan
}

func (p *recordingProvider) StartSpan(ctx context.Context, name string) (context.Context, o11y.Span) {
	p.span.name = name
	return ctx, p.span
}

type recordingSpan struct {
	name   string
	fields map[string]interface{}
	ended  bool
}

func (s *recordingSpan) AddField(key string, val interface{})    { s.fields["app."+key] = val }
func (s *recordingSpan) AddRawField(key string, val interface{}) { s.fields[key] = val }
func (s *recordingSpan) RecordMetric(o11y.Metric)                {}
func (s *recordingSpan) End()                                    { s.ended = true }
