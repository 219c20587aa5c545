package o11y

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"gotest.tools/v3/assert"
	"gotest.tools/v3/assert/cmp"
)

func TestFromContext(t *testing.T) {
	t.Run("no provider", func(t *testing.T) {
		ctx := context.Background()
		p := FromContext(ctx)
		assert.Check(t, cmp.Equal(p, defaultProvider))
	})

	t.Run("with provider in context", func(t *testing.T) {
		expected := &noopProvider{}
		ctx := WithProvider(context.Background(), expected)

		actual := FromContext(ctx)
		assert.Check(t, cmp.Equal(actual, expected))
	})
}

func TestLog_WithoutProvider(t *testing.T) {
	ctx := context.Background()

	Log(ctx, "foo", Field("name", "value"))
}

func TestStartSpan_WithoutProvider(t *testing.T) {
	ctx := context.Background()

	nCtx, span := StartSpan(ctx, "foo")
	assert.Check(t, span != nil, "should have returned a noop span")
	assert.Check(t, cmp.Equal(ctx, nCtx), "should have returned ctx unmodified")
}

func TestHandlePanic(t *testing.T) {
	ctx := context.Background()
	span := newFakeSpan()

	var err error
	func() {
		defer func() {
			err = HandlePanic(ctx, span, recover(), nil)
		}()
		panic("store exploded")
	}()

	assert.Check(t, cmp.ErrorContains(err, "store exploded"))
	assert.Check(t, cmp.Equal(span.fields["has_panicked"], "true"))
	assert.Check(t, cmp.Len(span.metrics, 1))
}

func TestAddResultToSpan(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		result  string
		error   string
		warning string
	}{
		{
			name:   "success",
			result: "success",
		},
		{
			name:   "error",
			err:    errors.New("insert failed"),
			result: "error",
			error:  "insert failed",
		},
		{
			name:    "warning",
			err:     fmt.Errorf("ping: %w", NewWarning("not ready")),
			result:  "success",
			warning: "ping: not ready",
		},
		{
			name:    "canceled",
			err:     fmt.Errorf("count: %w", context.Canceled),
			result:  "canceled",
			warning: "count: context canceled",
		},
		{
			name:    "deadline",
			err:     context.DeadlineExceeded,
			result:  "canceled",
			warning: "context deadline exceeded",
		},
	}

	checkField := func(t *testing.T, span *fakeSpan, key, expect string) {
		t.Helper()
		if expect == "" {
			_, ok := span.fields[key]
			assert.Check(t, !ok, key)
			return
		}
		assert.Check(t, cmp.Equal(span.fields[key], expect))
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			span := newFakeSpan()
			AddResultToSpan(span, tt.err)
			checkField(t, span, "result", tt.result)
			checkField(t, span, "error", tt.error)
			checkField(t, span, "warning", tt.warning)
		})
	}
}

func TestEnd(t *testing.T) {
	t.Run("error", func(t *testing.T) {
		span := newFakeSpan()
		err := errors.New("oh no")
		End(span, &err)
		assert.Check(t, cmp.Equal(span.fields["error"], "oh no"))
		assert.Check(t, span.ended)
	})

	t.Run("nil pointer", func(t *testing.T) {
		span := newFakeSpan()
		End(span, nil)
		assert.Check(t, cmp.Equal(span.fields["result"], "success"))
		assert.Check(t, span.ended)
	})
}

func newFakeSpan() *fakeSpan {
	return &fakeSpan{fields: map[string]interface{}{}}
}

type fakeSpan struct {
	fields  map[string]interface{}
	metrics []Metric
	ended   bool
}

func (s *fakeSpan) AddField(key string, val interface{}) {
	s.fields["app."+key] = val
}

func (s *fakeSpan) AddRawField(key string, val interface{}) {
	s.fields[key] = val
}

func (s *fakeSpan) RecordMetric(metric Metric) {
	s.metrics = append(s.metrics, metric)
}

func (s *fakeSpan) End() {
	s.ended = true
}
