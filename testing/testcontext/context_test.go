package testcontext

import (
	"testing"

	"gotest.tools/v3/assert"

	"github.com/circleci/ex-demos/o11y"
)

func TestBackground(t *testing.T) {
	ctx := Background()
	assert.Check(t, Background() == ctx)

	_, span := o11y.StartSpan(ctx, "test span")
	span.AddField("answer", 42)
	span.End()

	assert.Check(t, o11y.FromContext(ctx).MetricsProvider().Gauge("gauge", 1, nil, 1))
}
