package mongoex

import (
	"context"
	"fmt"

	"github.com/circleci/ex-demos/o11y"
)

// Span starts a span named "db: <entity>.<query>" so every query is reported the same way,
// with a db.query timing metric.
func Span(ctx context.Context, entity, queryName string) (context.Context, o11y.Span) {
	ctx, span := o11y.StartSpan(ctx, fmt.Sprintf("db: %s.%s", entity, queryName))
	span.RecordMetric(o11y.Timing("db.query", "db.entity", "db.query_name", "result"))
	span.AddRawField("db.system", "mongodb")
	span.AddRawField("db.entity", entity)
	span.AddRawField("db.query_name", queryName)
	return ctx, span
}
