package redis

import (
	"context"
	"errors"
	"strings"

	"github.com/go-redis/redis/v8"

	"github.com/circleci/ex-demos/o11y"
)

type spanKey struct{}

// tracingHook reports every command as a "redis: <command>" span.
type tracingHook struct {
	system string
}

func (h tracingHook) BeforeProcess(ctx context.Context, cmd redis.Cmder) (context.Context, error) {
	ctx, span := o11y.StartSpan(ctx, "redis: "+cmd.Name())
	span.RecordMetric(o11y.Timing("redis.command", "db.query_name", "result"))
	span.AddRawField("db.system", "redis")
	span.AddRawField("db.name", h.system)
	span.AddRawField("db.query_name", cmd.Name())
	return context.WithValue(ctx, spanKey{}, span), nil
}

func (h tracingHook) AfterProcess(ctx context.Context, cmd redis.Cmder) error {
	if span, ok := ctx.Value(spanKey{}).(o11y.Span); ok {
		o11y.AddResultToSpan(span, commandErr(cmd.Err()))
		span.End()
	}
	return nil
}

func (h tracingHook) BeforeProcessPipeline(ctx context.Context, cmds []redis.Cmder) (context.Context, error) {
	names := make([]string, 0, len(cmds))
	for _, cmd := range cmds {
		names = append(names, cmd.Name())
	}
	ctx, span := o11y.StartSpan(ctx, "redis: pipeline")
	span.AddRawField("db.system", "redis")
	span.AddRawField("db.name", h.system)
	span.AddRawField("db.query_name", strings.Join(names, " "))
	return context.WithValue(ctx, spanKey{}, span), nil
}

func (h tracingHook) AfterProcessPipeline(ctx context.Context, cmds []redis.Cmder) error {
	span, ok := ctx.Value(spanKey{}).(o11y.Span)
	if !ok {
		return nil
	}
	var err error
	for _, cmd := range cmds {
		if e := commandErr(cmd.Err()); e != nil {
			err = e
			break
		}
	}
	o11y.AddResultToSpan(span, err)
	span.End()
	return nil
}

// commandErr hides redis.Nil, a missing key is an answer rather than a failure.
func commandErr(err error) error {
	if errors.Is(err, redis.Nil) {
		return nil
	}
	return err
}
