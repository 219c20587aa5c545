package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-redis/redis/v8"

	"github.com/circleci/ex-demos/o11y"
)

// WaitReady pings the server, backing off between attempts, until it answers or timeout passes.
func WaitReady(ctx context.Context, client *redis.Client, timeout time.Duration) (err error) {
	ctx, span := o11y.StartSpan(ctx, "redis: wait ready")
	defer o11y.End(span, &err)

	// a single ping can block on server selection for longer than timeout
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	h := NewHealthCheck(client, "")
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	b.MaxElapsedTime = timeout

	attempts := 0
	err = backoff.RetryNotify(
		func() error {
			attempts++
			return h.ping(ctx)
		},
		backoff.WithContext(b, ctx),
		func(err error, next time.Duration) {
			o11y.Log(ctx, "redis: not ready",
				o11y.Field("error", err),
				o11y.Field("retry_in", next.String()),
			)
		},
	)
	span.AddField("attempts", attempts)
	if err != nil {
		return fmt.Errorf("redis not ready after %s: %w", timeout, err)
	}
	return nil
}
