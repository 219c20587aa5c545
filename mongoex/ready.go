package mongoex

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/circleci/ex-demos/o11y"
)

// WaitReady pings the server until it answers, backing off between attempts, for at most
// timeout. The database container usually starts alongside the service and may take a
// few seconds to accept connections.
func WaitReady(ctx context.Context, client *mongo.Client, timeout time.Duration) (err error) {
	ctx, span := o11y.StartSpan(ctx, "mongoex: wait ready")
	defer o11y.End(span, &err)

	// a single ping can block on server selection for longer than timeout
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	h := &health{client: client}
	attempts := 0
	err = backoff.RetryNotify(
		func() error {
			attempts++
			return h.ping(ctx)
		},
		backoff.WithContext(readyBackOff(timeout), ctx),
		func(err error, next time.Duration) {
			o11y.Log(ctx, "mongoex: not ready",
				o11y.Field("error", err),
				o11y.Field("retry_in", next.String()),
			)
		},
	)
	span.AddField("attempts", attempts)
	if err != nil {
		return fmt.Errorf("mongo not ready after %s: %w", timeout, err)
	}
	return nil
}

func readyBackOff(timeout time.Duration) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	b.MaxElapsedTime = timeout
	return b
}
