// Package visits serves the visit counter: each GET / increments a counter in Redis
// and replies with its new value.
package visits

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/go-redis/redis/v8"

	"github.com/circleci/ex-demos/o11y"
)

// Key is the Redis key holding the count.
const Key = "visits"

// ErrUnavailable wraps failures to reach Redis.
var ErrUnavailable = errors.New("visit counter unavailable")

// go-redis keeps its pool timeout error in an internal package.
const poolTimeout = "redis: connection pool timeout"

type Counter struct {
	client *redis.Client
}

// NewCounter uses client for every increment, the caller owns and closes it.
func NewCounter(client *redis.Client) *Counter {
	return &Counter{client: client}
}

// Incr atomically increments the count, starting from 0 if the key does not exist,
// and returns the new value.
func (c *Counter) Incr(ctx context.Context) (n int64, err error) {
	ctx, span := o11y.StartSpan(ctx, "visits: incr")
	defer o11y.End(span, &err)

	n, err = c.client.Incr(ctx, Key).Result()
	if err != nil {
		return 0, mapError(err)
	}
	span.AddField("count", n)
	return n, nil
}

func mapError(err error) error {
	var netErr net.Error
	switch {
	case err == nil:
		return nil
	case errors.As(err, &netErr),
		errors.Is(err, redis.ErrClosed),
		errors.Is(err, context.DeadlineExceeded),
		err.Error() == poolTimeout:
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return err
}
