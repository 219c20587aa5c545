package redis

import (
	"context"

	"github.com/go-redis/redis/v8"

	"github.com/circleci/ex-demos/system"
)

// Load creates a client and wires it into sys: closed on cleanup, pinged by the
// readiness check and its pool reported as gauges.
func Load(o Options, sys *system.System) *redis.Client {
	client := New(o)

	sys.AddCleanup(func(context.Context) error {
		return client.Close()
	})
	sys.AddHealthCheck(NewHealthCheck(client, o.name()))
	sys.AddMetrics(NewMetrics(o.name(), client))

	return client
}
