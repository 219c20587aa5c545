package mongoex

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/circleci/ex-demos/system"
)

// Load creates a client for dbName and hands its lifecycle to sys: the client is
// disconnected on cleanup, pinged by the readiness check, and its pool reported as gauges.
func Load(ctx context.Context, dbName, appName string, cfg Config, sys *system.System) (*mongo.Database, error) {
	metrics := newPoolMetrics("mongo")

	if cfg.Options == nil {
		cfg.Options = options.Client()
	}
	cfg.Options.SetPoolMonitor(metrics.PoolMonitor(cfg.Options.PoolMonitor))

	client, err := New(ctx, appName, cfg)
	if err != nil {
		return nil, err
	}
	sys.AddCleanup(client.Disconnect)
	sys.AddHealthCheck(&health{client: client})
	sys.AddMetrics(metrics)

	return client.Database(dbName), nil
}
