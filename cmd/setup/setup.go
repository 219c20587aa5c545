// Package setup contains the wiring shared by the demo binaries.
package setup

import (
	"context"
	"fmt"
	"time"
	_ "time/tzdata" // FROM scratch images have no zoneinfo

	goredis "github.com/go-redis/redis/v8"
	"github.com/gwatts/rootcerts"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/circleci/ex-demos/config/o11y"
	"github.com/circleci/ex-demos/config/secret"
	"github.com/circleci/ex-demos/mongoex"
	"github.com/circleci/ex-demos/redis"
	"github.com/circleci/ex-demos/system"
)

type CLI struct {
	AdminAddr     string        `env:"ADMIN_ADDR" default:":8001" help:"The address for the admin API to listen on"`
	ShutdownDelay time.Duration `env:"SHUTDOWN_DELAY" default:"5s" help:"Delay shutdown by this amount" hidden:""`

	O11yStatsd           string        `name:"o11y-statsd" env:"O11Y_STATSD" help:"Address to send statsd metrics, metrics are not sent if empty"`
	O11yHoneycombEnabled bool          `name:"o11y-honeycomb" env:"O11Y_HONEYCOMB" default:"false" help:"Send traces to honeycomb"`
	O11yHoneycombDataset string        `name:"o11y-honeycomb-dataset" env:"O11Y_HONEYCOMB_DATASET" default:"demos"`
	O11yHoneycombKey     secret.String `name:"o11y-honeycomb-key" env:"O11Y_HONEYCOMB_KEY"`
	O11yFormat           string        `name:"o11y-format" env:"O11Y_FORMAT" enum:"json,color,text,none" default:"json" help:"Format used for stderr logging"`
	O11yRollbarToken     secret.String `name:"o11y-rollbar-token" env:"O11Y_ROLLBAR_TOKEN"`
	O11yRollbarEnv       string        `name:"o11y-rollbar-env" env:"O11Y_ROLLBAR_ENV" default:"production"`
}

type MongoCLI struct {
	MongoURI         secret.String `name:"mongo-uri" env:"MONGO_URI" default:"mongodb://db:27017" help:"MongoDB connection string"`
	MongoDB          string        `name:"mongo-db" env:"MONGO_DB" default:"mydb" help:"Database holding the items collection"`
	MongoTLS         bool          `name:"mongo-tls" env:"MONGO_TLS" default:"false"`
	StoreWaitTimeout time.Duration `env:"STORE_WAIT_TIMEOUT" default:"30s" help:"How long to wait for the store before giving up on startup"`
}

type RedisCLI struct {
	RedisAddr        string        `name:"redis-addr" env:"REDIS_ADDR" default:"redis:6379" help:"Redis host:port"`
	RedisPassword    secret.String `name:"redis-password" env:"REDIS_PASSWORD"`
	RedisDB          int           `name:"redis-db" env:"REDIS_DB" default:"0"`
	RedisTLS         bool          `name:"redis-tls" env:"REDIS_TLS" default:"false"`
	StoreWaitTimeout time.Duration `env:"STORE_WAIT_TIMEOUT" default:"30s" help:"How long to wait for the store before giving up on startup"`
}

func init() {
	if err := rootcerts.UpdateDefaultTransport(); err != nil {
		panic(fmt.Errorf("failed to inject rootcerts: %w", err))
	}
}

func LoadO11y(version, mode string, cli CLI) (context.Context, func(context.Context), error) {
	return o11y.Setup(context.Background(), o11y.Config{
		Statsd:            cli.O11yStatsd,
		RollbarToken:      cli.O11yRollbarToken,
		RollbarEnv:        cli.O11yRollbarEnv,
		RollbarServerRoot: "github.com/circleci/ex-demos",
		HoneycombEnabled:  cli.O11yHoneycombEnabled,
		HoneycombDataset:  cli.O11yHoneycombDataset,
		HoneycombKey:      cli.O11yHoneycombKey,
		Format:            cli.O11yFormat,
		Version:           version,
		Service:           "demos",
		StatsNamespace:    "circleci.demos.",
		Mode:              mode,
	})
}

// LoadMongo connects to the database and waits for it to answer, so the API is not served
// before it can count anything.
func LoadMongo(ctx context.Context, appName string, cli MongoCLI, sys *system.System) (*mongo.Database, error) {
	db, err := mongoex.Load(ctx, cli.MongoDB, appName, mongoex.Config{
		URI:    cli.MongoURI,
		UseTLS: cli.MongoTLS,
	}, sys)
	if err != nil {
		return nil, err
	}

	if err := mongoex.WaitReady(ctx, db.Client(), cli.StoreWaitTimeout); err != nil {
		return nil, err
	}
	return db, nil
}

// LoadRedis connects to redis and waits for it to answer.
func LoadRedis(ctx context.Context, cli RedisCLI, sys *system.System) (*goredis.Client, error) {
	client := redis.Load(redis.Options{
		Addr:     cli.RedisAddr,
		Password: cli.RedisPassword,
		DB:       cli.RedisDB,
		TLS:      cli.RedisTLS,
	}, sys)

	if err := redis.WaitReady(ctx, client, cli.StoreWaitTimeout); err != nil {
		return nil, err
	}
	return client, nil
}
