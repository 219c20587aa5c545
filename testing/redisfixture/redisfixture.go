/*
Package redisfixture gives a test a flushed Redis database, picked from the server's
databases by hashing the test name so parallel packages rarely share one.

Tests are skipped when no server is reachable at the address, which defaults to
$REDIS_ADDR or localhost:6379.
*/
package redisfixture

import (
	"context"
	"fmt"
	"hash/fnv"
	"os"
	"strconv"
	"sync"
	"testing"

	"github.com/go-redis/redis/v8"
	"gotest.tools/v3/assert"

	"github.com/circleci/ex-demos/o11y"
)

type Fixture struct {
	*redis.Client
	Addr string
	DB   int
}

type Connection struct {
	Addr string
}

func DefaultAddr() string {
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		return addr
	}
	return "localhost:6379"
}

var (
	once          sync.Once
	databaseCount int
	unavailable   error
)

func Setup(ctx context.Context, t testing.TB, con Connection) *Fixture {
	t.Helper()
	ctx, span := o11y.StartSpan(ctx, "redisfixture: setup")
	defer span.End()

	if con.Addr == "" {
		con.Addr = DefaultAddr()
	}

	once.Do(func() {
		databaseCount, unavailable = readDatabasesCount(ctx, con)
	})
	if unavailable != nil {
		t.Skipf("Redis not available at %s: %v", con.Addr, unavailable)
	}

	db := hash(t.Name(), databaseCount)
	span.AddField("db", db)

	client := redis.NewClient(&redis.Options{
		Addr: con.Addr,
		DB:   db,
	})
	t.Cleanup(func() {
		assert.Check(t, client.Close())
	})
	assert.Assert(t, client.FlushDB(ctx).Err())

	return &Fixture{
		Client: client,
		Addr:   con.Addr,
		DB:     db,
	}
}

func readDatabasesCount(ctx context.Context, con Connection) (int, error) {
	client := redis.NewClient(&redis.Options{Addr: con.Addr})
	defer client.Close()

	if err := client.Ping(ctx).Err(); err != nil {
		return 0, err
	}

	// CONFIG GET replies with a flat name, value list
	v, err := client.ConfigGet(ctx, "databases").Result()
	if err != nil {
		return 0, err
	}
	if len(v) != 2 {
		return 0, fmt.Errorf("unexpected CONFIG GET reply: %v", v)
	}
	n, err := strconv.Atoi(fmt.Sprint(v[1]))
	if err != nil {
		return 0, err
	}
	if n < 1 {
		return 0, fmt.Errorf("server has no databases")
	}
	return n, nil
}

func hash(s string, n int) int {
	h := fnv.New32()
	_, _ = h.Write([]byte(s))
	return int(h.Sum32() % uint32(n))
}
