/*
Package mongofixture gives each test its own Mongo database, dropped when the test ends.

Tests are skipped when no server is reachable at the connection URI, which defaults to
$MONGO_URI or mongodb://localhost:27017.
*/
package mongofixture

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"os"
	"strings"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"gotest.tools/v3/assert"

	"github.com/circleci/ex-demos/o11y"
)

type Fixture struct {
	DB   *mongo.Database
	Name string
	URI  string
}

type Connection struct {
	URI string
}

func DefaultURI() string {
	if uri := os.Getenv("MONGO_URI"); uri != "" {
		return uri
	}
	return "mongodb://localhost:27017"
}

func Setup(ctx context.Context, t testing.TB, con Connection) *Fixture {
	t.Helper()
	ctx, span := o11y.StartSpan(ctx, "mongofixture: setup")
	defer span.End()

	if con.URI == "" {
		con.URI = DefaultURI()
	}

	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI(con.URI).
		SetAppName("test").
		SetServerSelectionTimeout(2*time.Second),
	)
	assert.Assert(t, err)
	t.Cleanup(func() {
		assert.Check(t, client.Disconnect(ctx))
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		t.Skipf("Mongo not available at %s: %v", con.URI, err)
	}

	name := truncate(randomPrefix() + "_" + strings.NewReplacer("/", "_", " ", "_", ".", "_").Replace(t.Name()))
	span.AddField("name", name)

	db := client.Database(name)
	t.Cleanup(func() {
		assert.Check(t, db.Drop(ctx))
	})

	return &Fixture{
		DB:   db,
		Name: name,
		URI:  con.URI,
	}
}

func randomPrefix() string {
	b := make([]byte, 3)
	if _, err := rand.Read(b); err != nil {
		return "norand"
	}
	return hex.EncodeToString(b)
}

// truncate keeps names inside Mongo's database name length limit.
func truncate(s string) string {
	if len(s) >= 64 {
		return s[:63]
	}
	return s
}
