// Package items persists the items the counter service creates, one per greeting.
package items

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/x/mongo/driver/topology"

	"github.com/circleci/ex-demos/mongoex"
	"github.com/circleci/ex-demos/o11y"
)

const (
	// DefaultName is the name given to every item the counter service adds.
	DefaultName = "Docker User"

	collection = "items"
)

// ErrUnavailable wraps failures caused by the database being unreachable, rather than by the request.
var ErrUnavailable = errors.New("item store unavailable")

type Item struct {
	Name string `bson:"name"`
}

type Store interface {
	Add(ctx context.Context, item Item) error
	Count(ctx context.Context) (int64, error)
}

type MongoStore struct {
	coll *mongo.Collection
}

// NewStore returns a store backed by the items collection of db. The caller owns the
// client behind db, and is responsible for disconnecting it.
func NewStore(db *mongo.Database) *MongoStore {
	return &MongoStore{coll: db.Collection(collection)}
}

// Add inserts the item, the database assigns its _id.
func (s *MongoStore) Add(ctx context.Context, item Item) (err error) {
	ctx, span := mongoex.Span(ctx, collection, "add")
	defer o11y.End(span, &err)
	span.AddField("name", item.Name)

	_, err = s.coll.InsertOne(ctx, item)
	return mapError(err)
}

// Count returns the number of items stored. Under concurrent adds it may already be
// behind by the time it is returned.
func (s *MongoStore) Count(ctx context.Context) (n int64, err error) {
	ctx, span := mongoex.Span(ctx, collection, "count")
	defer o11y.End(span, &err)

	n, err = s.coll.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, mapError(err)
	}
	span.AddField("count", n)
	return n, nil
}

func mapError(err error) error {
	var selection topology.ServerSelectionError
	switch {
	case err == nil:
		return nil
	case mongo.IsTimeout(err),
		mongo.IsNetworkError(err),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, mongo.ErrClientDisconnected),
		errors.As(err, &selection):
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return err
}
