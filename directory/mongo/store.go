// Package mongo loads user directories from MongoDB.
//
// User documents store the user id in _id. A Store takes a snapshot of the
// collection and returns an immutable memory.Directory.
package mongo

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rbaliyan/dispatch/directory"
	"github.com/rbaliyan/dispatch/directory/memory"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	mongoopts "go.mongodb.org/mongo-driver/v2/mongo/options"
)

// Store reads users from a MongoDB collection.
type Store struct {
	client *mongo.Client
	opts   *options
	logger *slog.Logger
}

// userDoc is the stored form of a user.
type userDoc struct {
	ID    int64  `bson:"_id"`
	Name  string `bson:"name"`
	Age   int    `bson:"age"`
	Email string `bson:"email"`
}

// New creates a loader with the provided client.
// The caller owns the client and is responsible for disconnecting it.
func New(client *mongo.Client, opts ...Option) *Store {
	o := newOptions(opts...)
	return &Store{
		client: client,
		opts:   o,
		logger: o.logger,
	}
}

// Ping verifies the server is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if s.client == nil {
		return directory.ErrNotConnected
	}
	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	if err := s.client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("mongo ping: %w", err)
	}
	return nil
}

// Snapshot loads every user, sorted by id, into a memory directory.
func (s *Store) Snapshot(ctx context.Context) (*memory.Directory, error) {
	return s.load(ctx, bson.M{})
}

// SnapshotIDs loads only the users whose ids are listed, sorted by id.
func (s *Store) SnapshotIDs(ctx context.Context, ids []int) (*memory.Directory, error) {
	if len(ids) == 0 {
		return memory.New()
	}
	wanted := make([]int64, len(ids))
	for i, id := range ids {
		wanted[i] = int64(id)
	}
	return s.load(ctx, bson.M{"_id": bson.M{"$in": wanted}})
}

func (s *Store) load(ctx context.Context, filter bson.M) (*memory.Directory, error) {
	if s.client == nil {
		return nil, directory.ErrNotConnected
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	collection := s.client.Database(s.opts.database).Collection(s.opts.collection)
	findOpts := mongoopts.Find().SetSort(bson.D{bson.E{Key: "_id", Value: 1}})

	cursor, err := collection.Find(ctx, filter, findOpts)
	if err != nil {
		return nil, fmt.Errorf("find users: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []userDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}

	users := make([]directory.User, len(docs))
	for i, doc := range docs {
		users[i] = directory.User{
			ID:    int(doc.ID),
			Name:  doc.Name,
			Age:   doc.Age,
			Email: doc.Email,
		}
	}

	d, err := memory.New(users...)
	if err != nil {
		return nil, fmt.Errorf("build directory: %w", err)
	}

	s.logger.Info("loaded user directory from MongoDB",
		"database", s.opts.database, "collection", s.opts.collection, "users", d.Len())
	return d, nil
}
