package mongo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/rbaliyan/dispatch/directory"
	"go.mongodb.org/mongo-driver/v2/mongo"
	mongoopts "go.mongodb.org/mongo-driver/v2/mongo/options"
)

func TestLoaderWithoutClient(t *testing.T) {
	ctx := context.Background()
	s := New(nil)

	if err := s.Ping(ctx); !errors.Is(err, directory.ErrNotConnected) {
		t.Errorf("expected ErrNotConnected, got %v", err)
	}
	if _, err := s.Snapshot(ctx); !errors.Is(err, directory.ErrNotConnected) {
		t.Errorf("expected ErrNotConnected, got %v", err)
	}
	d, err := s.SnapshotIDs(ctx, []int{})
	if err != nil || d.Len() != 0 {
		t.Errorf("expected empty directory without a query, got %v (err=%v)", d, err)
	}
}

func TestOptions(t *testing.T) {
	o := newOptions(WithDatabase(""), WithCollection(""), WithTimeout(0))
	if o.database != DefaultDatabase || o.collection != DefaultCollection || o.timeout != DefaultTimeout {
		t.Errorf("invalid options should be ignored, got %+v", o)
	}
}

// TestSnapshotIntegration runs against a live server when DISPATCH_MONGO_URI is set.
func TestSnapshotIntegration(t *testing.T) {
	uri := os.Getenv("DISPATCH_MONGO_URI")
	if uri == "" {
		t.Skip("DISPATCH_MONGO_URI not set")
	}

	ctx := context.Background()
	client, err := mongo.Connect(mongoopts.Client().ApplyURI(uri))
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer client.Disconnect(ctx)

	const dbName = "dispatch_test"
	coll := client.Database(dbName).Collection("users")
	defer coll.Drop(ctx)

	docs := make([]any, 0, 10)
	for id := 10; id >= 1; id-- {
		docs = append(docs, userDoc{
			ID:    int64(id),
			Name:  fmt.Sprintf("Name%d", id),
			Age:   30,
			Email: fmt.Sprintf("someone%d@domain%d.pl", id, id),
		})
	}
	if _, err := coll.InsertMany(ctx, docs); err != nil {
		t.Fatalf("insert: %v", err)
	}

	s := New(client, WithDatabase(dbName))
	if err := s.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}

	d, err := s.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	all := d.AllUsers()
	if len(all) != 10 || all[0].ID != 1 || all[9].ID != 10 {
		t.Errorf("expected users 1..10 in id order, got %+v", all)
	}

	sub, err := s.SnapshotIDs(ctx, []int{9, 2, 404})
	if err != nil {
		t.Fatalf("snapshot ids: %v", err)
	}
	got := sub.AllUsers()
	if len(got) != 2 || got[0].ID != 2 || got[1].ID != 9 {
		t.Errorf("expected users [2 9], got %+v", got)
	}
}
