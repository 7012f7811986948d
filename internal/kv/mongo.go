package kv

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoEntry struct {
	Key       string    `bson:"_id"`
	Value     string    `bson:"value"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

// Mongo keeps one document per key in the kv_entries collection.
type Mongo struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// NewMongo connects to uri and uses the given database.
func NewMongo(ctx context.Context, uri, database string) (*Mongo, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errors.Wrap(err, "connecting mongo")
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, errors.Wrap(err, "pinging mongo")
	}
	return &Mongo{client: client, collection: client.Database(database).Collection("kv_entries")}, nil
}

func (m *Mongo) Get(ctx context.Context, key string) (string, bool, error) {
	var e mongoEntry
	err := m.collection.FindOne(ctx, bson.M{"_id": key}).Decode(&e)
	if err == mongo.ErrNoDocuments {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrapf(err, "finding %q", key)
	}
	return e.Value, true, nil
}

func (m *Mongo) Set(ctx context.Context, key, value string) error {
	e := mongoEntry{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	_, err := m.collection.ReplaceOne(ctx, bson.M{"_id": key}, e, options.Replace().SetUpsert(true))
	if err != nil {
		return errors.Wrapf(err, "replacing %q", key)
	}
	return nil
}

func (m *Mongo) Delete(ctx context.Context, key string) error {
	if _, err := m.collection.DeleteOne(ctx, bson.M{"_id": key}); err != nil {
		return errors.Wrapf(err, "deleting %q", key)
	}
	return nil
}

func (m *Mongo) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}
