package store

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const recordsCollection = "records"

type record struct {
	Key   string `bson:"_id"`
	Value []byte `bson:"value"`
}

// MongoBackend stores one document per key, letting several devices share a
// local record set.
type MongoBackend struct {
	collection *mongo.Collection
}

func NewMongoBackend(db *mongo.Database) *MongoBackend {
	return &MongoBackend{collection: db.Collection(recordsCollection)}
}

var _ Backend = (*MongoBackend)(nil)

func (m *MongoBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var rec record
	err := m.collection.FindOne(ctx, bson.M{"_id": key}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return rec.Value, true, nil
}

func (m *MongoBackend) Put(ctx context.Context, key string, value []byte) error {
	_, err := m.collection.ReplaceOne(ctx,
		bson.M{"_id": key},
		record{Key: key, Value: value},
		options.Replace().SetUpsert(true),
	)
	return err
}

func (m *MongoBackend) Delete(ctx context.Context, key string) error {
	_, err := m.collection.DeleteOne(ctx, bson.M{"_id": key})
	return err
}

func (m *MongoBackend) Keys(ctx context.Context) ([]string, error) {
	cursor, err := m.collection.Find(ctx, bson.M{},
		options.Find().SetProjection(bson.M{"_id": 1}).SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var keys []string
	for cursor.Next(ctx) {
		var rec record
		if err := cursor.Decode(&rec); err != nil {
			return nil, err
		}
		keys = append(keys, rec.Key)
	}
	return keys, cursor.Err()
}
