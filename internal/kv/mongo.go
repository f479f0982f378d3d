package kv

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

var _ Store = (*MongoStore)(nil)

const (
	mongoDefaultDatabase = "stickers"
	mongoCollection      = "kv_entries"
)

// MongoStore keeps one document per key: {_id: key, value: string}.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
	quota  int64
}

type mongoEntry struct {
	Key   string `bson:"_id"`
	Value string `bson:"value"`
}

// OpenMongo connects to MongoDB. The database is taken from the URI path and
// defaults to "stickers".
func OpenMongo(ctx context.Context, uri string, quota int64) (*MongoStore, error) {
	if uri == "" {
		return nil, fmt.Errorf("mongo store: URI required")
	}
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	coll := client.Database(MongoDatabaseName(uri)).Collection(mongoCollection)
	return &MongoStore{client: client, coll: coll, quota: quota}, nil
}

// MongoDatabaseName extracts the database name from a mongodb:// or
// mongodb+srv:// URI.
func MongoDatabaseName(uri string) string {
	u, err := url.Parse(uri)
	if err != nil {
		return mongoDefaultDatabase
	}
	if name := strings.Trim(u.Path, "/"); name != "" {
		return name
	}
	return mongoDefaultDatabase
}

func (s *MongoStore) Get(ctx context.Context, key string) (string, bool, error) {
	var entry mongoEntry
	err := s.coll.FindOne(ctx, bson.D{{Key: "_id", Value: key}}).Decode(&entry)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %q: %w", key, err)
	}
	return entry.Value, true, nil
}

func (s *MongoStore) Set(ctx context.Context, key, value string) error {
	if s.quota > 0 {
		used, err := s.usedBytes(ctx, key)
		if err != nil {
			return err
		}
		if err := checkQuota(s.quota, used, key, value); err != nil {
			return err
		}
	}
	_, err := s.coll.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: key}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "value", Value: value}}}},
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}
	return nil
}

func (s *MongoStore) Remove(ctx context.Context, key string) error {
	if _, err := s.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: key}}); err != nil {
		return fmt.Errorf("remove %q: %w", key, err)
	}
	return nil
}

func (s *MongoStore) Close() error {
	return s.client.Disconnect(context.Background())
}

func (s *MongoStore) usedBytes(ctx context.Context, skip string) (int64, error) {
	cursor, err := s.coll.Find(ctx, bson.D{{Key: "_id", Value: bson.D{{Key: "$ne", Value: skip}}}})
	if err != nil {
		return 0, fmt.Errorf("measure store: %w", err)
	}
	defer cursor.Close(ctx)

	var used int64
	for cursor.Next(ctx) {
		var entry mongoEntry
		if err := cursor.Decode(&entry); err != nil {
			return 0, fmt.Errorf("decode entry: %w", err)
		}
		used += entrySize(entry.Key, entry.Value)
	}
	return used, cursor.Err()
}
