package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStorage keeps one document per session:
//
//	{_id: sid, values: {key: value}, expiresAt: time}
//
// A TTL index on expiresAt lets MongoDB reap idle sessions.
type MongoStorage struct {
	coll *mongo.Collection
	ttl  time.Duration
}

type mongoSession struct {
	ID        string            `bson:"_id"`
	Values    map[string]string `bson:"values"`
	ExpiresAt time.Time         `bson:"expiresAt"`
}

func NewMongoStorage(ctx context.Context, coll *mongo.Collection, ttl time.Duration) (*MongoStorage, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "expiresAt", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create session TTL index: %w", err)
	}
	return &MongoStorage{coll: coll, ttl: ttl}, nil
}

func (m *MongoStorage) Get(ctx context.Context, sid, key string) ([]byte, error) {
	var doc mongoSession
	err := m.coll.FindOne(ctx, bson.M{"_id": sid, "expiresAt": bson.M{"$gt": time.Now()}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}
	v, ok := doc.Values[key]
	if !ok {
		return nil, ErrNotFound
	}
	return []byte(v), nil
}

func (m *MongoStorage) Set(ctx context.Context, sid, key string, value []byte) error {
	update := bson.M{"$set": bson.M{
		"values." + key: string(value),
		"expiresAt":     time.Now().Add(m.ttl),
	}}
	_, err := m.coll.UpdateOne(ctx, bson.M{"_id": sid}, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	return nil
}

func (m *MongoStorage) Delete(ctx context.Context, sid string, keys ...string) error {
	var err error
	if len(keys) == 0 {
		_, err = m.coll.DeleteOne(ctx, bson.M{"_id": sid})
	} else {
		unset := bson.M{}
		for _, k := range keys {
			unset["values."+k] = ""
		}
		_, err = m.coll.UpdateOne(ctx, bson.M{"_id": sid}, bson.M{"$unset": unset})
	}
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
