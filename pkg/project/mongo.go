package project

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// mongoCollection is the collection project documents live in.
const mongoCollection = "projects"

// MongoStore persists project documents in a MongoDB collection, one
// document per project with the project ID as _id.
type MongoStore struct {
	client *mongo.Client
	col    *mongo.Collection
}

// NewMongoStore connects to the MongoDB instance at uri and stores
// projects in the named database. The connection is verified with a ping
// before the store is returned.
func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}
	return &MongoStore{
		client: client,
		col:    client.Database(database).Collection(mongoCollection),
	}, nil
}

// Save upserts p by its ID.
func (s *MongoStore) Save(ctx context.Context, p *Project) error {
	if p.ID == "" {
		return fmt.Errorf("project has no ID")
	}
	_, err := s.col.ReplaceOne(ctx, bson.M{"_id": p.ID}, p,
		options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("upsert project %s: %w", p.ID, err)
	}
	return nil
}

// Load retrieves the project with the given ID, or ErrNotFound.
func (s *MongoStore) Load(ctx context.Context, id string) (*Project, error) {
	var p Project
	err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load project %s: %w", id, err)
	}
	return &p, nil
}

// Delete removes the project with the given ID. Deleting an absent
// project is not an error.
func (s *MongoStore) Delete(ctx context.Context, id string) error {
	if _, err := s.col.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("delete project %s: %w", id, err)
	}
	return nil
}

// Close disconnects from MongoDB.
func (s *MongoStore) Close() error {
	return s.client.Disconnect(context.Background())
}

// Ensure MongoStore implements Store.
var _ Store = (*MongoStore)(nil)
