// Package mongostore keeps resume cursors in a MongoDB collection.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/blockedby/media-indexer/internal/models"
)

// CollectionName is the collection holding one document per channel.
const CollectionName = "index_resume"

// ResumeStore reads and upserts resume cursors, keyed by channel id.
type ResumeStore struct {
	coll *mongo.Collection
}

// NewResumeStore creates a store on top of an existing collection.
func NewResumeStore(coll *mongo.Collection) *ResumeStore {
	return &ResumeStore{coll: coll}
}

// Connect opens a client and returns the store together with the client to close on shutdown.
func Connect(ctx context.Context, uri, database string) (*ResumeStore, *mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, fmt.Errorf("connect to mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("ping mongo: %w", err)
	}

	return NewResumeStore(client.Database(database).Collection(CollectionName)), client, nil
}

// Get returns the resume cursor of a channel; found is false when no document exists.
func (s *ResumeStore) Get(ctx context.Context, chatID int64) (lastID int, found bool, err error) {
	var rec models.ResumeRecord
	err = s.coll.FindOne(ctx, bson.M{"_id": chatID}).Decode(&rec)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("find resume cursor: %w", err)
	}
	return rec.LastID, true, nil
}

// Set upserts the resume cursor of a channel.
func (s *ResumeStore) Set(ctx context.Context, chatID int64, lastID int) error {
	_, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": chatID},
		bson.M{"$set": bson.M{"last_id": lastID, "updated_at": time.Now().UTC()}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("upsert resume cursor: %w", err)
	}
	return nil
}

// List returns all stored cursors, most recently updated first.
func (s *ResumeStore) List(ctx context.Context) ([]models.ResumeRecord, error) {
	cur, err := s.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("find resume cursors: %w", err)
	}
	var records []models.ResumeRecord
	if err := cur.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("decode resume cursors: %w", err)
	}
	return records, nil
}
