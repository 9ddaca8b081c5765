package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/m2tx/gemini_adapter/internal/model"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DefaultCollection is used when no collection name is configured.
const DefaultCollection = "threads"

// threadDocument is one thread. created_at is written once, on insert; the
// other fields describe the latest run.
type threadDocument struct {
	ID        string          `bson:"_id"`
	History   []model.Content `bson:"history"`
	RunID     string          `bson:"run_id,omitempty"`
	Model     string          `bson:"model,omitempty"`
	Runs      int             `bson:"runs"`
	CreatedAt time.Time       `bson:"created_at"`
	UpdatedAt time.Time       `bson:"updated_at"`
}

// MongoThreadRepository implements ThreadRepository on a MongoDB collection,
// one document per thread.
type MongoThreadRepository struct {
	collection *mongo.Collection
	now        func() time.Time
}

// NewMongoThreadRepository creates a MongoThreadRepository.
// collectionName defaults to DefaultCollection if empty.
func NewMongoThreadRepository(db *mongo.Database, collectionName string) *MongoThreadRepository {
	if collectionName == "" {
		collectionName = DefaultCollection
	}
	return &MongoThreadRepository{
		collection: db.Collection(collectionName),
		now:        time.Now,
	}
}

// Save upserts the thread document, counting the runs it has seen.
func (r *MongoThreadRepository) Save(ctx context.Context, turn Turn) error {
	history := turn.History
	if history == nil {
		history = []model.Content{}
	}
	now := r.now().UTC()

	filter := bson.M{"_id": turn.ThreadID}
	update := bson.M{
		"$set": bson.M{
			"history":    history,
			"run_id":     turn.RunID,
			"model":      turn.Model,
			"updated_at": now,
		},
		"$setOnInsert": bson.M{"created_at": now},
		"$inc":         bson.M{"runs": 1},
	}
	opts := options.Update().SetUpsert(true)

	if _, err := r.collection.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("repository: upsert thread %q run %q: %w", turn.ThreadID, turn.RunID, err)
	}

	return nil
}

func (r *MongoThreadRepository) Load(ctx context.Context, threadID string) ([]model.Content, error) {
	filter := bson.M{"_id": threadID}

	var doc threadDocument
	err := r.collection.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("repository: find thread %q: %w", threadID, err)
	}

	return doc.History, nil
}

func (r *MongoThreadRepository) Delete(ctx context.Context, threadID string) error {
	filter := bson.M{"_id": threadID}

	if _, err := r.collection.DeleteOne(ctx, filter); err != nil {
		return fmt.Errorf("repository: delete thread %q: %w", threadID, err)
	}

	return nil
}
