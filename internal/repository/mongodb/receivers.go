package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/hgp-lactario/milkbank/internal/domain/models"
)

// ReceiverRepository persists receivers (neonate patients).
type ReceiverRepository struct {
	coll *mongo.Collection
}

// Insert stores a new receiver.
func (r *ReceiverRepository) Insert(ctx context.Context, receiver models.Receiver) error {
	if _, err := r.coll.InsertOne(ctx, receiver); err != nil {
		return fmt.Errorf("insert receiver: %w", err)
	}
	return nil
}

// Get loads one receiver by ID.
func (r *ReceiverRepository) Get(ctx context.Context, id string) (models.Receiver, error) {
	var receiver models.Receiver
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&receiver)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Receiver{}, ErrNotFound
	}
	if err != nil {
		return models.Receiver{}, fmt.Errorf("get receiver: %w", err)
	}
	return receiver, nil
}

// Update replaces the stored receiver document.
func (r *ReceiverRepository) Update(ctx context.Context, receiver models.Receiver) error {
	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": receiver.ID}, receiver)
	if err != nil {
		return fmt.Errorf("update receiver: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns receivers; discharged ones are excluded unless asked for.
func (r *ReceiverRepository) List(ctx context.Context, includeDischarged bool) ([]models.Receiver, error) {
	filter := bson.M{}
	if !includeDischarged {
		filter["discharged"] = bson.M{"$ne": true}
	}

	cursor, err := r.coll.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list receivers: %w", err)
	}

	var receivers []models.Receiver
	if err := cursor.All(ctx, &receivers); err != nil {
		return nil, fmt.Errorf("decode receivers: %w", err)
	}
	return receivers, nil
}
