package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/hgp-lactario/milkbank/internal/domain/models"
)

// BatchRepository persists milk batches.
type BatchRepository struct {
	coll *mongo.Collection
}

// Insert stores a new batch.
func (r *BatchRepository) Insert(ctx context.Context, batch models.MilkBatch) error {
	if _, err := r.coll.InsertOne(ctx, batch); err != nil {
		return fmt.Errorf("insert batch: %w", err)
	}
	return nil
}

// Get loads one batch by ID.
func (r *BatchRepository) Get(ctx context.Context, id string) (models.MilkBatch, error) {
	var batch models.MilkBatch
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&batch)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.MilkBatch{}, ErrNotFound
	}
	if err != nil {
		return models.MilkBatch{}, fmt.Errorf("get batch: %w", err)
	}
	return batch, nil
}

// Update replaces the stored batch document, guarded by the version it
// was read at. The replacement bumps the version.
func (r *BatchRepository) Update(ctx context.Context, batch models.MilkBatch) error {
	readVersion := batch.Version
	batch.Version++
	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": batch.ID, "version": readVersion}, batch)
	if err != nil {
		return fmt.Errorf("update batch: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrVersionConflict
	}
	return nil
}

// ApplyConsumption decrements the batch volume with a version check so
// concurrent administrations cannot lose updates. The caller re-reads
// and re-validates on ErrVersionConflict.
func (r *BatchRepository) ApplyConsumption(ctx context.Context, id string, version int64, volumeML float64, at time.Time) error {
	filter := bson.M{"_id": id, "version": version, "volume_total_ml": bson.M{"$gte": volumeML}}
	update := bson.M{
		"$inc": bson.M{"volume_total_ml": -volumeML, "version": 1},
		"$set": bson.M{"updated_at": at},
	}
	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("apply consumption: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrVersionConflict
	}
	return nil
}

// List returns batches, optionally filtered by status.
func (r *BatchRepository) List(ctx context.Context, status models.BatchStatus) ([]models.MilkBatch, error) {
	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}
	return r.find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
}

// ListReleasedFEFO returns released batches with remaining volume,
// first-expired-first-out.
func (r *BatchRepository) ListReleasedFEFO(ctx context.Context) ([]models.MilkBatch, error) {
	filter := bson.M{"status": models.BatchReleased, "volume_total_ml": bson.M{"$gt": 0}}
	return r.find(ctx, filter, options.Find().SetSort(bson.D{{Key: "expires_at", Value: 1}}))
}

// ListExpiredBefore returns non-discarded batches whose expiration is
// past the given instant.
func (r *BatchRepository) ListExpiredBefore(ctx context.Context, now time.Time) ([]models.MilkBatch, error) {
	filter := bson.M{
		"status":     bson.M{"$ne": models.BatchDiscarded},
		"expires_at": bson.M{"$lt": now},
	}
	return r.find(ctx, filter, options.Find().SetSort(bson.D{{Key: "expires_at", Value: 1}}))
}

// ListCreatedBetween returns batches created within [from, to).
func (r *BatchRepository) ListCreatedBetween(ctx context.Context, from, to time.Time) ([]models.MilkBatch, error) {
	filter := bson.M{"created_at": bson.M{"$gte": from, "$lt": to}}
	return r.find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
}

// CountCreatedOn counts batches pooled on the given calendar day, used
// to derive the next folio sequence number.
func (r *BatchRepository) CountCreatedOn(ctx context.Context, day time.Time) (int64, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	n, err := r.coll.CountDocuments(ctx, bson.M{"created_at": bson.M{"$gte": start, "$lt": start.AddDate(0, 0, 1)}})
	if err != nil {
		return 0, fmt.Errorf("count batches: %w", err)
	}
	return n, nil
}

func (r *BatchRepository) find(ctx context.Context, filter bson.M, opts ...*options.FindOptions) ([]models.MilkBatch, error) {
	cursor, err := r.coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}

	var batches []models.MilkBatch
	if err := cursor.All(ctx, &batches); err != nil {
		return nil, fmt.Errorf("decode batches: %w", err)
	}
	return batches, nil
}
