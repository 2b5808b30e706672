package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/hgp-lactario/milkbank/internal/domain/models"
)

// AdministrationRepository is the append-only feeding ledger. Records
// are inserted once and never rewritten; the only permitted mutation is
// the void marker set when the batch decrement could not be applied.
type AdministrationRepository struct {
	coll *mongo.Collection
}

// Append inserts one ledger record.
func (r *AdministrationRepository) Append(ctx context.Context, record models.AdministrationRecord) error {
	if _, err := r.coll.InsertOne(ctx, record); err != nil {
		return fmt.Errorf("append administration record: %w", err)
	}
	return nil
}

// Void marks a record void. The record stays in the ledger for audit.
func (r *AdministrationRepository) Void(ctx context.Context, id, reason string) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"voided": true, "void_reason": reason},
	})
	if err != nil {
		return fmt.Errorf("void administration record: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns ledger records, newest first, optionally filtered by
// batch and/or receiver.
func (r *AdministrationRepository) List(ctx context.Context, batchID, receiverID string) ([]models.AdministrationRecord, error) {
	filter := bson.M{}
	if batchID != "" {
		filter["batch_id"] = batchID
	}
	if receiverID != "" {
		filter["receiver_id"] = receiverID
	}
	return r.find(ctx, filter, options.Find().SetSort(bson.D{{Key: "at", Value: -1}}))
}

// ListBetween returns records stamped within [from, to).
func (r *AdministrationRepository) ListBetween(ctx context.Context, from, to time.Time) ([]models.AdministrationRecord, error) {
	filter := bson.M{"at": bson.M{"$gte": from, "$lt": to}}
	return r.find(ctx, filter, options.Find().SetSort(bson.D{{Key: "at", Value: 1}}))
}

// CountOn counts records stamped on the given calendar day, used to
// derive the next folio sequence number.
func (r *AdministrationRepository) CountOn(ctx context.Context, day time.Time) (int64, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	n, err := r.coll.CountDocuments(ctx, bson.M{"at": bson.M{"$gte": start, "$lt": start.AddDate(0, 0, 1)}})
	if err != nil {
		return 0, fmt.Errorf("count administration records: %w", err)
	}
	return n, nil
}

func (r *AdministrationRepository) find(ctx context.Context, filter bson.M, opts ...*options.FindOptions) ([]models.AdministrationRecord, error) {
	cursor, err := r.coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, fmt.Errorf("list administration records: %w", err)
	}

	var records []models.AdministrationRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("decode administration records: %w", err)
	}
	return records, nil
}
