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

// eligibleStatuses are the jar states that may enter a pooling session.
var eligibleStatuses = []models.JarStatus{models.JarRaw, models.JarVerified, models.JarAnalyzed}

// JarRepository persists milk jars.
type JarRepository struct {
	coll *mongo.Collection
}

// Insert stores a new jar.
func (r *JarRepository) Insert(ctx context.Context, jar models.MilkJar) error {
	if _, err := r.coll.InsertOne(ctx, jar); err != nil {
		return fmt.Errorf("insert jar: %w", err)
	}
	return nil
}

// Get loads one jar by ID.
func (r *JarRepository) Get(ctx context.Context, id string) (models.MilkJar, error) {
	var jar models.MilkJar
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&jar)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.MilkJar{}, ErrNotFound
	}
	if err != nil {
		return models.MilkJar{}, fmt.Errorf("get jar: %w", err)
	}
	return jar, nil
}

// Update replaces the stored jar document.
func (r *JarRepository) Update(ctx context.Context, jar models.MilkJar) error {
	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": jar.ID}, jar)
	if err != nil {
		return fmt.Errorf("update jar: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns jars, optionally filtered by status.
func (r *JarRepository) List(ctx context.Context, status models.JarStatus) ([]models.MilkJar, error) {
	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}
	return r.find(ctx, filter, options.Find().SetSort(bson.D{{Key: "extracted_at", Value: 1}}))
}

// ListEligible returns the unpooled jars of one milk type that may join
// a batch, ordered oldest-first by extraction time.
func (r *JarRepository) ListEligible(ctx context.Context, milkType models.MilkType) ([]models.MilkJar, error) {
	filter := bson.M{
		"status": bson.M{"$in": eligibleStatuses},
		"type":   milkType,
		"$or": bson.A{
			bson.M{"batch_id": bson.M{"$exists": false}},
			bson.M{"batch_id": ""},
		},
	}
	return r.find(ctx, filter, options.Find().SetSort(bson.D{{Key: "extracted_at", Value: 1}, {Key: "folio", Value: 1}}))
}

// ListByBatch returns the member jars of a batch.
func (r *JarRepository) ListByBatch(ctx context.Context, batchID string) ([]models.MilkJar, error) {
	return r.find(ctx, bson.M{"batch_id": batchID}, options.Find().SetSort(bson.D{{Key: "extracted_at", Value: 1}}))
}

// ListReceivedBetween returns jars created within [from, to).
func (r *JarRepository) ListReceivedBetween(ctx context.Context, from, to time.Time) ([]models.MilkJar, error) {
	filter := bson.M{"created_at": bson.M{"$gte": from, "$lt": to}}
	return r.find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
}

// CountReceivedOn counts jars registered on the given calendar day,
// used to derive the next folio sequence number.
func (r *JarRepository) CountReceivedOn(ctx context.Context, day time.Time) (int64, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	n, err := r.coll.CountDocuments(ctx, bson.M{"created_at": bson.M{"$gte": start, "$lt": start.AddDate(0, 0, 1)}})
	if err != nil {
		return 0, fmt.Errorf("count jars: %w", err)
	}
	return n, nil
}

// AssignBatch marks the jars as consumed by a batch and appends the
// pooling action to their history.
func (r *JarRepository) AssignBatch(ctx context.Context, jarIDs []string, batchID string, entry models.HistoryEntry) error {
	update := bson.M{
		"$set":  bson.M{"batch_id": batchID, "updated_at": entry.At},
		"$push": bson.M{"history": entry},
	}
	res, err := r.coll.UpdateMany(ctx, bson.M{"_id": bson.M{"$in": jarIDs}}, update)
	if err != nil {
		return fmt.Errorf("assign batch: %w", err)
	}
	if res.MatchedCount != int64(len(jarIDs)) {
		return fmt.Errorf("assign batch: matched %d of %d jars", res.MatchedCount, len(jarIDs))
	}
	return nil
}

func (r *JarRepository) find(ctx context.Context, filter bson.M, opts ...*options.FindOptions) ([]models.MilkJar, error) {
	cursor, err := r.coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, fmt.Errorf("list jars: %w", err)
	}

	var jars []models.MilkJar
	if err := cursor.All(ctx, &jars); err != nil {
		return nil, fmt.Errorf("decode jars: %w", err)
	}
	return jars, nil
}
