package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/hgp-lactario/milkbank/internal/domain/models"
)

// DonorRepository persists donors.
type DonorRepository struct {
	coll *mongo.Collection
}

// Insert stores a new donor.
func (r *DonorRepository) Insert(ctx context.Context, donor models.Donor) error {
	if _, err := r.coll.InsertOne(ctx, donor); err != nil {
		return fmt.Errorf("insert donor: %w", err)
	}
	return nil
}

// Get loads one donor by ID.
func (r *DonorRepository) Get(ctx context.Context, id string) (models.Donor, error) {
	var donor models.Donor
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&donor)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Donor{}, ErrNotFound
	}
	if err != nil {
		return models.Donor{}, fmt.Errorf("get donor: %w", err)
	}
	return donor, nil
}

// Update replaces the stored donor document.
func (r *DonorRepository) Update(ctx context.Context, donor models.Donor) error {
	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": donor.ID}, donor)
	if err != nil {
		return fmt.Errorf("update donor: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns donors, optionally filtered by status.
func (r *DonorRepository) List(ctx context.Context, status models.DonorStatus) ([]models.Donor, error) {
	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}

	cursor, err := r.coll.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list donors: %w", err)
	}

	var donors []models.Donor
	if err := cursor.All(ctx, &donors); err != nil {
		return nil, fmt.Errorf("decode donors: %w", err)
	}
	return donors, nil
}

// CountByStatus counts donors in a given status.
func (r *DonorRepository) CountByStatus(ctx context.Context, status models.DonorStatus) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{"status": status})
	if err != nil {
		return 0, fmt.Errorf("count donors: %w", err)
	}
	return n, nil
}
