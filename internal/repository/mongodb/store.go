// Package mongodb is the persistence gateway. Each collection gets its
// own repository with single-entity CRUD; no whole-collection round
// trips. The engine never touches this package directly.
package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrNotFound is returned when a lookup matches no document.
var ErrNotFound = errors.New("document not found")

// ErrVersionConflict is returned when a version-checked update matched
// no document, meaning a concurrent writer got there first.
var ErrVersionConflict = errors.New("version conflict")

const (
	collDonors          = "donors"
	collJars            = "milk_jars"
	collBatches         = "milk_batches"
	collAdministrations = "administration_records"
	collReceivers       = "receivers"
	collUsers           = "users"
)

// Store owns the MongoDB client and hands out per-collection repositories.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// NewStore connects to MongoDB and verifies the connection.
func NewStore(ctx context.Context, uri, dbName string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &Store{client: client, db: client.Database(dbName)}, nil
}

// Close closes the MongoDB connection.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// Donors returns the donor repository.
func (s *Store) Donors() *DonorRepository {
	return &DonorRepository{coll: s.db.Collection(collDonors)}
}

// Jars returns the milk jar repository.
func (s *Store) Jars() *JarRepository {
	return &JarRepository{coll: s.db.Collection(collJars)}
}

// Batches returns the milk batch repository.
func (s *Store) Batches() *BatchRepository {
	return &BatchRepository{coll: s.db.Collection(collBatches)}
}

// Administrations returns the administration ledger repository.
func (s *Store) Administrations() *AdministrationRepository {
	return &AdministrationRepository{coll: s.db.Collection(collAdministrations)}
}

// Receivers returns the receiver repository.
func (s *Store) Receivers() *ReceiverRepository {
	return &ReceiverRepository{coll: s.db.Collection(collReceivers)}
}

// Users returns the staff account repository.
func (s *Store) Users() *UserRepository {
	return &UserRepository{coll: s.db.Collection(collUsers)}
}
