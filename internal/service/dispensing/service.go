// Package dispensing records feeding events against released batches
// and keeps the receiver census. Each administration appends one
// immutable ledger record and applies a version-checked volume
// decrement, so concurrent dispensations cannot lose updates.
package dispensing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hgp-lactario/milkbank/internal/domain/lifecycle"
	"github.com/hgp-lactario/milkbank/internal/domain/models"
	"github.com/hgp-lactario/milkbank/internal/repository/mongodb"
	"github.com/hgp-lactario/milkbank/pkg/folio"
)

// consumptionRetries bounds the re-read loop on version conflicts.
const consumptionRetries = 3

// BatchStore is the batch persistence required by the service.
type BatchStore interface {
	Get(ctx context.Context, id string) (models.MilkBatch, error)
	ApplyConsumption(ctx context.Context, id string, version int64, volumeML float64, at time.Time) error
}

// LedgerStore is the administration ledger persistence.
type LedgerStore interface {
	Append(ctx context.Context, record models.AdministrationRecord) error
	Void(ctx context.Context, id, reason string) error
	List(ctx context.Context, batchID, receiverID string) ([]models.AdministrationRecord, error)
	CountOn(ctx context.Context, day time.Time) (int64, error)
}

// ReceiverStore is the receiver persistence required by the service.
type ReceiverStore interface {
	Insert(ctx context.Context, receiver models.Receiver) error
	Get(ctx context.Context, id string) (models.Receiver, error)
	Update(ctx context.Context, receiver models.Receiver) error
	List(ctx context.Context, includeDischarged bool) ([]models.Receiver, error)
}

// Service implements dose administration and receiver management.
type Service struct {
	batches   BatchStore
	ledger    LedgerStore
	receivers ReceiverStore
	tempMinC  float64
	tempMaxC  float64
	logger    *zap.Logger
	now       func() time.Time
}

// NewService constructs the dispensing service.
func NewService(batches BatchStore, ledger LedgerStore, receivers ReceiverStore, tempMinC, tempMaxC float64, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		batches:   batches,
		ledger:    ledger,
		receivers: receivers,
		tempMinC:  tempMinC,
		tempMaxC:  tempMaxC,
		logger:    logger,
		now:       time.Now,
	}
}

// AdministerInput carries one feeding event.
type AdministerInput struct {
	ReceiverID     string
	BatchID        string
	PrescribedML   float64
	AdministeredML float64
	DiscardedML    float64
	DiscardReason  string
	TempC          float64
	Route          models.AdministrationRoute
	Responsible    string
}

// Administer validates and records one feeding event. The ledger record
// is written first, then the batch decrement is applied under a version
// check; on conflict the batch is re-read and the dose re-validated so
// the conservation invariant holds under concurrent dispensation. If the
// decrement ultimately cannot be applied the record is voided and the
// error returned.
func (s *Service) Administer(ctx context.Context, in AdministerInput) (models.AdministrationRecord, error) {
	receiver, err := s.receivers.Get(ctx, in.ReceiverID)
	if err != nil {
		return models.AdministrationRecord{}, err
	}
	if receiver.Discharged {
		return models.AdministrationRecord{}, &lifecycle.ValidationError{Field: "receiver", Reason: "already discharged"}
	}

	batch, err := s.batches.Get(ctx, in.BatchID)
	if err != nil {
		return models.AdministrationRecord{}, err
	}

	req := lifecycle.DoseRequest{
		PrescribedML:   in.PrescribedML,
		AdministeredML: in.AdministeredML,
		DiscardedML:    in.DiscardedML,
		DiscardReason:  in.DiscardReason,
		TempC:          in.TempC,
	}
	limits := lifecycle.DoseLimits{
		PerTakeML: receiver.Prescription.PerTakeML,
		TempMinC:  s.tempMinC,
		TempMaxC:  s.tempMaxC,
	}

	warnings, err := lifecycle.ValidateDose(batch, req, limits)
	if err != nil {
		return models.AdministrationRecord{}, err
	}

	now := s.now().UTC()
	seq, err := s.ledger.CountOn(ctx, now)
	if err != nil {
		return models.AdministrationRecord{}, err
	}

	record := models.AdministrationRecord{
		ID:             folio.NewID(),
		Folio:          folio.Format(folio.PrefixAdministration, now, int(seq)+1),
		ReceiverID:     receiver.ID,
		ReceiverName:   receiver.FullName,
		BatchID:        batch.ID,
		BatchFolio:     batch.Folio,
		PrescribedML:   in.PrescribedML,
		AdministeredML: in.AdministeredML,
		DiscardedML:    in.DiscardedML,
		DiscardReason:  in.DiscardReason,
		TempC:          in.TempC,
		Route:          in.Route,
		Responsible:    in.Responsible,
		Warnings:       warnings,
		At:             now,
	}

	if err := s.ledger.Append(ctx, record); err != nil {
		return models.AdministrationRecord{}, err
	}

	consumed := in.AdministeredML + in.DiscardedML
	if err := s.applyConsumption(ctx, batch, req, limits, consumed); err != nil {
		if voidErr := s.ledger.Void(ctx, record.ID, err.Error()); voidErr != nil {
			s.logger.Error("failed to void administration record",
				zap.String("record_id", record.ID), zap.Error(voidErr))
		}
		return models.AdministrationRecord{}, err
	}

	s.logger.Info("dose administered",
		zap.String("folio", record.Folio), zap.String("batch_folio", batch.Folio),
		zap.Float64("administered_ml", in.AdministeredML), zap.Float64("discarded_ml", in.DiscardedML),
		zap.Int("warnings", len(warnings)))
	return record, nil
}

func (s *Service) applyConsumption(ctx context.Context, batch models.MilkBatch, req lifecycle.DoseRequest, limits lifecycle.DoseLimits, consumed float64) error {
	for attempt := 0; attempt < consumptionRetries; attempt++ {
		err := s.batches.ApplyConsumption(ctx, batch.ID, batch.Version, consumed, s.now().UTC())
		if err == nil {
			return nil
		}
		if !errors.Is(err, mongodb.ErrVersionConflict) {
			return err
		}

		// Another writer touched the batch. Re-read and re-validate
		// before trying again.
		batch, err = s.batches.Get(ctx, batch.ID)
		if err != nil {
			return err
		}
		if _, err := lifecycle.ValidateDose(batch, req, limits); err != nil {
			return err
		}
	}
	return fmt.Errorf("apply consumption on batch %s: %w", batch.ID, mongodb.ErrVersionConflict)
}

// ListAdministrations returns ledger records filtered by batch and/or receiver.
func (s *Service) ListAdministrations(ctx context.Context, batchID, receiverID string) ([]models.AdministrationRecord, error) {
	return s.ledger.List(ctx, batchID, receiverID)
}

// ReceiverInput carries the admission form values.
type ReceiverInput struct {
	FullName     string
	RecordNumber string
	Prescription PrescriptionInput
}

// PrescriptionInput carries a standing feeding order.
type PrescriptionInput struct {
	TotalDailyML       float64
	FeedingsPerDay     int
	MilkTypePreference models.MilkType
	CaloricRequirement string
}

func buildPrescription(in PrescriptionInput) (models.Prescription, error) {
	if in.TotalDailyML <= 0 {
		return models.Prescription{}, &lifecycle.ValidationError{Field: "total daily volume", Reason: "must be positive"}
	}
	if in.FeedingsPerDay < 1 {
		return models.Prescription{}, &lifecycle.ValidationError{Field: "feedings per day", Reason: "must be at least 1"}
	}
	return models.Prescription{
		TotalDailyML:       in.TotalDailyML,
		FeedingsPerDay:     in.FeedingsPerDay,
		PerTakeML:          in.TotalDailyML / float64(in.FeedingsPerDay),
		MilkTypePreference: in.MilkTypePreference,
		CaloricRequirement: in.CaloricRequirement,
	}, nil
}

// AdmitReceiver registers a neonate with their standing prescription.
func (s *Service) AdmitReceiver(ctx context.Context, in ReceiverInput) (models.Receiver, error) {
	if in.FullName == "" {
		return models.Receiver{}, &lifecycle.ValidationError{Field: "full name", Reason: "must not be empty"}
	}
	prescription, err := buildPrescription(in.Prescription)
	if err != nil {
		return models.Receiver{}, err
	}

	now := s.now().UTC()
	receiver := models.Receiver{
		ID:           folio.NewID(),
		FullName:     in.FullName,
		RecordNumber: in.RecordNumber,
		AdmittedAt:   now,
		Prescription: prescription,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.receivers.Insert(ctx, receiver); err != nil {
		return models.Receiver{}, err
	}

	s.logger.Info("receiver admitted", zap.String("receiver_id", receiver.ID))
	return receiver, nil
}

// UpdatePrescription replaces the standing feeding order.
func (s *Service) UpdatePrescription(ctx context.Context, receiverID string, in PrescriptionInput) (models.Receiver, error) {
	receiver, err := s.receivers.Get(ctx, receiverID)
	if err != nil {
		return models.Receiver{}, err
	}
	if receiver.Discharged {
		return models.Receiver{}, &lifecycle.ValidationError{Field: "receiver", Reason: "already discharged"}
	}

	prescription, err := buildPrescription(in)
	if err != nil {
		return models.Receiver{}, err
	}

	receiver.Prescription = prescription
	receiver.UpdatedAt = s.now().UTC()
	if err := s.receivers.Update(ctx, receiver); err != nil {
		return models.Receiver{}, err
	}
	return receiver, nil
}

// DischargeReceiver archives the receiver at the end of their stay.
func (s *Service) DischargeReceiver(ctx context.Context, receiverID string) (models.Receiver, error) {
	receiver, err := s.receivers.Get(ctx, receiverID)
	if err != nil {
		return models.Receiver{}, err
	}
	if receiver.Discharged {
		return receiver, nil
	}

	now := s.now().UTC()
	receiver.Discharged = true
	receiver.DischargedAt = &now
	receiver.UpdatedAt = now
	if err := s.receivers.Update(ctx, receiver); err != nil {
		return models.Receiver{}, err
	}

	s.logger.Info("receiver discharged", zap.String("receiver_id", receiver.ID))
	return receiver, nil
}

// ListReceivers returns the census.
func (s *Service) ListReceivers(ctx context.Context, includeDischarged bool) ([]models.Receiver, error) {
	return s.receivers.List(ctx, includeDischarged)
}

// GetReceiver loads one receiver.
func (s *Service) GetReceiver(ctx context.Context, id string) (models.Receiver, error) {
	return s.receivers.Get(ctx, id)
}
