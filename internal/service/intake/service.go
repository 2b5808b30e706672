// Package intake covers donor registration and jar reception: the front
// door of the bank, where milk enters as Raw jars and donors are
// screened before their milk can be pooled.
package intake

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hgp-lactario/milkbank/internal/domain/lifecycle"
	"github.com/hgp-lactario/milkbank/internal/domain/models"
	"github.com/hgp-lactario/milkbank/pkg/folio"
)

// ErrDonorNotActive indicates milk was offered by a donor who is not
// cleared to donate.
var ErrDonorNotActive = errors.New("donor is not active")

// DonorStore is the donor persistence required by the service.
type DonorStore interface {
	Insert(ctx context.Context, donor models.Donor) error
	Get(ctx context.Context, id string) (models.Donor, error)
	Update(ctx context.Context, donor models.Donor) error
	List(ctx context.Context, status models.DonorStatus) ([]models.Donor, error)
}

// JarStore is the jar persistence required by the service.
type JarStore interface {
	Insert(ctx context.Context, jar models.MilkJar) error
	Get(ctx context.Context, id string) (models.MilkJar, error)
	Update(ctx context.Context, jar models.MilkJar) error
	List(ctx context.Context, status models.JarStatus) ([]models.MilkJar, error)
	CountReceivedOn(ctx context.Context, day time.Time) (int64, error)
}

// Service implements donor and jar intake workflows.
type Service struct {
	donors            DonorStore
	jars              JarStore
	receptionTempMaxC float64
	logger            *zap.Logger
	now               func() time.Time
}

// NewService constructs the intake service.
func NewService(donors DonorStore, jars JarStore, receptionTempMaxC float64, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		donors:            donors,
		jars:              jars,
		receptionTempMaxC: receptionTempMaxC,
		logger:            logger,
		now:               time.Now,
	}
}

// DonorInput carries the registration form values.
type DonorInput struct {
	FullName       string
	BirthDate      time.Time
	NationalID     string
	Classification models.DonorClassification
	ConsentSigned  bool
}

// RegisterDonor creates a donor in Pending status.
func (s *Service) RegisterDonor(ctx context.Context, in DonorInput) (models.Donor, error) {
	if in.FullName == "" {
		return models.Donor{}, &lifecycle.ValidationError{Field: "full name", Reason: "must not be empty"}
	}
	switch in.Classification {
	case models.HomologousInternal, models.HomologousExternal, models.Heterologous:
	default:
		return models.Donor{}, &lifecycle.ValidationError{Field: "classification", Reason: fmt.Sprintf("unknown value %q", in.Classification)}
	}

	now := s.now().UTC()
	donor := models.Donor{
		ID:             folio.NewID(),
		FullName:       in.FullName,
		BirthDate:      in.BirthDate,
		NationalID:     in.NationalID,
		Classification: in.Classification,
		Status:         models.DonorPending,
		ConsentSigned:  in.ConsentSigned,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if in.ConsentSigned {
		donor.ConsentDate = &now
	}

	if err := s.donors.Insert(ctx, donor); err != nil {
		return models.Donor{}, err
	}

	s.logger.Info("donor registered", zap.String("donor_id", donor.ID), zap.String("classification", string(donor.Classification)))
	return donor, nil
}

// RecordLabResult attaches one serology outcome to the donor's panel.
// A reactive result on an active donor suspends them immediately.
func (s *Service) RecordLabResult(ctx context.Context, donorID string, result models.LabResult) (models.Donor, error) {
	donor, err := s.donors.Get(ctx, donorID)
	if err != nil {
		return models.Donor{}, err
	}
	if result.Test == "" {
		return models.Donor{}, &lifecycle.ValidationError{Field: "test", Reason: "must not be empty"}
	}

	if result.TakenAt.IsZero() {
		result.TakenAt = s.now().UTC()
	}
	donor.LabResults = append(donor.LabResults, result)
	donor.UpdatedAt = s.now().UTC()

	if result.Reactive && donor.Status == models.DonorActive {
		donor.Status = models.DonorSuspended
		donor.RejectReason = fmt.Sprintf("Resultado reactivo en %s", result.Test)
		s.logger.Warn("active donor suspended by reactive result",
			zap.String("donor_id", donor.ID), zap.String("test", result.Test))
	}

	if err := s.donors.Update(ctx, donor); err != nil {
		return models.Donor{}, err
	}
	return donor, nil
}

// ActivateDonor moves a donor to Active. Requires signed consent and a
// clean serology panel.
func (s *Service) ActivateDonor(ctx context.Context, donorID string) (models.Donor, error) {
	donor, err := s.donors.Get(ctx, donorID)
	if err != nil {
		return models.Donor{}, err
	}

	switch donor.Status {
	case models.DonorPending, models.DonorSuspended, models.DonorInactive:
	default:
		return models.Donor{}, &lifecycle.TransitionError{Entity: "donor", From: string(donor.Status), To: string(models.DonorActive)}
	}
	if !donor.ConsentSigned {
		return models.Donor{}, &lifecycle.TransitionError{
			Entity: "donor", From: string(donor.Status), To: string(models.DonorActive),
			Reason: "consent has not been signed",
		}
	}
	if donor.HasReactiveResult() {
		return models.Donor{}, &lifecycle.TransitionError{
			Entity: "donor", From: string(donor.Status), To: string(models.DonorActive),
			Reason: "serology panel has a reactive result",
		}
	}

	donor.Status = models.DonorActive
	donor.RejectReason = ""
	donor.UpdatedAt = s.now().UTC()
	if err := s.donors.Update(ctx, donor); err != nil {
		return models.Donor{}, err
	}

	s.logger.Info("donor activated", zap.String("donor_id", donor.ID))
	return donor, nil
}

// SetDonorStatus applies an administrative status change (reject,
// suspend, deactivate). Activation goes through ActivateDonor so its
// guards cannot be skipped.
func (s *Service) SetDonorStatus(ctx context.Context, donorID string, status models.DonorStatus, reason string) (models.Donor, error) {
	if status == models.DonorActive {
		return s.ActivateDonor(ctx, donorID)
	}
	switch status {
	case models.DonorRejected, models.DonorSuspended, models.DonorInactive:
	default:
		return models.Donor{}, &lifecycle.ValidationError{Field: "status", Reason: fmt.Sprintf("unknown value %q", status)}
	}
	if status == models.DonorRejected && reason == "" {
		return models.Donor{}, lifecycle.ErrMissingReason
	}

	donor, err := s.donors.Get(ctx, donorID)
	if err != nil {
		return models.Donor{}, err
	}

	donor.Status = status
	donor.RejectReason = reason
	donor.UpdatedAt = s.now().UTC()
	if err := s.donors.Update(ctx, donor); err != nil {
		return models.Donor{}, err
	}

	s.logger.Info("donor status changed",
		zap.String("donor_id", donor.ID), zap.String("status", string(status)))
	return donor, nil
}

// JarInput carries the reception form values for one jar.
type JarInput struct {
	DonorID     string
	VolumeML    float64
	Type        models.MilkType
	ExtractedAt time.Time
	TempC       float64
	Arrival     models.ArrivalState
	Clean       bool
	Sealed      bool
	Labeled     bool
	ReceivedBy  string
}

// ReceiveJar registers one jar in Raw status, assigning its folio from
// the day's reception sequence.
func (s *Service) ReceiveJar(ctx context.Context, in JarInput) (models.MilkJar, error) {
	if in.VolumeML <= 0 {
		return models.MilkJar{}, &lifecycle.ValidationError{Field: "volume", Reason: "must be positive"}
	}
	switch in.Type {
	case models.Colostrum, models.Transition, models.Mature:
	default:
		return models.MilkJar{}, &lifecycle.ValidationError{Field: "milk type", Reason: fmt.Sprintf("unknown value %q", in.Type)}
	}
	if in.ExtractedAt.IsZero() {
		return models.MilkJar{}, &lifecycle.ValidationError{Field: "extraction time", Reason: "must be provided"}
	}

	donor, err := s.donors.Get(ctx, in.DonorID)
	if err != nil {
		return models.MilkJar{}, err
	}
	if donor.Status != models.DonorActive {
		return models.MilkJar{}, ErrDonorNotActive
	}

	now := s.now().UTC()
	seq, err := s.jars.CountReceivedOn(ctx, now)
	if err != nil {
		return models.MilkJar{}, err
	}

	jar := models.MilkJar{
		ID:             folio.NewID(),
		Folio:          folio.Format(folio.PrefixJar, now, int(seq)+1),
		DonorID:        donor.ID,
		VolumeML:       in.VolumeML,
		Type:           in.Type,
		ExtractedAt:    in.ExtractedAt.UTC(),
		ReceptionTempC: in.TempC,
		Arrival:        in.Arrival,
		Clean:          in.Clean,
		Sealed:         in.Sealed,
		Labeled:        in.Labeled,
		Status:         models.JarRaw,
		History: []models.HistoryEntry{{
			At: now, Action: "recepcion", By: in.ReceivedBy,
			Detail: fmt.Sprintf("%.0f mL %s a %.1f°C", in.VolumeML, in.Type, in.TempC),
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.jars.Insert(ctx, jar); err != nil {
		return models.MilkJar{}, err
	}

	s.logger.Info("jar received",
		zap.String("jar_id", jar.ID), zap.String("folio", jar.Folio),
		zap.Float64("volume_ml", jar.VolumeML))
	return jar, nil
}

// VerifyJar runs the physical reception verification: Raw jars become
// Verified, or Discarded with the failed checks as the reason.
func (s *Service) VerifyJar(ctx context.Context, jarID, by string) (models.MilkJar, error) {
	jar, err := s.jars.Get(ctx, jarID)
	if err != nil {
		return models.MilkJar{}, err
	}
	if jar.Status != models.JarRaw {
		return models.MilkJar{}, &lifecycle.TransitionError{Entity: "jar", From: string(jar.Status), To: string(models.JarVerified)}
	}

	outcome := lifecycle.VerifyReception(lifecycle.ReceptionInput{
		TempC:   jar.ReceptionTempC,
		Arrival: jar.Arrival,
		Clean:   jar.Clean,
		Sealed:  jar.Sealed,
		Labeled: jar.Labeled,
	}, s.receptionTempMaxC)

	now := s.now().UTC()
	if outcome.Accepted {
		jar.Status = models.JarVerified
		jar.History = append(jar.History, models.HistoryEntry{At: now, Action: "verificacion", By: by, Detail: "aprobada"})
	} else {
		jar.Status = models.JarDiscarded
		jar.RejectionReason = outcome.Reason
		jar.History = append(jar.History, models.HistoryEntry{At: now, Action: "rechazo", By: by, Detail: outcome.Reason})
	}
	jar.UpdatedAt = now

	if err := s.jars.Update(ctx, jar); err != nil {
		return models.MilkJar{}, err
	}

	if !outcome.Accepted {
		s.logger.Warn("jar rejected at verification",
			zap.String("folio", jar.Folio), zap.String("reason", outcome.Reason))
	}
	return jar, nil
}

// GetDonor loads one donor.
func (s *Service) GetDonor(ctx context.Context, id string) (models.Donor, error) {
	return s.donors.Get(ctx, id)
}

// ListDonors returns donors, optionally filtered by status.
func (s *Service) ListDonors(ctx context.Context, status models.DonorStatus) ([]models.Donor, error) {
	return s.donors.List(ctx, status)
}

// GetJar loads one jar.
func (s *Service) GetJar(ctx context.Context, id string) (models.MilkJar, error) {
	return s.jars.Get(ctx, id)
}

// ListJars returns jars, optionally filtered by status.
func (s *Service) ListJars(ctx context.Context, status models.JarStatus) ([]models.MilkJar, error) {
	return s.jars.List(ctx, status)
}
