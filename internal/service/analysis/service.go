// Package analysis applies the laboratory workflow to jars and batches:
// physical inspection, Dornic/creamatocrit chemistry, pasteurization
// recording and the microbiology-driven release out of quarantine.
package analysis

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hgp-lactario/milkbank/internal/domain/lifecycle"
	"github.com/hgp-lactario/milkbank/internal/domain/models"
	"github.com/hgp-lactario/milkbank/pkg/clients/alerts"
)

// JarStore is the jar persistence required by the service.
type JarStore interface {
	Get(ctx context.Context, id string) (models.MilkJar, error)
	Update(ctx context.Context, jar models.MilkJar) error
	ListByBatch(ctx context.Context, batchID string) ([]models.MilkJar, error)
}

// BatchStore is the batch persistence required by the service.
type BatchStore interface {
	Get(ctx context.Context, id string) (models.MilkBatch, error)
	Update(ctx context.Context, batch models.MilkBatch) error
}

// Service implements the laboratory workflows.
type Service struct {
	jars           JarStore
	batches        BatchStore
	alerter        alerts.Client
	acidityCutoffD float64
	logger         *zap.Logger
	now            func() time.Time
}

// NewService constructs the analysis service. alerter may be nil when
// the alert webhook is not configured.
func NewService(jars JarStore, batches BatchStore, alerter alerts.Client, acidityCutoffD float64, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		jars:           jars,
		batches:        batches,
		alerter:        alerter,
		acidityCutoffD: acidityCutoffD,
		logger:         logger,
		now:            time.Now,
	}
}

// RecordPhysical stores a jar's visual inspection. A rejecting outcome
// discards the jar; otherwise it advances to Testing.
func (s *Service) RecordPhysical(ctx context.Context, jarID string, in lifecycle.PhysicalInput, by string) (models.MilkJar, error) {
	jar, err := s.jars.Get(ctx, jarID)
	if err != nil {
		return models.MilkJar{}, err
	}
	if err := lifecycle.ValidateJarTransition(jar.Status, models.JarTesting); err != nil {
		return models.MilkJar{}, err
	}

	outcome := lifecycle.EvaluatePhysical(in)
	now := s.now().UTC()

	jar.Physical = &models.PhysicalResult{
		Color:         in.Color,
		OffFlavor:     in.OffFlavor,
		Contamination: in.Contamination,
	}
	if outcome.Rejected {
		jar.Status = models.JarDiscarded
		jar.RejectionReason = outcome.Reason
		jar.History = append(jar.History, models.HistoryEntry{At: now, Action: "rechazo", By: by, Detail: outcome.Reason})
	} else {
		jar.Status = models.JarTesting
		jar.History = append(jar.History, models.HistoryEntry{At: now, Action: "inspeccion_fisica", By: by, Detail: "aprobada"})
	}
	jar.UpdatedAt = now

	if err := s.jars.Update(ctx, jar); err != nil {
		return models.MilkJar{}, err
	}

	if outcome.Rejected {
		s.logger.Warn("jar rejected at physical inspection",
			zap.String("folio", jar.Folio), zap.String("reason", outcome.Reason))
	}
	return jar, nil
}

// RecordChemical stores a jar's acidity and creamatocrit analysis.
// Jars already discarded keep their values recorded but their status
// untouched; the acidity cutoff only applies to live jars.
func (s *Service) RecordChemical(ctx context.Context, jarID string, in lifecycle.ChemicalInput, by string) (models.MilkJar, error) {
	jar, err := s.jars.Get(ctx, jarID)
	if err != nil {
		return models.MilkJar{}, err
	}

	outcome := lifecycle.EvaluateChemical(in, s.acidityCutoffD)
	now := s.now().UTC()

	jar.Chemical = &models.ChemicalResult{
		AcidityAliquots: in.Aliquots,
		AcidityAvg:      outcome.AcidityAvg,
		Creamatocrit:    in.Creamatocrit,
		CaloricClass:    outcome.CaloricClass,
		ReviewFlagged:   outcome.ReviewFlagged,
	}
	jar.UpdatedAt = now

	if jar.Status == models.JarDiscarded {
		jar.History = append(jar.History, models.HistoryEntry{
			At: now, Action: "analisis_quimico", By: by,
			Detail: fmt.Sprintf("registrado sobre frasco descartado, acidez %.1f°D", outcome.AcidityAvg),
		})
		if err := s.jars.Update(ctx, jar); err != nil {
			return models.MilkJar{}, err
		}
		return jar, nil
	}

	if err := lifecycle.ValidateJarTransition(jar.Status, models.JarAnalyzed); err != nil {
		return models.MilkJar{}, err
	}

	if outcome.Rejected {
		jar.Status = models.JarDiscarded
		jar.RejectionReason = outcome.Reason
		jar.History = append(jar.History, models.HistoryEntry{At: now, Action: "rechazo", By: by, Detail: outcome.Reason})
	} else {
		jar.Status = models.JarAnalyzed
		jar.History = append(jar.History, models.HistoryEntry{
			At: now, Action: "analisis_quimico", By: by,
			Detail: fmt.Sprintf("acidez %.1f°D, %s", outcome.AcidityAvg, outcome.CaloricClass),
		})
	}

	if err := s.jars.Update(ctx, jar); err != nil {
		return models.MilkJar{}, err
	}

	if outcome.Rejected {
		s.logger.Warn("jar rejected by acidity",
			zap.String("folio", jar.Folio), zap.String("reason", outcome.Reason))
	}
	return jar, nil
}

// BatchSummary aggregates the analysis results of a batch's member jars.
func (s *Service) BatchSummary(ctx context.Context, batchID string) (lifecycle.BatchAnalysisSummary, error) {
	if _, err := s.batches.Get(ctx, batchID); err != nil {
		return lifecycle.BatchAnalysisSummary{}, err
	}
	jars, err := s.jars.ListByBatch(ctx, batchID)
	if err != nil {
		return lifecycle.BatchAnalysisSummary{}, err
	}
	return lifecycle.SummarizeBatch(jars), nil
}

// PasteurizationInput carries the Holder treatment record.
type PasteurizationInput struct {
	TempCurve   []models.TempPoint
	Responsible string
	Completed   bool
}

// RecordPasteurization stores the Holder record and moves the batch
// into Quarantine awaiting its culture result.
func (s *Service) RecordPasteurization(ctx context.Context, batchID string, in PasteurizationInput) (models.MilkBatch, error) {
	if in.Responsible == "" {
		return models.MilkBatch{}, &lifecycle.ValidationError{Field: "responsible", Reason: "must not be empty"}
	}

	batch, err := s.batches.Get(ctx, batchID)
	if err != nil {
		return models.MilkBatch{}, err
	}
	if err := lifecycle.ValidateBatchTransition(batch.Status, models.BatchQuarantine); err != nil {
		return models.MilkBatch{}, err
	}

	now := s.now().UTC()
	batch.Pasteurization = &models.PasteurizationRecord{
		TempCurve:   in.TempCurve,
		Responsible: in.Responsible,
		Completed:   in.Completed,
		At:          now,
	}
	batch.Status = models.BatchQuarantine
	batch.UpdatedAt = now

	if err := s.batches.Update(ctx, batch); err != nil {
		return models.MilkBatch{}, err
	}

	s.logger.Info("batch pasteurized", zap.String("folio", batch.Folio))
	return batch, nil
}

// MicrobiologyInput carries the culture data and its manual result.
type MicrobiologyInput struct {
	SowedAt     time.Time
	Result      models.MicrobiologyResult
	Responsible string
}

// RecordMicrobiology stores the culture result and resolves the
// quarantine: negative releases the batch into inventory, positive
// discards it and raises a critical alert.
func (s *Service) RecordMicrobiology(ctx context.Context, batchID string, in MicrobiologyInput) (models.MilkBatch, error) {
	next, err := lifecycle.ReleaseDecision(in.Result)
	if err != nil {
		return models.MilkBatch{}, err
	}

	batch, err := s.batches.Get(ctx, batchID)
	if err != nil {
		return models.MilkBatch{}, err
	}
	if err := lifecycle.ValidateBatchTransition(batch.Status, next); err != nil {
		return models.MilkBatch{}, err
	}

	now := s.now().UTC()
	batch.Microbiology = &models.MicrobiologyRecord{
		SowedAt:     in.SowedAt,
		Result:      in.Result,
		ResultAt:    now,
		Responsible: in.Responsible,
	}
	batch.Status = next
	if next == models.BatchDiscarded {
		batch.RejectionReason = "Cultivo microbiológico positivo"
	}
	batch.UpdatedAt = now

	if err := s.batches.Update(ctx, batch); err != nil {
		return models.MilkBatch{}, err
	}

	if next == models.BatchDiscarded {
		s.logger.Warn("batch discarded by positive culture", zap.String("folio", batch.Folio))
		s.notify(ctx, alerts.Alert{
			Severity: alerts.SeverityCritical,
			Title:    "Cultivo positivo",
			Message:  fmt.Sprintf("Lote %s descartado por cultivo positivo", batch.Folio),
			Entity:   "batch",
			Folio:    batch.Folio,
		})
	} else {
		s.logger.Info("batch released", zap.String("folio", batch.Folio), zap.Float64("volume_ml", batch.VolumeTotalML))
	}
	return batch, nil
}

// DiscardBatch rejects a batch from any live state with a mandatory reason.
func (s *Service) DiscardBatch(ctx context.Context, batchID, reason string) (models.MilkBatch, error) {
	if reason == "" {
		return models.MilkBatch{}, lifecycle.ErrMissingReason
	}

	batch, err := s.batches.Get(ctx, batchID)
	if err != nil {
		return models.MilkBatch{}, err
	}
	if err := lifecycle.ValidateBatchTransition(batch.Status, models.BatchDiscarded); err != nil {
		return models.MilkBatch{}, err
	}

	batch.Status = models.BatchDiscarded
	batch.RejectionReason = reason
	batch.UpdatedAt = s.now().UTC()

	if err := s.batches.Update(ctx, batch); err != nil {
		return models.MilkBatch{}, err
	}

	s.logger.Warn("batch discarded", zap.String("folio", batch.Folio), zap.String("reason", reason))
	return batch, nil
}

func (s *Service) notify(ctx context.Context, alert alerts.Alert) {
	if s.alerter == nil {
		return
	}
	if err := s.alerter.Notify(ctx, alert); err != nil {
		s.logger.Error("failed to deliver alert", zap.Error(err))
	}
}
