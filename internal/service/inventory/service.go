// Package inventory serves the cold-chain stock view, assigns storage
// slots and runs the expiry sweep that enforces FEFO discipline.
package inventory

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hgp-lactario/milkbank/internal/domain/lifecycle"
	"github.com/hgp-lactario/milkbank/internal/domain/models"
	"github.com/hgp-lactario/milkbank/pkg/clients/alerts"
)

// BatchStore is the batch persistence required by the service.
type BatchStore interface {
	Get(ctx context.Context, id string) (models.MilkBatch, error)
	Update(ctx context.Context, batch models.MilkBatch) error
	List(ctx context.Context, status models.BatchStatus) ([]models.MilkBatch, error)
	ListReleasedFEFO(ctx context.Context) ([]models.MilkBatch, error)
	ListExpiredBefore(ctx context.Context, now time.Time) ([]models.MilkBatch, error)
}

// Service implements stock queries and the expiry sweep.
type Service struct {
	batches    BatchStore
	alerter    alerts.Client
	lowStockML float64
	logger     *zap.Logger
	now        func() time.Time
}

// NewService constructs the inventory service. alerter may be nil when
// the alert webhook is not configured.
func NewService(batches BatchStore, alerter alerts.Client, lowStockML float64, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		batches:    batches,
		alerter:    alerter,
		lowStockML: lowStockML,
		logger:     logger,
		now:        time.Now,
	}
}

// GetBatch loads one batch.
func (s *Service) GetBatch(ctx context.Context, id string) (models.MilkBatch, error) {
	return s.batches.Get(ctx, id)
}

// ListBatches returns batches, optionally filtered by status.
func (s *Service) ListBatches(ctx context.Context, status models.BatchStatus) ([]models.MilkBatch, error) {
	return s.batches.List(ctx, status)
}

// Stock returns the released batches with remaining volume,
// first-expired-first-out. Callers dispense from the head of the list.
func (s *Service) Stock(ctx context.Context) ([]models.MilkBatch, error) {
	return s.batches.ListReleasedFEFO(ctx)
}

// AssignLocation places a batch in a cold-chain slot.
func (s *Service) AssignLocation(ctx context.Context, batchID string, loc models.StorageLocation) (models.MilkBatch, error) {
	if loc.EquipmentID == "" {
		return models.MilkBatch{}, &lifecycle.ValidationError{Field: "equipment", Reason: "must not be empty"}
	}

	batch, err := s.batches.Get(ctx, batchID)
	if err != nil {
		return models.MilkBatch{}, err
	}
	if batch.Status == models.BatchDiscarded {
		return models.MilkBatch{}, &lifecycle.ValidationError{Field: "batch", Reason: "cannot relocate a discarded batch"}
	}

	batch.Location = &loc
	batch.UpdatedAt = s.now().UTC()
	if err := s.batches.Update(ctx, batch); err != nil {
		return models.MilkBatch{}, err
	}

	s.logger.Info("batch relocated",
		zap.String("folio", batch.Folio), zap.String("equipment", loc.EquipmentID),
		zap.String("shelf", loc.Shelf), zap.String("position", loc.Position))
	return batch, nil
}

// ExpireOverdue discards every batch past its expiration date and
// raises one alert per batch. It returns the number of batches swept.
func (s *Service) ExpireOverdue(ctx context.Context) (int, error) {
	now := s.now().UTC()
	expired, err := s.batches.ListExpiredBefore(ctx, now)
	if err != nil {
		return 0, err
	}

	swept := 0
	for _, batch := range expired {
		batch.Status = models.BatchDiscarded
		batch.RejectionReason = "Caducidad alcanzada"
		batch.UpdatedAt = now

		if err := s.batches.Update(ctx, batch); err != nil {
			s.logger.Error("failed to discard expired batch",
				zap.String("folio", batch.Folio), zap.Error(err))
			continue
		}
		swept++

		s.logger.Warn("batch expired",
			zap.String("folio", batch.Folio), zap.Time("expired_at", batch.ExpiresAt))
		s.notify(ctx, alerts.Alert{
			Severity: alerts.SeverityWarning,
			Title:    "Lote caducado",
			Message:  fmt.Sprintf("Lote %s descartado por caducidad (%.0f mL)", batch.Folio, batch.VolumeTotalML),
			Entity:   "batch",
			Folio:    batch.Folio,
		})
	}

	return swept, nil
}

// CheckLowStock totals the released stock and alerts when it falls
// under the configured threshold. The total is returned either way.
func (s *Service) CheckLowStock(ctx context.Context) (float64, error) {
	stock, err := s.batches.ListReleasedFEFO(ctx)
	if err != nil {
		return 0, err
	}

	var totalML float64
	for _, batch := range stock {
		totalML += batch.VolumeTotalML
	}

	if totalML < s.lowStockML {
		s.logger.Warn("released stock below threshold",
			zap.Float64("stock_ml", totalML), zap.Float64("threshold_ml", s.lowStockML))
		s.notify(ctx, alerts.Alert{
			Severity: alerts.SeverityWarning,
			Title:    "Inventario bajo",
			Message:  fmt.Sprintf("Inventario liberado %.0f mL por debajo del umbral de %.0f mL", totalML, s.lowStockML),
			Entity:   "inventory",
		})
	}

	return totalML, nil
}

func (s *Service) notify(ctx context.Context, alert alerts.Alert) {
	if s.alerter == nil {
		return
	}
	if err := s.alerter.Notify(ctx, alert); err != nil {
		s.logger.Error("failed to deliver alert", zap.Error(err))
	}
}
