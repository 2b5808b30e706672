// Package reporting aggregates bank activity over date ranges and
// exports monthly statistics to the hospital's reporting spreadsheet.
package reporting

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hgp-lactario/milkbank/internal/domain/models"
	"github.com/hgp-lactario/milkbank/internal/repository/sheets"
)

const statsRange = "Estadisticas!A:L"

// JarStore is the jar persistence required by the service.
type JarStore interface {
	ListReceivedBetween(ctx context.Context, from, to time.Time) ([]models.MilkJar, error)
}

// BatchStore is the batch persistence required by the service.
type BatchStore interface {
	ListCreatedBetween(ctx context.Context, from, to time.Time) ([]models.MilkBatch, error)
	ListReleasedFEFO(ctx context.Context) ([]models.MilkBatch, error)
}

// LedgerStore is the administration ledger persistence.
type LedgerStore interface {
	ListBetween(ctx context.Context, from, to time.Time) ([]models.AdministrationRecord, error)
}

// DonorStore is the donor persistence required by the service.
type DonorStore interface {
	CountByStatus(ctx context.Context, status models.DonorStatus) (int64, error)
}

// Service computes period summaries.
type Service struct {
	jars     JarStore
	batches  BatchStore
	ledger   LedgerStore
	donors   DonorStore
	exporter sheets.Exporter
	logger   *zap.Logger
	now      func() time.Time
}

// NewService wires a new reporting service instance. exporter may be
// nil when the statistics spreadsheet is not configured.
func NewService(jars JarStore, batches BatchStore, ledger LedgerStore, donors DonorStore, exporter sheets.Exporter, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		jars:     jars,
		batches:  batches,
		ledger:   ledger,
		donors:   donors,
		exporter: exporter,
		logger:   logger,
		now:      time.Now,
	}
}

// Summary aggregates activity within [from, to).
func (s *Service) Summary(ctx context.Context, from, to time.Time) (models.PeriodSummary, error) {
	sum := models.PeriodSummary{From: from, To: to, GeneratedAt: s.now().UTC()}

	jars, err := s.jars.ListReceivedBetween(ctx, from, to)
	if err != nil {
		return models.PeriodSummary{}, fmt.Errorf("load jars: %w", err)
	}
	for _, jar := range jars {
		sum.JarsReceived++
		sum.VolumeCollectedML += jar.VolumeML
		if jar.Status == models.JarDiscarded {
			sum.JarsRejected++
		}
	}

	batches, err := s.batches.ListCreatedBetween(ctx, from, to)
	if err != nil {
		return models.PeriodSummary{}, fmt.Errorf("load batches: %w", err)
	}
	for _, batch := range batches {
		sum.BatchesCreated++
		switch batch.Status {
		case models.BatchReleased:
			sum.BatchesReleased++
		case models.BatchDiscarded:
			sum.BatchesDiscarded++
		}
	}

	records, err := s.ledger.ListBetween(ctx, from, to)
	if err != nil {
		return models.PeriodSummary{}, fmt.Errorf("load administrations: %w", err)
	}
	for _, record := range records {
		if record.Voided {
			continue
		}
		sum.VolumeDispensedML += record.AdministeredML
		sum.VolumeWastedML += record.DiscardedML
	}

	active, err := s.donors.CountByStatus(ctx, models.DonorActive)
	if err != nil {
		return models.PeriodSummary{}, fmt.Errorf("count donors: %w", err)
	}
	sum.ActiveDonors = int(active)

	stock, err := s.batches.ListReleasedFEFO(ctx)
	if err != nil {
		return models.PeriodSummary{}, fmt.Errorf("load stock: %w", err)
	}
	for _, batch := range stock {
		sum.ReleasedStockML += batch.VolumeTotalML
	}

	return sum, nil
}

// ExportMonthly computes the summary of the month containing ref and
// appends it as one row to the statistics spreadsheet.
func (s *Service) ExportMonthly(ctx context.Context, ref time.Time) (models.PeriodSummary, error) {
	from := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)

	sum, err := s.Summary(ctx, from, to)
	if err != nil {
		return models.PeriodSummary{}, err
	}

	if s.exporter == nil {
		s.logger.Warn("statistics spreadsheet not configured, skipping export")
		return sum, nil
	}

	row := []interface{}{
		from.Format("2006-01"),
		sum.JarsReceived,
		sum.JarsRejected,
		sum.BatchesCreated,
		sum.BatchesReleased,
		sum.BatchesDiscarded,
		sum.VolumeCollectedML,
		sum.VolumeDispensedML,
		sum.VolumeWastedML,
		sum.ActiveDonors,
		sum.ReleasedStockML,
		sum.GeneratedAt.Format(time.RFC3339),
	}
	if err := s.exporter.AppendRow(ctx, statsRange, row); err != nil {
		return models.PeriodSummary{}, fmt.Errorf("export monthly summary: %w", err)
	}

	s.logger.Info("monthly summary exported", zap.String("month", from.Format("2006-01")))
	return sum, nil
}
