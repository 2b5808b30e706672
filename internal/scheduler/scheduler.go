package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/hgp-lactario/milkbank/internal/config"
	"github.com/hgp-lactario/milkbank/internal/service/inventory"
	"github.com/hgp-lactario/milkbank/internal/service/reporting"
)

// Scheduler runs the periodic maintenance tasks: the nightly expiry
// sweep over the cold-chain inventory and the monthly statistics export.
type Scheduler struct {
	cron         *cron.Cron
	inventorySvc *inventory.Service
	reportingSvc *reporting.Service
	cfg          config.SweepConfig
	logger       *zap.Logger
}

// NewScheduler creates a new scheduler instance.
func NewScheduler(cfg config.SweepConfig, inventorySvc *inventory.Service, reportingSvc *reporting.Service, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := []cron.Option{}
	if loc, err := time.LoadLocation(cfg.Timezone); err == nil {
		opts = append(opts, cron.WithLocation(loc))
	} else {
		logger.Warn("unknown timezone, scheduling in local time", zap.String("timezone", cfg.Timezone))
	}

	return &Scheduler{
		cron:         cron.New(opts...),
		inventorySvc: inventorySvc,
		reportingSvc: reportingSvc,
		cfg:          cfg,
		logger:       logger,
	}
}

// Start registers and starts the cron jobs.
func (s *Scheduler) Start() {
	s.logger.Info("starting scheduler",
		zap.String("expiry_schedule", s.cfg.ExpiryCronSchedule),
		zap.String("report_schedule", s.cfg.ReportCronSchedule))

	if _, err := s.cron.AddFunc(s.cfg.ExpiryCronSchedule, s.runExpirySweep); err != nil {
		s.logger.Error("failed to schedule expiry sweep", zap.Error(err))
	}
	if _, err := s.cron.AddFunc(s.cfg.ReportCronSchedule, s.runMonthlyExport); err != nil {
		s.logger.Error("failed to schedule monthly export", zap.Error(err))
	}

	s.cron.Start()
}

// Stop stops the scheduler.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	s.cron.Stop()
}

func (s *Scheduler) runExpirySweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	swept, err := s.inventorySvc.ExpireOverdue(ctx)
	if err != nil {
		s.logger.Error("expiry sweep failed", zap.Error(err))
		return
	}
	s.logger.Info("expiry sweep completed", zap.Int("batches_discarded", swept))

	if _, err := s.inventorySvc.CheckLowStock(ctx); err != nil {
		s.logger.Error("low stock check failed", zap.Error(err))
	}
}

func (s *Scheduler) runMonthlyExport() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	// Export the month that just closed.
	lastMonth := time.Now().UTC().AddDate(0, -1, 0)
	if _, err := s.reportingSvc.ExportMonthly(ctx, lastMonth); err != nil {
		s.logger.Error("monthly export failed", zap.Error(err))
		return
	}
	s.logger.Info("monthly export completed")
}
