package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"go.uber.org/zap"

	"github.com/hgp-lactario/milkbank/internal/config"
	"github.com/hgp-lactario/milkbank/internal/repository/mongodb"
	"github.com/hgp-lactario/milkbank/internal/repository/sheets"
	"github.com/hgp-lactario/milkbank/internal/scheduler"
	"github.com/hgp-lactario/milkbank/internal/server/handlers"
	"github.com/hgp-lactario/milkbank/internal/server/router"
	analysissvc "github.com/hgp-lactario/milkbank/internal/service/analysis"
	dispensingsvc "github.com/hgp-lactario/milkbank/internal/service/dispensing"
	intakesvc "github.com/hgp-lactario/milkbank/internal/service/intake"
	inventorysvc "github.com/hgp-lactario/milkbank/internal/service/inventory"
	poolingsvc "github.com/hgp-lactario/milkbank/internal/service/pooling"
	reportingsvc "github.com/hgp-lactario/milkbank/internal/service/reporting"
	"github.com/hgp-lactario/milkbank/pkg/clients/alerts"
	"github.com/hgp-lactario/milkbank/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New())
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	store, err := mongodb.NewStore(context.Background(), cfg.MongoDB.URI, cfg.MongoDB.DBName)
	if err != nil {
		baseLogger.Fatal("failed to init mongodb store", zap.Error(err))
	}
	defer func() {
		if err := store.Close(context.Background()); err != nil {
			baseLogger.Error("failed to close mongodb connection", zap.Error(err))
		}
	}()

	var exporter sheets.Exporter
	if cfg.Sheets.SpreadsheetID != "" {
		exporter, err = sheets.NewStatsExporter(context.Background(), cfg.Sheets, baseLogger.Named("repo.sheets"))
		if err != nil {
			baseLogger.Fatal("failed to init sheets exporter", zap.Error(err))
		}
		baseLogger.Info("statistics spreadsheet export enabled")
	} else {
		baseLogger.Warn("spreadsheet id missing, statistics export disabled")
	}

	var alerter alerts.Client
	if cfg.Alerts.WebhookURL != "" {
		alerter = alerts.NewClient(cfg.Alerts)
		baseLogger.Info("staff alert webhook enabled")
	} else {
		baseLogger.Warn("alert webhook url missing, outbound alerts disabled")
	}

	intakeSvc := intakesvc.NewService(store.Donors(), store.Jars(), cfg.Bank.ReceptionTempMaxC, baseLogger.Named("svc.intake"))
	poolingSvc := poolingsvc.NewService(store.Jars(), store.Batches(), store.Donors(), cfg.Bank.MaxDonorsPerBatch, cfg.Bank.ShelfLifeMonths, baseLogger.Named("svc.pooling"))
	analysisSvc := analysissvc.NewService(store.Jars(), store.Batches(), alerter, cfg.Bank.AcidityCutoffD, baseLogger.Named("svc.analysis"))
	inventorySvc := inventorysvc.NewService(store.Batches(), alerter, cfg.Sweep.LowStockML, baseLogger.Named("svc.inventory"))
	dispensingSvc := dispensingsvc.NewService(store.Batches(), store.Administrations(), store.Receivers(), cfg.Bank.AdminTempMinC, cfg.Bank.AdminTempMaxC, baseLogger.Named("svc.dispensing"))
	reportingSvc := reportingsvc.NewService(store.Jars(), store.Batches(), store.Administrations(), store.Donors(), exporter, baseLogger.Named("svc.reporting"))

	engine := router.New(router.Handlers{
		Donors:     handlers.NewDonorHandler(intakeSvc, baseLogger.Named("handlers.donors")),
		Jars:       handlers.NewJarHandler(intakeSvc, analysisSvc, baseLogger.Named("handlers.jars")),
		Pooling:    handlers.NewPoolingHandler(poolingSvc, baseLogger.Named("handlers.pooling")),
		Batches:    handlers.NewBatchHandler(analysisSvc, inventorySvc, baseLogger.Named("handlers.batches")),
		Dispensing: handlers.NewDispensingHandler(dispensingSvc, baseLogger.Named("handlers.dispensing")),
		Reports:    handlers.NewReportHandler(reportingSvc, baseLogger.Named("handlers.reports")),
		Users:      handlers.NewUserHandler(store.Users(), baseLogger.Named("handlers.users")),
	}, baseLogger.Named("router"))

	sched := scheduler.NewScheduler(cfg.Sweep, inventorySvc, reportingSvc, baseLogger.Named("scheduler"))
	sched.Start()
	defer sched.Stop()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}
