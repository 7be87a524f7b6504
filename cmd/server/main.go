// Package main is the entry point for the drift monitor.
package main

import (
	"context"
	"log/slog"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/fidde/drift_monitor/internal/config"
	"github.com/fidde/drift_monitor/internal/detector"
	"github.com/fidde/drift_monitor/internal/scheduler"
	"github.com/fidde/drift_monitor/internal/storage"
	"github.com/fidde/drift_monitor/internal/storage/file"
)

func main() {
	// A missing .env file is fine; the environment still applies.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	logger.Info("starting drift monitor",
		"storage_backend", cfg.StorageBackend,
		"check_interval_hours", cfg.CheckIntervalHours,
		"auto_check", cfg.EnableAutoCheck,
	)

	ctx := context.Background()

	backend, err := storage.NewBackend(ctx, storage.Config{
		Backend:        cfg.StorageBackend,
		DurableMirror:  cfg.DurableMirror,
		DBPath:         cfg.DBPath,
		ClickHouseAddr: cfg.ClickHouseAddr,
	}, logger)
	if err != nil {
		logger.Error("creating report backend", "error", err)
		os.Exit(1)
	}

	reports, err := storage.NewReportStore(ctx, backend, logger)
	if err != nil {
		logger.Error("creating report store", "error", err)
		os.Exit(1)
	}

	dataStore, err := file.New(cfg.DataDir)
	if err != nil {
		logger.Error("creating data store", "error", err)
		os.Exit(1)
	}

	det := detector.New(detector.Config{
		PSIThreshold: cfg.PSIThreshold,
		KLThreshold:  cfg.KLThreshold,
		MinSamples:   cfg.MinSamples,
		MaxFeatures:  cfg.MaxFeatures,
	}, dataStore, dataStore, logger)

	sched := scheduler.New(scheduler.Config{
		CheckIntervalHours: cfg.CheckIntervalHours,
		RetentionDays:      cfg.ReportRetentionDays,
	}, det, reports, dataStore, logger)

	if cfg.EnableAutoCheck {
		sched.Start()
	} else {
		logger.Info("automated drift checking is disabled")
	}

	if cfg.PprofAddr != "" {
		go func() {
			logger.Info("starting pprof server", "addr", cfg.PprofAddr)
			if err := http.ListenAndServe(cfg.PprofAddr, nil); err != nil {
				logger.Error("pprof server error", "error", err)
			}
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan
	logger.Info("received signal, shutting down", "signal", sig.String())

	sched.Stop()
	if err := reports.Close(); err != nil {
		logger.Error("closing report store", "error", err)
	}
	logger.Info("shutdown complete")
}

func logLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
