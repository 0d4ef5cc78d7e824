package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/ccrm/internal/cli"
	"github.com/noah-isme/ccrm/internal/models"
	"github.com/noah-isme/ccrm/internal/repository"
	"github.com/noah-isme/ccrm/internal/service"
	"github.com/noah-isme/ccrm/pkg/config"
	"github.com/noah-isme/ccrm/pkg/export"
	"github.com/noah-isme/ccrm/pkg/logger"
	"github.com/noah-isme/ccrm/pkg/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	scale, err := models.ParseGradeScale(cfg.Grading.Cutpoints)
	if err != nil {
		logr.Sugar().Fatalw("invalid grade cutpoints", "cutpoints", cfg.Grading.Cutpoints, "error", err)
	}

	exportStorage, err := storage.NewLocalStorage(cfg.Exports.Dir)
	if err != nil {
		logr.Sugar().Fatalw("failed to prepare export directory", "dir", cfg.Exports.Dir, "error", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := repository.NewRecordStore()
	metrics := service.NewMetricsService()
	validate := validator.New()

	transfers := service.NewImportExportService(store, export.NewCSVExporter(), exportStorage, validate, metrics, logger.Component(logr, "transfers"), service.ImportExportConfig{
		Workers:    cfg.Imports.Workers,
		MaxRetries: cfg.Imports.MaxRetries,
		RetryDelay: cfg.Imports.RetryDelay,
	})
	transfers.Start(ctx)
	defer transfers.Stop()

	// The menu blocks on stdin, so a signal ends the process once workers have drained.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logr.Sugar().Infow("shutting down", "signal", sig.String())
		cancel()
		transfers.Stop()
		_ = logr.Sync()
		os.Exit(130)
	}()

	if removed, err := transfers.PruneExports(cfg.Exports.Retention); err != nil {
		logr.Sugar().Warnw("export pruning failed", "error", err)
	} else if len(removed) > 0 {
		logr.Sugar().Infow("expired exports removed", "count", len(removed))
	}

	services := cli.Services{
		Students:    service.NewStudentService(store, validate, logger.Component(logr, "students")),
		Courses:     service.NewCourseService(store, validate, logger.Component(logr, "courses")),
		Instructors: service.NewInstructorService(store, validate, logger.Component(logr, "instructors")),
		Enrollments: service.NewEnrollmentService(store, scale, metrics, logger.Component(logr, "enrollment")),
		Reports:     service.NewReportService(store, scale, export.NewPDFExporter(), exportStorage, metrics, logger.Component(logr, "reports"), cfg.Reports.TopStudentsLimit),
		Transfers:   transfers,
		Backups: service.NewBackupService(service.BackupConfig{
			Source:   cfg.Backup.Source,
			Dir:      cfg.Backup.Dir,
			Compress: cfg.Backup.Compress,
		}, metrics, logger.Component(logr, "backup")),
		Metrics: metrics,
	}

	banner := fmt.Sprintf("Config loaded: env=%s data=%s exports=%s backups=%s", cfg.Env, cfg.Data.Dir, cfg.Exports.Dir, cfg.Backup.Dir)
	app := cli.New(os.Stdin, os.Stdout, services, cli.Options{DataDir: cfg.Data.Dir, Banner: banner}, logger.Component(logr, "cli"))

	logr.Sugar().Infow("ccrm starting", "env", cfg.Env)
	if err := app.Run(ctx); err != nil {
		logr.Sugar().Errorw("cli stopped", "error", err)
	}
}
