package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/ccrm/pkg/backup"
	appErrors "github.com/noah-isme/ccrm/pkg/errors"
)

// BackupConfig locates the backup source and destination.
type BackupConfig struct {
	Source   string
	Dir      string
	Compress bool
}

// BackupResult describes a finished backup run.
type BackupResult struct {
	Dir          string
	Files        int
	Bytes        int64
	Manifest     string
	Archive      string
	ArchiveBytes int64
	Duration     time.Duration
}

// BackupService copies the data directory into a timestamped backup folder.
type BackupService struct {
	cfg     BackupConfig
	metrics *MetricsService
	logger  *zap.Logger
	now     func() time.Time
}

// NewBackupService constructs the backup service.
func NewBackupService(cfg BackupConfig, metrics *MetricsService, logger *zap.Logger) *BackupService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Source == "" {
		cfg.Source = "."
	}
	if cfg.Dir == "" {
		cfg.Dir = "./backups"
	}
	return &BackupService{cfg: cfg, metrics: metrics, logger: logger, now: time.Now}
}

// Run copies the source tree, writes a checksum manifest and optionally a compressed archive.
func (s *BackupService) Run(ctx context.Context) (*BackupResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	dest, files, err := backup.CopyToTimestamped(s.cfg.Source, s.cfg.Dir, s.now())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, "backup copy failed")
	}
	size, err := backup.DirectorySize(dest)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, "backup size failed")
	}
	manifest, err := backup.WriteManifest(dest)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, "backup manifest failed")
	}
	result := &BackupResult{Dir: dest, Files: files, Bytes: size, Manifest: manifest}

	if s.cfg.Compress {
		archive := dest + ".tar.br"
		archiveBytes, err := backup.Archive(dest, archive)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, "backup archive failed")
		}
		result.Archive = archive
		result.ArchiveBytes = archiveBytes
	}

	result.Duration = time.Since(start)
	s.metrics.ObserveBackup(size, result.Duration)
	s.logger.Info("backup completed",
		zap.String("dir", dest),
		zap.Int("files", files),
		zap.Int64("bytes", size),
		zap.String("archive", result.Archive),
		zap.Duration("duration", result.Duration),
	)
	return result, nil
}

// Verify re-hashes a finished backup against its manifest and, when one was written, checks
// that the archive matches the copied tree.
func (s *BackupService) Verify(result *BackupResult) error {
	if result == nil {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "no backup to verify")
	}
	if err := backup.VerifyManifest(result.Dir); err != nil {
		return appErrors.Wrap(err, appErrors.ErrPreconditionFailed.Code, "backup verification failed")
	}
	if result.Archive != "" {
		if err := backup.VerifyArchive(result.Archive, result.Dir); err != nil {
			return appErrors.Wrap(err, appErrors.ErrPreconditionFailed.Code, "backup archive verification failed")
		}
	}
	s.logger.Info("backup verified", zap.String("dir", result.Dir), zap.String("archive", result.Archive))
	return nil
}
