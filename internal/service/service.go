package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"nmsweep/internal/cleanup"
	"nmsweep/internal/config"
	"nmsweep/internal/database"
	"nmsweep/internal/disk"
	"nmsweep/internal/scan"
)

// ErrHistoryDisabled is returned by history queries when no audit log is configured
var ErrHistoryDisabled = errors.New("deletion history is disabled (set database_path)")

// Service is the backend behind both the CLI and the HTTP API. Each call is
// independent; no scan results are kept between calls.
type Service struct {
	cfg     *config.Config
	scanner *scan.Scanner
	cleaner *cleanup.Cleaner
	db      *database.DeletionDB
	logger  zerolog.Logger
}

// New wires the scanner, the cleaner and the optional audit log from cfg
func New(cfg *config.Config, logger zerolog.Logger) (*Service, error) {
	if cfg == nil {
		cfg = config.Default()
	}

	scanner, err := scan.NewScanner(cfg.Scan, logger)
	if err != nil {
		return nil, err
	}

	var db *database.DeletionDB
	if cfg.DatabasePath != "" {
		logger.Debug().Str("path", cfg.DatabasePath).Msg("opening deletion database")
		db, err = database.NewDeletionDB(cfg.DatabasePath)
		if err != nil {
			scanner.Close()
			return nil, fmt.Errorf("open deletion database: %w", err)
		}
	}

	return &Service{
		cfg:     cfg,
		scanner: scanner,
		cleaner: cleanup.NewCleaner(cfg.Delete, scanner.Sizer(), db, logger),
		db:      db,
		logger:  logger,
	}, nil
}

// Close releases the worker pool and the audit log
func (s *Service) Close() error {
	s.scanner.Close()
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SetDryRun overrides delete.dry_run for subsequent batches
func (s *Service) SetDryRun(dryRun bool) {
	s.cleaner.SetDryRun(dryRun)
}

// ScanForNodeModules lists every node_modules folder beneath path with its size
func (s *Service) ScanForNodeModules(ctx context.Context, path string) (*scan.Summary, error) {
	return s.scanner.Scan(ctx, path)
}

// DeleteFolders removes the given folders and reports one outcome per path
func (s *Service) DeleteFolders(ctx context.Context, paths []string) (*cleanup.DeleteSummary, error) {
	return s.cleaner.DeleteFolders(ctx, paths)
}

// FolderSize returns the byte total of a single folder
func (s *Service) FolderSize(ctx context.Context, path string) (int64, error) {
	return s.scanner.FolderSize(ctx, path)
}

// VolumeUsage reports the capacity of the filesystem holding path
func (s *Service) VolumeUsage(path string) (*disk.VolumeStats, error) {
	return disk.FilesystemUsage(path)
}

// HistoryEnabled reports whether deletions are being audited
func (s *Service) HistoryEnabled() bool {
	return s.db != nil
}

// RecentDeletions returns the most recent audit records
func (s *Service) RecentDeletions(limit int) ([]database.DeletionRecord, error) {
	if s.db == nil {
		return nil, ErrHistoryDisabled
	}
	return s.db.GetRecentDeletions(limit)
}

// LargestDeletions returns the largest folders removed
func (s *Service) LargestDeletions(limit int) ([]database.DeletionRecord, error) {
	if s.db == nil {
		return nil, ErrHistoryDisabled
	}
	return s.db.GetLargestDeletions(limit)
}

// DeletionStats aggregates the audit log over the last days days
func (s *Service) DeletionStats(days int) (*database.DeletionStats, error) {
	if s.db == nil {
		return nil, ErrHistoryDisabled
	}
	return s.db.GetDeletionStats(days)
}

// DeletionsByBatch returns every record written by one delete batch
func (s *Service) DeletionsByBatch(batchID string) ([]database.DeletionRecord, error) {
	if s.db == nil {
		return nil, ErrHistoryDisabled
	}
	return s.db.GetDeletionsByBatch(batchID)
}

// DeletionsByAction returns records with the given action (DELETE, DRY_RUN, ...)
func (s *Service) DeletionsByAction(action string) ([]database.DeletionRecord, error) {
	if s.db == nil {
		return nil, ErrHistoryDisabled
	}
	return s.db.GetDeletionsByAction(strings.ToUpper(action))
}

// DeletionsByPath returns records whose path matches a SQL LIKE pattern
func (s *Service) DeletionsByPath(pattern string) ([]database.DeletionRecord, error) {
	if s.db == nil {
		return nil, ErrHistoryDisabled
	}
	return s.db.GetDeletionsByPath(pattern)
}

// PruneHistory drops audit records older than days and compacts the file
func (s *Service) PruneHistory(days int) (int64, error) {
	if s.db == nil {
		return 0, ErrHistoryDisabled
	}
	if days <= 0 {
		return 0, fmt.Errorf("prune: days must be positive, got %d", days)
	}
	n, err := s.db.DeleteOldRecords(days)
	if err != nil {
		return 0, err
	}
	s.logger.Info().Int64("records", n).Int("older_than_days", days).Msg("pruned deletion history")
	if err := s.db.Vacuum(); err != nil {
		return n, fmt.Errorf("vacuum: %w", err)
	}
	return n, nil
}

// HistoryInfo describes the audit log file
func (s *Service) HistoryInfo() (*database.DatabaseStats, error) {
	if s.db == nil {
		return nil, ErrHistoryDisabled
	}
	return s.db.GetDatabaseStats()
}
