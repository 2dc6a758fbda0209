package scan

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"nmsweep/internal/config"
	"nmsweep/internal/disk"
	"nmsweep/internal/fsops"
	"nmsweep/internal/limiter"
	"nmsweep/internal/metrics"
)

var (
	ErrEmptyPath        = fmt.Errorf("%w: scan path is empty", fsops.ErrValidation)
	ErrRelativePath     = fmt.Errorf("%w: scan path must be absolute", fsops.ErrValidation)
	ErrRootNotFound     = fmt.Errorf("%w: path does not exist", fsops.ErrNotFound)
	ErrRootNotDirectory = fmt.Errorf("%w: path is not a directory", fsops.ErrNotFound)
)

// Scanner finds node_modules directories beneath a root and sizes them
type Scanner struct {
	sizer   *disk.Sizer
	limiter *limiter.DirLimiter
	skip    map[string]struct{}
	hidden  bool
	logger  zerolog.Logger
}

// NewScanner creates a Scanner with its own size worker pool. Call Close
// when done with it.
func NewScanner(cfg config.ScanCfg, logger zerolog.Logger) (*Scanner, error) {
	lim := limiter.NewDirLimiter(cfg.MaxOpenDirs)
	sizer, err := disk.NewSizer(cfg.Concurrency, lim, logger)
	if err != nil {
		return nil, err
	}

	skip := make(map[string]struct{}, len(cfg.SkipDirs))
	for _, name := range cfg.SkipDirs {
		if name != "" {
			skip[name] = struct{}{}
		}
	}

	return &Scanner{
		sizer:   sizer,
		limiter: lim,
		skip:    skip,
		hidden:  cfg.SkipHidden,
		logger:  logger,
	}, nil
}

// Close releases the worker pool
func (s *Scanner) Close() {
	s.sizer.Release()
}

// Sizer returns the size worker pool so other components can share it
func (s *Scanner) Sizer() *disk.Sizer {
	return s.sizer
}

// found is a node_modules folder whose size is still being computed.
type found struct {
	path  string
	usage disk.Usage
	err   error
}

// Scan walks root and returns every node_modules directory beneath it.
// Matched directories are never descended into, so nested node_modules are
// folded into the size of the outermost one. Symbolic links are neither
// followed nor reported. Unreadable subdirectories are skipped and counted;
// only an unreadable root fails the scan. A canceled scan returns the
// context error and no partial result.
func (s *Scanner) Scan(ctx context.Context, root string) (*Summary, error) {
	start := time.Now()
	summary, err := s.scan(ctx, root)

	status := "ok"
	switch {
	case ctx.Err() != nil:
		status = "canceled"
	case err != nil:
		status = "error"
	}
	elapsed := time.Since(start)
	if err != nil {
		metrics.RecordScan(root, status, 0, 0, 0, elapsed)
		s.logger.Warn().Str("root", root).Err(err).Msg("scan failed")
		return nil, err
	}

	summary.Elapsed = elapsed
	metrics.RecordScan(root, status, len(summary.Folders), summary.TotalSize, summary.SkippedDirs, elapsed)
	s.logger.Info().
		Str("root", root).
		Int("folders", len(summary.Folders)).
		Int64("total_bytes", summary.TotalSize).
		Int64("skipped_dirs", summary.SkippedDirs).
		Dur("elapsed", elapsed).
		Msg("scan complete")
	return summary, nil
}

func (s *Scanner) scan(ctx context.Context, root string) (*Summary, error) {
	if err := ValidateRoot(root); err != nil {
		return nil, err
	}
	cleanRoot := filepath.Clean(root)
	s.logger.Info().Str("root", cleanRoot).Msg("starting scan")

	var (
		wg      sync.WaitGroup
		folders []*found
		skipped int64
	)

	record := func(path string) {
		f := &found{path: path}
		folders = append(folders, f)
		s.logger.Debug().Str("path", path).Msg("found node_modules")
		wg.Add(1)
		s.sizer.Go(func() {
			defer wg.Done()
			f.usage, f.err = s.sizer.DirSize(ctx, path)
		})
	}

	// visit -> classify -> record-and-prune | recurse
	stack := []string{cleanRoot}
	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			wg.Wait()
			return nil, err
		}

		dir := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if fsops.IsNodeModules(dir) {
			record(dir)
			continue
		}

		entries, err := s.limiter.ReadDir(ctx, dir)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				wg.Wait()
				return nil, ctxErr
			}
			if dir == cleanRoot {
				wg.Wait()
				return nil, fmt.Errorf("%w: read %s: %w", fsops.ErrAccess, root, err)
			}
			skipped++
			s.logger.Warn().Str("path", dir).Err(err).Msg("skipping unreadable directory")
		}

		// Push in reverse so children are visited in name order.
		for i := len(entries) - 1; i >= 0; i-- {
			e := entries[i]
			if !e.Type().IsDir() {
				continue
			}
			if s.skipChild(e.Name()) {
				continue
			}
			stack = append(stack, filepath.Join(dir, e.Name()))
		}
	}

	wg.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(folders) == 1 && folders[0].path == cleanRoot && folders[0].err != nil {
		// The root is itself a node_modules folder and could not be read.
		return nil, folders[0].err
	}

	summary := &Summary{
		Folders:     make([]FolderEntry, 0, len(folders)),
		ScanPath:    root,
		SkippedDirs: skipped,
	}
	for _, f := range folders {
		if f.err != nil {
			s.logger.Warn().Str("path", f.path).Err(f.err).Msg("could not size node_modules")
		}
		summary.SkippedDirs += f.usage.SkippedDirs
		summary.Folders = append(summary.Folders, FolderEntry{
			Path:          f.path,
			Size:          f.usage.Bytes,
			ParentProject: fsops.ParentProject(f.path),
		})
		summary.TotalSize += f.usage.Bytes
	}
	return summary, nil
}

func (s *Scanner) skipChild(name string) bool {
	if name == fsops.NodeModules {
		return false
	}
	if s.hidden && fsops.IsHidden(name) {
		return true
	}
	_, ok := s.skip[name]
	return ok
}

// FolderSize returns the byte total of every regular file beneath path.
func (s *Scanner) FolderSize(ctx context.Context, path string) (int64, error) {
	if err := ValidateRoot(path); err != nil {
		return 0, err
	}
	usage, err := s.sizer.DirSize(ctx, filepath.Clean(path))
	if err != nil {
		return 0, err
	}
	return usage.Bytes, nil
}

// ValidateRoot checks that path is usable as a scan root.
func ValidateRoot(path string) error {
	if path == "" {
		return ErrEmptyPath
	}
	if !filepath.IsAbs(path) {
		return fmt.Errorf("%w: %s", ErrRelativePath, path)
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrRootNotFound, path)
		}
		return fmt.Errorf("%w: stat %s: %w", fsops.ErrAccess, path, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrRootNotDirectory, path)
	}
	return nil
}
