package cleanup

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"github.com/rs/zerolog"

	"nmsweep/internal/config"
	"nmsweep/internal/database"
	"nmsweep/internal/disk"
	"nmsweep/internal/fsops"
	"nmsweep/internal/metrics"
	"nmsweep/internal/safety"
)

var errCanceled = errors.New("canceled before deletion")

// Outcome is the result of deleting one requested path
type Outcome struct {
	Path       string `json:"path"`
	Success    bool   `json:"success"`
	Error      string `json:"error,omitempty"`
	BytesFreed int64  `json:"bytes_freed,omitempty"`
	DryRun     bool   `json:"dry_run,omitempty"`

	// Err is the failure cause, matchable with errors.Is against the
	// fsops error kinds.
	Err error `json:"-"`
}

// DeleteSummary holds the outcomes of one batch in input order
type DeleteSummary struct {
	BatchID    string        `json:"batch_id"`
	Results    []Outcome     `json:"results"`
	Succeeded  int           `json:"succeeded"`
	Failed     int           `json:"failed"`
	BytesFreed int64         `json:"bytes_freed"`
	DryRun     bool          `json:"dry_run,omitempty"`
	Elapsed    time.Duration `json:"-"`
}

// Cleaner deletes batches of node_modules folders. Every path is validated
// before removal and paths are processed in parallel by a bounded pool.
type Cleaner struct {
	deleter   fsops.Deleter
	validator *safety.Validator
	sizer     *disk.Sizer
	db        *database.DeletionDB
	workers   int
	dryRun    bool
	logger    zerolog.Logger
}

// NewCleaner creates a Cleaner. sizer and db are optional: without a sizer
// freed bytes are not measured, without db nothing is audited.
func NewCleaner(cfg config.DeleteCfg, sizer *disk.Sizer, db *database.DeletionDB, logger zerolog.Logger) *Cleaner {
	workers := cfg.Concurrency
	if workers <= 0 {
		workers = 1
	}
	return &Cleaner{
		deleter:   fsops.OSDeleter{},
		validator: safety.NewValidator(cfg.AllowedRoots, cfg.ProtectedPaths),
		sizer:     sizer,
		db:        db,
		workers:   workers,
		dryRun:    cfg.DryRun,
		logger:    logger,
	}
}

// SetDeleter replaces the filesystem deleter
func (c *Cleaner) SetDeleter(d fsops.Deleter) {
	c.deleter = d
}

// SetValidator replaces the safety validator
func (c *Cleaner) SetValidator(v *safety.Validator) {
	c.validator = v
}

// SetDryRun toggles dry-run mode
func (c *Cleaner) SetDryRun(dryRun bool) {
	c.dryRun = dryRun
}

// DeleteFolders removes every path and reports one outcome per input path,
// in input order. Individual failures never abort the batch. The returned
// error is non-nil only when ctx ends before every path was attempted; the
// summary is still complete, with unattempted paths reported as failures.
func (c *Cleaner) DeleteFolders(ctx context.Context, paths []string) (*DeleteSummary, error) {
	start := time.Now()
	summary := &DeleteSummary{
		BatchID: uuid.NewString(),
		Results: make([]Outcome, len(paths)),
		DryRun:  c.dryRun,
	}
	if len(paths) == 0 {
		return summary, nil
	}

	logger := c.logger.With().Str("batch", summary.BatchID).Logger()
	logger.Info().Int("paths", len(paths)).Bool("dry_run", c.dryRun).Msg("delete batch started")

	// Duplicate requests share one attempt.
	byPath := make(map[string]*Outcome, len(paths))
	var unique []string
	for _, p := range paths {
		key := filepath.Clean(p)
		if p == "" {
			key = ""
		}
		if _, ok := byPath[key]; !ok {
			byPath[key] = &Outcome{Path: key}
			unique = append(unique, key)
		}
	}

	pool, err := ants.NewPool(c.workers)
	if err != nil {
		// Without a pool the batch still runs, one group at a time.
		logger.Warn().Err(err).Msg("delete pool unavailable, running sequentially")
	} else {
		defer pool.Release()
	}

	var wg sync.WaitGroup
	for _, group := range overlapGroups(unique) {
		group := group
		wg.Add(1)
		task := func() {
			defer wg.Done()
			metrics.WorkerStarted("delete")
			defer metrics.WorkerFinished("delete")
			for _, p := range group {
				*byPath[p] = c.deleteOne(ctx, logger, summary.BatchID, p)
			}
		}
		if pool == nil || pool.Submit(task) != nil {
			task()
		}
	}
	wg.Wait()

	for i, p := range paths {
		key := filepath.Clean(p)
		if p == "" {
			key = ""
		}
		out := *byPath[key]
		out.Path = p
		summary.Results[i] = out
		if out.Success {
			summary.Succeeded++
		} else {
			summary.Failed++
		}
	}
	for _, key := range unique {
		summary.BytesFreed += byPath[key].BytesFreed
	}
	summary.Elapsed = time.Since(start)
	metrics.RecordBatchDuration(summary.Elapsed)

	logger.Info().
		Int("succeeded", summary.Succeeded).
		Int("failed", summary.Failed).
		Int64("bytes_freed", summary.BytesFreed).
		Dur("elapsed", summary.Elapsed).
		Msg("delete batch finished")

	if err := ctx.Err(); err != nil {
		return summary, err
	}
	return summary, nil
}

// deleteOne validates, measures and removes a single folder
func (c *Cleaner) deleteOne(ctx context.Context, logger zerolog.Logger, batchID, path string) Outcome {
	if ctx.Err() != nil {
		return c.fail(logger, batchID, path, 0, fmt.Errorf("%w: %w", errCanceled, ctx.Err()))
	}

	if err := c.validator.ValidateDeleteTarget(path); err != nil {
		return c.fail(logger, batchID, path, 0, err)
	}

	// Measured before removal; a partial count still beats none.
	var size int64
	if c.sizer != nil {
		usage, err := c.sizer.DirSize(ctx, path)
		if err != nil {
			logger.Debug().Str("path", path).Err(err).Msg("could not measure folder before removal")
		}
		size = usage.Bytes
	}

	if ctx.Err() != nil {
		return c.fail(logger, batchID, path, 0, fmt.Errorf("%w: %w", errCanceled, ctx.Err()))
	}

	if c.dryRun {
		logger.Info().Str("path", path).Int64("size", size).Msg("[DRY RUN] would remove folder")
		metrics.RecordDeletion("dry_run", 0)
		c.audit(logger, database.DeletionRecord{
			BatchID: batchID, Action: database.ActionDryRun, Path: path,
			ParentProject: fsops.ParentProject(path), Size: size,
		})
		return Outcome{Path: path, Success: true, DryRun: true}
	}

	if err := c.deleter.RemoveAll(path); err != nil {
		return c.fail(logger, batchID, path, size, removeError(err))
	}

	logger.Info().Str("path", path).Int64("size", size).Msg("removed folder")
	metrics.RecordDeletion("deleted", size)
	c.audit(logger, database.DeletionRecord{
		BatchID: batchID, Action: database.ActionDelete, Path: path,
		ParentProject: fsops.ParentProject(path), Size: size,
	})
	return Outcome{Path: path, Success: true, BytesFreed: size}
}

func (c *Cleaner) fail(logger zerolog.Logger, batchID, path string, size int64, err error) Outcome {
	status, action := classifyFailure(err)
	logger.Warn().Str("path", path).Str("status", status).Err(err).Msg("folder not removed")
	metrics.RecordDeletion(status, 0)
	c.audit(logger, database.DeletionRecord{
		BatchID: batchID, Action: action, Path: path,
		ParentProject: fsops.ParentProject(path), Size: size, ErrorMessage: err.Error(),
	})
	return Outcome{Path: path, Error: err.Error(), Err: err}
}

func (c *Cleaner) audit(logger zerolog.Logger, r database.DeletionRecord) {
	if c.db == nil {
		return
	}
	if err := c.db.RecordDeletion(r); err != nil {
		// The audit log never changes an outcome.
		logger.Error().Err(err).Str("path", r.Path).Msg("failed to record deletion")
	}
}

// removeError maps a failed removal onto the error kinds. A folder that
// disappears between validation and removal is stale; a permission failure
// may leave the tree partially removed.
func removeError(err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: removed by another process: %w", fsops.ErrStaleTarget, err)
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%w: folder may be partially removed: %w", fsops.ErrAccess, err)
	}
	return fmt.Errorf("remove failed, folder may be partially removed: %w", err)
}

// classifyFailure returns the metrics status and audit action for err
func classifyFailure(err error) (status, action string) {
	switch {
	case errors.Is(err, errCanceled):
		return "canceled", database.ActionError
	case errors.Is(err, fsops.ErrStaleTarget):
		return "stale", database.ActionStale
	case errors.Is(err, fsops.ErrValidation):
		return "invalid", database.ActionReject
	case errors.Is(err, fsops.ErrAccess):
		return "access", database.ActionError
	}
	return "error", database.ActionError
}

// overlapGroups partitions paths so that a path and everything requested
// beneath it land in the same group, deepest first. Groups never overlap,
// so they can be removed concurrently.
func overlapGroups(paths []string) [][]string {
	requested := make(map[string]bool, len(paths))
	for _, p := range paths {
		requested[p] = true
	}

	index := make(map[string]int)
	var groups [][]string
	for _, p := range paths {
		top := p
		for dir := filepath.Dir(p); p != ""; dir = filepath.Dir(dir) {
			if requested[dir] {
				top = dir
			}
			if dir == filepath.Dir(dir) {
				break
			}
		}
		i, ok := index[top]
		if !ok {
			i = len(groups)
			index[top] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], p)
	}

	for _, g := range groups {
		sort.SliceStable(g, func(i, j int) bool { return len(g[i]) > len(g[j]) })
	}
	return groups
}
