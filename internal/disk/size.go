package disk

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/panjf2000/ants/v2"
	"github.com/rs/zerolog"

	"nmsweep/internal/fsops"
	"nmsweep/internal/limiter"
	"nmsweep/internal/metrics"
)

// Usage is the byte total of a directory tree
type Usage struct {
	Bytes       int64 // Sum of regular file sizes
	Files       int64 // Regular files counted
	Dirs        int64 // Directories read, the root included
	SkippedDirs int64 // Directories that could not be read
}

// Sizer computes directory sizes by fanning subdirectories out to a fixed
// size worker pool. When every worker is busy the subtree is walked inline
// by the submitting goroutine, so the number of goroutines never exceeds
// the pool size plus the callers.
type Sizer struct {
	pool    *ants.Pool
	limiter *limiter.DirLimiter
	logger  zerolog.Logger
}

// NewSizer creates a Sizer with the given worker count. Directory reads go
// through lim; a nil lim allows one read per worker.
func NewSizer(workers int, lim *limiter.DirLimiter, logger zerolog.Logger) (*Sizer, error) {
	if workers <= 0 {
		workers = 1
	}
	pool, err := ants.NewPool(workers, ants.WithNonblocking(true))
	if err != nil {
		return nil, fmt.Errorf("create size worker pool: %w", err)
	}
	if lim == nil {
		lim = limiter.NewDirLimiter(workers + 1)
	}
	return &Sizer{pool: pool, limiter: lim, logger: logger}, nil
}

// Release stops the worker pool
func (s *Sizer) Release() {
	s.pool.Release()
}

// Go runs task on a pool worker, or on the calling goroutine when the pool
// is saturated.
func (s *Sizer) Go(task func()) {
	run := func() {
		metrics.WorkerStarted("size")
		defer metrics.WorkerFinished("size")
		task()
	}
	if err := s.pool.Submit(run); err != nil {
		run()
	}
}

// DirSize sums the size of every regular file beneath root. Symbolic links
// are never followed and contribute no bytes. Unreadable subdirectories are
// skipped and counted; only a failure to read root itself is an error.
func (s *Sizer) DirSize(ctx context.Context, root string) (Usage, error) {
	entries, err := s.limiter.ReadDir(ctx, root)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Usage{}, ctxErr
		}
		return Usage{Dirs: 1, SkippedDirs: 1}, readError(root, err)
	}

	var (
		wg                          sync.WaitGroup
		total, files, dirs, skipped atomic.Int64
	)
	dirs.Add(1)

	var visit func(dir string, entries []os.DirEntry)
	var walk func(dir string)

	visit = func(dir string, entries []os.DirEntry) {
		for _, e := range entries {
			switch {
			case e.Type().IsDir():
				child := filepath.Join(dir, e.Name())
				wg.Add(1)
				s.Go(func() { walk(child) })
			case e.Type().IsRegular():
				info, err := e.Info()
				if err != nil {
					// Removed between readdir and stat.
					continue
				}
				total.Add(info.Size())
				files.Add(1)
			}
		}
	}

	walk = func(dir string) {
		defer wg.Done()
		if ctx.Err() != nil {
			return
		}
		entries, err := s.limiter.ReadDir(ctx, dir)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			skipped.Add(1)
			s.logger.Debug().Str("path", dir).Err(err).Msg("skipping unreadable directory")
			// os.ReadDir may return the entries it read before failing.
		}
		dirs.Add(1)
		visit(dir, entries)
	}

	visit(root, entries)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return Usage{}, err
	}
	return Usage{
		Bytes:       total.Load(),
		Files:       files.Load(),
		Dirs:        dirs.Load(),
		SkippedDirs: skipped.Load(),
	}, nil
}

func readError(path string, err error) error {
	if kind := fsops.Classify(err); kind != nil {
		return fmt.Errorf("%w: %w", kind, err)
	}
	return fmt.Errorf("read %s: %w", path, err)
}
