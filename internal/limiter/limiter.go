package limiter

import (
	"context"
	"os"

	"golang.org/x/sync/semaphore"
)

// DirLimiter caps the number of directory reads in flight at once so a wide
// tree cannot exhaust file descriptors.
type DirLimiter struct {
	sem *semaphore.Weighted
	max int64
}

// NewDirLimiter creates a limiter allowing at most maxOpen concurrent reads
func NewDirLimiter(maxOpen int) *DirLimiter {
	if maxOpen <= 0 {
		maxOpen = 1
	}
	return &DirLimiter{
		sem: semaphore.NewWeighted(int64(maxOpen)),
		max: int64(maxOpen),
	}
}

// ReadDir reads a directory once a slot is free. It returns ctx.Err() if the
// context ends while waiting.
func (l *DirLimiter) ReadDir(ctx context.Context, path string) ([]os.DirEntry, error) {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer l.sem.Release(1)
	return os.ReadDir(path)
}

// Max returns the configured cap.
func (l *DirLimiter) Max() int {
	return int(l.max)
}
