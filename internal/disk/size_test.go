package disk

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"nmsweep/internal/fsops"
	"nmsweep/internal/limiter"
)

func newTestSizer(t *testing.T, workers int) *Sizer {
	t.Helper()
	s, err := NewSizer(workers, limiter.NewDirLimiter(2), zerolog.Nop())
	if err != nil {
		t.Fatalf("NewSizer: %v", err)
	}
	t.Cleanup(s.Release)
	return s
}

func createFile(t *testing.T, path string, size int) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, make([]byte, size), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestDirSize(t *testing.T) {
	root := t.TempDir()
	createFile(t, filepath.Join(root, "a.js"), 100)
	createFile(t, filepath.Join(root, "pkg", "b.js"), 200)
	createFile(t, filepath.Join(root, "pkg", "lib", "deep", "c.js"), 300)
	createFile(t, filepath.Join(root, "empty.txt"), 0)
	if err := os.MkdirAll(filepath.Join(root, "emptydir"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	for _, workers := range []int{1, 4} {
		s := newTestSizer(t, workers)
		u, err := s.DirSize(context.Background(), root)
		if err != nil {
			t.Fatalf("workers=%d: DirSize: %v", workers, err)
		}
		if u.Bytes != 600 {
			t.Errorf("workers=%d: Bytes = %d, want 600", workers, u.Bytes)
		}
		if u.Files != 4 {
			t.Errorf("workers=%d: Files = %d, want 4", workers, u.Files)
		}
		// root, pkg, pkg/lib, pkg/lib/deep, emptydir
		if u.Dirs != 5 {
			t.Errorf("workers=%d: Dirs = %d, want 5", workers, u.Dirs)
		}
		if u.SkippedDirs != 0 {
			t.Errorf("workers=%d: SkippedDirs = %d, want 0", workers, u.SkippedDirs)
		}
	}
}

func TestDirSizeIgnoresSymlinks(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	createFile(t, filepath.Join(outside, "huge.bin"), 10000)
	createFile(t, filepath.Join(root, "real.js"), 5)

	if err := os.Symlink(filepath.Join(outside, "huge.bin"), filepath.Join(root, "file-link")); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}
	if err := os.Symlink(outside, filepath.Join(root, "dir-link")); err != nil {
		t.Fatalf("symlink: %v", err)
	}
	if err := os.Symlink(root, filepath.Join(root, "cycle")); err != nil {
		t.Fatalf("symlink: %v", err)
	}

	s := newTestSizer(t, 2)
	u, err := s.DirSize(context.Background(), root)
	if err != nil {
		t.Fatalf("DirSize: %v", err)
	}
	if u.Bytes != 5 || u.Files != 1 {
		t.Errorf("got %+v, want 5 bytes in 1 file", u)
	}
}

func TestDirSizeErrors(t *testing.T) {
	s := newTestSizer(t, 2)

	_, err := s.DirSize(context.Background(), filepath.Join(t.TempDir(), "missing"))
	if !errors.Is(err, fsops.ErrNotFound) {
		t.Errorf("missing root error = %v, want ErrNotFound", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	u, err := s.DirSize(ctx, t.TempDir())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("canceled error = %v, want context.Canceled", err)
	}
	if u != (Usage{}) {
		t.Errorf("canceled usage = %+v, want zero", u)
	}
}

func TestDirSizeSkipsUnreadable(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission checks do not apply to root")
	}
	root := t.TempDir()
	createFile(t, filepath.Join(root, "ok.js"), 7)
	locked := filepath.Join(root, "locked")
	createFile(t, filepath.Join(locked, "hidden.js"), 1000)
	if err := os.Chmod(locked, 0o000); err != nil {
		t.Fatalf("chmod: %v", err)
	}
	t.Cleanup(func() { os.Chmod(locked, 0o755) })

	s := newTestSizer(t, 2)
	u, err := s.DirSize(context.Background(), root)
	if err != nil {
		t.Fatalf("DirSize: %v", err)
	}
	if u.Bytes != 7 || u.SkippedDirs != 1 {
		t.Errorf("got %+v, want 7 bytes and 1 skipped dir", u)
	}
}

func TestFilesystemUsage(t *testing.T) {
	stats, err := FilesystemUsage(t.TempDir())
	if err != nil {
		t.Skipf("filesystem usage unavailable: %v", err)
	}
	if stats.TotalBytes == 0 {
		t.Errorf("TotalBytes = 0")
	}
	if stats.FreeBytes > stats.TotalBytes {
		t.Errorf("FreeBytes %d > TotalBytes %d", stats.FreeBytes, stats.TotalBytes)
	}
}
