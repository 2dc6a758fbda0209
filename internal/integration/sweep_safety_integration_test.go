package integration

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"nmsweep/internal/config"
	"nmsweep/internal/fsops"
	"nmsweep/internal/metrics"
	"nmsweep/internal/safety"
	"nmsweep/internal/service"
)

func init() {
	// Initialize metrics once for all integration tests
	metrics.Init()
}

func mkModules(t *testing.T, project string, size int) string {
	t.Helper()
	nm := filepath.Join(project, "node_modules")
	if err := os.MkdirAll(filepath.Join(nm, "lodash"), 0o755); err != nil {
		t.Fatalf("Failed to create %s: %v", nm, err)
	}
	if err := os.WriteFile(filepath.Join(nm, "lodash", "lodash.js"), make([]byte, size), 0o644); err != nil {
		t.Fatalf("Failed to write package file: %v", err)
	}
	return nm
}

func exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// TestSweepSafetyIntegration runs scan and delete against a real tree with
// an allowed root and escape attempts around it.
func TestSweepSafetyIntegration(t *testing.T) {
	tmpRoot := t.TempDir()
	allowedDir := filepath.Join(tmpRoot, "allowed")
	outsideDir := filepath.Join(tmpRoot, "outside")

	web := mkModules(t, filepath.Join(allowedDir, "web"), 4096)
	api := mkModules(t, filepath.Join(allowedDir, "api"), 1024)
	foreign := mkModules(t, filepath.Join(outsideDir, "foreign"), 512)

	// A project directory inside the allowed root that is really a link to
	// a project outside it.
	linkedProject := filepath.Join(allowedDir, "linked")
	if err := os.Symlink(filepath.Join(outsideDir, "foreign"), linkedProject); err != nil {
		t.Fatalf("Failed to create symlink: %v", err)
	}
	// A node_modules entry that is itself a symlink.
	linkedModules := filepath.Join(allowedDir, "shim", "node_modules")
	if err := os.MkdirAll(filepath.Dir(linkedModules), 0o755); err != nil {
		t.Fatalf("Failed to create shim dir: %v", err)
	}
	if err := os.Symlink(foreign, linkedModules); err != nil {
		t.Fatalf("Failed to create symlink: %v", err)
	}

	newService := func(t *testing.T, dryRun bool) *service.Service {
		cfg := config.Default()
		cfg.Delete.AllowedRoots = []string{allowedDir}
		cfg.Delete.DryRun = dryRun
		svc, err := service.New(cfg, zerolog.Nop())
		if err != nil {
			t.Fatalf("service.New: %v", err)
		}
		t.Cleanup(func() { svc.Close() })
		return svc
	}
	ctx := context.Background()

	t.Run("ScanReportsOnlyRealFolders", func(t *testing.T) {
		summary, err := newService(t, true).ScanForNodeModules(ctx, allowedDir)
		if err != nil {
			t.Fatalf("Scan failed: %v", err)
		}
		got := map[string]int64{}
		for _, f := range summary.Folders {
			got[f.Path] = f.Size
		}
		if len(got) != 2 || got[web] != 4096 || got[api] != 1024 {
			t.Errorf("Scan found %v, expected only %s and %s", got, web, api)
		}
	})

	t.Run("DryRun_NoFilesystemChanges", func(t *testing.T) {
		summary, err := newService(t, true).DeleteFolders(ctx, []string{web, api})
		if err != nil {
			t.Fatalf("DryRun delete failed: %v", err)
		}
		if !summary.DryRun || summary.Succeeded != 2 {
			t.Errorf("Unexpected dry-run summary: %+v", summary)
		}
		if !exists(web) || !exists(api) {
			t.Error("DRY-RUN VIOLATION: a folder was removed")
		}
	})

	t.Run("SymlinkEscape_Blocked", func(t *testing.T) {
		before := testutil.ToFloat64(metrics.DeletionsTotal.WithLabelValues("invalid"))

		targets := []string{
			filepath.Join(linkedProject, "node_modules"),
			linkedModules,
		}
		summary, err := newService(t, false).DeleteFolders(ctx, targets)
		if err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if summary.Failed != 2 {
			t.Fatalf("SAFETY VIOLATION: expected both targets rejected, got %+v", summary)
		}
		if !errors.Is(summary.Results[0].Err, safety.ErrSymlinkEscape) {
			t.Errorf("linked project error = %v, expected ErrSymlinkEscape", summary.Results[0].Err)
		}
		if !errors.Is(summary.Results[1].Err, safety.ErrSymlinkTarget) {
			t.Errorf("linked node_modules error = %v, expected ErrSymlinkTarget", summary.Results[1].Err)
		}
		if !exists(foreign) || !exists(filepath.Join(foreign, "lodash", "lodash.js")) {
			t.Error("CRITICAL SAFETY VIOLATION: folder outside allowed root removed through a symlink")
		}

		if after := testutil.ToFloat64(metrics.DeletionsTotal.WithLabelValues("invalid")); after-before != 2 {
			t.Errorf("invalid deletions metric grew by %v, expected 2", after-before)
		}
	})

	t.Run("OutsideAllowedRoot_Blocked", func(t *testing.T) {
		summary, err := newService(t, false).DeleteFolders(ctx, []string{foreign})
		if err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if summary.Failed != 1 || !errors.Is(summary.Results[0].Err, safety.ErrOutsideAllowed) {
			t.Errorf("Expected ErrOutsideAllowed, got %+v", summary.Results)
		}
		if !exists(foreign) {
			t.Error("CRITICAL SAFETY VIOLATION: folder outside allowed root was removed")
		}
	})

	t.Run("RealMode_RemovesAndRescans", func(t *testing.T) {
		svc := newService(t, false)
		before := testutil.ToFloat64(metrics.BytesFreedTotal)

		found, err := svc.ScanForNodeModules(ctx, allowedDir)
		if err != nil {
			t.Fatalf("Scan failed: %v", err)
		}
		summary, err := svc.DeleteFolders(ctx, found.Paths())
		if err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if summary.Succeeded != 2 || summary.BytesFreed != 5120 {
			t.Errorf("Unexpected summary: %+v", summary)
		}
		if exists(web) || exists(api) {
			t.Error("folders should have been removed")
		}
		if after := testutil.ToFloat64(metrics.BytesFreedTotal); after-before != 5120 {
			t.Errorf("bytes freed metric grew by %v, expected 5120", after-before)
		}

		// Deleting again reports stale targets and touches nothing else.
		again, err := svc.DeleteFolders(ctx, []string{web})
		if err != nil {
			t.Fatalf("Second delete failed: %v", err)
		}
		if again.Failed != 1 || !errors.Is(again.Results[0].Err, fsops.ErrStaleTarget) {
			t.Errorf("Expected stale target, got %+v", again.Results)
		}

		rescan, err := svc.ScanForNodeModules(ctx, allowedDir)
		if err != nil {
			t.Fatalf("Rescan failed: %v", err)
		}
		if len(rescan.Folders) != 0 {
			t.Errorf("Rescan found %v, expected nothing", rescan.Folders)
		}
	})

	t.Run("ProtectedPaths_Blocked", func(t *testing.T) {
		validator := safety.NewValidator([]string{"/"}, nil)
		for _, path := range []string{"/usr/lib/node_modules", "/etc/node_modules", "/"} {
			if err := validator.ValidateDeleteTarget(path); !errors.Is(err, safety.ErrProtectedPath) {
				t.Errorf("SAFETY VIOLATION: protected path %s not blocked (err=%v)", path, err)
			}
		}
	})
}
