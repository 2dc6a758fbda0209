package safety

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"nmsweep/internal/fsops"
)

// TestProtectedPathBlocking verifies protected paths are blocked
func TestProtectedPathBlocking(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		expected bool
	}{
		{"root slash", "/", true},
		{"etc", "/etc", true},
		{"etc subdir", "/etc/ssh", true},
		{"bin file", "/bin/bash", true},
		{"usr local", "/usr/local", true},
		{"global npm modules", "/usr/lib/node_modules", true},
		{"boot grub", "/boot/grub2", true},
		{"lib64", "/lib64", true},
		{"proc", "/proc/1", true},
		{"extra protected", "/srv/keep/node_modules", true},
		{"tmp allowed", "/tmp", false},
		{"var tmp", "/var/tmp", false},
		{"home user", "/home/user/app/node_modules", false},
		{"similar prefix", "/etcetera/node_modules", false},
	}

	protected := defaultProtected([]string{"/srv/keep"})

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := IsProtectedPath(tt.path, protected)
			if result != tt.expected {
				t.Errorf("IsProtectedPath(%s) = %v, expected %v", tt.path, result, tt.expected)
			}
		})
	}
}

// TestAllowedRootEnforcement verifies paths are restricted to allowed roots
func TestAllowedRootEnforcement(t *testing.T) {
	allowed := []string{"/tmp/allowed", "/home/dev/code"}

	tests := []struct {
		name     string
		path     string
		expected bool
	}{
		{"inside allowed tmp", "/tmp/allowed/app/node_modules", true},
		{"inside allowed code", "/home/dev/code/site/node_modules", true},
		{"allowed root exact", "/tmp/allowed", true},
		{"outside allowed", "/tmp/notallowed/node_modules", false},
		{"parent of allowed", "/tmp", false},
		{"partial name match", "/home/dev/codebase/node_modules", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := IsWithinAllowedRoots(tt.path, allowed)
			if result != tt.expected {
				t.Errorf("IsWithinAllowedRoots(%s) = %v, expected %v", tt.path, result, tt.expected)
			}
		})
	}
}

// TestPathNormalization verifies paths are normalized correctly
func TestPathNormalization(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		expected string
		wantErr  bool
	}{
		{"absolute path", "/tmp/app/node_modules", "/tmp/app/node_modules", false},
		{"path with dots", "/tmp/./app//node_modules/", "/tmp/app/node_modules", false},
		{"relative path", "app/node_modules", "", true},
		{"empty path", "", "", true},
		{"whitespace only", "   ", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := NormalizePath(tt.path)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidPath) {
					t.Errorf("NormalizePath(%q) error = %v, expected ErrInvalidPath", tt.path, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NormalizePath(%q) unexpected error: %v", tt.path, err)
			}
			if result != tt.expected {
				t.Errorf("NormalizePath(%q) = %s, expected %s", tt.path, result, tt.expected)
			}
		})
	}
}

// TestTraversalDetection verifies ".." segments are detected
func TestTraversalDetection(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		expected bool
	}{
		{"normal path", "/tmp/app/node_modules", false},
		{"dotdot parent", "/tmp/../etc/node_modules", true},
		{"dotdot at end", "/tmp/node_modules/..", true},
		{"single dot ok", "/tmp/./node_modules", false},
		{"dots inside a name", "/tmp/a..b/node_modules", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := DetectTraversal(tt.path)
			if result != tt.expected {
				t.Errorf("DetectTraversal(%s) = %v, expected %v", tt.path, result, tt.expected)
			}
		})
	}
}

// TestSymlinkEscapeDetection verifies a node_modules reached through a
// linked parent directory outside the allowed roots is detected
func TestSymlinkEscapeDetection(t *testing.T) {
	tmpDir := t.TempDir()
	allowedDir := filepath.Join(tmpDir, "allowed")
	outsideProject := filepath.Join(tmpDir, "outside", "proj")

	for _, dir := range []string{
		filepath.Join(allowedDir, "proj", "node_modules"),
		filepath.Join(outsideProject, "node_modules"),
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("Failed to create %s: %v", dir, err)
		}
	}
	linkedProject := filepath.Join(allowedDir, "linked")
	if err := os.Symlink(outsideProject, linkedProject); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}

	allowed := []string{allowedDir}

	escaped, err := DetectSymlinkEscape(filepath.Join(linkedProject, "node_modules"), allowed)
	if err != nil || !escaped {
		t.Errorf("linked parent: escaped=%v err=%v, expected escape", escaped, err)
	}
	escaped, err = DetectSymlinkEscape(filepath.Join(allowedDir, "proj", "node_modules"), allowed)
	if err != nil || escaped {
		t.Errorf("real parent: escaped=%v err=%v, expected no escape", escaped, err)
	}
	if _, err := DetectSymlinkEscape(filepath.Join(allowedDir, "missing", "node_modules"), allowed); err == nil {
		t.Error("expected an error for a missing parent")
	}
}

// TestValidateDeleteTarget is the integration test for the full safety contract
func TestValidateDeleteTarget(t *testing.T) {
	tmpDir := t.TempDir()
	allowedDir := filepath.Join(tmpDir, "allowed")
	outsideDir := filepath.Join(tmpDir, "outside")

	target := filepath.Join(allowedDir, "app", "node_modules")
	outsideTarget := filepath.Join(outsideDir, "app", "node_modules")
	plainDir := filepath.Join(allowedDir, "app", "src")
	for _, dir := range []string{target, outsideTarget, plainDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("Failed to create %s: %v", dir, err)
		}
	}

	fileNamed := filepath.Join(allowedDir, "file", "node_modules")
	if err := os.MkdirAll(filepath.Dir(fileNamed), 0o755); err != nil {
		t.Fatalf("Failed to create dir: %v", err)
	}
	if err := os.WriteFile(fileNamed, []byte("not a dir"), 0o644); err != nil {
		t.Fatalf("Failed to create file: %v", err)
	}

	linkNamed := filepath.Join(allowedDir, "link", "node_modules")
	if err := os.MkdirAll(filepath.Dir(linkNamed), 0o755); err != nil {
		t.Fatalf("Failed to create dir: %v", err)
	}
	if err := os.Symlink(target, linkNamed); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}

	escapeParent := filepath.Join(allowedDir, "escape")
	if err := os.Symlink(filepath.Join(outsideDir, "app"), escapeParent); err != nil {
		t.Fatalf("Failed to create symlink: %v", err)
	}

	validator := NewValidator([]string{allowedDir}, nil)

	tests := []struct {
		name        string
		path        string
		expectError error
	}{
		{"valid target", target, nil},
		{"outside allowed", outsideTarget, ErrOutsideAllowed},
		{"protected global modules", "/usr/lib/node_modules", ErrProtectedPath},
		{"protected root", "/", ErrProtectedPath},
		{"wrong name", plainDir, ErrNotNodeModules},
		{"file named node_modules", fileNamed, ErrNotDirectory},
		{"symlink named node_modules", linkNamed, ErrSymlinkTarget},
		{"escaping parent", filepath.Join(escapeParent, "node_modules"), ErrSymlinkEscape},
		{"traversal attempt", filepath.Join(allowedDir, "app") + "/../app/node_modules", ErrTraversal},
		{"relative path", "app/node_modules", ErrInvalidPath},
		{"empty path", "", ErrInvalidPath},
		{"missing target", filepath.Join(allowedDir, "gone", "node_modules"), fsops.ErrStaleTarget},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.ValidateDeleteTarget(tt.path)
			if tt.expectError == nil {
				if err != nil {
					t.Errorf("ValidateDeleteTarget(%s) unexpected error: %v", tt.path, err)
				}
				return
			}
			if !errors.Is(err, tt.expectError) {
				t.Errorf("ValidateDeleteTarget(%s) = %v, expected %v", tt.path, err, tt.expectError)
			}
		})
	}
}

// TestErrorKinds verifies rejections and stale targets are distinguishable
func TestErrorKinds(t *testing.T) {
	for _, err := range []error{
		ErrInvalidPath, ErrProtectedPath, ErrOutsideAllowed, ErrTraversal,
		ErrSymlinkEscape, ErrSymlinkTarget, ErrNotDirectory, ErrNotNodeModules,
	} {
		if !errors.Is(err, fsops.ErrValidation) {
			t.Errorf("%v does not wrap ErrValidation", err)
		}
		if errors.Is(err, fsops.ErrStaleTarget) {
			t.Errorf("%v must not be a stale target", err)
		}
	}

	v := NewValidator(nil, nil)
	err := v.ValidateDeleteTarget(filepath.Join(t.TempDir(), "gone", "node_modules"))
	if !errors.Is(err, fsops.ErrStaleTarget) || errors.Is(err, fsops.ErrValidation) {
		t.Errorf("missing target error = %v, expected stale target only", err)
	}
}
