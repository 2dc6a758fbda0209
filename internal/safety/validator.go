package safety

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"nmsweep/internal/fsops"
)

// Every rejection wraps fsops.ErrValidation; a target that is already gone
// is reported as fsops.ErrStaleTarget instead.
var (
	ErrInvalidPath     = fmt.Errorf("%w: invalid path", fsops.ErrValidation)
	ErrProtectedPath   = fmt.Errorf("%w: protected path", fsops.ErrValidation)
	ErrOutsideAllowed  = fmt.Errorf("%w: outside allowed roots", fsops.ErrValidation)
	ErrTraversal       = fmt.Errorf("%w: path traversal detected", fsops.ErrValidation)
	ErrSymlinkEscape   = fmt.Errorf("%w: symlink escape detected", fsops.ErrValidation)
	ErrSymlinkTarget   = fmt.Errorf("%w: target is a symbolic link", fsops.ErrValidation)
	ErrNotDirectory    = fmt.Errorf("%w: not a directory", fsops.ErrValidation)
	ErrNotNodeModules  = fmt.Errorf("%w: not a node_modules directory", fsops.ErrValidation)
	errTargetVanished  = fmt.Errorf("%w: rescan to refresh results", fsops.ErrStaleTarget)
	errTargetForbidden = fmt.Errorf("%w: cannot inspect target", fsops.ErrAccess)
)

// Validator enforces the safety contract for all delete operations
type Validator struct {
	AllowedRoots   []string
	ProtectedPaths []string
}

// NewValidator creates a validator. An empty allowed list permits any
// location that is not protected.
func NewValidator(allowed []string, extraProtected []string) *Validator {
	return &Validator{
		AllowedRoots:   normalizeRoots(allowed),
		ProtectedPaths: defaultProtected(normalizeRoots(extraProtected)),
	}
}

// ValidateDeleteTarget is the single gate every removal passes through.
// Static checks on the path string run first, then the target is inspected
// with Lstat so a symlink is never mistaken for the directory it points to.
func (v *Validator) ValidateDeleteTarget(path string) error {
	p, err := NormalizePath(path)
	if err != nil {
		return err
	}

	if DetectTraversal(path) {
		return ErrTraversal
	}
	if IsProtectedPath(p, v.ProtectedPaths) {
		return ErrProtectedPath
	}
	if len(v.AllowedRoots) > 0 && !IsWithinAllowedRoots(p, v.AllowedRoots) {
		return ErrOutsideAllowed
	}
	if !fsops.IsNodeModules(p) {
		return ErrNotNodeModules
	}

	info, err := os.Lstat(p)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return errTargetVanished
	case errors.Is(err, os.ErrPermission):
		return fmt.Errorf("%w: %w", errTargetForbidden, err)
	case err != nil:
		return fmt.Errorf("inspect %s: %w", p, err)
	}
	if info.Mode()&os.ModeSymlink != 0 {
		return ErrSymlinkTarget
	}
	if !info.IsDir() {
		return ErrNotDirectory
	}

	if len(v.AllowedRoots) > 0 {
		escaped, err := DetectSymlinkEscape(p, v.AllowedRoots)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return errTargetVanished
			}
			return fmt.Errorf("resolve %s: %w", p, err)
		}
		if escaped {
			return ErrSymlinkEscape
		}
	}

	return nil
}

// NormalizePath cleans an absolute path. Relative input is rejected because
// delete targets always come from a scan of an absolute root.
func NormalizePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", ErrInvalidPath
	}
	if !filepath.IsAbs(path) {
		return "", fmt.Errorf("%w: %q is not absolute", ErrInvalidPath, path)
	}
	return filepath.Clean(path), nil
}

// DetectTraversal blocks any ".." segment in raw input
func DetectTraversal(raw string) bool {
	for _, p := range strings.Split(filepath.ToSlash(raw), "/") {
		if p == ".." {
			return true
		}
	}
	return false
}

// IsWithinAllowedRoots checks if path is within any allowed root
func IsWithinAllowedRoots(path string, allowedRoots []string) bool {
	for _, r := range allowedRoots {
		if fsops.HasPathPrefix(path, r) {
			return true
		}
	}
	return false
}

// DetectSymlinkEscape resolves the directories leading to cleanAbs and
// reports whether the real location lies outside the allowed roots.
func DetectSymlinkEscape(cleanAbs string, allowedRoots []string) (bool, error) {
	parent, err := filepath.EvalSymlinks(filepath.Dir(cleanAbs))
	if err != nil {
		return false, err
	}
	resolved := filepath.Join(parent, filepath.Base(cleanAbs))
	return !IsWithinAllowedRoots(resolved, resolveRoots(allowedRoots)), nil
}

// IsProtectedPath checks if path is, or lies beneath, a protected path.
// The filesystem root is only protected as an exact match.
func IsProtectedPath(path string, protected []string) bool {
	p := filepath.Clean(path)
	root := string(os.PathSeparator)
	if p == root {
		return true
	}
	for _, prot := range protected {
		prot = filepath.Clean(prot)
		if prot == root {
			continue
		}
		if fsops.HasPathPrefix(p, prot) {
			return true
		}
	}
	return false
}

// resolveRoots evaluates symlinks in each root so comparisons happen between
// real locations. Roots that cannot be resolved are kept as given.
func resolveRoots(roots []string) []string {
	out := make([]string, 0, len(roots))
	for _, r := range roots {
		if real, err := filepath.EvalSymlinks(r); err == nil {
			out = append(out, real)
			continue
		}
		out = append(out, r)
	}
	return out
}

func normalizeRoots(roots []string) []string {
	out := make([]string, 0, len(roots))
	for _, r := range roots {
		if strings.TrimSpace(r) == "" {
			continue
		}
		abs, err := filepath.Abs(r)
		if err != nil {
			continue
		}
		out = append(out, filepath.Clean(abs))
	}
	return out
}

// defaultProtected returns the base set of protected paths plus any extras
func defaultProtected(extra []string) []string {
	base := []string{
		"/",
		"/bin",
		"/boot",
		"/dev",
		"/etc",
		"/lib",
		"/lib64",
		"/proc",
		"/sbin",
		"/sys",
		"/usr",
	}
	return append(base, extra...)
}
