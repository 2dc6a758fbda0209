package fsops

import (
	"os"
	"path/filepath"
	"strings"
)

// NodeModules is the directory name the scanner looks for.
const NodeModules = "node_modules"

// UnknownProject is reported when a folder has no usable parent name.
const UnknownProject = "Unknown"

// IsNodeModules reports whether the last element of path is exactly node_modules.
func IsNodeModules(path string) bool {
	return filepath.Base(path) == NodeModules
}

// ParentProject returns the name of the directory that owns a node_modules folder.
func ParentProject(nodeModulesPath string) string {
	parent := filepath.Dir(filepath.Clean(nodeModulesPath))
	name := filepath.Base(parent)
	if name == "" || name == "." || name == string(os.PathSeparator) {
		return UnknownProject
	}
	return name
}

// IsHidden reports whether a directory entry name is a dot-name.
func IsHidden(name string) bool {
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}

// HasPathPrefix reports whether path equals prefix or lies beneath it.
func HasPathPrefix(path, prefix string) bool {
	path = filepath.Clean(path)
	prefix = filepath.Clean(prefix)

	if prefix == string(os.PathSeparator) {
		return strings.HasPrefix(path, prefix)
	}
	if path == prefix {
		return true
	}
	return strings.HasPrefix(path, prefix+string(os.PathSeparator))
}

// IsDescendant reports whether path lies strictly beneath ancestor.
func IsDescendant(path, ancestor string) bool {
	return filepath.Clean(path) != filepath.Clean(ancestor) && HasPathPrefix(path, ancestor)
}
