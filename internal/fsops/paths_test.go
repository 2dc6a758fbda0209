package fsops

import (
	"path/filepath"
	"testing"
)

func TestIsNodeModules(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		expected bool
	}{
		{"exact", "/home/u/proj/node_modules", true},
		{"trailing slash", "/home/u/proj/node_modules/", true},
		{"prefix only", "/home/u/proj/node_modules_old", false},
		{"suffix only", "/home/u/proj/my_node_modules", false},
		{"case differs", "/home/u/proj/Node_Modules", false},
		{"inside", "/home/u/proj/node_modules/react", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsNodeModules(tt.path); got != tt.expected {
				t.Errorf("IsNodeModules(%s) = %v, expected %v", tt.path, got, tt.expected)
			}
		})
	}
}

func TestParentProject(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		expected string
	}{
		{"project dir", "/work/projA/node_modules", "projA"},
		{"nested project", "/work/apps/web/node_modules", "web"},
		{"at filesystem root", "/node_modules", UnknownProject},
		{"bare name", "node_modules", UnknownProject},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParentProject(filepath.FromSlash(tt.path)); got != tt.expected {
				t.Errorf("ParentProject(%s) = %q, expected %q", tt.path, got, tt.expected)
			}
		})
	}
}

func TestIsHidden(t *testing.T) {
	for name, expected := range map[string]bool{
		".git":         true,
		".cache":       true,
		".":            false,
		"..":           false,
		"node_modules": false,
		"src":          false,
	} {
		if got := IsHidden(name); got != expected {
			t.Errorf("IsHidden(%q) = %v, expected %v", name, got, expected)
		}
	}
}

func TestHasPathPrefixAndDescendant(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		prefix     string
		prefixed   bool
		descendant bool
	}{
		{"same", "/a/b", "/a/b", true, false},
		{"child", "/a/b/c", "/a/b", true, true},
		{"sibling with shared prefix", "/a/bc", "/a/b", false, false},
		{"parent", "/a", "/a/b", false, false},
		{"root prefix", "/a", "/", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HasPathPrefix(tt.path, tt.prefix); got != tt.prefixed {
				t.Errorf("HasPathPrefix(%s, %s) = %v, expected %v", tt.path, tt.prefix, got, tt.prefixed)
			}
			if got := IsDescendant(tt.path, tt.prefix); got != tt.descendant {
				t.Errorf("IsDescendant(%s, %s) = %v, expected %v", tt.path, tt.prefix, got, tt.descendant)
			}
		})
	}
}
