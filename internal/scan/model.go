package scan

import "time"

// FolderEntry is one node_modules directory found by a scan
type FolderEntry struct {
	Path          string `json:"path"`
	Size          int64  `json:"size"`
	ParentProject string `json:"parent_project"`
}

// Summary is the result of one scan. Folders are in discovery order.
type Summary struct {
	Folders     []FolderEntry `json:"folders"`
	TotalSize   int64         `json:"total_size"`
	ScanPath    string        `json:"scan_path"`
	SkippedDirs int64         `json:"skipped_dirs"`
	Elapsed     time.Duration `json:"-"`
}

// Paths returns the folder paths in discovery order.
func (s *Summary) Paths() []string {
	paths := make([]string, len(s.Folders))
	for i, f := range s.Folders {
		paths[i] = f.Path
	}
	return paths
}
