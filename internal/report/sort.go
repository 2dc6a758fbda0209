package report

import (
	"fmt"
	"sort"
	"strings"

	"nmsweep/internal/scan"
)

// SortField selects the folder ordering of a listing
type SortField string

const (
	SortBySize SortField = "size"
	SortByName SortField = "name"
	SortByPath SortField = "path"
)

// ParseSortField validates a --sort value
func ParseSortField(s string) (SortField, error) {
	switch f := SortField(strings.ToLower(strings.TrimSpace(s))); f {
	case SortBySize, SortByName, SortByPath:
		return f, nil
	case "":
		return SortBySize, nil
	}
	return "", fmt.Errorf("unknown sort field %q (want size, name or path)", s)
}

// SortFolders returns a sorted copy of folders. Ties fall back to path
// order so the output is deterministic.
func SortFolders(folders []scan.FolderEntry, field SortField, ascending bool) []scan.FolderEntry {
	out := append([]scan.FolderEntry(nil), folders...)

	compare := func(a, b scan.FolderEntry) int {
		switch field {
		case SortByName:
			return strings.Compare(strings.ToLower(a.ParentProject), strings.ToLower(b.ParentProject))
		case SortByPath:
			return strings.Compare(a.Path, b.Path)
		}
		switch {
		case a.Size < b.Size:
			return -1
		case a.Size > b.Size:
			return 1
		}
		return 0
	}

	sort.SliceStable(out, func(i, j int) bool {
		c := compare(out[i], out[j])
		if c == 0 {
			return out[i].Path < out[j].Path
		}
		if ascending {
			return c < 0
		}
		return c > 0
	})
	return out
}
