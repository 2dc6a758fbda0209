package disk

import (
	"fmt"

	psdisk "github.com/shirou/gopsutil/v3/disk"
)

// VolumeStats describes the filesystem holding a path
type VolumeStats struct {
	Path        string  `json:"path"`
	TotalBytes  uint64  `json:"total_bytes"`
	FreeBytes   uint64  `json:"free_bytes"`
	UsedBytes   uint64  `json:"used_bytes"`
	UsedPercent float64 `json:"used_percent"`
	Fstype      string  `json:"fstype,omitempty"`
}

// FilesystemUsage returns capacity figures for the volume containing path
func FilesystemUsage(path string) (*VolumeStats, error) {
	usage, err := psdisk.Usage(path)
	if err != nil {
		return nil, fmt.Errorf("filesystem usage for %s: %w", path, err)
	}

	return &VolumeStats{
		Path:        path,
		TotalBytes:  usage.Total,
		FreeBytes:   usage.Free,
		UsedBytes:   usage.Used,
		UsedPercent: usage.UsedPercent,
		Fstype:      usage.Fstype,
	}, nil
}
