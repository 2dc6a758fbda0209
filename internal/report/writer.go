package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"

	"nmsweep/internal/cleanup"
	"nmsweep/internal/database"
	"nmsweep/internal/disk"
	"nmsweep/internal/scan"
)

const maxPathWidth = 80

// WriteJSON writes v as indented JSON
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteScan prints the folders of a scan followed by totals. volume may be nil.
func WriteScan(w io.Writer, summary *scan.Summary, folders []scan.FolderEntry, volume *disk.VolumeStats) error {
	if len(folders) == 0 {
		fmt.Fprintf(w, "No node_modules folders found under %s\n", summary.ScanPath)
	} else {
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "Size\tProject\t\tPath")
		fmt.Fprintln(tw, rule("Size", "Project", "", "Path"))
		for _, f := range folders {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
				FormatSize(f.Size), f.ParentProject, Severity(f.Size), truncateLeft(f.Path, maxPathWidth))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	fmt.Fprintf(w, "\n%s %s, %s total\n",
		FormatCount(int64(len(folders))), Plural(int64(len(folders)), "folder", "folders"), FormatSize(summary.TotalSize))
	if summary.SkippedDirs > 0 {
		fmt.Fprintf(w, "%s unreadable %s skipped\n",
			FormatCount(summary.SkippedDirs), Plural(summary.SkippedDirs, "directory", "directories"))
	}
	if summary.Elapsed > 0 {
		fmt.Fprintf(w, "Scanned %s in %s\n", summary.ScanPath, summary.Elapsed.Round(time.Millisecond))
	}
	if volume != nil {
		fmt.Fprintf(w, "Volume: %s free of %s (%.1f%% used)\n",
			FormatSize(int64(volume.FreeBytes)), FormatSize(int64(volume.TotalBytes)), volume.UsedPercent)
	}
	return nil
}

// WriteDeleteSummary prints one line per outcome followed by totals
func WriteDeleteSummary(w io.Writer, summary *cleanup.DeleteSummary) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, out := range summary.Results {
		status := "removed"
		detail := FormatSize(out.BytesFreed)
		switch {
		case !out.Success:
			status, detail = "FAILED", out.Error
		case out.DryRun:
			status, detail = "would remove", ""
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", status, out.Path, detail)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(w, "\n%d removed, %d failed, %s freed\n",
		summary.Succeeded, summary.Failed, FormatSize(summary.BytesFreed))
	if summary.DryRun {
		fmt.Fprintln(w, "Dry run: nothing was deleted")
	}
	return nil
}

// WriteRecords prints audit log records
func WriteRecords(w io.Writer, records []database.DeletionRecord) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "No records found")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTimestamp\tAction\tSize\tPath\tError")
	fmt.Fprintln(tw, rule("ID", "Timestamp", "Action", "Size", "Path", "Error"))
	for _, r := range records {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.Timestamp.Local().Format("2006-01-02 15:04:05"), r.Action,
			FormatSize(r.Size), r.Path, r.ErrorMessage)
	}
	return tw.Flush()
}

// WriteStats prints aggregated audit statistics
func WriteStats(w io.Writer, stats *database.DeletionStats, days int) error {
	fmt.Fprintf(w, "Deletion Statistics (Last %d days)\n", days)
	fmt.Fprintf(w, "Period: %s to %s\n\n", stats.StartDate.Format("2006-01-02"), stats.EndDate.Format("2006-01-02"))
	fmt.Fprintf(w, "Batches:      %s\n", FormatCount(int64(stats.TotalBatches)))
	fmt.Fprintf(w, "Removed:      %s\n", FormatCount(int64(stats.TotalDeleted)))
	fmt.Fprintf(w, "Dry runs:     %s\n", FormatCount(int64(stats.TotalDryRun)))
	fmt.Fprintf(w, "Failed:       %s\n", FormatCount(int64(stats.TotalFailed)))
	fmt.Fprintf(w, "Space freed:  %s\n", FormatSize(stats.TotalSpaceFreed))

	if len(stats.ByAction) > 0 {
		actions := make([]string, 0, len(stats.ByAction))
		for action := range stats.ByAction {
			actions = append(actions, action)
		}
		sort.Strings(actions)

		fmt.Fprintln(w, "\nBy Action (all time):")
		for _, action := range actions {
			fmt.Fprintf(w, "  %-10s %s\n", action, FormatCount(int64(stats.ByAction[action])))
		}
	}
	return nil
}

// WriteDatabaseInfo prints a short description of the audit log file
func WriteDatabaseInfo(w io.Writer, path string, info *database.DatabaseStats) error {
	fmt.Fprintf(w, "Database:  %s (%s)\n", path, FormatSize(info.SizeBytes))
	fmt.Fprintf(w, "Records:   %s\n", FormatCount(info.TotalRecords))
	fmt.Fprintf(w, "Paths:     %s\n", FormatCount(info.DistinctPaths))
	if info.OldestRecord != nil && info.NewestRecord != nil {
		fmt.Fprintf(w, "Span:      %s to %s\n",
			info.OldestRecord.Local().Format("2006-01-02 15:04"), info.NewestRecord.Local().Format("2006-01-02 15:04"))
	}
	return nil
}
