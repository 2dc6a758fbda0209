package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"nmsweep/internal/exitcodes"
	"nmsweep/internal/report"
)

func newScanCmd(a *app) *cobra.Command {
	var (
		sortBy string
		asc    bool
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "scan [root]",
		Short: "List node_modules folders under root with their sizes",
		Long: `Walk root (the current directory by default) and list every top-level
node_modules folder with its size and owning project. Folders are sorted
largest first unless --sort says otherwise.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			field, err := report.ParseSortField(sortBy)
			if err != nil {
				return exitcodes.WithCode(exitcodes.InvalidConfig, err)
			}

			root := ""
			if len(args) == 1 {
				root = args[0]
			}
			root, err = absPath(root)
			if err != nil {
				return err
			}

			summary, err := a.svc.ScanForNodeModules(cmd.Context(), root)
			if err != nil {
				return err
			}

			folders := report.SortFolders(summary.Folders, field, asc)

			out := cmd.OutOrStdout()
			if asJSON {
				summary.Folders = folders
				return report.WriteJSON(out, summary)
			}

			volume, err := a.svc.VolumeUsage(root)
			if err != nil {
				a.logger.Debug().Err(err).Str("path", root).Msg("volume usage unavailable")
				volume = nil
			}
			return report.WriteScan(out, summary, folders, volume)
		},
	}

	cmd.Flags().StringVarP(&sortBy, "sort", "s", "size", "sort by size, name or path")
	cmd.Flags().BoolVar(&asc, "asc", false, "sort ascending instead of descending")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the scan summary as JSON")
	return cmd
}

// absPath resolves a command-line path against the working directory; an
// empty path means the working directory itself.
func absPath(p string) (string, error) {
	if p == "" {
		return os.Getwd()
	}
	return filepath.Abs(p)
}
