package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"nmsweep/internal/exitcodes"
	"nmsweep/internal/report"
)

func newDeleteCmd(a *app) *cobra.Command {
	var (
		dryRun bool
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "delete <path>...",
		Short: "Remove node_modules folders",
		Long: `Remove each given node_modules folder with everything inside it.

Every path is validated right before removal: it must still exist, be a
real directory named node_modules, sit inside the configured allowed roots
and not be a protected system path. A folder that fails does not stop the
rest of the batch. The command exits with status 5 when any folder was not
removed.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			paths := make([]string, 0, len(args))
			for _, arg := range args {
				p, err := absPath(arg)
				if err != nil {
					return err
				}
				paths = append(paths, p)
			}

			if dryRun {
				a.svc.SetDryRun(true)
			}

			summary, err := a.svc.DeleteFolders(cmd.Context(), paths)
			if summary != nil {
				out := cmd.OutOrStdout()
				var werr error
				if asJSON {
					werr = report.WriteJSON(out, summary)
				} else {
					werr = report.WriteDeleteSummary(out, summary)
				}
				if werr != nil && err == nil {
					err = werr
				}
			}
			if err != nil {
				return err
			}

			if summary.Failed > 0 {
				return exitcodes.WithCode(exitcodes.PartialFailure,
					fmt.Errorf("%d of %d %s not removed", summary.Failed, len(summary.Results),
						report.Plural(int64(len(summary.Results)), "folder was", "folders were")))
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "validate and measure without removing anything")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the delete summary as JSON")
	return cmd
}
