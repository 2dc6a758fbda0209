package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"nmsweep/internal/database"
	"nmsweep/internal/exitcodes"
	"nmsweep/internal/report"
	"nmsweep/internal/service"
)

func newHistoryCmd(a *app) *cobra.Command {
	var (
		recent  int
		largest int
		stats   bool
		days    int
		batch   string
		action  string
		path    string
		prune   int
		info    bool
		asJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Query the deletion audit log",
		Long: `Query the SQLite audit log of past delete batches. The log is only
written when database_path is set in the config file.`,
		Example: `  nmsweep history --recent 10           # 10 most recent outcomes
  nmsweep history --stats --days 7      # totals for the last week
  nmsweep history --action reject       # every rejected target
  nmsweep history --path '/home/me/%'   # outcomes under /home/me
  nmsweep history --largest 5           # 5 largest folders removed
  nmsweep history --prune 90            # drop records older than 90 days
  nmsweep history --info                # size and span of the audit log`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			var (
				records []database.DeletionRecord
				err     error
			)
			switch {
			case prune > 0:
				var n int64
				if n, err = a.svc.PruneHistory(prune); err == nil {
					_, err = fmt.Fprintf(out, "Removed %s %s older than %d days\n",
						report.FormatCount(n), report.Plural(n, "record", "records"), prune)
				}
				return historyError(err)
			case info:
				var st *database.DatabaseStats
				if st, err = a.svc.HistoryInfo(); err != nil {
					return historyError(err)
				}
				if asJSON {
					return report.WriteJSON(out, st)
				}
				return report.WriteDatabaseInfo(out, a.cfg.DatabasePath, st)
			case stats:
				var s *database.DeletionStats
				if s, err = a.svc.DeletionStats(days); err != nil {
					return historyError(err)
				}
				if asJSON {
					return report.WriteJSON(out, s)
				}
				return report.WriteStats(out, s, days)
			case batch != "":
				records, err = a.svc.DeletionsByBatch(batch)
			case action != "":
				records, err = a.svc.DeletionsByAction(action)
			case path != "":
				records, err = a.svc.DeletionsByPath(path)
			case largest > 0:
				records, err = a.svc.LargestDeletions(largest)
			default:
				records, err = a.svc.RecentDeletions(recent)
			}
			if err != nil {
				return historyError(err)
			}

			if asJSON {
				return report.WriteJSON(out, records)
			}
			return report.WriteRecords(out, records)
		},
	}

	cmd.Flags().IntVar(&recent, "recent", 20, "show the N most recent outcomes")
	cmd.Flags().IntVar(&largest, "largest", 0, "show the N largest folders removed")
	cmd.Flags().BoolVar(&stats, "stats", false, "show aggregated statistics")
	cmd.Flags().IntVar(&days, "days", 30, "window in days for --stats")
	cmd.Flags().StringVar(&batch, "batch", "", "show the outcomes of one delete batch")
	cmd.Flags().StringVar(&action, "action", "", "filter by action (DELETE, DRY_RUN, STALE, REJECT, ERROR)")
	cmd.Flags().StringVar(&path, "path", "", "filter by path pattern (SQL LIKE syntax)")
	cmd.Flags().IntVar(&prune, "prune", 0, "delete records older than N days")
	cmd.Flags().BoolVar(&info, "info", false, "describe the audit log file")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print results as JSON")
	cmd.MarkFlagsMutuallyExclusive("stats", "largest", "batch", "action", "path", "prune", "info")
	return cmd
}

func historyError(err error) error {
	if errors.Is(err, service.ErrHistoryDisabled) {
		return exitcodes.WithCode(exitcodes.InvalidConfig, err)
	}
	return err
}
