package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"nmsweep/internal/api"
	"nmsweep/internal/report"
)

func newSizeCmd(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "size <path>",
		Short: "Print the total size of the files under a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := absPath(args[0])
			if err != nil {
				return err
			}
			size, err := a.svc.FolderSize(cmd.Context(), path)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return report.WriteJSON(out, api.SizeResponse{Path: path, Size: size})
			}
			_, err = fmt.Fprintf(out, "%s\t%s (%s bytes)\n", path, report.FormatSize(size), report.FormatCount(size))
			return err
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	return cmd
}
