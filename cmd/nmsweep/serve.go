package main

import (
	"github.com/spf13/cobra"

	"nmsweep/internal/api"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Expose scan and delete over a local HTTP API",
		Long: `Start the JSON API on server.addr (127.0.0.1:7419 by default):

  GET  /api/v1/health
  POST /api/v1/scan     {"path": "/abs/root"}
  POST /api/v1/delete   {"paths": ["/abs/root/app/node_modules"]}
  GET  /api/v1/size?path=/abs/dir
  GET  /api/v1/history?limit=50

The server stops gracefully on SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg.Server
			if addr != "" {
				cfg.Addr = addr
			}
			return api.NewServer(a.svc, cfg, a.logger.Logger).Run(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address, overrides server.addr")
	return cmd
}
