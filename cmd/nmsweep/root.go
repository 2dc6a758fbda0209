package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"nmsweep/internal/config"
	"nmsweep/internal/exitcodes"
	"nmsweep/internal/logging"
	"nmsweep/internal/metrics"
	"nmsweep/internal/service"
)

// app is the state shared by every subcommand for one invocation
type app struct {
	configPath string
	logLevel   string

	cfg    *config.Config
	logger *logging.Logger
	svc    *service.Service
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "nmsweep",
		Short: "Find and remove node_modules folders",
		Long: `nmsweep walks a directory tree, reports every top-level node_modules
folder with its size, and removes the ones you choose.

Nested node_modules inside a found folder are counted in its size and are
never reported on their own. Symbolic links are never followed, and every
delete target is re-validated right before removal.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	rootCmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "config file (default is "+config.DefaultPath()+")")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "override logging.level (debug, info, warn, error)")

	rootCmd.AddCommand(
		newScanCmd(a),
		newDeleteCmd(a),
		newSizeCmd(a),
		newServeCmd(a),
		newHistoryCmd(a),
	)
	return rootCmd
}

func (a *app) setup(cmd *cobra.Command, args []string) error {
	path, missingOK := a.configPath, false
	if path == "" {
		path, missingOK = config.DefaultPath(), true
	}
	cfg, err := config.LoadOrDefault(path, missingOK)
	if err != nil {
		return exitcodes.WithCode(exitcodes.InvalidConfig, err)
	}
	if a.logLevel != "" {
		switch a.logLevel {
		case "debug", "info", "warn", "error":
			cfg.Logging.Level = a.logLevel
		default:
			return exitcodes.WithCode(exitcodes.InvalidConfig, fmt.Errorf("invalid --log-level %q", a.logLevel))
		}
	}
	a.cfg = cfg
	a.logger = logging.NewWithConfig(cfg)

	metrics.Init()
	if cfg.Prometheus.Port > 0 {
		metrics.StartServer(cfg.PrometheusAddress(), a.logger.Logger)
	}

	svc, err := service.New(cfg, a.logger.Logger)
	if err != nil {
		return exitcodes.WithCode(exitcodes.RuntimeError, err)
	}
	a.svc = svc
	return nil
}

// teardown is called by main whatever the command returned; cobra skips
// post-run hooks when RunE fails.
func (a *app) teardown() {
	if a.svc != nil {
		if err := a.svc.Close(); err != nil {
			a.logger.Error().Err(err).Msg("failed to close service")
		}
		a.svc = nil
	}
	if a.cfg != nil && a.cfg.Prometheus.Port > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		metrics.Shutdown(ctx, a.logger.Logger)
		cancel()
	}
	if a.logger != nil {
		a.logger.Close()
	}
}
