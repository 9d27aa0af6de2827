package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"scenecast/internal/logging"
	"scenecast/internal/preflight"
	"scenecast/internal/server"
)

// abandonedRunAge is how long a run may stay "running" before serve startup
// marks it failed.
const abandonedRunAge = 6 * time.Hour

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bind string
	var skipPreflight bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the generate endpoint over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			if strings.TrimSpace(bind) != "" {
				cfg.Paths.APIBind = strings.TrimSpace(bind)
			}
			logger, err := ctx.newLogger()
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			if removed := logging.PruneLogs(logger, cfg.Paths.LogDir, "*.log", cfg.Logging.RetentionDays, cfg.LogFilePath()); removed > 0 {
				logger.Info("pruned old logs", logging.Int("removed", removed))
			}
			if !skipPreflight {
				results := preflight.RunAll(cmd.Context(), cfg)
				for _, failed := range preflight.Failed(results) {
					logging.ErrorWithContext(logger, "preflight check failed", "preflight_failed",
						logging.String("check", failed.Name),
						logging.String("detail", failed.Detail),
					)
				}
				if err := preflight.Error(results); err != nil {
					return err
				}
			}

			store := ctx.openStore(logger)
			var runs server.RunLister
			if store != nil {
				defer store.Close()
				runs = store
				if n, err := store.MarkAbandoned(cmd.Context(), abandonedRunAge); err != nil {
					logger.Debug("abandoned run sweep failed", logging.Error(err))
				} else if n > 0 {
					logger.Info("marked abandoned runs failed", logging.Int64("count", n))
				}
			}

			pipe, err := ctx.newPipeline(cmd.Context(), logger, store)
			if err != nil {
				return fmt.Errorf("build pipeline: %w", err)
			}
			srv, err := server.New(cfg, pipe, runs, logger)
			if err != nil {
				return err
			}
			return srv.Listen(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&bind, "bind", "", "Listen address (overrides paths.api_bind)")
	cmd.Flags().BoolVar(&skipPreflight, "skip-preflight", false, "Skip tool and directory checks")
	return cmd
}
