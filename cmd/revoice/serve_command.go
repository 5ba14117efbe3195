package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"revoice/internal/api"
	"revoice/internal/config"
	"revoice/internal/logging"
	"revoice/internal/pipeline"
	"revoice/internal/preflight"
	"revoice/internal/session"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bind string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the dubbing stages over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := ctx.ensureLogger()
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			runCtx, cancel := signalContext(cmd)
			defer cancel()

			return ctx.withStore(func(cfg *config.Config, store *session.Store) error {
				if bind = strings.TrimSpace(bind); bind != "" {
					cfg.Paths.APIBind = bind
				}

				reset, err := store.ResetInterrupted(runCtx)
				if err != nil {
					return err
				}
				if reset > 0 {
					logging.WarnWithContext(logger, "marked interrupted sessions as failed", "sessions_reset",
						logging.Int64("count", reset),
						logging.String(logging.FieldErrorHint, "rerun the failed stage for each session"),
					)
				}

				for _, failed := range preflight.Failed(preflight.RunAll(runCtx, cfg)) {
					logging.WarnWithContext(logger, "preflight check failed", "preflight_failed",
						logging.String("check", failed.Name),
						logging.String("detail", failed.Detail),
					)
				}

				pipe, err := pipeline.Build(cfg, store, logger)
				if err != nil {
					return err
				}
				srv, err := api.NewServer(cfg, pipe, store, logger)
				if err != nil {
					return err
				}
				if err := srv.Start(runCtx); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Serving on http://%s\n", srv.Addr())

				<-runCtx.Done()
				srv.Stop()
				logger.Info("revoice server shutting down")
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&bind, "bind", "", "Override paths.api_bind")
	return cmd
}
