package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"revoice/internal/api"
	"revoice/internal/config"
	"revoice/internal/preflight"
	"revoice/internal/session"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var checkAPIs bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show dependency, storage, and session status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *session.Store) error {
				counts, err := store.Stats(cmd.Context())
				if err != nil {
					return err
				}
				deps := preflight.CheckSystemDeps(cfg)
				paths := []preflight.Result{
					preflight.CheckDirectoryAccess("Sessions", cfg.Paths.SessionsDir),
					preflight.CheckFreeSpace("Free space", cfg.Paths.SessionsDir, preflight.MinFreeBytes),
					preflight.CheckDirectoryAccess("Logs", cfg.Paths.LogDir),
				}
				var apis []preflight.Result
				if checkAPIs {
					apis = preflight.CheckAPIs(cmd.Context(), cfg)
				}

				if ctx.jsonOutput() {
					payload := api.StatusResponse{
						DatabasePath:  store.Path(),
						SessionCounts: make(map[string]int, len(counts)),
						Dependencies:  api.FromDependencies(deps),
					}
					for status, n := range counts {
						payload.SessionCounts[string(status)] = n
					}
					return writeJSON(cmd, payload)
				}

				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				var lines []string
				lines = append(lines, renderSectionHeader("Paths", colorize)...)
				for _, r := range paths {
					lines = append(lines, resultLine(r, r.Name == "Free space", colorize))
				}
				lines = append(lines, "")
				lines = append(lines, renderSectionHeader("Dependencies", colorize)...)
				for _, dep := range deps {
					lines = append(lines, dependencyLine(dep, colorize))
				}
				if checkAPIs {
					lines = append(lines, "")
					lines = append(lines, renderSectionHeader("APIs", colorize)...)
					for _, r := range apis {
						lines = append(lines, resultLine(r, false, colorize))
					}
				}
				lines = append(lines, "")
				lines = append(lines, renderSectionHeader("Sessions", colorize)...)
				total := 0
				for _, status := range session.AllStatuses() {
					n := counts[status]
					total += n
					if n == 0 {
						continue
					}
					lines = append(lines, renderStatusLine(string(status), statusInfo, fmt.Sprintf("%d", n), colorize))
				}
				lines = append(lines, renderStatusLine("Total", statusInfo, fmt.Sprintf("%d in %s", total, store.Path()), colorize))
				fmt.Fprintln(out, strings.Join(lines, "\n"))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&checkAPIs, "check-apis", false, "Also verify the configured OpenAI-compatible endpoints")
	return cmd
}
