package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"revoice/internal/api"
	"revoice/internal/config"
	"revoice/internal/dub"
	"revoice/internal/session"
)

func newSessionsCommand(ctx *commandContext) *cobra.Command {
	sessionsCmd := &cobra.Command{
		Use:     "sessions",
		Aliases: []string{"session"},
		Short:   "Inspect and remove dubbing sessions",
	}
	sessionsCmd.AddCommand(newSessionsListCommand(ctx))
	sessionsCmd.AddCommand(newSessionsShowCommand(ctx))
	sessionsCmd.AddCommand(newSessionsDeleteCommand(ctx))
	return sessionsCmd
}

func newSessionsListCommand(ctx *commandContext) *cobra.Command {
	var statusFlags []string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List sessions, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			statuses := make([]session.Status, 0, len(statusFlags))
			for _, value := range statusFlags {
				status, ok := session.ParseStatus(value)
				if !ok {
					return fmt.Errorf("unknown status %q (want one of %s)", value, strings.Join(statusNames(), ", "))
				}
				statuses = append(statuses, status)
			}
			return ctx.withStore(func(_ *config.Config, store *session.Store) error {
				sessions, err := store.List(cmd.Context(), statuses...)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, api.SessionListResponse{Sessions: api.FromSessions(sessions)})
				}
				if len(sessions) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No sessions")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderSessionTable(sessions))
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVarP(&statusFlags, "status", "s", nil, "Filter by status (repeatable)")
	return cmd
}

func newSessionsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <session>",
		Short: "Show one session and its generation report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, store *session.Store) error {
				sess, err := store.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				ws := store.Workspace(sess.ID)
				report, reportErr := dub.ReadReport(ws.ReportPath())
				hasReport := reportErr == nil
				if reportErr != nil && !errors.Is(reportErr, os.ErrNotExist) {
					return reportErr
				}

				if ctx.jsonOutput() {
					payload := struct {
						Session api.Session        `json:"session"`
						Report  *api.ReportSummary `json:"report,omitempty"`
					}{Session: api.FromSession(sess)}
					if hasReport {
						summary := api.FromReport(report, ws.ReportPath())
						payload.Report = &summary
					}
					return writeJSON(cmd, payload)
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Session:   %s\n", sess.ID)
				fmt.Fprintf(out, "Status:    %s\n", sess.Status)
				fmt.Fprintf(out, "Video:     %s\n", dash(sess.VideoPath))
				fmt.Fprintf(out, "Languages: %s -> %s\n", dash(sess.SourceLanguage), dash(sess.TargetLanguage))
				if sess.DurationSeconds > 0 {
					fmt.Fprintf(out, "Duration:  %.2fs\n", sess.DurationSeconds)
				}
				fmt.Fprintf(out, "Segments:  %d\n", sess.SegmentCount)
				if sess.ErrorMessage != "" {
					fmt.Fprintf(out, "Failure:   [%s] %s\n", sess.FailureKind, sess.ErrorMessage)
				}
				fmt.Fprintf(out, "Workspace: %s\n", ws.Root)
				if hasReport {
					fmt.Fprintln(out)
					fmt.Fprint(out, renderReport(report))
				}
				return nil
			})
		},
	}
}

func newSessionsDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <session>",
		Short: "Delete a session and its workspace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, store *session.Store) error {
				if _, err := store.Get(cmd.Context(), args[0]); err != nil {
					return err
				}
				lock, err := store.Workspace(args[0]).TryLock()
				if err != nil {
					return err
				}
				defer func() { _ = lock.Unlock() }()
				if err := store.Delete(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted session %s\n", args[0])
				return nil
			})
		},
	}
}

// renderReport prints per-segment placement with degraded rows marked.
func renderReport(report dub.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Policy %s, %d synthesis calls, track %.0f ms of %.0f ms\n",
		report.Policy, report.SynthesisCalls(), report.ActualMS, report.NominalMS)
	headers := []string{"#", "Start ms", "Window ms", "Clip ms", "Ratio", "Rate", "Tries", "Fit"}
	aligns := []columnAlignment{alignRight, alignRight, alignRight, alignRight, alignRight, alignRight, alignRight, alignLeft}
	rows := make([][]string, 0, len(report.Segments))
	for _, seg := range report.Segments {
		rows = append(rows, []string{
			fmt.Sprintf("%d", seg.Index),
			fmt.Sprintf("%.0f", seg.StartMS),
			fmt.Sprintf("%.0f", seg.AvailableMS),
			fmt.Sprintf("%.0f", seg.DurationMS),
			fmt.Sprintf("%.3f", seg.Ratio),
			fmt.Sprintf("%+d%%", seg.RatePercent),
			fmt.Sprintf("%d", len(seg.Attempts)),
			yesNo(seg.Accepted),
		})
	}
	b.WriteString(renderTable(headers, rows, aligns))
	b.WriteString("\n")
	for _, o := range report.Overruns {
		fmt.Fprintf(&b, "Overrun: segment %d overruns its slot by %.0f ms\n", o.Segment, o.OverrunMS)
	}
	return b.String()
}

func statusNames() []string {
	statuses := session.AllStatuses()
	names := make([]string, len(statuses))
	for i, s := range statuses {
		names[i] = string(s)
	}
	return names
}
