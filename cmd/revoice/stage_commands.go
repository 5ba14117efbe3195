package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"revoice/internal/api"
	"revoice/internal/pipeline"
	"revoice/internal/session"
)

func newStageCommands(ctx *commandContext) []*cobra.Command {
	return []*cobra.Command{
		newUploadCommand(ctx),
		newTranscribeCommand(ctx),
		newTranslateCommand(ctx),
		newGenerateCommand(ctx),
		newDubCommand(ctx),
	}
}

func newUploadCommand(ctx *commandContext) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "upload <video>",
		Short: "Create a session from a local video file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runCtx, cancel := signalContext(cmd)
			defer cancel()
			return ctx.withPipeline(func(p *pipeline.Pipeline) error {
				sess, err := p.UploadFile(runCtx, strings.TrimSpace(name), args[0])
				if err != nil {
					return err
				}
				return printSession(cmd, ctx, "Uploaded", sess)
			})
		},
	}
	cmd.Flags().StringVarP(&name, "name", "n", "", "Session name (random when empty)")
	return cmd
}

func newTranscribeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "transcribe <session>",
		Short: "Transcribe the session video into timed segments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runCtx, cancel := signalContext(cmd)
			defer cancel()
			return ctx.withPipeline(func(p *pipeline.Pipeline) error {
				sess, err := p.Transcribe(runCtx, args[0])
				if err != nil {
					return err
				}
				return printSession(cmd, ctx, "Transcribed", sess)
			})
		},
	}
}

func newTranslateCommand(ctx *commandContext) *cobra.Command {
	var target string
	cmd := &cobra.Command{
		Use:   "translate <session>",
		Short: "Translate the session transcript into the target language",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runCtx, cancel := signalContext(cmd)
			defer cancel()
			return ctx.withPipeline(func(p *pipeline.Pipeline) error {
				sess, err := p.Translate(runCtx, args[0], target)
				if err != nil {
					return err
				}
				return printSession(cmd, ctx, "Translated", sess)
			})
		},
	}
	cmd.Flags().StringVarP(&target, "target", "t", "", "Target language (code or English name)")
	_ = cmd.MarkFlagRequired("target")
	return cmd
}

func newGenerateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "generate <session>",
		Short: "Synthesize, fit, and mux the dubbed track",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runCtx, cancel := signalContext(cmd)
			defer cancel()
			return ctx.withPipeline(func(p *pipeline.Pipeline) error {
				result, err := p.Generate(runCtx, args[0])
				if err != nil {
					return err
				}
				return printGenerate(cmd, ctx, p.Store(), result)
			})
		},
	}
}

func newDubCommand(ctx *commandContext) *cobra.Command {
	var name, target string
	cmd := &cobra.Command{
		Use:   "dub <video>",
		Short: "Run every stage for a local video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runCtx, cancel := signalContext(cmd)
			defer cancel()
			return ctx.withPipeline(func(p *pipeline.Pipeline) error {
				result, err := p.Dub(runCtx, pipeline.DubRequest{
					Name:      strings.TrimSpace(name),
					VideoPath: args[0],
					Target:    target,
				})
				if err != nil {
					if result.Session != nil {
						return fmt.Errorf("session %s: %w", result.Session.ID, err)
					}
					return err
				}
				return printGenerate(cmd, ctx, p.Store(), result)
			})
		},
	}
	cmd.Flags().StringVarP(&name, "name", "n", "", "Session name (random when empty)")
	cmd.Flags().StringVarP(&target, "target", "t", "", "Target language (code or English name)")
	_ = cmd.MarkFlagRequired("target")
	return cmd
}

func printSession(cmd *cobra.Command, ctx *commandContext, verb string, sess *session.Session) error {
	if ctx.jsonOutput() {
		return writeJSON(cmd, api.FromSession(sess))
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s session %s (%s)\n", verb, sess.ID, sess.Status)
	if sess.SourceLanguage != "" {
		fmt.Fprintf(out, "  Source language: %s\n", sess.SourceLanguage)
	}
	if sess.TargetLanguage != "" {
		fmt.Fprintf(out, "  Target language: %s\n", sess.TargetLanguage)
	}
	if sess.SegmentCount > 0 {
		fmt.Fprintf(out, "  Segments:        %d\n", sess.SegmentCount)
	}
	return nil
}

func printGenerate(cmd *cobra.Command, ctx *commandContext, store *session.Store, result pipeline.GenerateResult) error {
	ws := store.Workspace(result.Session.ID)
	summary := api.FromReport(result.Report, ws.ReportPath())
	if ctx.jsonOutput() {
		return writeJSON(cmd, api.GenerateResponse{
			Message:        "dubbed video generated",
			Session:        api.FromSession(result.Session),
			FinalVideoPath: result.FinalVideo,
			Mixed:          result.Mixed,
			Report:         summary,
		})
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Generated session %s\n", result.Session.ID)
	fmt.Fprintf(out, "  Video:     %s\n", result.FinalVideo)
	fmt.Fprintf(out, "  Report:    %s\n", summary.ReportPath)
	fmt.Fprintf(out, "  Policy:    %s\n", summary.Policy)
	fmt.Fprintf(out, "  Segments:  %d (%d synthesis calls)\n", summary.Segments, summary.SynthesisCalls)
	fmt.Fprintf(out, "  Degraded:  %d\n", summary.Degraded)
	fmt.Fprintf(out, "  Overruns:  %d\n", summary.Overruns)
	fmt.Fprintf(out, "  Mixed:     %s\n", yesNo(result.Mixed))
	return nil
}
