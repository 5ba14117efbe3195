package pipeline

import (
	"log/slog"
	"time"

	"revoice/internal/config"
	"revoice/internal/media/ffmpeg"
	"revoice/internal/media/ffprobe"
	"revoice/internal/services/transcribe"
	"revoice/internal/services/translate"
	"revoice/internal/services/tts"
	"revoice/internal/session"
)

// Build wires the configured backends around store.
func Build(cfg *config.Config, store *session.Store, logger *slog.Logger) (*Pipeline, error) {
	tool := ffmpeg.New(cfg.FFmpegBinary(), logger)

	transcriber, err := transcribe.New(cfg.Transcription, logger)
	if err != nil {
		return nil, err
	}
	backend, err := tts.NewBackend(cfg.Synthesis)
	if err != nil {
		return nil, err
	}
	synth := tts.NewClipSynthesizer(backend, tool, cfg.Assembly.SampleRate,
		time.Duration(cfg.Synthesis.TimeoutSeconds)*time.Second, logger)

	return New(cfg, Deps{
		Store:       store,
		Transcriber: transcriber,
		Translator:  translate.New(cfg.Translation, logger, translate.WithConcurrency(cfg.Translation.Concurrency)),
		Synthesizer: synth,
		Media:       tool,
		Prober:      ffprobe.NewProber(cfg.FFprobeBinary()),
	}, logger)
}
