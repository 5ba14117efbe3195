package transcribe

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/sashabaranov/go-openai"

	"revoice/internal/config"
	"revoice/internal/dub"
	langpkg "revoice/internal/language"
	"revoice/internal/logging"
	"revoice/internal/services"
	"revoice/internal/services/whisperx"
)

// Transcriber converts a mono audio file to a transcript.
type Transcriber interface {
	Name() string
	Transcribe(ctx context.Context, audioPath string) (Transcript, error)
}

// New selects the configured backend.
func New(cfg config.Transcription, logger *slog.Logger) (Transcriber, error) {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	logger = logging.NewComponentLogger(logger, "transcribe")
	switch cfg.Backend {
	case "", "openai":
		clientConfig := openai.DefaultConfig(cfg.APIKey)
		if cfg.BaseURL != "" {
			clientConfig.BaseURL = cfg.BaseURL
		}
		return &OpenAI{
			client:   openai.NewClientWithConfig(clientConfig),
			model:    cfg.Model,
			language: cfg.Language,
			timeout:  timeout,
			logger:   logger,
		}, nil
	case "whisperx":
		svc := whisperx.NewService(whisperx.Config{
			Model:       cfg.Model,
			CUDAEnabled: cfg.WhisperXCUDA,
			VADMethod:   cfg.WhisperXVADMethod,
			HFToken:     cfg.WhisperXHFToken,
		})
		return NewWhisperX(svc, cfg.Language, timeout, logger), nil
	default:
		return nil, services.Wrap(services.ErrConfiguration, "transcription", "backend", fmt.Sprintf("unknown backend %q", cfg.Backend), nil)
	}
}

// TranscriptionClient is the subset of the go-openai client used here.
type TranscriptionClient interface {
	CreateTranscription(ctx context.Context, request openai.AudioRequest) (openai.AudioResponse, error)
}

// OpenAI transcribes through the Whisper transcription endpoint.
type OpenAI struct {
	client   TranscriptionClient
	model    string
	language string
	timeout  time.Duration
	logger   *slog.Logger
}

// NewOpenAIWithClient builds the backend around an existing client.
func NewOpenAIWithClient(client TranscriptionClient, model, language string, logger *slog.Logger) *OpenAI {
	return &OpenAI{client: client, model: model, language: language, logger: logging.NewComponentLogger(logger, "transcribe")}
}

func (o *OpenAI) Name() string { return "openai" }

func (o *OpenAI) Transcribe(ctx context.Context, audioPath string) (Transcript, error) {
	ctx, cancel := withTimeout(ctx, o.timeout)
	defer cancel()

	model := o.model
	if model == "" {
		model = openai.Whisper1
	}
	started := time.Now()
	resp, err := o.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    model,
		FilePath: audioPath,
		Format:   openai.AudioResponseFormatVerboseJSON,
		Language: langpkg.ToISO2(o.language),
	})
	if err != nil {
		return Transcript{}, services.WrapCapability(services.ErrTranscription, "transcription", o.Name(), err)
	}

	segments := make([]dub.Segment, 0, len(resp.Segments))
	for _, seg := range resp.Segments {
		segments = append(segments, dub.Segment{Start: seg.Start, End: seg.End, Text: seg.Text})
	}
	return finish(o.logger, o.Name(), resp.Language, o.language, segments, started)
}

// WhisperX transcribes with a local WhisperX run.
type WhisperX struct {
	svc      *whisperx.Service
	language string
	timeout  time.Duration
	logger   *slog.Logger
}

// NewWhisperX wraps a WhisperX service.
func NewWhisperX(svc *whisperx.Service, language string, timeout time.Duration, logger *slog.Logger) *WhisperX {
	return &WhisperX{svc: svc, language: language, timeout: timeout, logger: logging.NewComponentLogger(logger, "transcribe")}
}

func (w *WhisperX) Name() string { return "whisperx" }

func (w *WhisperX) Transcribe(ctx context.Context, audioPath string) (Transcript, error) {
	ctx, cancel := withTimeout(ctx, w.timeout)
	defer cancel()

	started := time.Now()
	result, err := w.svc.Transcribe(ctx, audioPath, filepath.Join(filepath.Dir(audioPath), "whisperx"), w.language)
	if err != nil {
		return Transcript{}, services.WrapCapability(services.ErrTranscription, "transcription", w.Name(), err)
	}
	segments := make([]dub.Segment, 0, len(result.Segments))
	for _, seg := range result.Segments {
		segments = append(segments, dub.Segment{Start: seg.Start, End: seg.End, Text: seg.Text})
	}
	return finish(w.logger, w.Name(), result.Language, w.language, segments, started)
}

func finish(logger *slog.Logger, backend, detected, forced string, raw []dub.Segment, started time.Time) (Transcript, error) {
	segments := Compact(raw)
	if len(segments) == 0 {
		return Transcript{}, services.Wrap(services.ErrTranscription, "transcription", backend, "no speech segments detected", nil)
	}
	lang := langpkg.ToISO2(detected)
	if lang == "" {
		lang = langpkg.ToISO2(forced)
	}
	logger.Info("transcription completed",
		logging.String("backend", backend),
		logging.String("language", lang),
		logging.Int("segments", len(segments)),
		logging.Int("dropped", len(raw)-len(segments)),
		logging.Duration("elapsed", time.Since(started)),
	)
	return Transcript{Language: lang, Segments: segments}, nil
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
