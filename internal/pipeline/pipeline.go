package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"revoice/internal/config"
	"revoice/internal/dub"
	"revoice/internal/logging"
	"revoice/internal/media/ffmpeg"
	"revoice/internal/media/ffprobe"
	"revoice/internal/services"
	"revoice/internal/services/transcribe"
	"revoice/internal/session"
)

// SpeechSampleRate is the extraction rate fed to transcription backends.
const SpeechSampleRate = 16000

// Translator renders a transcript into a target language.
type Translator interface {
	TranslateTranscript(ctx context.Context, in transcribe.Transcript, target string) (transcribe.Transcript, error)
}

// Media is the ffmpeg surface the stages need.
type Media interface {
	ExtractAudio(ctx context.Context, input, output string, sampleRate, audioStream int) error
	Mux(ctx context.Context, req ffmpeg.MuxRequest) error
}

// Prober inspects media containers.
type Prober interface {
	Inspect(ctx context.Context, path string) (ffprobe.Result, error)
}

// Deps are the capabilities a Pipeline drives.
type Deps struct {
	Store       *session.Store
	Transcriber transcribe.Transcriber
	Translator  Translator
	Synthesizer dub.Synthesizer
	Media       Media
	Prober      Prober
}

// Pipeline executes stages for sessions in one store.
type Pipeline struct {
	cfg    *config.Config
	deps   Deps
	logger *slog.Logger
}

// New validates deps and returns a pipeline.
func New(cfg *config.Config, deps Deps, logger *slog.Logger) (*Pipeline, error) {
	switch {
	case cfg == nil:
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "new", "config is required", nil)
	case deps.Store == nil:
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "new", "session store is required", nil)
	case deps.Transcriber == nil || deps.Translator == nil || deps.Synthesizer == nil:
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "new", "transcriber, translator, and synthesizer are required", nil)
	case deps.Media == nil || deps.Prober == nil:
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "new", "media tools are required", nil)
	}
	return &Pipeline{cfg: cfg, deps: deps, logger: logging.NewComponentLogger(logger, "pipeline")}, nil
}

// Store exposes the session store the pipeline writes to.
func (p *Pipeline) Store() *session.Store { return p.deps.Store }

type stageFunc func(ctx context.Context, sess *session.Session, ws session.Workspace) error

// runStage wraps fn with locking, status bookkeeping, and stage logging.
func (p *Pipeline) runStage(ctx context.Context, id, stage string, processing, done session.Status, fn stageFunc) (*session.Session, error) {
	store := p.deps.Store
	ws := store.Workspace(id)

	sess, err := store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	lock, err := ws.TryLock()
	if err != nil {
		return nil, err
	}
	defer func() { _ = lock.Unlock() }()

	ctx = services.WithSessionID(ctx, id)
	ctx = services.WithStage(ctx, stage)
	if _, ok := services.RequestIDFromContext(ctx); !ok {
		ctx = services.WithRequestID(ctx, uuid.NewString())
	}
	logger := logging.WithContext(ctx, p.logger)

	sess.Status = processing
	sess.ClearFailure()
	if err := store.Update(ctx, sess); err != nil {
		return nil, err
	}

	started := time.Now()
	logger.Info("stage started", logging.String(logging.FieldEventType, "stage_start"))

	if err := fn(ctx, sess, ws); err != nil {
		kind := services.FailureKind(err)
		sess.Fail(kind, err)
		// The stage context may already be canceled; the failure must still land.
		if uerr := store.Update(context.WithoutCancel(ctx), sess); uerr != nil {
			logger.Error("failed to persist stage failure", logging.Error(uerr))
		}
		if errors.Is(err, context.Canceled) {
			logger.Info("stage canceled", logging.Duration("elapsed", time.Since(started)))
		} else {
			logging.ErrorWithContext(logger, "stage failed", "stage_failed",
				logging.Error(err),
				logging.String("failure_kind", kind),
				logging.Duration("elapsed", time.Since(started)),
			)
		}
		return sess, err
	}

	sess.Status = done
	if err := store.Update(ctx, sess); err != nil {
		return sess, err
	}
	logger.Info("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.String("next_status", string(done)),
		logging.Duration("stage_duration", time.Since(started)),
	)
	return sess, nil
}
