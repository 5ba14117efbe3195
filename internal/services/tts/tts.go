package tts

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"revoice/internal/config"
	"revoice/internal/dub"
	"revoice/internal/logging"
	"revoice/internal/media/wavio"
	"revoice/internal/services"
)

// Request is one rendering job for a backend.
type Request struct {
	Text        string
	Voice       string
	RatePercent int
	// OutputBase is an extension-less path; backends append their own extension.
	OutputBase string
}

// Backend renders speech into an encoded audio file and returns its path.
type Backend interface {
	Name() string
	Render(ctx context.Context, req Request) (string, error)
}

// Normalizer converts an encoded clip to mono PCM WAV.
type Normalizer interface {
	NormalizeClip(ctx context.Context, input, output string, sampleRate int) error
}

// ClipSynthesizer implements dub.Synthesizer on top of a Backend.
type ClipSynthesizer struct {
	backend    Backend
	normalizer Normalizer
	sampleRate int
	timeout    time.Duration
	logger     *slog.Logger
}

// NewClipSynthesizer wires a backend to the normalizer. A zero timeout
// disables the per-call deadline.
func NewClipSynthesizer(backend Backend, normalizer Normalizer, sampleRate int, timeout time.Duration, logger *slog.Logger) *ClipSynthesizer {
	return &ClipSynthesizer{
		backend:    backend,
		normalizer: normalizer,
		sampleRate: sampleRate,
		timeout:    timeout,
		logger:     logging.NewComponentLogger(logger, "tts"),
	}
}

// Synthesize renders, normalizes, and decodes one attempt. The encoded
// intermediate is removed; the normalized WAV stays at OutputBase+".wav"
// until the assembler releases it.
func (s *ClipSynthesizer) Synthesize(ctx context.Context, req dub.SynthesisRequest) (dub.Clip, error) {
	if s.backend == nil || s.normalizer == nil {
		return dub.Clip{}, services.Wrap(services.ErrConfiguration, "synthesis", "clip", "backend and normalizer are required", nil)
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	started := time.Now()
	encoded, err := s.backend.Render(ctx, Request{
		Text:        req.Text,
		Voice:       req.Voice,
		RatePercent: req.RatePercent,
		OutputBase:  req.OutputBase,
	})
	if err != nil {
		return dub.Clip{}, services.WrapCapability(services.ErrSynthesis, "synthesis", s.backend.Name(), err)
	}

	wavPath := req.OutputBase + ".wav"
	normErr := s.normalizer.NormalizeClip(ctx, encoded, wavPath, s.sampleRate)
	if encoded != wavPath {
		s.remove(encoded)
	}
	if normErr != nil {
		s.remove(wavPath)
		return dub.Clip{}, services.WrapCapability(services.ErrSynthesis, "synthesis", "normalize", normErr)
	}

	samples, rate, err := wavio.Read(wavPath)
	if err != nil {
		s.remove(wavPath)
		return dub.Clip{}, services.Wrap(services.ErrSynthesis, "synthesis", "decode", wavPath, err)
	}
	s.logger.Debug("clip synthesized",
		logging.String("backend", s.backend.Name()),
		logging.Int(logging.FieldSegment, req.Segment),
		logging.Int("attempt", req.Attempt),
		logging.Int("rate_percent", req.RatePercent),
		logging.Float64("duration_s", wavio.Duration(samples, rate)),
		logging.Duration("elapsed", time.Since(started)),
	)
	return dub.Clip{Audio: dub.Audio{SampleRate: rate, Samples: samples}, Path: wavPath}, nil
}

// remove drops a working file of a failed or finished attempt.
func (s *ClipSynthesizer) remove(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.logger.Debug("clip cleanup failed", logging.String("path", path), logging.Error(err))
	}
}

// NewBackend selects the configured backend.
func NewBackend(cfg config.Synthesis) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", "openai":
		return NewOpenAI(cfg), nil
	case "edge-tts":
		return NewEdge("", nil), nil
	default:
		return nil, services.Wrap(services.ErrConfiguration, "synthesis", "backend", fmt.Sprintf("unknown backend %q", cfg.Backend), nil)
	}
}
