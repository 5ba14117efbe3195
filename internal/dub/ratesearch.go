package dub

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"revoice/internal/logging"
	"revoice/internal/services"
)

// SynthesisRequest asks the synthesizer for one attempt at one segment.
type SynthesisRequest struct {
	Segment     int
	Attempt     int
	Text        string
	Voice       string
	RatePercent int
	// OutputBase is a unique extension-less path the synthesizer may use for
	// its working files.
	OutputBase string
}

// Clip is synthesized speech for one attempt. Path names the working file it
// was decoded from, if any.
type Clip struct {
	Audio
	Path string
}

// Synthesizer turns text into speech at a signed rate adjustment around
// natural speed (0 natural, negative slower, positive faster).
type Synthesizer interface {
	Synthesize(ctx context.Context, req SynthesisRequest) (Clip, error)
}

// Attempt records the measurement of one synthesis attempt.
type Attempt struct {
	Segment     int     `json:"segment"`
	Number      int     `json:"number"`
	RatePercent int     `json:"rate_percent"`
	DurationMS  float64 `json:"duration_ms"`
	Ratio       float64 `json:"ratio"`
	// Path is the working file the attempt was decoded from.
	Path string `json:"-"`
}

// PlacedClip is the terminal result of a rate search. Accepted is false for a
// degraded placement: the last attempt used although it never fit.
type PlacedClip struct {
	Segment     int
	Clip        Clip
	DurationMS  float64
	RatePercent int
	Accepted    bool
	Attempts    []Attempt
}

// RateSearcher drives a RatePolicy against a Synthesizer for one segment at a
// time. Attempts for a segment are strictly sequential.
type RateSearcher struct {
	synth   Synthesizer
	policy  RatePolicy
	voice   string
	workDir string
	logger  *slog.Logger
}

// NewRateSearcher wires a searcher; working files go under workDir.
func NewRateSearcher(synth Synthesizer, policy RatePolicy, voice, workDir string, logger *slog.Logger) *RateSearcher {
	return &RateSearcher{
		synth:   synth,
		policy:  policy,
		voice:   voice,
		workDir: workDir,
		logger:  logging.NewComponentLogger(logger, "rate_search"),
	}
}

// AttemptBase returns the unique working path for an attempt.
func AttemptBase(workDir string, segment, attempt int) string {
	return filepath.Join(workDir, fmt.Sprintf("seg-%04d-try-%d", segment, attempt))
}

// Search synthesizes text until the policy accepts a clip or gives up.
// Synthesizer failures are returned immediately and never retried. On error
// the returned PlacedClip still lists the attempts already made so their
// working files can be released.
func (r *RateSearcher) Search(ctx context.Context, text string, window Window) (PlacedClip, error) {
	if r.synth == nil || r.policy == nil {
		return PlacedClip{}, services.Wrap(services.ErrConfiguration, "generate", "rate search", "synthesizer and policy are required", nil)
	}
	if window.AvailableMS <= 0 {
		return PlacedClip{}, services.Wrap(services.ErrInput, "generate", "rate search", fmt.Sprintf("segment %d has no room", window.Index), nil)
	}

	maxAttempts := max(r.policy.MaxAttempts(), 1)
	logger := logging.WithContext(ctx, r.logger).With(logging.Int(logging.FieldSegment, window.Index))
	rate := 0
	placed := PlacedClip{Segment: window.Index}

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return placed, err
		}
		clip, err := r.synth.Synthesize(ctx, SynthesisRequest{
			Segment:     window.Index,
			Attempt:     attempt,
			Text:        text,
			Voice:       r.voice,
			RatePercent: rate,
			OutputBase:  AttemptBase(r.workDir, window.Index, attempt),
		})
		if err != nil {
			return placed, services.WrapCapability(services.ErrSynthesis, "generate",
				fmt.Sprintf("synthesize segment %d attempt %d", window.Index, attempt), err)
		}
		duration := clip.DurationMS()
		if duration <= 0 {
			placed.Clip = clip
			return placed, services.Wrap(services.ErrSynthesis, "generate", "synthesize",
				fmt.Sprintf("segment %d attempt %d produced an empty clip", window.Index, attempt), nil)
		}

		ratio := duration / window.AvailableMS
		placed.Attempts = append(placed.Attempts, Attempt{
			Segment:     window.Index,
			Number:      attempt,
			RatePercent: rate,
			DurationMS:  duration,
			Ratio:       ratio,
			Path:        clip.Path,
		})
		placed.Clip = clip
		placed.DurationMS = duration
		placed.RatePercent = rate

		decision := r.policy.Decide(attempt, rate, ratio)
		if decision.Verdict == VerdictRetry && attempt >= maxAttempts {
			decision.Verdict = VerdictDegraded
		}
		logger.Debug("synthesis attempt measured",
			logging.Int("attempt", attempt),
			logging.Int("rate_percent", rate),
			logging.Float64("duration_ms", duration),
			logging.Float64("available_ms", window.AvailableMS),
			logging.Float64("ratio", ratio),
			logging.String("verdict", decision.Verdict.String()),
		)

		switch decision.Verdict {
		case VerdictAccept:
			placed.Accepted = true
			return placed, nil
		case VerdictDegraded:
			placed.Accepted = false
			return placed, nil
		}
		rate = decision.NextRate
	}
}
