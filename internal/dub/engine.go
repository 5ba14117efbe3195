package dub

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"revoice/internal/config"
	"revoice/internal/logging"
	"revoice/internal/media/wavio"
	"revoice/internal/services"
)

// Options tunes one Engine.
type Options struct {
	Policy             RatePolicy
	Voice              string
	WorkDir            string
	SampleRate         int
	OverrunToleranceMS float64
	// Concurrency bounds how many segments are searched at once.
	Concurrency  int
	KeepAttempts bool
}

// OptionsFromConfig maps configuration onto engine options for a run that
// keeps its working files in workDir.
func OptionsFromConfig(cfg *config.Config, workDir string) (Options, error) {
	if cfg == nil {
		return Options{}, services.Wrap(services.ErrConfiguration, "generate", "engine", "config is required", nil)
	}
	policy, err := PolicyFromConfig(cfg.RateSearch)
	if err != nil {
		return Options{}, err
	}
	return Options{
		Policy:             policy,
		Voice:              cfg.Synthesis.Voice,
		WorkDir:            workDir,
		SampleRate:         cfg.Assembly.SampleRate,
		OverrunToleranceMS: cfg.Assembly.OverrunToleranceMS,
		Concurrency:        cfg.Synthesis.Concurrency,
		KeepAttempts:       cfg.Assembly.KeepSegments,
	}, nil
}

// Result bundles everything a generation run produced.
type Result struct {
	Plan   Plan
	Track  Track
	Report Report
}

// Engine runs plan, rate search, and assembly for one generation request.
type Engine struct {
	synth  Synthesizer
	opts   Options
	logger *slog.Logger
}

// NewEngine validates options and wires an engine around synth.
func NewEngine(synth Synthesizer, opts Options, logger *slog.Logger) (*Engine, error) {
	if synth == nil {
		return nil, services.Wrap(services.ErrConfiguration, "generate", "engine", "synthesizer is required", nil)
	}
	if opts.Policy == nil {
		opts.Policy = DefaultBandPolicy()
	}
	if opts.SampleRate <= 0 {
		return nil, services.Wrap(services.ErrConfiguration, "generate", "engine",
			fmt.Sprintf("sample rate %d must be positive", opts.SampleRate), nil)
	}
	if opts.WorkDir == "" {
		return nil, services.Wrap(services.ErrConfiguration, "generate", "engine", "work dir is required", nil)
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	return &Engine{synth: synth, opts: opts, logger: logging.NewComponentLogger(logger, "engine")}, nil
}

// Run fits every segment into the media timeline and writes the assembled
// track to trackPath. Any synthesizer failure aborts the run and leaves
// trackPath untouched.
func (e *Engine) Run(ctx context.Context, segments []Segment, mediaDuration float64, trackPath string) (Result, error) {
	logger := logging.WithContext(ctx, e.logger)
	started := time.Now()

	plan, err := BuildPlan(segments, mediaDuration)
	if err != nil {
		return Result{}, err
	}
	if err := os.MkdirAll(e.opts.WorkDir, 0o755); err != nil {
		return Result{}, services.Wrap(services.ErrConfiguration, "generate", "prepare work dir", e.opts.WorkDir, err)
	}

	logger.Info("generation started",
		logging.Int("segments", len(plan.Windows)),
		logging.Float64("media_duration_s", mediaDuration),
		logging.Float64("origin_s", plan.Origin),
		logging.String("policy", e.opts.Policy.Name()),
		logging.Int("concurrency", e.opts.Concurrency),
	)

	assembler := NewAssembler(e.opts.SampleRate, e.opts.OverrunToleranceMS, e.opts.KeepAttempts, e.logger)
	clips, err := e.searchAll(ctx, segments, plan)
	if err != nil {
		assembler.Release(clips)
		return Result{}, err
	}

	track, err := assembler.Assemble(ctx, plan, clips)
	assembler.Release(clips)
	if err != nil {
		return Result{}, err
	}

	if err := wavio.WriteAtomic(trackPath, track.Samples, track.SampleRate); err != nil {
		return Result{}, services.Wrap(services.ErrTransient, "generate", "write track", trackPath, err)
	}

	report := buildReport(e.opts.Policy.Name(), segments, plan, clips, track)
	report.TrackPath = trackPath
	for _, mismatch := range report.Mismatches {
		logging.WarnWithContext(logger, "clip kept outside acceptable duration", "duration_mismatch",
			logging.Int(logging.FieldSegment, mismatch.Segment),
			logging.Float64("ratio", mismatch.Ratio),
			logging.Float64("available_ms", mismatch.AvailableMS),
			logging.Float64("duration_ms", mismatch.DurationMS),
			logging.Int("rate_percent", mismatch.RatePercent),
			logging.Int("attempts", mismatch.Attempts),
			logging.String(logging.FieldErrorHint, "shorten the translation or widen the rate bounds"),
			logging.String(logging.FieldImpact, "segment placed degraded"),
		)
	}
	logger.Info("generation completed",
		logging.String("track", trackPath),
		logging.Int("synthesis_calls", report.SynthesisCalls()),
		logging.Int("degraded", report.Degraded()),
		logging.Int("overruns", len(report.Overruns)),
		logging.Float64("nominal_ms", report.NominalMS),
		logging.Float64("actual_ms", report.ActualMS),
		logging.Duration("elapsed", time.Since(started)),
	)

	return Result{Plan: plan, Track: track, Report: report}, nil
}

// searchAll fans segments out to rate searchers. The returned slice is always
// aligned with the plan; a segment that failed or was cancelled keeps the
// attempts it made, and segments never started are zero.
func (e *Engine) searchAll(ctx context.Context, segments []Segment, plan Plan) ([]PlacedClip, error) {
	searcher := NewRateSearcher(e.synth, e.opts.Policy, e.opts.Voice, e.opts.WorkDir, e.logger)
	clips := make([]PlacedClip, len(plan.Windows))
	logger := logging.WithContext(ctx, e.logger)

	var (
		mu      sync.Mutex
		done    int
		sampler = logging.NewProgressSampler(25)
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Concurrency)
	for i := range plan.Windows {
		g.Go(func() error {
			placed, err := searcher.Search(gctx, segments[i].Text, plan.Windows[i])
			mu.Lock()
			defer mu.Unlock()
			clips[i] = placed
			if err != nil {
				return err
			}
			done++
			if sampler.ShouldLog(done, len(clips)) {
				logger.Info("segments synthesized",
					logging.Int("done", done),
					logging.Int("total", len(clips)),
				)
			}
			return nil
		})
	}
	err := g.Wait()
	return clips, err
}
