package dub_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"revoice/internal/dub"
	"revoice/internal/logging"
	"revoice/internal/media/wavio"
	"revoice/internal/services"
	"revoice/internal/testsupport"
)

func newEngine(t *testing.T, synth dub.Synthesizer, workDir string, keep bool) *dub.Engine {
	t.Helper()
	engine, err := dub.NewEngine(synth, dub.Options{
		Policy:             dub.DefaultBandPolicy(),
		Voice:              "v",
		WorkDir:            workDir,
		SampleRate:         testRate,
		OverrunToleranceMS: 100,
		Concurrency:        3,
		KeepAttempts:       keep,
	}, logging.NewNop())
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return engine
}

func TestEngineRunWritesTrackAndReport(t *testing.T) {
	dir := t.TempDir()
	workDir := filepath.Join(dir, "segments")
	trackPath := filepath.Join(dir, "segments", "audio.wav")
	synth := &stubSynth{
		naturalMS:  map[string]float64{"A": 1800, "B": 6000, "C": 2700},
		writeFiles: true,
	}
	segments := []dub.Segment{
		{Index: 0, Start: 0.5, End: 2.0, Text: "A"},
		{Index: 1, Start: 2.5, End: 4.0, Text: "B"},
		{Index: 2, Start: 4.5, End: 5.5, Text: "C"},
	}

	result, err := newEngine(t, synth, workDir, false).Run(context.Background(), segments, 7, trackPath)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	samples, rate, err := wavio.Read(trackPath)
	if err != nil {
		t.Fatalf("read track: %v", err)
	}
	if rate != testRate || len(samples) != len(result.Track.Samples) {
		t.Fatalf("track on disk has %d samples at %d Hz, result has %d", len(samples), rate, len(result.Track.Samples))
	}

	report := result.Report
	if report.Policy != "band" || report.TrackPath != trackPath {
		t.Fatalf("unexpected report header %+v", report)
	}
	if len(report.Segments) != 3 {
		t.Fatalf("report segments = %d", len(report.Segments))
	}
	if report.Degraded() != 1 || report.Mismatches[0].Segment != 1 {
		t.Fatalf("expected segment 1 degraded, mismatches %+v", report.Mismatches)
	}
	if !report.Segments[0].Accepted || !report.Segments[2].Accepted {
		t.Fatalf("segments 0 and 2 should be accepted: %+v", report.Segments)
	}
	if report.SynthesisCalls() < 4 {
		t.Fatalf("expected corrections, got %d synthesis calls", report.SynthesisCalls())
	}
	if result.Track.Spans[0].Kind != dub.SpanSilence || result.Track.Spans[0].Samples != 500 {
		t.Fatalf("expected 500ms leading silence, got %+v", result.Track.Spans[0])
	}

	leftovers, _ := filepath.Glob(filepath.Join(workDir, "seg-*"))
	if len(leftovers) != 0 {
		t.Fatalf("attempt files should be removed, found %v", leftovers)
	}
}

func TestEngineRunKeepsAttemptsWhenAsked(t *testing.T) {
	dir := t.TempDir()
	synth := &stubSynth{naturalMS: map[string]float64{"A": 1500}, writeFiles: true}
	segments := []dub.Segment{{Index: 0, Start: 0, End: 1, Text: "A"}}

	if _, err := newEngine(t, synth, dir, true).Run(context.Background(), segments, 1, filepath.Join(dir, "audio.wav")); err != nil {
		t.Fatalf("Run: %v", err)
	}
	kept, _ := filepath.Glob(filepath.Join(dir, "seg-0000-try-*.wav"))
	if len(kept) != 2 {
		t.Fatalf("expected both attempts kept, found %v", kept)
	}
}

func TestEngineRunAbortsOnSynthesisFailure(t *testing.T) {
	dir := t.TempDir()
	trackPath := filepath.Join(dir, "audio.wav")
	synth := &stubSynth{naturalMS: map[string]float64{"A": 900}, failText: "B", writeFiles: true}
	segments := []dub.Segment{
		{Index: 0, Start: 0, End: 1, Text: "A"},
		{Index: 1, Start: 1, End: 2, Text: "B"},
	}

	_, err := newEngine(t, synth, dir, false).Run(context.Background(), segments, 3, trackPath)
	if !errors.Is(err, services.ErrSynthesis) {
		t.Fatalf("expected ErrSynthesis, got %v", err)
	}
	if _, statErr := os.Stat(trackPath); !os.IsNotExist(statErr) {
		t.Fatalf("no track may be written after a failed run, stat err=%v", statErr)
	}
}

func TestEngineRunReleasesAttemptsOnAbort(t *testing.T) {
	dir := t.TempDir()
	workDir := filepath.Join(dir, "work")
	synth := &stubSynth{
		naturalMS:  map[string]float64{"A": 3000, "B": 900},
		failText:   "A",
		failFrom:   2,
		writeFiles: true,
	}
	segments := []dub.Segment{
		{Index: 0, Start: 0, End: 1, Text: "A"},
		{Index: 1, Start: 1, End: 2, Text: "B"},
	}

	_, err := newEngine(t, synth, workDir, false).Run(context.Background(), segments, 2, filepath.Join(dir, "audio.wav"))
	if !errors.Is(err, services.ErrSynthesis) {
		t.Fatalf("expected ErrSynthesis, got %v", err)
	}
	entries, err := os.ReadDir(workDir)
	if err != nil {
		t.Fatalf("read work dir: %v", err)
	}
	if len(entries) != 0 {
		names := make([]string, 0, len(entries))
		for _, entry := range entries {
			names = append(names, entry.Name())
		}
		t.Fatalf("work dir should be empty after abort, found %v", names)
	}
}

func TestEngineRunRejectsBadPlan(t *testing.T) {
	dir := t.TempDir()
	synth := &stubSynth{}
	_, err := newEngine(t, synth, dir, false).Run(context.Background(), nil, 3, filepath.Join(dir, "audio.wav"))
	if !errors.Is(err, services.ErrInput) {
		t.Fatalf("expected ErrInput, got %v", err)
	}
	if synth.callCount() != 0 {
		t.Fatal("synthesizer must not be called for invalid input")
	}
}

func TestNewEngineValidatesOptions(t *testing.T) {
	if _, err := dub.NewEngine(nil, dub.Options{SampleRate: 1, WorkDir: "x"}, nil); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("nil synth: %v", err)
	}
	if _, err := dub.NewEngine(&stubSynth{}, dub.Options{WorkDir: "x"}, nil); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("zero rate: %v", err)
	}
	if _, err := dub.NewEngine(&stubSynth{}, dub.Options{SampleRate: 1}, nil); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("missing work dir: %v", err)
	}
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.RateSearch.Policy = "single"
	cfg.Assembly.KeepSegments = true

	opts, err := dub.OptionsFromConfig(cfg, "/tmp/work")
	if err != nil {
		t.Fatalf("OptionsFromConfig: %v", err)
	}
	if opts.Policy.Name() != "single" || !opts.KeepAttempts || opts.WorkDir != "/tmp/work" {
		t.Fatalf("unexpected options %+v", opts)
	}
	if opts.SampleRate != cfg.Assembly.SampleRate || opts.Concurrency != cfg.Synthesis.Concurrency {
		t.Fatalf("unexpected options %+v", opts)
	}
}
