package pipeline_test

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"revoice/internal/config"
	"revoice/internal/dub"
	"revoice/internal/logging"
	"revoice/internal/media/ffmpeg"
	"revoice/internal/media/ffprobe"
	"revoice/internal/pipeline"
	"revoice/internal/services/transcribe"
	"revoice/internal/session"
	"revoice/internal/testsupport"
)

type fakeTranscriber struct {
	transcript transcribe.Transcript
	err        error
	inputs     []string
}

func (f *fakeTranscriber) Name() string { return "fake" }

func (f *fakeTranscriber) Transcribe(_ context.Context, audioPath string) (transcribe.Transcript, error) {
	f.inputs = append(f.inputs, audioPath)
	if _, err := os.Stat(audioPath); err != nil {
		return transcribe.Transcript{}, err
	}
	return f.transcript, f.err
}

type fakeTranslator struct {
	err error
}

func (f *fakeTranslator) TranslateTranscript(_ context.Context, in transcribe.Transcript, target string) (transcribe.Transcript, error) {
	if f.err != nil {
		return transcribe.Transcript{}, f.err
	}
	out := transcribe.Transcript{Language: target, Segments: make([]dub.Segment, len(in.Segments))}
	for i, seg := range in.Segments {
		seg.Text = strings.ToUpper(seg.Text)
		out.Segments[i] = seg
	}
	return out, nil
}

// fakeSynth returns clips whose natural length is keyed by text and shrinks
// with the requested speed-up.
type fakeSynth struct {
	mu        sync.Mutex
	rate      int
	naturalMS map[string]float64
	err       error
	calls     int
}

func (f *fakeSynth) Synthesize(_ context.Context, req dub.SynthesisRequest) (dub.Clip, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return dub.Clip{}, f.err
	}
	ms := f.naturalMS[req.Text] / (1 + float64(req.RatePercent)/100)
	samples := make([]float64, int(math.Round(ms*float64(f.rate)/1000)))
	for i := range samples {
		samples[i] = 0.4
	}
	return dub.Clip{Audio: dub.Audio{SampleRate: f.rate, Samples: samples}}, nil
}

type fakeMedia struct {
	t        *testing.T
	extracts []string
	streams  []int
	muxes    []ffmpeg.MuxRequest
	// mixedSeen records whether the mux input existed when muxing.
	muxInputExisted bool
}

func (f *fakeMedia) ExtractAudio(_ context.Context, _, output string, sampleRate, audioStream int) error {
	f.extracts = append(f.extracts, output)
	f.streams = append(f.streams, audioStream)
	testsupport.WriteTone(f.t, output, sampleRate, 6000, 0.5)
	return nil
}

func (f *fakeMedia) Mux(_ context.Context, req ffmpeg.MuxRequest) error {
	f.muxes = append(f.muxes, req)
	_, err := os.Stat(req.AudioPath)
	f.muxInputExisted = err == nil
	return os.WriteFile(req.OutputPath, []byte("muxed"), 0o644)
}

type fakeProber struct {
	result ffprobe.Result
}

func (f *fakeProber) Inspect(context.Context, string) (ffprobe.Result, error) {
	return f.result, nil
}

func probeWithAudio(duration string) *fakeProber {
	return &fakeProber{result: ffprobe.Result{
		Streams: []ffprobe.Stream{{Index: 0, CodecType: "video"}, {Index: 1, CodecType: "audio"}},
		Format:  ffprobe.Format{Duration: duration},
	}}
}

type harness struct {
	cfg         *config.Config
	pipe        *pipeline.Pipeline
	store       *session.Store
	transcriber *fakeTranscriber
	translator  *fakeTranslator
	synth       *fakeSynth
	media       *fakeMedia
	prober      *fakeProber
	video       string
}

// newHarness builds a pipeline over the canonical two-segment scenario:
// segments at 0.5s and 2.5s in a 6.0s video.
func newHarness(t *testing.T, opts ...testsupport.ConfigOption) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	store := testsupport.MustOpenStore(t, cfg)
	h := &harness{
		cfg:   cfg,
		store: store,
		transcriber: &fakeTranscriber{transcript: transcribe.Transcript{Language: "en", Segments: []dub.Segment{
			{Index: 0, Start: 0.5, End: 2.0, Text: "hello"},
			{Index: 1, Start: 2.5, End: 5.0, Text: "world"},
		}}},
		translator: &fakeTranslator{},
		synth:      &fakeSynth{rate: cfg.Assembly.SampleRate, naturalMS: map[string]float64{"HELLO": 1800, "WORLD": 3450}},
		media:      &fakeMedia{t: t},
		prober:     probeWithAudio("6.000000"),
		video:      filepath.Join(testsupport.BaseDir(cfg), "input.mp4"),
	}
	testsupport.WriteFile(t, h.video, 64)

	pipe, err := pipeline.New(cfg, pipeline.Deps{
		Store:       store,
		Transcriber: h.transcriber,
		Translator:  h.translator,
		Synthesizer: h.synth,
		Media:       h.media,
		Prober:      h.prober,
	}, logging.NewNop())
	if err != nil {
		t.Fatalf("pipeline.New: %v", err)
	}
	h.pipe = pipe
	return h
}
