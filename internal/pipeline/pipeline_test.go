package pipeline_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"revoice/internal/dub"
	"revoice/internal/logging"
	"revoice/internal/media/ffprobe"
	"revoice/internal/media/wavio"
	"revoice/internal/pipeline"
	"revoice/internal/services"
	"revoice/internal/services/transcribe"
	"revoice/internal/session"
	"revoice/internal/testsupport"
)

func TestDubRunsEveryStage(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	result, err := h.pipe.Dub(ctx, pipeline.DubRequest{Name: "demo", VideoPath: h.video, Target: "de"})
	if err != nil {
		t.Fatalf("Dub: %v", err)
	}
	sess := result.Session
	if sess.Status != session.StatusCompleted || sess.SourceLanguage != "en" || sess.TargetLanguage != "de" {
		t.Fatalf("session = %+v", sess)
	}
	if sess.DurationSeconds != 6 || sess.SegmentCount != 2 || sess.DegradedCount != 0 {
		t.Fatalf("session counters = %+v", sess)
	}
	if !result.Mixed {
		t.Fatal("mixing is enabled by default")
	}

	ws := h.store.Workspace("demo")
	for _, path := range []string{ws.OriginalTranscript(), ws.TranslatedTranscript(), ws.TrackPath(), ws.ReportPath(), ws.FinalVideo()} {
		if _, err := os.Stat(path); err != nil {
			t.Errorf("expected %s: %v", path, err)
		}
	}
	for _, path := range []string{ws.OriginalAudio(), ws.MixedAudio(), ws.SpeechAudio(), ws.AttemptsDir()} {
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Errorf("temporary %s should be removed", path)
		}
	}

	translated, err := transcribe.Load(ws.TranslatedTranscript())
	if err != nil {
		t.Fatal(err)
	}
	if translated.Segments[1].Text != "WORLD" || translated.Segments[1].Start != 2.5 {
		t.Fatalf("translated = %+v", translated)
	}

	samples, rate, err := wavio.Read(ws.TrackPath())
	if err != nil {
		t.Fatal(err)
	}
	// 500 ms lead, clips on the absolute timeline, padded to the media end.
	if got := wavio.Duration(samples, rate); got != 6.0 {
		t.Fatalf("track duration = %v s, want 6.0", got)
	}

	mux := h.media.muxes[0]
	if mux.AudioPath != ws.MixedAudio() || !h.media.muxInputExisted || mux.Language != "de" {
		t.Fatalf("mux request = %+v", mux)
	}
	report, err := dub.ReadReport(ws.ReportPath())
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Segments) != 2 || report.Policy != "band" {
		t.Fatalf("report = %+v", report)
	}
}

func TestGenerateWithoutMixingMuxesTrack(t *testing.T) {
	h := newHarness(t, testsupport.WithMixing(false))
	result, err := h.pipe.Dub(context.Background(), pipeline.DubRequest{VideoPath: h.video, Target: "de"})
	if err != nil {
		t.Fatalf("Dub: %v", err)
	}
	ws := h.store.Workspace(result.Session.ID)
	if result.Mixed || h.media.muxes[0].AudioPath != ws.TrackPath() {
		t.Fatalf("expected raw track mux, got %+v", h.media.muxes[0])
	}
	// Only the speech extract ran; no original-audio extract for mixing.
	if len(h.media.extracts) != 1 {
		t.Fatalf("extracts = %v", h.media.extracts)
	}
}

func TestUploadRejectsUnsupportedExtension(t *testing.T) {
	h := newHarness(t)
	_, err := h.pipe.Upload(context.Background(), "", "notes.txt", bytes.NewReader([]byte("x")))
	if !errors.Is(err, services.ErrInput) {
		t.Fatalf("expected ErrInput, got %v", err)
	}
	sessions, _ := h.store.List(context.Background())
	if len(sessions) != 0 {
		t.Fatalf("no session should be created, got %d", len(sessions))
	}
}

func TestUploadStoresVideo(t *testing.T) {
	h := newHarness(t)
	sess, err := h.pipe.Upload(context.Background(), "up", "../../clip.MOV", bytes.NewReader([]byte("movie")))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	want := filepath.Join(h.store.Workspace("up").OriginalDir(), "clip.MOV")
	if sess.VideoPath != want {
		t.Fatalf("video path = %q, want %q", sess.VideoPath, want)
	}
	if data, err := os.ReadFile(want); err != nil || string(data) != "movie" {
		t.Fatalf("stored video = %q, %v", data, err)
	}
}

func TestTranslateFailureMarksSession(t *testing.T) {
	h := newHarness(t)
	h.translator.err = services.Wrap(services.ErrTranslation, "translation", "chat", "empty completion", nil)
	ctx := context.Background()

	sess, err := h.pipe.UploadFile(ctx, "tf", h.video)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := h.pipe.Transcribe(ctx, sess.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := h.pipe.Translate(ctx, sess.ID, "de"); !errors.Is(err, services.ErrTranslation) {
		t.Fatalf("expected ErrTranslation, got %v", err)
	}
	got, _ := h.store.Get(ctx, sess.ID)
	if got.Status != session.StatusFailed || got.FailureKind != "translation" || got.ErrorMessage == "" {
		t.Fatalf("session = %+v", got)
	}
	if _, err := os.Stat(h.store.Workspace(sess.ID).TranslatedTranscript()); !os.IsNotExist(err) {
		t.Fatal("no translated transcript should be written")
	}
}

func TestGenerateSynthesisFailureLeavesNoOutputs(t *testing.T) {
	h := newHarness(t)
	h.synth.err = errors.New("voice service down")
	result, err := h.pipe.Dub(context.Background(), pipeline.DubRequest{Name: "sf", VideoPath: h.video, Target: "de"})
	if !errors.Is(err, services.ErrSynthesis) {
		t.Fatalf("expected ErrSynthesis, got %v", err)
	}
	if result.Session.Status != session.StatusFailed || result.Session.FailureKind != "synthesis" {
		t.Fatalf("session = %+v", result.Session)
	}
	ws := h.store.Workspace("sf")
	for _, path := range []string{ws.TrackPath(), ws.FinalVideo()} {
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Errorf("%s should not exist", path)
		}
	}
	if len(h.media.muxes) != 0 {
		t.Fatal("mux must not run")
	}
}

func TestGenerateRequiresTranslation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	sess, err := h.pipe.UploadFile(ctx, "early", h.video)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := h.pipe.Generate(ctx, sess.ID); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	got, _ := h.store.Get(ctx, sess.ID)
	if got.FailureKind != "not_found" {
		t.Fatalf("failure kind = %q", got.FailureKind)
	}
}

func TestStageConflictsWithHeldLock(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	sess, err := h.pipe.UploadFile(ctx, "busy", h.video)
	if err != nil {
		t.Fatal(err)
	}
	lock, err := h.store.Workspace(sess.ID).TryLock()
	if err != nil {
		t.Fatal(err)
	}
	defer lock.Unlock()

	if _, err := h.pipe.Transcribe(ctx, sess.ID); !errors.Is(err, services.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	got, _ := h.store.Get(ctx, sess.ID)
	if got.Status != session.StatusUploaded {
		t.Fatalf("status changed to %q while locked", got.Status)
	}
}

func TestUnknownSessionIsNotFound(t *testing.T) {
	h := newHarness(t)
	if _, err := h.pipe.Transcribe(context.Background(), "ghost"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestNewValidatesDeps(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if _, err := pipeline.New(cfg, pipeline.Deps{}, logging.NewNop()); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func TestTranscribeExtractsSourceLanguageTrack(t *testing.T) {
	h := newHarness(t)
	h.cfg.Transcription.Language = "en"
	h.prober.result.Streams = []ffprobe.Stream{
		{Index: 0, CodecType: "video"},
		{Index: 1, CodecType: "audio", Tags: map[string]string{"language": "spa"}, Disposition: map[string]int{"default": 1}},
		{Index: 2, CodecType: "audio", Tags: map[string]string{"language": "eng"}},
	}
	sess, err := h.pipe.UploadFile(context.Background(), "multi", h.video)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := h.pipe.Transcribe(context.Background(), sess.ID); err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if len(h.media.streams) != 1 || h.media.streams[0] != 1 {
		t.Fatalf("extracted audio streams = %v, want [1]", h.media.streams)
	}
}

func TestTranscribeRejectsSilentVideo(t *testing.T) {
	h := newHarness(t)
	h.prober.result.Streams = []ffprobe.Stream{{Index: 0, CodecType: "video"}}
	sess, err := h.pipe.UploadFile(context.Background(), "silent", h.video)
	if err != nil {
		t.Fatal(err)
	}
	failed, err := h.pipe.Transcribe(context.Background(), sess.ID)
	if !errors.Is(err, services.ErrInput) {
		t.Fatalf("expected ErrInput, got %v", err)
	}
	if failed.Status != session.StatusFailed || failed.FailureKind != "input" {
		t.Fatalf("session = %+v", failed)
	}
	if len(h.media.extracts) != 0 {
		t.Fatalf("nothing should be extracted, got %v", h.media.extracts)
	}
}
