package transcribe_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"

	"revoice/internal/config"
	"revoice/internal/dub"
	"revoice/internal/logging"
	"revoice/internal/services"
	"revoice/internal/services/transcribe"
	"revoice/internal/services/whisperx"
)

type fakeClient struct {
	got  openai.AudioRequest
	body string
	err  error
}

func (f *fakeClient) CreateTranscription(_ context.Context, req openai.AudioRequest) (openai.AudioResponse, error) {
	f.got = req
	if f.err != nil {
		return openai.AudioResponse{}, f.err
	}
	var resp openai.AudioResponse
	err := json.Unmarshal([]byte(f.body), &resp)
	return resp, err
}

const verbose = `{"task":"transcribe","language":"english","duration":9.5,"text":"...",
 "segments":[
  {"id":0,"start":1.0,"end":2.5,"text":" Hello."},
  {"id":1,"start":2.5,"end":2.9,"text":"   "},
  {"id":2,"start":3.0,"end":6.0,"text":" How are you?"}]}`

func TestOpenAITranscribeCompactsSegments(t *testing.T) {
	client := &fakeClient{body: verbose}
	tr := transcribe.NewOpenAIWithClient(client, "", "", logging.NewNop())

	got, err := tr.Transcribe(context.Background(), "/tmp/audio.wav")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if client.got.Model != openai.Whisper1 || client.got.Format != openai.AudioResponseFormatVerboseJSON {
		t.Fatalf("request = %+v", client.got)
	}
	if got.Language != "en" {
		t.Fatalf("language = %q", got.Language)
	}
	want := []dub.Segment{
		{Index: 0, Start: 1.0, End: 2.5, Text: "Hello."},
		{Index: 1, Start: 3.0, End: 6.0, Text: "How are you?"},
	}
	if len(got.Segments) != len(want) {
		t.Fatalf("segments = %+v", got.Segments)
	}
	for i := range want {
		if got.Segments[i] != want[i] {
			t.Errorf("segment %d = %+v, want %+v", i, got.Segments[i], want[i])
		}
	}
}

func TestOpenAIForcedLanguage(t *testing.T) {
	client := &fakeClient{body: `{"segments":[{"start":0,"end":1,"text":"Hallo"}]}`}
	tr := transcribe.NewOpenAIWithClient(client, "whisper-large", "German", nil)
	got, err := tr.Transcribe(context.Background(), "a.wav")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if client.got.Language != "de" || client.got.Model != "whisper-large" {
		t.Fatalf("request = %+v", client.got)
	}
	if got.Language != "de" {
		t.Fatalf("language = %q", got.Language)
	}
}

func TestOpenAIErrors(t *testing.T) {
	tests := []struct {
		name   string
		client *fakeClient
	}{
		{"api failure", &fakeClient{err: errors.New("401")}},
		{"no speech", &fakeClient{body: `{"segments":[]}`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := transcribe.NewOpenAIWithClient(tt.client, "", "", nil).Transcribe(context.Background(), "a.wav")
			if !errors.Is(err, services.ErrTranscription) {
				t.Fatalf("expected ErrTranscription, got %v", err)
			}
		})
	}
}

func TestWhisperXBackend(t *testing.T) {
	dir := t.TempDir()
	audio := filepath.Join(dir, "original_audio.wav")
	svc := whisperx.NewService(whisperx.Config{})
	svc.WithCommandRunner(func(context.Context, string, ...string) error {
		return os.WriteFile(filepath.Join(dir, "whisperx", "original_audio.json"),
			[]byte(`{"language":"fr","segments":[{"text":" Bonjour","start":0.4,"end":1.2}]}`), 0o644)
	})
	got, err := transcribe.NewWhisperX(svc, "", time.Minute, nil).Transcribe(context.Background(), audio)
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if got.Language != "fr" || len(got.Segments) != 1 || got.Segments[0].Text != "Bonjour" {
		t.Fatalf("transcript = %+v", got)
	}
}

func TestNewSelectsBackend(t *testing.T) {
	for backend, want := range map[string]string{"": "openai", "openai": "openai", "whisperx": "whisperx"} {
		tr, err := transcribe.New(config.Transcription{Backend: backend}, nil)
		if err != nil || tr.Name() != want {
			t.Errorf("backend %q: %v %v", backend, tr, err)
		}
	}
	if _, err := transcribe.New(config.Transcription{Backend: "vosk"}, nil); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestSaveLoadRoundTripAndMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transcriptions", "original_transcription.json")
	in := transcribe.Transcript{Language: "en", Segments: []dub.Segment{{Index: 0, Start: 1, End: 2, Text: "hi"}}}
	if err := transcribe.Save(path, in); err != nil {
		t.Fatalf("Save: %v", err)
	}
	out, err := transcribe.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if out.Language != "en" || out.Segments[0] != in.Segments[0] {
		t.Fatalf("loaded %+v", out)
	}
	if _, err := transcribe.Load(filepath.Join(t.TempDir(), "nope.json")); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCompactDropsInvalidSpans(t *testing.T) {
	got := transcribe.Compact([]dub.Segment{
		{Index: 7, Start: 2, End: 1, Text: "backwards"},
		{Index: 8, Start: 2, End: 3, Text: " ok "},
	})
	if len(got) != 1 || got[0].Index != 0 || got[0].Text != "ok" {
		t.Fatalf("Compact = %+v", got)
	}
}
