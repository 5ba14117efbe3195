package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"revoice/internal/services"
)

// VideoExtensions lists the container extensions accepted on upload.
var VideoExtensions = []string{".mp4", ".mkv", ".mov", ".avi", ".flv"}

// Workspace is the on-disk layout of one session.
type Workspace struct {
	Root string
}

// NewWorkspace returns the layout for id under root.
func NewWorkspace(root, id string) Workspace {
	return Workspace{Root: filepath.Join(root, id)}
}

func (w Workspace) OriginalDir() string       { return filepath.Join(w.Root, "original") }
func (w Workspace) TranscriptionsDir() string { return filepath.Join(w.Root, "transcriptions") }
func (w Workspace) SegmentsDir() string       { return filepath.Join(w.Root, "segments") }

// AttemptsDir holds per-attempt synthesized clips during generation.
func (w Workspace) AttemptsDir() string { return filepath.Join(w.SegmentsDir(), "work") }

func (w Workspace) OriginalTranscript() string {
	return filepath.Join(w.TranscriptionsDir(), "original_transcription.json")
}

func (w Workspace) TranslatedTranscript() string {
	return filepath.Join(w.TranscriptionsDir(), "translated_transcription.json")
}

// SpeechAudio is the mono 16 kHz extract fed to transcription.
func (w Workspace) SpeechAudio() string { return filepath.Join(w.TranscriptionsDir(), "speech.wav") }

func (w Workspace) TrackPath() string  { return filepath.Join(w.SegmentsDir(), "audio.wav") }
func (w Workspace) ReportPath() string { return filepath.Join(w.SegmentsDir(), "report.json") }

// OriginalAudio and MixedAudio are generation temporaries.
func (w Workspace) OriginalAudio() string { return filepath.Join(w.Root, "original_audio.wav") }
func (w Workspace) MixedAudio() string    { return filepath.Join(w.Root, "mixed_audio.wav") }

func (w Workspace) FinalVideo() string { return filepath.Join(w.Root, "final_video.mp4") }

func (w Workspace) lockPath() string { return filepath.Join(w.Root, ".lock") }

// Ensure creates the workspace directories.
func (w Workspace) Ensure() error {
	for _, dir := range []string{w.OriginalDir(), w.TranscriptionsDir(), w.SegmentsDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create workspace directory %q: %w", dir, err)
		}
	}
	return nil
}

// IsVideoFile reports whether name carries an accepted video extension.
func IsVideoFile(name string) bool {
	return slices.Contains(VideoExtensions, strings.ToLower(filepath.Ext(name)))
}

// FindVideo returns the uploaded video in original/.
func (w Workspace) FindVideo() (string, error) {
	entries, err := os.ReadDir(w.OriginalDir())
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("read original dir: %w", err)
	}
	for _, entry := range entries {
		if !entry.IsDir() && IsVideoFile(entry.Name()) {
			return filepath.Join(w.OriginalDir(), entry.Name()), nil
		}
	}
	return "", services.Wrap(services.ErrNotFound, "session", "video", "no uploaded video in "+w.OriginalDir(), nil)
}

// Lock is an exclusive hold on a session workspace.
type Lock struct {
	fl *flock.Flock
}

// Unlock releases the lock.
func (l *Lock) Unlock() error {
	if l == nil || l.fl == nil {
		return nil
	}
	return l.fl.Unlock()
}

// TryLock takes the session lock without waiting. A held lock is ErrConflict.
func (w Workspace) TryLock() (*Lock, error) {
	if err := os.MkdirAll(w.Root, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	fl := flock.New(w.lockPath())
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire session lock: %w", err)
	}
	if !ok {
		return nil, services.Wrap(services.ErrConflict, "session", "lock", "another stage is running for this session", nil)
	}
	return &Lock{fl: fl}, nil
}

// WaitLock polls for the session lock until ctx ends.
func (w Workspace) WaitLock(ctx context.Context, interval time.Duration) (*Lock, error) {
	if err := os.MkdirAll(w.Root, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	fl := flock.New(w.lockPath())
	ok, err := fl.TryLockContext(ctx, interval)
	if err != nil {
		return nil, fmt.Errorf("acquire session lock: %w", err)
	}
	if !ok {
		return nil, services.Wrap(services.ErrConflict, "session", "lock", "session lock unavailable", nil)
	}
	return &Lock{fl: fl}, nil
}
