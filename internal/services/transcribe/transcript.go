package transcribe

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"revoice/internal/dub"
	"revoice/internal/fileutil"
	"revoice/internal/services"
)

// Transcript is a language-tagged list of timed segments.
type Transcript struct {
	Language string        `json:"language"`
	Segments []dub.Segment `json:"segments"`
}

// Compact trims segment text, drops segments with no text or a
// non-positive span, and renumbers the rest from zero.
func Compact(segments []dub.Segment) []dub.Segment {
	out := make([]dub.Segment, 0, len(segments))
	for _, seg := range segments {
		seg.Text = strings.TrimSpace(seg.Text)
		if seg.Text == "" || seg.End <= seg.Start {
			continue
		}
		seg.Index = len(out)
		out = append(out, seg)
	}
	return out
}

// Save writes the transcript as indented JSON via a temp file and rename.
func Save(path string, transcript Transcript) error {
	data, err := json.MarshalIndent(transcript, "", "  ")
	if err != nil {
		return fmt.Errorf("encode transcript: %w", err)
	}
	if err := fileutil.WriteFileAtomic(path, data); err != nil {
		return fmt.Errorf("write transcript: %w", err)
	}
	return nil
}

// Load reads a transcript written by Save. A missing file is ErrNotFound.
func Load(path string) (Transcript, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Transcript{}, services.Wrap(services.ErrNotFound, "transcription", "load", filepath.Base(path), err)
		}
		return Transcript{}, fmt.Errorf("read transcript: %w", err)
	}
	var transcript Transcript
	if err := json.Unmarshal(data, &transcript); err != nil {
		return Transcript{}, services.Wrap(services.ErrInput, "transcription", "load", "malformed transcript", err)
	}
	return transcript, nil
}
