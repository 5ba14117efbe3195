package dub

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"revoice/internal/logging"
	"revoice/internal/services"
)

// SpanKind distinguishes silence from speech in a Track.
type SpanKind string

const (
	SpanSilence SpanKind = "silence"
	SpanClip    SpanKind = "clip"
)

// Span is one contiguous run of the track. Segment is -1 for silence.
type Span struct {
	Kind       SpanKind `json:"kind"`
	Segment    int      `json:"segment"`
	Offset     int      `json:"offset"`
	Samples    int      `json:"samples"`
	DurationMS float64  `json:"duration_ms"`
}

// OverrunWarning reports a clip that ran past the end of its slot by more
// than the tolerance. The clip is kept whole and bleeds into the next slot.
type OverrunWarning struct {
	Segment   int     `json:"segment"`
	OverrunMS float64 `json:"overrun_ms"`
}

// Track is the assembled dub, spanning the media from time zero.
type Track struct {
	Audio
	Spans    []Span
	Overruns []OverrunWarning
	// NominalMS is the media duration the track should span; ActualMS is
	// what it spans, larger only when the last clip ran past the media end.
	NominalMS float64
	ActualMS  float64
}

// Overrun reports how far the track extends past the media end.
func (t Track) Overrun() float64 {
	return max(t.ActualMS-t.NominalMS, 0)
}

// Assembler concatenates placed clips with silence so each clip starts at
// its segment's position on the media timeline.
type Assembler struct {
	sampleRate   int
	toleranceMS  float64
	keepAttempts bool
	logger       *slog.Logger
}

// NewAssembler builds an assembler for clips at sampleRate. Overruns up to
// toleranceMS are absorbed silently. Attempt working files are removed once
// placed unless keepAttempts is set.
func NewAssembler(sampleRate int, toleranceMS float64, keepAttempts bool, logger *slog.Logger) *Assembler {
	return &Assembler{
		sampleRate:   sampleRate,
		toleranceMS:  toleranceMS,
		keepAttempts: keepAttempts,
		logger:       logging.NewComponentLogger(logger, "assembler"),
	}
}

// Release deletes the working files of every attempt of the given clips.
// Missing files are ignored; other removal failures are logged only.
func (a *Assembler) Release(clips []PlacedClip) {
	if a.keepAttempts {
		return
	}
	for _, placed := range clips {
		seen := map[string]struct{}{}
		paths := make([]string, 0, len(placed.Attempts)+1)
		for _, attempt := range placed.Attempts {
			paths = append(paths, attempt.Path)
		}
		paths = append(paths, placed.Clip.Path)
		for _, path := range paths {
			if path == "" {
				continue
			}
			if _, ok := seen[path]; ok {
				continue
			}
			seen[path] = struct{}{}
			if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
				a.logger.Debug("attempt cleanup failed", logging.String("path", path), logging.Error(err))
			}
		}
	}
}

// Assemble places every clip in order. The timeline starts with the offset of
// the first segment from the media start; each clip is followed by the
// silence needed to reach the next segment's start, or the media end after
// the last clip. Positions are computed against absolute sample offsets so
// rounding never accumulates.
func (a *Assembler) Assemble(ctx context.Context, plan Plan, clips []PlacedClip) (Track, error) {
	if a.sampleRate <= 0 {
		return Track{}, services.Wrap(services.ErrConfiguration, "assemble", "track", "sample rate must be positive", nil)
	}
	if len(plan.Windows) == 0 {
		return Track{}, services.Wrap(services.ErrInput, "assemble", "track", "plan has no windows", nil)
	}
	if len(clips) != len(plan.Windows) {
		return Track{}, services.Wrap(services.ErrInput, "assemble", "track",
			fmt.Sprintf("%d clips for %d windows", len(clips), len(plan.Windows)), nil)
	}
	for i, placed := range clips {
		if placed.Segment != plan.Windows[i].Index {
			return Track{}, services.Wrap(services.ErrInput, "assemble", "track",
				fmt.Sprintf("clip %d belongs to segment %d, expected %d", i, placed.Segment, plan.Windows[i].Index), nil)
		}
		if placed.Clip.SampleRate != a.sampleRate {
			return Track{}, services.Wrap(services.ErrInput, "assemble", "track",
				fmt.Sprintf("segment %d clip is %d Hz, track is %d Hz", placed.Segment, placed.Clip.SampleRate, a.sampleRate), nil)
		}
	}

	logger := logging.WithContext(ctx, a.logger)
	nominal := samplesFor(plan.MediaDuration, a.sampleRate)
	track := Track{NominalMS: msFor(nominal, a.sampleRate)}

	var spans []Span
	pos := 0
	appendSilence := func(n int) {
		if n <= 0 {
			return
		}
		spans = append(spans, Span{Kind: SpanSilence, Segment: -1, Offset: pos, Samples: n, DurationMS: msFor(n, a.sampleRate)})
		pos += n
	}

	appendSilence(samplesFor(plan.Origin, a.sampleRate))
	for i, placed := range clips {
		n := len(placed.Clip.Samples)
		spans = append(spans, Span{Kind: SpanClip, Segment: placed.Segment, Offset: pos, Samples: n, DurationMS: msFor(n, a.sampleRate)})
		pos += n

		gap := samplesFor(plan.SlotEnd(i), a.sampleRate) - pos
		if gap > 0 {
			appendSilence(gap)
			continue
		}
		if overrun := msFor(-gap, a.sampleRate); overrun > a.toleranceMS {
			track.Overruns = append(track.Overruns, OverrunWarning{Segment: placed.Segment, OverrunMS: overrun})
			logging.WarnWithContext(logger, "clip overruns its slot", "segment_overrun",
				logging.Int(logging.FieldSegment, placed.Segment),
				logging.Float64("overrun_ms", overrun),
				logging.Bool("accepted", placed.Accepted),
				logging.String(logging.FieldErrorHint, "shorten the translation or raise max_speedup_percent"),
				logging.String(logging.FieldImpact, "following speech starts late"),
			)
		}
	}

	samples := make([]float64, pos)
	ci := 0
	for _, span := range spans {
		if span.Kind != SpanClip {
			continue
		}
		copy(samples[span.Offset:span.Offset+span.Samples], clips[ci].Clip.Samples)
		ci++
	}

	track.Audio = Audio{SampleRate: a.sampleRate, Samples: samples}
	track.Spans = spans
	track.ActualMS = msFor(pos, a.sampleRate)
	if over := track.Overrun(); over > 0 {
		logging.WarnWithContext(logger, "track runs past media end", "track_overrun",
			logging.Float64("nominal_ms", track.NominalMS),
			logging.Float64("actual_ms", track.ActualMS),
			logging.Float64("overrun_ms", over),
			logging.String(logging.FieldImpact, "mux truncates the tail to the video length"),
		)
	}
	return track, nil
}
