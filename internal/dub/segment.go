package dub

import (
	"fmt"
	"math"

	"revoice/internal/services"
)

// Segment is one timestamped utterance. Start and End are absolute seconds
// from the beginning of the media.
type Segment struct {
	Index int     `json:"index"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Window is the time budget a segment's dubbed clip must fit into. Relative
// times are measured from the first segment's start.
type Window struct {
	Index         int     `json:"index"`
	RelativeStart float64 `json:"relative_start"`
	RelativeEnd   float64 `json:"relative_end"`
	AvailableMS   float64 `json:"available_ms"`
}

// Plan is the ordered set of windows for one generation run.
type Plan struct {
	// Origin is the absolute start of the first segment in seconds.
	Origin        float64  `json:"origin"`
	MediaDuration float64  `json:"media_duration"`
	Windows       []Window `json:"windows"`
}

// BuildPlan derives one placement window per segment. Segments must be
// non-empty with strictly increasing starts, and every window must have a
// positive available duration.
func BuildPlan(segments []Segment, mediaDuration float64) (Plan, error) {
	if len(segments) == 0 {
		return Plan{}, planError("segment list is empty")
	}
	if !finite(mediaDuration) || mediaDuration <= 0 {
		return Plan{}, planError(fmt.Sprintf("media duration %v is not positive", mediaDuration))
	}

	origin := segments[0].Start
	windows := make([]Window, len(segments))
	for i, seg := range segments {
		if !finite(seg.Start) || !finite(seg.End) {
			return Plan{}, planError(fmt.Sprintf("segment %d has non-finite timing", seg.Index))
		}
		if i > 0 && seg.Start <= segments[i-1].Start {
			return Plan{}, planError(fmt.Sprintf("segment %d starts at %.3fs, not after segment %d at %.3fs",
				seg.Index, seg.Start, segments[i-1].Index, segments[i-1].Start))
		}
		windows[i] = Window{
			Index:         seg.Index,
			RelativeStart: seg.Start - origin,
			RelativeEnd:   seg.End - origin,
		}
	}

	last := len(windows) - 1
	for i := range windows {
		var available float64
		if i < last {
			available = (windows[i+1].RelativeStart - windows[i].RelativeStart) * 1000
		} else {
			available = (mediaDuration - windows[i].RelativeStart) * 1000
		}
		if available <= 0 {
			return Plan{}, planError(fmt.Sprintf("segment %d has no room: available %.0fms", windows[i].Index, available))
		}
		windows[i].AvailableMS = available
	}

	return Plan{Origin: origin, MediaDuration: mediaDuration, Windows: windows}, nil
}

// SlotEnd returns the absolute time in seconds at which the i-th window's
// slot ends: the next segment's start, or the media end for the last one.
func (p Plan) SlotEnd(i int) float64 {
	if i+1 < len(p.Windows) {
		return p.Origin + p.Windows[i+1].RelativeStart
	}
	return p.MediaDuration
}

func planError(message string) error {
	return services.Wrap(services.ErrInput, "plan", "build", message, nil)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
