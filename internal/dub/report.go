package dub

import (
	"encoding/json"
	"fmt"
	"os"

	"revoice/internal/fileutil"
)

// DurationMismatchWarning reports a degraded placement: the clip never
// reached the acceptable ratio within the attempt budget and was used anyway.
type DurationMismatchWarning struct {
	Segment     int     `json:"segment"`
	AvailableMS float64 `json:"available_ms"`
	DurationMS  float64 `json:"duration_ms"`
	Ratio       float64 `json:"ratio"`
	RatePercent int     `json:"rate_percent"`
	Attempts    int     `json:"attempts"`
}

// SegmentReport summarizes how one segment was placed.
type SegmentReport struct {
	Index       int       `json:"index"`
	Text        string    `json:"text"`
	StartMS     float64   `json:"start_ms"`
	AvailableMS float64   `json:"available_ms"`
	DurationMS  float64   `json:"duration_ms"`
	Ratio       float64   `json:"ratio"`
	RatePercent int       `json:"rate_percent"`
	Accepted    bool      `json:"accepted"`
	Attempts    []Attempt `json:"attempts"`
}

// Report is the observable outcome of one generation run.
type Report struct {
	Policy     string                    `json:"policy"`
	TrackPath  string                    `json:"track_path"`
	SampleRate int                       `json:"sample_rate"`
	NominalMS  float64                   `json:"nominal_ms"`
	ActualMS   float64                   `json:"actual_ms"`
	Segments   []SegmentReport           `json:"segments"`
	Mismatches []DurationMismatchWarning `json:"duration_mismatches"`
	Overruns   []OverrunWarning          `json:"overruns"`
}

// Degraded counts segments placed outside the acceptable ratio.
func (r Report) Degraded() int {
	return len(r.Mismatches)
}

// TrackOverrunMS reports how far the track extends past the media end.
func (r Report) TrackOverrunMS() float64 {
	return max(r.ActualMS-r.NominalMS, 0)
}

// SynthesisCalls counts every synthesizer invocation in the run.
func (r Report) SynthesisCalls() int {
	total := 0
	for _, seg := range r.Segments {
		total += len(seg.Attempts)
	}
	return total
}

func buildReport(policy string, segments []Segment, plan Plan, clips []PlacedClip, track Track) Report {
	report := Report{
		Policy:     policy,
		SampleRate: track.SampleRate,
		NominalMS:  track.NominalMS,
		ActualMS:   track.ActualMS,
		Segments:   make([]SegmentReport, len(clips)),
		Overruns:   track.Overruns,
	}
	for i, placed := range clips {
		window := plan.Windows[i]
		ratio := placed.DurationMS / window.AvailableMS
		report.Segments[i] = SegmentReport{
			Index:       placed.Segment,
			Text:        segments[i].Text,
			StartMS:     segments[i].Start * 1000,
			AvailableMS: window.AvailableMS,
			DurationMS:  placed.DurationMS,
			Ratio:       ratio,
			RatePercent: placed.RatePercent,
			Accepted:    placed.Accepted,
			Attempts:    placed.Attempts,
		}
		if !placed.Accepted {
			report.Mismatches = append(report.Mismatches, DurationMismatchWarning{
				Segment:     placed.Segment,
				AvailableMS: window.AvailableMS,
				DurationMS:  placed.DurationMS,
				Ratio:       ratio,
				RatePercent: placed.RatePercent,
				Attempts:    len(placed.Attempts),
			})
		}
	}
	return report
}

// WriteReport stores the report as indented JSON, replacing any previous one.
func WriteReport(path string, report Report) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if err := fileutil.WriteFileAtomic(path, data); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// ReadReport loads a report written by WriteReport.
func ReadReport(path string) (Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Report{}, fmt.Errorf("read report: %w", err)
	}
	var report Report
	if err := json.Unmarshal(data, &report); err != nil {
		return Report{}, fmt.Errorf("decode report: %w", err)
	}
	return report, nil
}
