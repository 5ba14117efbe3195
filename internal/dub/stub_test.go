package dub_test

import (
	"context"
	"errors"
	"math"
	"os"
	"sync"

	"revoice/internal/dub"
)

const testRate = 1000 // one sample per millisecond keeps arithmetic exact

// stubSynth produces clips whose natural length comes from naturalMS and
// shrinks inversely with the requested speed-up.
type stubSynth struct {
	mu        sync.Mutex
	naturalMS map[string]float64
	failText  string
	// failFrom delays failText failures until this attempt; zero fails every attempt.
	failFrom   int
	err        error
	writeFiles bool
	calls      []dub.SynthesisRequest
}

func (s *stubSynth) Synthesize(ctx context.Context, req dub.SynthesisRequest) (dub.Clip, error) {
	s.mu.Lock()
	s.calls = append(s.calls, req)
	s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return dub.Clip{}, err
	}
	if s.failText != "" && req.Text == s.failText && req.Attempt >= s.failFrom {
		if s.err != nil {
			return dub.Clip{}, s.err
		}
		return dub.Clip{}, errors.New("service unavailable")
	}
	natural := s.naturalMS[req.Text]
	n := int(math.Round(natural / (1 + float64(req.RatePercent)/100)))
	samples := make([]float64, n)
	for i := range samples {
		samples[i] = 0.5
	}
	clip := dub.Clip{Audio: dub.Audio{SampleRate: testRate, Samples: samples}}
	if s.writeFiles {
		clip.Path = req.OutputBase + ".wav"
		if err := os.WriteFile(clip.Path, []byte("pcm"), 0o644); err != nil {
			return dub.Clip{}, err
		}
	}
	return clip, nil
}

func (s *stubSynth) rates(segment int) []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []int
	for _, c := range s.calls {
		if c.Segment == segment {
			out = append(out, c.RatePercent)
		}
	}
	return out
}

func (s *stubSynth) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func window(index int, availableMS float64) dub.Window {
	return dub.Window{Index: index, AvailableMS: availableMS}
}

func placed(segment, samples int, accepted bool) dub.PlacedClip {
	return dub.PlacedClip{
		Segment:    segment,
		Clip:       dub.Clip{Audio: dub.Audio{SampleRate: testRate, Samples: make([]float64, samples)}},
		DurationMS: float64(samples),
		Accepted:   accepted,
	}
}
