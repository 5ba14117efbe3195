package dub

import "math"

// Audio is mono PCM normalized to [-1, 1].
type Audio struct {
	SampleRate int
	Samples    []float64
}

// DurationMS reports the playback length in milliseconds.
func (a Audio) DurationMS() float64 {
	if a.SampleRate <= 0 {
		return 0
	}
	return float64(len(a.Samples)) * 1000 / float64(a.SampleRate)
}

// Peak returns the largest absolute sample value.
func (a Audio) Peak() float64 {
	var peak float64
	for _, s := range a.Samples {
		if s < 0 {
			s = -s
		}
		if s > peak {
			peak = s
		}
	}
	return peak
}

func samplesFor(seconds float64, rate int) int {
	return int(math.Round(seconds * float64(rate)))
}

func msFor(samples, rate int) float64 {
	if rate <= 0 {
		return 0
	}
	return float64(samples) * 1000 / float64(rate)
}
