package dub

import (
	"fmt"
	"math"

	"revoice/internal/services"
)

// DuckGain converts an attenuation in decibels to a linear amplitude factor.
func DuckGain(db float64) float64 {
	return math.Pow(10, db/20)
}

// Mix attenuates original by duckDB and overlays generated on top from time
// zero. The shorter input is padded with silence, so the result is as long as
// the longer one. Sums are clipped to [-1, 1].
func Mix(original, generated Audio, duckDB float64) (Audio, error) {
	if original.SampleRate <= 0 || generated.SampleRate <= 0 {
		return Audio{}, services.Wrap(services.ErrInput, "mix", "overlay", "sample rate must be positive", nil)
	}
	if original.SampleRate != generated.SampleRate {
		return Audio{}, services.Wrap(services.ErrInput, "mix", "overlay",
			fmt.Sprintf("original is %d Hz, dub is %d Hz", original.SampleRate, generated.SampleRate), nil)
	}
	if duckDB > 0 || !finite(duckDB) {
		return Audio{}, services.Wrap(services.ErrInput, "mix", "overlay", fmt.Sprintf("duck level %v dB must be <= 0", duckDB), nil)
	}

	gain := DuckGain(duckDB)
	out := make([]float64, max(len(original.Samples), len(generated.Samples)))
	for i := range out {
		var v float64
		if i < len(original.Samples) {
			v = original.Samples[i] * gain
		}
		if i < len(generated.Samples) {
			v += generated.Samples[i]
		}
		out[i] = max(-1, min(v, 1))
	}
	return Audio{SampleRate: original.SampleRate, Samples: out}, nil
}
