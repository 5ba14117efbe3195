package wavio

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"revoice/internal/fileutil"
)

// BitDepth is the sample size used for every file this package writes.
const BitDepth = 16

// ErrInvalidFile is returned when the input is not a readable PCM WAV stream.
var ErrInvalidFile = errors.New("invalid wav file")

// Read decodes the WAV file at path, downmixing to mono.
func Read(path string) ([]float64, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open wav: %w", err)
	}
	defer f.Close()
	samples, rate, err := Decode(f)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", path, err)
	}
	return samples, rate, nil
}

// Decode reads a whole WAV stream and returns mono samples and the sample rate.
func Decode(r io.ReadSeeker) ([]float64, int, error) {
	dec := wav.NewDecoder(r)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrInvalidFile, err)
	}
	if buf == nil || buf.Format == nil || buf.Format.SampleRate <= 0 {
		return nil, 0, ErrInvalidFile
	}

	channels := max(buf.Format.NumChannels, 1)
	depth := int(dec.BitDepth)
	if depth == 0 {
		depth = buf.SourceBitDepth
	}
	scale, offset := normalization(depth)

	frames := len(buf.Data) / channels
	out := make([]float64, frames)
	for i := range frames {
		var sum float64
		for c := range channels {
			sum += (float64(buf.Data[i*channels+c]) - offset) / scale
		}
		out[i] = clamp(sum / float64(channels))
	}
	return out, buf.Format.SampleRate, nil
}

// Encode writes mono samples as 16-bit PCM.
func Encode(w io.WriteSeeker, samples []float64, sampleRate int) error {
	if sampleRate <= 0 {
		return fmt.Errorf("encode wav: sample rate %d must be positive", sampleRate)
	}
	enc := wav.NewEncoder(w, sampleRate, BitDepth, 1, 1)
	peak := float64(int(1)<<(BitDepth-1) - 1)
	data := make([]int, len(samples))
	for i, s := range samples {
		data[i] = int(clamp(s) * peak)
	}
	buf := &audio.IntBuffer{
		Data:           data,
		Format:         &audio.Format{SampleRate: sampleRate, NumChannels: 1},
		SourceBitDepth: BitDepth,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("encode wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("finalize wav: %w", err)
	}
	return nil
}

// WriteAtomic encodes samples to path via a temporary sibling file.
func WriteAtomic(path string, samples []float64, sampleRate int) error {
	return fileutil.WriteWith(path, func(f *os.File) error {
		return Encode(f, samples, sampleRate)
	})
}

// Duration reports the length of a sample slice in seconds.
func Duration(samples []float64, sampleRate int) float64 {
	if sampleRate <= 0 {
		return 0
	}
	return float64(len(samples)) / float64(sampleRate)
}

func normalization(depth int) (scale, offset float64) {
	switch {
	case depth == 8:
		return 128, 128
	case depth > 0:
		return float64(int64(1) << (depth - 1)), 0
	default:
		return float64(int64(1) << 15), 0
	}
}

func clamp(v float64) float64 {
	return max(-1, min(v, 1))
}
