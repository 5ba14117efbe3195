package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"revoice/internal/media/wavio"
)

// WriteFile fills the target path with the requested number of bytes using a
// simple repeating pattern. A size <= 0 writes a single byte.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	const chunkSize = 32 * 1024
	buf := make([]byte, chunkSize)
	for i := range buf {
		buf[i] = 0x42
	}

	remaining := size
	for remaining > 0 {
		toWrite := int64(chunkSize)
		if remaining < toWrite {
			toWrite = remaining
		}
		if _, err := f.Write(buf[:toWrite]); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
		remaining -= toWrite
	}
}

// WriteTone writes a mono WAV of durationMS at sampleRate holding a constant
// amplitude, for tests that decode real PCM.
func WriteTone(t testing.TB, path string, sampleRate int, durationMS int, amplitude float64) {
	t.Helper()

	samples := make([]float64, sampleRate*durationMS/1000)
	for i := range samples {
		samples[i] = amplitude
	}
	if err := wavio.WriteAtomic(path, samples, sampleRate); err != nil {
		t.Fatalf("write wav %s: %v", path, err)
	}
}
