package fileutil

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteFileAtomicCreatesParents(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "a", "b", "out.json")
	if err := WriteFileAtomic(dest, []byte("hello")); err != nil {
		t.Fatal(err)
	}
	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "hello" {
		t.Fatalf("content = %q", got)
	}
	info, err := os.Stat(dest)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm()&0o044 == 0 {
		t.Fatalf("expected group/other read bits, got %o", info.Mode().Perm())
	}
}

func TestWriteAtomicReplacesExisting(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "video.mp4")
	if err := os.WriteFile(dest, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}
	n, err := WriteAtomic(dest, strings.NewReader("new content"))
	if err != nil {
		t.Fatal(err)
	}
	if n != int64(len("new content")) {
		t.Fatalf("written = %d", n)
	}
	got, _ := os.ReadFile(dest)
	if string(got) != "new content" {
		t.Fatalf("content = %q", got)
	}
}

func TestWriteWithFailureKeepsOriginal(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "report.json")
	if err := os.WriteFile(dest, []byte("keep"), 0o644); err != nil {
		t.Fatal(err)
	}
	boom := errors.New("boom")
	err := WriteWith(dest, func(f *os.File) error {
		_, _ = f.Write([]byte("partial"))
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	got, _ := os.ReadFile(dest)
	if string(got) != "keep" {
		t.Fatalf("original replaced: %q", got)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("temporary left behind: %v", entries)
	}
}
