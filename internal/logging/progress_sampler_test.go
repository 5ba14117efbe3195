package logging

import "testing"

func TestProgressSamplerEmitsOnBucketBoundaries(t *testing.T) {
	s := NewProgressSampler(25)
	total := 8
	var emitted []int
	for done := 0; done <= total; done++ {
		if s.ShouldLog(done, total) {
			emitted = append(emitted, done)
		}
	}
	want := []int{0, 2, 4, 6, 8}
	if len(emitted) != len(want) {
		t.Fatalf("emitted = %v, want %v", emitted, want)
	}
	for i := range want {
		if emitted[i] != want[i] {
			t.Fatalf("emitted = %v, want %v", emitted, want)
		}
	}
}

func TestProgressSamplerCompletionLogsOnce(t *testing.T) {
	s := NewProgressSampler(50)
	if !s.ShouldLog(3, 3) {
		t.Fatal("completion should log")
	}
	if s.ShouldLog(3, 3) {
		t.Fatal("completion should log only once")
	}
	s.Reset()
	if !s.ShouldLog(0, 3) {
		t.Fatal("reset should allow first bucket again")
	}
}

func TestProgressSamplerDefaultsAndNil(t *testing.T) {
	if NewProgressSampler(0).bucketSize != 25 {
		t.Fatal("expected default bucket size 25")
	}
	var s *ProgressSampler
	if !s.ShouldLog(1, 2) {
		t.Fatal("nil sampler always logs")
	}
	s.Reset()
	if !NewProgressSampler(10).ShouldLog(0, 0) {
		t.Fatal("unknown total always logs")
	}
}
