package logging

// ProgressSampler suppresses repetitive progress logs while a batch of
// segments completes, emitting only when a percentage bucket is crossed.
// Safe for use from a single goroutine; callers fanning out must serialize.
type ProgressSampler struct {
	bucketSize float64
	lastBucket int
}

// NewProgressSampler constructs a sampler that emits when completion crosses
// bucket boundaries (default 25%).
func NewProgressSampler(bucketSize float64) *ProgressSampler {
	if bucketSize <= 0 {
		bucketSize = 25
	}
	return &ProgressSampler{bucketSize: bucketSize, lastBucket: -1}
}

// ShouldLog reports whether done-of-total progress deserves a log line.
// Completion of the final item always logs.
func (s *ProgressSampler) ShouldLog(done, total int) bool {
	if s == nil || total <= 0 {
		return true
	}
	if done >= total {
		if s.lastBucket == bucketCeiling(s.bucketSize) {
			return false
		}
		s.lastBucket = bucketCeiling(s.bucketSize)
		return true
	}
	percent := float64(done) * 100 / float64(total)
	bucket := int(percent / s.bucketSize)
	if bucket > s.lastBucket {
		s.lastBucket = bucket
		return true
	}
	return false
}

// Reset clears the sampler state before a new batch.
func (s *ProgressSampler) Reset() {
	if s == nil {
		return
	}
	s.lastBucket = -1
}

func bucketCeiling(size float64) int {
	return int(100/size) + 1
}
