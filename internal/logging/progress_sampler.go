package logging

import "strings"

// ProgressSampler suppresses repetitive encoder progress logs while keeping
// signal when the pipeline state or percentage bucket changes.
type ProgressSampler struct {
	bucketSize float64
	lastState  string
	lastBucket int
}

// NewProgressSampler constructs a sampler that emits when the percent crosses
// bucket boundaries (default 5%) or when the state label changes.
func NewProgressSampler(bucketSize float64) *ProgressSampler {
	if bucketSize <= 0 {
		bucketSize = 5
	}
	return &ProgressSampler{bucketSize: bucketSize, lastBucket: -1}
}

// ShouldLog reports whether a progress event should be logged. Percent can be
// negative to indicate "unknown".
func (s *ProgressSampler) ShouldLog(percent float64, state string) bool {
	if s == nil {
		return true
	}
	state = strings.TrimSpace(state)
	emit := false
	if state != "" && state != s.lastState {
		s.lastState = state
		s.lastBucket = -1
		emit = true
	}
	if percent >= 0 {
		bucket := int(percent / s.bucketSize)
		if percent >= 100 {
			bucket = int(100 / s.bucketSize)
		}
		if bucket > s.lastBucket {
			s.lastBucket = bucket
			emit = true
		}
	}
	return emit
}

// Reset clears sampler state when a new job starts.
func (s *ProgressSampler) Reset() {
	if s == nil {
		return
	}
	s.lastState = ""
	s.lastBucket = -1
}
