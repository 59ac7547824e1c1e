package logging

import "testing"

func TestNewProgressSampler(t *testing.T) {
	tests := []struct {
		name       string
		bucketSize float64
		wantSize   float64
	}{
		{"default bucket size for zero", 0, 5},
		{"default bucket size for negative", -1, 5},
		{"custom bucket size", 10, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewProgressSampler(tt.bucketSize)
			if s.bucketSize != tt.wantSize {
				t.Errorf("bucketSize = %v, want %v", s.bucketSize, tt.wantSize)
			}
			if s.lastBucket != -1 {
				t.Errorf("lastBucket = %d, want -1", s.lastBucket)
			}
		})
	}
}

func TestProgressSamplerNil(t *testing.T) {
	var s *ProgressSampler
	if !s.ShouldLog(50, "rendering") {
		t.Error("ShouldLog on nil sampler should always return true")
	}
	s.Reset() // should not panic
}

func TestProgressSamplerStateChange(t *testing.T) {
	s := NewProgressSampler(5)

	if !s.ShouldLog(0, "rendering") {
		t.Error("first state should log")
	}
	if s.ShouldLog(0, "rendering") {
		t.Error("same state and percent should not log again")
	}
	if !s.ShouldLog(0, "verifying") {
		t.Error("state change should log")
	}
	if s.lastState != "verifying" {
		t.Errorf("lastState = %q, want verifying", s.lastState)
	}
}

func TestProgressSamplerBuckets(t *testing.T) {
	s := NewProgressSampler(5)

	if !s.ShouldLog(0, "rendering") {
		t.Error("0%% should log")
	}
	if s.ShouldLog(3, "rendering") {
		t.Error("3%% stays in the first bucket")
	}
	if !s.ShouldLog(5, "rendering") {
		t.Error("5%% crosses a bucket boundary")
	}
	if !s.ShouldLog(27, "rendering") {
		t.Error("skipping buckets should still log")
	}
	if s.ShouldLog(26, "rendering") {
		t.Error("going backwards should not log")
	}
	if !s.ShouldLog(100, "rendering") {
		t.Error("100%% should log")
	}
}

func TestProgressSamplerReset(t *testing.T) {
	s := NewProgressSampler(5)
	s.ShouldLog(50, "rendering")
	s.Reset()
	if !s.ShouldLog(50, "rendering") {
		t.Error("reset sampler should log again")
	}
}
