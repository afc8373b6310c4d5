package client

import (
	"testing"
	"time"
)

func TestRenewBackoffDelay(t *testing.T) {
	b := &renewBackoff{waitMin: time.Second, waitMax: 30 * time.Second}

	tests := []struct {
		failures int
		min      time.Duration
		max      time.Duration
	}{
		{failures: 0, min: time.Second, max: 2 * time.Second},
		{failures: 1, min: time.Second, max: 2 * time.Second},
		{failures: 2, min: 2 * time.Second, max: 3 * time.Second},
		{failures: 3, min: 4 * time.Second, max: 5 * time.Second},
		{failures: 5, min: 16 * time.Second, max: 17 * time.Second},
		{failures: 6, min: 30 * time.Second, max: 30 * time.Second},
		{failures: 100, min: 30 * time.Second, max: 30 * time.Second},
	}

	for _, tt := range tests {
		for range 20 {
			got := b.delay(tt.failures)
			if got < tt.min || got > tt.max {
				t.Errorf("delay(%d) = %v, want between %v and %v", tt.failures, got, tt.min, tt.max)
			}
		}
	}
}

func TestRenewBackoffFromOptions(t *testing.T) {
	opts := defaultOptions()
	WithRenewRetryWait(100*time.Millisecond, 400*time.Millisecond)(opts)

	b := newRenewBackoff(opts)
	if b.waitMin != 100*time.Millisecond {
		t.Errorf("waitMin = %v, want 100ms", b.waitMin)
	}
	if got := b.delay(10); got != 400*time.Millisecond {
		t.Errorf("delay(10) = %v, want capped at 400ms", got)
	}
}
