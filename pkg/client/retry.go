package client

import (
	"math"
	"math/rand/v2"
	"time"
)

// renewBackoff computes the wait before the next automatic renewal attempt
// after one or more consecutive failures.
// It is safe for concurrent use by multiple goroutines.
type renewBackoff struct {
	waitMin time.Duration
	waitMax time.Duration
}

func newRenewBackoff(opts *Options) *renewBackoff {
	return &renewBackoff{
		waitMin: opts.renewWaitMin,
		waitMax: opts.renewWaitMax,
	}
}

func (b *renewBackoff) delay(failures int) time.Duration {
	if failures < 1 {
		failures = 1
	}
	// Cap attempt to prevent overflow
	if failures > 10 {
		failures = 10
	}

	mult := math.Pow(2, float64(failures-1))
	wait := time.Duration(mult) * b.waitMin

	// Jitter of up to 100% of waitMin (math/rand/v2 is goroutine-safe)
	if b.waitMin > 0 {
		wait += time.Duration(rand.Int64N(int64(b.waitMin)))
	}

	if wait > b.waitMax {
		wait = b.waitMax
	}
	return wait
}
