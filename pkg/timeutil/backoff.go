package timeutil

import (
	"math/rand"
	"time"
)

// MaxDuration returns the largest duration among the given values, or zero
// for an empty slice.
func MaxDuration(durations []time.Duration) time.Duration {
	var max time.Duration
	for _, d := range durations {
		if d > max {
			max = d
		}
	}
	return max
}

// ExponentialBackoffDelay computes the delay before the given attempt number
// (1-indexed), applying the backoff parameters and adding up to jitter of
// uniform random noise. The result never exceeds maxDuration + jitter.
func ExponentialBackoffDelay(attempt int, jitter time.Duration, rng rand.Rand, param BackoffParam) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := float64(param.InitialDuration())
	for i := 1; i < attempt; i++ {
		delay *= param.Multiplier()
		if time.Duration(delay) > param.MaxDuration() {
			delay = float64(param.MaxDuration())
			break
		}
	}
	backoff := time.Duration(delay)
	if jitter > 0 {
		backoff += time.Duration(rng.Int63n(int64(jitter)))
	}
	return backoff
}
