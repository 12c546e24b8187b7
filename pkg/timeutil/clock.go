package timeutil

import "github.com/benbjohnson/clock"

// Clock is the injectable time source used by the rate limiter and budget
// tracker so their elapsed-time and TTL checks can be driven deterministically
// in tests (a benbjohnson/clock.Mock can fast-forward without real sleeps).
type Clock = clock.Clock

// NewRealClock returns the wall-clock implementation of Clock.
func NewRealClock() Clock {
	return clock.New()
}
