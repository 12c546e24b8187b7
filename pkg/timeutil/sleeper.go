package timeutil

import "time"

// Sleeper abstracts time.Sleep so scheduler pause loops and rate-limiter
// waits can be driven deterministically under test.
type Sleeper interface {
	Sleep(d time.Duration)
}

type realSleeper struct{}

func NewRealSleeper() Sleeper {
	return realSleeper{}
}

func (realSleeper) Sleep(d time.Duration) {
	time.Sleep(d)
}
