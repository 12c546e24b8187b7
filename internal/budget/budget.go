package budget

import (
	"fmt"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rohmanhakim/docs-crawler/pkg/timeutil"
)

/*
Responsibilities

- Track pages fetched, bytes downloaded, and elapsed wall-clock time
- Latch once any configured limit is reached: a tripped Tracker stays
  tripped, even if a caller later queries a dimension under its limit
- Produce a human-readable stop reason for logging/CLI output

Budget knows nothing about the frontier or the scheduler's worker pool;
it is a pure counter with a one-way latch.
*/

// Limits bounds a crawl. A zero value in any field means "unbounded" for
// that dimension.
type Limits struct {
	MaxPages   int
	MaxBytes   int64
	MaxElapsed time.Duration
}

// Tracker enforces Limits against observed crawl activity. Once tripped,
// Tripped and Reason stay fixed for the remainder of the crawl.
type Tracker struct {
	mu sync.Mutex

	limits  Limits
	clock   timeutil.Clock
	startAt time.Time

	pages   int
	bytes   int64
	tripped bool
	reason  string
}

// NewTracker constructs a Tracker bounded by limits, using clock as the
// elapsed-time source (inject a mock clock in tests to fast-forward
// MaxElapsed deterministically).
func NewTracker(limits Limits, clock timeutil.Clock) *Tracker {
	return &Tracker{
		limits:  limits,
		clock:   clock,
		startAt: clock.Now(),
	}
}

// RecordPage registers one fetched page of the given response size and
// re-evaluates the latch.
func (t *Tracker) RecordPage(bytes int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.pages++
	t.bytes += bytes
	t.evaluateLocked()
}

// Tripped reports whether any limit has been reached. Once true, it never
// reverts to false.
func (t *Tracker) Tripped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.tripped {
		t.evaluateLocked()
	}
	return t.tripped
}

// Reason returns the human-readable explanation for why the tracker
// tripped, or "" if it has not tripped.
func (t *Tracker) Reason() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.reason
}

// Pages returns the number of pages recorded so far.
func (t *Tracker) Pages() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pages
}

// Bytes returns the total bytes recorded so far.
func (t *Tracker) Bytes() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.bytes
}

// evaluateLocked checks each configured dimension in priority order
// (pages, bytes, elapsed) and latches the first one that is exceeded.
// Caller must hold t.mu.
func (t *Tracker) evaluateLocked() {
	if t.tripped {
		return
	}

	if t.limits.MaxPages > 0 && t.pages >= t.limits.MaxPages {
		t.tripped = true
		t.reason = fmt.Sprintf("pages crawled: %d / %d", t.pages, t.limits.MaxPages)
		return
	}
	if t.limits.MaxBytes > 0 && t.bytes >= t.limits.MaxBytes {
		t.tripped = true
		t.reason = fmt.Sprintf("bytes downloaded: %s / %s",
			humanize.Bytes(uint64(t.bytes)), humanize.Bytes(uint64(t.limits.MaxBytes)))
		return
	}
	if t.limits.MaxElapsed > 0 {
		elapsed := t.clock.Now().Sub(t.startAt)
		if elapsed >= t.limits.MaxElapsed {
			t.tripped = true
			t.reason = fmt.Sprintf("elapsed: %s / %s", elapsed.Round(time.Second), t.limits.MaxElapsed)
		}
	}
}
