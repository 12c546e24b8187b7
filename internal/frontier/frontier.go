package frontier

import (
	"sync"

	"github.com/rohmanhakim/dlog"

	"github.com/rohmanhakim/docs-crawler/internal/config"
	"github.com/rohmanhakim/docs-crawler/pkg/urlutil"
)

/*
Frontier Responsibilities
- Maintain BFS ordering
- Deduplicate URLs
- Track crawl depth
- Prevent infinite traversal
- Knows nothing about:
	- fetching
	- extraction
	- markdown
	- storage

It is a data structure + policy module, not a pipeline executor.
*/

// CrawlingPolicy is the BFS frontier: a set of per-depth FIFO queues plus a
// canonicalized-URL visited set. Submit is the only place a URL is claimed
// against the visited set and against the page-count budget; Dequeue only
// ever drains queues that Submit has already admitted into.
type CrawlingPolicy struct {
	mu sync.Mutex

	cfg config.Config

	queuesByDepth map[int]*FIFOQueue[CrawlToken]
	visited       Set[string]
	minDepth      int // -1 when empty
	queuedCount   int // tokens currently sitting in queuesByDepth, for MaxQueueSize enforcement

	log *dlog.Logger
}

// Frontier is the scheduler-facing contract CrawlingPolicy implements, so the
// scheduler can depend on an interface instead of the concrete BFS queue.
type Frontier interface {
	Init(cfg config.Config)
	Submit(candidate CrawlAdmissionCandidate)
	Dequeue() (CrawlToken, bool)
	VisitedCount() int
}

var _ Frontier = (*CrawlingPolicy)(nil)

// NewCrawlFrontier constructs an empty frontier. Init must be called before use.
func NewCrawlFrontier() *CrawlingPolicy {
	return &CrawlingPolicy{
		queuesByDepth: make(map[int]*FIFOQueue[CrawlToken]),
		visited:       NewSet[string](),
		minDepth:      -1,
		log:           dlog.New(),
	}
}

// Init binds the frontier to a crawl configuration (depth/page budgets).
func (f *CrawlingPolicy) Init(cfg config.Config) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cfg = cfg
}

// Submit admits a previously-approved candidate into the frontier. It is the
// single serialization point for URL deduplication: a URL already present in
// the visited set, beyond MaxDepth, or past MaxPages is silently dropped.
func (f *CrawlingPolicy) Submit(candidate CrawlAdmissionCandidate) {
	f.mu.Lock()
	defer f.mu.Unlock()

	canonical := urlutil.Canonicalize(candidate.TargetURL())
	key := canonical.String()

	if f.visited.Contains(key) {
		return
	}

	depth := candidate.DiscoveryMetadata().Depth()
	if maxDepth := f.cfg.MaxDepth(); maxDepth > 0 && depth > maxDepth {
		return
	}
	if maxPages := f.cfg.MaxPages(); maxPages > 0 && f.visited.Size() >= maxPages {
		return
	}
	if maxQueueSize := f.cfg.MaxQueueSize(); maxQueueSize > 0 && f.queuedCount >= maxQueueSize {
		f.log.With("url", key, "depth", depth, "max_queue_size", maxQueueSize).Info("dropping candidate: queue full")
		return
	}

	f.visited.Add(key)

	queue, ok := f.queuesByDepth[depth]
	if !ok {
		queue = NewFIFOQueue[CrawlToken]()
		f.queuesByDepth[depth] = queue
	}
	queue.Enqueue(NewCrawlToken(candidate.TargetURL(), depth))
	f.queuedCount++

	if f.minDepth == -1 || depth < f.minDepth {
		f.minDepth = depth
	}
}

// Dequeue returns the next token in strict BFS order: every token at the
// current minimum depth is exhausted before any token at a deeper level is
// returned. It returns false once the frontier has no pending tokens.
func (f *CrawlingPolicy) Dequeue() (CrawlToken, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for {
		if f.minDepth == -1 {
			return CrawlToken{}, false
		}
		queue, ok := f.queuesByDepth[f.minDepth]
		if !ok || queue.Size() == 0 {
			f.minDepth = f.nextNonEmptyDepthLocked(f.minDepth + 1)
			continue
		}
		token, ok := queue.Dequeue()
		if !ok {
			f.minDepth = f.nextNonEmptyDepthLocked(f.minDepth + 1)
			continue
		}
		f.queuedCount--
		if queue.Size() == 0 {
			f.minDepth = f.nextNonEmptyDepthLocked(f.minDepth + 1)
		}
		return token, true
	}
}

func (f *CrawlingPolicy) nextNonEmptyDepthLocked(from int) int {
	best := -1
	for depth, queue := range f.queuesByDepth {
		if depth < from || queue.Size() == 0 {
			continue
		}
		if best == -1 || depth < best {
			best = depth
		}
	}
	return best
}

// IsDepthExhausted reports whether no pending tokens remain at the given
// depth. Negative depths are always exhausted.
func (f *CrawlingPolicy) IsDepthExhausted(depth int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if depth < 0 {
		return true
	}
	queue, ok := f.queuesByDepth[depth]
	return !ok || queue.Size() == 0
}

// CurrentMinDepth returns the shallowest depth with pending tokens, or -1 if
// the frontier is empty.
func (f *CrawlingPolicy) CurrentMinDepth() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.minDepth
}

// VisitedCount returns the number of unique canonicalized URLs ever admitted
// by Submit. It never decreases.
func (f *CrawlingPolicy) VisitedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.visited.Size()
}
