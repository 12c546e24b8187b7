package scheduler

import (
	"context"
	"net/url"

	"github.com/rohmanhakim/docs-crawler/internal/config"
	"github.com/rohmanhakim/docs-crawler/internal/frontier"
	"github.com/rohmanhakim/docs-crawler/internal/normalize"
	"github.com/rohmanhakim/docs-crawler/internal/storage"
	"github.com/rohmanhakim/docs-crawler/pkg/failure"
)

type CrawlingExecution struct {
	writeResults []storage.WriteResult
}

// WriteResults returns the storage write results produced by the crawl.
func (e CrawlingExecution) WriteResults() []storage.WriteResult {
	return e.writeResults
}

// CrawlInitialization is the state produced by InitializeCrawling and consumed
// by ExecuteCrawlingWithState. It carries the resolved config and seed context
// across the init/execute split so the two phases can be timed independently.
//
// The per-run components that only make sense once cfg has been resolved
// (budget tracker, cache, dedup, incremental store, filter, visited set) live
// on the Scheduler itself rather than here, since every place that reads them
// — ExecuteCrawlingWithState, drainBatch, processToken — already holds a
// Scheduler receiver and never the CrawlInitialization in isolation.
type CrawlInitialization struct {
	cfg                 config.Config
	currentHost         string
	seedScheme          string
	initialDelayApplied bool
	cancel              context.CancelFunc
	runID               string
}

// CurrentHost returns the host resolved from the first seed URL.
func (i *CrawlInitialization) CurrentHost() string { return i.currentHost }

// SeedScheme returns the URL scheme of the first seed URL.
func (i *CrawlInitialization) SeedScheme() string { return i.seedScheme }

// InitialDelayApplied reports whether the post-admission rate limit delay ran.
func (i *CrawlInitialization) InitialDelayApplied() bool { return i.initialDelayApplied }

// PipelineOutcome is what one worker reports back to the dispatcher after
// running a single claimed token through fetch/extract/convert/normalize.
// The dispatcher is the only goroutine that ever touches the frontier or
// storageSink, so every discovered link and every page ready to write
// travels back through here instead of being submitted or written directly
// from the worker goroutine. Seq is the token's dispatch order; the
// dispatcher buffers outcomes arriving out of order and only acts on them
// once every lower Seq has already been processed, so writeResults ends up
// ordered by dispatch order even though workers race to finish first.
type PipelineOutcome struct {
	Seq int

	// Abort means a stage reported a fatal ClassifiedError; FatalErr is
	// that error and the dispatcher must stop the whole crawl once it
	// processes this outcome in sequence order.
	Abort    bool
	FatalErr failure.ClassifiedError

	// ErrorCount is how many recoverable stage errors this token's
	// pipeline accumulated, mirroring the sequential loop's per-step
	// totalErrors++ accounting.
	ErrorCount int

	Token          frontier.CrawlToken
	DiscoveredURLs []url.URL
	Normalized     normalize.NormalizedMarkdownDoc
	ReadyToWrite   bool
	AssetCount     int
}
