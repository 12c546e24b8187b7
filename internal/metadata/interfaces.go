package metadata

import "time"

/*
MetadataSink is the write side of the observability model: every pipeline
package (fetcher, sanitizer, extractor, storage, assets, robots) reports
through it, and it never reports back into control flow. A sink
implementation must not return errors that callers act on beyond logging,
because RecordX calls are a side channel, not a decision point.
*/
type MetadataSink interface {
	// RecordFetch reports the outcome of a page fetch.
	RecordFetch(fetchURL string, httpStatus int, duration time.Duration, contentType string, retryCount int, crawlDepth int)
	// RecordAssetFetch reports the outcome of a non-HTML asset download.
	RecordAssetFetch(assetURL string, httpStatus int, duration time.Duration, retryCount int)
	// RecordError reports a classified, package-local error for diagnostics.
	RecordError(observedAt time.Time, packageName string, action string, cause ErrorCause, message string, attrs []Attribute)
	// RecordArtifact reports a successfully persisted output.
	RecordArtifact(kind ArtifactKind, path string, attrs []Attribute)
}

// CrawlFinalizer is invoked exactly once, after crawl termination, to record
// the terminal summary. It must be computed without reading prior metadata.
type CrawlFinalizer interface {
	RecordFinalCrawlStats(totalPages int, totalErrors int, totalAssets int, duration time.Duration)
}
