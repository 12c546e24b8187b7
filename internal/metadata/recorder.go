package metadata

import (
	"sync"
	"time"

	"github.com/rohmanhakim/dlog"
)

/*
Metadata Collected
- Fetch timestamps
- HTTP status codes
- Content hashes
- Crawl depth

Logging Goals
- Debuggable crawl behavior
- Post-run auditability
- Failure diagnostics

Structured logging is preferred.

Allowed:
- Primitive values
- Timestamps
- URLs (as values, not objects with behavior)
- Hashes
- Status codes
- Durations
- Identifiers (page ID, crawl ID)
*/

// Recorder is the concrete MetadataSink/CrawlFinalizer backing every
// pipeline package. It emits structured log lines through dlog and keeps a
// terminal crawlStats value for the final summary; it never feeds back into
// scheduling decisions.
type Recorder struct {
	log *dlog.Logger

	mu    sync.Mutex
	stats crawlStats
}

func NewRecorder(log *dlog.Logger) *Recorder {
	if log == nil {
		log = dlog.New()
	}
	return &Recorder{log: log}
}

func (r *Recorder) RecordFetch(fetchURL string, httpStatus int, duration time.Duration, contentType string, retryCount int, crawlDepth int) {
	r.log.With(
		"url", fetchURL,
		"http_status", httpStatus,
		"duration_ms", duration.Milliseconds(),
		"content_type", contentType,
		"retry_count", retryCount,
		"depth", crawlDepth,
	).Info("fetch completed")
}

func (r *Recorder) RecordAssetFetch(assetURL string, httpStatus int, duration time.Duration, retryCount int) {
	r.mu.Lock()
	r.stats.totalAssets++
	r.mu.Unlock()

	r.log.With(
		"asset_url", assetURL,
		"http_status", httpStatus,
		"duration_ms", duration.Milliseconds(),
		"retry_count", retryCount,
	).Info("asset fetch completed")
}

func (r *Recorder) RecordError(observedAt time.Time, packageName string, action string, cause ErrorCause, message string, attrs []Attribute) {
	r.mu.Lock()
	r.stats.totalErrors++
	r.mu.Unlock()

	fields := make([]any, 0, 8+len(attrs)*2)
	fields = append(fields,
		"observed_at", observedAt,
		"package", packageName,
		"action", action,
		"cause", cause,
		"message", message,
	)
	for _, a := range attrs {
		fields = append(fields, string(a.Key), a.Value)
	}
	r.log.With(fields...).Error("pipeline error")
}

func (r *Recorder) RecordArtifact(kind ArtifactKind, path string, attrs []Attribute) {
	fields := make([]any, 0, 4+len(attrs)*2)
	fields = append(fields, "artifact_kind", kind, "path", path)
	for _, a := range attrs {
		fields = append(fields, string(a.Key), a.Value)
	}
	r.log.With(fields...).Info("artifact written")
}

func (r *Recorder) RecordFinalCrawlStats(totalPages int, totalErrors int, totalAssets int, duration time.Duration) {
	r.mu.Lock()
	r.stats.totalPages = totalPages
	r.stats.totalErrors = totalErrors
	if totalAssets > r.stats.totalAssets {
		r.stats.totalAssets = totalAssets
	}
	r.stats.durationMs = duration.Milliseconds()
	stats := r.stats
	r.mu.Unlock()

	r.log.With(
		"total_pages", stats.totalPages,
		"total_errors", stats.totalErrors,
		"total_assets", stats.totalAssets,
		"duration_ms", stats.durationMs,
	).Info("crawl finished")
}

// Stats returns the terminal crawl summary recorded by RecordFinalCrawlStats.
func (r *Recorder) Stats() crawlStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}
