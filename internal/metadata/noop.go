package metadata

import "time"

// NoopSink is a MetadataSink that discards everything it is given. It exists
// for callers that need a sink but have no observability backend wired up yet
// (unit tests, one-off tooling), and is safe to embed so a test spy only has
// to override the methods it cares about.
type NoopSink struct{}

func (NoopSink) RecordFetch(fetchURL string, httpStatus int, duration time.Duration, contentType string, retryCount int, crawlDepth int) {
}

func (NoopSink) RecordAssetFetch(assetURL string, httpStatus int, duration time.Duration, retryCount int) {
}

func (NoopSink) RecordError(observedAt time.Time, packageName string, action string, cause ErrorCause, message string, attrs []Attribute) {
}

func (NoopSink) RecordArtifact(kind ArtifactKind, path string, attrs []Attribute) {}

var _ MetadataSink = (*NoopSink)(nil)
var _ MetadataSink = NoopSink{}
