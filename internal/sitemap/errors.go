package sitemap

import (
	"fmt"

	"github.com/rohmanhakim/docs-crawler/internal/metadata"
	"github.com/rohmanhakim/docs-crawler/pkg/failure"
)

type SitemapErrorCause string

const (
	ErrCauseFetchFailure SitemapErrorCause = "fetch failure"
	ErrCauseParseFailure SitemapErrorCause = "parse failure"
)

type SitemapError struct {
	Message   string
	Retryable bool
	Cause     SitemapErrorCause
}

func (e *SitemapError) Error() string {
	return fmt.Sprintf("sitemap error: %s", e.Cause)
}

func (e *SitemapError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

// mapSitemapErrorToMetadataCause maps sitemap-local error semantics to the
// canonical metadata.ErrorCause table.
//
// This mapping is observational only and MUST NOT be used to derive
// control-flow decisions.
func mapSitemapErrorToMetadataCause(err *SitemapError) metadata.ErrorCause {
	switch err.Cause {
	case ErrCauseFetchFailure:
		return metadata.CauseNetworkFailure
	case ErrCauseParseFailure:
		return metadata.CauseContentInvalid
	default:
		return metadata.CauseUnknown
	}
}
