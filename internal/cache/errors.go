package cache

import (
	"fmt"

	"github.com/rohmanhakim/docs-crawler/internal/metadata"
	"github.com/rohmanhakim/docs-crawler/pkg/failure"
)

type CacheErrorCause string

const (
	ErrCauseWriteFailure CacheErrorCause = "write failure"
	ErrCauseReadFailure  CacheErrorCause = "read failure"
	ErrCauseCorruptEntry CacheErrorCause = "corrupt entry"
)

type CacheError struct {
	Message   string
	Retryable bool
	Cause     CacheErrorCause
}

func (e *CacheError) Error() string {
	return fmt.Sprintf("cache error: %s", e.Cause)
}

func (e *CacheError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

// mapCacheErrorToMetadataCause maps cache-local error semantics to the
// canonical metadata.ErrorCause table.
//
// This mapping is observational only and MUST NOT be used to derive
// control-flow decisions.
func mapCacheErrorToMetadataCause(err *CacheError) metadata.ErrorCause {
	switch err.Cause {
	case ErrCauseWriteFailure, ErrCauseReadFailure:
		return metadata.CauseUnknown
	case ErrCauseCorruptEntry:
		return metadata.CauseContentInvalid
	default:
		return metadata.CauseUnknown
	}
}
