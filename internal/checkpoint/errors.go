package checkpoint

import (
	"fmt"

	"github.com/rohmanhakim/docs-crawler/pkg/failure"
)

type CheckpointErrorCause string

const (
	ErrCauseEncodeFailure CheckpointErrorCause = "encode failure"
	ErrCauseDecodeFailure CheckpointErrorCause = "decode failure"
	ErrCauseWriteFailure  CheckpointErrorCause = "write failure"
	ErrCauseReadFailure   CheckpointErrorCause = "read failure"
)

type CheckpointError struct {
	Message   string
	Retryable bool
	Cause     CheckpointErrorCause
}

func (e *CheckpointError) Error() string {
	return fmt.Sprintf("checkpoint error: %s: %s", e.Cause, e.Message)
}

func (e *CheckpointError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}
