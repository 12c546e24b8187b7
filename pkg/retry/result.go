package retry

import "github.com/rohmanhakim/docs-crawler/pkg/failure"

// Result is the outcome of a Retry invocation: either a value with the
// number of attempts taken, or a terminal ClassifiedError.
type Result[T any] struct {
	value    T
	err      failure.ClassifiedError
	attempts int
}

func NewSuccessResult[T any](value T, attempts int) Result[T] {
	return Result[T]{value: value, attempts: attempts}
}

func (r Result[T]) Value() T {
	return r.value
}

func (r Result[T]) Err() failure.ClassifiedError {
	return r.err
}

func (r Result[T]) Attempts() int {
	return r.attempts
}

func (r Result[T]) Ok() bool {
	return r.err == nil
}
