package pipeline

import (
	"time"

	"github.com/rohmanhakim/docs-crawler/internal/artifact"
	"github.com/rohmanhakim/docs-crawler/internal/metadata"
)

/*
Responsibilities (§4.11)

- Run an ordered list of stages over each sealed artifact
- Snapshot current before every stage; on stage panic/error, revert to
  the snapshot and continue with the next stage
- Stop the chain early if a stage reports "drop" (nil replacement)
- Report every stage failure through the metadata sink (observational
  only — a failing stage never aborts the crawl)

Pipeline knows nothing about fetching or extraction; it only sequences
stages over whatever artifact the scheduler hands it.
*/

// Result is what a Stage returns: Artifact replaces current when non-nil;
// a nil Artifact with Drop=true stops the chain for this artifact.
type Result struct {
	Artifact *artifact.PageArtifact
	Drop     bool
}

// Stage transforms an artifact. Returning an error is equivalent to the
// stage having thrown in §4.11: the runner logs it and reverts to the
// pre-stage snapshot.
type Stage interface {
	Name() string
	Process(a *artifact.PageArtifact) (Result, error)
}

// StageFunc adapts a plain function to the Stage interface.
type StageFunc struct {
	StageName string
	Fn        func(a *artifact.PageArtifact) (Result, error)
}

func (f StageFunc) Name() string { return f.StageName }

func (f StageFunc) Process(a *artifact.PageArtifact) (Result, error) {
	return f.Fn(a)
}

// Runner applies an ordered stage chain to each artifact.
type Runner struct {
	stages []Stage
	sink   metadata.MetadataSink
}

// New constructs a Runner over stages, reporting stage failures to sink.
// sink may be nil in tests.
func New(stages []Stage, sink metadata.MetadataSink) *Runner {
	return &Runner{stages: stages, sink: sink}
}

// Run applies every stage in order to current, per §4.11:
//   - a defensive snapshot of current is taken before each stage runs
//   - a stage error reverts to that snapshot and the chain continues
//   - a stage reporting Drop stops the chain; the artifact as of the
//     last successful stage is returned
func (r *Runner) Run(current *artifact.PageArtifact) *artifact.PageArtifact {
	for _, stage := range r.stages {
		snapshot := current.Clone()

		result, err := r.safeProcess(stage, current)
		if err != nil {
			r.recordStageError(stage.Name(), err)
			current = snapshot
			continue
		}

		if result.Drop {
			return current
		}
		if result.Artifact != nil {
			current = result.Artifact
		}
	}
	return current
}

// safeProcess recovers a panicking stage the same way it recovers an
// error-returning one: a stage may be third-party plugin code and must
// not be allowed to take the whole worker down.
func (r *Runner) safeProcess(stage Stage, current *artifact.PageArtifact) (result Result, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = &PipelineError{
				Message:   panicMessage(rec),
				Retryable: false,
				Cause:     ErrCauseStagePanic,
			}
		}
	}()
	return stage.Process(current)
}

func (r *Runner) recordStageError(stageName string, err error) {
	if r.sink == nil {
		return
	}
	r.sink.RecordError(time.Now(), "pipeline", stageName, metadata.CauseUnknown, err.Error(), []metadata.Attribute{
		metadata.NewAttr(metadata.AttrField, stageName),
	})
}

func panicMessage(rec any) string {
	if err, ok := rec.(error); ok {
		return err.Error()
	}
	return "stage panicked"
}
