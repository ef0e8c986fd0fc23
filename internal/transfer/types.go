// Package transfer contains the core orchestration for color-transfer jobs:
// batch packing, concurrent execution, result aggregation, and the failure
// taxonomy. The color-transfer math itself lives in external workers.
package transfer

import (
	"context"
	"time"

	"colorwerkz/internal/method"
)

// Job is one unit of requested work: one source image, one method, two RAL
// color targets. Immutable once submitted; yields exactly one Result.
type Job struct {
	ID          string     `json:"id"`
	SourceImage string     `json:"sourceImage"`
	FrameColor  string     `json:"frameColor"`
	DrawerColor string     `json:"drawerColor"`
	InputBytes  int64      `json:"inputBytes,omitempty"` // Size of the materialized source image
	Options     JobOptions `json:"options,omitzero"`
}

// JobOptions are optional per-job overrides.
type JobOptions struct {
	Timeout        time.Duration `json:"timeout,omitempty"`        // 0 means profile default
	OutputPath     string        `json:"outputPath,omitempty"`     // Derived from job ID when empty
	OutputFormat   string        `json:"outputFormat,omitempty"`   // e.g. "png", worker-interpreted
	ModelPath      string        `json:"modelPath,omitempty"`      // Checkpoint override, worker-interpreted
	ReadyThreshold float64       `json:"readyThreshold,omitempty"` // 0 means profile threshold
}

// Classification is the closed failure taxonomy. Every value is Job-scoped,
// terminal, and mutually exclusive with success.
//
// Per-job lifecycle: submitted -> dispatched -> (success | timeout |
// execution_failed | malformed_output | spawn_failed). unknown_method is a
// pre-flight error raised to the caller before any invocation begins.
type Classification string

const (
	ClassUnknownMethod       Classification = "unknown_method"
	ClassSpawnFailed         Classification = "spawn_failed"
	ClassTimeout             Classification = "timeout"
	ClassOutputLimitExceeded Classification = "output_limit_exceeded"
	ClassExecutionFailed     Classification = "execution_failed"
	ClassMalformedOutput     Classification = "malformed_output"
)

// Failure describes why an invocation failed.
type Failure struct {
	Classification Classification `json:"classification"`
	Detail         string         `json:"detail,omitempty"`   // Human-readable, stderr tail for execution failures
	ExitCode       int            `json:"exitCode,omitempty"` // Only for execution_failed
	Timeout        time.Duration  `json:"timeout,omitempty"`  // Configured deadline, only for timeout
}

// Result is the single outcome of one Job. Success and Failure are mutually
// exclusive: a successful Result has an output reference and no Failure, a
// failed Result has a Failure and no output. DeltaE is only meaningful on
// success.
type Result struct {
	JobID   string        `json:"jobId"`
	Method  string        `json:"method"` // Canonical name, never the requested alias
	Success bool          `json:"success"`
	Elapsed time.Duration `json:"elapsed"`

	DeltaE             float64 `json:"deltaE,omitempty"`
	DeltaEFrame        float64 `json:"deltaEFrame,omitempty"`
	DeltaEDrawer       float64 `json:"deltaEDrawer,omitempty"`
	ManufacturingReady bool    `json:"manufacturingReady"`
	OutputImage        string  `json:"outputImage,omitempty"`
	Width              int     `json:"width,omitempty"`
	Height             int     `json:"height,omitempty"`
	Accuracy           string  `json:"accuracy,omitempty"`
	Warning            string  `json:"warning,omitempty"`

	Failure *Failure `json:"failure,omitempty"`
}

// BatchItem ties a Job to its original submission index and estimated cost.
// The index is what lets the runner emit results in submission order.
type BatchItem struct {
	Index  int
	Job    Job
	CostMB float64
}

// Batch is an ephemeral group of jobs that run concurrently because their
// combined estimated memory cost fits the budget.
type Batch struct {
	Items  []BatchItem
	CostMB float64
}

// BatchSummary aggregates an ordered Result list.
type BatchSummary struct {
	Total              int           `json:"total"`
	Succeeded          int           `json:"succeeded"`
	Failed             int           `json:"failed"`
	MeanDeltaE         *float64      `json:"meanDeltaE,omitempty"` // nil when there are no successes
	ManufacturingReady int           `json:"manufacturingReady"`
	TotalElapsed       time.Duration `json:"totalElapsed"`
}

// Invoker runs one worker invocation per Job. Implementations must be safe
// for concurrent use and must not share mutable state across invocations
// beyond read-only configuration. Invoke never returns an error: every
// outcome, including every failure mode, is expressed as a Result.
type Invoker interface {
	Invoke(ctx context.Context, profile *method.Profile, job Job) Result
}

// NewFailure builds a failed Result for the given job and profile.
func NewFailure(job Job, profile *method.Profile, elapsed time.Duration, f Failure) Result {
	return Result{
		JobID:   job.ID,
		Method:  profile.Name,
		Success: false,
		Elapsed: elapsed,
		Failure: &f,
	}
}
