// Package worker invokes external color-transfer workers. Workers are
// opaque executables: one process per invocation, parameters passed as a
// single JSON argument, results read back as JSON on stdout. The orchestrator
// never inspects their math, only their exit status and declared output.
package worker

import (
	"encoding/json"
	"fmt"
	"time"

	"colorwerkz/internal/method"
	"colorwerkz/internal/transfer"
)

// MaxStderrTail bounds the diagnostic text carried in execution failures.
const MaxStderrTail = 2048

// workerArgs is the message passed to a worker as `--args <json>`.
// Parameters never travel through a shell or an interpolated command line.
type workerArgs struct {
	SourceImage  string `json:"source_image"`
	FrameColor   string `json:"frame_color"`
	DrawerColor  string `json:"drawer_color"`
	OutputPath   string `json:"output_path"`
	ModelPath    string `json:"model_path,omitempty"`
	OutputFormat string `json:"output_format,omitempty"`
}

// EncodeArgs builds the worker message for a job.
func EncodeArgs(job transfer.Job) []byte {
	payload, err := json.Marshal(workerArgs{
		SourceImage:  job.SourceImage,
		FrameColor:   job.FrameColor,
		DrawerColor:  job.DrawerColor,
		OutputPath:   job.Options.OutputPath,
		ModelPath:    job.Options.ModelPath,
		OutputFormat: job.Options.OutputFormat,
	})
	if err != nil {
		// Marshaling a struct of strings cannot fail.
		panic(err)
	}
	return payload
}

// workerOutput is the structured result a worker prints on stdout on exit 0.
// delta_e and output_image are required; the rest is optional metadata.
type workerOutput struct {
	OutputImage    string   `json:"output_image"`
	DeltaE         *float64 `json:"delta_e"`
	DeltaEFrame    float64  `json:"delta_e_frame"`
	DeltaEDrawer   float64  `json:"delta_e_drawer"`
	ProcessingTime float64  `json:"processing_time"`
	ImageSize      []int    `json:"image_size"` // [height, width]
	ColorAccuracy  string   `json:"color_accuracy"`
	Warning        string   `json:"warning"`
}

// parseOutput decodes and validates a worker's stdout. Any violation of the
// protocol (including a version mismatch) surfaces as a parse error, which
// the invoker classifies as malformed_output.
func parseOutput(data []byte) (*workerOutput, error) {
	var out workerOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if out.DeltaE == nil {
		return nil, fmt.Errorf("missing required field delta_e")
	}
	if *out.DeltaE < 0 {
		return nil, fmt.Errorf("delta_e must be non-negative, got %v", *out.DeltaE)
	}
	if out.OutputImage == "" {
		return nil, fmt.Errorf("missing required field output_image")
	}
	return &out, nil
}

// ResultFromOutput parses a worker's stdout after a clean exit and builds the
// Result. Unparseable output becomes a malformed_output failure.
// manufacturing_ready is recomputed from the effective threshold rather than
// trusted from the worker: a run with poor color accuracy is still a success,
// just not production-ready.
func ResultFromOutput(job transfer.Job, profile *method.Profile, stdout []byte, elapsed time.Duration) transfer.Result {
	out, err := parseOutput(stdout)
	if err != nil {
		return transfer.NewFailure(job, profile, elapsed, transfer.Failure{
			Classification: transfer.ClassMalformedOutput,
			Detail:         err.Error(),
		})
	}

	threshold := job.Options.ReadyThreshold
	if threshold <= 0 {
		threshold = profile.ReadyThreshold
	}

	res := transfer.Result{
		JobID:              job.ID,
		Method:             profile.Name, // canonical, never the requested alias
		Success:            true,
		Elapsed:            elapsed,
		DeltaE:             *out.DeltaE,
		DeltaEFrame:        out.DeltaEFrame,
		DeltaEDrawer:       out.DeltaEDrawer,
		ManufacturingReady: *out.DeltaE < threshold,
		OutputImage:        out.OutputImage,
		Accuracy:           out.ColorAccuracy,
		Warning:            out.Warning,
	}
	if len(out.ImageSize) == 2 {
		res.Height, res.Width = out.ImageSize[0], out.ImageSize[1]
	}
	return res
}

// Spawn builds the spawn_failed Result for a worker that could not start.
func Spawn(job transfer.Job, profile *method.Profile, elapsed time.Duration, err error) transfer.Result {
	return transfer.NewFailure(job, profile, elapsed, transfer.Failure{
		Classification: transfer.ClassSpawnFailed,
		Detail:         err.Error(),
	})
}

// Tail returns the last max bytes of b as a string, for bounded diagnostics.
func Tail(b []byte, max int) string {
	if len(b) <= max {
		return string(b)
	}
	return string(b[len(b)-max:])
}
