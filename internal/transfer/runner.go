package transfer

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"colorwerkz/internal/method"
)

// Runner executes packed batches. Batches run strictly in order so resource
// usage never spans two batches; jobs within a batch run concurrently.
type Runner struct {
	invoker Invoker
}

// NewRunner creates a runner on top of a worker invoker.
func NewRunner(invoker Invoker) *Runner {
	return &Runner{invoker: invoker}
}

// Run invokes every job and returns one Result per job, in original
// submission order regardless of completion order. A failing invocation
// never cancels or affects its siblings: the invoker converts every failure
// into a failure Result, so the group carries no errors and no cancellation.
func (r *Runner) Run(ctx context.Context, profile *method.Profile, jobs []Job, batches []Batch) []Result {
	results := make([]Result, len(jobs))

	for i, batch := range batches {
		slog.InfoContext(ctx, "Running batch",
			"batch", i+1,
			"batches", len(batches),
			"jobs", len(batch.Items),
			"estimatedMB", batch.CostMB,
		)

		var g errgroup.Group
		for _, item := range batch.Items {
			g.Go(func() error {
				results[item.Index] = r.invoker.Invoke(ctx, profile, item.Job)
				return nil
			})
		}
		// Wait for every job to settle before the next batch starts.
		_ = g.Wait()
	}

	return results
}
