package transfer

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"colorwerkz/internal/apperrors"
	"colorwerkz/internal/method"
	"colorwerkz/internal/observability"
)

// Validation limits
const (
	maxJobIDLength = 128
	maxTimeout     = 24 * time.Hour
	maxBatchJobs   = 256
)

// Service orchestrates transfers: method resolution, batch packing,
// concurrent execution, and aggregation. Stateless across requests; all
// configuration is immutable after construction.
type Service struct {
	router    *method.Router
	runner    *Runner
	invoker   Invoker
	estimator Estimator
	budgetMB  float64
	outputDir string
	metrics   *observability.Metrics
}

// Config holds dependencies for the transfer service.
type Config struct {
	Router         *method.Router
	Invoker        Invoker
	BudgetMB       int                    // Accelerator memory ceiling for one batch
	CostMultiplier float64                // Overhead multiplier for the cost estimator
	OutputDir      string                 // Default location for output images
	Metrics        *observability.Metrics // Optional
}

// NewService creates a new transfer service.
func NewService(cfg Config) *Service {
	return &Service{
		router:    cfg.Router,
		runner:    NewRunner(cfg.Invoker),
		invoker:   cfg.Invoker,
		estimator: Estimator{Multiplier: cfg.CostMultiplier},
		budgetMB:  float64(cfg.BudgetMB),
		outputDir: cfg.OutputDir,
		metrics:   cfg.Metrics,
	}
}

// Transfer runs a single job under the requested method and returns its
// Result. Only an unresolvable method name is returned as an error; every
// runtime failure is a failure Result.
func (s *Service) Transfer(ctx context.Context, methodName string, job Job) (*Result, error) {
	profile, err := s.router.Resolve(methodName)
	if err != nil {
		return nil, err
	}
	if err := validateJob(&job, ""); err != nil {
		return nil, err
	}
	s.applyDefaults(&job, profile)

	logger := slog.With("jobId", job.ID, "method", profile.Name)
	logger.Info("Transfer dispatched")

	s.recordStarted(ctx, profile.Name)
	result := s.invoker.Invoke(ctx, profile, job)
	s.recordCompleted(ctx, result)

	if result.Success {
		logger.Info("Transfer completed", "deltaE", result.DeltaE, "elapsed", result.Elapsed)
	} else {
		logger.Warn("Transfer failed",
			"classification", result.Failure.Classification,
			"detail", result.Failure.Detail,
			"elapsed", result.Elapsed,
		)
	}
	return &result, nil
}

// BatchResult is the outcome of a batch submission: the summary, the full
// Result list in submission order, and how many batches were used.
type BatchResult struct {
	Summary BatchSummary `json:"summary"`
	Results []Result     `json:"results"`
	Batches int          `json:"batches"`
}

// TransferBatch runs many jobs under one method. Jobs are packed into
// memory-budgeted batches, batches run sequentially, jobs within a batch
// run concurrently. One job's failure never aborts siblings or later
// batches; results preserve submission order.
func (s *Service) TransferBatch(ctx context.Context, methodName string, jobs []Job) (*BatchResult, error) {
	profile, err := s.router.Resolve(methodName)
	if err != nil {
		return nil, err
	}
	if len(jobs) == 0 {
		return nil, apperrors.Validation("jobs", "at least one job is required")
	}
	if len(jobs) > maxBatchJobs {
		return nil, apperrors.Validation("jobs", fmt.Sprintf("batch exceeds maximum of %d jobs", maxBatchJobs))
	}
	for i := range jobs {
		if err := validateJob(&jobs[i], fmt.Sprintf("jobs[%d].", i)); err != nil {
			return nil, err
		}
		s.applyDefaults(&jobs[i], profile)
	}

	batches := Pack(jobs, s.budgetMB, s.estimator)
	s.recordPacked(ctx, profile.Name, batches)

	slog.InfoContext(ctx, "Batch transfer dispatched",
		"method", profile.Name,
		"jobs", len(jobs),
		"batches", len(batches),
		"budgetMB", s.budgetMB,
	)

	for range jobs {
		s.recordStarted(ctx, profile.Name)
	}
	results := s.runner.Run(ctx, profile, jobs, batches)
	for _, res := range results {
		s.recordCompleted(ctx, res)
	}

	summary := Summarize(results)
	slog.InfoContext(ctx, "Batch transfer settled",
		"method", profile.Name,
		"succeeded", summary.Succeeded,
		"failed", summary.Failed,
		"elapsed", summary.TotalElapsed,
	)

	return &BatchResult{
		Summary: summary,
		Results: results,
		Batches: len(batches),
	}, nil
}

// applyDefaults fills unset job fields from the profile and service config.
func (s *Service) applyDefaults(job *Job, profile *method.Profile) {
	if job.Options.Timeout <= 0 {
		job.Options.Timeout = profile.DefaultTimeout
	}
	if job.Options.ReadyThreshold <= 0 {
		job.Options.ReadyThreshold = profile.ReadyThreshold
	}
	if job.Options.OutputPath == "" {
		format := job.Options.OutputFormat
		if format == "" {
			format = "png"
		}
		job.Options.OutputPath = filepath.Join(s.outputDir, job.ID+"."+format)
	}
}

// validateJob validates one job descriptor. Does not modify the job.
func validateJob(job *Job, fieldPrefix string) error {
	if job.ID == "" {
		return apperrors.Validation(fieldPrefix+"id", "job ID is required")
	}
	if len(job.ID) > maxJobIDLength {
		return apperrors.Validation(fieldPrefix+"id", fmt.Sprintf("job ID exceeds maximum length of %d", maxJobIDLength))
	}
	if job.SourceImage == "" {
		return apperrors.Validation(fieldPrefix+"sourceImage", "source image is required")
	}
	if job.FrameColor == "" {
		return apperrors.Validation(fieldPrefix+"frameColor", "frame color is required")
	}
	if job.DrawerColor == "" {
		return apperrors.Validation(fieldPrefix+"drawerColor", "drawer color is required")
	}
	if job.Options.Timeout < 0 {
		return apperrors.Validation(fieldPrefix+"timeout", "timeout cannot be negative")
	}
	if job.Options.Timeout > maxTimeout {
		return apperrors.Validation(fieldPrefix+"timeout", fmt.Sprintf("timeout exceeds maximum of %s", maxTimeout))
	}
	if job.Options.ReadyThreshold < 0 {
		return apperrors.Validation(fieldPrefix+"readyThreshold", "ready threshold cannot be negative")
	}
	return nil
}

func (s *Service) recordStarted(ctx context.Context, methodName string) {
	if s.metrics != nil {
		s.metrics.RecordTransferStarted(ctx, methodName)
	}
}

func (s *Service) recordCompleted(ctx context.Context, res Result) {
	if s.metrics == nil {
		return
	}
	classification := ""
	if res.Failure != nil {
		classification = string(res.Failure.Classification)
	}
	s.metrics.RecordTransferCompleted(ctx, res.Method, res.Success, classification, res.DeltaE, res.Elapsed.Seconds())
}

func (s *Service) recordPacked(ctx context.Context, methodName string, batches []Batch) {
	if s.metrics == nil {
		return
	}
	sizes := make([]int, len(batches))
	for i, b := range batches {
		sizes[i] = len(b.Items)
	}
	s.metrics.RecordBatchesPacked(ctx, methodName, len(batches), sizes)
}
