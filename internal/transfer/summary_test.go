package transfer

import (
	"testing"
	"time"
)

func TestSummarize(t *testing.T) {
	t.Parallel()

	results := []Result{
		{JobID: "a", Success: true, DeltaE: 1.0, ManufacturingReady: true, Elapsed: time.Second},
		{JobID: "b", Success: true, DeltaE: 2.0, Elapsed: 2 * time.Second},
		{JobID: "c", Success: true, DeltaE: 3.0, Elapsed: time.Second},
		{JobID: "d", Success: false, Elapsed: 500 * time.Millisecond, Failure: &Failure{Classification: ClassTimeout}},
		{JobID: "e", Success: false, Elapsed: 500 * time.Millisecond, Failure: &Failure{Classification: ClassSpawnFailed}},
	}

	summary := Summarize(results)

	if summary.Total != 5 {
		t.Errorf("Total = %d, want 5", summary.Total)
	}
	if summary.Succeeded != 3 {
		t.Errorf("Succeeded = %d, want 3", summary.Succeeded)
	}
	if summary.Failed != 2 {
		t.Errorf("Failed = %d, want 2", summary.Failed)
	}
	if summary.MeanDeltaE == nil || *summary.MeanDeltaE != 2.0 {
		t.Errorf("MeanDeltaE = %v, want 2.0 over successes only", summary.MeanDeltaE)
	}
	if summary.ManufacturingReady != 1 {
		t.Errorf("ManufacturingReady = %d, want 1", summary.ManufacturingReady)
	}
	if summary.TotalElapsed != 5*time.Second {
		t.Errorf("TotalElapsed = %v, want 5s including failures", summary.TotalElapsed)
	}
}

func TestSummarizeNoSuccesses(t *testing.T) {
	t.Parallel()

	results := []Result{
		{JobID: "a", Success: false, Failure: &Failure{Classification: ClassTimeout}},
		{JobID: "b", Success: false, Failure: &Failure{Classification: ClassExecutionFailed}},
	}

	summary := Summarize(results)

	if summary.MeanDeltaE != nil {
		t.Errorf("MeanDeltaE = %v, want nil with no successes", *summary.MeanDeltaE)
	}
	if summary.Failed != 2 || summary.Succeeded != 0 {
		t.Errorf("summary = %+v, want 2 failed, 0 succeeded", summary)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	t.Parallel()

	summary := Summarize(nil)

	if summary.Total != 0 || summary.MeanDeltaE != nil {
		t.Errorf("Summarize(nil) = %+v, want zero summary", summary)
	}
}
