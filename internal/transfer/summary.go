package transfer

// Summarize aggregates an ordered Result list into a BatchSummary.
// Pure and stateless: the summary is always recomputed from the Results.
//
// The mean Delta E covers successes only and is nil when there are none.
// Total elapsed time includes failures, since they consumed wall clock too.
func Summarize(results []Result) BatchSummary {
	summary := BatchSummary{Total: len(results)}

	var deltaSum float64
	for _, res := range results {
		summary.TotalElapsed += res.Elapsed
		if !res.Success {
			summary.Failed++
			continue
		}
		summary.Succeeded++
		deltaSum += res.DeltaE
		if res.ManufacturingReady {
			summary.ManufacturingReady++
		}
	}

	if summary.Succeeded > 0 {
		mean := deltaSum / float64(summary.Succeeded)
		summary.MeanDeltaE = &mean
	}
	return summary
}
