package transfer

import "sort"

// Resolution size classes for the cost model. The raw input size picks the
// class; the estimate covers decoded image plus worker intermediates.
const (
	classSmallMaxBytes  = 512 << 10
	classMediumMaxBytes = 2 << 20
	classLargeMaxBytes  = 8 << 20

	classSmallMB  = 256
	classMediumMB = 512
	classLargeMB  = 1024
	classHugeMB   = 2048
)

// Estimator predicts the accelerator memory cost of one job in MB.
// Deterministic and side-effect free, so packing is reproducible.
//
// Multiplier models downstream processing overhead on top of the raw
// per-resolution-class estimate. It is injectable rather than a constant;
// only monotonicity in input size is relied on.
type Estimator struct {
	Multiplier float64
}

// CostMB estimates the memory cost of a job from its input size class.
func (e Estimator) CostMB(job Job) float64 {
	multiplier := e.Multiplier
	if multiplier <= 0 {
		multiplier = 1
	}

	var base float64
	switch {
	case job.InputBytes <= classSmallMaxBytes:
		base = classSmallMB
	case job.InputBytes <= classMediumMaxBytes:
		base = classMediumMB
	case job.InputBytes <= classLargeMaxBytes:
		base = classLargeMB
	default:
		base = classHugeMB
	}
	return base * multiplier
}

// Pack partitions jobs into batches whose combined estimated cost fits
// budgetMB, using first-fit-decreasing: jobs sorted by descending cost, each
// placed into the first batch with remaining capacity, a new batch opened
// when none fits. Sorting is stable over submission order, so the same job
// set and budget always produce the same partition.
//
// A single job costing more than the whole budget still gets a batch of its
// own; the packer never drops or rejects jobs.
func Pack(jobs []Job, budgetMB float64, est Estimator) []Batch {
	items := make([]BatchItem, len(jobs))
	for i, job := range jobs {
		items[i] = BatchItem{Index: i, Job: job, CostMB: est.CostMB(job)}
	}
	sort.SliceStable(items, func(a, b int) bool {
		return items[a].CostMB > items[b].CostMB
	})

	var batches []Batch
	for _, item := range items {
		placed := false
		for i := range batches {
			if batches[i].CostMB+item.CostMB <= budgetMB {
				batches[i].Items = append(batches[i].Items, item)
				batches[i].CostMB += item.CostMB
				placed = true
				break
			}
		}
		if !placed {
			batches = append(batches, Batch{Items: []BatchItem{item}, CostMB: item.CostMB})
		}
	}
	return batches
}
