// Package versioning defines workflow versions and task queue names.
package versioning

const (
	// Workflow versions for determinism tracking.
	BatchScoreV1 = "batch-score-v1"

	// Task queues. Batch workflows and publishing run on QueueBatch;
	// CPU-bound scoring activities run on QueueScore so they can be
	// scaled separately.
	QueueBatch = "pbias-batch"
	QueueScore = "pbias-score"
)
