// Package queues defines per-queue worker configuration for task-queue partitioning.
package queues

import (
	"fmt"
	"runtime"
	"strings"

	"go.temporal.io/sdk/worker"

	"github.com/pbias-leaderboard/pbias-go/internal/temporal/versioning"
)

// QueueConfig holds worker options for a single task queue.
type QueueConfig struct {
	Name    string
	Options worker.Options
}

// DefaultConfigs returns the standard per-queue worker options.
//
//   - QueueBatch: batch workflows and the publish activity
//   - QueueScore: scoring activities, one per CPU
func DefaultConfigs() map[string]QueueConfig {
	return map[string]QueueConfig{
		versioning.QueueBatch: {
			Name: versioning.QueueBatch,
			Options: worker.Options{
				MaxConcurrentActivityExecutionSize:     10,
				MaxConcurrentWorkflowTaskExecutionSize: 10,
			},
		},
		versioning.QueueScore: {
			Name: versioning.QueueScore,
			Options: worker.Options{
				MaxConcurrentActivityExecutionSize:     max(1, runtime.NumCPU()),
				MaxConcurrentWorkflowTaskExecutionSize: 1,
			},
		},
	}
}

// ParseQueues parses a comma-separated queue list (e.g. "batch,score")
// into queue names. Accepts both short names ("score") and full names
// ("pbias-score"). An empty list means every queue.
func ParseQueues(raw string) ([]string, error) {
	all := []string{versioning.QueueBatch, versioning.QueueScore}
	if raw == "" {
		return all, nil
	}

	shortNames := map[string]string{
		"batch": versioning.QueueBatch,
		"score": versioning.QueueScore,
	}
	fullNames := map[string]bool{
		versioning.QueueBatch: true,
		versioning.QueueScore: true,
	}

	seen := make(map[string]bool)
	var result []string
	for _, part := range strings.Split(raw, ",") {
		name := strings.TrimSpace(part)
		if name == "" {
			continue
		}
		if full, ok := shortNames[name]; ok {
			name = full
		}
		if !fullNames[name] {
			return nil, fmt.Errorf("unknown queue %q", name)
		}
		if !seen[name] {
			seen[name] = true
			result = append(result, name)
		}
	}
	if len(result) == 0 {
		return all, nil
	}
	return result, nil
}
