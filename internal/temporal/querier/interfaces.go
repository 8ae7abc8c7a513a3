package querier

import (
	"context"

	"github.com/pbias-leaderboard/pbias-go/internal/temporal/workflows"
)

// WorkflowQuerier starts batch re-scoring runs and reads their state.
// Used by the HTTP API, the MCP server and the CLI.
type WorkflowQuerier interface {
	StartBatch(ctx context.Context, input workflows.BatchInput) (BatchHandle, error)
	ListWorkflows(ctx context.Context, opts ListOptions) ([]WorkflowSummary, error)
	GetBatchState(ctx context.Context, batchID string) (*workflows.BatchState, error)
	DescribeWorkflow(ctx context.Context, batchID string) (*WorkflowDescription, error)
}
