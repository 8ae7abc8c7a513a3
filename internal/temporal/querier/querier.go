package querier

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/api/workflowservice/v1"
	"go.temporal.io/sdk/client"

	"github.com/pbias-leaderboard/pbias-go/internal/temporal/versioning"
	"github.com/pbias-leaderboard/pbias-go/internal/temporal/workflows"
)

// ErrNotFound is returned when no batch has the requested id.
var ErrNotFound = errors.New("batch not found")

const workflowType = "BatchScoreWorkflow"

// TemporalQuerier implements WorkflowQuerier using a Temporal client.
type TemporalQuerier struct {
	client client.Client
}

// New creates a TemporalQuerier.
func New(c client.Client) *TemporalQuerier {
	return &TemporalQuerier{client: c}
}

// StartBatch starts a BatchScoreWorkflow on the batch queue. A batch id is
// generated when the input has none; it doubles as the workflow id.
func (q *TemporalQuerier) StartBatch(ctx context.Context, input workflows.BatchInput) (BatchHandle, error) {
	if input.BatchID == "" {
		input.BatchID = "batch-" + uuid.NewString()
	}
	run, err := q.client.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        input.BatchID,
		TaskQueue: versioning.QueueBatch,
	}, workflows.BatchScoreWorkflow, input)
	if err != nil {
		return BatchHandle{}, fmt.Errorf("start batch: %w", err)
	}
	return BatchHandle{BatchID: input.BatchID, RunID: run.GetRunID()}, nil
}

// ListWorkflows lists batch executions using Temporal's visibility API.
func (q *TemporalQuerier) ListWorkflows(ctx context.Context, opts ListOptions) ([]WorkflowSummary, error) {
	query := fmt.Sprintf("WorkflowType = %q", workflowType)
	if opts.StatusFilter != "" {
		query += fmt.Sprintf(" AND ExecutionStatus = %q", opts.StatusFilter)
	}

	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	resp, err := q.client.ListWorkflow(ctx, &workflowservice.ListWorkflowExecutionsRequest{
		Query:    query,
		PageSize: int32(pageSize),
	})
	if err != nil {
		return nil, fmt.Errorf("list workflows: %w", err)
	}

	summaries := make([]WorkflowSummary, 0, len(resp.Executions))
	for _, exec := range resp.Executions {
		s := WorkflowSummary{
			WorkflowID: exec.Execution.WorkflowId,
			RunID:      exec.Execution.RunId,
			Status:     exec.Status.String(),
			StartTime:  exec.StartTime.AsTime(),
			TaskQueue:  exec.TaskQueue,
		}
		if exec.CloseTime != nil {
			s.CloseTime = exec.CloseTime.AsTime()
		}
		summaries = append(summaries, s)
	}
	return summaries, nil
}

// GetBatchState returns the batch progress. Completed batches return the
// workflow result; running ones are read through the state query.
func (q *TemporalQuerier) GetBatchState(ctx context.Context, batchID string) (*workflows.BatchState, error) {
	desc, err := q.describe(ctx, batchID)
	if err != nil {
		return nil, err
	}

	var state workflows.BatchState
	switch status := desc.WorkflowExecutionInfo.Status; status {
	case enumspb.WORKFLOW_EXECUTION_STATUS_COMPLETED:
		run := q.client.GetWorkflow(ctx, batchID, "")
		if err := run.Get(ctx, &state); err != nil {
			return nil, fmt.Errorf("get batch result: %w", err)
		}
	case enumspb.WORKFLOW_EXECUTION_STATUS_RUNNING:
		resp, err := q.client.QueryWorkflow(ctx, batchID, "", workflows.QueryNameState)
		if err != nil {
			return nil, fmt.Errorf("query batch state: %w", err)
		}
		if err := resp.Get(&state); err != nil {
			return nil, fmt.Errorf("decode query result: %w", err)
		}
	default:
		return nil, fmt.Errorf("batch %s has status %s, cannot read state", batchID, status)
	}
	return &state, nil
}

// DescribeWorkflow returns detailed information about a batch execution.
func (q *TemporalQuerier) DescribeWorkflow(ctx context.Context, batchID string) (*WorkflowDescription, error) {
	desc, err := q.describe(ctx, batchID)
	if err != nil {
		return nil, err
	}

	info := desc.WorkflowExecutionInfo
	wd := &WorkflowDescription{
		WorkflowSummary: WorkflowSummary{
			WorkflowID: info.Execution.WorkflowId,
			RunID:      info.Execution.RunId,
			Status:     info.Status.String(),
			StartTime:  info.StartTime.AsTime(),
			TaskQueue:  info.TaskQueue,
		},
		HistoryLength: info.HistoryLength,
	}
	if info.CloseTime != nil {
		wd.CloseTime = info.CloseTime.AsTime()
	}
	return wd, nil
}

func (q *TemporalQuerier) describe(ctx context.Context, batchID string) (*workflowservice.DescribeWorkflowExecutionResponse, error) {
	desc, err := q.client.DescribeWorkflowExecution(ctx, batchID, "")
	if err != nil {
		var nf *serviceerror.NotFound
		if errors.As(err, &nf) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, batchID)
		}
		return nil, fmt.Errorf("describe workflow: %w", err)
	}
	return desc, nil
}
