// Package mcpserver exposes scoring and batch operations via MCP tools.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/pbias-leaderboard/pbias-go/internal/domain"
	"github.com/pbias-leaderboard/pbias-go/internal/groundtruth"
	"github.com/pbias-leaderboard/pbias-go/internal/scoring"
	"github.com/pbias-leaderboard/pbias-go/internal/storage"
	"github.com/pbias-leaderboard/pbias-go/internal/temporal/querier"
	"github.com/pbias-leaderboard/pbias-go/internal/temporal/workflows"
)

// Scorer scores one request. *scoring.Engine satisfies it.
type Scorer interface {
	Score(ctx context.Context, req scoring.Request) (*domain.ScoreResult, error)
}

// Deps are the collaborators the tools call. Defaults and Batches may be
// nil; the batch tools are then not registered.
type Deps struct {
	Engine   Scorer
	Opener   storage.Opener
	Defaults *groundtruth.Store
	Batches  querier.WorkflowQuerier
	MaxBytes int64
}

// RegisterTools registers the scoring MCP tools on the given server.
func RegisterTools(server *mcp.Server, deps Deps) {
	mcp.AddTool(server,
		&mcp.Tool{
			Name:        "score_submission",
			Description: "Score a stored submission CSV against a ground truth CSV and return PBIAS with position statistics",
		},
		scoreSubmissionHandler(deps),
	)

	mcp.AddTool(server,
		&mcp.Tool{
			Name:        "default_groundtruth_info",
			Description: "Report whether the default ground truth is available and its shape",
		},
		defaultInfoHandler(deps),
	)

	mcp.AddTool(server,
		&mcp.Tool{
			Name:        "reload_default_groundtruth",
			Description: "Reload the default ground truth from storage",
		},
		reloadDefaultHandler(deps),
	)

	if deps.Batches == nil {
		return
	}

	mcp.AddTool(server,
		&mcp.Tool{
			Name:        "start_batch",
			Description: "Start a batch re-scoring run over stored submissions",
		},
		startBatchHandler(deps.Batches),
	)

	mcp.AddTool(server,
		&mcp.Tool{
			Name:        "get_batch",
			Description: "Get progress, scores and ranks for a batch run",
		},
		getBatchHandler(deps.Batches),
	)

	mcp.AddTool(server,
		&mcp.Tool{
			Name:        "list_batches",
			Description: "List recent batch runs with their status",
		},
		listBatchesHandler(deps.Batches),
	)
}

type scoreInput struct {
	SubmissionURI  string `json:"submission_uri" jsonschema:"file path, s3://bucket/key or gs://bucket/object of the submission CSV"`
	GroundTruthURI string `json:"groundtruth_uri,omitempty" jsonschema:"location of the ground truth CSV; omit to use the default"`
	StartColumn    *int   `json:"start_column,omitempty" jsonschema:"first scored column, 1-based"`
	EndColumn      *int   `json:"end_column,omitempty" jsonschema:"last scored column, 1-based; 0 means the last column"`
}

func scoreSubmissionHandler(deps Deps) mcp.ToolHandlerFor[scoreInput, any] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input scoreInput) (*mcp.CallToolResult, any, error) {
		if input.SubmissionURI == "" {
			return errorResult("submission_uri is required"), nil, nil
		}

		sub, err := storage.ReadAll(ctx, deps.Opener, input.SubmissionURI, deps.MaxBytes)
		if err != nil {
			return domainErrorResult(err), nil, nil
		}
		req := scoring.Request{Submission: sub, Range: columnRange(input.StartColumn, input.EndColumn)}

		switch {
		case input.GroundTruthURI != "":
			gt, err := storage.ReadAll(ctx, deps.Opener, input.GroundTruthURI, deps.MaxBytes)
			if err != nil {
				return domainErrorResult(err), nil, nil
			}
			req.GroundTruth = gt
		case deps.Defaults != nil:
			ds, err := deps.Defaults.Get(ctx)
			if err != nil {
				return domainErrorResult(err), nil, nil
			}
			req.GroundTruth = ds.Data
			req.UsedDefault = true
		default:
			return errorResult("groundtruth_uri is required when no default ground truth is configured"), nil, nil
		}

		res, err := deps.Engine.Score(ctx, req)
		if err != nil {
			return domainErrorResult(err), nil, nil
		}
		return textResult(res)
	}
}

func columnRange(start, end *int) *domain.ColumnRange {
	if start == nil && end == nil {
		return nil
	}
	rng := domain.DefaultColumnRange()
	if start != nil {
		rng.Start = *start
	}
	if end != nil {
		rng.End = *end
	}
	return &rng
}

type emptyInput struct{}

func defaultInfoHandler(deps Deps) mcp.ToolHandlerFor[emptyInput, any] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, _ emptyInput) (*mcp.CallToolResult, any, error) {
		if deps.Defaults == nil {
			return textResult(domain.DefaultGroundTruthInfo{Exists: false})
		}
		return textResult(deps.Defaults.Info(ctx))
	}
}

func reloadDefaultHandler(deps Deps) mcp.ToolHandlerFor[emptyInput, any] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, _ emptyInput) (*mcp.CallToolResult, any, error) {
		if deps.Defaults == nil {
			return errorResult("no default ground truth configured"), nil, nil
		}
		if _, err := deps.Defaults.Reload(ctx); err != nil {
			return domainErrorResult(err), nil, nil
		}
		return textResult(deps.Defaults.Info(ctx))
	}
}

type startBatchInput struct {
	BatchID        string                      `json:"batch_id,omitempty" jsonschema:"optional batch id; generated when empty"`
	GroundTruthURI string                      `json:"groundtruth_uri,omitempty" jsonschema:"ground truth location; omit to use the worker default"`
	Submissions    []workflows.BatchSubmission `json:"submissions" jsonschema:"submissions to score"`
}

func startBatchHandler(q querier.WorkflowQuerier) mcp.ToolHandlerFor[startBatchInput, any] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input startBatchInput) (*mcp.CallToolResult, any, error) {
		if len(input.Submissions) == 0 {
			return errorResult("at least one submission is required"), nil, nil
		}
		for i, s := range input.Submissions {
			if s.ID == "" {
				return errorResult(fmt.Sprintf("submissions[%d]: id is required", i)), nil, nil
			}
			if _, err := storage.ParseURI(s.URI); err != nil {
				return errorResult(fmt.Sprintf("submissions[%d]: %v", i, err)), nil, nil
			}
		}

		h, err := q.StartBatch(ctx, workflows.BatchInput{
			BatchID:        input.BatchID,
			GroundTruthURI: input.GroundTruthURI,
			Submissions:    input.Submissions,
		})
		if err != nil {
			return errorResult("start_batch: "+err.Error()), nil, nil
		}
		return textResult(h)
	}
}

type batchIDInput struct {
	BatchID string `json:"batch_id"`
}

func getBatchHandler(q querier.WorkflowQuerier) mcp.ToolHandlerFor[batchIDInput, any] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input batchIDInput) (*mcp.CallToolResult, any, error) {
		if input.BatchID == "" {
			return errorResult("batch_id is required"), nil, nil
		}

		state, err := q.GetBatchState(ctx, input.BatchID)
		if err != nil {
			return errorResult("get_batch: "+err.Error()), nil, nil
		}
		return textResult(state)
	}
}

type listBatchesInput struct {
	Status string `json:"status,omitempty" jsonschema:"filter by execution status, e.g. Running or Completed"`
}

func listBatchesHandler(q querier.WorkflowQuerier) mcp.ToolHandlerFor[listBatchesInput, any] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input listBatchesInput) (*mcp.CallToolResult, any, error) {
		batches, err := q.ListWorkflows(ctx, querier.ListOptions{StatusFilter: input.Status})
		if err != nil {
			return errorResult("list_batches: "+err.Error()), nil, nil
		}
		return textResult(batches)
	}
}

func textResult(v any) (*mcp.CallToolResult, any, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, nil, fmt.Errorf("marshal result: %w", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(data)},
		},
	}, nil, nil
}

func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: msg},
		},
		IsError: true,
	}
}

// domainErrorResult renders a scoring failure the way the HTTP API does.
func domainErrorResult(err error) *mcp.CallToolResult {
	de := domain.AsError(err)
	details := de.Details
	if de.Kind == domain.KindInternal {
		details = append(details, err.Error())
	}
	data, _ := json.Marshal(map[string]any{
		"error":   de.Message,
		"kind":    de.Kind,
		"details": details,
	})
	return errorResult(string(data))
}
