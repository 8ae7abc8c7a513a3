package mcpserver_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbias-leaderboard/pbias-go/internal/domain"
	"github.com/pbias-leaderboard/pbias-go/internal/grid"
	"github.com/pbias-leaderboard/pbias-go/internal/groundtruth"
	"github.com/pbias-leaderboard/pbias-go/internal/mcpserver"
	"github.com/pbias-leaderboard/pbias-go/internal/scoring"
	"github.com/pbias-leaderboard/pbias-go/internal/temporal/querier"
	"github.com/pbias-leaderboard/pbias-go/internal/temporal/workflows"
	"github.com/pbias-leaderboard/pbias-go/internal/testutil"
)

const defaultURI = "s3://truth/default.csv"

type stubQuerier struct {
	started []workflows.BatchInput
	state   *workflows.BatchState
	err     error
}

func (s *stubQuerier) StartBatch(_ context.Context, in workflows.BatchInput) (querier.BatchHandle, error) {
	s.started = append(s.started, in)
	return querier.BatchHandle{BatchID: "batch-1", RunID: "run-1"}, s.err
}

func (s *stubQuerier) ListWorkflows(_ context.Context, _ querier.ListOptions) ([]querier.WorkflowSummary, error) {
	return []querier.WorkflowSummary{{WorkflowID: "batch-1", Status: "Running"}}, s.err
}

func (s *stubQuerier) GetBatchState(_ context.Context, _ string) (*workflows.BatchState, error) {
	return s.state, s.err
}

func (s *stubQuerier) DescribeWorkflow(_ context.Context, _ string) (*querier.WorkflowDescription, error) {
	return nil, s.err
}

// connect registers the tools on a fresh server and returns a connected
// client session.
func connect(t *testing.T, deps mcpserver.Deps) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()

	if deps.Engine == nil {
		eng, err := scoring.New(scoring.DefaultOptions())
		require.NoError(t, err)
		deps.Engine = eng
	}
	server := mcp.NewServer(&mcp.Implementation{Name: "test", Version: "v1"}, nil)
	mcpserver.RegisterTools(server, deps)

	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	ss, err := server.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ss.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v1"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cs.Close() })
	return cs
}

func call(t *testing.T, cs *mcp.ClientSession, name string, args map[string]any) (string, bool) {
	t.Helper()
	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	return text.Text, res.IsError
}

func toolNames(t *testing.T, cs *mcp.ClientSession) []string {
	t.Helper()
	res, err := cs.ListTools(context.Background(), nil)
	require.NoError(t, err)
	var names []string
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	return names
}

func TestRegisterTools_BatchToolsOptional(t *testing.T) {
	without := toolNames(t, connect(t, mcpserver.Deps{}))
	assert.ElementsMatch(t, []string{"score_submission", "default_groundtruth_info", "reload_default_groundtruth"}, without)

	with := toolNames(t, connect(t, mcpserver.Deps{Batches: &stubQuerier{}}))
	assert.Subset(t, with, []string{"start_batch", "get_batch", "list_batches"})
}

func TestScoreSubmission(t *testing.T) {
	mem := testutil.NewMemStore(map[string][]byte{
		"s3://subs/a.csv":  testutil.CSV([][]float64{{1, 2}, {3, 4}}),
		"s3://truth/x.csv": testutil.CSV([][]float64{{1, 2}, {3, 5}}),
	})
	cs := connect(t, mcpserver.Deps{Opener: mem})

	text, isErr := call(t, cs, "score_submission", map[string]any{
		"submission_uri":  "s3://subs/a.csv",
		"groundtruth_uri": "s3://truth/x.csv",
	})
	require.False(t, isErr, text)

	var res domain.ScoreResult
	require.NoError(t, json.Unmarshal([]byte(text), &res))
	assert.InDelta(t, 100.0/11.0, res.PBIASScore, 1e-9)
	assert.False(t, res.UsedDefault)
}

func TestScoreSubmission_DefaultGroundTruth(t *testing.T) {
	mem := testutil.NewMemStore(map[string][]byte{
		"s3://subs/a.csv": testutil.CSV([][]float64{{5, 5}}),
		defaultURI:        testutil.CSV([][]float64{{10, 10}}),
	})
	store := groundtruth.NewStore(defaultURI, mem, grid.DefaultOptions(""), 0)
	cs := connect(t, mcpserver.Deps{Opener: mem, Defaults: store})

	text, isErr := call(t, cs, "score_submission", map[string]any{
		"submission_uri": "s3://subs/a.csv",
		"start_column":   6,
	})
	require.False(t, isErr, text)

	var res domain.ScoreResult
	require.NoError(t, json.Unmarshal([]byte(text), &res))
	assert.True(t, res.UsedDefault)
	assert.InDelta(t, 50.0, res.PBIASScore, 1e-9)
}

func TestScoreSubmission_Errors(t *testing.T) {
	mem := testutil.NewMemStore(map[string][]byte{
		"s3://subs/a.csv":  testutil.CSV([][]float64{{1, 2}}),
		"s3://truth/x.csv": testutil.CSV([][]float64{{1, 2}, {3, 4}}),
	})
	cs := connect(t, mcpserver.Deps{Opener: mem})

	t.Run("shape mismatch", func(t *testing.T) {
		text, isErr := call(t, cs, "score_submission", map[string]any{
			"submission_uri":  "s3://subs/a.csv",
			"groundtruth_uri": "s3://truth/x.csv",
		})
		assert.True(t, isErr)
		assert.Contains(t, text, "Data validation failed")
		assert.Contains(t, text, string(domain.KindShapeMismatch))
	})
	t.Run("no ground truth", func(t *testing.T) {
		text, isErr := call(t, cs, "score_submission", map[string]any{
			"submission_uri": "s3://subs/a.csv",
		})
		assert.True(t, isErr)
		assert.Contains(t, text, "groundtruth_uri is required")
	})
	t.Run("missing submission", func(t *testing.T) {
		_, isErr := call(t, cs, "score_submission", map[string]any{
			"submission_uri":  "s3://subs/missing.csv",
			"groundtruth_uri": "s3://truth/x.csv",
		})
		assert.True(t, isErr)
	})
}

func TestDefaultGroundTruthTools(t *testing.T) {
	mem := testutil.NewMemStore(map[string][]byte{defaultURI: testutil.CSV([][]float64{{1, 2}})})
	store := groundtruth.NewStore(defaultURI, mem, grid.DefaultOptions(""), 0)
	cs := connect(t, mcpserver.Deps{Opener: mem, Defaults: store})

	text, isErr := call(t, cs, "default_groundtruth_info", map[string]any{})
	require.False(t, isErr)
	assert.JSONEq(t, `{"exists": true, "shape": [1, 7]}`, text)

	mem.Put(defaultURI, testutil.CSV([][]float64{{1, 2}, {3, 4}, {5, 6}}))
	text, isErr = call(t, cs, "reload_default_groundtruth", map[string]any{})
	require.False(t, isErr)
	assert.JSONEq(t, `{"exists": true, "shape": [3, 7]}`, text)
}

func TestDefaultGroundTruthTools_NotConfigured(t *testing.T) {
	cs := connect(t, mcpserver.Deps{})

	text, isErr := call(t, cs, "default_groundtruth_info", map[string]any{})
	require.False(t, isErr)
	assert.JSONEq(t, `{"exists": false}`, text)

	_, isErr = call(t, cs, "reload_default_groundtruth", map[string]any{})
	assert.True(t, isErr)
}

func TestBatchTools(t *testing.T) {
	q := &stubQuerier{state: &workflows.BatchState{BatchID: "batch-1", Total: 1, Scored: 1, Done: true}}
	cs := connect(t, mcpserver.Deps{Batches: q})

	text, isErr := call(t, cs, "start_batch", map[string]any{
		"groundtruth_uri": "s3://truth/gt.csv",
		"submissions":     []map[string]string{{"id": "a", "uri": "s3://subs/a.csv"}},
	})
	require.False(t, isErr, text)
	assert.Contains(t, text, "batch-1")
	require.Len(t, q.started, 1)
	assert.Equal(t, "s3://truth/gt.csv", q.started[0].GroundTruthURI)

	_, isErr = call(t, cs, "start_batch", map[string]any{
		"submissions": []map[string]string{{"id": "a", "uri": "ftp://nope/a.csv"}},
	})
	assert.True(t, isErr)

	text, isErr = call(t, cs, "get_batch", map[string]any{"batch_id": "batch-1"})
	require.False(t, isErr)
	var st workflows.BatchState
	require.NoError(t, json.Unmarshal([]byte(text), &st))
	assert.True(t, st.Done)

	text, isErr = call(t, cs, "list_batches", map[string]any{})
	require.False(t, isErr)
	assert.Contains(t, text, "Running")
}

func TestBatchTools_QuerierError(t *testing.T) {
	cs := connect(t, mcpserver.Deps{Batches: &stubQuerier{err: errors.New("temporal down")}})

	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "get_batch",
		Arguments: map[string]any{"batch_id": "b1"},
	})
	require.NoError(t, err)
	assert.True(t, res.IsError)
}
