// Package workflows defines the Temporal workflow functions.
package workflows

import (
	"errors"
	"math"
	"sort"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/pbias-leaderboard/pbias-go/internal/domain"
	"github.com/pbias-leaderboard/pbias-go/internal/temporal/activities"
	"github.com/pbias-leaderboard/pbias-go/internal/temporal/versioning"
)

// QueryNameState is the Temporal query handler name for batch progress.
const QueryNameState = "state"

// DefaultParallelism bounds how many submissions are scored at once.
const DefaultParallelism = 4

// EntryStatus is the scoring state of one batch entry.
type EntryStatus string

const (
	StatusPending EntryStatus = "pending"
	StatusScored  EntryStatus = "scored"
	StatusFailed  EntryStatus = "failed"
)

// BatchSubmission names one stored submission.
type BatchSubmission struct {
	ID  string `json:"id"`
	URI string `json:"uri"`
}

// BatchInput is the input to BatchScoreWorkflow. An empty GroundTruthURI
// scores against the worker's default ground truth.
type BatchInput struct {
	BatchID        string              `json:"batch_id"`
	GroundTruthURI string              `json:"groundtruth_uri,omitempty"`
	Submissions    []BatchSubmission   `json:"submissions"`
	Range          *domain.ColumnRange `json:"range,omitempty"`
	Parallelism    int                 `json:"parallelism,omitempty"`
}

// BatchEntry is the outcome for one submission. Rank is 1-based among
// scored entries and 0 otherwise.
type BatchEntry struct {
	SubmissionID string              `json:"submission_id"`
	URI          string              `json:"uri"`
	Status       EntryStatus         `json:"status"`
	Result       *domain.ScoreResult `json:"result,omitempty"`
	Error        string              `json:"error,omitempty"`
	ErrorKind    string              `json:"error_kind,omitempty"`
	Rank         int                 `json:"rank,omitempty"`
}

// BatchState is both the query result and the workflow result.
type BatchState struct {
	BatchID      string       `json:"batch_id"`
	Total        int          `json:"total"`
	Scored       int          `json:"scored"`
	Failed       int          `json:"failed"`
	Entries      []BatchEntry `json:"entries"`
	Published    int          `json:"published"`
	PublishError string       `json:"publish_error,omitempty"`
	Done         bool         `json:"done"`
}

// BatchScoreWorkflow re-scores a set of stored submissions. A failed
// submission is recorded on its entry and never aborts the batch. Scored
// entries are ranked by |public PBIAS| (the overall score when no split
// was computed), closest to zero first, and then published.
func BatchScoreWorkflow(ctx workflow.Context, input BatchInput) (BatchState, error) {
	logger := workflow.GetLogger(ctx)

	state := BatchState{
		BatchID: input.BatchID,
		Total:   len(input.Submissions),
		Entries: make([]BatchEntry, len(input.Submissions)),
	}
	for i, s := range input.Submissions {
		state.Entries[i] = BatchEntry{SubmissionID: s.ID, URI: s.URI, Status: StatusPending}
	}
	if err := workflow.SetQueryHandler(ctx, QueryNameState, func() (BatchState, error) {
		return state, nil
	}); err != nil {
		return state, err
	}

	scoreCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		TaskQueue:           versioning.QueueScore,
		StartToCloseTimeout: 5 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts:        3,
			NonRetryableErrorTypes: activities.NonRetryableKinds,
		},
	})

	parallelism := input.Parallelism
	if parallelism <= 0 {
		parallelism = DefaultParallelism
	}

	for lo := 0; lo < len(input.Submissions); lo += parallelism {
		hi := min(lo+parallelism, len(input.Submissions))
		futures := make([]workflow.Future, 0, hi-lo)
		for _, s := range input.Submissions[lo:hi] {
			futures = append(futures, workflow.ExecuteActivity(scoreCtx, "ScoreSubmission", activities.ScoreSubmissionInput{
				BatchID:        input.BatchID,
				SubmissionID:   s.ID,
				SubmissionURI:  s.URI,
				GroundTruthURI: input.GroundTruthURI,
				Range:          input.Range,
			}))
		}
		for j, f := range futures {
			entry := &state.Entries[lo+j]
			var out activities.ScoreSubmissionOutput
			if err := f.Get(ctx, &out); err != nil {
				entry.Status = StatusFailed
				entry.Error, entry.ErrorKind = describeError(err)
				state.Failed++
				logger.Warn("submission failed", "submission", entry.SubmissionID, "kind", entry.ErrorKind)
				continue
			}
			res := out.Result
			entry.Status = StatusScored
			entry.Result = &res
			state.Scored++
		}
	}

	rankEntries(state.Entries)
	logger.Info("batch scored", "batch", input.BatchID, "scored", state.Scored, "failed", state.Failed)

	if scores := publishable(state.Entries); len(scores) > 0 {
		pubCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
			StartToCloseTimeout: time.Minute,
			RetryPolicy: &temporal.RetryPolicy{
				MaximumAttempts: 3,
			},
		})
		var pubOut activities.PublishScoresOutput
		err := workflow.ExecuteActivity(pubCtx, "PublishScores", activities.PublishScoresInput{
			BatchID: input.BatchID,
			Scores:  scores,
		}).Get(ctx, &pubOut)
		if err != nil {
			state.PublishError = err.Error()
			logger.Warn("publishing scores failed", "batch", input.BatchID, "error", err)
		} else {
			state.Published = pubOut.Published
		}
	}

	state.Done = true
	return state, nil
}

func describeError(err error) (msg, kind string) {
	var appErr *temporal.ApplicationError
	if errors.As(err, &appErr) {
		return appErr.Message(), appErr.Type()
	}
	return err.Error(), string(domain.KindInternal)
}

func rankKey(r *domain.ScoreResult) float64 {
	if r.PBIASPublic != nil {
		return math.Abs(*r.PBIASPublic)
	}
	return math.Abs(r.PBIASScore)
}

func rankEntries(entries []BatchEntry) {
	scored := make([]*BatchEntry, 0, len(entries))
	for i := range entries {
		if entries[i].Status == StatusScored {
			scored = append(scored, &entries[i])
		}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		ki, kj := rankKey(scored[i].Result), rankKey(scored[j].Result)
		if ki != kj {
			return ki < kj
		}
		return scored[i].SubmissionID < scored[j].SubmissionID
	})
	for i, e := range scored {
		e.Rank = i + 1
	}
}

func publishable(entries []BatchEntry) []activities.PublishedScore {
	var out []activities.PublishedScore
	for _, e := range entries {
		if e.Status != StatusScored {
			continue
		}
		out = append(out, activities.PublishedScore{
			SubmissionID: e.SubmissionID,
			PBIAS:        e.Result.PBIASScore,
			Public:       e.Result.PBIASPublic,
			Private:      e.Result.PBIASPrivate,
		})
	}
	return out
}
