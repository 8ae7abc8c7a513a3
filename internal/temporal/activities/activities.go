package activities

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.temporal.io/sdk/temporal"

	"github.com/pbias-leaderboard/pbias-go/internal/connectors/aws/cloudwatch"
	"github.com/pbias-leaderboard/pbias-go/internal/domain"
	"github.com/pbias-leaderboard/pbias-go/internal/groundtruth"
	"github.com/pbias-leaderboard/pbias-go/internal/observability"
	"github.com/pbias-leaderboard/pbias-go/internal/scoring"
	"github.com/pbias-leaderboard/pbias-go/internal/storage"
)

// Scorer scores one request. *scoring.Engine satisfies it.
type Scorer interface {
	Score(ctx context.Context, req scoring.Request) (*domain.ScoreResult, error)
}

// Publisher writes batch scores to a metrics backend. *cloudwatch.Client
// satisfies it.
type Publisher interface {
	PublishScores(ctx context.Context, batchID string, scores []cloudwatch.Score) (int, error)
}

// Activities holds the dependencies for all Temporal activities.
// Each method is registered as a Temporal activity.
type Activities struct {
	Engine   Scorer
	Opener   storage.Opener
	Defaults *groundtruth.Store // nil = batches must name a ground truth
	// Publisher is nil when no CloudWatch namespace is configured.
	Publisher Publisher
	Metrics   *observability.Metrics
	MaxBytes  int64
}

// ScoreSubmission loads a submission and its ground truth from storage and
// scores it. Domain failures are non-retryable application errors whose
// type is the error kind.
func (a *Activities) ScoreSubmission(ctx context.Context, in ScoreSubmissionInput) (ScoreSubmissionOutput, error) {
	a.Metrics.RecordActivity(ctx, "ScoreSubmission")
	start := time.Now()

	res, err := a.score(ctx, in)
	a.Metrics.RecordScore(ctx, "batch", time.Since(start), res, err)
	if err != nil {
		slog.Warn("scoring failed", "batch", in.BatchID, "submission", in.SubmissionID, "error", err)
		return ScoreSubmissionOutput{}, toApplicationError(err)
	}
	return ScoreSubmissionOutput{Result: *res}, nil
}

func (a *Activities) score(ctx context.Context, in ScoreSubmissionInput) (*domain.ScoreResult, error) {
	sub, err := storage.ReadAll(ctx, a.Opener, in.SubmissionURI, a.MaxBytes)
	if err != nil {
		return nil, readError("submission", in.SubmissionURI, err)
	}

	req := scoring.Request{
		Submission: sub,
		Range:      in.Range,
		RequestID:  in.BatchID + "/" + in.SubmissionID,
	}
	switch {
	case in.GroundTruthURI != "":
		gt, err := storage.ReadAll(ctx, a.Opener, in.GroundTruthURI, a.MaxBytes)
		if err != nil {
			return nil, readError("ground truth", in.GroundTruthURI, err)
		}
		req.GroundTruth = gt
	case a.Defaults != nil:
		ds, err := a.Defaults.Get(ctx)
		if err != nil {
			return nil, err
		}
		req.GroundTruth = ds.Data
		req.UsedDefault = true
	default:
		return nil, domain.NewError(domain.KindInvalidRequest, "Ground truth file is required when not using default")
	}

	return a.Engine.Score(ctx, req)
}

// PublishScores writes batch scores to CloudWatch. It is a no-op when no
// publisher is configured.
func (a *Activities) PublishScores(ctx context.Context, in PublishScoresInput) (PublishScoresOutput, error) {
	a.Metrics.RecordActivity(ctx, "PublishScores")
	if a.Publisher == nil || len(in.Scores) == 0 {
		return PublishScoresOutput{Skipped: true}, nil
	}

	scores := make([]cloudwatch.Score, len(in.Scores))
	for i, s := range in.Scores {
		scores[i] = cloudwatch.Score{
			SubmissionID: s.SubmissionID,
			PBIAS:        s.PBIAS,
			Public:       s.Public,
			Private:      s.Private,
		}
	}
	n, err := a.Publisher.PublishScores(ctx, in.BatchID, scores)
	if err != nil {
		return PublishScoresOutput{Published: n}, fmt.Errorf("publish scores activity: %w", err)
	}
	return PublishScoresOutput{Published: n}, nil
}

func readError(what, uri string, err error) error {
	if domain.KindOf(err) != domain.KindInternal {
		return err
	}
	if errors.Is(err, storage.ErrNotFound) {
		return &domain.Error{
			Kind:    domain.KindInvalidRequest,
			Message: fmt.Sprintf("The %s file was not found", what),
			Details: []string{"Expected file at: " + uri},
			Err:     err,
		}
	}
	return &domain.Error{
		Kind:    domain.KindUnavailable,
		Message: fmt.Sprintf("The %s file could not be read", what),
		Details: []string{err.Error()},
		Err:     err,
	}
}

// NonRetryableKinds are the error kinds a retry cannot fix.
var NonRetryableKinds = []string{
	string(domain.KindParse),
	string(domain.KindShapeMismatch),
	string(domain.KindDegenerateGroundTruth),
	string(domain.KindSizeLimit),
	string(domain.KindInvalidRequest),
}

func toApplicationError(err error) error {
	de := domain.AsError(err)
	switch de.Kind {
	case domain.KindUnavailable, domain.KindTimeout, domain.KindInternal:
		return temporal.NewApplicationErrorWithCause(de.Message, string(de.Kind), err, de.Details)
	}
	return temporal.NewNonRetryableApplicationError(de.Message, string(de.Kind), err, de.Details)
}
