// Package activities defines the Temporal activity I/O structs and the
// Activities implementation that bridges Temporal's serialization boundary
// to the scoring engine and storage.
package activities

import "github.com/pbias-leaderboard/pbias-go/internal/domain"

// ScoreSubmissionInput identifies one submission to score. An empty
// GroundTruthURI scores against the default ground truth.
type ScoreSubmissionInput struct {
	BatchID        string              `json:"batch_id"`
	SubmissionID   string              `json:"submission_id"`
	SubmissionURI  string              `json:"submission_uri"`
	GroundTruthURI string              `json:"groundtruth_uri,omitempty"`
	Range          *domain.ColumnRange `json:"range,omitempty"`
}

// ScoreSubmissionOutput is the activity output from scoring.
type ScoreSubmissionOutput struct {
	Result domain.ScoreResult `json:"result"`
}

// PublishedScore is one scored entry handed to the publisher.
type PublishedScore struct {
	SubmissionID string   `json:"submission_id"`
	PBIAS        float64  `json:"pbias"`
	Public       *float64 `json:"pbias_public,omitempty"`
	Private      *float64 `json:"pbias_private,omitempty"`
}

// PublishScoresInput is the activity input for publishing batch scores.
type PublishScoresInput struct {
	BatchID string           `json:"batch_id"`
	Scores  []PublishedScore `json:"scores"`
}

// PublishScoresOutput reports how many datapoints were written.
type PublishScoresOutput struct {
	Published int  `json:"published"`
	Skipped   bool `json:"skipped"`
}
