// Package domain holds the shared scoring types: shapes, column ranges,
// position statistics, score results, and structured errors.
package domain

import (
	"encoding/json"
	"fmt"
)

// Shape is the (rows, columns) size of a parsed table. It serializes as a
// two-element JSON array.
type Shape struct {
	Rows int
	Cols int
}

func (s Shape) String() string {
	return fmt.Sprintf("%d rows × %d columns", s.Rows, s.Cols)
}

func (s Shape) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{s.Rows, s.Cols})
}

func (s *Shape) UnmarshalJSON(b []byte) error {
	var pair [2]int
	if err := json.Unmarshal(b, &pair); err != nil {
		return fmt.Errorf("shape: %w", err)
	}
	s.Rows, s.Cols = pair[0], pair[1]
	return nil
}

// ColumnRange selects the scored columns. Start and End are 1-based and
// inclusive. End == 0 means "through the last column".
type ColumnRange struct {
	Start int `json:"start_column"`
	End   int `json:"end_column"`
}

// DefaultColumnRange skips the five identifier columns that lead every table.
func DefaultColumnRange() ColumnRange {
	return ColumnRange{Start: 6}
}

// Width is the number of columns covered by a resolved range.
func (c ColumnRange) Width() int {
	if c.End < c.Start {
		return 0
	}
	return c.End - c.Start + 1
}

// Resolve pins End against a table with cols columns.
func (c ColumnRange) Resolve(cols int) (ColumnRange, error) {
	if c.Start < 1 {
		return ColumnRange{}, fmt.Errorf("start_column must be >= 1, got %d", c.Start)
	}
	end := c.End
	if end == 0 {
		end = cols
	}
	if end < c.Start {
		return ColumnRange{}, fmt.Errorf("end_column %d is before start_column %d", end, c.Start)
	}
	if end > cols {
		return ColumnRange{}, fmt.Errorf("end_column %d exceeds column count %d", end, cols)
	}
	return ColumnRange{Start: c.Start, End: end}, nil
}

// PositionStats counts the four zero/non-zero categories of every compared
// cell pair. BothZero+BothNonZero+SubmissionNonZeroTruthZero+
// SubmissionZeroTruthNonZero always equals TotalPositions.
type PositionStats struct {
	TotalPositions             int `json:"total_positions"`
	BothZero                   int `json:"both_zero"`
	BothNonZero                int `json:"both_nonzero"`
	SubmissionNonZeroTruthZero int `json:"submission_nonzero_truth_zero"`
	SubmissionZeroTruthNonZero int `json:"submission_zero_truth_nonzero"`

	// Legacy aggregates kept for older report consumers.
	Matches                 int `json:"matches"`
	Mismatches              int `json:"mismatches"`
	OnlyGroundTruthPositive int `json:"only_groundtruth_positive"`
	OnlySubmissionPositive  int `json:"only_submission_positive"`
}

// FillLegacy derives the legacy aggregate fields from the four categories.
func (p *PositionStats) FillLegacy() {
	p.Matches = p.BothZero + p.BothNonZero
	p.Mismatches = p.SubmissionNonZeroTruthZero + p.SubmissionZeroTruthNonZero
	p.OnlyGroundTruthPositive = p.SubmissionZeroTruthNonZero
	p.OnlySubmissionPositive = p.SubmissionNonZeroTruthZero
}

// CategorySum is the sum of the four exclusive categories.
func (p PositionStats) CategorySum() int {
	return p.BothZero + p.BothNonZero + p.SubmissionNonZeroTruthZero + p.SubmissionZeroTruthNonZero
}

// ScoreResult is the report produced for one scoring request.
type ScoreResult struct {
	PBIASScore       float64       `json:"pbias_score"`
	Metric           Metric        `json:"metric"`
	SubmissionShape  Shape         `json:"submission_shape"`
	GroundTruthShape Shape         `json:"groundtruth_shape"`
	StartColumn      int           `json:"start_column"`
	EndColumn        int           `json:"end_column"`
	PositionStats    PositionStats `json:"position_stats"`

	PBIASPublic          *float64       `json:"pbias_public,omitempty"`
	PBIASPrivate         *float64       `json:"pbias_private,omitempty"`
	PublicRows           *int           `json:"public_rows,omitempty"`
	PrivateRows          *int           `json:"private_rows,omitempty"`
	PublicPositionStats  *PositionStats `json:"public_position_stats,omitempty"`
	PrivatePositionStats *PositionStats `json:"private_position_stats,omitempty"`
	SplitFraction        float64        `json:"split_fraction,omitempty"`
	SplitSeed            *uint64        `json:"split_seed,omitempty"`

	UsedDefault    bool    `json:"used_default"`
	ProcessingTime float64 `json:"processing_time"`
	Warnings       string  `json:"warnings,omitempty"`
	RequestID      string  `json:"request_id,omitempty"`
}

// HasSplit reports whether public/private scores were computed.
func (r *ScoreResult) HasSplit() bool {
	return r.PBIASPublic != nil && r.PBIASPrivate != nil
}

// DefaultGroundTruthInfo is the availability report for the server-held
// ground truth dataset.
type DefaultGroundTruthInfo struct {
	Exists bool   `json:"exists"`
	Shape  *Shape `json:"shape,omitempty"`
	Error  string `json:"error,omitempty"`
}
