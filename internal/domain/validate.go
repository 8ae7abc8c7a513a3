package domain

import (
	"fmt"
	"math"
)

// ValidateColumnRange checks an unresolved range.
func ValidateColumnRange(c ColumnRange) error {
	if c.Start < 1 {
		return fmt.Errorf("start_column must be >= 1, got %d", c.Start)
	}
	if c.End != 0 && c.End < c.Start {
		return fmt.Errorf("end_column %d is before start_column %d", c.End, c.Start)
	}
	return nil
}

// ValidateSplitFraction checks a public split fraction. Zero disables the split.
func ValidateSplitFraction(f float64) error {
	if math.IsNaN(f) || f < 0 || f >= 1 {
		return fmt.Errorf("split fraction must be in [0, 1), got %v", f)
	}
	return nil
}

// ValidatePositionStats checks the category invariant.
func ValidatePositionStats(p PositionStats) error {
	if p.CategorySum() != p.TotalPositions {
		return fmt.Errorf("position categories sum to %d, expected %d", p.CategorySum(), p.TotalPositions)
	}
	if p.Matches != p.BothZero+p.BothNonZero {
		return fmt.Errorf("matches %d does not equal both_zero + both_nonzero", p.Matches)
	}
	return nil
}

// ValidateScoreResult checks the structural invariants of a report.
func ValidateScoreResult(r ScoreResult) error {
	if !r.Metric.Valid() {
		return fmt.Errorf("invalid metric: %q", r.Metric)
	}
	if r.SubmissionShape.Rows != r.GroundTruthShape.Rows {
		return fmt.Errorf("row counts differ: %d vs %d", r.SubmissionShape.Rows, r.GroundTruthShape.Rows)
	}
	if err := ValidatePositionStats(r.PositionStats); err != nil {
		return fmt.Errorf("position_stats: %w", err)
	}
	if (r.PBIASPublic == nil) != (r.PBIASPrivate == nil) {
		return fmt.Errorf("pbias_public and pbias_private must be set together")
	}
	if r.HasSplit() {
		if r.PublicRows == nil || r.PrivateRows == nil {
			return fmt.Errorf("split rows missing")
		}
		if *r.PublicRows+*r.PrivateRows != r.SubmissionShape.Rows {
			return fmt.Errorf("split rows %d + %d do not cover %d rows", *r.PublicRows, *r.PrivateRows, r.SubmissionShape.Rows)
		}
		if r.PublicPositionStats != nil {
			if err := ValidatePositionStats(*r.PublicPositionStats); err != nil {
				return fmt.Errorf("public_position_stats: %w", err)
			}
		}
		if r.PrivatePositionStats != nil {
			if err := ValidatePositionStats(*r.PrivatePositionStats); err != nil {
				return fmt.Errorf("private_position_stats: %w", err)
			}
		}
	}
	return nil
}
