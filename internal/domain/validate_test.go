package domain

import "testing"

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

func TestValidateSplitFraction(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		f       float64
		wantErr bool
	}{
		{name: "disabled", f: 0},
		{name: "half", f: 0.5},
		{name: "negative", f: -0.1, wantErr: true},
		{name: "one", f: 1, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := ValidateSplitFraction(tt.f)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateSplitFraction(%v) error = %v, wantErr %v", tt.f, err, tt.wantErr)
			}
		})
	}
}

func TestValidateScoreResult(t *testing.T) {
	t.Parallel()
	stats := PositionStats{TotalPositions: 4, BothNonZero: 4}
	stats.FillLegacy()
	valid := ScoreResult{
		Metric:           MetricPBIAS,
		SubmissionShape:  Shape{Rows: 2, Cols: 2},
		GroundTruthShape: Shape{Rows: 2, Cols: 2},
		PositionStats:    stats,
	}
	tests := []struct {
		name    string
		modify  func(ScoreResult) ScoreResult
		wantErr bool
	}{
		{name: "valid", modify: func(r ScoreResult) ScoreResult { return r }},
		{name: "bad metric", modify: func(r ScoreResult) ScoreResult { r.Metric = "rmse"; return r }, wantErr: true},
		{name: "row mismatch", modify: func(r ScoreResult) ScoreResult { r.GroundTruthShape.Rows = 3; return r }, wantErr: true},
		{name: "broken categories", modify: func(r ScoreResult) ScoreResult { r.PositionStats.BothZero = 1; return r }, wantErr: true},
		{name: "half split", modify: func(r ScoreResult) ScoreResult { r.PBIASPublic = floatPtr(1); return r }, wantErr: true},
		{
			name: "split rows cover table",
			modify: func(r ScoreResult) ScoreResult {
				r.PBIASPublic, r.PBIASPrivate = floatPtr(1), floatPtr(2)
				r.PublicRows, r.PrivateRows = intPtr(1), intPtr(1)
				return r
			},
		},
		{
			name: "split rows short",
			modify: func(r ScoreResult) ScoreResult {
				r.PBIASPublic, r.PBIASPrivate = floatPtr(1), floatPtr(2)
				r.PublicRows, r.PrivateRows = intPtr(1), intPtr(0)
				return r
			},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := ValidateScoreResult(tt.modify(valid))
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateScoreResult() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
