package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShapeJSON(t *testing.T) {
	t.Parallel()
	b, err := json.Marshal(Shape{Rows: 120, Cols: 30})
	require.NoError(t, err)
	assert.JSONEq(t, `[120, 30]`, string(b))

	var s Shape
	require.NoError(t, json.Unmarshal([]byte(`[4, 7]`), &s))
	assert.Equal(t, Shape{Rows: 4, Cols: 7}, s)

	assert.Error(t, json.Unmarshal([]byte(`{"rows": 4}`), &s))
}

func TestColumnRangeResolve(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		in      ColumnRange
		cols    int
		want    ColumnRange
		wantErr bool
	}{
		{name: "open end", in: ColumnRange{Start: 6}, cols: 10, want: ColumnRange{Start: 6, End: 10}},
		{name: "explicit end", in: ColumnRange{Start: 2, End: 3}, cols: 10, want: ColumnRange{Start: 2, End: 3}},
		{name: "single column", in: ColumnRange{Start: 10, End: 10}, cols: 10, want: ColumnRange{Start: 10, End: 10}},
		{name: "too narrow", in: ColumnRange{Start: 6}, cols: 4, wantErr: true},
		{name: "end past table", in: ColumnRange{Start: 1, End: 11}, cols: 10, wantErr: true},
		{name: "zero start", in: ColumnRange{Start: 0}, cols: 10, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := tt.in.Resolve(tt.cols)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want.End-tt.want.Start+1, got.Width())
		})
	}
}

func TestFillLegacy(t *testing.T) {
	t.Parallel()
	p := PositionStats{
		TotalPositions:             10,
		BothZero:                   3,
		BothNonZero:                4,
		SubmissionNonZeroTruthZero: 1,
		SubmissionZeroTruthNonZero: 2,
	}
	p.FillLegacy()
	assert.Equal(t, 7, p.Matches)
	assert.Equal(t, 3, p.Mismatches)
	assert.Equal(t, 2, p.OnlyGroundTruthPositive)
	assert.Equal(t, 1, p.OnlySubmissionPositive)
	assert.NoError(t, ValidatePositionStats(p))
}

func TestScoreResultJSON_OmitsSplitWhenAbsent(t *testing.T) {
	t.Parallel()
	r := ScoreResult{
		PBIASScore:       9.5,
		Metric:           MetricPBIAS,
		SubmissionShape:  Shape{Rows: 2, Cols: 7},
		GroundTruthShape: Shape{Rows: 2, Cols: 7},
		StartColumn:      6,
		EndColumn:        7,
	}
	b, err := json.Marshal(r)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(b, &m))
	assert.NotContains(t, m, "pbias_public")
	assert.NotContains(t, m, "warnings")
	assert.Contains(t, m, "used_default")
	assert.Equal(t, []any{2.0, 7.0}, m["submission_shape"])
}
