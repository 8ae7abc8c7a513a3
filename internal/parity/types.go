// Package parity compares score reports from two scorers, typically this
// service and the legacy leaderboard scorer, on the same inputs.
package parity

// ComparisonResult is the top-level output of a parity run.
type ComparisonResult struct {
	Fields    []FieldComparison `json:"fields"`
	AllMatch  bool              `json:"all_match"`
	Summary   string            `json:"summary"`
	Tolerance float64           `json:"tolerance"`
}

// FieldComparison records the comparison for a single report field.
type FieldComparison struct {
	Field     string   `json:"field"`
	Local     string   `json:"local"`
	Reference string   `json:"reference"`
	Match     bool     `json:"match"`
	Delta     *float64 `json:"delta,omitempty"`
}
