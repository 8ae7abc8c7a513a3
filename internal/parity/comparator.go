package parity

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// numericFields are compared within a tolerance.
var numericFields = []string{"pbias_score", "pbias_public", "pbias_private"}

// exactFields must serialize identically.
var exactFields = []string{
	"public_rows",
	"private_rows",
	"submission_shape",
	"groundtruth_shape",
	"start_column",
	"end_column",
	"used_default",
	"position_stats",
	"public_position_stats",
	"private_position_stats",
}

// DefaultTolerance is the largest PBIAS difference treated as equal.
const DefaultTolerance = 1e-6

// Compare compares a local and a reference score report. Numeric fields
// match when they differ by at most tol; the rest must be equal once
// re-serialized. Fields absent from both reports are skipped.
func Compare(localJSON, refJSON []byte, tol float64) (*ComparisonResult, error) {
	var local, ref map[string]any
	if err := json.Unmarshal(localJSON, &local); err != nil {
		return nil, fmt.Errorf("parse local report: %w", err)
	}
	if err := json.Unmarshal(refJSON, &ref); err != nil {
		return nil, fmt.Errorf("parse reference report: %w", err)
	}
	if msg, ok := ref["error"].(string); ok {
		return nil, fmt.Errorf("reference scorer returned an error: %s", msg)
	}

	result := &ComparisonResult{AllMatch: true, Tolerance: tol}
	add := func(fc FieldComparison) {
		if !fc.Match {
			result.AllMatch = false
		}
		result.Fields = append(result.Fields, fc)
	}

	for _, f := range numericFields {
		lv, lok := local[f]
		rv, rok := ref[f]
		if !lok && !rok {
			continue
		}
		add(compareNumber(f, lv, rv, tol))
	}
	for _, f := range exactFields {
		lv, lok := local[f]
		rv, rok := ref[f]
		if !lok && !rok {
			continue
		}
		a, b := render(lv), render(rv)
		add(FieldComparison{Field: f, Local: a, Reference: b, Match: a == b})
	}

	result.Summary = "all fields match"
	if !result.AllMatch {
		var divergent []string
		for _, c := range result.Fields {
			if !c.Match {
				divergent = append(divergent, c.Field)
			}
		}
		result.Summary = fmt.Sprintf("divergence in: %s", strings.Join(divergent, ", "))
	}
	return result, nil
}

func compareNumber(field string, lv, rv any, tol float64) FieldComparison {
	fc := FieldComparison{Field: field, Local: render(lv), Reference: render(rv)}
	a, aok := lv.(float64)
	b, bok := rv.(float64)
	if !aok || !bok {
		return fc
	}
	d := math.Abs(a - b)
	fc.Delta = &d
	fc.Match = d <= tol
	return fc
}

// render serializes v compactly; missing values render as "null".
func render(v any) string {
	b, _ := json.Marshal(v) // safe: values came from Unmarshal
	return string(b)
}
