package scoring

import (
	"fmt"
	"math"

	"github.com/pbias-leaderboard/pbias-go/internal/domain"
	"github.com/pbias-leaderboard/pbias-go/internal/grid"
)

// PBIAS returns 100 * Σ(truth - sub) / Σtruth over the scored cells of rows
// (nil means all rows). Positive values mean the submission underestimates.
// A zero denominator is a DegenerateGroundTruth error.
func PBIAS(sub, truth *grid.Grid, rows []int) (float64, error) {
	var diff, total float64
	eachRow(sub.Rows(), rows, func(r int) {
		srow, trow := sub.Values[r], truth.Values[r]
		for c, t := range trow {
			diff += t - srow[c]
			total += t
		}
	})
	return percent(diff, total, rowCount(sub.Rows(), rows))
}

// AbsPBIAS returns 100 * Σ|sub - truth| / Σtruth, the unsigned leaderboard
// variant.
func AbsPBIAS(sub, truth *grid.Grid, rows []int) (float64, error) {
	var diff, total float64
	eachRow(sub.Rows(), rows, func(r int) {
		srow, trow := sub.Values[r], truth.Values[r]
		for c, t := range trow {
			diff += math.Abs(srow[c] - t)
			total += t
		}
	})
	return percent(diff, total, rowCount(sub.Rows(), rows))
}

func rowCount(n int, rows []int) int {
	if rows == nil {
		return n
	}
	return len(rows)
}

func percent(num, den float64, n int) (float64, error) {
	if den == 0 {
		return 0, domain.DegenerateGroundTruthError(fmt.Sprintf("ground truth sum is 0 over %d rows", n))
	}
	return 100 * num / den, nil
}

// Calculator computes one of the bias metrics.
type Calculator func(sub, truth *grid.Grid, rows []int) (float64, error)

// CalculatorFor returns the calculator for m.
func CalculatorFor(m domain.Metric) (Calculator, error) {
	switch m {
	case domain.MetricPBIAS, "":
		return PBIAS, nil
	case domain.MetricAbsPBIAS:
		return AbsPBIAS, nil
	}
	return nil, fmt.Errorf("unknown metric %q", m)
}
