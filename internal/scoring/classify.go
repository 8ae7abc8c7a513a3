// Package scoring implements the PBIAS scoring engine: position
// classification, the percent-bias calculator, and the public/private split.
package scoring

import (
	"github.com/pbias-leaderboard/pbias-go/internal/domain"
	"github.com/pbias-leaderboard/pbias-go/internal/grid"
)

// Classify counts zero/non-zero agreement for every scored cell of the given
// rows. A nil rows slice means every row. Zero is tested with exact equality.
func Classify(sub, truth *grid.Grid, rows []int) domain.PositionStats {
	var p domain.PositionStats
	eachRow(sub.Rows(), rows, func(r int) {
		srow, trow := sub.Values[r], truth.Values[r]
		for c, s := range srow {
			t := trow[c]
			switch {
			case s == 0 && t == 0:
				p.BothZero++
			case s != 0 && t != 0:
				p.BothNonZero++
			case s != 0:
				p.SubmissionNonZeroTruthZero++
			default:
				p.SubmissionZeroTruthNonZero++
			}
			p.TotalPositions++
		}
	})
	p.FillLegacy()
	return p
}

func eachRow(n int, rows []int, fn func(int)) {
	if rows == nil {
		for r := range n {
			fn(r)
		}
		return
	}
	for _, r := range rows {
		fn(r)
	}
}
