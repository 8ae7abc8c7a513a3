// Package grid parses delimited numeric tables into aligned in-memory grids.
package grid

import (
	"fmt"

	"github.com/pbias-leaderboard/pbias-go/internal/domain"
)

// Grid is a parsed table. Only the cells inside Range are kept, as numbers;
// Values[r][c] is row r, column Range.Start+c (1-based). A Grid is read-only
// once returned by Load.
type Grid struct {
	Name   string
	Header []string
	Shape  domain.Shape
	Range  domain.ColumnRange
	Values [][]float64
}

// Rows is the number of data rows.
func (g *Grid) Rows() int { return len(g.Values) }

// Width is the number of scored columns.
func (g *Grid) Width() int { return g.Range.Width() }

// Positions is the number of scored cells.
func (g *Grid) Positions() int { return g.Rows() * g.Width() }

// ColumnName returns the header of the 1-based column col, or a positional
// name for headerless tables.
func (g *Grid) ColumnName(col int) string {
	return columnName(g.Header, col)
}

func columnName(header []string, col int) string {
	if col >= 1 && col <= len(header) && header[col-1] != "" {
		return header[col-1]
	}
	return fmt.Sprintf("column %d", col)
}

// Align checks that two grids cover the same rows and the same scored
// columns.
func Align(sub, truth *Grid) error {
	if sub.Shape.Rows == truth.Shape.Rows && sub.Range == truth.Range {
		return nil
	}
	return domain.ShapeMismatchError("Data validation failed",
		fmt.Sprintf("Data shape mismatch: %s has %s, %s has %s",
			sub.Name, sub.Shape, truth.Name, truth.Shape),
	)
}
