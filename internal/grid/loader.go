package grid

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/pbias-leaderboard/pbias-go/internal/domain"
)

const (
	maxCellDetails = 10
	ctxCheckEvery  = 1024
)

// Options controls how a table is parsed.
type Options struct {
	// Name labels the table in error details, e.g. "Submission file".
	Name string
	// Delimiter separates cells. Zero means ','.
	Delimiter rune
	// HasHeader treats the first record as column names.
	HasHeader bool
	// EmptyAsZero coerces null cells inside Range to 0 instead of failing.
	EmptyAsZero bool
	// Range selects the scored columns.
	Range domain.ColumnRange
}

// DefaultOptions returns the options used for uploaded tables.
func DefaultOptions(name string) Options {
	return Options{
		Name:      name,
		Delimiter: ',',
		HasHeader: true,
		Range:     domain.DefaultColumnRange(),
	}
}

var nullTokens = map[string]bool{
	"":     true,
	"NA":   true,
	"N/A":  true,
	"NaN":  true,
	"nan":  true,
	"null": true,
	"NULL": true,
	"None": true,
}

func isNull(cell string) bool {
	return nullTokens[strings.TrimSpace(cell)]
}

func newReader(r io.Reader, opts Options) *csv.Reader {
	cr := csv.NewReader(r)
	cr.Comma = opts.Delimiter
	if cr.Comma == 0 {
		cr.Comma = ','
	}
	cr.FieldsPerRecord = 0
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true
	return cr
}

func csvError(name string, err error) error {
	return domain.ParseError("Error parsing CSV files",
		fmt.Sprintf("Parser error: %s: %v", name, err),
		"Please check the file format and encoding",
	)
}

func emptyError(name string) error {
	return domain.ParseError("One or both CSV files are empty",
		fmt.Sprintf("%s is empty", name),
		"Please ensure both files contain data",
	)
}

// LoadBytes parses an in-memory payload.
func LoadBytes(ctx context.Context, b []byte, opts Options) (*Grid, error) {
	return Load(ctx, bytes.NewReader(b), opts)
}

// Load parses r into a Grid. Null cells and non-numeric cells inside the
// scored range are collected and reported together as one parse error.
func Load(ctx context.Context, r io.Reader, opts Options) (*Grid, error) {
	cr := newReader(r, opts)

	var header []string
	if opts.HasHeader {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return nil, emptyError(opts.Name)
		}
		if err != nil {
			return nil, csvError(opts.Name, err)
		}
		header = append([]string(nil), rec...)
	}

	var (
		g          = &Grid{Name: opts.Name, Header: header}
		cols       int
		nullCounts []int
		badCells   []string
		badTotal   int
	)

	for row := 0; ; row++ {
		if row%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("load %s: %w", opts.Name, err)
			}
		}
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, csvError(opts.Name, err)
		}

		if nullCounts == nil {
			cols = len(rec)
			rng, err := opts.Range.Resolve(cols)
			if err != nil {
				need := max(opts.Range.Start, opts.Range.End)
				return nil, domain.ShapeMismatchError("Data validation failed",
					fmt.Sprintf("Not enough columns in %s. Expected at least %d columns, got %d", opts.Name, need, cols))
			}
			g.Range = rng
			nullCounts = make([]int, cols)
		}

		values := make([]float64, g.Range.Width())
		for c, cell := range rec {
			col := c + 1
			inRange := col >= g.Range.Start && col <= g.Range.End
			if isNull(cell) {
				if !opts.EmptyAsZero {
					nullCounts[c]++
				}
				continue
			}
			if !inRange {
				continue
			}
			v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
			if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
				badTotal++
				if len(badCells) < maxCellDetails {
					badCells = append(badCells, fmt.Sprintf("%s: row %d column '%s' has non-numeric value %q",
						opts.Name, row+1, columnName(header, col), cell))
				}
				continue
			}
			values[col-g.Range.Start] = v
		}
		g.Values = append(g.Values, values)
	}

	if len(g.Values) == 0 {
		return nil, emptyError(opts.Name)
	}
	g.Shape = domain.Shape{Rows: len(g.Values), Cols: cols}

	var details []string
	for c, n := range nullCounts {
		if n > 0 {
			details = append(details, fmt.Sprintf("%s: Column '%s' has %d null values", opts.Name, columnName(header, c+1), n))
		}
	}
	details = append(details, badCells...)
	if badTotal > len(badCells) {
		details = append(details, fmt.Sprintf("... and %d more non-numeric cells", badTotal-len(badCells)))
	}
	if len(details) > 0 {
		return nil, domain.ParseError("Data validation failed", details...)
	}
	return g, nil
}

// Dimensions counts rows and columns without numeric coercion.
func Dimensions(r io.Reader, opts Options) (domain.Shape, error) {
	cr := newReader(r, opts)
	var shape domain.Shape
	if opts.HasHeader {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return domain.Shape{}, emptyError(opts.Name)
		}
		if err != nil {
			return domain.Shape{}, csvError(opts.Name, err)
		}
		shape.Cols = len(rec)
	}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return domain.Shape{}, csvError(opts.Name, err)
		}
		if shape.Cols == 0 {
			shape.Cols = len(rec)
		}
		shape.Rows++
	}
	return shape, nil
}
