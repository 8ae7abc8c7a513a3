// Package testutil builds CSV fixtures and in-memory stubs shared by tests.
package testutil

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// IDColumns are the identifier columns that lead every fixture table.
var IDColumns = []string{"id", "date", "lat", "lon", "site"}

// CSV renders values as a table with the five identifier columns followed by
// one column per value, matching the default scored range (6..last).
func CSV(values [][]float64) []byte {
	var b bytes.Buffer
	width := 0
	if len(values) > 0 {
		width = len(values[0])
	}
	header := append([]string(nil), IDColumns...)
	for i := range width {
		header = append(header, fmt.Sprintf("v%d", i+1))
	}
	b.WriteString(strings.Join(header, ","))
	b.WriteByte('\n')
	for r, row := range values {
		cells := []string{
			strconv.Itoa(r + 1),
			"2024-01-01",
			"52.1",
			"-1.3",
			fmt.Sprintf("site-%d", r%3),
		}
		for _, v := range row {
			cells = append(cells, strconv.FormatFloat(v, 'g', -1, 64))
		}
		b.WriteString(strings.Join(cells, ","))
		b.WriteByte('\n')
	}
	return b.Bytes()
}

// RawCSV renders a header and string rows verbatim.
func RawCSV(header []string, rows ...[]string) []byte {
	var b bytes.Buffer
	if header != nil {
		b.WriteString(strings.Join(header, ","))
		b.WriteByte('\n')
	}
	for _, row := range rows {
		b.WriteString(strings.Join(row, ","))
		b.WriteByte('\n')
	}
	return b.Bytes()
}

// Ramp returns a rows x cols grid whose cells count up from start.
func Ramp(rows, cols int, start float64) [][]float64 {
	out := make([][]float64, rows)
	v := start
	for r := range out {
		out[r] = make([]float64, cols)
		for c := range out[r] {
			out[r][c] = v
			v++
		}
	}
	return out
}

// Scale multiplies every cell by k.
func Scale(values [][]float64, k float64) [][]float64 {
	out := make([][]float64, len(values))
	for r, row := range values {
		out[r] = make([]float64, len(row))
		for c, v := range row {
			out[r][c] = v * k
		}
	}
	return out
}
