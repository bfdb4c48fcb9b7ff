package sheet

import (
	"strconv"
	"strings"
)

type (
	// Cell is a raw spreadsheet value. Numeric is set when the workbook stored the value as a number,
	// which matters for percentages kept as 0-1 fractions.
	Cell struct {
		Value   string
		Numeric bool
	}

	Row  []Cell
	Grid []Row
)

// Str builds a text cell.
func Str(v string) Cell { return Cell{Value: v} }

// Num builds a numeric cell.
func Num(v float64) Cell {
	return Cell{Value: strconv.FormatFloat(v, 'f', -1, 64), Numeric: true}
}

// Get returns the i-th cell or an empty one when the row is too short.
func (r Row) Get(i int) Cell {
	if i < 0 || i >= len(r) {
		return Cell{}
	}
	return r[i]
}

func (r Row) Text(i int) string {
	return r.Get(i).Value
}

func (r Row) IsBlank() bool {
	for _, c := range r {
		if !isBlank(c.Value) {
			return false
		}
	}
	return true
}

// Lower joins the lower-cased cell texts with a single space.
func (r Row) Lower() string {
	parts := make([]string, 0, len(r))
	for _, c := range r {
		parts = append(parts, strings.ToLower(strings.TrimSpace(c.Value)))
	}
	return strings.Join(parts, " ")
}

func (g Grid) Row(i int) Row {
	if i < 0 || i >= len(g) {
		return nil
	}
	return g[i]
}

// Width is the length of the longest row.
func (g Grid) Width() int {
	var w int
	for _, r := range g {
		if len(r) > w {
			w = len(r)
		}
	}
	return w
}
