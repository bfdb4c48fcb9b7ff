package sheet

import (
	"fmt"
	"strings"
	"unicode"
)

// HeaderSignature describes a header row: every token group must have at least one of its tokens
// present in the lower-cased text of the row.
type HeaderSignature [][]string

var (
	AttendanceHeader = HeaderSignature{{"roll"}, {"name"}}
	StudentHeader    = HeaderSignature{{"enrol", "enrollment"}, {"mentor"}}
	ResultHeader     = HeaderSignature{{"sr", "roll"}, {"enroll", "enrol"}}
	EnrollmentHeader = HeaderSignature{{"enrollment", "enrol"}}
	PracticalHeader  = HeaderSignature{{"sr"}, {"no"}, {"enroll", "enrollment"}}
)

func (sig HeaderSignature) Matches(text string) bool {
	for _, group := range sig {
		var found bool
		for _, tok := range group {
			if strings.Contains(text, tok) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return len(sig) > 0
}

// FindHeaderRow scans g top-down and returns the first row matching one of sigs.
// Per row, signatures are tried in order, so a fallback signature only wins on rows above the preferred one.
func FindHeaderRow(g Grid, sigs ...HeaderSignature) (int, bool) {
	for i, row := range g {
		text := row.Lower()
		for _, sig := range sigs {
			if sig.Matches(text) {
				return i, true
			}
		}
	}
	return 0, false
}

// Header is one column label of a two-row (merged category + sub-label) header.
type Header struct {
	Top    string
	Bottom string
}

func headerText(v string) string {
	if isBlank(v) {
		return ""
	}
	return strings.TrimSpace(v)
}

// TwoLevelHeaders reads the header at rows `row` and `row+1`.
// Blank top labels inherit the label on their left (merged category cells).
func TwoLevelHeaders(g Grid, row int) []Header {
	top, bottom := g.Row(row), g.Row(row+1)
	width := len(top)
	if len(bottom) > width {
		width = len(bottom)
	}

	headers := make([]Header, width)
	var last string
	for i := 0; i < width; i++ {
		t := headerText(top.Text(i))
		if t == "" {
			t = last
		}
		last = t
		headers[i] = Header{Top: t, Bottom: headerText(bottom.Text(i))}
	}
	return headers
}

// Table is a data region with flattened column names.
type Table struct {
	Columns []string
	Rows    []Row
	// Lines holds the 1-based spreadsheet line of each row in Rows.
	Lines []int
}

func (t Table) Empty() bool {
	return len(t.Rows) == 0
}

var (
	subheaderKeys  = []string{"test", "t1", "t2", "t3", "t4", "see", "rem", "remedial", "total"}
	subheaderMarks = []string{"25", "50", "100"}
)

// LooksSubheaderRow tells whether a row under the header is a second header line (test labels, max marks).
// Numeric cells are data, and max marks only count as whole tokens so enrollments like 230125 are not taken for labels.
func LooksSubheaderRow(r Row) bool {
	parts := make([]string, 0, len(r))
	for _, c := range r {
		if v := strings.TrimSpace(c.Value); v != "" && !c.Numeric {
			parts = append(parts, strings.ToLower(v))
		}
	}
	text := strings.Join(parts, " ")
	if text == "" {
		return false
	}
	for _, k := range subheaderKeys {
		if strings.Contains(text, k) {
			return true
		}
	}
	tokens := strings.FieldsFunc(text, func(r rune) bool { return !unicode.IsLetter(r) && !unicode.IsDigit(r) })
	for _, tok := range tokens {
		for _, k := range subheaderMarks {
			if tok == k {
				return true
			}
		}
	}
	return false
}

// BuildTable flattens the header at `headerRow` (and the row below it, when it carries sub-labels)
// into "<top> <bottom>" column names and collects the non-blank data rows under it.
func BuildTable(g Grid, headerRow int) Table {
	row1, row2 := g.Row(headerRow), g.Row(headerRow+1)
	width := len(row1)
	if len(row2) > width {
		width = len(row2)
	}

	sub := LooksSubheaderRow(row2)
	if !sub {
		width = len(row1)
	}

	cols := make([]string, width)
	for i := range cols {
		col := headerText(row1.Text(i))
		if h2 := headerText(row2.Text(i)); sub && h2 != "" && !strings.Contains(strings.ToLower(h2), "unnamed") {
			col = strings.TrimSpace(col + " " + h2)
		}
		if col == "" {
			col = fmt.Sprintf("col_%d", i)
		}
		cols[i] = col
	}

	start := headerRow + 1
	if sub {
		start = headerRow + 2
	}
	return collect(g, cols, start)
}

// SingleHeaderTable uses the row at `headerRow` alone as header; column names are normalized.
func SingleHeaderTable(g Grid, headerRow int) Table {
	header := g.Row(headerRow)
	cols := make([]string, len(header))
	for i := range header {
		cols[i] = Normalize(header.Text(i))
		if cols[i] == "" {
			cols[i] = fmt.Sprintf("col_%d", i)
		}
	}
	return collect(g, cols, headerRow+1)
}

func collect(g Grid, cols []string, start int) Table {
	t := Table{Columns: cols}
	for i := start; i < len(g); i++ {
		if g[i].IsBlank() {
			continue
		}
		t.Rows = append(t.Rows, g[i])
		t.Lines = append(t.Lines, i+1)
	}
	return t
}

func lowerAll(columns []string) []string {
	out := make([]string, len(columns))
	for i, c := range columns {
		out[i] = strings.ToLower(strings.TrimSpace(c))
	}
	return out
}

func containsAll(s string, keys []string) bool {
	for _, k := range keys {
		if !strings.Contains(s, k) {
			return false
		}
	}
	return true
}

// ResolveCol returns the first column whose lower-cased name contains every keyword.
func ResolveCol(columns []string, keywords ...string) (int, bool) {
	for i, name := range lowerAll(columns) {
		if containsAll(name, keywords) {
			return i, true
		}
	}
	return 0, false
}

// FindColAny tries each keyword set in preference order; the first set matching any column wins.
func FindColAny(columns []string, keywordSets [][]string) (int, bool) {
	lower := lowerAll(columns)
	for _, keys := range keywordSets {
		for i, name := range lower {
			if containsAll(name, keys) {
				return i, true
			}
		}
	}
	return 0, false
}

// FindColContaining returns the first column whose name contains any one of keywords.
func FindColContaining(columns []string, keywords ...string) (int, bool) {
	for i, name := range lowerAll(columns) {
		for _, k := range keywords {
			if strings.Contains(name, k) {
				return i, true
			}
		}
	}
	return 0, false
}

// BestNumericCol picks the column with the most values accepted by `accept` among its first
// `limit` non-blank cells. Ties go to the leftmost column.
func BestNumericCol(t Table, limit int, accept func(string) bool) (int, bool) {
	best, bestScore := 0, -1
	for idx := range t.Columns {
		var seen, score int
		for _, row := range t.Rows {
			if seen >= limit {
				break
			}
			v := row.Text(idx)
			if isBlank(v) {
				continue
			}
			seen++
			if accept(v) {
				score++
			}
		}
		if score > bestScore {
			best, bestScore = idx, score
		}
	}
	return best, bestScore >= 0
}
