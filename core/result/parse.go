package result

import (
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/followup/core"
	"github.com/trezcool/followup/core/sheet"
)

// Row is one student line read from a result sheet.
type Row struct {
	Line       int
	Enrollment string
	Marks
}

// lastRowPerEnrollment keeps one row per enrollment, in first-seen order, holding the marks of its last occurrence.
func lastRowPerEnrollment(rows []Row) []Row {
	index := make(map[string]int, len(rows))
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		if i, ok := index[r.Enrollment]; ok {
			out[i] = r
			continue
		}
		index[r.Enrollment] = len(out)
		out = append(out, r)
	}
	return out
}

// column keyword preferences, most specific first
var (
	t1Keys    = [][]string{{"test-1", "25"}, {"test 1", "25"}, {"t1"}, {"test-1"}, {"test 1"}}
	t2Keys    = [][]string{{"test-2", "25"}, {"test 2", "25"}, {"t2"}, {"test-2"}, {"test 2"}}
	t3Keys    = [][]string{{"test-3", "25"}, {"test 3", "25"}, {"t3"}, {"test-3"}, {"test 3"}}
	t4Keys    = [][]string{{"test-4", "50"}, {"test 4", "50"}, {"see", "50"}, {"t4", "50"}, {"t4"}, {"test-4"}, {"test 4"}}
	totalKeys = [][]string{{"total", "100"}, {"total"}}

	currentKeys = map[string][][]string{
		T1:       t1Keys,
		T2:       t2Keys,
		T3:       t3Keys,
		T4:       {{"test-4", "50"}, {"test 4", "50"}, {"see", "50"}, {"t4", "50"}, {"t4"}, {"see"}, {"test-4"}, {"test 4"}},
		Remedial: {{"remedial"}, {"marks"}},
	}

	testTokens = []string{"test", "t1", "t2", "t3", "t4", "see", "rem"}
)

const numericScanLimit = 100

func isMark(v string) bool {
	mark, _ := sheet.ToMark(v)
	return mark.Valid
}

// currentMarkCol finds the column of the test being imported: keyword preferences first,
// then a column naming the subject & a test, then a "marks" column, then the most numeric column.
func currentMarkCol(t sheet.Table, test, subjectName string) (int, bool) {
	if idx, ok := sheet.FindColAny(t.Columns, currentKeys[test]); ok {
		return idx, true
	}

	if subj := strings.ToLower(strings.TrimSpace(subjectName)); subj != "" {
		for idx, col := range t.Columns {
			name := strings.ToLower(col)
			if !strings.Contains(name, subj) {
				continue
			}
			for _, tok := range testTokens {
				if strings.Contains(name, tok) {
					return idx, true
				}
			}
		}
	}

	if idx, ok := sheet.ResolveCol(t.Columns, "marks"); ok {
		return idx, true
	}
	return sheet.BestNumericCol(t, numericScanLimit, isMark)
}

func optCol(cols []string, keys [][]string) int {
	if idx, ok := sheet.FindColAny(cols, keys); ok {
		return idx
	}
	return -1
}

func readMark(r sheet.Row, idx int) (mark null.Float64, absent bool) {
	if idx < 0 {
		return null.Float64{}, false
	}
	return sheet.ToMark(r.Text(idx))
}

// ParseSubjectSheet reads a one-subject result sheet for the given test.
// Absence only comes from the current test column.
func ParseSubjectSheet(r io.Reader, test, subjectName string) ([]Row, error) {
	wb, err := sheet.Open(r)
	if err != nil {
		return nil, core.NewImportError("Could not read the Excel file: " + errors.Cause(err).Error())
	}
	defer func() { _ = wb.Close() }()

	g, _, err := wb.FirstGrid()
	if err != nil {
		return nil, errors.Wrap(err, "reading result sheet")
	}

	header, _ := sheet.FindHeaderRow(g, sheet.ResultHeader, sheet.EnrollmentHeader)
	t := sheet.BuildTable(g, header)
	if t.Empty() {
		return nil, core.NewImportError("Excel file is empty")
	}

	enrollIdx, ok := sheet.ResolveCol(t.Columns, "enrol")
	if !ok {
		return nil, core.NewImportError("Enrollment column not found")
	}

	var (
		colT1    = optCol(t.Columns, t1Keys)
		colT2    = optCol(t.Columns, t2Keys)
		colT3    = optCol(t.Columns, t3Keys)
		colT4    = optCol(t.Columns, t4Keys)
		colTotal = optCol(t.Columns, totalKeys)
	)
	colCurrent, ok := currentMarkCol(t, test, subjectName)
	if !ok {
		colCurrent = -1
	}

	rows := make([]Row, 0, len(t.Rows))
	for i, row := range t.Rows {
		enrollment := sheet.CleanEnrollment(row.Text(enrollIdx))
		if enrollment == "" {
			continue
		}

		res := Row{Line: t.Lines[i], Enrollment: enrollment}
		res.Current, res.Absent = readMark(row, colCurrent)
		res.T1, _ = readMark(row, colT1)
		res.T2, _ = readMark(row, colT2)
		res.T3, _ = readMark(row, colT3)
		res.T4, _ = readMark(row, colT4)
		res.Total, _ = readMark(row, colTotal)
		rows = append(rows, res)
	}
	return rows, nil
}
