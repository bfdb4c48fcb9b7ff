package result

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/followup/core"
	"github.com/trezcool/followup/core/sheet"
)

// CompiledSheet is the tab holding every subject's marks side by side.
const CompiledSheet = "COMPILED"

// Rows of the compiled layout (0-based): subject names on line 7, exam headers on line 8, data from line 9.
const (
	compiledSubjectRow = 6
	compiledExamRow    = 7
	compiledDataRow    = 8
)

// Exam keys of a compiled subject block
const (
	KeyT1    = "t1"
	KeyT2    = "t2"
	KeyT3    = "t3"
	KeyT4_50 = "t4_50"
	KeyT4_25 = "t4_25"
	KeyT12   = "t12"
	KeyT123  = "t123"
	KeyTotal = "total"
)

// requiredKeys are the block columns needed to import each test.
var requiredKeys = map[string][]string{
	T1:       {KeyT1},
	T2:       {KeyT2, KeyT1, KeyT12},
	T3:       {KeyT3, KeyT1, KeyT2, KeyT123},
	T4:       {KeyT4_50, KeyT4_25, KeyT1, KeyT2, KeyT3, KeyTotal},
	Remedial: {KeyTotal},
}

// Block maps exam keys to column indexes.
type Block map[string]int

// Missing lists the keys required by `test` the block lacks.
func (b Block) Missing(test string) []string {
	var missing []string
	for _, k := range requiredKeys[test] {
		if _, ok := b[k]; !ok {
			missing = append(missing, k)
		}
	}
	return missing
}

// CompiledLayout is a parsed COMPILED tab.
type CompiledLayout struct {
	grid          sheet.Grid
	EnrollmentCol int
	Blocks        map[string]Block
	// Subjects are the block names, sorted.
	Subjects []string
}

// ExamKeyFromHeader classifies an exam header cell of a compiled block ("TEST-1 (25)" -> t1).
// Cumulative columns are checked first. An unknown header yields "".
func ExamKeyFromHeader(text string) string {
	t := strings.NewReplacer("\n", "", " ", "").Replace(strings.ToLower(text))
	token := sheet.NormKey(t)
	if t == "" || t == "nan" || token == "nan" {
		return ""
	}
	has := func(s string) bool {
		return strings.Contains(t, s) || strings.Contains(token, s)
	}

	switch {
	case has("t1+t2+t3") || has("t1t2t3"):
		return KeyT123
	case (has("t1+t2") || has("t1t2")) && !has("t3"):
		return KeyT12
	case (has("test-1") || has("test1")) && has("25"):
		return KeyT1
	case (has("test-2") || has("test2")) && has("25"):
		return KeyT2
	case (has("test-3") || has("test3")) && has("25"):
		return KeyT3
	case has("test-4") || has("test4"):
		if !has("50") && has("25") {
			return KeyT4_25
		}
		return KeyT4_50
	case strings.HasPrefix(t, "total") || strings.HasPrefix(token, "total"):
		return KeyTotal
	}
	return ""
}

func hasEnrollment(v string) bool {
	text := strings.ToLower(v)
	return strings.Contains(text, "enroll") || strings.Contains(text, "enrol")
}

// ReadCompiledLayout locates the enrollment column & subject blocks of the COMPILED tab.
func ReadCompiledLayout(r io.Reader) (*CompiledLayout, error) {
	wb, err := sheet.Open(r)
	if err != nil {
		return nil, core.NewImportError("Could not read the Excel file: " + errors.Cause(err).Error())
	}
	defer func() { _ = wb.Close() }()

	if !wb.HasSheet(CompiledSheet) {
		return nil, core.NewImportError("COMPILED sheet not found. Please upload compiled file with exact tab name COMPILED.")
	}
	g, err := wb.Grid(CompiledSheet)
	if err != nil {
		return nil, errors.Wrap(err, "reading compiled sheet")
	}
	if len(g) <= compiledDataRow {
		return nil, core.NewImportError("Compiled sheet format invalid. Expected headers in row 7-8 and data from row 9.")
	}

	subjectRow, examRow := g.Row(compiledSubjectRow), g.Row(compiledExamRow)
	layout := &CompiledLayout{grid: g, EnrollmentCol: -1, Blocks: make(map[string]Block)}
	for _, row := range []sheet.Row{subjectRow, examRow} {
		for idx := range row {
			if hasEnrollment(row.Text(idx)) {
				layout.EnrollmentCol = idx
				break
			}
		}
		if layout.EnrollmentCol >= 0 {
			break
		}
	}
	if layout.EnrollmentCol < 0 {
		return nil, core.NewImportError("Enrollment column not found in COMPILED row 7/8 headers.")
	}

	var current string
	for idx := 0; idx < g.Width(); idx++ {
		if s := sheet.CleanText(subjectRow.Text(idx)); s != "" {
			current = strings.TrimSpace(subjectRow.Text(idx))
		}
		key := ExamKeyFromHeader(examRow.Text(idx))
		if key == "" || current == "" {
			continue
		}
		if layout.Blocks[current] == nil {
			layout.Blocks[current] = make(Block)
		}
		layout.Blocks[current][key] = idx
	}

	for name := range layout.Blocks {
		layout.Subjects = append(layout.Subjects, name)
	}
	sort.Strings(layout.Subjects)
	if len(layout.Subjects) == 0 {
		return nil, core.NewImportError("No subject blocks with TEST headers found in COMPILED row 7/8.")
	}
	return layout, nil
}

// MatchCompiledSubject picks the block of a subject: exact normalized base name first, then containment either way.
func MatchCompiledSubject(subjectName string, found []string) (string, bool) {
	key := sheet.NormKey(sheet.SubjectBaseName(subjectName))
	for _, s := range found {
		if sheet.NormKey(sheet.SubjectBaseName(s)) == key {
			return s, true
		}
	}
	for _, s := range found {
		k := sheet.NormKey(sheet.SubjectBaseName(s))
		if strings.Contains(k, key) || strings.Contains(key, k) {
			return s, true
		}
	}
	return "", false
}

// Block returns the block matching a subject, checking it has every column `test` requires.
func (l *CompiledLayout) Block(subjectName, test string) (string, Block, error) {
	name, ok := MatchCompiledSubject(subjectName, l.Subjects)
	if !ok {
		return "", nil, core.NewImportError(fmt.Sprintf(
			"Selected subject '%s' not found in COMPILED row 7. Found subjects: %s",
			subjectName, strings.Join(l.Subjects, ", "),
		))
	}
	block := l.Blocks[name]
	if missing := block.Missing(test); len(missing) > 0 {
		return "", nil, core.NewImportError(fmt.Sprintf(
			"Missing required columns for %s in subject '%s': %s",
			test, name, strings.Join(missing, ", "),
		))
	}
	return name, block, nil
}

// Rows reads the marks of a block for `test`. Any absent mark of the block flags the row absent.
func (l *CompiledLayout) Rows(block Block, test string) []Row {
	var rows []Row
	for i := compiledDataRow; i < len(l.grid); i++ {
		line := l.grid[i]
		enrollment := sheet.CleanEnrollment(line.Text(l.EnrollmentCol))
		if enrollment == "" {
			continue
		}

		res := Row{Line: i + 1, Enrollment: enrollment}
		read := func(key string) null.Float64 {
			idx, ok := block[key]
			if !ok {
				return null.Float64{}
			}
			mark, absent := sheet.ToMark(line.Text(idx))
			res.Absent = res.Absent || absent
			return mark
		}
		m1, m2, m3, m4 := read(KeyT1), read(KeyT2), read(KeyT3), read(KeyT4_50)
		total, c12, c123 := read(KeyTotal), read(KeyT12), read(KeyT123)

		res.T1, res.T2, res.T3, res.T4 = m1, m2, m3, m4
		switch test {
		case T1:
			res.Current, res.Total = m1, m1
		case T2:
			res.Current = m2
			res.Total = firstValid(c12, sum(m1, m2), total)
		case T3:
			res.Current = m3
			res.Total = firstValid(c123, sum(m1, m2, m3), total)
		case T4:
			res.Current, res.Total = m4, total
		case Remedial:
			res.Current, res.Total = total, total
		}
		rows = append(rows, res)
	}
	return rows
}

func firstValid(values ...null.Float64) null.Float64 {
	for _, v := range values {
		if v.Valid {
			return v
		}
	}
	return null.Float64{}
}
