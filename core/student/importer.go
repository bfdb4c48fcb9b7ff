package student

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/followup/core"
	"github.com/trezcool/followup/core/mentor"
	"github.com/trezcool/followup/core/sheet"
)

const (
	// MaxSkippedRows caps the diagnostics kept for a single upload.
	MaxSkippedRows = 200
	maxErrorLen    = 200
)

var errNoEnrollment = errors.New("enrollment is empty")

type (
	// SkippedRow explains why a sheet row was not imported.
	SkippedRow struct {
		Row     int      `json:"row"` // 1-based, as shown by spreadsheet apps
		Columns []string `json:"columns"`
		Error   string   `json:"error"`
	}

	ImportSummary struct {
		Added       int          `json:"added"`
		Updated     int          `json:"updated"`
		Skipped     int          `json:"skipped"`
		SkippedRows []SkippedRow `json:"skipped_rows"`
	}
)

func (sum *ImportSummary) skip(line int, columns []string, err error) {
	sum.Skipped++
	if len(sum.SkippedRows) < MaxSkippedRows {
		sum.SkippedRows = append(sum.SkippedRows, SkippedRow{
			Row:     line,
			Columns: columns,
			Error:   core.Truncate(err.Error(), maxErrorLen),
		})
	}
}

func (sum ImportSummary) String() string {
	return fmt.Sprintf("Added: %d | Updated: %d | Skipped: %d", sum.Added, sum.Updated, sum.Skipped)
}

// column keywords, most specific first
var (
	enrollmentKeys = [][]string{{"enrol"}}
	nameKeys       = [][]string{{"name of student"}, {"student name"}, {"the name must be"}}
	rollKeys       = [][]string{{"roll no"}, {"roll"}}
	mentorFullKeys = [][]string{{"mentor", "full"}}
	mentorKeys     = [][]string{{"short name of mentor"}, {"short", "mentor"}, {"mentor"}}
	fatherKeys     = [][]string{{"father"}, {"parent no"}}
	motherKeys     = [][]string{{"mother"}}
	studentNoKeys  = [][]string{{"student no"}, {"student mobile"}, {"student contact"}}
	batchKeys      = [][]string{{"branch"}, {"batch"}}
)

type columnMap struct {
	enrollment, name, roll, mentor, mentorFull, father, mother, student, batch int
}

// findCol is sheet.FindColAny skipping columns already claimed by another field; -1 when absent.
func findCol(columns []string, taken map[int]bool, keywordSets [][]string) int {
	for _, keys := range keywordSets {
		for i, col := range columns {
			if taken[i] {
				continue
			}
			if _, ok := sheet.ResolveCol([]string{col}, keys...); ok {
				taken[i] = true
				return i
			}
		}
	}
	return -1
}

func locateColumns(columns []string) columnMap {
	taken := make(map[int]bool)
	cm := columnMap{enrollment: findCol(columns, taken, enrollmentKeys)}
	cm.mentorFull = findCol(columns, taken, mentorFullKeys)
	cm.mentor = findCol(columns, taken, mentorKeys)
	cm.name = findCol(columns, taken, nameKeys)
	cm.roll = findCol(columns, taken, rollKeys)
	cm.father = findCol(columns, taken, fatherKeys)
	cm.mother = findCol(columns, taken, motherKeys)
	cm.student = findCol(columns, taken, studentNoKeys)
	cm.batch = findCol(columns, taken, batchKeys)
	return cm
}

func cell(row sheet.Row, idx int) string {
	if idx < 0 {
		return ""
	}
	return row.Text(idx)
}

// remapMerged points the cached keys of deleted mentors at the mentor they were merged into.
func remapMerged(mentors map[string]mentor.Mentor, merged []int, into mentor.Mentor) {
	for _, id := range merged {
		for key, m := range mentors {
			if m.ID == id {
				mentors[key] = into
			}
		}
	}
}

func phone(v string) string {
	return core.Truncate(sheet.FormatPhone(v), maxPhoneLen)
}

// Import upserts the students of a student-master workbook into the module.
// Rows failing on their own are reported in the summary and never abort the upload.
func (svc *Service) Import(ctx context.Context, moduleID int, r io.Reader) (ImportSummary, error) {
	var summary ImportSummary

	wb, err := sheet.Open(r)
	if err != nil {
		return summary, core.NewImportError("Could not read the Excel file: " + errors.Cause(err).Error())
	}
	defer func() { _ = wb.Close() }()

	g, _, err := wb.FirstGrid()
	if err != nil {
		return summary, errors.Wrap(err, "reading student sheet")
	}
	header, _ := sheet.FindHeaderRow(g, sheet.StudentHeader)
	tbl := sheet.SingleHeaderTable(g, header)

	cols := locateColumns(tbl.Columns)
	if cols.enrollment < 0 {
		return summary, core.NewImportError("Enrollment column not found")
	}

	mentors := make(map[string]mentor.Mentor)
	for i, row := range tbl.Rows {
		created, err := svc.importRow(ctx, moduleID, row, cols, mentors)
		switch {
		case err != nil:
			summary.skip(tbl.Lines[i], tbl.Columns, err)
		case created:
			summary.Added++
		default:
			summary.Updated++
		}
	}

	svc.logger.Info(fmt.Sprintf("student import (module %d): %s", moduleID, summary))
	return summary, nil
}

func (svc *Service) importRow(ctx context.Context, moduleID int, row sheet.Row, cols columnMap, mentors map[string]mentor.Mentor) (bool, error) {
	enrollment := core.Truncate(sheet.CleanEnrollment(row.Text(cols.enrollment)), maxEnrollmentLen)
	if enrollment == "" {
		return false, errNoEnrollment
	}

	short := sheet.SafeText(cell(row, cols.mentor), maxMentorLen)
	full := sheet.SafeText(cell(row, cols.mentorFull), maxNameLen)
	key := strings.ToLower(short + "|" + full)
	m, ok := mentors[key]
	if !ok {
		var (
			merged []int
			err    error
		)
		if m, merged, err = svc.mentors.Consolidate(ctx, short, full); err != nil {
			return false, errors.Wrap(err, "resolving mentor")
		}
		mentors[key] = m
		remapMerged(mentors, merged, m)
	}

	_, created, err := svc.repo.Upsert(ctx, Student{
		ModuleID:      moduleID,
		Enrollment:    enrollment,
		RollNo:        sheet.SafeInt(cell(row, cols.roll)),
		Name:          sheet.SafeText(cell(row, cols.name), maxNameLen),
		Batch:         sheet.SafeText(cell(row, cols.batch), maxBatchLen),
		MentorID:      m.ID,
		StudentMobile: phone(cell(row, cols.student)),
		FatherMobile:  phone(cell(row, cols.father)),
		MotherMobile:  phone(cell(row, cols.mother)),
	})
	if err != nil {
		return false, errors.Wrap(err, "saving student")
	}
	return created, nil
}
