package practical

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/pmezard/go-difflib/difflib"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/followup/core"
	"github.com/trezcool/followup/core/sheet"
	"github.com/trezcool/followup/core/student"
	"github.com/trezcool/followup/core/subject"
)

const (
	titleScanRows        = 12
	minCompiledPRCols    = 2
	suggestionMinRatio   = 0.5
	compiledSheetScorePR = 10
)

// preferredSheets hold the combined layout, when present (the misspelling is found in real workbooks).
var preferredSheets = []string{"PRACTICLE COMPILED", "PRACTICAL COMPILED"}

type (
	// Suggestion is the configured subject closest to a header no subject matched.
	Suggestion struct {
		Header  string  `json:"header"`
		Subject string  `json:"subject"`
		Ratio   float64 `json:"ratio"`
	}

	Summary struct {
		RowsTotal      int          `json:"rows_total"`
		RowsMatched    int          `json:"rows_matched"`
		UnknownHeaders []string     `json:"unknown_headers"`
		Suggestions    []Suggestion `json:"suggestions"`
		Mode           string       `json:"mode"`
		SubjectName    string       `json:"subject_name,omitempty"`
		UploadedAt     time.Time    `json:"uploaded_at"`
	}

	Service struct {
		tx       core.TxRunner
		repo     Repository
		subjects subject.Repository
		students student.Repository
		logger   core.Logger
		nowFunc  func() time.Time
	}
)

func NewService(tx core.TxRunner, repo Repository, subjects subject.Repository, students student.Repository, logger core.Logger) *Service {
	return &Service{
		tx:       tx,
		repo:     repo,
		subjects: subjects,
		students: students,
		logger:   logger,
		nowFunc:  time.Now,
	}
}

func (svc *Service) Marks(ctx context.Context, filter QueryFilter) ([]Mark, error) {
	return svc.repo.FilterMarks(ctx, filter)
}

func headerCells(g sheet.Grid, row int) []string {
	r := g.Row(row)
	cols := make([]string, g.Width())
	for i := range cols {
		cols[i] = sheet.CleanText(r.Text(i))
	}
	return cols
}

func isPercentCol(raw, key string) bool {
	return strings.Contains(raw, "%") || strings.Contains(key, "percent")
}

// compiledScore rates how much a sheet looks like the combined layout: PR columns weigh 10, % columns 1.
func compiledScore(cols []string) (prCount, score int) {
	var pctCount int
	for _, c := range cols {
		key := sheet.NormKey(c)
		if strings.Contains(key, "pr") {
			prCount++
		}
		if isPercentCol(c, key) {
			pctCount++
		}
	}
	return prCount, prCount*compiledSheetScorePR + pctCount
}

// pickGrid selects the sheet to import & its header row.
func pickGrid(wb *sheet.Workbook) (sheet.Grid, int, error) {
	names := wb.SheetNames()
	if len(names) == 0 {
		return nil, 0, core.NewImportError("Excel file has no sheets")
	}

	var preferred bool
	for _, name := range preferredSheets {
		if !wb.HasSheet(name) {
			continue
		}
		preferred = true
		g, err := wb.Grid(name)
		if err != nil {
			return nil, 0, errors.Wrap(err, "reading practical sheet")
		}
		if header, ok := sheet.FindHeaderRow(g, sheet.PracticalHeader); ok {
			return g, header, nil
		}
		break
	}

	if !preferred {
		var (
			best       sheet.Grid
			bestHeader int
			bestScore  = -1
		)
		for _, name := range names {
			g, err := wb.Grid(name)
			if err != nil {
				return nil, 0, errors.Wrap(err, "reading practical sheet")
			}
			header, ok := sheet.FindHeaderRow(g, sheet.PracticalHeader)
			if !ok {
				continue
			}
			prCount, score := compiledScore(headerCells(g, header))
			if prCount >= minCompiledPRCols && score > bestScore {
				best, bestHeader, bestScore = g, header, score
			}
		}
		if best != nil {
			return best, bestHeader, nil
		}
	}

	g, err := wb.Grid(names[0])
	if err != nil {
		return nil, 0, errors.Wrap(err, "reading practical sheet")
	}
	header, ok := sheet.FindHeaderRow(g, sheet.PracticalHeader)
	if !ok {
		return nil, 0, core.NewImportError("Header row with 'Sr No' and 'Enrollment Number' not found.")
	}
	return g, header, nil
}

type columnPair struct {
	subject subject.Subject
	pr      int
	att     int
}

func keyMatches(col string, keys []string) bool {
	for _, k := range keys {
		if strings.Contains(col, k) {
			return true
		}
	}
	return false
}

// combinedColumns finds the PR & % columns of each subject. -1 marks a missing column.
func combinedColumns(cols []string, subjects []subject.Subject) []columnPair {
	pairs := make([]columnPair, 0, len(subjects))
	for _, s := range subjects {
		keys := subject.KeyCandidates(s)
		pair := columnPair{subject: s, pr: -1, att: -1}
		for idx, c := range cols {
			key := sheet.NormKey(c)
			if !keyMatches(key, keys) {
				continue
			}
			if pair.pr < 0 && strings.Contains(key, "pr") {
				pair.pr = idx
			}
			if pair.att < 0 && (strings.HasSuffix(key, "pct") || isPercentCol(c, key)) {
				pair.att = idx
			}
		}
		pairs = append(pairs, pair)
	}
	return pairs
}

// unknownHeaders lists the PR / % headers no configured subject claims.
func unknownHeaders(cols []string, subjects []subject.Subject) []string {
	var unknown []string
	for _, c := range cols {
		key := sheet.NormKey(c)
		if !strings.HasSuffix(key, "pr") && !isPercentCol(c, key) {
			continue
		}
		var matched bool
		for _, s := range subjects {
			if keyMatches(key, subject.KeyCandidates(s)) {
				matched = true
				break
			}
		}
		if !matched {
			unknown = append(unknown, c)
		}
	}
	return unknown
}

// suggest pairs each unknown header with the most similar subject key.
func suggest(headers []string, subjects []subject.Subject) []Suggestion {
	var out []Suggestion
	for _, h := range headers {
		key := strings.TrimSuffix(strings.TrimSuffix(sheet.NormKey(h), "percent"), "pr")
		if key == "" {
			continue
		}
		best := Suggestion{Header: h}
		for _, s := range subjects {
			for _, k := range subject.KeyCandidates(s) {
				ratio := difflib.NewMatcher(strings.Split(key, ""), strings.Split(k, "")).Ratio()
				if ratio > best.Ratio {
					best.Subject, best.Ratio = s.Name, ratio
				}
			}
		}
		if best.Ratio >= suggestionMinRatio {
			out = append(out, best)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Ratio > out[j].Ratio })
	return out
}

func isCombined(cols []string) bool {
	for _, c := range cols {
		if strings.Contains(c, "-") && (strings.Contains(strings.ToUpper(c), "PR") || strings.Contains(c, "%")) {
			return true
		}
	}
	return false
}

// titleSubject reads the subject of a subject-wise sheet from its "Subject Name: ..." title cell.
func titleSubject(g sheet.Grid) string {
	for i := 0; i < titleScanRows && i < len(g); i++ {
		for _, c := range g[i] {
			cell := strings.TrimSpace(c.Value)
			if !strings.Contains(strings.ToLower(cell), "subject name") {
				continue
			}
			if parts := strings.SplitN(cell, ":", 2); len(parts) == 2 {
				return strings.TrimSpace(parts[1])
			}
			return cell
		}
	}
	return ""
}

// finalMarksCol finds "Final Practical Marks (out of 100)", filling blank headers from the row below. Defaults to the last column.
func finalMarksCol(g sheet.Grid, header int, cols []string) int {
	scan := make([]string, len(cols))
	copy(scan, cols)
	sub := g.Row(header + 1)
	for i := range scan {
		if scan[i] == "" {
			scan[i] = sheet.CleanText(sub.Text(i))
		}
	}
	for i, c := range scan {
		key := sheet.NormKey(c)
		if strings.Contains(key, "finalpracticalmarks") || (strings.Contains(key, "practical") && strings.Contains(key, "100")) {
			return i
		}
	}
	return len(scan) - 1
}

// Import loads a practical marks workbook into the module. A combined workbook replaces the module's
// whole practical dataset; a subject-wise one replaces the marks of its subject only.
func (svc *Service) Import(ctx context.Context, moduleID int, uploadedBy string, r io.Reader) (Summary, error) {
	wb, err := sheet.Open(r)
	if err != nil {
		return Summary{}, core.NewImportError("Could not read the Excel file: " + errors.Cause(err).Error())
	}
	defer func() { _ = wb.Close() }()

	g, header, err := pickGrid(wb)
	if err != nil {
		return Summary{}, err
	}
	cols := headerCells(g, header)

	enrollIdx := -1
	for i, c := range cols {
		if strings.Contains(sheet.NormKey(c), "enroll") {
			enrollIdx = i
			break
		}
	}
	if enrollIdx < 0 {
		return Summary{}, core.NewImportError("Enrollment Number column not found.")
	}

	subjects, err := svc.subjects.List(ctx, moduleID, true)
	if err != nil {
		return Summary{}, errors.Wrap(err, "listing subjects")
	}
	if len(subjects) == 0 {
		return Summary{}, core.NewImportError("No subjects configured for selected module. Please add subjects first.")
	}
	subject.Sort(subjects)

	sum := Summary{Mode: ModeSubject, UnknownHeaders: unknownHeaders(cols, subjects)}
	sum.Suggestions = suggest(sum.UnknownHeaders, subjects)

	var (
		pairs    []columnPair
		titled   subject.Subject
		finalCol int
	)
	if isCombined(cols) {
		sum.Mode = ModeCombined
		pairs = combinedColumns(cols, subjects)
	} else {
		text := titleSubject(g)
		var ok bool
		if titled, ok = subject.MatchByText(text, subjects); !ok {
			return Summary{}, core.NewImportError(fmt.Sprintf(
				"Could not map subject from sheet title '%s'. Set proper short name in Manage Subjects.", text))
		}
		sum.SubjectName = titled.Name
		finalCol = finalMarksCol(g, header, cols)
	}

	err = svc.tx.RunInTx(ctx, func(exec core.DBExecutor) error {
		upload, err := svc.repo.CreateUpload(ctx, Upload{ModuleID: moduleID, UploadedBy: uploadedBy, UploadedAt: svc.nowFunc().UTC()}, exec)
		if err != nil {
			return errors.Wrap(err, "creating upload")
		}

		if sum.Mode == ModeCombined {
			_, err = svc.repo.DeleteModuleMarks(ctx, moduleID, exec)
		} else {
			_, err = svc.repo.DeleteSubjectMarks(ctx, moduleID, titled.ID, exec)
		}
		if err != nil {
			return errors.Wrap(err, "deleting practical marks")
		}

		var marks []Mark
		for i := header + 1; i < len(g); i++ {
			row := g[i]
			enrollment := sheet.CleanEnrollment(row.Text(enrollIdx))
			if row.IsBlank() || enrollment == "" {
				continue
			}
			sum.RowsTotal++

			stud, err := svc.students.GetByEnrollment(ctx, moduleID, enrollment, exec)
			if err != nil {
				if errors.Cause(err) == student.ErrNotFound {
					continue
				}
				return errors.Wrap(err, "getting student")
			}
			sum.RowsMatched++

			mark := Mark{ModuleID: moduleID, UploadID: upload.ID, StudentID: stud.ID}
			if sum.Mode == ModeSubject {
				mark.SubjectID = titled.ID
				mark.PRMarks = sheet.ParseFloat(row.Text(finalCol))
				marks = append(marks, mark)
				continue
			}
			for _, p := range pairs {
				mark.SubjectID = p.subject.ID
				mark.PRMarks, mark.AttendancePercentage = valueAt(row, p.pr), valueAt(row, p.att)
				if mark.PRMarks.Valid || mark.AttendancePercentage.Valid {
					marks = append(marks, mark)
				}
			}
		}

		if len(marks) > 0 {
			if err = svc.repo.CreateMarks(ctx, marks, exec); err != nil {
				return errors.Wrap(err, "saving practical marks")
			}
		}
		if _, err = svc.repo.DeleteBlankMarks(ctx, moduleID, exec); err != nil {
			return errors.Wrap(err, "deleting blank marks")
		}

		upload.RowsTotal, upload.RowsMatched = sum.RowsTotal, sum.RowsMatched
		sum.UploadedAt = upload.UploadedAt
		return svc.repo.SaveUploadStats(ctx, upload, exec)
	})
	if err != nil {
		return Summary{}, err
	}

	svc.logger.Info(fmt.Sprintf("practical import (module %d, %s): %d/%d rows matched, %d unknown headers",
		moduleID, sum.Mode, sum.RowsMatched, sum.RowsTotal, len(sum.UnknownHeaders)))
	return sum, nil
}

func valueAt(row sheet.Row, idx int) null.Float64 {
	if idx < 0 {
		return null.Float64{}
	}
	return sheet.ParseFloat(row.Text(idx))
}
