package attendance

import (
	"io"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/followup/core"
	"github.com/trezcool/followup/core/sheet"
)

// Entry is the percentage read for one enrollment.
type Entry struct {
	Enrollment string
	Percent    float64
}

type entries struct {
	list  []Entry
	index map[string]int
}

func (e *entries) set(enrollment string, pct float64) {
	if i, ok := e.index[enrollment]; ok {
		e.list[i].Percent = pct
		return
	}
	e.index[enrollment] = len(e.list)
	e.list = append(e.list, Entry{Enrollment: enrollment, Percent: pct})
}

func (e *entries) get(enrollment string) (float64, bool) {
	i, ok := e.index[enrollment]
	if !ok {
		return 0, false
	}
	return e.list[i].Percent, true
}

// pickSheet prefers the sheet holding overall figures.
func pickSheet(names []string) string {
	for _, s := range names {
		if strings.Contains(strings.ToUpper(s), "OVERALL") {
			return s
		}
	}
	return names[0]
}

// ReadSheet extracts enrollment -> overall attendance % from an attendance workbook.
// The table has a two-row header: the percentage column is labelled "Attendance" on top and "Overall" below.
func ReadSheet(r io.Reader) ([]Entry, error) {
	e, err := readSheet(r)
	if err != nil {
		return nil, err
	}
	return e.list, nil
}

func readSheet(r io.Reader) (*entries, error) {
	wb, err := sheet.Open(r)
	if err != nil {
		return nil, core.NewImportError("Could not read the Excel file: " + errors.Cause(err).Error())
	}
	defer func() { _ = wb.Close() }()

	names := wb.SheetNames()
	if len(names) == 0 {
		return nil, core.NewImportError("Excel file has no sheets")
	}
	g, err := wb.Grid(pickSheet(names))
	if err != nil {
		return nil, errors.Wrap(err, "reading attendance sheet")
	}

	header, _ := sheet.FindHeaderRow(g, sheet.AttendanceHeader)
	headers := sheet.TwoLevelHeaders(g, header)

	pctIdx, enrollIdx := -1, -1
	for i, h := range headers {
		if strings.Contains(strings.ToLower(h.Top), "attendance") && strings.Contains(strings.ToLower(h.Bottom), "overall") {
			pctIdx = i
			break
		}
	}
	if pctIdx < 0 {
		return nil, core.NewImportError("Attendance column not found in Excel")
	}
	for i, h := range headers {
		if strings.Contains(strings.ToLower(h.Top), "enrol") {
			enrollIdx = i
			break
		}
	}
	if enrollIdx < 0 {
		return nil, core.NewImportError("Enrollment column not found")
	}

	result := &entries{index: make(map[string]int)}
	for i := header + 2; i < len(g); i++ {
		row := g[i]
		enrollment := sheet.CleanEnrollment(row.Text(enrollIdx))
		pct := sheet.PercentToFloat(row.Get(pctIdx))
		if enrollment != "" && pct.Valid {
			result.set(enrollment, pct.Float64)
		}
	}
	return result, nil
}
