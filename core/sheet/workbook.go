package sheet

import (
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"
)

// Workbook is a read-only view over an uploaded .xlsx file.
type Workbook struct {
	file   *excelize.File
	sheets []string
}

// Open parses an .xlsx stream.
func Open(r io.Reader) (*Workbook, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "opening workbook")
	}
	return &Workbook{file: f, sheets: f.GetSheetList()}, nil
}

func (wb *Workbook) Close() error {
	return wb.file.Close()
}

func (wb *Workbook) SheetNames() []string {
	return wb.sheets
}

func (wb *Workbook) HasSheet(name string) bool {
	for _, s := range wb.sheets {
		if s == name {
			return true
		}
	}
	return false
}

// Grid reads a whole sheet without any header interpretation.
// Values are raw (unformatted) so a 0.85 stored with a percent format stays "0.85".
func (wb *Workbook) Grid(sheetName string) (Grid, error) {
	rows, err := wb.file.GetRows(sheetName, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, errors.Wrapf(err, "reading sheet %q", sheetName)
	}

	grid := make(Grid, len(rows))
	for r, values := range rows {
		row := make(Row, len(values))
		for c, value := range values {
			row[c] = Cell{Value: value}
			if value == "" {
				continue
			}
			if _, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err != nil {
				continue
			}
			axis, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return nil, errors.Wrap(err, "resolving cell name")
			}
			typ, err := wb.file.GetCellType(sheetName, axis)
			if err != nil {
				return nil, errors.Wrapf(err, "reading cell type of %s!%s", sheetName, axis)
			}
			// untyped cells are numbers in the OOXML schema
			row[c].Numeric = typ == excelize.CellTypeUnset || typ == excelize.CellTypeNumber
		}
		grid[r] = row
	}
	return grid, nil
}

// FirstGrid reads the first sheet of the workbook.
func (wb *Workbook) FirstGrid() (Grid, string, error) {
	if len(wb.sheets) == 0 {
		return nil, "", errors.New("workbook has no sheets")
	}
	g, err := wb.Grid(wb.sheets[0])
	return g, wb.sheets[0], err
}
