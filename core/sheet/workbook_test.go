package sheet

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestWorkbook_Grid(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()

	_, err := f.NewSheet("OVERALL")
	require.NoError(t, err)
	require.NoError(t, f.SetCellValue("OVERALL", "A1", "Enrollment"))
	require.NoError(t, f.SetCellValue("OVERALL", "B1", "Attendance"))
	require.NoError(t, f.SetCellValue("OVERALL", "A2", 230101))
	require.NoError(t, f.SetCellValue("OVERALL", "B2", 0.85))
	require.NoError(t, f.SetCellValue("OVERALL", "A3", "230102"))
	require.NoError(t, f.SetCellValue("OVERALL", "B3", "72.5%"))

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	wb, err := Open(buf)
	require.NoError(t, err)
	defer wb.Close()

	assert.Equal(t, []string{"Sheet1", "OVERALL"}, wb.SheetNames())
	assert.True(t, wb.HasSheet("OVERALL"))
	assert.False(t, wb.HasSheet("overall"))

	g, err := wb.Grid("OVERALL")
	require.NoError(t, err)
	require.Len(t, g, 3)

	assert.Equal(t, Cell{Value: "230101", Numeric: true}, g[1][0])
	assert.Equal(t, Cell{Value: "0.85", Numeric: true}, g[1][1])
	assert.Equal(t, Cell{Value: "230102"}, g[2][0])
	assert.Equal(t, Cell{Value: "72.5%"}, g[2][1])

	assert.Equal(t, 85.0, PercentToFloat(g[1][1]).Float64)
	assert.Equal(t, 72.5, PercentToFloat(g[2][1]).Float64)
}

func TestOpen_invalid(t *testing.T) {
	_, err := Open(strings.NewReader("not a workbook"))
	assert.Error(t, err)
}
