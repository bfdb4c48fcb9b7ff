package sheet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strRow(values ...string) Row {
	r := make(Row, len(values))
	for i, v := range values {
		r[i] = Str(v)
	}
	return r
}

func TestFindHeaderRow(t *testing.T) {
	g := Grid{
		strRow("GOVERNMENT ENGINEERING COLLEGE"),
		strRow("Attendance Week 3"),
		strRow("Sr", "Roll No", "Enrollment", "Name of Student"),
		strRow("1", "1", "230101", "A"),
	}

	row, ok := FindHeaderRow(g, AttendanceHeader)
	require.True(t, ok)
	assert.Equal(t, 2, row)

	_, ok = FindHeaderRow(g, StudentHeader)
	assert.False(t, ok)

	g2 := Grid{
		strRow("Enrollment list"),
		strRow("Sr No", "Enrollment No", "Marks"),
	}
	row, ok = FindHeaderRow(g2, ResultHeader, EnrollmentHeader)
	require.True(t, ok)
	assert.Equal(t, 0, row, "\"enrollment\" alone satisfies both signatures")
}

func TestTwoLevelHeaders(t *testing.T) {
	g := Grid{
		strRow("Roll No", "Enrollment", "Name", "Attendance", ""),
		strRow("", "", "", "Week", "Overall"),
	}
	hdrs := TwoLevelHeaders(g, 0)
	require.Len(t, hdrs, 5)
	assert.Equal(t, Header{Top: "Attendance", Bottom: "Overall"}, hdrs[4])
	assert.Equal(t, Header{Top: "Enrollment"}, hdrs[1])
}

func TestBuildTable(t *testing.T) {
	g := Grid{
		strRow("Title"),
		strRow("Sr No", "Enrollment No", "Name", "Maths"),
		strRow("", "", "", "Test-1 (25)"),
		strRow("1", "230101.0", "A", "12"),
		strRow("", "", "", ""),
		strRow("2", "230102", "B", "AB"),
	}
	hdr, ok := FindHeaderRow(g, ResultHeader, EnrollmentHeader)
	require.True(t, ok)

	tbl := BuildTable(g, hdr)
	assert.Equal(t, []string{"Sr No", "Enrollment No", "Name", "Maths Test-1 (25)"}, tbl.Columns)
	require.Len(t, tbl.Rows, 2)
	assert.Equal(t, []int{4, 6}, tbl.Lines)

	idx, ok := FindColAny(tbl.Columns, [][]string{{"test-1", "25"}, {"t1"}})
	require.True(t, ok)
	assert.Equal(t, 3, idx)

	_, ok = ResolveCol(tbl.Columns, "total")
	assert.False(t, ok)
}

func TestBuildTable_noSubheader(t *testing.T) {
	g := Grid{
		strRow("Roll", "Enrollment", "Marks"),
		strRow("1", "230101", "30"),
	}
	tbl := BuildTable(g, 0)
	assert.Equal(t, []string{"Roll", "Enrollment", "Marks"}, tbl.Columns)
	require.Len(t, tbl.Rows, 1)
}

func TestBuildTable_dataRowsNotSubheaders(t *testing.T) {
	tests := []struct {
		name  string
		first Row
	}{
		{"numeric enrollment", Row{Num(1), Num(230125), Str("Asha"), Num(12)}},
		{"text enrollment", Row{Str("1"), Str("230125"), Str("Asha"), Num(50)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := Grid{
				strRow("Sr No", "Enrollment No", "Name", "Test-1"),
				tt.first,
				Row{Num(2), Num(230126), Str("Bhavin"), Num(20)},
			}
			tbl := BuildTable(g, 0)
			assert.Equal(t, []string{"Sr No", "Enrollment No", "Name", "Test-1"}, tbl.Columns)
			require.Len(t, tbl.Rows, 2)
			assert.Equal(t, "230125", tbl.Rows[0].Text(1))
		})
	}
}

func TestLooksSubheaderRow(t *testing.T) {
	assert.True(t, LooksSubheaderRow(strRow("", "", "Test-1 (25)")))
	assert.True(t, LooksSubheaderRow(strRow("", "", "(25)", "(50)")))
	assert.False(t, LooksSubheaderRow(strRow("1", "230125", "Asha")))
	assert.False(t, LooksSubheaderRow(Row{Num(25), Num(50)}))
	assert.False(t, LooksSubheaderRow(strRow("", "")))
}

func TestBestNumericCol(t *testing.T) {
	tbl := Table{
		Columns: []string{"enrollment", "name", "score"},
		Rows: []Row{
			strRow("230101", "A", "12"),
			strRow("230102", "B", "AB"),
			strRow("x", "C", "7"),
		},
	}
	accept := func(v string) bool {
		m, _ := ToMark(v)
		return m.Valid
	}
	idx, ok := BestNumericCol(tbl, 100, accept)
	require.True(t, ok)
	assert.Equal(t, 2, idx)
}
