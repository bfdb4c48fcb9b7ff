package attendance_test

import (
	"context"
	"io"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/followup/core"
	"github.com/trezcool/followup/core/attendance"
	"github.com/trezcool/followup/core/call"
	"github.com/trezcool/followup/core/mentor"
	"github.com/trezcool/followup/storage/database/inmem"
	testutil "github.com/trezcool/followup/tests"
)

type entry struct {
	enrollment interface{}
	pct        interface{}
}

// attendanceBook mimics the college export: title, two-row header, fractions in the Overall column.
func attendanceBook(t *testing.T, entries ...entry) io.Reader {
	rows := [][]interface{}{
		{"Attendance Report"},
		{"Roll No", "Name", "Enrollment", "Attendance", ""},
		{"", "", "", "Overall", "Week"},
	}
	for i, e := range entries {
		rows = append(rows, []interface{}{i + 1, "Student", e.enrollment, e.pct, ""})
	}
	return testutil.Workbook(t, testutil.Sheet{Name: "OVERALL", Rows: rows})
}

type fixture struct {
	svc      *attendance.Service
	moduleID int
	hds      mentor.Mentor
}

func newFixture(t *testing.T) fixture {
	db := inmemdb.NewDB()
	students := inmemdb.NewStudentRepository(db)
	mod := testutil.CreateModule(t, inmemdb.NewModuleRepository(db), "FY2 - Batch 2026-29_Sem-1")
	hds := testutil.CreateMentor(t, inmemdb.NewMentorRepository(db), "HDS", "")
	testutil.CreateStudent(t, students, mod.ID, "230101", "Asha", hds.ID, 1)
	testutil.CreateStudent(t, students, mod.ID, "230102", "Bhavin", hds.ID, 2)

	return fixture{
		svc:      attendance.NewService(db, inmemdb.NewAttendanceRepository(db), students, core.NopLogger{}),
		moduleID: mod.ID,
		hds:      hds,
	}
}

func TestReadSheet(t *testing.T) {
	entries, err := attendance.ReadSheet(attendanceBook(t,
		entry{230101, 0.755},
		entry{"230102", "80%"},
		entry{"", 0.5},
		entry{"230103", "Attendance"},
		entry{"230101", 0.7},
	))
	require.NoError(t, err)
	assert.Equal(t, []attendance.Entry{
		{Enrollment: "230101", Percent: 70},
		{Enrollment: "230102", Percent: 80},
	}, entries)
}

func TestReadSheet_missingColumns(t *testing.T) {
	_, err := attendance.ReadSheet(testutil.Workbook(t, testutil.Sheet{Name: "Sheet1", Rows: [][]interface{}{
		{"Roll No", "Name", "Enrollment"},
		{"", "", ""},
		{1, "Asha", 230101},
	}}))
	require.Error(t, err)
	assert.True(t, core.IsImportError(err))
	assert.Equal(t, "Attendance column not found in Excel", err.Error())
}

func TestService_Import(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)

	sum, err := fx.svc.Import(ctx, attendance.ImportRequest{
		ModuleID: fx.moduleID,
		WeekNo:   1,
		Weekly:   attendanceBook(t, entry{230101, 0.75}, entry{230102, 0.9}, entry{230199, 0.5}),
	})
	require.NoError(t, err)
	assert.Equal(t, 3, sum.RowsTotal)
	assert.Equal(t, 2, sum.RowsMatched)
	assert.Equal(t, 1, sum.CallsRequired)
	assert.Equal(t, 1, sum.CallsCreated)
	assert.Equal(t, 1, sum.TotalCalls)
	assert.Equal(t, []call.MentorStat{{Mentor: "HDS", Total: 1}}, sum.MentorStats)
	assert.Equal(t, "1 students require follow-up calls for Week 1", sum.Message())

	calls, err := fx.svc.FilterCalls(ctx, attendance.QueryFilter{ModuleID: fx.moduleID, WeekNo: 1})
	require.NoError(t, err)
	require.Len(t, calls, 1)
	assert.Equal(t, "230101", calls[0].Enrollment)

	_, err = fx.svc.RecordCall(ctx, fx.moduleID, fx.hds.ID, calls[0].ID, call.Update{Status: call.StatusReceived, TalkedWith: call.TalkedMother})
	require.NoError(t, err)

	t.Run("rerun keeps call records", func(t *testing.T) {
		sum, err := fx.svc.Import(ctx, attendance.ImportRequest{
			ModuleID: fx.moduleID,
			WeekNo:   1,
			Weekly:   attendanceBook(t, entry{230101, 0.75}, entry{230102, 0.9}),
		})
		require.NoError(t, err)
		assert.Equal(t, 1, sum.CallsRequired)
		assert.Equal(t, 0, sum.CallsCreated)

		calls, err := fx.svc.FilterCalls(ctx, attendance.QueryFilter{ModuleID: fx.moduleID, WeekNo: 1})
		require.NoError(t, err)
		require.Len(t, calls, 1)
		assert.True(t, calls[0].Received())

		rows, err := fx.svc.Filter(ctx, attendance.QueryFilter{ModuleID: fx.moduleID, WeekNo: 1})
		require.NoError(t, err)
		assert.Len(t, rows, 2)
	})

	t.Run("mentor report", func(t *testing.T) {
		report, err := fx.svc.MentorReport(ctx, fx.moduleID, fx.hds, 1)
		require.NoError(t, err)
		assert.Equal(t, attendance.Report{
			WeekNo:      1,
			MentorName:  "HDS",
			Students:    2,
			BelowCutoff: 1,
			CallsDone:   1,
			Received:    1,
		}, report)
		assert.Contains(t, report.Text(), "No. Of call received: 1")
	})

	t.Run("locked week", func(t *testing.T) {
		require.NoError(t, fx.svc.LockWeek(ctx, fx.moduleID, 1))
		_, err := fx.svc.Import(ctx, attendance.ImportRequest{
			ModuleID: fx.moduleID,
			WeekNo:   1,
			Weekly:   attendanceBook(t, entry{230102, 0.1}),
		})
		require.Error(t, err)
		assert.Equal(t, attendance.ErrWeekLocked, errors.Cause(err))
		assert.Equal(t, "Week 1 is LOCKED. Upload not allowed: week is locked", err.Error())
	})
}

func TestService_Import_rules(t *testing.T) {
	tests := []struct {
		name     string
		rule     attendance.Rule
		required int
	}{
		{name: "week only", rule: attendance.RuleWeek, required: 0},
		{name: "overall only", rule: attendance.RuleOverall, required: 1},
		{name: "either", rule: attendance.RuleBoth, required: 1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			fx := newFixture(t)
			sum, err := fx.svc.Import(context.Background(), attendance.ImportRequest{
				ModuleID: fx.moduleID,
				WeekNo:   2,
				Rule:     tc.rule,
				Weekly:   attendanceBook(t, entry{230101, 0.85}, entry{230102, 0.85}),
				Overall:  attendanceBook(t, entry{230101, 0.78}, entry{230102, 0.9}),
			})
			require.NoError(t, err)
			assert.Equal(t, tc.required, sum.CallsRequired)
		})
	}
}

func TestService_DeleteWeek(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)
	for week := 1; week <= 2; week++ {
		_, err := fx.svc.Import(ctx, attendance.ImportRequest{
			ModuleID: fx.moduleID,
			WeekNo:   week,
			Weekly:   attendanceBook(t, entry{230101, 0.5}),
		})
		require.NoError(t, err)
	}
	require.NoError(t, fx.svc.LockWeek(ctx, fx.moduleID, 1))

	err := fx.svc.DeleteWeek(ctx, fx.moduleID, 0)
	require.Error(t, err)
	assert.IsType(t, &core.ValidationError{}, errors.Cause(err))

	require.NoError(t, fx.svc.DeleteWeek(ctx, fx.moduleID, 1))
	weeks, err := fx.svc.Weeks(ctx, fx.moduleID)
	require.NoError(t, err)
	assert.Equal(t, []int{2}, weeks)

	_, err = fx.svc.Import(ctx, attendance.ImportRequest{
		ModuleID: fx.moduleID,
		WeekNo:   1,
		Weekly:   attendanceBook(t, entry{230101, 0.5}),
	})
	assert.NoError(t, err, "deleting a week lifts its lock")

	require.NoError(t, fx.svc.DeleteAll(ctx, fx.moduleID))
	weeks, err = fx.svc.Weeks(ctx, fx.moduleID)
	require.NoError(t, err)
	assert.Empty(t, weeks)
}
