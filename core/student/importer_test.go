package student_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/followup/core"
	"github.com/trezcool/followup/core/mentor"
	"github.com/trezcool/followup/core/student"
	"github.com/trezcool/followup/storage/database/inmem"
	testutil "github.com/trezcool/followup/tests"
)

func masterSheet(t *testing.T) testutil.Sheet {
	t.Helper()
	return testutil.Sheet{Name: "MASTER", Rows: [][]interface{}{
		{"Student Master FY 2026"},
		{"Sr No", "Enrollment No", "Name of Student", "Roll No", "Short Name of Mentor", "Mentor Full Name",
			"Father Mobile", "Mother Mobile", "Student Mobile", "Branch"},
		{1, 230101, "Asha Patel", 1, "HDS", "Hardik Shah", "98765 43210", "+91-9876500000", "9876511111", "CE"},
		{2, "230102", "Bhavin Rao", 2, "HDS", "Hardik Shah", "", "", "", "CE"},
		{3, "", "No Enrollment", 3, "PM", "", "", "", "", "CE"},
	}}
}

func TestService_Import(t *testing.T) {
	ctx := context.Background()
	db := inmemdb.NewDB()
	mentors := inmemdb.NewMentorRepository(db)
	repo := inmemdb.NewStudentRepository(db)
	mod := testutil.CreateModule(t, inmemdb.NewModuleRepository(db), "FY2 - Batch 2026-29_Sem-1")
	svc := student.NewService(repo, mentor.NewIdentityResolver(mentors, core.NopLogger{}), core.NopLogger{})

	sum, err := svc.Import(ctx, mod.ID, testutil.Workbook(t, masterSheet(t)))
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Added)
	assert.Equal(t, 0, sum.Updated)
	assert.Equal(t, 1, sum.Skipped)
	require.Len(t, sum.SkippedRows, 1)
	assert.Equal(t, 5, sum.SkippedRows[0].Row)
	assert.Equal(t, "enrollment is empty", sum.SkippedRows[0].Error)

	asha, err := svc.GetByEnrollment(ctx, mod.ID, "230101")
	require.NoError(t, err)
	assert.Equal(t, "Asha Patel", asha.Name)
	assert.Equal(t, 1, asha.RollNo.Int)
	assert.Equal(t, "HDS", asha.MentorName)
	assert.Equal(t, "CE", asha.Batch)
	assert.Equal(t, "919876543210", asha.FatherMobile)
	assert.Equal(t, "919876500000", asha.MotherMobile)
	assert.Equal(t, "919876511111", asha.StudentMobile)

	all, err := mentors.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Hardik Shah", all[0].FullName)
	assert.Equal(t, 2, all[0].StudentCount)

	t.Run("reimport updates", func(t *testing.T) {
		sum, err := svc.Import(ctx, mod.ID, testutil.Workbook(t, masterSheet(t)))
		require.NoError(t, err)
		assert.Equal(t, 0, sum.Added)
		assert.Equal(t, 2, sum.Updated)

		students, err := svc.Filter(ctx, student.QueryFilter{ModuleID: mod.ID})
		require.NoError(t, err)
		assert.Len(t, students, 2)
	})

	t.Run("search", func(t *testing.T) {
		students, err := svc.Filter(ctx, student.QueryFilter{ModuleID: mod.ID, Search: " bhavin "})
		require.NoError(t, err)
		require.Len(t, students, 1)
		assert.Equal(t, "230102", students[0].Enrollment)
	})
}

func TestService_Import_mergedMentorKeys(t *testing.T) {
	ctx := context.Background()
	db := inmemdb.NewDB()
	mentors := inmemdb.NewMentorRepository(db)
	repo := inmemdb.NewStudentRepository(db)
	mod := testutil.CreateModule(t, inmemdb.NewModuleRepository(db), "FY2 - Batch 2026-29_Sem-1")
	hds := testutil.CreateMentor(t, mentors, "HDS", "")
	bucket := testutil.CreateMentor(t, mentors, "HARDIK SHAH", "")
	testutil.CreateStudent(t, repo, mod.ID, "220001", "Dev", hds.ID, 1)
	testutil.CreateStudent(t, repo, mod.ID, "220002", "Esha", bucket.ID, 2)
	svc := student.NewService(repo, mentor.NewIdentityResolver(mentors, core.NopLogger{}), core.NopLogger{})

	sum, err := svc.Import(ctx, mod.ID, testutil.Workbook(t, testutil.Sheet{Name: "MASTER", Rows: [][]interface{}{
		{"Enrollment No", "Name of Student", "Short Name of Mentor", "Mentor Full Name"},
		{"230110", "Asha", "HARDIK SHAH", ""},
		{"230111", "Bhavin", "HDS", "HARDIK SHAH"},
		{"230112", "Chirag", "HARDIK SHAH", ""},
	}}))
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Added)
	assert.Equal(t, 0, sum.Skipped)

	all, err := mentors.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, hds.ID, all[0].ID)
	assert.Equal(t, 5, all[0].StudentCount)

	for _, enrollment := range []string{"220002", "230110", "230111", "230112"} {
		s, err := svc.GetByEnrollment(ctx, mod.ID, enrollment)
		require.NoError(t, err)
		assert.Equal(t, hds.ID, s.MentorID, enrollment)
		assert.Equal(t, "HDS", s.MentorName, enrollment)
	}
}

func TestService_Import_noEnrollmentColumn(t *testing.T) {
	db := inmemdb.NewDB()
	mod := testutil.CreateModule(t, inmemdb.NewModuleRepository(db), "FY2 - Batch 2026-29_Sem-1")
	svc := student.NewService(
		inmemdb.NewStudentRepository(db),
		mentor.NewIdentityResolver(inmemdb.NewMentorRepository(db), core.NopLogger{}),
		core.NopLogger{},
	)

	_, err := svc.Import(context.Background(), mod.ID, testutil.Workbook(t, testutil.Sheet{Name: "MASTER", Rows: [][]interface{}{
		{"Name", "Mentor"},
		{"Asha Patel", "HDS"},
	}}))
	require.Error(t, err)
	assert.True(t, core.IsImportError(err))
	assert.Equal(t, "Enrollment column not found", err.Error())
}

func TestService_ClearModule(t *testing.T) {
	ctx := context.Background()
	db := inmemdb.NewDB()
	repo := inmemdb.NewStudentRepository(db)
	modules := inmemdb.NewModuleRepository(db)
	m := testutil.CreateMentor(t, inmemdb.NewMentorRepository(db), "HDS", "")
	mod := testutil.CreateModule(t, modules, "FY2 - Batch 2026-29_Sem-1")
	other := testutil.CreateModule(t, modules, "SY1 - Batch 2025-28_Sem-1")
	testutil.CreateStudent(t, repo, mod.ID, "230101", "Asha", m.ID, 1)
	testutil.CreateStudent(t, repo, mod.ID, "230102", "Bhavin", m.ID, 2)
	testutil.CreateStudent(t, repo, other.ID, "220101", "Chirag", m.ID, 1)

	svc := student.NewService(repo, mentor.NewIdentityResolver(inmemdb.NewMentorRepository(db), core.NopLogger{}), core.NopLogger{})
	n, err := svc.ClearModule(ctx, mod.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	left, err := svc.Filter(ctx, student.QueryFilter{ModuleID: other.ID})
	require.NoError(t, err)
	assert.Len(t, left, 1)
}
