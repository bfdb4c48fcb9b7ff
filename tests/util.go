package testutil

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/followup/core/academic"
	"github.com/trezcool/followup/core/mentor"
	"github.com/trezcool/followup/core/student"
	"github.com/trezcool/followup/core/subject"
)

// Sheet is a worksheet of a generated workbook; rows are written from A1.
type Sheet struct {
	Name string
	Rows [][]interface{}
}

// Workbook builds an .xlsx file in memory.
func Workbook(t *testing.T, sheets ...Sheet) *bytes.Reader {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	for i, s := range sheets {
		if i == 0 {
			require.NoError(t, f.SetSheetName("Sheet1", s.Name))
		} else {
			_, err := f.NewSheet(s.Name)
			require.NoError(t, err)
		}
		for r := range s.Rows {
			axis, err := excelize.CoordinatesToCellName(1, r+1)
			require.NoError(t, err)
			require.NoError(t, f.SetSheetRow(s.Name, axis, &s.Rows[r]))
		}
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return bytes.NewReader(buf.Bytes())
}

func CreateModule(t *testing.T, repo academic.Repository, name string) academic.Module {
	t.Helper()
	m, err := repo.Create(context.Background(), academic.Module{
		Name:          name,
		AcademicBatch: "2026-29",
		YearLevel:     academic.YearFirst,
		Semester:      academic.SemesterOne,
		IsActive:      true,
	})
	if err != nil {
		t.Fatalf("createModule() failed: %v", err)
	}
	return m
}

func CreateMentor(t *testing.T, repo mentor.Repository, name, fullName string) mentor.Mentor {
	t.Helper()
	m, err := repo.Create(context.Background(), mentor.Mentor{Name: name, FullName: fullName})
	if err != nil {
		t.Fatalf("createMentor() failed: %v", err)
	}
	return m
}

// CreateStudent saves a student; a zero rollNo is left unset.
func CreateStudent(
	t *testing.T,
	repo student.Repository,
	moduleID int,
	enrollment, name string,
	mentorID, rollNo int,
) student.Student {
	t.Helper()
	s, _, err := repo.Upsert(context.Background(), student.Student{
		ModuleID:     moduleID,
		Enrollment:   enrollment,
		Name:         name,
		RollNo:       null.NewInt(rollNo, rollNo != 0),
		MentorID:     mentorID,
		FatherMobile: "919876543210",
	})
	if err != nil {
		t.Fatalf("createStudent() failed: %v", err)
	}
	return s
}

func CreateSubject(t *testing.T, repo subject.Repository, moduleID int, name, shortName, format string) subject.Subject {
	t.Helper()
	if format == "" {
		format = subject.FormatFull
	}
	s, err := repo.Create(context.Background(), subject.Subject{
		ModuleID:     moduleID,
		Name:         name,
		ShortName:    shortName,
		ResultFormat: format,
		IsActive:     true,
	})
	if err != nil {
		t.Fatalf("createSubject() failed: %v", err)
	}
	return s
}
