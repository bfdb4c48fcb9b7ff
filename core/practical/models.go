package practical

import (
	"context"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/followup/core"
)

// Layouts of a practical workbook
const (
	ModeCombined = "combined" // "<SUBJECT>-PR" & "<SUBJECT>-%" column pairs for every subject
	ModeSubject  = "subject"  // one subject, named in a title cell
)

type (
	Upload struct {
		ID          int       `json:"id" db:"id"`
		ModuleID    int       `json:"module_id" db:"module_id"`
		UploadedBy  string    `json:"uploaded_by" db:"uploaded_by"`
		UploadedAt  time.Time `json:"uploaded_at" db:"uploaded_at"`
		RowsTotal   int       `json:"rows_total" db:"rows_total"`
		RowsMatched int       `json:"rows_matched" db:"rows_matched"`
	}

	// Mark is a student's practical score & lab attendance in a subject.
	Mark struct {
		ID                   int          `json:"id" db:"id"`
		ModuleID             int          `json:"module_id" db:"module_id"`
		UploadID             int          `json:"upload_id" db:"upload_id"`
		StudentID            int          `json:"student_id" db:"student_id"`
		SubjectID            int          `json:"subject_id" db:"subject_id"`
		PRMarks              null.Float64 `json:"pr_marks" db:"pr_marks"`
		AttendancePercentage null.Float64 `json:"attendance_percentage" db:"attendance_percentage"`

		// read only
		Enrollment  string `json:"enrollment" db:"enrollment"`
		StudentName string `json:"student_name" db:"student_name"`
		SubjectName string `json:"subject_name" db:"subject_name"`
	}

	QueryFilter struct {
		ModuleID  int `query:"-"`
		SubjectID int `query:"subject_id"`
		StudentID int `query:"student_id"`
	}
)

type Repository interface {
	CreateUpload(ctx context.Context, u Upload, exec ...core.DBExecutor) (Upload, error)
	SaveUploadStats(ctx context.Context, u Upload, exec ...core.DBExecutor) error
	DeleteModuleMarks(ctx context.Context, moduleID int, exec ...core.DBExecutor) (int, error)
	DeleteSubjectMarks(ctx context.Context, moduleID, subjectID int, exec ...core.DBExecutor) (int, error)
	CreateMarks(ctx context.Context, marks []Mark, exec ...core.DBExecutor) error
	// DeleteBlankMarks removes the marks of the module having neither score nor attendance.
	DeleteBlankMarks(ctx context.Context, moduleID int, exec ...core.DBExecutor) (int, error)
	// FilterMarks returns marks ordered by enrollment then subject.
	FilterMarks(ctx context.Context, filter QueryFilter, exec ...core.DBExecutor) ([]Mark, error)
}
