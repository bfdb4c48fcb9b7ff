package result

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/followup/core"
	"github.com/trezcool/followup/core/call"
)

// Upload modes
const (
	ModeSubject  = "subject"  // one workbook per (test, subject)
	ModeCompiled = "compiled" // every subject side by side in a COMPILED tab
)

const (
	// AllExams & AllSubjects select the bulk replace of every upload of the module.
	AllExams    = "ALL_EXAMS"
	AllSubjects = "ALL"

	// BulkConfirmation must be supplied to allow the bulk replace.
	BulkConfirmation = "yes"
)

var (
	ErrUploadNotFound   = errors.New("result upload not found")
	ErrCallNotFound     = errors.New("result call record not found")
	ErrBulkNotConfirmed = errors.New("Bulk upload cancelled. Please select YES to replace old uploads.")
	ErrCancelled        = errors.New("upload cancelled")
)

type (
	// Upload is one ingested (module, test, subject) sheet. Reimporting the same key replaces its rows.
	Upload struct {
		ID          int       `json:"id" db:"id"`
		ModuleID    int       `json:"module_id" db:"module_id"`
		TestName    string    `json:"test_name" db:"test_name"`
		SubjectID   int       `json:"subject_id" db:"subject_id"`
		UploadedBy  string    `json:"uploaded_by" db:"uploaded_by"`
		UploadedAt  time.Time `json:"uploaded_at" db:"uploaded_at"`
		RowsTotal   int       `json:"rows_total" db:"rows_total"`
		RowsMatched int       `json:"rows_matched" db:"rows_matched"`
		RowsFailed  int       `json:"rows_failed" db:"rows_failed"`

		// read only
		SubjectName string `json:"subject_name" db:"subject_name"`
	}

	// StudentResult holds a student's marks for an upload. MarksTotal is computed at import and frozen.
	StudentResult struct {
		ID           int          `json:"id" db:"id"`
		UploadID     int          `json:"upload_id" db:"upload_id"`
		StudentID    int          `json:"student_id" db:"student_id"`
		Enrollment   string       `json:"enrollment" db:"enrollment"`
		MarksCurrent null.Float64 `json:"marks_current" db:"marks_current"`
		MarksT1      null.Float64 `json:"marks_t1" db:"marks_t1"`
		MarksT2      null.Float64 `json:"marks_t2" db:"marks_t2"`
		MarksT3      null.Float64 `json:"marks_t3" db:"marks_t3"`
		MarksT4      null.Float64 `json:"marks_t4" db:"marks_t4"`
		MarksTotal   null.Float64 `json:"marks_total" db:"marks_total"`
		IsAbsent     bool         `json:"is_absent" db:"is_absent"`
		FailFlag     bool         `json:"fail_flag" db:"fail_flag"`
		FailReason   string       `json:"fail_reason" db:"fail_reason"`

		// read only
		StudentName string `json:"student_name" db:"student_name"`
		RollNo      int    `json:"roll_no" db:"roll_no"`
		MentorName  string `json:"mentor_name" db:"mentor_name"`
	}

	// CallRecord is the follow-up call of a failing student for an upload.
	CallRecord struct {
		ID           int          `json:"id" db:"id"`
		UploadID     int          `json:"upload_id" db:"upload_id"`
		StudentID    int          `json:"student_id" db:"student_id"`
		FailReason   string       `json:"fail_reason" db:"fail_reason"`
		MarksCurrent float64      `json:"marks_current" db:"marks_current"`
		MarksTotal   null.Float64 `json:"marks_total" db:"marks_total"`
		call.Lifecycle
		CreatedAt time.Time `json:"created_at" db:"created_at"`

		// read only
		TestName     string `json:"test_name" db:"test_name"`
		SubjectName  string `json:"subject_name" db:"subject_name"`
		Enrollment   string `json:"enrollment" db:"enrollment"`
		StudentName  string `json:"student_name" db:"student_name"`
		RollNo       int    `json:"roll_no" db:"roll_no"`
		MentorID     int    `json:"mentor_id" db:"mentor_id"`
		MentorName   string `json:"mentor_name" db:"mentor_name"`
		FatherMobile string `json:"father_mobile" db:"father_mobile"`
		MotherMobile string `json:"mother_mobile" db:"mother_mobile"`
	}

	ResultFilter struct {
		ModuleID   int  `query:"-"`
		UploadID   int  `query:"upload_id"`
		MentorID   int  `query:"mentor_id"`
		FailedOnly bool `query:"failed"`
	}

	CallFilter struct {
		ModuleID int `query:"-"`
		UploadID int `query:"upload_id"`
		MentorID int `query:"mentor_id"`
	}
)

type Repository interface {
	// UpsertUpload creates the (module, test, subject) upload or refreshes its uploader & timestamp.
	UpsertUpload(ctx context.Context, u Upload, exec ...core.DBExecutor) (Upload, error)
	GetUpload(ctx context.Context, moduleID, id int, exec ...core.DBExecutor) (Upload, error)
	// ListUploads returns the uploads of a module ordered by test then subject name.
	ListUploads(ctx context.Context, moduleID int, exec ...core.DBExecutor) ([]Upload, error)
	SaveUploadStats(ctx context.Context, u Upload, exec ...core.DBExecutor) error
	// DeleteUpload removes an upload with its results & calls.
	DeleteUpload(ctx context.Context, moduleID, id int, exec ...core.DBExecutor) error
	// DeleteModuleUploads removes every upload of the module with its results & calls.
	DeleteModuleUploads(ctx context.Context, moduleID int, exec ...core.DBExecutor) (int, error)
	// ClearUpload removes the results & calls of an upload, keeping the upload itself.
	ClearUpload(ctx context.Context, uploadID int, exec ...core.DBExecutor) error

	CreateResult(ctx context.Context, r StudentResult, exec ...core.DBExecutor) (StudentResult, error)
	// FilterResults returns results ordered by roll number then student name.
	FilterResults(ctx context.Context, filter ResultFilter, exec ...core.DBExecutor) ([]StudentResult, error)

	CreateCall(ctx context.Context, c CallRecord, exec ...core.DBExecutor) (CallRecord, error)
	GetCall(ctx context.Context, moduleID, id int, exec ...core.DBExecutor) (CallRecord, error)
	UpdateCall(ctx context.Context, c CallRecord, exec ...core.DBExecutor) error
	// FilterCalls returns calls ordered by roll number then student name.
	FilterCalls(ctx context.Context, filter CallFilter, exec ...core.DBExecutor) ([]CallRecord, error)
	MentorStats(ctx context.Context, uploadID int, exec ...core.DBExecutor) ([]call.MentorStat, error)
}
