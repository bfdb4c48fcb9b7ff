package student

import (
	"context"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/followup/core"
)

// column sizes
const (
	maxEnrollmentLen = 20
	maxNameLen       = 100
	maxBatchLen      = 20
	maxMentorLen     = 50
	maxPhoneLen      = 15
)

var ErrNotFound = errors.New("student not found")

type Student struct {
	ID            int      `json:"id" db:"id"`
	ModuleID      int      `json:"module_id" db:"module_id"`
	Enrollment    string   `json:"enrollment" db:"enrollment"`
	RollNo        null.Int `json:"roll_no" db:"roll_no"`
	Name          string   `json:"name" db:"name"`
	Batch         string   `json:"batch" db:"batch"`
	MentorID      int      `json:"mentor_id" db:"mentor_id"`
	MentorName    string   `json:"mentor_name" db:"mentor_name"` // read only
	StudentMobile string   `json:"student_mobile" db:"student_mobile"`
	FatherMobile  string   `json:"father_mobile" db:"father_mobile"`
	MotherMobile  string   `json:"mother_mobile" db:"mother_mobile"`
}

type QueryFilter struct {
	ModuleID int    `query:"-"`
	MentorID int    `query:"mentor_id"`
	Search   string `query:"search"`
}

type Repository interface {
	GetByID(ctx context.Context, moduleID, id int, exec ...core.DBExecutor) (Student, error)
	GetByEnrollment(ctx context.Context, moduleID int, enrollment string, exec ...core.DBExecutor) (Student, error)
	// Upsert inserts or updates the student keyed by (ModuleID, Enrollment). created is false on update.
	Upsert(ctx context.Context, s Student, exec ...core.DBExecutor) (_ Student, created bool, _ error)
	// Filter returns students ordered by roll number then name.
	// QueryFilter.Search does a case-insensitive match on Name or Enrollment.
	Filter(ctx context.Context, filter QueryFilter, exec ...core.DBExecutor) ([]Student, error)
	CountByMentor(ctx context.Context, moduleID, mentorID int, exec ...core.DBExecutor) (int, error)
	DeleteByModule(ctx context.Context, moduleID int, exec ...core.DBExecutor) (int, error)
}
