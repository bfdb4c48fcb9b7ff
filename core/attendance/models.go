package attendance

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/followup/core"
	"github.com/trezcool/followup/core/call"
)

// CallThreshold is the attendance percentage under which a student's parents must be called.
const CallThreshold = 80.0

var (
	ErrCallNotFound = errors.New("call record not found")
	ErrWeekLocked   = errors.New("week is locked")
)

// Rule selects which percentage drives the call decision.
type Rule string

const (
	RuleWeek    Rule = "week"
	RuleOverall Rule = "overall"
	RuleBoth    Rule = "both"
)

func (r Rule) CallRequired(week, overall float64) bool {
	switch r {
	case RuleWeek:
		return week < CallThreshold
	case RuleOverall:
		return overall < CallThreshold
	default:
		return week < CallThreshold || overall < CallThreshold
	}
}

type (
	// Attendance is a student's percentage for one week. Reimports replace all three derived fields.
	Attendance struct {
		ID                int     `json:"id" db:"id"`
		StudentID         int     `json:"student_id" db:"student_id"`
		WeekNo            int     `json:"week_no" db:"week_no"`
		WeekPercentage    float64 `json:"week_percentage" db:"week_percentage"`
		OverallPercentage float64 `json:"overall_percentage" db:"overall_percentage"`
		CallRequired      bool    `json:"call_required" db:"call_required"`

		// read only
		Enrollment  string `json:"enrollment" db:"enrollment"`
		StudentName string `json:"student_name" db:"student_name"`
		MentorName  string `json:"mentor_name" db:"mentor_name"`
	}

	// CallRecord is the follow-up call of a student under the attendance threshold for a week.
	// Once created it is only modified by mentor actions.
	CallRecord struct {
		ID        int `json:"id" db:"id"`
		StudentID int `json:"student_id" db:"student_id"`
		WeekNo    int `json:"week_no" db:"week_no"`
		call.Lifecycle
		CreatedAt time.Time `json:"created_at" db:"created_at"`

		// read only
		Enrollment   string `json:"enrollment" db:"enrollment"`
		StudentName  string `json:"student_name" db:"student_name"`
		RollNo       int    `json:"roll_no" db:"roll_no"`
		MentorID     int    `json:"mentor_id" db:"mentor_id"`
		MentorName   string `json:"mentor_name" db:"mentor_name"`
		FatherMobile string `json:"father_mobile" db:"father_mobile"`
		MotherMobile string `json:"mother_mobile" db:"mother_mobile"`
	}

	WeekLock struct {
		ModuleID int  `json:"module_id" db:"module_id"`
		WeekNo   int  `json:"week_no" db:"week_no"`
		Locked   bool `json:"locked" db:"locked"`
	}

	QueryFilter struct {
		ModuleID     int   `query:"-"`
		WeekNo       int   `query:"week"`
		MentorID     int   `query:"mentor_id"`
		CallRequired *bool `query:"call_required"`
	}
)

type Repository interface {
	// UpsertAttendance inserts or replaces the (StudentID, WeekNo) attendance.
	UpsertAttendance(ctx context.Context, a Attendance, exec ...core.DBExecutor) (Attendance, error)
	FilterAttendance(ctx context.Context, filter QueryFilter, exec ...core.DBExecutor) ([]Attendance, error)
	// GetOrCreateCall never modifies an existing call. created tells whether a new call was inserted.
	GetOrCreateCall(ctx context.Context, studentID, weekNo int, exec ...core.DBExecutor) (_ CallRecord, created bool, _ error)
	GetCall(ctx context.Context, moduleID, id int, exec ...core.DBExecutor) (CallRecord, error)
	UpdateCall(ctx context.Context, c CallRecord, exec ...core.DBExecutor) error
	// FilterCalls returns calls ordered by roll number then student name.
	FilterCalls(ctx context.Context, filter QueryFilter, exec ...core.DBExecutor) ([]CallRecord, error)
	MentorStats(ctx context.Context, moduleID, weekNo int, exec ...core.DBExecutor) ([]call.MentorStat, error)
	Weeks(ctx context.Context, moduleID int, exec ...core.DBExecutor) ([]int, error)
	IsWeekLocked(ctx context.Context, moduleID, weekNo int, exec ...core.DBExecutor) (bool, error)
	LockWeek(ctx context.Context, moduleID, weekNo int, exec ...core.DBExecutor) error
	// DeleteWeek removes the attendance & calls of a week. weekNo 0 deletes every week.
	DeleteWeek(ctx context.Context, moduleID, weekNo int, exec ...core.DBExecutor) error
}
