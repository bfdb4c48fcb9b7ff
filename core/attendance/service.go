package attendance

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/followup/core"
	"github.com/trezcool/followup/core/call"
	"github.com/trezcool/followup/core/mentor"
	"github.com/trezcool/followup/core/student"
)

type (
	ImportRequest struct {
		ModuleID int       `json:"-"`
		WeekNo   int       `json:"week" form:"week" validate:"required,min=1,max=60"`
		Rule     Rule      `json:"rule" form:"rule" validate:"omitempty,oneof=week overall both"`
		Weekly   io.Reader `json:"-" validate:"required"`
		Overall  io.Reader `json:"-"`
	}

	ImportSummary struct {
		WeekNo int `json:"week"`
		// CallsRequired counts the students of this upload under the threshold.
		CallsRequired int `json:"calls_required"`
		// CallsCreated counts the call records that did not exist before this upload.
		CallsCreated int               `json:"calls_created"`
		RowsTotal    int               `json:"rows_total"`
		RowsMatched  int               `json:"rows_matched"`
		MentorStats  []call.MentorStat `json:"mentor_stats"`
		TotalCalls   int               `json:"total_calls"`
	}

	Service struct {
		tx       core.TxRunner
		repo     Repository
		students student.Repository
		logger   core.Logger
		nowFunc  func() time.Time
	}
)

func (req *ImportRequest) Validate(validate *validator.Validate) error {
	req.Rule = Rule(core.CleanString(string(req.Rule), true))
	if req.Rule == "" {
		req.Rule = RuleBoth
	}
	return validate.Struct(req)
}

func (sum ImportSummary) Message() string {
	return fmt.Sprintf("%d students require follow-up calls for Week %d", sum.CallsRequired, sum.WeekNo)
}

func NewService(tx core.TxRunner, repo Repository, students student.Repository, logger core.Logger) *Service {
	return &Service{
		tx:       tx,
		repo:     repo,
		students: students,
		logger:   logger,
		nowFunc:  time.Now,
	}
}

// Import loads a weekly attendance sheet (and the overall one, from week 2) into the module.
// Enrollments without a student in the module are skipped. Existing call records are left untouched.
func (svc *Service) Import(ctx context.Context, req ImportRequest) (ImportSummary, error) {
	summary := ImportSummary{WeekNo: req.WeekNo}
	if req.Rule == "" {
		req.Rule = RuleBoth
	}

	locked, err := svc.repo.IsWeekLocked(ctx, req.ModuleID, req.WeekNo)
	if err != nil {
		return summary, errors.Wrap(err, "checking week lock")
	}
	if locked {
		return summary, errors.Wrapf(ErrWeekLocked, "Week %d is LOCKED. Upload not allowed", req.WeekNo)
	}

	weekly, err := readSheet(req.Weekly)
	if err != nil {
		return summary, errors.Wrap(err, "reading weekly sheet")
	}
	overall := weekly
	if req.WeekNo > 1 && req.Overall != nil {
		if overall, err = readSheet(req.Overall); err != nil {
			return summary, errors.Wrap(err, "reading overall sheet")
		}
	}

	err = svc.tx.RunInTx(ctx, func(exec core.DBExecutor) error {
		for _, entry := range weekly.list {
			summary.RowsTotal++
			stud, err := svc.students.GetByEnrollment(ctx, req.ModuleID, entry.Enrollment, exec)
			if err != nil {
				if errors.Cause(err) == student.ErrNotFound {
					continue
				}
				return errors.Wrap(err, "getting student")
			}
			summary.RowsMatched++

			overallPct, ok := overall.get(entry.Enrollment)
			if !ok {
				overallPct = entry.Percent
			}
			required := req.Rule.CallRequired(entry.Percent, overallPct)

			if _, err = svc.repo.UpsertAttendance(ctx, Attendance{
				StudentID:         stud.ID,
				WeekNo:            req.WeekNo,
				WeekPercentage:    entry.Percent,
				OverallPercentage: overallPct,
				CallRequired:      required,
			}, exec); err != nil {
				return errors.Wrap(err, "saving attendance")
			}

			if required {
				_, created, err := svc.repo.GetOrCreateCall(ctx, stud.ID, req.WeekNo, exec)
				if err != nil {
					return errors.Wrap(err, "creating call record")
				}
				summary.CallsRequired++
				if created {
					summary.CallsCreated++
				}
			}
		}
		return nil
	})
	if err != nil {
		return summary, err
	}

	if summary.MentorStats, err = svc.repo.MentorStats(ctx, req.ModuleID, req.WeekNo); err != nil {
		return summary, errors.Wrap(err, "computing mentor stats")
	}
	summary.TotalCalls = call.TotalCalls(summary.MentorStats)

	svc.logger.Info(fmt.Sprintf("attendance import (module %d, week %d): %d/%d rows matched, %d calls required",
		req.ModuleID, req.WeekNo, summary.RowsMatched, summary.RowsTotal, summary.CallsRequired))
	return summary, nil
}

func (svc *Service) Weeks(ctx context.Context, moduleID int) ([]int, error) {
	return svc.repo.Weeks(ctx, moduleID)
}

func (svc *Service) Filter(ctx context.Context, filter QueryFilter) ([]Attendance, error) {
	return svc.repo.FilterAttendance(ctx, filter)
}

func (svc *Service) FilterCalls(ctx context.Context, filter QueryFilter) ([]CallRecord, error) {
	return svc.repo.FilterCalls(ctx, filter)
}

func (svc *Service) LockWeek(ctx context.Context, moduleID, weekNo int) error {
	return svc.repo.LockWeek(ctx, moduleID, weekNo)
}

func (svc *Service) DeleteWeek(ctx context.Context, moduleID, weekNo int) error {
	if weekNo < 1 {
		return core.NewValidationError(errors.New("invalid week"), core.FieldError{Field: "week", Error: "invalid week"})
	}
	return svc.repo.DeleteWeek(ctx, moduleID, weekNo)
}

// DeleteAll wipes the attendance & calls of every week of the module.
func (svc *Service) DeleteAll(ctx context.Context, moduleID int) error {
	return svc.repo.DeleteWeek(ctx, moduleID, 0)
}

// getMentorCall loads a call, making sure it belongs to the mentor when mentorID is set.
func (svc *Service) getMentorCall(ctx context.Context, moduleID, mentorID, callID int) (CallRecord, error) {
	c, err := svc.repo.GetCall(ctx, moduleID, callID)
	if err != nil {
		return CallRecord{}, err
	}
	if mentorID > 0 && c.MentorID != mentorID {
		return CallRecord{}, ErrCallNotFound
	}
	return c, nil
}

// RecordCall registers a mentor's call attempt. A call unanswered twice is closed as not received.
func (svc *Service) RecordCall(ctx context.Context, moduleID, mentorID, callID int, u call.Update) (CallRecord, error) {
	c, err := svc.getMentorCall(ctx, moduleID, mentorID, callID)
	if err != nil {
		return CallRecord{}, err
	}
	c.Record(u, svc.nowFunc().UTC(), call.AutoNotReceived)
	if err = svc.repo.UpdateCall(ctx, c); err != nil {
		return CallRecord{}, errors.Wrap(err, "updating call record")
	}
	return c, nil
}

func (svc *Service) MarkMessageSent(ctx context.Context, moduleID, mentorID, callID int) error {
	c, err := svc.getMentorCall(ctx, moduleID, mentorID, callID)
	if err != nil {
		return err
	}
	c.MessageSent = true
	return svc.repo.UpdateCall(ctx, c)
}

// Report is a mentor's follow-up summary for one week.
type Report struct {
	WeekNo       int    `json:"week"`
	MentorName   string `json:"mentor_name"`
	Students     int    `json:"students"`
	BelowCutoff  int    `json:"below_cutoff"`
	CallsDone    int    `json:"calls_done"`
	Received     int    `json:"received"`
	NotReceived  int    `json:"not_received"`
	MessagesSent int    `json:"messages_sent"`
	CallsNotDone int    `json:"calls_not_done"`
}

func (r Report) Text() string {
	lines := []string{
		fmt.Sprintf("Follow up Attendance < %.0f%% (Week-%d only & Overall Week-01 to %d):", CallThreshold, r.WeekNo, r.WeekNo),
		"",
		"Mentor Name: " + r.MentorName,
		fmt.Sprintf("Total no. Of students under mentorship: %d", r.Students),
		fmt.Sprintf("No. Of students under mentorship whose attendance < %.0f%%: %d", CallThreshold, r.BelowCutoff),
		fmt.Sprintf("No. Of call done: %d", r.CallsDone),
		fmt.Sprintf("No. Of call received: %d", r.Received),
		fmt.Sprintf("No. Of call not received: %d", r.NotReceived),
		fmt.Sprintf("No. Of message done when call not received: %d", r.MessagesSent),
		fmt.Sprintf("Call not done: %d", r.CallsNotDone),
	}
	return strings.Join(lines, "\n")
}

func (svc *Service) MentorReport(ctx context.Context, moduleID int, m mentor.Mentor, weekNo int) (Report, error) {
	report := Report{WeekNo: weekNo, MentorName: m.Name}

	var err error
	if report.Students, err = svc.students.CountByMentor(ctx, moduleID, m.ID); err != nil {
		return report, errors.Wrap(err, "counting students")
	}

	required := true
	flagged, err := svc.repo.FilterAttendance(ctx, QueryFilter{ModuleID: moduleID, WeekNo: weekNo, MentorID: m.ID, CallRequired: &required})
	if err != nil {
		return report, errors.Wrap(err, "filtering attendance")
	}
	report.BelowCutoff = len(flagged)

	calls, err := svc.repo.FilterCalls(ctx, QueryFilter{ModuleID: moduleID, WeekNo: weekNo, MentorID: m.ID})
	if err != nil {
		return report, errors.Wrap(err, "filtering calls")
	}
	lifecycles := make([]call.Lifecycle, 0, len(calls))
	for _, c := range calls {
		lifecycles = append(lifecycles, c.Lifecycle)
	}
	stats := call.Tally(lifecycles)
	report.CallsDone = stats.Done
	report.Received = stats.Received
	report.NotReceived = stats.NotReceived
	report.MessagesSent = stats.MessageSent
	report.CallsNotDone = report.BelowCutoff - report.CallsDone
	return report, nil
}
