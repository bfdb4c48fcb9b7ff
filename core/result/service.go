package result

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/followup/core"
	"github.com/trezcool/followup/core/call"
	"github.com/trezcool/followup/core/mentor"
	"github.com/trezcool/followup/core/student"
	"github.com/trezcool/followup/core/subject"
)

// progressBatch is the number of rows between two progress reports & cancellation checks.
const progressBatch = 25

type (
	// Progress is reported while result rows are being saved.
	Progress struct {
		Current     int    `json:"progress_current"`
		Total       int    `json:"progress_total"`
		Enrollment  string `json:"current_enrollment"`
		StudentName string `json:"current_student_name"`
		Message     string `json:"message"`
	}

	// Hooks let a background caller follow an import and stop it between row batches.
	Hooks struct {
		Progress  func(Progress)
		Cancelled func() bool
	}

	UploadRequest struct {
		ModuleID   int       `json:"-"`
		TestName   string    `json:"test_name" form:"test_name"`
		SubjectID  string    `json:"subject_id" form:"subject_id"`
		Mode       string    `json:"upload_mode" form:"upload_mode"`
		Confirm    string    `json:"bulk_confirm" form:"bulk_confirm"`
		UploadedBy string    `json:"-"`
		File       io.Reader `json:"-"`
		Hooks      Hooks     `json:"-"`
	}

	ImportSummary struct {
		RowsTotal     int      `json:"rows_total"`
		RowsMatched   int      `json:"rows_matched"`
		RowsFailed    int      `json:"rows_failed"`
		FoundSubjects []string `json:"found_subjects,omitempty"`
		UsedSubject   string   `json:"used_subject,omitempty"`
	}

	BulkSummary struct {
		UploadsCreated int      `json:"uploads_created"`
		RowsTotal      int      `json:"rows_total"`
		RowsMatched    int      `json:"rows_matched"`
		RowsFailed     int      `json:"rows_failed"`
		FoundSubjects  []string `json:"found_subjects"`
		// Processed lists the "<test>-<subject>" uploads created.
		Processed []string `json:"processed"`
	}

	// Outcome is the result of a coordinator upload.
	Outcome struct {
		Message       string            `json:"msg"`
		TestName      string            `json:"test_name"`
		SubjectName   string            `json:"subject_name"`
		UploadID      int               `json:"upload_id,omitempty"`
		Mode          string            `json:"upload_mode"`
		MentorStats   []call.MentorStat `json:"mentor_stats"`
		TotalCalls    int               `json:"total_calls"`
		FoundSubjects []string          `json:"found_subjects"`
		UsedSubject   string            `json:"used_subject"`
	}

	Service struct {
		tx       core.TxRunner
		repo     Repository
		subjects subject.Repository
		students student.Repository
		logger   core.Logger
		nowFunc  func() time.Time
	}
)

func (h Hooks) cancelled() bool {
	return h.Cancelled != nil && h.Cancelled()
}

func (h Hooks) report(p Progress) {
	if h.Progress != nil {
		h.Progress(p)
	}
}

func (req UploadRequest) Bulk() bool {
	return req.TestName == AllExams && strings.ToUpper(req.SubjectID) == AllSubjects
}

func invalid(field, msg string) error {
	return core.NewValidationError(errors.New(msg), core.FieldError{Field: field, Error: msg})
}

// Clean normalizes the request and checks the combination of test, subject & mode.
// The bulk confirmation is checked last so that nothing is ever deleted without it.
func (req *UploadRequest) Clean() error {
	req.TestName = strings.ToUpper(core.CleanString(req.TestName))
	req.SubjectID = core.CleanString(req.SubjectID)
	req.Mode = core.CleanString(req.Mode, true)
	req.Confirm = core.CleanString(req.Confirm, true)
	if req.Mode == "" {
		req.Mode = ModeSubject
	}

	isAllTests := req.TestName == AllExams
	isAllSubjects := strings.ToUpper(req.SubjectID) == AllSubjects
	switch {
	case !isAllTests && !ValidTest(req.TestName):
		return invalid("test_name", "Invalid test name")
	case req.SubjectID == "":
		return invalid("subject_id", "Subject is required")
	case req.File == nil:
		return invalid("result_file", "Result file is required")
	case req.Mode != ModeSubject && req.Mode != ModeCompiled:
		return invalid("upload_mode", "Invalid upload mode")
	case isAllTests != isAllSubjects:
		return invalid("subject_id", "Please select BOTH ALL EXAMS and ALL subjects for bulk upload.")
	case isAllTests && req.Mode != ModeCompiled:
		return invalid("upload_mode", "ALL_EXAMS + ALL subjects is supported only for Compiled sheet mode.")
	case isAllTests && req.Confirm != BulkConfirmation:
		return ErrBulkNotConfirmed
	}
	return nil
}

func NewService(tx core.TxRunner, repo Repository, subjects subject.Repository, students student.Repository, logger core.Logger) *Service {
	return &Service{
		tx:       tx,
		repo:     repo,
		subjects: subjects,
		students: students,
		logger:   logger,
		nowFunc:  time.Now,
	}
}

// Process runs a coordinator result upload: a single (test, subject) sheet or the bulk replace.
func (svc *Service) Process(ctx context.Context, req UploadRequest) (Outcome, error) {
	if err := req.Clean(); err != nil {
		return Outcome{}, err
	}

	if req.Bulk() {
		sum, err := svc.ImportCompiledBulkAll(ctx, req)
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{
			Message: fmt.Sprintf("Bulk replace completed. Created uploads: %d. Rows matched: %d. Failed calls: %d.",
				sum.UploadsCreated, sum.RowsMatched, sum.RowsFailed),
			TestName:      AllExams,
			SubjectName:   AllSubjects,
			Mode:          req.Mode,
			MentorStats:   []call.MentorStat{},
			TotalCalls:    sum.RowsFailed,
			FoundSubjects: sum.FoundSubjects,
			UsedSubject:   AllSubjects,
		}, nil
	}

	subj, err := svc.activeSubject(ctx, req.ModuleID, req.SubjectID)
	if err != nil {
		return Outcome{}, err
	}
	if subj.T4Only() && req.TestName != T4 {
		return Outcome{}, invalid("test_name", "This subject is configured as Only T4. Please upload in T4.")
	}

	var (
		upload Upload
		sum    ImportSummary
	)
	err = svc.tx.RunInTx(ctx, func(exec core.DBExecutor) error {
		var err error
		upload, err = svc.repo.UpsertUpload(ctx, Upload{
			ModuleID:   req.ModuleID,
			TestName:   req.TestName,
			SubjectID:  subj.ID,
			UploadedBy: req.UploadedBy,
			UploadedAt: svc.nowFunc().UTC(),
		}, exec)
		if err != nil {
			return errors.Wrap(err, "saving upload")
		}
		upload.SubjectName = subj.Name

		if req.Mode == ModeCompiled {
			sum, err = svc.importCompiled(ctx, exec, upload, req.File, req.Hooks)
		} else {
			sum, err = svc.importSubject(ctx, exec, upload, req.File, req.Hooks)
		}
		return err
	})
	if err != nil {
		return Outcome{}, err
	}

	stats, err := svc.repo.MentorStats(ctx, upload.ID)
	if err != nil {
		return Outcome{}, errors.Wrap(err, "computing mentor stats")
	}
	return Outcome{
		Message: fmt.Sprintf("Processed %d rows. Matched: %d. Fail calls generated: %d.",
			sum.RowsTotal, sum.RowsMatched, sum.RowsFailed),
		TestName:      req.TestName,
		SubjectName:   subj.Name,
		UploadID:      upload.ID,
		Mode:          req.Mode,
		MentorStats:   stats,
		TotalCalls:    call.TotalCalls(stats),
		FoundSubjects: sum.FoundSubjects,
		UsedSubject:   sum.UsedSubject,
	}, nil
}

func (svc *Service) activeSubject(ctx context.Context, moduleID int, rawID string) (subject.Subject, error) {
	id, err := strconv.Atoi(rawID)
	if err != nil {
		return subject.Subject{}, invalid("subject_id", "Invalid subject")
	}
	subj, err := svc.subjects.GetByID(ctx, moduleID, id)
	if err != nil {
		if errors.Cause(err) == subject.ErrNotFound {
			return subject.Subject{}, invalid("subject_id", "Invalid subject")
		}
		return subject.Subject{}, errors.Wrap(err, "getting subject")
	}
	if !subj.IsActive {
		return subject.Subject{}, invalid("subject_id", "Invalid subject")
	}
	return subj, nil
}

// ImportSubjectSheet replaces the rows of `upload` with a one-subject result sheet.
func (svc *Service) ImportSubjectSheet(ctx context.Context, upload Upload, r io.Reader, hooks Hooks) (ImportSummary, error) {
	var sum ImportSummary
	err := svc.tx.RunInTx(ctx, func(exec core.DBExecutor) error {
		var err error
		sum, err = svc.importSubject(ctx, exec, upload, r, hooks)
		return err
	})
	return sum, err
}

// ImportCompiledSheet replaces the rows of `upload` with the subject's block of a COMPILED tab.
func (svc *Service) ImportCompiledSheet(ctx context.Context, upload Upload, r io.Reader, hooks Hooks) (ImportSummary, error) {
	var sum ImportSummary
	err := svc.tx.RunInTx(ctx, func(exec core.DBExecutor) error {
		var err error
		sum, err = svc.importCompiled(ctx, exec, upload, r, hooks)
		return err
	})
	return sum, err
}

func (svc *Service) importSubject(ctx context.Context, exec core.DBExecutor, upload Upload, r io.Reader, hooks Hooks) (ImportSummary, error) {
	rows, err := ParseSubjectSheet(r, upload.TestName, upload.SubjectName)
	if err != nil {
		return ImportSummary{}, err
	}
	return svc.saveRows(ctx, exec, upload, rows, hooks)
}

func (svc *Service) importCompiled(ctx context.Context, exec core.DBExecutor, upload Upload, r io.Reader, hooks Hooks) (ImportSummary, error) {
	layout, err := ReadCompiledLayout(r)
	if err != nil {
		return ImportSummary{}, err
	}
	name, block, err := layout.Block(upload.SubjectName, upload.TestName)
	if err != nil {
		return ImportSummary{}, err
	}

	sum, err := svc.saveRows(ctx, exec, upload, layout.Rows(block, upload.TestName), hooks)
	if err != nil {
		return sum, err
	}
	sum.FoundSubjects = layout.Subjects
	sum.UsedSubject = name
	return sum, nil
}

// ImportCompiledBulkAll replaces every result upload of the module with the T1-T4 (or T4 only) uploads
// of each active subject found in the COMPILED tab. Subjects without a block end up with no uploads.
func (svc *Service) ImportCompiledBulkAll(ctx context.Context, req UploadRequest) (BulkSummary, error) {
	var sum BulkSummary
	if req.Confirm != BulkConfirmation {
		return sum, ErrBulkNotConfirmed
	}

	layout, err := ReadCompiledLayout(req.File)
	if err != nil {
		return sum, err
	}
	sum.FoundSubjects = layout.Subjects

	subjects, err := svc.subjects.List(ctx, req.ModuleID, true)
	if err != nil {
		return sum, errors.Wrap(err, "listing subjects")
	}

	err = svc.tx.RunInTx(ctx, func(exec core.DBExecutor) error {
		if _, err := svc.repo.DeleteModuleUploads(ctx, req.ModuleID, exec); err != nil {
			return errors.Wrap(err, "deleting uploads")
		}

		for _, subj := range subjects {
			name, ok := MatchCompiledSubject(subj.Name, layout.Subjects)
			if !ok {
				svc.logger.Warn(fmt.Sprintf("bulk result import (module %d): no COMPILED block for subject %q", req.ModuleID, subj.Name))
				continue
			}
			tests := []string{T1, T2, T3, T4}
			if subj.T4Only() {
				tests = []string{T4}
			}

			for _, test := range tests {
				upload, err := svc.repo.UpsertUpload(ctx, Upload{
					ModuleID:   req.ModuleID,
					TestName:   test,
					SubjectID:  subj.ID,
					UploadedBy: req.UploadedBy,
					UploadedAt: svc.nowFunc().UTC(),
				}, exec)
				if err != nil {
					return errors.Wrap(err, "saving upload")
				}
				upload.SubjectName = subj.Name

				s, err := svc.saveRows(ctx, exec, upload, layout.Rows(layout.Blocks[name], test), req.Hooks)
				if err != nil {
					return err
				}
				sum.UploadsCreated++
				sum.RowsTotal += s.RowsTotal
				sum.RowsMatched += s.RowsMatched
				sum.RowsFailed += s.RowsFailed
				sum.Processed = append(sum.Processed, test+"-"+subj.Name)
			}
		}
		return nil
	})
	if err != nil {
		return BulkSummary{FoundSubjects: layout.Subjects}, err
	}

	svc.logger.Info(fmt.Sprintf("bulk result import (module %d): %d uploads, %d/%d rows matched, %d failed",
		req.ModuleID, sum.UploadsCreated, sum.RowsMatched, sum.RowsTotal, sum.RowsFailed))
	return sum, nil
}

// saveRows purges the results & calls of the upload, then stores `rows` and a call per failing student.
// A repeated enrollment keeps its last row.
func (svc *Service) saveRows(ctx context.Context, exec core.DBExecutor, upload Upload, rows []Row, hooks Hooks) (ImportSummary, error) {
	var sum ImportSummary
	if err := svc.repo.ClearUpload(ctx, upload.ID, exec); err != nil {
		return sum, errors.Wrap(err, "clearing upload")
	}

	rows = lastRowPerEnrollment(rows)
	label := upload.TestName + " " + upload.SubjectName
	for i, row := range rows {
		if i%progressBatch == 0 {
			if hooks.cancelled() {
				return sum, ErrCancelled
			}
			hooks.report(Progress{Current: i, Total: len(rows), Enrollment: row.Enrollment, Message: "Processing " + label + "..."})
		}
		sum.RowsTotal++

		stud, err := svc.students.GetByEnrollment(ctx, upload.ModuleID, row.Enrollment, exec)
		if err != nil {
			if errors.Cause(err) == student.ErrNotFound {
				continue
			}
			return sum, errors.Wrap(err, "getting student")
		}
		sum.RowsMatched++

		total, fail, reason := Evaluate(upload.TestName, row.Marks)
		if _, err = svc.repo.CreateResult(ctx, StudentResult{
			UploadID:     upload.ID,
			StudentID:    stud.ID,
			Enrollment:   row.Enrollment,
			MarksCurrent: row.Current,
			MarksT1:      row.T1,
			MarksT2:      row.T2,
			MarksT3:      row.T3,
			MarksT4:      row.T4,
			MarksTotal:   total,
			IsAbsent:     row.Absent,
			FailFlag:     fail,
			FailReason:   reason,
		}, exec); err != nil {
			return sum, errors.Wrap(err, "saving result")
		}

		if fail {
			sum.RowsFailed++
			if _, err = svc.repo.CreateCall(ctx, CallRecord{
				UploadID:     upload.ID,
				StudentID:    stud.ID,
				FailReason:   reason,
				MarksCurrent: row.Current.Float64,
				MarksTotal:   total,
			}, exec); err != nil {
				return sum, errors.Wrap(err, "creating call record")
			}
		}
	}
	hooks.report(Progress{Current: len(rows), Total: len(rows), Message: label + " saved."})

	upload.RowsTotal = sum.RowsTotal
	upload.RowsMatched = sum.RowsMatched
	upload.RowsFailed = sum.RowsFailed
	upload.UploadedAt = svc.nowFunc().UTC()
	if err := svc.repo.SaveUploadStats(ctx, upload, exec); err != nil {
		return sum, errors.Wrap(err, "saving upload stats")
	}
	return sum, nil
}

func (svc *Service) Uploads(ctx context.Context, moduleID int) ([]Upload, error) {
	return svc.repo.ListUploads(ctx, moduleID)
}

// UploadStats returns an upload with its row counts.
func (svc *Service) UploadStats(ctx context.Context, moduleID, uploadID int) (Upload, error) {
	return svc.repo.GetUpload(ctx, moduleID, uploadID)
}

func (svc *Service) DeleteUpload(ctx context.Context, moduleID, uploadID int) error {
	return svc.repo.DeleteUpload(ctx, moduleID, uploadID)
}

// DeleteAll removes every result upload of the module.
func (svc *Service) DeleteAll(ctx context.Context, moduleID int) (int, error) {
	return svc.repo.DeleteModuleUploads(ctx, moduleID)
}

func (svc *Service) Results(ctx context.Context, filter ResultFilter) ([]StudentResult, error) {
	return svc.repo.FilterResults(ctx, filter)
}

func (svc *Service) Calls(ctx context.Context, filter CallFilter) ([]CallRecord, error) {
	return svc.repo.FilterCalls(ctx, filter)
}

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

// RecordCall registers a mentor's call attempt. Result calls only close as not received when the mentor says so.
func (svc *Service) RecordCall(ctx context.Context, moduleID, mentorID, callID int, u call.Update) (CallRecord, error) {
	c, err := svc.getMentorCall(ctx, moduleID, mentorID, callID)
	if err != nil {
		return CallRecord{}, err
	}
	c.Record(u, svc.nowFunc().UTC(), call.ExplicitNotReceived)
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

// Report is a mentor's call summary for one upload.
type Report struct {
	TestName     string `json:"test_name"`
	SubjectName  string `json:"subject_name"`
	MentorName   string `json:"mentor_name"`
	Total        int    `json:"total"`
	Received     int    `json:"received"`
	NotReceived  int    `json:"not_received"`
	MessagesSent int    `json:"messages_sent"`
}

func (r Report) Text() string {
	lines := []string{
		fmt.Sprintf("📞Phone call done regarding failed in %s (%s)", r.SubjectName, RuleText(r.TestName)),
		"Name of Faculty- " + r.MentorName,
		fmt.Sprintf("Total no of calls- %02d", r.Total),
		fmt.Sprintf("Received Calls - %02d", r.Received),
		fmt.Sprintf("Not received- %02d", r.NotReceived),
		fmt.Sprintf("No of Message done as call not Received - %02d", r.MessagesSent),
	}
	return strings.Join(lines, "\n")
}

func (svc *Service) MentorReport(ctx context.Context, moduleID int, m mentor.Mentor, uploadID int) (Report, error) {
	upload, err := svc.repo.GetUpload(ctx, moduleID, uploadID)
	if err != nil {
		return Report{}, err
	}
	report := Report{TestName: upload.TestName, SubjectName: upload.SubjectName, MentorName: m.DisplayName()}

	calls, err := svc.repo.FilterCalls(ctx, CallFilter{ModuleID: moduleID, UploadID: uploadID, MentorID: m.ID})
	if err != nil {
		return report, errors.Wrap(err, "filtering calls")
	}
	lifecycles := make([]call.Lifecycle, 0, len(calls))
	for _, c := range calls {
		lifecycles = append(lifecycles, c.Lifecycle)
	}
	stats := call.Tally(lifecycles)
	report.Total = stats.Total
	report.Received = stats.Received
	report.NotReceived = stats.NotReceived
	report.MessagesSent = stats.MessageSent
	return report, nil
}
