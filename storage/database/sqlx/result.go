package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/followup/core"
	"github.com/trezcool/followup/core/call"
	"github.com/trezcool/followup/core/result"
)

const (
	uploadSelect = `
		SELECT u.*, sub.name AS subject_name
		FROM result_upload u
		JOIN subject sub ON sub.id = u.subject_id`

	resultCallSelect = `
		SELECT c.id, c.upload_id, c.student_id, c.fail_reason, c.marks_current, c.marks_total,
			c.attempt1_time, c.attempt2_time, c.final_status, c.talked_with, c.duration, c.parent_reason,
			c.message_sent, c.created_at,
			u.test_name, sub.name AS subject_name,
			s.enrollment, s.name AS student_name, COALESCE(s.roll_no, 0) AS roll_no, s.mentor_id, m.name AS mentor_name,
			s.father_mobile, s.mother_mobile
		FROM result_call_record c
		JOIN result_upload u ON u.id = c.upload_id
		JOIN subject sub ON sub.id = u.subject_id
		JOIN student s ON s.id = c.student_id
		JOIN mentor m ON m.id = s.mentor_id`
)

type resultRepository struct {
	repository
}

var _ result.Repository = (*resultRepository)(nil) // interface compliance check

func NewResultRepository(db *sqlx.DB) *resultRepository {
	return &resultRepository{repository{db: db}}
}

func (repo resultRepository) UpsertUpload(ctx context.Context, u result.Upload, exec ...core.DBExecutor) (result.Upload, error) {
	err := repo.getExec(exec).QueryRowxContext(ctx, `
		INSERT INTO result_upload (module_id, test_name, subject_id, uploaded_by, uploaded_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (module_id, test_name, subject_id) DO UPDATE SET
			uploaded_by = EXCLUDED.uploaded_by,
			uploaded_at = EXCLUDED.uploaded_at
		RETURNING id, uploaded_at, rows_total, rows_matched, rows_failed`,
		u.ModuleID, u.TestName, u.SubjectID, u.UploadedBy,
	).Scan(&u.ID, &u.UploadedAt, &u.RowsTotal, &u.RowsMatched, &u.RowsFailed)
	if err != nil {
		return result.Upload{}, errors.Wrap(err, "upserting result upload")
	}
	return u, nil
}

func (repo resultRepository) GetUpload(ctx context.Context, moduleID, id int, exec ...core.DBExecutor) (result.Upload, error) {
	var u result.Upload
	err := sqlx.GetContext(ctx, repo.getExec(exec), &u, uploadSelect+` WHERE u.module_id = $1 AND u.id = $2`, moduleID, id)
	if err != nil {
		return result.Upload{}, trapNoRowsErr(err, result.ErrUploadNotFound, "getting result upload")
	}
	return u, nil
}

func (repo resultRepository) ListUploads(ctx context.Context, moduleID int, exec ...core.DBExecutor) ([]result.Upload, error) {
	var uploads []result.Upload
	err := sqlx.SelectContext(ctx, repo.getExec(exec), &uploads, uploadSelect+`
		WHERE u.module_id = $1
		ORDER BY u.test_name, sub.name`, moduleID)
	if err != nil {
		return nil, errors.Wrap(err, "listing result uploads")
	}
	return uploads, nil
}

func (repo resultRepository) SaveUploadStats(ctx context.Context, u result.Upload, exec ...core.DBExecutor) error {
	_, err := repo.getExec(exec).ExecContext(ctx, `
		UPDATE result_upload SET rows_total = $2, rows_matched = $3, rows_failed = $4
		WHERE id = $1`, u.ID, u.RowsTotal, u.RowsMatched, u.RowsFailed)
	if err != nil {
		return errors.Wrap(err, "saving result upload stats")
	}
	return nil
}

func (repo resultRepository) DeleteUpload(ctx context.Context, moduleID, id int, exec ...core.DBExecutor) error {
	res, err := repo.getExec(exec).ExecContext(ctx, `DELETE FROM result_upload WHERE module_id = $1 AND id = $2`, moduleID, id)
	if err != nil {
		return errors.Wrap(err, "deleting result upload")
	}
	n, err := affected(res, "deleting result upload")
	if err != nil {
		return err
	}
	if n == 0 {
		return result.ErrUploadNotFound
	}
	return nil
}

func (repo resultRepository) DeleteModuleUploads(ctx context.Context, moduleID int, exec ...core.DBExecutor) (int, error) {
	res, err := repo.getExec(exec).ExecContext(ctx, `DELETE FROM result_upload WHERE module_id = $1`, moduleID)
	if err != nil {
		return 0, errors.Wrap(err, "deleting result uploads")
	}
	return affected(res, "deleting result uploads")
}

func (repo resultRepository) ClearUpload(ctx context.Context, uploadID int, exec ...core.DBExecutor) error {
	ext := repo.getExec(exec)
	for _, table := range []string{"result_call_record", "student_result"} {
		if _, err := ext.ExecContext(ctx, `DELETE FROM `+table+` WHERE upload_id = $1`, uploadID); err != nil {
			return errors.Wrapf(err, "clearing %s", table)
		}
	}
	return nil
}

func (repo resultRepository) CreateResult(ctx context.Context, r result.StudentResult, exec ...core.DBExecutor) (result.StudentResult, error) {
	err := repo.getExec(exec).QueryRowxContext(ctx, `
		INSERT INTO student_result (
			upload_id, student_id, enrollment, marks_current, marks_t1, marks_t2, marks_t3, marks_t4, marks_total,
			is_absent, fail_flag, fail_reason
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id`,
		r.UploadID, r.StudentID, r.Enrollment, r.MarksCurrent, r.MarksT1, r.MarksT2, r.MarksT3, r.MarksT4, r.MarksTotal,
		r.IsAbsent, r.FailFlag, r.FailReason,
	).Scan(&r.ID)
	if err != nil {
		return result.StudentResult{}, errors.Wrap(err, "inserting student result")
	}
	return r, nil
}

func (repo resultRepository) FilterResults(ctx context.Context, filter result.ResultFilter, exec ...core.DBExecutor) ([]result.StudentResult, error) {
	var results []result.StudentResult
	err := sqlx.SelectContext(ctx, repo.getExec(exec), &results, `
		SELECT r.*, s.name AS student_name, COALESCE(s.roll_no, 0) AS roll_no, m.name AS mentor_name
		FROM student_result r
		JOIN result_upload u ON u.id = r.upload_id
		JOIN student s ON s.id = r.student_id
		JOIN mentor m ON m.id = s.mentor_id
		WHERE u.module_id = $1
			AND ($2 = 0 OR r.upload_id = $2)
			AND ($3 = 0 OR s.mentor_id = $3)
			AND (NOT $4 OR r.fail_flag)
		ORDER BY s.roll_no NULLS LAST, s.name`,
		filter.ModuleID, filter.UploadID, filter.MentorID, filter.FailedOnly)
	if err != nil {
		return nil, errors.Wrap(err, "filtering student results")
	}
	return results, nil
}

func (repo resultRepository) CreateCall(ctx context.Context, c result.CallRecord, exec ...core.DBExecutor) (result.CallRecord, error) {
	err := repo.getExec(exec).QueryRowxContext(ctx, `
		INSERT INTO result_call_record (upload_id, student_id, fail_reason, marks_current, marks_total)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`,
		c.UploadID, c.StudentID, c.FailReason, c.MarksCurrent, c.MarksTotal,
	).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return result.CallRecord{}, errors.Wrap(err, "inserting result call record")
	}
	return c, nil
}

func (repo resultRepository) GetCall(ctx context.Context, moduleID, id int, exec ...core.DBExecutor) (result.CallRecord, error) {
	var c result.CallRecord
	err := sqlx.GetContext(ctx, repo.getExec(exec), &c, resultCallSelect+` WHERE u.module_id = $1 AND c.id = $2`, moduleID, id)
	if err != nil {
		return result.CallRecord{}, trapNoRowsErr(err, result.ErrCallNotFound, "getting result call record")
	}
	return c, nil
}

func (repo resultRepository) UpdateCall(ctx context.Context, c result.CallRecord, exec ...core.DBExecutor) error {
	_, err := sqlx.NamedExecContext(ctx, repo.getExec(exec), `
		UPDATE result_call_record SET
			attempt1_time = :attempt1_time,
			attempt2_time = :attempt2_time,
			final_status = :final_status,
			talked_with = :talked_with,
			duration = :duration,
			parent_reason = :parent_reason,
			message_sent = :message_sent
		WHERE id = :id`, c)
	if err != nil {
		return errors.Wrap(err, "updating result call record")
	}
	return nil
}

func (repo resultRepository) FilterCalls(ctx context.Context, filter result.CallFilter, exec ...core.DBExecutor) ([]result.CallRecord, error) {
	var calls []result.CallRecord
	err := sqlx.SelectContext(ctx, repo.getExec(exec), &calls, resultCallSelect+`
		WHERE u.module_id = $1
			AND ($2 = 0 OR c.upload_id = $2)
			AND ($3 = 0 OR s.mentor_id = $3)
		ORDER BY s.roll_no NULLS LAST, s.name`,
		filter.ModuleID, filter.UploadID, filter.MentorID)
	if err != nil {
		return nil, errors.Wrap(err, "filtering result call records")
	}
	return calls, nil
}

func (repo resultRepository) MentorStats(ctx context.Context, uploadID int, exec ...core.DBExecutor) ([]call.MentorStat, error) {
	var stats []call.MentorStat
	err := sqlx.SelectContext(ctx, repo.getExec(exec), &stats, `
		SELECT m.name AS mentor, COUNT(c.id) AS total
		FROM result_call_record c
		JOIN student s ON s.id = c.student_id
		JOIN mentor m ON m.id = s.mentor_id
		WHERE c.upload_id = $1
		GROUP BY m.name
		ORDER BY m.name`, uploadID)
	if err != nil {
		return nil, errors.Wrap(err, "counting result calls per mentor")
	}
	return stats, nil
}
