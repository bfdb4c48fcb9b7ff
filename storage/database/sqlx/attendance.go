package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/followup/core"
	"github.com/trezcool/followup/core/attendance"
	"github.com/trezcool/followup/core/call"
)

const attendanceCallSelect = `
	SELECT c.id, c.student_id, c.week_no, c.attempt1_time, c.attempt2_time, c.final_status, c.talked_with,
		c.duration, c.parent_reason, c.message_sent, c.created_at,
		s.enrollment, s.name AS student_name, COALESCE(s.roll_no, 0) AS roll_no, s.mentor_id, m.name AS mentor_name,
		s.father_mobile, s.mother_mobile
	FROM call_record c
	JOIN student s ON s.id = c.student_id
	JOIN mentor m ON m.id = s.mentor_id`

type attendanceRepository struct {
	repository
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *sqlx.DB) *attendanceRepository {
	return &attendanceRepository{repository{db: db}}
}

func (repo attendanceRepository) UpsertAttendance(ctx context.Context, a attendance.Attendance, exec ...core.DBExecutor) (attendance.Attendance, error) {
	err := repo.getExec(exec).QueryRowxContext(ctx, `
		INSERT INTO attendance (student_id, week_no, week_percentage, overall_percentage, call_required)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (student_id, week_no) DO UPDATE SET
			week_percentage = EXCLUDED.week_percentage,
			overall_percentage = EXCLUDED.overall_percentage,
			call_required = EXCLUDED.call_required
		RETURNING id`,
		a.StudentID, a.WeekNo, a.WeekPercentage, a.OverallPercentage, a.CallRequired,
	).Scan(&a.ID)
	if err != nil {
		return attendance.Attendance{}, errors.Wrap(err, "upserting attendance")
	}
	return a, nil
}

func (repo attendanceRepository) FilterAttendance(ctx context.Context, filter attendance.QueryFilter, exec ...core.DBExecutor) ([]attendance.Attendance, error) {
	var rows []attendance.Attendance
	err := sqlx.SelectContext(ctx, repo.getExec(exec), &rows, `
		SELECT a.id, a.student_id, a.week_no, a.week_percentage, a.overall_percentage, a.call_required,
			s.enrollment, s.name AS student_name, m.name AS mentor_name
		FROM attendance a
		JOIN student s ON s.id = a.student_id
		JOIN mentor m ON m.id = s.mentor_id
		WHERE s.module_id = $1
			AND ($2 = 0 OR a.week_no = $2)
			AND ($3 = 0 OR s.mentor_id = $3)
			AND ($4::boolean IS NULL OR a.call_required = $4)
		ORDER BY a.week_no, s.roll_no NULLS LAST, s.name`,
		filter.ModuleID, filter.WeekNo, filter.MentorID, filter.CallRequired)
	if err != nil {
		return nil, errors.Wrap(err, "filtering attendance")
	}
	return rows, nil
}

func (repo attendanceRepository) GetOrCreateCall(ctx context.Context, studentID, weekNo int, exec ...core.DBExecutor) (attendance.CallRecord, bool, error) {
	ext := repo.getExec(exec)
	var id int
	err := ext.QueryRowxContext(ctx, `
		INSERT INTO call_record (student_id, week_no) VALUES ($1, $2)
		ON CONFLICT (student_id, week_no) DO NOTHING
		RETURNING id`, studentID, weekNo,
	).Scan(&id)
	created := err == nil
	if err != nil && !isNoRows(err) {
		return attendance.CallRecord{}, false, errors.Wrap(err, "inserting call record")
	}

	var c attendance.CallRecord
	err = sqlx.GetContext(ctx, ext, &c, attendanceCallSelect+` WHERE c.student_id = $1 AND c.week_no = $2`, studentID, weekNo)
	if err != nil {
		return attendance.CallRecord{}, false, errors.Wrap(err, "getting call record")
	}
	return c, created, nil
}

func (repo attendanceRepository) GetCall(ctx context.Context, moduleID, id int, exec ...core.DBExecutor) (attendance.CallRecord, error) {
	var c attendance.CallRecord
	err := sqlx.GetContext(ctx, repo.getExec(exec), &c, attendanceCallSelect+` WHERE s.module_id = $1 AND c.id = $2`, moduleID, id)
	if err != nil {
		return attendance.CallRecord{}, trapNoRowsErr(err, attendance.ErrCallNotFound, "getting call record")
	}
	return c, nil
}

func (repo attendanceRepository) UpdateCall(ctx context.Context, c attendance.CallRecord, exec ...core.DBExecutor) error {
	_, err := sqlx.NamedExecContext(ctx, repo.getExec(exec), `
		UPDATE call_record SET
			attempt1_time = :attempt1_time,
			attempt2_time = :attempt2_time,
			final_status = :final_status,
			talked_with = :talked_with,
			duration = :duration,
			parent_reason = :parent_reason,
			message_sent = :message_sent
		WHERE id = :id`, c)
	if err != nil {
		return errors.Wrap(err, "updating call record")
	}
	return nil
}

func (repo attendanceRepository) FilterCalls(ctx context.Context, filter attendance.QueryFilter, exec ...core.DBExecutor) ([]attendance.CallRecord, error) {
	var calls []attendance.CallRecord
	err := sqlx.SelectContext(ctx, repo.getExec(exec), &calls, attendanceCallSelect+`
		WHERE s.module_id = $1
			AND ($2 = 0 OR c.week_no = $2)
			AND ($3 = 0 OR s.mentor_id = $3)
		ORDER BY c.week_no, s.roll_no NULLS LAST, s.name`,
		filter.ModuleID, filter.WeekNo, filter.MentorID)
	if err != nil {
		return nil, errors.Wrap(err, "filtering call records")
	}
	return calls, nil
}

func (repo attendanceRepository) MentorStats(ctx context.Context, moduleID, weekNo int, exec ...core.DBExecutor) ([]call.MentorStat, error) {
	var stats []call.MentorStat
	err := sqlx.SelectContext(ctx, repo.getExec(exec), &stats, `
		SELECT m.name AS mentor, COUNT(c.id) AS total
		FROM call_record c
		JOIN student s ON s.id = c.student_id
		JOIN mentor m ON m.id = s.mentor_id
		WHERE s.module_id = $1 AND c.week_no = $2
		GROUP BY m.name
		ORDER BY m.name`, moduleID, weekNo)
	if err != nil {
		return nil, errors.Wrap(err, "counting calls per mentor")
	}
	return stats, nil
}

func (repo attendanceRepository) Weeks(ctx context.Context, moduleID int, exec ...core.DBExecutor) ([]int, error) {
	var weeks []int
	err := sqlx.SelectContext(ctx, repo.getExec(exec), &weeks, `
		SELECT DISTINCT a.week_no
		FROM attendance a
		JOIN student s ON s.id = a.student_id
		WHERE s.module_id = $1
		ORDER BY a.week_no`, moduleID)
	if err != nil {
		return nil, errors.Wrap(err, "listing weeks")
	}
	return weeks, nil
}

func (repo attendanceRepository) IsWeekLocked(ctx context.Context, moduleID, weekNo int, exec ...core.DBExecutor) (bool, error) {
	var locked bool
	err := sqlx.GetContext(ctx, repo.getExec(exec), &locked, `
		SELECT EXISTS (SELECT 1 FROM week_lock WHERE module_id = $1 AND week_no = $2 AND locked)`,
		moduleID, weekNo)
	if err != nil {
		return false, errors.Wrap(err, "checking week lock")
	}
	return locked, nil
}

func (repo attendanceRepository) LockWeek(ctx context.Context, moduleID, weekNo int, exec ...core.DBExecutor) error {
	_, err := repo.getExec(exec).ExecContext(ctx, `
		INSERT INTO week_lock (module_id, week_no, locked) VALUES ($1, $2, TRUE)
		ON CONFLICT (module_id, week_no) DO UPDATE SET locked = TRUE`, moduleID, weekNo)
	if err != nil {
		return errors.Wrap(err, "locking week")
	}
	return nil
}

// DeleteWeek removes the attendance & calls of a week, or of every week when weekNo is 0.
func (repo attendanceRepository) DeleteWeek(ctx context.Context, moduleID, weekNo int, exec ...core.DBExecutor) error {
	ext := repo.getExec(exec)
	for _, table := range []string{"attendance", "call_record"} {
		_, err := ext.ExecContext(ctx, `
			DELETE FROM `+table+` t
			USING student s
			WHERE s.id = t.student_id AND s.module_id = $1 AND ($2 = 0 OR t.week_no = $2)`, moduleID, weekNo)
		if err != nil {
			return errors.Wrapf(err, "deleting %s", table)
		}
	}
	_, err := ext.ExecContext(ctx, `DELETE FROM week_lock WHERE module_id = $1 AND ($2 = 0 OR week_no = $2)`, moduleID, weekNo)
	return errors.Wrap(err, "deleting week locks")
}
