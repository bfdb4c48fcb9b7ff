package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/followup/core"
	"github.com/trezcool/followup/core/student"
)

const studentSelect = `
	SELECT s.id, s.module_id, s.enrollment, s.roll_no, s.name, s.batch, s.mentor_id, m.name AS mentor_name,
		s.student_mobile, s.father_mobile, s.mother_mobile
	FROM student s
	JOIN mentor m ON m.id = s.mentor_id`

type studentRepository struct {
	repository
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *sqlx.DB) *studentRepository {
	return &studentRepository{repository{db: db}}
}

func (repo studentRepository) GetByID(ctx context.Context, moduleID, id int, exec ...core.DBExecutor) (student.Student, error) {
	var s student.Student
	err := sqlx.GetContext(ctx, repo.getExec(exec), &s, studentSelect+` WHERE s.module_id = $1 AND s.id = $2`, moduleID, id)
	if err != nil {
		return student.Student{}, trapNoRowsErr(err, student.ErrNotFound, "getting student")
	}
	return s, nil
}

func (repo studentRepository) GetByEnrollment(ctx context.Context, moduleID int, enrollment string, exec ...core.DBExecutor) (student.Student, error) {
	var s student.Student
	err := sqlx.GetContext(ctx, repo.getExec(exec), &s, studentSelect+` WHERE s.module_id = $1 AND s.enrollment = $2`, moduleID, enrollment)
	if err != nil {
		return student.Student{}, trapNoRowsErr(err, student.ErrNotFound, "getting student by enrollment")
	}
	return s, nil
}

func (repo studentRepository) Upsert(ctx context.Context, s student.Student, exec ...core.DBExecutor) (student.Student, bool, error) {
	var created bool
	err := repo.getExec(exec).QueryRowxContext(ctx, `
		INSERT INTO student (module_id, enrollment, roll_no, name, batch, mentor_id, student_mobile, father_mobile, mother_mobile)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (module_id, enrollment) DO UPDATE SET
			roll_no = EXCLUDED.roll_no,
			name = EXCLUDED.name,
			batch = EXCLUDED.batch,
			mentor_id = EXCLUDED.mentor_id,
			student_mobile = EXCLUDED.student_mobile,
			father_mobile = EXCLUDED.father_mobile,
			mother_mobile = EXCLUDED.mother_mobile
		RETURNING id, (xmax = 0) AS created`,
		s.ModuleID, s.Enrollment, s.RollNo, s.Name, s.Batch, s.MentorID, s.StudentMobile, s.FatherMobile, s.MotherMobile,
	).Scan(&s.ID, &created)
	if err != nil {
		return student.Student{}, false, errors.Wrap(err, "upserting student")
	}
	return s, created, nil
}

func (repo studentRepository) Filter(ctx context.Context, filter student.QueryFilter, exec ...core.DBExecutor) ([]student.Student, error) {
	var students []student.Student
	err := sqlx.SelectContext(ctx, repo.getExec(exec), &students, studentSelect+`
		WHERE s.module_id = $1
			AND ($2 = 0 OR s.mentor_id = $2)
			AND ($3 = '' OR s.name ILIKE '%' || $3 || '%' OR s.enrollment ILIKE '%' || $3 || '%')
		ORDER BY s.roll_no NULLS LAST, s.name`,
		filter.ModuleID, filter.MentorID, filter.Search)
	if err != nil {
		return nil, errors.Wrap(err, "filtering students")
	}
	return students, nil
}

func (repo studentRepository) CountByMentor(ctx context.Context, moduleID, mentorID int, exec ...core.DBExecutor) (int, error) {
	var n int
	err := sqlx.GetContext(ctx, repo.getExec(exec), &n,
		`SELECT COUNT(*) FROM student WHERE module_id = $1 AND mentor_id = $2`, moduleID, mentorID)
	if err != nil {
		return 0, errors.Wrap(err, "counting students")
	}
	return n, nil
}

func (repo studentRepository) DeleteByModule(ctx context.Context, moduleID int, exec ...core.DBExecutor) (int, error) {
	res, err := repo.getExec(exec).ExecContext(ctx, `DELETE FROM student WHERE module_id = $1`, moduleID)
	if err != nil {
		return 0, errors.Wrap(err, "deleting students")
	}
	return affected(res, "deleting students")
}
