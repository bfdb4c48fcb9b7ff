package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/followup/core"
	"github.com/trezcool/followup/core/practical"
)

type practicalRepository struct {
	repository
}

var _ practical.Repository = (*practicalRepository)(nil) // interface compliance check

func NewPracticalRepository(db *sqlx.DB) *practicalRepository {
	return &practicalRepository{repository{db: db}}
}

func (repo practicalRepository) CreateUpload(ctx context.Context, u practical.Upload, exec ...core.DBExecutor) (practical.Upload, error) {
	err := repo.getExec(exec).QueryRowxContext(ctx, `
		INSERT INTO practical_upload (module_id, uploaded_by) VALUES ($1, $2)
		RETURNING id, uploaded_at`, u.ModuleID, u.UploadedBy,
	).Scan(&u.ID, &u.UploadedAt)
	if err != nil {
		return practical.Upload{}, errors.Wrap(err, "inserting practical upload")
	}
	return u, nil
}

func (repo practicalRepository) SaveUploadStats(ctx context.Context, u practical.Upload, exec ...core.DBExecutor) error {
	_, err := repo.getExec(exec).ExecContext(ctx,
		`UPDATE practical_upload SET rows_total = $2, rows_matched = $3 WHERE id = $1`,
		u.ID, u.RowsTotal, u.RowsMatched)
	if err != nil {
		return errors.Wrap(err, "saving practical upload stats")
	}
	return nil
}

func (repo practicalRepository) DeleteModuleMarks(ctx context.Context, moduleID int, exec ...core.DBExecutor) (int, error) {
	res, err := repo.getExec(exec).ExecContext(ctx, `DELETE FROM practical_mark WHERE module_id = $1`, moduleID)
	if err != nil {
		return 0, errors.Wrap(err, "deleting practical marks")
	}
	return affected(res, "deleting practical marks")
}

func (repo practicalRepository) DeleteSubjectMarks(ctx context.Context, moduleID, subjectID int, exec ...core.DBExecutor) (int, error) {
	res, err := repo.getExec(exec).ExecContext(ctx,
		`DELETE FROM practical_mark WHERE module_id = $1 AND subject_id = $2`, moduleID, subjectID)
	if err != nil {
		return 0, errors.Wrap(err, "deleting subject practical marks")
	}
	return affected(res, "deleting subject practical marks")
}

func (repo practicalRepository) CreateMarks(ctx context.Context, marks []practical.Mark, exec ...core.DBExecutor) error {
	if len(marks) == 0 {
		return nil
	}
	_, err := sqlx.NamedExecContext(ctx, repo.getExec(exec), `
		INSERT INTO practical_mark (module_id, upload_id, student_id, subject_id, pr_marks, attendance_percentage)
		VALUES (:module_id, :upload_id, :student_id, :subject_id, :pr_marks, :attendance_percentage)`, marks)
	if err != nil {
		return errors.Wrap(err, "inserting practical marks")
	}
	return nil
}

func (repo practicalRepository) DeleteBlankMarks(ctx context.Context, moduleID int, exec ...core.DBExecutor) (int, error) {
	res, err := repo.getExec(exec).ExecContext(ctx, `
		DELETE FROM practical_mark
		WHERE module_id = $1 AND pr_marks IS NULL AND attendance_percentage IS NULL`, moduleID)
	if err != nil {
		return 0, errors.Wrap(err, "deleting blank practical marks")
	}
	return affected(res, "deleting blank practical marks")
}

func (repo practicalRepository) FilterMarks(ctx context.Context, filter practical.QueryFilter, exec ...core.DBExecutor) ([]practical.Mark, error) {
	var marks []practical.Mark
	err := sqlx.SelectContext(ctx, repo.getExec(exec), &marks, `
		SELECT p.id, p.module_id, COALESCE(p.upload_id, 0) AS upload_id, p.student_id, p.subject_id,
			p.pr_marks, p.attendance_percentage,
			s.enrollment, s.name AS student_name, sub.name AS subject_name
		FROM practical_mark p
		JOIN student s ON s.id = p.student_id
		JOIN subject sub ON sub.id = p.subject_id
		WHERE p.module_id = $1
			AND ($2 = 0 OR p.subject_id = $2)
			AND ($3 = 0 OR p.student_id = $3)
		ORDER BY s.enrollment, sub.name`,
		filter.ModuleID, filter.SubjectID, filter.StudentID)
	if err != nil {
		return nil, errors.Wrap(err, "filtering practical marks")
	}
	return marks, nil
}
