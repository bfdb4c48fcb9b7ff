package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/followup/core"
	"github.com/trezcool/followup/core/subject"
)

type subjectRepository struct {
	repository
}

var _ subject.Repository = (*subjectRepository)(nil) // interface compliance check

func NewSubjectRepository(db *sqlx.DB) *subjectRepository {
	return &subjectRepository{repository{db: db}}
}

func (repo subjectRepository) Create(ctx context.Context, s subject.Subject, exec ...core.DBExecutor) (subject.Subject, error) {
	rows, err := sqlx.NamedQueryContext(ctx, repo.getExec(exec), `
		INSERT INTO subject (module_id, name, short_name, result_format, display_order, is_active)
		VALUES (:module_id, :name, :short_name, :result_format, :display_order, :is_active)
		RETURNING id`, s)
	if err != nil {
		if isUniqueViolation(err) {
			return subject.Subject{}, subject.ErrNameExists
		}
		return subject.Subject{}, errors.Wrap(err, "inserting subject")
	}
	defer rows.Close()
	if rows.Next() {
		if err = rows.Scan(&s.ID); err != nil {
			return subject.Subject{}, errors.Wrap(err, "scanning subject id")
		}
	}
	return s, errors.Wrap(rows.Err(), "inserting subject")
}

func (repo subjectRepository) GetByID(ctx context.Context, moduleID, id int, exec ...core.DBExecutor) (subject.Subject, error) {
	var s subject.Subject
	err := sqlx.GetContext(ctx, repo.getExec(exec), &s, `SELECT * FROM subject WHERE module_id = $1 AND id = $2`, moduleID, id)
	if err != nil {
		return subject.Subject{}, trapNoRowsErr(err, subject.ErrNotFound, "getting subject")
	}
	return s, nil
}

func (repo subjectRepository) GetByName(ctx context.Context, moduleID int, name string, exec ...core.DBExecutor) (subject.Subject, error) {
	var s subject.Subject
	err := sqlx.GetContext(ctx, repo.getExec(exec), &s,
		`SELECT * FROM subject WHERE module_id = $1 AND LOWER(name) = LOWER($2)`, moduleID, name)
	if err != nil {
		return subject.Subject{}, trapNoRowsErr(err, subject.ErrNotFound, "getting subject by name")
	}
	return s, nil
}

func (repo subjectRepository) List(ctx context.Context, moduleID int, activeOnly bool, exec ...core.DBExecutor) ([]subject.Subject, error) {
	var subjects []subject.Subject
	err := sqlx.SelectContext(ctx, repo.getExec(exec), &subjects, `
		SELECT * FROM subject
		WHERE module_id = $1 AND (NOT $2 OR is_active)
		ORDER BY name`, moduleID, activeOnly)
	if err != nil {
		return nil, errors.Wrap(err, "listing subjects")
	}
	return subjects, nil
}

func (repo subjectRepository) Update(ctx context.Context, s subject.Subject, exec ...core.DBExecutor) (subject.Subject, error) {
	res, err := sqlx.NamedExecContext(ctx, repo.getExec(exec), `
		UPDATE subject SET
			name = :name,
			short_name = :short_name,
			result_format = :result_format,
			display_order = :display_order,
			is_active = :is_active
		WHERE module_id = :module_id AND id = :id`, s)
	if err != nil {
		if isUniqueViolation(err) {
			return subject.Subject{}, subject.ErrNameExists
		}
		return subject.Subject{}, errors.Wrap(err, "updating subject")
	}
	n, err := affected(res, "updating subject")
	if err != nil {
		return subject.Subject{}, err
	}
	if n == 0 {
		return subject.Subject{}, subject.ErrNotFound
	}
	return s, nil
}

func (repo subjectRepository) Delete(ctx context.Context, moduleID, id int, exec ...core.DBExecutor) error {
	if _, err := repo.getExec(exec).ExecContext(ctx, `DELETE FROM subject WHERE module_id = $1 AND id = $2`, moduleID, id); err != nil {
		return errors.Wrap(err, "deleting subject")
	}
	return nil
}
