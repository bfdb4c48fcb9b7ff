package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/followup/core"
	"github.com/trezcool/followup/core/academic"
)

type moduleRepository struct {
	repository
}

var _ academic.Repository = (*moduleRepository)(nil) // interface compliance check

func NewModuleRepository(db *sqlx.DB) *moduleRepository {
	return &moduleRepository{repository{db: db}}
}

func (repo moduleRepository) Create(ctx context.Context, m academic.Module, exec ...core.DBExecutor) (academic.Module, error) {
	err := repo.getExec(exec).QueryRowxContext(ctx, `
		INSERT INTO academic_module (name, academic_batch, year_level, variant, semester, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`,
		m.Name, m.AcademicBatch, m.YearLevel, m.Variant, m.Semester, m.IsActive,
	).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return academic.Module{}, academic.ErrNameExists
		}
		return academic.Module{}, errors.Wrap(err, "inserting module")
	}
	return m, nil
}

func (repo moduleRepository) GetByID(ctx context.Context, id int, exec ...core.DBExecutor) (academic.Module, error) {
	var m academic.Module
	if err := sqlx.GetContext(ctx, repo.getExec(exec), &m, `SELECT * FROM academic_module WHERE id = $1`, id); err != nil {
		return academic.Module{}, trapNoRowsErr(err, academic.ErrNotFound, "getting module")
	}
	return m, nil
}

func (repo moduleRepository) GetByName(ctx context.Context, name string, exec ...core.DBExecutor) (academic.Module, error) {
	var m academic.Module
	if err := sqlx.GetContext(ctx, repo.getExec(exec), &m, `SELECT * FROM academic_module WHERE name = $1`, name); err != nil {
		return academic.Module{}, trapNoRowsErr(err, academic.ErrNotFound, "getting module by name")
	}
	return m, nil
}

func (repo moduleRepository) List(ctx context.Context, activeOnly bool, exec ...core.DBExecutor) ([]academic.Module, error) {
	var modules []academic.Module
	err := sqlx.SelectContext(ctx, repo.getExec(exec), &modules, `
		SELECT * FROM academic_module
		WHERE NOT $1 OR is_active
		ORDER BY created_at DESC, id DESC`, activeOnly)
	if err != nil {
		return nil, errors.Wrap(err, "listing modules")
	}
	return modules, nil
}

func (repo moduleRepository) SetActive(ctx context.Context, id int, active bool, exec ...core.DBExecutor) error {
	res, err := repo.getExec(exec).ExecContext(ctx, `UPDATE academic_module SET is_active = $2 WHERE id = $1`, id, active)
	if err != nil {
		return errors.Wrap(err, "updating module")
	}
	n, err := affected(res, "updating module")
	if err != nil {
		return err
	}
	if n == 0 {
		return academic.ErrNotFound
	}
	return nil
}
