package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/followup/core"
	"github.com/trezcool/followup/core/mentor"
)

const mentorSelect = `
	SELECT m.id, m.name, m.full_name, m.created_at, COUNT(s.id) AS student_count
	FROM mentor m
	LEFT JOIN student s ON s.mentor_id = m.id`

type mentorRepository struct {
	repository
}

var _ mentor.Repository = (*mentorRepository)(nil) // interface compliance check

func NewMentorRepository(db *sqlx.DB) *mentorRepository {
	return &mentorRepository{repository{db: db}}
}

func (repo mentorRepository) Create(ctx context.Context, m mentor.Mentor, exec ...core.DBExecutor) (mentor.Mentor, error) {
	err := repo.getExec(exec).QueryRowxContext(ctx,
		`INSERT INTO mentor (name, full_name) VALUES ($1, $2) RETURNING id, created_at`,
		m.Name, m.FullName,
	).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return mentor.Mentor{}, errors.Wrap(err, "inserting mentor")
	}
	m.StudentCount = 0
	return m, nil
}

func (repo mentorRepository) GetByID(ctx context.Context, id int, exec ...core.DBExecutor) (mentor.Mentor, error) {
	var m mentor.Mentor
	if err := sqlx.GetContext(ctx, repo.getExec(exec), &m, mentorSelect+` WHERE m.id = $1 GROUP BY m.id`, id); err != nil {
		return mentor.Mentor{}, trapNoRowsErr(err, mentor.ErrNotFound, "getting mentor")
	}
	return m, nil
}

func (repo mentorRepository) List(ctx context.Context, exec ...core.DBExecutor) ([]mentor.Mentor, error) {
	var mentors []mentor.Mentor
	if err := sqlx.SelectContext(ctx, repo.getExec(exec), &mentors, mentorSelect+` GROUP BY m.id ORDER BY m.name`); err != nil {
		return nil, errors.Wrap(err, "listing mentors")
	}
	return mentors, nil
}

func (repo mentorRepository) UpdateFullName(ctx context.Context, id int, fullName string, exec ...core.DBExecutor) error {
	if _, err := repo.getExec(exec).ExecContext(ctx, `UPDATE mentor SET full_name = $2 WHERE id = $1`, id, fullName); err != nil {
		return errors.Wrap(err, "updating mentor")
	}
	return nil
}

func (repo mentorRepository) ReassignStudents(ctx context.Context, fromID, toID int, exec ...core.DBExecutor) (int, error) {
	res, err := repo.getExec(exec).ExecContext(ctx, `UPDATE student SET mentor_id = $2 WHERE mentor_id = $1`, fromID, toID)
	if err != nil {
		return 0, errors.Wrap(err, "reassigning students")
	}
	return affected(res, "reassigning students")
}

func (repo mentorRepository) Delete(ctx context.Context, id int, exec ...core.DBExecutor) error {
	if _, err := repo.getExec(exec).ExecContext(ctx, `DELETE FROM mentor WHERE id = $1`, id); err != nil {
		return errors.Wrap(err, "deleting mentor")
	}
	return nil
}
