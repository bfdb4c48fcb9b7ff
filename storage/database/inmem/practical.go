package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/followup/core"
	"github.com/trezcool/followup/core/practical"
)

type practicalRepository struct {
	db *DB
}

var _ practical.Repository = (*practicalRepository)(nil) // interface compliance check

func NewPracticalRepository(db *DB) *practicalRepository {
	return &practicalRepository{db: db}
}

func (repo *practicalRepository) CreateUpload(_ context.Context, u practical.Upload, _ ...core.DBExecutor) (practical.Upload, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	u.ID = repo.db.nextPK()
	u.UploadedAt = now()
	repo.db.t.prUploads[u.ID] = u
	return u, nil
}

func (repo *practicalRepository) SaveUploadStats(_ context.Context, u practical.Upload, _ ...core.DBExecutor) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if stored, ok := repo.db.t.prUploads[u.ID]; ok {
		stored.RowsTotal, stored.RowsMatched = u.RowsTotal, u.RowsMatched
		repo.db.t.prUploads[u.ID] = stored
	}
	return nil
}

func (repo *practicalRepository) deleteWhere(match func(m practical.Mark) bool) int {
	var n int
	for id, m := range repo.db.t.prMarks {
		if match(m) {
			delete(repo.db.t.prMarks, id)
			n++
		}
	}
	return n
}

func (repo *practicalRepository) DeleteModuleMarks(_ context.Context, moduleID int, _ ...core.DBExecutor) (int, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	return repo.deleteWhere(func(m practical.Mark) bool { return m.ModuleID == moduleID }), nil
}

func (repo *practicalRepository) DeleteSubjectMarks(_ context.Context, moduleID, subjectID int, _ ...core.DBExecutor) (int, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	return repo.deleteWhere(func(m practical.Mark) bool {
		return m.ModuleID == moduleID && m.SubjectID == subjectID
	}), nil
}

func (repo *practicalRepository) CreateMarks(_ context.Context, marks []practical.Mark, _ ...core.DBExecutor) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for _, m := range marks {
		m.ID = repo.db.nextPK()
		m.Enrollment, m.StudentName, m.SubjectName = "", "", ""
		repo.db.t.prMarks[m.ID] = m
	}
	return nil
}

func (repo *practicalRepository) DeleteBlankMarks(_ context.Context, moduleID int, _ ...core.DBExecutor) (int, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	return repo.deleteWhere(func(m practical.Mark) bool {
		return m.ModuleID == moduleID && !m.PRMarks.Valid && !m.AttendancePercentage.Valid
	}), nil
}

func (repo *practicalRepository) FilterMarks(_ context.Context, filter practical.QueryFilter, _ ...core.DBExecutor) ([]practical.Mark, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var marks []practical.Mark
	for _, m := range repo.db.t.prMarks {
		switch {
		case m.ModuleID != filter.ModuleID:
			continue
		case filter.SubjectID != 0 && m.SubjectID != filter.SubjectID:
			continue
		case filter.StudentID != 0 && m.StudentID != filter.StudentID:
			continue
		}
		s := repo.db.t.students[m.StudentID]
		m.Enrollment = s.Enrollment
		m.StudentName = s.Name
		m.SubjectName = repo.db.t.subjects[m.SubjectID].Name
		marks = append(marks, m)
	}
	sort.Slice(marks, func(i, j int) bool {
		if marks[i].Enrollment != marks[j].Enrollment {
			return marks[i].Enrollment < marks[j].Enrollment
		}
		return marks[i].SubjectName < marks[j].SubjectName
	})
	return marks, nil
}
