package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/trezcool/followup/core"
	"github.com/trezcool/followup/core/subject"
)

type subjectRepository struct {
	db *DB
}

var _ subject.Repository = (*subjectRepository)(nil) // interface compliance check

func NewSubjectRepository(db *DB) *subjectRepository {
	return &subjectRepository{db: db}
}

func (repo *subjectRepository) nameTaken(s subject.Subject) bool {
	for _, other := range repo.db.t.subjects {
		if other.ID != s.ID && other.ModuleID == s.ModuleID && other.Name == s.Name {
			return true
		}
	}
	return false
}

func (repo *subjectRepository) Create(_ context.Context, s subject.Subject, _ ...core.DBExecutor) (subject.Subject, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	s.ID = 0
	if repo.nameTaken(s) {
		return subject.Subject{}, subject.ErrNameExists
	}
	s.ID = repo.db.nextPK()
	repo.db.t.subjects[s.ID] = s
	return s, nil
}

func (repo *subjectRepository) GetByID(_ context.Context, moduleID, id int, _ ...core.DBExecutor) (subject.Subject, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if s, ok := repo.db.t.subjects[id]; ok && s.ModuleID == moduleID {
		return s, nil
	}
	return subject.Subject{}, subject.ErrNotFound
}

func (repo *subjectRepository) GetByName(_ context.Context, moduleID int, name string, _ ...core.DBExecutor) (subject.Subject, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, s := range repo.db.t.subjects {
		if s.ModuleID == moduleID && strings.EqualFold(s.Name, name) {
			return s, nil
		}
	}
	return subject.Subject{}, subject.ErrNotFound
}

func (repo *subjectRepository) List(_ context.Context, moduleID int, activeOnly bool, _ ...core.DBExecutor) ([]subject.Subject, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var subjects []subject.Subject
	for _, s := range repo.db.t.subjects {
		if s.ModuleID == moduleID && (!activeOnly || s.IsActive) {
			subjects = append(subjects, s)
		}
	}
	sort.Slice(subjects, func(i, j int) bool { return subjects[i].Name < subjects[j].Name })
	return subjects, nil
}

func (repo *subjectRepository) Update(_ context.Context, s subject.Subject, _ ...core.DBExecutor) (subject.Subject, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if stored, ok := repo.db.t.subjects[s.ID]; !ok || stored.ModuleID != s.ModuleID {
		return subject.Subject{}, subject.ErrNotFound
	}
	if repo.nameTaken(s) {
		return subject.Subject{}, subject.ErrNameExists
	}
	repo.db.t.subjects[s.ID] = s
	return s, nil
}

func (repo *subjectRepository) Delete(_ context.Context, moduleID, id int, _ ...core.DBExecutor) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if s, ok := repo.db.t.subjects[id]; ok && s.ModuleID == moduleID {
		repo.db.deleteSubject(id)
	}
	return nil
}
