package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/followup/core"
	"github.com/trezcool/followup/core/mentor"
)

type mentorRepository struct {
	db *DB
}

var _ mentor.Repository = (*mentorRepository)(nil) // interface compliance check

func NewMentorRepository(db *DB) *mentorRepository {
	return &mentorRepository{db: db}
}

func (repo *mentorRepository) withCount(m mentor.Mentor) mentor.Mentor {
	m.StudentCount = 0
	for _, s := range repo.db.t.students {
		if s.MentorID == m.ID {
			m.StudentCount++
		}
	}
	return m
}

func (repo *mentorRepository) Create(_ context.Context, m mentor.Mentor, _ ...core.DBExecutor) (mentor.Mentor, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	m.ID = repo.db.nextPK()
	m.CreatedAt = now()
	m.StudentCount = 0
	repo.db.t.mentors[m.ID] = m
	return m, nil
}

func (repo *mentorRepository) GetByID(_ context.Context, id int, _ ...core.DBExecutor) (mentor.Mentor, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if m, ok := repo.db.t.mentors[id]; ok {
		return repo.withCount(m), nil
	}
	return mentor.Mentor{}, mentor.ErrNotFound
}

func (repo *mentorRepository) List(_ context.Context, _ ...core.DBExecutor) ([]mentor.Mentor, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	mentors := make([]mentor.Mentor, 0, len(repo.db.t.mentors))
	for _, m := range repo.db.t.mentors {
		mentors = append(mentors, repo.withCount(m))
	}
	sort.Slice(mentors, func(i, j int) bool { return mentors[i].Name < mentors[j].Name })
	return mentors, nil
}

func (repo *mentorRepository) UpdateFullName(_ context.Context, id int, fullName string, _ ...core.DBExecutor) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if m, ok := repo.db.t.mentors[id]; ok {
		m.FullName = fullName
		repo.db.t.mentors[id] = m
	}
	return nil
}

func (repo *mentorRepository) ReassignStudents(_ context.Context, fromID, toID int, _ ...core.DBExecutor) (int, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	var n int
	for id, s := range repo.db.t.students {
		if s.MentorID == fromID {
			s.MentorID = toID
			repo.db.t.students[id] = s
			n++
		}
	}
	return n, nil
}

func (repo *mentorRepository) Delete(_ context.Context, id int, _ ...core.DBExecutor) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	delete(repo.db.t.mentors, id)
	return nil
}
