package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/trezcool/followup/core"
	"github.com/trezcool/followup/core/student"
)

type studentRepository struct {
	db *DB
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *DB) *studentRepository {
	return &studentRepository{db: db}
}

func (db *DB) fillStudent(s student.Student) student.Student {
	s.MentorName = db.t.mentors[s.MentorID].Name
	return s
}

// studentLess orders by roll number (missing last) then name.
func studentLess(a, b student.Student) bool {
	if a.RollNo.Valid != b.RollNo.Valid {
		return a.RollNo.Valid
	}
	if a.RollNo.Int != b.RollNo.Int {
		return a.RollNo.Int < b.RollNo.Int
	}
	return a.Name < b.Name
}

func (repo *studentRepository) GetByID(_ context.Context, moduleID, id int, _ ...core.DBExecutor) (student.Student, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if s, ok := repo.db.t.students[id]; ok && s.ModuleID == moduleID {
		return repo.db.fillStudent(s), nil
	}
	return student.Student{}, student.ErrNotFound
}

func (repo *studentRepository) GetByEnrollment(_ context.Context, moduleID int, enrollment string, _ ...core.DBExecutor) (student.Student, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, s := range repo.db.t.students {
		if s.ModuleID == moduleID && s.Enrollment == enrollment {
			return repo.db.fillStudent(s), nil
		}
	}
	return student.Student{}, student.ErrNotFound
}

func (repo *studentRepository) Upsert(_ context.Context, s student.Student, _ ...core.DBExecutor) (student.Student, bool, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	s.MentorName = ""
	for id, other := range repo.db.t.students {
		if other.ModuleID == s.ModuleID && other.Enrollment == s.Enrollment {
			s.ID = id
			repo.db.t.students[id] = s
			return s, false, nil
		}
	}
	s.ID = repo.db.nextPK()
	repo.db.t.students[s.ID] = s
	return s, true, nil
}

func (repo *studentRepository) Filter(_ context.Context, filter student.QueryFilter, _ ...core.DBExecutor) ([]student.Student, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	search := strings.ToLower(filter.Search)
	var students []student.Student
	for _, s := range repo.db.t.students {
		if s.ModuleID != filter.ModuleID || (filter.MentorID != 0 && s.MentorID != filter.MentorID) {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(s.Name), search) &&
			!strings.Contains(strings.ToLower(s.Enrollment), search) {
			continue
		}
		students = append(students, repo.db.fillStudent(s))
	}
	sort.Slice(students, func(i, j int) bool { return studentLess(students[i], students[j]) })
	return students, nil
}

func (repo *studentRepository) CountByMentor(_ context.Context, moduleID, mentorID int, _ ...core.DBExecutor) (int, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var n int
	for _, s := range repo.db.t.students {
		if s.ModuleID == moduleID && s.MentorID == mentorID {
			n++
		}
	}
	return n, nil
}

func (repo *studentRepository) DeleteByModule(_ context.Context, moduleID int, _ ...core.DBExecutor) (int, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	var n int
	for id, s := range repo.db.t.students {
		if s.ModuleID == moduleID {
			repo.db.deleteStudent(id)
			n++
		}
	}
	return n, nil
}
