package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/followup/core"
	"github.com/trezcool/followup/core/attendance"
	"github.com/trezcool/followup/core/call"
)

type attendanceRepository struct {
	db *DB
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *DB) *attendanceRepository {
	return &attendanceRepository{db: db}
}

func (repo *attendanceRepository) fillCall(c attendance.CallRecord) attendance.CallRecord {
	s := repo.db.t.students[c.StudentID]
	c.Enrollment = s.Enrollment
	c.StudentName = s.Name
	c.RollNo = s.RollNo.Int
	c.MentorID = s.MentorID
	c.MentorName = repo.db.t.mentors[s.MentorID].Name
	c.FatherMobile = s.FatherMobile
	c.MotherMobile = s.MotherMobile
	return c
}

func (repo *attendanceRepository) inModule(studentID, moduleID int) bool {
	s, ok := repo.db.t.students[studentID]
	return ok && s.ModuleID == moduleID
}

func (repo *attendanceRepository) UpsertAttendance(_ context.Context, a attendance.Attendance, _ ...core.DBExecutor) (attendance.Attendance, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	a.Enrollment, a.StudentName, a.MentorName = "", "", ""
	for id, other := range repo.db.t.attendance {
		if other.StudentID == a.StudentID && other.WeekNo == a.WeekNo {
			a.ID = id
			repo.db.t.attendance[id] = a
			return a, nil
		}
	}
	a.ID = repo.db.nextPK()
	repo.db.t.attendance[a.ID] = a
	return a, nil
}

func (repo *attendanceRepository) FilterAttendance(_ context.Context, filter attendance.QueryFilter, _ ...core.DBExecutor) ([]attendance.Attendance, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var rows []attendance.Attendance
	for _, a := range repo.db.t.attendance {
		s, ok := repo.db.t.students[a.StudentID]
		switch {
		case !ok || s.ModuleID != filter.ModuleID:
			continue
		case filter.WeekNo != 0 && a.WeekNo != filter.WeekNo:
			continue
		case filter.MentorID != 0 && s.MentorID != filter.MentorID:
			continue
		case filter.CallRequired != nil && a.CallRequired != *filter.CallRequired:
			continue
		}
		a.Enrollment = s.Enrollment
		a.StudentName = s.Name
		a.MentorName = repo.db.t.mentors[s.MentorID].Name
		rows = append(rows, a)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].WeekNo != rows[j].WeekNo {
			return rows[i].WeekNo < rows[j].WeekNo
		}
		return studentLess(repo.db.t.students[rows[i].StudentID], repo.db.t.students[rows[j].StudentID])
	})
	return rows, nil
}

func (repo *attendanceRepository) GetOrCreateCall(_ context.Context, studentID, weekNo int, _ ...core.DBExecutor) (attendance.CallRecord, bool, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for _, c := range repo.db.t.calls {
		if c.StudentID == studentID && c.WeekNo == weekNo {
			return repo.fillCall(c), false, nil
		}
	}
	c := attendance.CallRecord{ID: repo.db.nextPK(), StudentID: studentID, WeekNo: weekNo, CreatedAt: now()}
	repo.db.t.calls[c.ID] = c
	return repo.fillCall(c), true, nil
}

func (repo *attendanceRepository) GetCall(_ context.Context, moduleID, id int, _ ...core.DBExecutor) (attendance.CallRecord, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if c, ok := repo.db.t.calls[id]; ok && repo.inModule(c.StudentID, moduleID) {
		return repo.fillCall(c), nil
	}
	return attendance.CallRecord{}, attendance.ErrCallNotFound
}

func (repo *attendanceRepository) UpdateCall(_ context.Context, c attendance.CallRecord, _ ...core.DBExecutor) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	stored, ok := repo.db.t.calls[c.ID]
	if !ok {
		return nil
	}
	stored.Lifecycle = c.Lifecycle
	repo.db.t.calls[c.ID] = stored
	return nil
}

func (repo *attendanceRepository) FilterCalls(_ context.Context, filter attendance.QueryFilter, _ ...core.DBExecutor) ([]attendance.CallRecord, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var calls []attendance.CallRecord
	for _, c := range repo.db.t.calls {
		s, ok := repo.db.t.students[c.StudentID]
		switch {
		case !ok || s.ModuleID != filter.ModuleID:
			continue
		case filter.WeekNo != 0 && c.WeekNo != filter.WeekNo:
			continue
		case filter.MentorID != 0 && s.MentorID != filter.MentorID:
			continue
		}
		calls = append(calls, repo.fillCall(c))
	}
	sort.Slice(calls, func(i, j int) bool {
		if calls[i].WeekNo != calls[j].WeekNo {
			return calls[i].WeekNo < calls[j].WeekNo
		}
		return studentLess(repo.db.t.students[calls[i].StudentID], repo.db.t.students[calls[j].StudentID])
	})
	return calls, nil
}

func (repo *attendanceRepository) MentorStats(_ context.Context, moduleID, weekNo int, _ ...core.DBExecutor) ([]call.MentorStat, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	counts := make(map[string]int)
	for _, c := range repo.db.t.calls {
		if c.WeekNo == weekNo && repo.inModule(c.StudentID, moduleID) {
			counts[repo.db.t.mentors[repo.db.t.students[c.StudentID].MentorID].Name]++
		}
	}
	return mentorStats(counts), nil
}

func mentorStats(counts map[string]int) []call.MentorStat {
	stats := make([]call.MentorStat, 0, len(counts))
	for name, total := range counts {
		stats = append(stats, call.MentorStat{Mentor: name, Total: total})
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Mentor < stats[j].Mentor })
	return stats
}

func (repo *attendanceRepository) Weeks(_ context.Context, moduleID int, _ ...core.DBExecutor) ([]int, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	seen := make(map[int]bool)
	var weeks []int
	for _, a := range repo.db.t.attendance {
		if repo.inModule(a.StudentID, moduleID) && !seen[a.WeekNo] {
			seen[a.WeekNo] = true
			weeks = append(weeks, a.WeekNo)
		}
	}
	sort.Ints(weeks)
	return weeks, nil
}

func (repo *attendanceRepository) IsWeekLocked(_ context.Context, moduleID, weekNo int, _ ...core.DBExecutor) (bool, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	return repo.db.t.weekLocks[weekKey{moduleID, weekNo}], nil
}

func (repo *attendanceRepository) LockWeek(_ context.Context, moduleID, weekNo int, _ ...core.DBExecutor) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	repo.db.t.weekLocks[weekKey{moduleID, weekNo}] = true
	return nil
}

func (repo *attendanceRepository) DeleteWeek(_ context.Context, moduleID, weekNo int, _ ...core.DBExecutor) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	match := func(studentID, week int) bool {
		return repo.inModule(studentID, moduleID) && (weekNo == 0 || week == weekNo)
	}
	for id, a := range repo.db.t.attendance {
		if match(a.StudentID, a.WeekNo) {
			delete(repo.db.t.attendance, id)
		}
	}
	for id, c := range repo.db.t.calls {
		if match(c.StudentID, c.WeekNo) {
			delete(repo.db.t.calls, id)
		}
	}
	for k := range repo.db.t.weekLocks {
		if k.moduleID == moduleID && (weekNo == 0 || k.weekNo == weekNo) {
			delete(repo.db.t.weekLocks, k)
		}
	}
	return nil
}
