package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/followup/core"
	"github.com/trezcool/followup/core/call"
	"github.com/trezcool/followup/core/result"
)

type resultRepository struct {
	db *DB
}

var _ result.Repository = (*resultRepository)(nil) // interface compliance check

func NewResultRepository(db *DB) *resultRepository {
	return &resultRepository{db: db}
}

func (repo *resultRepository) fillUpload(u result.Upload) result.Upload {
	u.SubjectName = repo.db.t.subjects[u.SubjectID].Name
	return u
}

func (repo *resultRepository) fillCall(c result.CallRecord) result.CallRecord {
	u := repo.db.t.uploads[c.UploadID]
	s := repo.db.t.students[c.StudentID]
	c.TestName = u.TestName
	c.SubjectName = repo.db.t.subjects[u.SubjectID].Name
	c.Enrollment = s.Enrollment
	c.StudentName = s.Name
	c.RollNo = s.RollNo.Int
	c.MentorID = s.MentorID
	c.MentorName = repo.db.t.mentors[s.MentorID].Name
	c.FatherMobile = s.FatherMobile
	c.MotherMobile = s.MotherMobile
	return c
}

func (repo *resultRepository) uploadInModule(uploadID, moduleID int) bool {
	u, ok := repo.db.t.uploads[uploadID]
	return ok && u.ModuleID == moduleID
}

func (repo *resultRepository) UpsertUpload(_ context.Context, u result.Upload, _ ...core.DBExecutor) (result.Upload, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if u.UploadedAt.IsZero() {
		u.UploadedAt = now()
	}
	for id, stored := range repo.db.t.uploads {
		if stored.ModuleID == u.ModuleID && stored.TestName == u.TestName && stored.SubjectID == u.SubjectID {
			stored.UploadedBy = u.UploadedBy
			stored.UploadedAt = u.UploadedAt
			repo.db.t.uploads[id] = stored
			return repo.fillUpload(stored), nil
		}
	}
	u.ID = repo.db.nextPK()
	u.RowsTotal, u.RowsMatched, u.RowsFailed = 0, 0, 0
	u.SubjectName = ""
	repo.db.t.uploads[u.ID] = u
	return repo.fillUpload(u), nil
}

func (repo *resultRepository) GetUpload(_ context.Context, moduleID, id int, _ ...core.DBExecutor) (result.Upload, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if u, ok := repo.db.t.uploads[id]; ok && u.ModuleID == moduleID {
		return repo.fillUpload(u), nil
	}
	return result.Upload{}, result.ErrUploadNotFound
}

func (repo *resultRepository) ListUploads(_ context.Context, moduleID int, _ ...core.DBExecutor) ([]result.Upload, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var uploads []result.Upload
	for _, u := range repo.db.t.uploads {
		if u.ModuleID == moduleID {
			uploads = append(uploads, repo.fillUpload(u))
		}
	}
	sort.Slice(uploads, func(i, j int) bool {
		if uploads[i].TestName != uploads[j].TestName {
			return uploads[i].TestName < uploads[j].TestName
		}
		return uploads[i].SubjectName < uploads[j].SubjectName
	})
	return uploads, nil
}

func (repo *resultRepository) SaveUploadStats(_ context.Context, u result.Upload, _ ...core.DBExecutor) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if stored, ok := repo.db.t.uploads[u.ID]; ok {
		stored.RowsTotal, stored.RowsMatched, stored.RowsFailed = u.RowsTotal, u.RowsMatched, u.RowsFailed
		repo.db.t.uploads[u.ID] = stored
	}
	return nil
}

func (repo *resultRepository) DeleteUpload(_ context.Context, moduleID, id int, _ ...core.DBExecutor) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if !repo.uploadInModule(id, moduleID) {
		return result.ErrUploadNotFound
	}
	repo.db.deleteUpload(id)
	return nil
}

func (repo *resultRepository) DeleteModuleUploads(_ context.Context, moduleID int, _ ...core.DBExecutor) (int, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	var n int
	for id, u := range repo.db.t.uploads {
		if u.ModuleID == moduleID {
			repo.db.deleteUpload(id)
			n++
		}
	}
	return n, nil
}

func (repo *resultRepository) ClearUpload(_ context.Context, uploadID int, _ ...core.DBExecutor) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	repo.db.clearUpload(uploadID)
	return nil
}

func (repo *resultRepository) CreateResult(_ context.Context, r result.StudentResult, _ ...core.DBExecutor) (result.StudentResult, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	r.ID = repo.db.nextPK()
	r.StudentName, r.RollNo, r.MentorName = "", 0, ""
	repo.db.t.results[r.ID] = r
	return r, nil
}

func (repo *resultRepository) FilterResults(_ context.Context, filter result.ResultFilter, _ ...core.DBExecutor) ([]result.StudentResult, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var results []result.StudentResult
	for _, r := range repo.db.t.results {
		s := repo.db.t.students[r.StudentID]
		switch {
		case !repo.uploadInModule(r.UploadID, filter.ModuleID):
			continue
		case filter.UploadID != 0 && r.UploadID != filter.UploadID:
			continue
		case filter.MentorID != 0 && s.MentorID != filter.MentorID:
			continue
		case filter.FailedOnly && !r.FailFlag:
			continue
		}
		r.StudentName = s.Name
		r.RollNo = s.RollNo.Int
		r.MentorName = repo.db.t.mentors[s.MentorID].Name
		results = append(results, r)
	}
	sort.Slice(results, func(i, j int) bool {
		return studentLess(repo.db.t.students[results[i].StudentID], repo.db.t.students[results[j].StudentID])
	})
	return results, nil
}

func (repo *resultRepository) CreateCall(_ context.Context, c result.CallRecord, _ ...core.DBExecutor) (result.CallRecord, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	c.ID = repo.db.nextPK()
	c.CreatedAt = now()
	repo.db.t.resultCalls[c.ID] = result.CallRecord{
		ID:           c.ID,
		UploadID:     c.UploadID,
		StudentID:    c.StudentID,
		FailReason:   c.FailReason,
		MarksCurrent: c.MarksCurrent,
		MarksTotal:   c.MarksTotal,
		Lifecycle:    c.Lifecycle,
		CreatedAt:    c.CreatedAt,
	}
	return c, nil
}

func (repo *resultRepository) GetCall(_ context.Context, moduleID, id int, _ ...core.DBExecutor) (result.CallRecord, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if c, ok := repo.db.t.resultCalls[id]; ok && repo.uploadInModule(c.UploadID, moduleID) {
		return repo.fillCall(c), nil
	}
	return result.CallRecord{}, result.ErrCallNotFound
}

func (repo *resultRepository) UpdateCall(_ context.Context, c result.CallRecord, _ ...core.DBExecutor) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if stored, ok := repo.db.t.resultCalls[c.ID]; ok {
		stored.Lifecycle = c.Lifecycle
		repo.db.t.resultCalls[c.ID] = stored
	}
	return nil
}

func (repo *resultRepository) FilterCalls(_ context.Context, filter result.CallFilter, _ ...core.DBExecutor) ([]result.CallRecord, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var calls []result.CallRecord
	for _, c := range repo.db.t.resultCalls {
		switch {
		case !repo.uploadInModule(c.UploadID, filter.ModuleID):
			continue
		case filter.UploadID != 0 && c.UploadID != filter.UploadID:
			continue
		case filter.MentorID != 0 && repo.db.t.students[c.StudentID].MentorID != filter.MentorID:
			continue
		}
		calls = append(calls, repo.fillCall(c))
	}
	sort.Slice(calls, func(i, j int) bool {
		return studentLess(repo.db.t.students[calls[i].StudentID], repo.db.t.students[calls[j].StudentID])
	})
	return calls, nil
}

func (repo *resultRepository) MentorStats(_ context.Context, uploadID int, _ ...core.DBExecutor) ([]call.MentorStat, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	counts := make(map[string]int)
	for _, c := range repo.db.t.resultCalls {
		if c.UploadID == uploadID {
			counts[repo.db.t.mentors[repo.db.t.students[c.StudentID].MentorID].Name]++
		}
	}
	return mentorStats(counts), nil
}
