package inmemdb

import (
	"context"
	"database/sql"
	"maps"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/followup/core"
	"github.com/trezcool/followup/core/academic"
	"github.com/trezcool/followup/core/attendance"
	"github.com/trezcool/followup/core/mentor"
	"github.com/trezcool/followup/core/practical"
	"github.com/trezcool/followup/core/result"
	"github.com/trezcool/followup/core/student"
	"github.com/trezcool/followup/core/subject"
)

var errNoSQL = errors.New("inmemdb: raw SQL is not supported")

type weekKey struct {
	moduleID, weekNo int
}

type tables struct {
	pk int

	modules     map[int]academic.Module
	mentors     map[int]mentor.Mentor
	students    map[int]student.Student
	attendance  map[int]attendance.Attendance
	calls       map[int]attendance.CallRecord
	weekLocks   map[weekKey]bool
	subjects    map[int]subject.Subject
	uploads     map[int]result.Upload
	results     map[int]result.StudentResult
	resultCalls map[int]result.CallRecord
	prUploads   map[int]practical.Upload
	prMarks     map[int]practical.Mark
}

func (t *tables) clone() tables {
	return tables{
		pk:          t.pk,
		modules:     maps.Clone(t.modules),
		mentors:     maps.Clone(t.mentors),
		students:    maps.Clone(t.students),
		attendance:  maps.Clone(t.attendance),
		calls:       maps.Clone(t.calls),
		weekLocks:   maps.Clone(t.weekLocks),
		subjects:    maps.Clone(t.subjects),
		uploads:     maps.Clone(t.uploads),
		results:     maps.Clone(t.results),
		resultCalls: maps.Clone(t.resultCalls),
		prUploads:   maps.Clone(t.prUploads),
		prMarks:     maps.Clone(t.prMarks),
	}
}

// DB is an in-memory store implementing every repository, for tests & local runs.
// Cascading deletes of the SQL schema are emulated.
type DB struct {
	mu   sync.RWMutex
	txMu sync.Mutex
	t    tables
}

var _ core.TxRunner = (*DB)(nil) // interface compliance check

func NewDB() *DB {
	return &DB{t: tables{
		modules:     make(map[int]academic.Module),
		mentors:     make(map[int]mentor.Mentor),
		students:    make(map[int]student.Student),
		attendance:  make(map[int]attendance.Attendance),
		calls:       make(map[int]attendance.CallRecord),
		weekLocks:   make(map[weekKey]bool),
		subjects:    make(map[int]subject.Subject),
		uploads:     make(map[int]result.Upload),
		results:     make(map[int]result.StudentResult),
		resultCalls: make(map[int]result.CallRecord),
		prUploads:   make(map[int]practical.Upload),
		prMarks:     make(map[int]practical.Mark),
	}}
}

func (db *DB) nextPK() int {
	db.t.pk++
	return db.t.pk
}

func now() time.Time {
	return time.Now().UTC()
}

// RunInTx serializes transactions and restores the tables as they were when fn fails or panics.
func (db *DB) RunInTx(ctx context.Context, fn func(exec core.DBExecutor) error) (err error) {
	db.txMu.Lock()
	defer db.txMu.Unlock()

	db.mu.RLock()
	snapshot := db.t.clone()
	db.mu.RUnlock()

	rollback := func() {
		db.mu.Lock()
		db.t = snapshot
		db.mu.Unlock()
	}
	defer func() {
		if p := recover(); p != nil {
			rollback()
			panic(p)
		}
	}()

	if err = ctx.Err(); err == nil {
		err = fn(txExecutor{})
	}
	if err != nil {
		rollback()
	}
	return err
}

// txExecutor is handed to transactional callbacks; repositories of this package ignore it.
type txExecutor struct{}

var _ core.DBExecutor = txExecutor{}

func (txExecutor) Exec(string, ...interface{}) (sql.Result, error) { return nil, errNoSQL }
func (txExecutor) ExecContext(context.Context, string, ...interface{}) (sql.Result, error) {
	return nil, errNoSQL
}
func (txExecutor) Query(string, ...interface{}) (*sql.Rows, error) { return nil, errNoSQL }
func (txExecutor) QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error) {
	return nil, errNoSQL
}
func (txExecutor) QueryRow(string, ...interface{}) *sql.Row                         { return nil }
func (txExecutor) QueryRowContext(context.Context, string, ...interface{}) *sql.Row { return nil }

// cascades

func (db *DB) deleteStudent(id int) {
	delete(db.t.students, id)
	for aid, a := range db.t.attendance {
		if a.StudentID == id {
			delete(db.t.attendance, aid)
		}
	}
	for cid, c := range db.t.calls {
		if c.StudentID == id {
			delete(db.t.calls, cid)
		}
	}
	for rid, r := range db.t.results {
		if r.StudentID == id {
			delete(db.t.results, rid)
		}
	}
	for cid, c := range db.t.resultCalls {
		if c.StudentID == id {
			delete(db.t.resultCalls, cid)
		}
	}
	for mid, m := range db.t.prMarks {
		if m.StudentID == id {
			delete(db.t.prMarks, mid)
		}
	}
}

func (db *DB) clearUpload(id int) {
	for rid, r := range db.t.results {
		if r.UploadID == id {
			delete(db.t.results, rid)
		}
	}
	for cid, c := range db.t.resultCalls {
		if c.UploadID == id {
			delete(db.t.resultCalls, cid)
		}
	}
}

func (db *DB) deleteUpload(id int) {
	delete(db.t.uploads, id)
	db.clearUpload(id)
}

func (db *DB) deleteSubject(id int) {
	delete(db.t.subjects, id)
	for uid, u := range db.t.uploads {
		if u.SubjectID == id {
			db.deleteUpload(uid)
		}
	}
	for mid, m := range db.t.prMarks {
		if m.SubjectID == id {
			delete(db.t.prMarks, mid)
		}
	}
}
