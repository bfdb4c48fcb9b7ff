package echoapi_test

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/followup/apps/api/echo"
	"github.com/trezcool/followup/core"
	"github.com/trezcool/followup/core/academic"
	"github.com/trezcool/followup/core/attendance"
	"github.com/trezcool/followup/core/mentor"
	"github.com/trezcool/followup/core/practical"
	"github.com/trezcool/followup/core/result"
	"github.com/trezcool/followup/core/student"
	"github.com/trezcool/followup/core/subject"
	"github.com/trezcool/followup/storage/database/inmem"
	testutil "github.com/trezcool/followup/tests"
)

type testApp struct {
	srv     *echoapi.Server
	jobs    *result.JobRunner
	module  academic.Module
	hds, pm mentor.Mentor
	maths   subject.Subject
}

// newTestApp serves a fresh in-memory database holding one module, two mentors, three students & a subject.
func newTestApp(t *testing.T) testApp {
	t.Helper()
	logger := core.NopLogger{}
	db := inmemdb.NewDB()
	modules := inmemdb.NewModuleRepository(db)
	mentors := inmemdb.NewMentorRepository(db)
	students := inmemdb.NewStudentRepository(db)
	subjects := inmemdb.NewSubjectRepository(db)

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)

	resultSvc := result.NewService(db, inmemdb.NewResultRepository(db), subjects, students, logger)
	jobs, err := result.NewJobRunner(resultSvc, core.JobsConfig{Retention: time.Hour}, logger)
	require.NoError(t, err)

	conf := &core.Config{AppName: "followup", TestMode: true}
	conf.Server.MaxUploadMB = 5

	app := testApp{
		srv: echoapi.NewServer(echoapi.ServerDeps{
			Conf:          conf,
			Logger:        logger,
			Validate:      validate,
			Translator:    translator,
			ModuleSvc:     academic.NewService(modules),
			MentorRepo:    mentors,
			StudentSvc:    student.NewService(students, mentor.NewIdentityResolver(mentors, logger), logger),
			AttendanceSvc: attendance.NewService(db, inmemdb.NewAttendanceRepository(db), students, logger),
			SubjectSvc:    subject.NewService(subjects),
			ResultSvc:     resultSvc,
			ResultJobs:    jobs,
			PracticalSvc:  practical.NewService(db, inmemdb.NewPracticalRepository(db), subjects, students, logger),
		}),
		jobs:   jobs,
		module: testutil.CreateModule(t, modules, "FY2 - Batch 2026-29_Sem-1"),
		hds:    testutil.CreateMentor(t, mentors, "HDS", ""),
		pm:     testutil.CreateMentor(t, mentors, "PM", "Priya Mehta"),
	}
	app.maths = testutil.CreateSubject(t, subjects, app.module.ID, "Mathematics", "MATHS1", subject.FormatFull)
	testutil.CreateStudent(t, students, app.module.ID, "230101", "Asha", app.hds.ID, 1)
	testutil.CreateStudent(t, students, app.module.ID, "230102", "Bhavin", app.hds.ID, 2)
	testutil.CreateStudent(t, students, app.module.ID, "230103", "Chirag", app.pm.ID, 3)
	return app
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	wantCode int
	wantData string
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Actor", "coordinator")
	return req, httptest.NewRecorder()
}

type formFile struct {
	field string
	data  io.Reader
}

func newUploadRequest(t *testing.T, path string, fields map[string]string, files ...formFile) (*http.Request, *httptest.ResponseRecorder) {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for _, f := range files {
		part, err := w.CreateFormFile(f.field, f.field+".xlsx")
		require.NoError(t, err)
		_, err = io.Copy(part, f.data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("X-Actor", "coordinator")
	return req, httptest.NewRecorder()
}

func (app testApp) serve(req *http.Request, rec *httptest.ResponseRecorder) *httptest.ResponseRecorder {
	app.srv.ServeHTTP(rec, req)
	return rec
}

func marshalObj(t *testing.T, obj interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(obj)
	require.NoError(t, err)
	return data
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst), rec.Body.String())
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
	if tt.wantData != "" {
		assert.JSONEq(t, tt.wantData, rec.Body.String())
	}
}

func runHTTPTests(t *testing.T, app testApp, tests []httpTest) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, app.serve(newRequest(tt.method, tt.path, tt.body)))
		})
	}
}

func TestServer_home(t *testing.T) {
	app := newTestApp(t)
	rec := app.serve(newRequest(http.MethodGet, "/"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome to the Follow-up Tracker API!", rec.Body.String())
}
