package echoapi_test

import (
	"fmt"
	"net/http"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/followup/core/attendance"
	"github.com/trezcool/followup/core/call"
	"github.com/trezcool/followup/core/practical"
	"github.com/trezcool/followup/core/result"
	"github.com/trezcool/followup/core/student"
	testutil "github.com/trezcool/followup/tests"
)

func Test_studentApi(t *testing.T) {
	app := newTestApp(t)
	base := fmt.Sprintf("/v1/modules/%d/students", app.module.ID)

	t.Run("file required", func(t *testing.T) {
		rec := app.serve(newUploadRequest(t, base+"/upload", nil))
		checkCodeAndData(t, httpTest{wantCode: http.StatusBadRequest, wantData: `{"file": "file is required"}`}, rec)
	})

	book := testutil.Workbook(t, testutil.Sheet{Name: "MASTER", Rows: [][]interface{}{
		{"Student Master FY 2026"},
		{"Sr No", "Enrollment No", "Name of Student", "Roll No", "Short Name of Mentor", "Mentor Full Name"},
		{1, 230104, "Dhruv", 4, "PM", "Priya Mehta"},
		{2, "", "No Enrollment", 5, "PM", ""},
	}})
	rec := app.serve(newUploadRequest(t, base+"/upload", nil, formFile{"file", book}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var sum struct {
		Msg string `json:"msg"`
		student.ImportSummary
	}
	decode(t, rec, &sum)
	assert.Equal(t, 1, sum.Added)
	assert.Equal(t, 1, sum.Skipped)
	assert.Equal(t, "Added: 1 | Updated: 0 | Skipped: 1", sum.Msg)

	var students []student.Student
	decode(t, app.serve(newRequest(http.MethodGet, fmt.Sprintf("%s?mentor_id=%d", base, app.pm.ID))), &students)
	require.Len(t, students, 2)

	decode(t, app.serve(newRequest(http.MethodGet, base+"?search=dhruv")), &students)
	require.Len(t, students, 1)
	assert.Equal(t, "230104", students[0].Enrollment)

	rec = app.serve(newRequest(http.MethodGet, base+"?mentor_id=x"))
	checkCodeAndData(t, httpTest{wantCode: http.StatusBadRequest, wantData: `{"mentor_id": "must be a number"}`}, rec)

	rec = app.serve(newRequest(http.MethodDelete, base))
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: `{"deleted": 4}`}, rec)
}

// attendanceBook is a college export with fractions in the Overall column.
func attendanceBook(t *testing.T, pcts map[string]float64) *formFile {
	rows := [][]interface{}{
		{"Attendance Report"},
		{"Roll No", "Name", "Enrollment", "Attendance"},
		{"", "", "", "Overall"},
	}
	i := 0
	for enrollment, pct := range pcts {
		i++
		rows = append(rows, []interface{}{i, "Student", enrollment, pct})
	}
	return &formFile{"weekly_file", testutil.Workbook(t, testutil.Sheet{Name: "OVERALL", Rows: rows})}
}

func Test_attendanceApi(t *testing.T) {
	app := newTestApp(t)
	base := fmt.Sprintf("/v1/modules/%d/attendance", app.module.ID)
	mentorBase := fmt.Sprintf("/v1/modules/%d/mentors/%d", app.module.ID, app.hds.ID)
	week1 := map[string]float64{"230101": 0.75, "230102": 0.9, "230103": 0.95}

	t.Run("invalid uploads", func(t *testing.T) {
		rec := app.serve(newUploadRequest(t, base+"/upload", map[string]string{"week": "1"}))
		checkCodeAndData(t, httpTest{wantCode: http.StatusBadRequest, wantData: `{"weekly_file": "file is required"}`}, rec)

		rec = app.serve(newUploadRequest(t, base+"/upload", map[string]string{"week": "0", "rule": "daily"}, *attendanceBook(t, week1)))
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: `{"week": "this field is required", "rule": "rule must be one of [week overall both]"}`,
		}, rec)
	})

	rec := app.serve(newUploadRequest(t, base+"/upload", map[string]string{"week": "1"}, *attendanceBook(t, week1)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var sum struct {
		Msg string `json:"msg"`
		attendance.ImportSummary
	}
	decode(t, rec, &sum)
	assert.Equal(t, "1 students require follow-up calls for Week 1", sum.Msg)
	assert.Equal(t, 3, sum.RowsMatched)
	assert.Equal(t, []call.MentorStat{{Mentor: "HDS", Total: 1}}, sum.MentorStats)

	checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: `[1]`}, app.serve(newRequest(http.MethodGet, base+"/weeks")))

	var rows []attendance.Attendance
	decode(t, app.serve(newRequest(http.MethodGet, base+"?week=1&call_required=true")), &rows)
	require.Len(t, rows, 1)
	assert.Equal(t, "230101", rows[0].Enrollment)

	var calls []attendance.CallRecord
	decode(t, app.serve(newRequest(http.MethodGet, mentorBase+"/attendance-calls")), &calls)
	require.Len(t, calls, 1)
	callPath := fmt.Sprintf("%s/attendance-calls/%d", mentorBase, calls[0].ID)

	t.Run("other mentor's call", func(t *testing.T) {
		path := fmt.Sprintf("/v1/modules/%d/mentors/%d/attendance-calls/%d", app.module.ID, app.pm.ID, calls[0].ID)
		rec := app.serve(newRequest(http.MethodPut, path, []byte(`{"status": "received"}`)))
		checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: `{"error": "call record not found"}`}, rec)
	})

	runHTTPTests(t, app, []httpTest{
		{
			name:     "invalid call update",
			method:   http.MethodPut,
			path:     callPath,
			body:     []byte(`{"status": "busy"}`),
			wantCode: http.StatusBadRequest,
			wantData: `{"status": "status must be one of [received not_received]"}`,
		},
		{
			name:     "message sent",
			method:   http.MethodPost,
			path:     callPath + "/message-sent",
			wantCode: http.StatusOK,
			wantData: `{"msg": "Message marked as sent"}`,
		},
	})

	rec = app.serve(newRequest(http.MethodPut, callPath, []byte(`{"status": "received", "talked_with": "mother"}`)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated attendance.CallRecord
	decode(t, rec, &updated)
	assert.True(t, updated.Received())

	var report struct {
		attendance.Report
		Text string `json:"text"`
	}
	decode(t, app.serve(newRequest(http.MethodGet, mentorBase+"/attendance-report")), &report)
	assert.Equal(t, 1, report.WeekNo)
	assert.Equal(t, 1, report.Received)
	assert.Contains(t, report.Text, "Mentor Name: HDS")

	t.Run("locked week", func(t *testing.T) {
		rec := app.serve(newRequest(http.MethodPost, base+"/weeks/1/lock"))
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: `{"msg": "Week 1 locked"}`}, rec)

		rec = app.serve(newUploadRequest(t, base+"/upload", map[string]string{"week": "1"}, *attendanceBook(t, week1)))
		checkCodeAndData(t, httpTest{wantCode: http.StatusConflict, wantData: `{"error": "week is locked"}`}, rec)
	})

	rec = app.serve(newRequest(http.MethodDelete, base))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: `[]`}, app.serve(newRequest(http.MethodGet, base+"/weeks")))
}

func Test_resultApi(t *testing.T) {
	app := newTestApp(t)
	base := fmt.Sprintf("/v1/modules/%d/results", app.module.ID)
	mentorBase := fmt.Sprintf("/v1/modules/%d/mentors/%d", app.module.ID, app.hds.ID)

	book := func() formFile {
		return formFile{"result_file", testutil.Workbook(t, testutil.Sheet{Name: "Sheet1", Rows: [][]interface{}{
			{"Mid Sem Result"},
			{"Sr No", "Enrollment No", "Name", "Test-1 (25)", "Test-2 (25)", "Total"},
			{1, 230101, "Asha", 20, 20, 40},
			{2, 230102, "Bhavin", 5, "AB", ""},
			{3, 230103, "Chirag", 15, 15, 30},
		}})}
	}
	fields := map[string]string{"test_name": "t2", "subject_id": strconv.Itoa(app.maths.ID)}

	t.Run("invalid uploads", func(t *testing.T) {
		rec := app.serve(newUploadRequest(t, base+"/uploads", map[string]string{"test_name": "T9", "subject_id": "1"}, book()))
		checkCodeAndData(t, httpTest{wantCode: http.StatusBadRequest, wantData: `{"test_name": "Invalid test name"}`}, rec)

		rec = app.serve(newUploadRequest(t, base+"/uploads", fields))
		checkCodeAndData(t, httpTest{wantCode: http.StatusBadRequest, wantData: `{"result_file": "Result file is required"}`}, rec)
	})

	rec := app.serve(newUploadRequest(t, base+"/uploads", fields, book()))
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	var job result.Job
	decode(t, rec, &job)
	assert.Equal(t, "coordinator", job.CreatedBy)
	app.jobs.Wait()

	decode(t, app.serve(newRequest(http.MethodGet, base+"/jobs/"+job.ID)), &job)
	require.Equal(t, result.JobCompleted, job.Status, job.Message)
	require.NotNil(t, job.Result)
	assert.Equal(t, 1, job.Result.TotalCalls)
	assert.Contains(t, job.Result.Message, "Fail calls generated: 1.")

	runHTTPTests(t, app, []httpTest{
		{
			name:     "cancel finished job",
			method:   http.MethodPost,
			path:     base + "/jobs/" + job.ID + "/cancel",
			wantCode: http.StatusConflict,
			wantData: `{"error": "Upload is already finished."}`,
		},
		{
			name:     "unknown job",
			method:   http.MethodGet,
			path:     base + "/jobs/nope",
			wantCode: http.StatusNotFound,
			wantData: `{"error": "Job not found"}`,
		},
		{
			name:     "report without upload",
			method:   http.MethodGet,
			path:     mentorBase + "/result-report",
			wantCode: http.StatusBadRequest,
			wantData: `{"upload_id": "this field is required"}`,
		},
	})

	var uploads []result.Upload
	decode(t, app.serve(newRequest(http.MethodGet, base+"/uploads")), &uploads)
	require.Len(t, uploads, 1)
	assert.Equal(t, result.T2, uploads[0].TestName)
	assert.Equal(t, 3, uploads[0].RowsMatched)
	uploadPath := fmt.Sprintf("%s/uploads/%d", base, uploads[0].ID)

	var failed []result.StudentResult
	decode(t, app.serve(newRequest(http.MethodGet, base+"?failed=true")), &failed)
	require.Len(t, failed, 1)
	assert.Equal(t, "230102", failed[0].Enrollment)

	var calls []result.CallRecord
	decode(t, app.serve(newRequest(http.MethodGet, mentorBase+"/result-calls")), &calls)
	require.Len(t, calls, 1)

	rec = app.serve(newRequest(http.MethodPut, fmt.Sprintf("%s/result-calls/%d", mentorBase, calls[0].ID), []byte(`{"status": "received", "talked_with": "father"}`)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var report struct {
		result.Report
		Text string `json:"text"`
	}
	decode(t, app.serve(newRequest(http.MethodGet, fmt.Sprintf("%s/result-report?upload_id=%d", mentorBase, uploads[0].ID))), &report)
	assert.Equal(t, 1, report.Total)
	assert.Equal(t, 1, report.Received)
	assert.Contains(t, report.Text, "Received Calls - 01")

	rec = app.serve(newRequest(http.MethodDelete, uploadPath))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = app.serve(newRequest(http.MethodGet, uploadPath))
	checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound}, rec)
}

func Test_practicalApi(t *testing.T) {
	app := newTestApp(t)
	base := fmt.Sprintf("/v1/modules/%d/practicals", app.module.ID)

	book := testutil.Workbook(t, testutil.Sheet{Name: "PRACTICLE COMPILED", Rows: [][]interface{}{
		{"Practical Marks FY2"},
		{"Sr No", "Enrollment Number", "Name", "MATHS-PR", "MATHS-%", "JAVA-PR"},
		{1, 230101, "Asha", 22, 85.5, 18},
		{2, 230102, "Bhavin", 19, 70, 20},
	}})
	rec := app.serve(newUploadRequest(t, base+"/upload", nil, formFile{"practical_file", book}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var sum practical.Summary
	decode(t, rec, &sum)
	assert.Equal(t, practical.ModeCombined, sum.Mode)
	assert.Equal(t, 2, sum.RowsMatched)
	assert.Contains(t, sum.UnknownHeaders, "JAVA-PR")

	var marks []practical.Mark
	decode(t, app.serve(newRequest(http.MethodGet, fmt.Sprintf("%s?subject_id=%d", base, app.maths.ID))), &marks)
	require.Len(t, marks, 2)
	assert.Equal(t, "230101", marks[0].Enrollment)
	assert.Equal(t, 22.0, marks[0].PRMarks.Float64)
}
