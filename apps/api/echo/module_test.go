package echoapi_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/followup/core/academic"
	"github.com/trezcool/followup/core/mentor"
	"github.com/trezcool/followup/core/subject"
)

func Test_moduleApi(t *testing.T) {
	app := newTestApp(t)

	runHTTPTests(t, app, []httpTest{
		{
			name:     "invalid module",
			method:   http.MethodPost,
			path:     "/v1/modules",
			body:     []byte(`{"name": " ", "academic_batch": "2026-29", "year_level": "XY", "semester": "Sem-1"}`),
			wantCode: http.StatusBadRequest,
			wantData: `{"name": "this field is required", "year_level": "year_level must be one of [FY SY TY LY]"}`,
		},
		{
			name:     "duplicate name",
			method:   http.MethodPost,
			path:     "/v1/modules",
			body:     marshalObj(t, academic.NewModule{Name: app.module.Name, AcademicBatch: "2026-29", YearLevel: "FY", Semester: "Sem-1"}),
			wantCode: http.StatusBadRequest,
			wantData: `{"name": "a module with this name already exists"}`,
		},
		{
			name:     "unknown module",
			method:   http.MethodGet,
			path:     "/v1/modules/999/students",
			wantCode: http.StatusNotFound,
			wantData: `{"error": "academic module not found"}`,
		},
		{
			name:     "malformed module id",
			method:   http.MethodGet,
			path:     "/v1/modules/abc/students",
			wantCode: http.StatusNotFound,
			wantData: `{"error": "not found"}`,
		},
	})

	var created academic.Module
	t.Run("create", func(t *testing.T) {
		rec := app.serve(newRequest(http.MethodPost, "/v1/modules", marshalObj(t, academic.NewModule{
			Name: " SY - Batch 2025-28_Sem-2 ", AcademicBatch: "2025-28", YearLevel: "SY", Semester: "Sem-2",
		})))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		decode(t, rec, &created)
		assert.Equal(t, "SY - Batch 2025-28_Sem-2", created.Name)
		assert.True(t, created.IsActive)
	})

	t.Run("deactivate & current", func(t *testing.T) {
		rec := app.serve(newRequest(http.MethodPut, fmt.Sprintf("/v1/modules/%d/active", created.ID), []byte(`{"is_active": false}`)))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		rec = app.serve(newRequest(http.MethodGet, "/v1/modules?active=true"))
		var active []academic.Module
		decode(t, rec, &active)
		require.Len(t, active, 1)
		assert.Equal(t, app.module.ID, active[0].ID)

		rec = app.serve(newRequest(http.MethodGet, fmt.Sprintf("/v1/modules/current?id=%d", created.ID)))
		var current academic.Module
		decode(t, rec, &current)
		assert.Equal(t, app.module.ID, current.ID)
	})
}

func Test_mentorApi(t *testing.T) {
	app := newTestApp(t)

	runHTTPTests(t, app, []httpTest{
		{
			name:     "invalid full name",
			method:   http.MethodPut,
			path:     fmt.Sprintf("/v1/mentors/%d", app.hds.ID),
			body:     []byte(`{"full_name": "H4rdik"}`),
			wantCode: http.StatusBadRequest,
			wantData: `{"full_name": "only letters, spaces, dots and hyphens are allowed"}`,
		},
		{
			name:     "unknown mentor",
			method:   http.MethodPut,
			path:     "/v1/mentors/999",
			body:     []byte(`{"full_name": "Nobody"}`),
			wantCode: http.StatusNotFound,
			wantData: `{"error": "mentor not found"}`,
		},
	})

	rec := app.serve(newRequest(http.MethodPut, fmt.Sprintf("/v1/mentors/%d", app.hds.ID), []byte(`{"full_name": " hardik shah "}`)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = app.serve(newRequest(http.MethodGet, "/v1/mentors"))
	require.Equal(t, http.StatusOK, rec.Code)
	var mentors []mentor.Mentor
	decode(t, rec, &mentors)
	require.Len(t, mentors, 2)
	assert.Equal(t, "HDS", mentors[0].Name)
	assert.Equal(t, "HARDIK SHAH", mentors[0].FullName)
	assert.Equal(t, 2, mentors[0].StudentCount)
	assert.Equal(t, "PM", mentors[1].Name)
}

func Test_subjectApi(t *testing.T) {
	app := newTestApp(t)
	base := fmt.Sprintf("/v1/modules/%d/subjects", app.module.ID)

	runHTTPTests(t, app, []httpTest{
		{
			name:     "duplicate",
			method:   http.MethodPost,
			path:     base,
			body:     []byte(`{"name": "Mathematics"}`),
			wantCode: http.StatusBadRequest,
			wantData: `{"name": "a subject with this name already exists in the module"}`,
		},
		{
			name:     "invalid format",
			method:   http.MethodPost,
			path:     base,
			body:     []byte(`{"name": "Chemistry", "result_format": "t1_only"}`),
			wantCode: http.StatusBadRequest,
			wantData: `{"result_format": "result_format must be one of [full t4_only]"}`,
		},
		{
			name:     "not found",
			method:   http.MethodGet,
			path:     base + "/999",
			wantCode: http.StatusNotFound,
			wantData: `{"error": "subject not found"}`,
		},
	})

	var java subject.Subject
	rec := app.serve(newRequest(http.MethodPost, base, []byte(`{"name": "Java Programming", "short_name": "JAVA1", "result_format": "T4_ONLY"}`)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	decode(t, rec, &java)
	assert.True(t, java.T4Only())

	rec = app.serve(newRequest(http.MethodPut, fmt.Sprintf("%s/%d", base, java.ID), []byte(`{"name": "Java Programming", "short_name": "JAVA1", "result_format": "t4_only", "is_active": false}`)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var active []subject.Subject
	decode(t, app.serve(newRequest(http.MethodGet, base+"?active=true")), &active)
	require.Len(t, active, 1)
	assert.Equal(t, "Mathematics", active[0].Name)

	rec = app.serve(newRequest(http.MethodDelete, fmt.Sprintf("%s/%d", base, java.ID)))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	var all []subject.Subject
	decode(t, app.serve(newRequest(http.MethodGet, base)), &all)
	assert.Len(t, all, 1)
}
