package jobshandler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evalhub/internal/domain"
	"evalhub/internal/domain/auth"
	"evalhub/internal/platform/jobs"
	"evalhub/internal/transport/http/middleware"
)

type fakeRuns map[string]jobs.Run

func (f fakeRuns) Get(_ context.Context, id string) (jobs.Run, error) {
	run, ok := f[id]
	if !ok {
		return jobs.Run{}, domain.NotFound("job run", id)
	}
	return run, nil
}

func serve(t *testing.T, runs fakeRuns, user auth.UserContext, path string) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(middleware.WithUser(req.Context(), user)))
		})
	})
	NewHandler(runs, auth.NewStaticPermissions()).RegisterRoutes(r)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestGetRun(t *testing.T) {
	org := "org-1"
	other := "org-2"
	runs := fakeRuns{
		"run-1": {ID: "run-1", OrganizationID: &org, JobType: jobs.JobAutoAssign, Status: jobs.StatusCompleted, Details: json.RawMessage(`{"created":3}`)},
		"run-2": {ID: "run-2", OrganizationID: &other, JobType: jobs.JobAutoAssign, Status: jobs.StatusQueued},
		"sweep": {ID: "sweep", JobType: jobs.JobOverdueSweep, Status: jobs.StatusCompleted},
	}
	hr := auth.UserContext{UserID: "hr-1", OrganizationID: org, RoleName: auth.RoleHR}

	rec := serve(t, runs, hr, "/jobs/run-1")
	require.Equal(t, http.StatusOK, rec.Code)
	var env struct {
		Data jobs.Run `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, jobs.StatusCompleted, env.Data.Status)
	assert.JSONEq(t, `{"created":3}`, string(env.Data.Details))

	assert.Equal(t, http.StatusNotFound, serve(t, runs, hr, "/jobs/run-2").Code)
	assert.Equal(t, http.StatusNotFound, serve(t, runs, hr, "/jobs/sweep").Code)
	assert.Equal(t, http.StatusNotFound, serve(t, runs, hr, "/jobs/missing").Code)

	staffUser := auth.UserContext{UserID: "s-1", OrganizationID: org, RoleName: auth.RoleStaff}
	assert.Equal(t, http.StatusForbidden, serve(t, runs, staffUser, "/jobs/run-1").Code)
}
