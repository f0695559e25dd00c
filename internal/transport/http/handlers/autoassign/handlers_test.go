package autoassignhandler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evalhub/internal/domain"
	"evalhub/internal/domain/assignment"
	"evalhub/internal/domain/auth"
	"evalhub/internal/domain/autoassign"
	"evalhub/internal/domain/hierarchy"
	"evalhub/internal/platform/jobs"
	"evalhub/internal/testkit"
	"evalhub/internal/transport/http/middleware"
)

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code string `json:"code"`
	} `json:"error"`
}

type fixture struct {
	router http.Handler
	store  *testkit.AssignmentStore
	jobs   *testkit.Jobs
	event  string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	org := uuid.NewString()
	staffDir := testkit.NewStaffDirectory()
	eventsDir := testkit.NewEventDirectory()
	log := testkit.DiscardLogger()
	auditLog := &testkit.AuditLog{}

	f := &fixture{store: testkit.NewAssignmentStore(), jobs: &testkit.Jobs{}}
	f.event = eventsDir.Add(org, "Annual review")
	manager := staffDir.Add(org, "M")
	a := staffDir.Add(org, "A")
	b := staffDir.Add(org, "B")

	graph := hierarchy.NewService(testkit.NewEdgeStore(), staffDir, auditLog, log)
	admin := domain.Actor{ID: "admin", OrganizationID: org}
	for _, id := range []string{a, b} {
		_, err := graph.CreateEdge(context.Background(), admin, hierarchy.CreateEdgeInput{OrganizationID: org, StaffID: id, ReportsToID: manager})
		require.NoError(t, err)
	}

	assignments := assignment.NewService(f.store, eventsDir, staffDir, auditLog, &testkit.Outbox{}, log)
	engine := autoassign.NewEngine(graph, staffDir, eventsDir, assignments, autoassign.Options{DefaultDueDays: 14}, log)

	user := auth.UserContext{UserID: "hr-1", OrganizationID: org, RoleName: auth.RoleHR}
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(middleware.WithUser(req.Context(), user)))
		})
	})
	NewHandler(engine, f.jobs, auth.NewStaticPermissions()).RegisterRoutes(r)
	f.router = r
	return f
}

func (f *fixture) post(t *testing.T, path string, body any) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(body))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path, &buf))
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return rec.Code, env
}

func TestAutoAssignSync(t *testing.T) {
	f := newFixture(t)

	code, env := f.post(t, "/events/"+f.event+"/auto-assign", map[string]any{"includeManagers": true, "includeSelf": true})
	require.Equal(t, http.StatusOK, code)
	var res autoassign.RunResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, 5, res.Created)
	assert.Zero(t, res.Skipped)
	assert.Len(t, f.store.Active(), 5)

	require.Len(t, f.jobs.Runs, 1)
	assert.Equal(t, jobs.JobAutoAssign, f.jobs.Runs[0].JobType)
	assert.Equal(t, jobs.StatusCompleted, f.jobs.Runs[0].Status)

	code, env = f.post(t, "/events/"+f.event+"/auto-assign", map[string]any{"includeManagers": true, "includeSelf": true})
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Zero(t, res.Created)
	assert.Equal(t, 5, res.Skipped)
}

func TestAutoAssignAsync(t *testing.T) {
	f := newFixture(t)

	code, env := f.post(t, "/events/"+f.event+"/auto-assign?async=true", map[string]any{"includePeers": true})
	require.Equal(t, http.StatusAccepted, code)
	var queued jobs.Run
	require.NoError(t, json.Unmarshal(env.Data, &queued))
	assert.Equal(t, jobs.StatusQueued, queued.Status)
	assert.Len(t, f.store.Active(), 2)

	f.jobs.Full = true
	code, env = f.post(t, "/events/"+f.event+"/auto-assign?async=true", map[string]any{"includePeers": true})
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "queue_full", env.Error.Code)
}

func TestAutoAssignRejectsEmptyPolicy(t *testing.T) {
	f := newFixture(t)

	code, env := f.post(t, "/events/"+f.event+"/auto-assign", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "validation_error", env.Error.Code)

	code, env = f.post(t, "/events/"+uuid.NewString()+"/auto-assign", map[string]any{"includeSelf": true})
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "not_found", env.Error.Code)
}
