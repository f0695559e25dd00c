package hierarchyhandler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evalhub/internal/domain/auth"
	"evalhub/internal/domain/hierarchy"
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
	staff  *testkit.StaffDirectory
	org    string
	user   auth.UserContext
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{staff: testkit.NewStaffDirectory(), org: uuid.NewString()}
	f.user = auth.UserContext{UserID: "hr-1", OrganizationID: f.org, RoleName: auth.RoleHR}
	svc := hierarchy.NewService(testkit.NewEdgeStore(), f.staff, &testkit.AuditLog{}, testkit.DiscardLogger())

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(middleware.WithUser(req.Context(), f.user)))
		})
	})
	NewHandler(svc, auth.NewStaticPermissions()).RegisterRoutes(r)
	f.router = r
	return f
}

func (f *fixture) do(t *testing.T, method, path string, body any) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(method, path, &buf))
	var env envelope
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec.Code, env
}

func (f *fixture) link(t *testing.T, staffID, managerID string) (int, envelope) {
	t.Helper()
	return f.do(t, http.MethodPost, "/hierarchy/edges", map[string]string{"staffId": staffID, "reportsToId": managerID})
}

func TestEdgeLifecycleAndRelationships(t *testing.T) {
	f := newFixture(t)
	m := f.staff.Add(f.org, "Manager")
	a := f.staff.Add(f.org, "A")
	b := f.staff.Add(f.org, "B")

	code, env := f.link(t, a, m)
	require.Equal(t, http.StatusCreated, code)
	var edge hierarchy.Edge
	require.NoError(t, json.Unmarshal(env.Data, &edge))
	assert.Equal(t, hierarchy.KindPrimary, edge.RelationshipKind)

	code, _ = f.link(t, b, m)
	require.Equal(t, http.StatusCreated, code)

	code, env = f.do(t, http.MethodGet, "/hierarchy/staff/"+a+"/relationships", nil)
	require.Equal(t, http.StatusOK, code)
	var rel relationships
	require.NoError(t, json.Unmarshal(env.Data, &rel))
	assert.Equal(t, []string{m}, rel.Managers)
	assert.Equal(t, []string{b}, rel.Peers)
	assert.Empty(t, rel.Subordinates)
	require.NotNil(t, rel.PrimaryManager)
	assert.Equal(t, m, *rel.PrimaryManager)

	code, env = f.do(t, http.MethodGet, "/hierarchy/tree", nil)
	require.Equal(t, http.StatusOK, code)
	var roots []hierarchy.TreeNode
	require.NoError(t, json.Unmarshal(env.Data, &roots))
	require.Len(t, roots, 1)
	assert.Len(t, roots[0].Children, 2)

	code, _ = f.do(t, http.MethodDelete, "/hierarchy/edges/"+edge.ID, nil)
	assert.Equal(t, http.StatusNoContent, code)
	code, env = f.do(t, http.MethodDelete, "/hierarchy/edges/"+edge.ID, nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "not_found", env.Error.Code)
}

func TestCycleAndSelfReferenceErrors(t *testing.T) {
	f := newFixture(t)
	a := f.staff.Add(f.org, "A")
	b := f.staff.Add(f.org, "B")

	code, _ := f.link(t, a, b)
	require.Equal(t, http.StatusCreated, code)

	code, env := f.do(t, http.MethodGet, "/hierarchy/cycle-check?staffId="+b+"&reportsToId="+a, nil)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"wouldCreateCycle":true}`, string(env.Data))

	code, env = f.link(t, b, a)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, "cycle", env.Error.Code)

	code, env = f.link(t, a, a)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, "self_reference", env.Error.Code)

	code, _ = f.do(t, http.MethodGet, "/hierarchy/cycle-check?staffId="+b, nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestManagerCannotWriteHierarchy(t *testing.T) {
	f := newFixture(t)
	f.user.RoleName = auth.RoleManager
	code, env := f.link(t, uuid.NewString(), uuid.NewString())
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "forbidden", env.Error.Code)

	code, _ = f.do(t, http.MethodGet, "/hierarchy/tree", nil)
	assert.Equal(t, http.StatusOK, code)
}
