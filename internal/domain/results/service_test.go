package results_test

import (
	"bytes"
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"evalhub/internal/domain"
	"evalhub/internal/domain/assignment"
	"evalhub/internal/domain/autoassign"
	"evalhub/internal/domain/hierarchy"
	"evalhub/internal/domain/notifications"
	"evalhub/internal/domain/results"
	"evalhub/internal/testkit"
)

type fixture struct {
	results     *results.Service
	assignments *assignment.Service
	hierarchy   *hierarchy.Service
	engine      *autoassign.Engine
	store       *testkit.ResultStore
	rows        *testkit.AssignmentStore
	outbox      *testkit.Outbox
	audit       *testkit.AuditLog
	org         string
	event       string
	actor       domain.Actor
	ids         map[string]string
}

func newFixture(t *testing.T, names ...string) *fixture {
	t.Helper()
	staffDir := testkit.NewStaffDirectory()
	eventDir := testkit.NewEventDirectory()
	f := &fixture{
		rows:   testkit.NewAssignmentStore(),
		outbox: &testkit.Outbox{},
		audit:  &testkit.AuditLog{},
		org:    uuid.NewString(),
		ids:    map[string]string{},
	}
	for _, name := range names {
		f.ids[name] = staffDir.Add(f.org, name)
	}
	f.event = eventDir.Add(f.org, "Mid-year review")
	f.actor = domain.Actor{ID: "admin", OrganizationID: f.org}
	f.store = testkit.NewResultStore(f.rows)

	log := testkit.DiscardLogger()
	f.hierarchy = hierarchy.NewService(testkit.NewEdgeStore(), staffDir, f.audit, log)
	f.assignments = assignment.NewService(f.rows, eventDir, staffDir, f.audit, f.outbox, log)
	f.engine = autoassign.NewEngine(f.hierarchy, staffDir, eventDir, f.assignments, autoassign.Options{DefaultDueDays: 7}, log)
	f.results = results.NewService(f.store, eventDir, staffDir, f.hierarchy, f.audit, f.outbox, log)
	return f
}

func (f *fixture) reportsTo(t *testing.T, staffName, managerName string) {
	t.Helper()
	_, err := f.hierarchy.CreateEdge(context.Background(), f.actor, hierarchy.CreateEdgeInput{
		OrganizationID: f.org,
		StaffID:        f.ids[staffName],
		ReportsToID:    f.ids[managerName],
	})
	require.NoError(t, err)
}

func (f *fixture) assign(t *testing.T, evaluator, evaluatee string) assignment.Assignment {
	t.Helper()
	a, err := f.assignments.Create(context.Background(), f.actor, assignment.CreateInput{
		EventID:        f.event,
		EvaluatorID:    f.ids[evaluator],
		EvaluateeID:    f.ids[evaluatee],
		OrganizationID: f.org,
	})
	require.NoError(t, err)
	return a
}

func (f *fixture) submit(t *testing.T, a assignment.Assignment, raw ...string) {
	t.Helper()
	responseID := f.store.AddResponse(results.ResponseCompleted, raw...)
	_, err := f.assignments.LinkResponse(context.Background(), f.actor, a.ID, responseID)
	require.NoError(t, err)
}

func (f *fixture) find(evaluator, evaluatee string) assignment.Assignment {
	for _, a := range f.rows.Active() {
		if a.EvaluatorID == f.ids[evaluator] && a.EvaluateeID == f.ids[evaluatee] {
			return a
		}
	}
	return assignment.Assignment{}
}

func requireScore(t *testing.T, want string, got decimal.NullDecimal) {
	t.Helper()
	require.True(t, got.Valid, "expected a score of %s", want)
	assert.True(t, decimal.RequireFromString(want).Equal(got.Decimal), "want %s, got %s", want, got.Decimal)
}

func TestAutoAssignThenCalculate(t *testing.T) {
	f := newFixture(t, "A", "B", "C")
	f.reportsTo(t, "B", "A")
	f.reportsTo(t, "C", "A")

	_, err := f.engine.Run(context.Background(), f.actor, autoassign.RunInput{
		EventID:        f.event,
		OrganizationID: f.org,
		Policy:         autoassign.Policy{IncludeManagers: true, IncludePeers: true},
	})
	require.NoError(t, err)

	fromManager := f.find("A", "B")
	fromPeer := f.find("C", "B")
	require.NotEmpty(t, fromManager.ID)
	require.NotEmpty(t, fromPeer.ID)
	f.submit(t, fromManager, "90")
	f.submit(t, fromPeer, "70")

	r, err := f.results.Calculate(context.Background(), f.actor, f.event, f.ids["B"])
	require.NoError(t, err)
	requireScore(t, "90", r.ManagerScore)
	requireScore(t, "70", r.PeerScore)
	requireScore(t, "80", r.OverallScore)
	assert.True(t, decimal.NewFromInt(100).Equal(r.CompletionRate))
	assert.Equal(t, 2, r.TotalAssignments)
	assert.Equal(t, results.StatusDraft, r.Status)
}

func TestCalculateIsIdempotent(t *testing.T) {
	f := newFixture(t, "A", "B")
	f.reportsTo(t, "B", "A")
	a := f.assign(t, "A", "B")

	first, err := f.results.Calculate(context.Background(), f.actor, f.event, f.ids["B"])
	require.NoError(t, err)
	assert.Equal(t, 1, first.PendingAssignments)
	assert.False(t, first.OverallScore.Valid)

	f.submit(t, a, "4", "5")
	second, err := f.results.Calculate(context.Background(), f.actor, f.event, f.ids["B"])
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, f.store.Count())
	requireScore(t, "4.5", second.ManagerScore)
}

func TestCalculateConcurrentlyKeepsOneRow(t *testing.T) {
	f := newFixture(t, "A", "B")
	f.submit(t, f.assign(t, "A", "B"), "3")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.results.Calculate(context.Background(), f.actor, f.event, f.ids["B"])
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, f.store.Count())
}

func TestPublishedResultSurvivesRecalculation(t *testing.T) {
	f := newFixture(t, "A", "B")
	f.submit(t, f.assign(t, "A", "B"), "60")
	r, err := f.results.Calculate(context.Background(), f.actor, f.event, f.ids["B"])
	require.NoError(t, err)

	notes := "Solid half"
	published, err := f.results.Publish(context.Background(), f.actor, r.ID, results.PublishInput{Notes: &notes})
	require.NoError(t, err)
	assert.Equal(t, results.StatusPublished, published.Status)
	require.NotNil(t, published.PublishedAt)
	assert.Equal(t, 1, f.outbox.Count(notifications.TemplateResultPublished))

	f.submit(t, f.assign(t, "B", "B"), "100")
	recalculated, err := f.results.Calculate(context.Background(), f.actor, f.event, f.ids["B"])
	require.NoError(t, err)
	assert.Equal(t, results.StatusPublished, recalculated.Status)
	requireScore(t, "80", recalculated.OverallScore)
	require.NotNil(t, recalculated.Notes)
	assert.Equal(t, notes, *recalculated.Notes)

	again, err := f.results.Publish(context.Background(), f.actor, r.ID, results.PublishInput{})
	require.NoError(t, err)
	assert.Equal(t, results.StatusPublished, again.Status)
	assert.Equal(t, 2, f.outbox.Count(notifications.TemplateResultPublished))
}

func TestCalculateNotFound(t *testing.T) {
	f := newFixture(t, "A")

	_, err := f.results.Calculate(context.Background(), f.actor, uuid.NewString(), f.ids["A"])
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.results.Calculate(context.Background(), f.actor, f.event, uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	outsider := domain.Actor{ID: "x", OrganizationID: uuid.NewString()}
	_, err = f.results.Calculate(context.Background(), outsider, f.event, f.ids["A"])
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.results.Publish(context.Background(), f.actor, uuid.NewString(), results.PublishInput{})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCalculateEventAndExport(t *testing.T) {
	f := newFixture(t, "A", "B", "C")
	f.submit(t, f.assign(t, "A", "B"), "5")
	f.submit(t, f.assign(t, "A", "C"), "3")
	f.assign(t, "B", "C")

	out, err := f.results.CalculateEvent(context.Background(), f.actor, f.event)
	require.NoError(t, err)
	assert.Len(t, out, 2)

	var pdf bytes.Buffer
	require.NoError(t, f.results.Scorecard(context.Background(), f.actor, out[0].ID, &pdf))
	assert.True(t, bytes.HasPrefix(pdf.Bytes(), []byte("%PDF")))

	var xlsx bytes.Buffer
	require.NoError(t, f.results.ExportEvent(context.Background(), f.actor, f.event, &xlsx))
	book, err := excelize.OpenReader(&xlsx)
	require.NoError(t, err)
	defer book.Close()
	rows, err := book.GetRows("Results")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Staff ID", rows[0][0])
}
