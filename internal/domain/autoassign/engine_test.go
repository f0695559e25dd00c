package autoassign_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evalhub/internal/domain"
	"evalhub/internal/domain/assignment"
	"evalhub/internal/domain/autoassign"
	"evalhub/internal/domain/events"
	"evalhub/internal/domain/hierarchy"
	"evalhub/internal/domain/notifications"
	"evalhub/internal/domain/staff"
	"evalhub/internal/testkit"
)

type fixture struct {
	engine      *autoassign.Engine
	hierarchy   *hierarchy.Service
	assignments *assignment.Service
	store       *testkit.AssignmentStore
	staff       *testkit.StaffDirectory
	events      *testkit.EventDirectory
	outbox      *testkit.Outbox
	org         string
	event       string
	actor       domain.Actor
	ids         map[string]string
}

func newFixture(t *testing.T, names ...string) *fixture {
	t.Helper()
	f := &fixture{
		store:  testkit.NewAssignmentStore(),
		staff:  testkit.NewStaffDirectory(),
		events: testkit.NewEventDirectory(),
		outbox: &testkit.Outbox{},
		org:    uuid.NewString(),
		ids:    map[string]string{},
	}
	for _, name := range names {
		f.ids[name] = f.staff.Add(f.org, name)
	}
	f.event = f.events.Add(f.org, "Annual review")
	f.actor = domain.Actor{ID: "admin", OrganizationID: f.org}
	log := testkit.DiscardLogger()
	auditLog := &testkit.AuditLog{}
	f.hierarchy = hierarchy.NewService(testkit.NewEdgeStore(), f.staff, auditLog, log)
	f.assignments = assignment.NewService(f.store, f.events, f.staff, auditLog, f.outbox, log)
	f.engine = autoassign.NewEngine(f.hierarchy, f.staff, f.events, f.assignments, autoassign.Options{DefaultDueDays: 14}, log)
	return f
}

func (f *fixture) reportsTo(t *testing.T, staffName, managerName, kind string) {
	t.Helper()
	_, err := f.hierarchy.CreateEdge(context.Background(), f.actor, hierarchy.CreateEdgeInput{
		OrganizationID:   f.org,
		StaffID:          f.ids[staffName],
		ReportsToID:      f.ids[managerName],
		RelationshipKind: kind,
	})
	require.NoError(t, err)
}

func (f *fixture) run(t *testing.T, policy autoassign.Policy) autoassign.RunResult {
	t.Helper()
	res, err := f.engine.Run(context.Background(), f.actor, autoassign.RunInput{
		EventID:        f.event,
		OrganizationID: f.org,
		Policy:         policy,
	})
	require.NoError(t, err)
	return res
}

func (f *fixture) pairs() map[[2]string]bool {
	names := map[string]string{}
	for name, id := range f.ids {
		names[id] = name
	}
	out := map[[2]string]bool{}
	for _, a := range f.store.Active() {
		out[[2]string{names[a.EvaluatorID], names[a.EvaluateeID]}] = true
	}
	return out
}

func TestRunSelfPolicyTwice(t *testing.T) {
	f := newFixture(t, "A", "B", "C")

	first := f.run(t, autoassign.Policy{IncludeSelf: true})
	assert.Equal(t, autoassign.RunResult{Created: 3}, first)

	second := f.run(t, autoassign.Policy{IncludeSelf: true})
	assert.Equal(t, autoassign.RunResult{Skipped: 3}, second)
	assert.Len(t, f.store.Active(), 3)
	assert.Equal(t, 3, f.outbox.Count(notifications.TemplateAssignmentCreated))
}

func TestRunManagersAndPeers(t *testing.T) {
	f := newFixture(t, "A", "B", "C")
	f.reportsTo(t, "B", "A", hierarchy.KindPrimary)
	f.reportsTo(t, "C", "A", hierarchy.KindPrimary)

	res := f.run(t, autoassign.Policy{IncludeManagers: true, IncludePeers: true})
	assert.Equal(t, 4, res.Created)
	assert.Zero(t, res.Skipped)

	pairs := f.pairs()
	assert.True(t, pairs[[2]string{"A", "B"}])
	assert.True(t, pairs[[2]string{"C", "B"}])
	assert.True(t, pairs[[2]string{"A", "C"}])
	assert.True(t, pairs[[2]string{"B", "C"}])
	assert.False(t, pairs[[2]string{"B", "A"}])
}

func TestRunSubordinatesEvaluateManager(t *testing.T) {
	f := newFixture(t, "A", "B", "C")
	f.reportsTo(t, "B", "A", hierarchy.KindPrimary)
	f.reportsTo(t, "C", "A", hierarchy.KindSecondary)

	res := f.run(t, autoassign.Policy{IncludeSubordinates: true})
	assert.Equal(t, 2, res.Created)
	pairs := f.pairs()
	assert.True(t, pairs[[2]string{"B", "A"}])
	assert.True(t, pairs[[2]string{"C", "A"}])
}

func TestRunPeersRequirePrimaryManager(t *testing.T) {
	f := newFixture(t, "A", "B", "C")
	f.reportsTo(t, "B", "A", hierarchy.KindSecondary)
	f.reportsTo(t, "C", "A", hierarchy.KindSecondary)

	res := f.run(t, autoassign.Policy{IncludePeers: true})
	assert.Equal(t, autoassign.RunResult{}, res)
}

func TestRunSkipsInactiveEvaluators(t *testing.T) {
	f := newFixture(t, "A", "B")
	f.reportsTo(t, "B", "A", hierarchy.KindPrimary)
	manager, err := f.staff.Get(context.Background(), f.ids["A"])
	require.NoError(t, err)
	manager.IsActive = false
	f.staff.Put(manager)

	res := f.run(t, autoassign.Policy{IncludeManagers: true})
	assert.Equal(t, autoassign.RunResult{Skipped: 1}, res)
}

func TestRunToleratesPerPairFailures(t *testing.T) {
	f := newFixture(t, "A", "B", "C")
	f.store.FailInsertFor[f.ids["B"]] = errors.New("connection reset")

	res := f.run(t, autoassign.Policy{IncludeSelf: true})
	assert.Equal(t, autoassign.RunResult{Created: 2, Skipped: 1}, res)
}

func TestRunScopesToProgram(t *testing.T) {
	f := newFixture(t, "A")
	program := uuid.NewString()
	f.staff.Put(staff.StaffMember{
		ID: uuid.NewString(), OrganizationID: f.org, ProgramID: &program,
		FullName: "P", IsActive: true, AvailableForEvaluation: true,
	})

	res, err := f.engine.Run(context.Background(), f.actor, autoassign.RunInput{
		EventID:        f.event,
		OrganizationID: f.org,
		ProgramID:      &program,
		Policy:         autoassign.Policy{IncludeSelf: true},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Created)
	require.Len(t, f.store.Active(), 1)
	assert.Equal(t, &program, f.store.Active()[0].ProgramID)
}

func TestRunUsesEventEndAsDueDate(t *testing.T) {
	f := newFixture(t, "A")
	ends := time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC)
	f.events.Put(events.Event{ID: f.event, OrganizationID: f.org, Status: events.StatusActive, EndsAt: &ends})

	f.run(t, autoassign.Policy{IncludeSelf: true})
	rows := f.store.Active()
	require.Len(t, rows, 1)
	require.NotNil(t, rows[0].DueDate)
	assert.True(t, ends.Equal(*rows[0].DueDate))
}

func TestRunRejectsBadInput(t *testing.T) {
	f := newFixture(t, "A")

	_, err := f.engine.Run(context.Background(), f.actor, autoassign.RunInput{EventID: f.event, OrganizationID: f.org})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.engine.Run(context.Background(), f.actor, autoassign.RunInput{
		EventID:        uuid.NewString(),
		OrganizationID: f.org,
		Policy:         autoassign.Policy{IncludeSelf: true},
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// cancelAfter cancels the run context once n assignments were created.
type cancelAfter struct {
	inner  *assignment.Service
	n      int32
	count  atomic.Int32
	cancel context.CancelFunc
}

func (c *cancelAfter) Create(ctx context.Context, actor domain.Actor, in assignment.CreateInput) (assignment.Assignment, error) {
	a, err := c.inner.Create(ctx, actor, in)
	if err == nil && c.count.Add(1) == c.n {
		c.cancel()
	}
	return a, err
}

func TestRunReturnsPartialCountsWhenInterrupted(t *testing.T) {
	f := newFixture(t, "A", "B", "C", "D")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	creator := &cancelAfter{inner: f.assignments, n: 2, cancel: cancel}
	engine := autoassign.NewEngine(f.hierarchy, f.staff, f.events, creator, autoassign.Options{}, testkit.DiscardLogger())

	res, err := engine.Run(ctx, f.actor, autoassign.RunInput{
		EventID:        f.event,
		OrganizationID: f.org,
		Policy:         autoassign.Policy{IncludeSelf: true},
	})
	require.NoError(t, err)
	assert.True(t, res.Interrupted)
	assert.Equal(t, 2, res.Created)
	assert.Len(t, f.store.Active(), 2)
}
