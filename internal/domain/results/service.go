package results

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"evalhub/internal/domain"
	"evalhub/internal/domain/audit"
	"evalhub/internal/domain/events"
	"evalhub/internal/domain/hierarchy"
	"evalhub/internal/domain/notifications"
	"evalhub/internal/domain/staff"
	"evalhub/internal/platform/metrics"
)

type eventDirectory interface {
	Get(ctx context.Context, id string) (events.Event, error)
}

type staffDirectory interface {
	Get(ctx context.Context, id string) (staff.StaffMember, error)
}

type graphSource interface {
	Snapshot(ctx context.Context, orgID string) (*hierarchy.Graph, error)
}

type auditRecorder interface {
	Record(ctx context.Context, entry audit.Entry)
}

type notifier interface {
	Notify(ctx context.Context, intent notifications.Intent)
}

type Service struct {
	store  StoreAPI
	events eventDirectory
	staff  staffDirectory
	graph  graphSource
	audit  auditRecorder
	notify notifier
	log    *slog.Logger
	now    func() time.Time
}

func NewService(store StoreAPI, eventDir eventDirectory, staffDir staffDirectory, graph graphSource, auditRec auditRecorder, notify notifier, log *slog.Logger) *Service {
	return &Service{
		store:  store,
		events: eventDir,
		staff:  staffDir,
		graph:  graph,
		audit:  auditRec,
		notify: notify,
		log:    log.With("service", "results"),
		now:    time.Now,
	}
}

func (s *Service) event(ctx context.Context, actor domain.Actor, eventID string) (events.Event, error) {
	evt, err := s.events.Get(ctx, eventID)
	if err != nil {
		return events.Event{}, err
	}
	if evt.OrganizationID != actor.OrganizationID {
		return events.Event{}, domain.NotFound("event", eventID)
	}
	return evt, nil
}

// Calculate recomputes and stores the result of one staff member. A published
// result stays published.
func (s *Service) Calculate(ctx context.Context, actor domain.Actor, eventID, staffID string) (Result, error) {
	evt, err := s.event(ctx, actor, eventID)
	if err != nil {
		return Result{}, err
	}
	member, err := s.staff.Get(ctx, staffID)
	if err != nil {
		return Result{}, err
	}
	if member.OrganizationID != evt.OrganizationID {
		return Result{}, domain.NotFound("staff member", staffID)
	}
	graph, err := s.graph.Snapshot(ctx, evt.OrganizationID)
	if err != nil {
		return Result{}, err
	}
	return s.calculate(ctx, actor, evt, staffID, graph)
}

func (s *Service) calculate(ctx context.Context, actor domain.Actor, evt events.Event, staffID string, graph *hierarchy.Graph) (Result, error) {
	evals, err := s.store.LoadEvaluations(ctx, evt.ID, staffID)
	if err != nil {
		return Result{}, err
	}
	agg := Compute(staffID, evals, graph)

	before, err := s.store.Find(ctx, evt.ID, staffID)
	hadBefore := err == nil
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return Result{}, err
	}

	saved, err := s.store.Upsert(ctx, Result{
		EventID:              evt.ID,
		StaffID:              staffID,
		OrganizationID:       evt.OrganizationID,
		TotalAssignments:     agg.Total,
		CompletedAssignments: agg.Completed,
		PendingAssignments:   agg.Pending,
		CompletionRate:       agg.CompletionRate,
		OverallScore:         agg.OverallScore,
		ManagerScore:         agg.ManagerScore,
		PeerScore:            agg.PeerScore,
		SubordinateScore:     agg.SubordinateScore,
		SelfScore:            agg.SelfScore,
		Breakdown:            agg.Breakdown,
		CalculatedAt:         s.now().UTC(),
		CreatedBy:            actor.ID,
		UpdatedBy:            actor.ID,
	})
	if err != nil {
		return Result{}, err
	}
	metrics.ResultCalculated()

	entry := audit.Entry{
		OrganizationID: saved.OrganizationID,
		EntityType:     entityResult,
		EntityID:       saved.ID,
		Action:         audit.ActionCalculated,
		Description:    fmt.Sprintf("result for %s calculated: %d/%d completed", staffID, agg.Completed, agg.Total),
		Actor:          actor,
		After:          saved,
	}
	if hadBefore {
		entry.Before = before
	}
	s.audit.Record(ctx, entry)
	return saved, nil
}

// CalculateEvent recomputes every evaluatee of an event against one hierarchy snapshot.
func (s *Service) CalculateEvent(ctx context.Context, actor domain.Actor, eventID string) ([]Result, error) {
	evt, err := s.event(ctx, actor, eventID)
	if err != nil {
		return nil, err
	}
	staffIDs, err := s.store.Evaluatees(ctx, eventID)
	if err != nil {
		return nil, err
	}
	graph, err := s.graph.Snapshot(ctx, evt.OrganizationID)
	if err != nil {
		return nil, err
	}
	out := make([]Result, 0, len(staffIDs))
	for _, staffID := range staffIDs {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		r, err := s.calculate(ctx, actor, evt, staffID, graph)
		if err != nil {
			return out, fmt.Errorf("calculate %s: %w", staffID, err)
		}
		out = append(out, r)
	}
	s.log.InfoContext(ctx, "event results calculated",
		slog.String("event_id", eventID),
		slog.Int("count", len(out)),
	)
	return out, nil
}

// Publish marks a result published. Publishing again refreshes the timestamp and notes.
func (s *Service) Publish(ctx context.Context, actor domain.Actor, id string, in PublishInput) (Result, error) {
	if err := domain.Validate(in); err != nil {
		return Result{}, err
	}
	before, err := s.Get(ctx, actor, id)
	if err != nil {
		return Result{}, err
	}
	after, err := s.store.Publish(ctx, id, in.Notes, actor.ID, s.now().UTC())
	if err != nil {
		return Result{}, err
	}
	metrics.ResultPublished()
	s.audit.Record(ctx, audit.Entry{
		OrganizationID: after.OrganizationID,
		EntityType:     entityResult,
		EntityID:       id,
		Action:         audit.ActionPublished,
		Description:    fmt.Sprintf("result for %s published", after.StaffID),
		Actor:          actor,
		Before:         before,
		After:          after,
	})
	s.notify.Notify(ctx, notifications.Intent{
		OrganizationID: after.OrganizationID,
		ResultID:       after.ID,
		Template:       notifications.TemplateResultPublished,
		RecipientID:    after.StaffID,
		Data:           map[string]string{"eventId": after.EventID},
	})
	return after, nil
}

func (s *Service) Get(ctx context.Context, actor domain.Actor, id string) (Result, error) {
	r, err := s.store.Get(ctx, id)
	if err != nil {
		return Result{}, err
	}
	if r.OrganizationID != actor.OrganizationID {
		return Result{}, domain.NotFound(entityResult, id)
	}
	return r, nil
}

func (s *Service) ListForEvent(ctx context.Context, actor domain.Actor, eventID string) ([]Result, error) {
	if _, err := s.event(ctx, actor, eventID); err != nil {
		return nil, err
	}
	return s.store.ListForEvent(ctx, eventID)
}
