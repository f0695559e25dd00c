package assignment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"evalhub/internal/domain"
	"evalhub/internal/domain/audit"
	"evalhub/internal/domain/events"
	"evalhub/internal/domain/notifications"
	"evalhub/internal/domain/staff"
	"evalhub/internal/platform/metrics"
)

const (
	maxStatusAttempts = 3
	maxTokenAttempts  = 3
)

type eventDirectory interface {
	Get(ctx context.Context, id string) (events.Event, error)
}

type staffDirectory interface {
	Get(ctx context.Context, id string) (staff.StaffMember, error)
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
	audit  auditRecorder
	notify notifier
	log    *slog.Logger
	now    func() time.Time
}

func NewService(store StoreAPI, eventDir eventDirectory, staffDir staffDirectory, auditRec auditRecorder, notify notifier, log *slog.Logger) *Service {
	return &Service{
		store:  store,
		events: eventDir,
		staff:  staffDir,
		audit:  auditRec,
		notify: notify,
		log:    log.With("service", "assignment"),
		now:    time.Now,
	}
}

// Create pairs an evaluator with an evaluatee for one event. Self-evaluation
// is allowed. A second active assignment for the same triple is a Duplicate error.
func (s *Service) Create(ctx context.Context, actor domain.Actor, in CreateInput) (Assignment, error) {
	if in.Source == "" {
		in.Source = SourceManual
	}
	if err := domain.Validate(in); err != nil {
		return Assignment{}, err
	}
	evt, err := s.events.Get(ctx, in.EventID)
	if err != nil {
		return Assignment{}, err
	}
	if evt.OrganizationID != in.OrganizationID {
		return Assignment{}, domain.NotFound("event", in.EventID)
	}
	if evt.Status == events.StatusClosed {
		return Assignment{}, domain.Conflict("event", evt.ID, fmt.Sprintf("event %s is closed", evt.ID))
	}
	if err := s.requireStaff(ctx, in.OrganizationID, in.EvaluatorID, in.EvaluateeID); err != nil {
		return Assignment{}, err
	}

	exists, err := s.store.ExistsActive(ctx, in.EventID, in.EvaluatorID, in.EvaluateeID)
	if err != nil {
		return Assignment{}, err
	}
	candidate := Assignment{
		EventID:        in.EventID,
		EvaluatorID:    in.EvaluatorID,
		EvaluateeID:    in.EvaluateeID,
		OrganizationID: in.OrganizationID,
		ProgramID:      in.ProgramID,
		Status:         StatusPending,
		DueDate:        in.DueDate,
		CreatedBy:      actor.ID,
	}
	if exists {
		metrics.AssignmentSkipped("duplicate")
		return Assignment{}, duplicateError(candidate)
	}

	created, err := s.insertWithToken(ctx, candidate)
	if err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			metrics.AssignmentSkipped("duplicate")
		}
		return Assignment{}, err
	}
	metrics.AssignmentCreated(in.Source)

	s.audit.Record(ctx, audit.Entry{
		OrganizationID: created.OrganizationID,
		EntityType:     entityAssignment,
		EntityID:       created.ID,
		Action:         audit.ActionCreated,
		Description:    fmt.Sprintf("%s assigned to evaluate %s (%s)", created.EvaluatorID, created.EvaluateeID, in.Source),
		Actor:          actor,
		After:          created.Redacted(),
	})
	s.notify.Notify(ctx, notifications.Intent{
		OrganizationID: created.OrganizationID,
		AssignmentID:   created.ID,
		Template:       notifications.TemplateAssignmentCreated,
		RecipientID:    created.EvaluatorID,
		Data:           linkData(evt, created),
	})
	s.log.InfoContext(ctx, "assignment created",
		slog.String("assignment_id", created.ID),
		slog.String("event_id", created.EventID),
		slog.String("source", in.Source),
	)
	return created, nil
}

func (s *Service) insertWithToken(ctx context.Context, a Assignment) (Assignment, error) {
	for attempt := 1; ; attempt++ {
		token, err := NewAccessToken()
		if err != nil {
			return Assignment{}, fmt.Errorf("generate access token: %w", err)
		}
		a.AccessToken = token
		created, err := s.store.Insert(ctx, a)
		if errors.Is(err, errTokenCollision) && attempt < maxTokenAttempts {
			continue
		}
		return created, err
	}
}

func (s *Service) requireStaff(ctx context.Context, orgID string, ids ...string) error {
	for _, id := range ids {
		member, err := s.staff.Get(ctx, id)
		if err != nil {
			return err
		}
		if member.OrganizationID != orgID || !member.Live() {
			return domain.NotFound("staff member", id)
		}
	}
	return nil
}

func (s *Service) Get(ctx context.Context, actor domain.Actor, id string) (Assignment, error) {
	a, err := s.store.Get(ctx, id)
	if err != nil {
		return Assignment{}, err
	}
	if a.OrganizationID != actor.OrganizationID {
		return Assignment{}, domain.NotFound(entityAssignment, id)
	}
	return a, nil
}

func (s *Service) List(ctx context.Context, actor domain.Actor, f Filter) ([]Assignment, error) {
	f.OrganizationID = actor.OrganizationID
	return s.store.List(ctx, f)
}

// UpdateStatus applies one state-machine transition with compare-and-set retries.
func (s *Service) UpdateStatus(ctx context.Context, actor domain.Actor, id, status string) (Assignment, error) {
	if !ValidStatus(status) {
		return Assignment{}, domain.NewValidationError("status", "must be one of: pending in_progress completed overdue cancelled")
	}
	for attempt := 0; attempt < maxStatusAttempts; attempt++ {
		before, err := s.Get(ctx, actor, id)
		if err != nil {
			return Assignment{}, err
		}
		if !CanTransition(before.Status, status) {
			return Assignment{}, domain.InvalidTransition(entityAssignment, id, before.Status, status)
		}
		var completedAt *time.Time
		if status == StatusCompleted {
			now := s.now().UTC()
			completedAt = &now
		}
		after, ok, err := s.store.CompareAndSetStatus(ctx, id, before.Status, status, completedAt)
		if err != nil {
			return Assignment{}, err
		}
		if !ok {
			continue
		}
		s.audit.Record(ctx, audit.Entry{
			OrganizationID: after.OrganizationID,
			EntityType:     entityAssignment,
			EntityID:       id,
			Action:         audit.ActionStatusChanged,
			Description:    fmt.Sprintf("status %s -> %s", before.Status, after.Status),
			Actor:          actor,
			Before:         before.Redacted(),
			After:          after.Redacted(),
		})
		return after, nil
	}
	return Assignment{}, domain.Conflict(entityAssignment, id, "assignment was modified concurrently, retry")
}

// SoftDelete tombstones an assignment. Assignments with a linked response must be cancelled instead.
func (s *Service) SoftDelete(ctx context.Context, actor domain.Actor, id string) error {
	before, err := s.Get(ctx, actor, id)
	if err != nil {
		return err
	}
	if before.ResponseID != nil {
		return responseLinkedConflict(id)
	}
	ok, err := s.store.SoftDelete(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		current, err := s.store.Get(ctx, id)
		if err != nil {
			return err
		}
		if current.ResponseID != nil {
			return responseLinkedConflict(id)
		}
		return domain.Conflict(entityAssignment, id, "assignment was modified concurrently, retry")
	}
	s.audit.Record(ctx, audit.Entry{
		OrganizationID: before.OrganizationID,
		EntityType:     entityAssignment,
		EntityID:       id,
		Action:         audit.ActionDeleted,
		Description:    fmt.Sprintf("assignment of %s to evaluate %s deleted", before.EvaluatorID, before.EvaluateeID),
		Actor:          actor,
		Before:         before.Redacted(),
	})
	return nil
}

func responseLinkedConflict(id string) error {
	return domain.Conflict(entityAssignment, id, "assignment has a submitted response; cancel it instead")
}

// LinkResponse records a submitted response and completes the assignment.
// Linking the same response twice is a no-op.
func (s *Service) LinkResponse(ctx context.Context, actor domain.Actor, id, responseID string) (Assignment, error) {
	if err := domain.Validate(linkInput{ResponseID: responseID}); err != nil {
		return Assignment{}, err
	}
	before, err := s.Get(ctx, actor, id)
	if err != nil {
		return Assignment{}, err
	}
	if done, err := checkLinkable(before, responseID); done || err != nil {
		return before, err
	}
	after, ok, err := s.store.AttachResponse(ctx, id, responseID, s.now().UTC())
	if err != nil {
		return Assignment{}, err
	}
	if !ok {
		current, err := s.store.Get(ctx, id)
		if err != nil {
			return Assignment{}, err
		}
		if done, err := checkLinkable(current, responseID); done || err != nil {
			return current, err
		}
		return Assignment{}, domain.Conflict(entityAssignment, id, "assignment was modified concurrently, retry")
	}
	s.audit.Record(ctx, audit.Entry{
		OrganizationID: after.OrganizationID,
		EntityType:     entityAssignment,
		EntityID:       id,
		Action:         audit.ActionLinked,
		Description:    fmt.Sprintf("response %s linked", responseID),
		Actor:          actor,
		Before:         before.Redacted(),
		After:          after.Redacted(),
	})
	return after, nil
}

type linkInput struct {
	ResponseID string `json:"responseId" validate:"required,uuid"`
}

// checkLinkable reports done when responseID is already linked.
func checkLinkable(a Assignment, responseID string) (bool, error) {
	if a.ResponseID != nil {
		if *a.ResponseID == responseID {
			return true, nil
		}
		return false, domain.Conflict(entityAssignment, a.ID,
			fmt.Sprintf("assignment %s already has response %s", a.ID, *a.ResponseID))
	}
	if a.Status == StatusCancelled {
		return false, domain.InvalidTransition(entityAssignment, a.ID, a.Status, StatusCompleted)
	}
	return false, nil
}

// ResolveToken finds the assignment behind an evaluator access link.
func (s *Service) ResolveToken(ctx context.Context, token string) (Assignment, error) {
	if token == "" {
		return Assignment{}, domain.NotFound(entityAssignment, "token")
	}
	a, err := s.store.GetByToken(ctx, token)
	if err != nil {
		return Assignment{}, err
	}
	if a.Status == StatusCancelled {
		return Assignment{}, domain.NotFound(entityAssignment, "token")
	}
	return a, nil
}

// Remind re-sends the access link to the evaluator of an open assignment.
func (s *Service) Remind(ctx context.Context, actor domain.Actor, id string) (Assignment, error) {
	before, err := s.Get(ctx, actor, id)
	if err != nil {
		return Assignment{}, err
	}
	if IsTerminal(before.Status) {
		return Assignment{}, domain.Conflict(entityAssignment, id,
			fmt.Sprintf("assignment %s is %s", id, before.Status))
	}
	evt, err := s.events.Get(ctx, before.EventID)
	if err != nil {
		return Assignment{}, err
	}
	after, err := s.store.IncrementReminder(ctx, id)
	if err != nil {
		return Assignment{}, err
	}
	s.notify.Notify(ctx, notifications.Intent{
		OrganizationID: after.OrganizationID,
		AssignmentID:   after.ID,
		Template:       notifications.TemplateAssignmentReminder,
		RecipientID:    after.EvaluatorID,
		Data:           linkData(evt, after),
	})
	s.audit.Record(ctx, audit.Entry{
		OrganizationID: after.OrganizationID,
		EntityType:     entityAssignment,
		EntityID:       id,
		Action:         audit.ActionReminded,
		Description:    fmt.Sprintf("reminder %d sent to %s", after.ReminderCount, after.EvaluatorID),
		Actor:          actor,
	})
	return after, nil
}

// MarkOverdue moves open assignments past their due date to overdue.
func (s *Service) MarkOverdue(ctx context.Context) (int, error) {
	moved, err := s.store.MarkOverdue(ctx, s.now().UTC())
	if err != nil {
		return 0, err
	}
	for _, a := range moved {
		s.audit.Record(ctx, audit.Entry{
			OrganizationID: a.OrganizationID,
			EntityType:     entityAssignment,
			EntityID:       a.ID,
			Action:         audit.ActionStatusChanged,
			Description:    "status -> overdue (due date passed)",
			Actor:          domain.System,
			After:          a.Redacted(),
		})
	}
	if len(moved) > 0 {
		s.log.InfoContext(ctx, "assignments marked overdue", slog.Int("count", len(moved)))
	}
	return len(moved), nil
}

func (s *Service) Summary(ctx context.Context, actor domain.Actor, eventID string) (EventSummary, error) {
	evt, err := s.events.Get(ctx, eventID)
	if err != nil {
		return EventSummary{}, err
	}
	if evt.OrganizationID != actor.OrganizationID {
		return EventSummary{}, domain.NotFound("event", eventID)
	}
	counts, err := s.store.CountByStatus(ctx, eventID)
	if err != nil {
		return EventSummary{}, err
	}
	return buildEventSummary(eventID, counts), nil
}

func linkData(evt events.Event, a Assignment) map[string]string {
	data := map[string]string{
		"eventName":   evt.Name,
		"evaluateeId": a.EvaluateeID,
		"accessToken": a.AccessToken,
	}
	if a.DueDate != nil {
		data["dueDate"] = a.DueDate.Format(time.DateOnly)
	}
	return data
}
