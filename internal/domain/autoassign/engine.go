package autoassign

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"evalhub/internal/domain"
	"evalhub/internal/domain/assignment"
	"evalhub/internal/domain/events"
	"evalhub/internal/domain/hierarchy"
	"evalhub/internal/domain/staff"
	"evalhub/internal/platform/metrics"
)

var tracer = otel.Tracer("autoassign")

type graphSource interface {
	Snapshot(ctx context.Context, orgID string) (*hierarchy.Graph, error)
}

type staffLister interface {
	List(ctx context.Context, f staff.Filter) ([]staff.StaffMember, error)
}

type eventDirectory interface {
	Get(ctx context.Context, id string) (events.Event, error)
}

type assignmentCreator interface {
	Create(ctx context.Context, actor domain.Actor, in assignment.CreateInput) (assignment.Assignment, error)
}

type Options struct {
	// Timeout bounds one run. Zero leaves only the caller's deadline.
	Timeout        time.Duration
	DefaultDueDays int
}

type Engine struct {
	graph       graphSource
	staff       staffLister
	events      eventDirectory
	assignments assignmentCreator
	opts        Options
	log         *slog.Logger
	now         func() time.Time
}

func NewEngine(graph graphSource, staffDir staffLister, eventDir eventDirectory, assignments assignmentCreator, opts Options, log *slog.Logger) *Engine {
	return &Engine{
		graph:       graph,
		staff:       staffDir,
		events:      eventDir,
		assignments: assignments,
		opts:        opts,
		log:         log.With("service", "autoassign"),
		now:         time.Now,
	}
}

// Run creates every missing assignment the policy implies for the evaluable
// staff of an organization. Duplicates and per-pair failures are skipped.
func (e *Engine) Run(ctx context.Context, actor domain.Actor, in RunInput) (RunResult, error) {
	ctx, span := tracer.Start(ctx, "AutoAssign.Engine.Run", trace.WithAttributes(
		attribute.String("event.id", in.EventID),
		attribute.String("organization.id", in.OrganizationID),
	))
	defer span.End()

	if err := domain.Validate(in); err != nil {
		return RunResult{}, err
	}
	if in.Policy.empty() {
		return RunResult{}, domain.NewValidationError("policy", "must include at least one relationship category")
	}
	evt, err := e.events.Get(ctx, in.EventID)
	if err != nil {
		return RunResult{}, err
	}
	if evt.OrganizationID != in.OrganizationID {
		return RunResult{}, domain.NotFound("event", in.EventID)
	}

	if e.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.Timeout)
		defer cancel()
	}

	evaluatees, err := e.staff.List(ctx, staff.Filter{
		OrganizationID: in.OrganizationID,
		ProgramID:      in.ProgramID,
		EvaluableOnly:  true,
	})
	if err != nil {
		return RunResult{}, err
	}
	everyone, err := e.staff.List(ctx, staff.Filter{OrganizationID: in.OrganizationID})
	if err != nil {
		return RunResult{}, err
	}
	active := make(map[string]bool, len(everyone))
	for _, m := range everyone {
		active[m.ID] = true
	}
	graph, err := e.graph.Snapshot(ctx, in.OrganizationID)
	if err != nil {
		return RunResult{}, err
	}

	due := e.dueDate(in.Policy, evt)
	var res RunResult
members:
	for _, evaluatee := range evaluatees {
		for _, evaluatorID := range evaluatorsFor(graph, evaluatee.ID, in.Policy) {
			if ctx.Err() != nil {
				res.Interrupted = true
				break members
			}
			if !active[evaluatorID] {
				res.Skipped++
				metrics.AssignmentSkipped("inactive_evaluator")
				continue
			}
			_, err := e.assignments.Create(ctx, actor, assignment.CreateInput{
				EventID:        in.EventID,
				EvaluatorID:    evaluatorID,
				EvaluateeID:    evaluatee.ID,
				OrganizationID: in.OrganizationID,
				ProgramID:      in.ProgramID,
				DueDate:        due,
				Source:         assignment.SourceAuto,
			})
			switch {
			case err == nil:
				res.Created++
			case errors.Is(err, domain.ErrDuplicate):
				res.Skipped++
			case ctx.Err() != nil:
				res.Interrupted = true
				break members
			default:
				res.Skipped++
				metrics.AssignmentSkipped("error")
				e.log.WarnContext(ctx, "auto-assign pair skipped",
					"eventId", in.EventID,
					"evaluatorId", evaluatorID,
					"evaluateeId", evaluatee.ID,
					"err", err,
				)
			}
		}
	}

	span.SetAttributes(
		attribute.Int("assignments.created", res.Created),
		attribute.Int("assignments.skipped", res.Skipped),
		attribute.Bool("run.interrupted", res.Interrupted),
	)
	if res.Interrupted {
		span.SetStatus(codes.Error, "deadline reached")
	}
	e.log.InfoContext(ctx, "auto-assign finished",
		slog.String("event_id", in.EventID),
		slog.Int("evaluatees", len(evaluatees)),
		slog.Int("created", res.Created),
		slog.Int("skipped", res.Skipped),
		slog.Bool("interrupted", res.Interrupted),
	)
	return res, nil
}

// evaluatorsFor lists candidate evaluators in policy order: managers,
// subordinates, self, then peers under the primary manager.
func evaluatorsFor(g *hierarchy.Graph, evaluateeID string, p Policy) []string {
	var out []string
	if p.IncludeManagers {
		out = append(out, g.ManagersOf(evaluateeID)...)
	}
	if p.IncludeSubordinates {
		out = append(out, g.SubordinatesOf(evaluateeID)...)
	}
	if p.IncludeSelf {
		out = append(out, evaluateeID)
	}
	if p.IncludePeers {
		if _, ok := g.PrimaryManagerOf(evaluateeID); ok {
			out = append(out, g.PeersOf(evaluateeID)...)
		}
	}
	return out
}

func (e *Engine) dueDate(p Policy, evt events.Event) *time.Time {
	switch {
	case p.DueDate != nil:
		return p.DueDate
	case evt.EndsAt != nil:
		return evt.EndsAt
	case e.opts.DefaultDueDays > 0:
		due := e.now().UTC().AddDate(0, 0, e.opts.DefaultDueDays)
		return &due
	}
	return nil
}
