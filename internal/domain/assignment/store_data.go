package assignment

import (
	"context"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"evalhub/internal/domain"
	"evalhub/internal/platform/db"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const (
	constraintActiveTriple = "assignments_active_triple_key"
	constraintAccessToken  = "assignments_access_token_key"
)

const columns = `id, event_id, evaluator_id, evaluatee_id, organization_id, program_id, status,
      access_token, response_id, due_date, reminder_count, completed_at, created_by,
      created_at, updated_at, deleted_at`

var errTokenCollision = errors.New("access token collision")

type Store struct {
	DB db.DBTX
}

func NewStore(q db.DBTX) *Store {
	return &Store{DB: q}
}

func (s *Store) Get(ctx context.Context, id string) (Assignment, error) {
	var a Assignment
	err := pgxscan.Get(ctx, s.DB, &a, `
    SELECT `+columns+`
    FROM assignments
    WHERE id = $1 AND deleted_at IS NULL
  `, id)
	if err != nil {
		return Assignment{}, db.MapError(err, entityAssignment, id)
	}
	return a, nil
}

func (s *Store) GetByToken(ctx context.Context, token string) (Assignment, error) {
	var a Assignment
	err := pgxscan.Get(ctx, s.DB, &a, `
    SELECT `+columns+`
    FROM assignments
    WHERE access_token = $1 AND deleted_at IS NULL
  `, token)
	if err != nil {
		return Assignment{}, db.MapError(err, entityAssignment, "token")
	}
	return a, nil
}

func (s *Store) List(ctx context.Context, f Filter) ([]Assignment, error) {
	where := sq.Eq{"deleted_at": nil}
	if f.OrganizationID != "" {
		where["organization_id"] = f.OrganizationID
	}
	if f.EventID != "" {
		where["event_id"] = f.EventID
	}
	if f.EvaluatorID != "" {
		where["evaluator_id"] = f.EvaluatorID
	}
	if f.EvaluateeID != "" {
		where["evaluatee_id"] = f.EvaluateeID
	}
	if f.Status != "" {
		where["status"] = f.Status
	}
	query, args, err := psql.Select(columns).
		From("assignments").
		Where(where).
		OrderBy("created_at", "id").
		ToSql()
	if err != nil {
		return nil, err
	}
	var out []Assignment
	if err := pgxscan.Select(ctx, s.DB, &out, query, args...); err != nil {
		return nil, db.MapError(err, "assignments", f.EventID)
	}
	return out, nil
}

func (s *Store) ExistsActive(ctx context.Context, eventID, evaluatorID, evaluateeID string) (bool, error) {
	var exists bool
	err := s.DB.QueryRow(ctx, `
    SELECT EXISTS (
      SELECT 1 FROM assignments
      WHERE event_id = $1 AND evaluator_id = $2 AND evaluatee_id = $3 AND deleted_at IS NULL
    )
  `, eventID, evaluatorID, evaluateeID).Scan(&exists)
	if err != nil {
		return false, db.MapError(err, entityAssignment, eventID)
	}
	return exists, nil
}

func (s *Store) Insert(ctx context.Context, a Assignment) (Assignment, error) {
	var created Assignment
	err := pgxscan.Get(ctx, s.DB, &created, `
    INSERT INTO assignments (
      event_id, evaluator_id, evaluatee_id, organization_id, program_id, status,
      access_token, due_date, reminder_count, created_by
    ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,0,$9)
    RETURNING `+columns,
		a.EventID, a.EvaluatorID, a.EvaluateeID, a.OrganizationID, a.ProgramID, a.Status,
		a.AccessToken, a.DueDate, a.CreatedBy)
	switch {
	case err == nil:
		return created, nil
	case db.IsUniqueViolation(err, constraintActiveTriple):
		return Assignment{}, duplicateError(a)
	case db.IsUniqueViolation(err, constraintAccessToken):
		return Assignment{}, errTokenCollision
	default:
		return Assignment{}, db.MapError(err, entityAssignment, a.EvaluateeID)
	}
}

func (s *Store) CompareAndSetStatus(ctx context.Context, id, from, to string, completedAt *time.Time) (Assignment, bool, error) {
	var a Assignment
	err := pgxscan.Get(ctx, s.DB, &a, `
    UPDATE assignments
    SET status = $3, completed_at = COALESCE($4, completed_at), updated_at = now()
    WHERE id = $1 AND status = $2 AND deleted_at IS NULL
    RETURNING `+columns, id, from, to, completedAt)
	if pgxscan.NotFound(err) {
		return Assignment{}, false, nil
	}
	if err != nil {
		return Assignment{}, false, db.MapError(err, entityAssignment, id)
	}
	return a, true, nil
}

func (s *Store) SoftDelete(ctx context.Context, id string) (bool, error) {
	tag, err := s.DB.Exec(ctx, `
    UPDATE assignments
    SET deleted_at = now(), updated_at = now()
    WHERE id = $1 AND deleted_at IS NULL AND response_id IS NULL
  `, id)
	if err != nil {
		return false, db.MapError(err, entityAssignment, id)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) AttachResponse(ctx context.Context, id, responseID string, completedAt time.Time) (Assignment, bool, error) {
	var a Assignment
	err := pgxscan.Get(ctx, s.DB, &a, `
    UPDATE assignments
    SET response_id = $2, status = 'completed', completed_at = $3, updated_at = now()
    WHERE id = $1 AND deleted_at IS NULL AND response_id IS NULL AND status <> 'cancelled'
    RETURNING `+columns, id, responseID, completedAt)
	if pgxscan.NotFound(err) {
		return Assignment{}, false, nil
	}
	if err != nil {
		return Assignment{}, false, db.MapError(err, entityAssignment, id)
	}
	return a, true, nil
}

func (s *Store) IncrementReminder(ctx context.Context, id string) (Assignment, error) {
	var a Assignment
	err := pgxscan.Get(ctx, s.DB, &a, `
    UPDATE assignments
    SET reminder_count = reminder_count + 1, updated_at = now()
    WHERE id = $1 AND deleted_at IS NULL
    RETURNING `+columns, id)
	if err != nil {
		return Assignment{}, db.MapError(err, entityAssignment, id)
	}
	return a, nil
}

func (s *Store) MarkOverdue(ctx context.Context, now time.Time) ([]Assignment, error) {
	var out []Assignment
	err := pgxscan.Select(ctx, s.DB, &out, `
    UPDATE assignments
    SET status = 'overdue', updated_at = now()
    WHERE deleted_at IS NULL
      AND status IN ('pending', 'in_progress')
      AND due_date IS NOT NULL AND due_date < $1
    RETURNING `+columns, now)
	if err != nil {
		return nil, db.MapError(err, "assignments", "overdue")
	}
	return out, nil
}

func (s *Store) CountByStatus(ctx context.Context, eventID string) (map[string]int, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT status, count(*)
    FROM assignments
    WHERE event_id = $1 AND deleted_at IS NULL
    GROUP BY status
  `, eventID)
	if err != nil {
		return nil, db.MapError(err, "assignments", eventID)
	}
	counts, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (statusCount, error) {
		var sc statusCount
		err := row.Scan(&sc.status, &sc.count)
		return sc, err
	})
	if err != nil {
		return nil, db.MapError(err, "assignments", eventID)
	}
	out := make(map[string]int, len(counts))
	for _, c := range counts {
		out[c.status] = c.count
	}
	return out, nil
}

type statusCount struct {
	status string
	count  int
}

func duplicateError(a Assignment) error {
	return domain.Duplicate(entityAssignment,
		"an active assignment already exists for evaluator "+a.EvaluatorID+" and evaluatee "+a.EvaluateeID)
}
