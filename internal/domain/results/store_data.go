package results

import (
	"context"
	"encoding/json"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"

	"evalhub/internal/platform/db"
)

const resultColumns = `id, event_id, staff_id, organization_id, total_assignments, completed_assignments,
      pending_assignments, completion_rate, overall_score, manager_score, peer_score,
      subordinate_score, self_score, aggregated_data, status, notes, calculated_at,
      published_at, published_by, created_by, updated_by, created_at, updated_at`

type Store struct {
	DB db.DBTX
}

func NewStore(q db.DBTX) *Store {
	return &Store{DB: q}
}

func (s *Store) LoadEvaluations(ctx context.Context, eventID, staffID string) ([]Evaluation, error) {
	var evals []Evaluation
	err := pgxscan.Select(ctx, s.DB, &evals, `
    SELECT a.id AS assignment_id, a.evaluator_id, a.evaluatee_id, a.response_id,
           r.status AS response_status, r.submitted_at
    FROM assignments a
    LEFT JOIN responses r ON r.id = a.response_id
    WHERE a.event_id = $1 AND a.evaluatee_id = $2 AND a.deleted_at IS NULL
    ORDER BY r.submitted_at NULLS FIRST, a.created_at, a.id
  `, eventID, staffID)
	if err != nil {
		return nil, db.MapError(err, "evaluations", staffID)
	}

	var responseIDs []string
	index := map[string]int{}
	for i, ev := range evals {
		if ev.ResponseID != nil {
			responseIDs = append(responseIDs, *ev.ResponseID)
			index[*ev.ResponseID] = i
		}
	}
	if len(responseIDs) == 0 {
		return evals, nil
	}

	var answers []Answer
	err = pgxscan.Select(ctx, s.DB, &answers, `
    SELECT ra.response_id, ra.question_id, q.question_type, ra.raw_value
    FROM response_answers ra
    JOIN questions q ON q.id = ra.question_id
    WHERE ra.response_id = ANY($1)
    ORDER BY ra.created_at, ra.id
  `, responseIDs)
	if err != nil {
		return nil, db.MapError(err, "response answers", staffID)
	}
	for _, a := range answers {
		i := index[a.ResponseID]
		evals[i].Answers = append(evals[i].Answers, a)
	}
	return evals, nil
}

func (s *Store) Evaluatees(ctx context.Context, eventID string) ([]string, error) {
	var ids []string
	err := pgxscan.Select(ctx, s.DB, &ids, `
    SELECT DISTINCT evaluatee_id
    FROM assignments
    WHERE event_id = $1 AND deleted_at IS NULL
    ORDER BY evaluatee_id
  `, eventID)
	if err != nil {
		return nil, db.MapError(err, "evaluatees", eventID)
	}
	return ids, nil
}

// Upsert relies on results_active_event_staff_key so concurrent calculations
// converge on one row.
func (s *Store) Upsert(ctx context.Context, r Result) (Result, error) {
	breakdown, err := json.Marshal(r.Breakdown)
	if err != nil {
		return Result{}, err
	}
	var out Result
	err = pgxscan.Get(ctx, s.DB, &out, `
    INSERT INTO results (
      event_id, staff_id, organization_id, total_assignments, completed_assignments,
      pending_assignments, completion_rate, overall_score, manager_score, peer_score,
      subordinate_score, self_score, aggregated_data, status, calculated_at, created_by, updated_by
    ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,'draft',$14,$15,$15)
    ON CONFLICT (event_id, staff_id) WHERE deleted_at IS NULL DO UPDATE SET
      total_assignments = EXCLUDED.total_assignments,
      completed_assignments = EXCLUDED.completed_assignments,
      pending_assignments = EXCLUDED.pending_assignments,
      completion_rate = EXCLUDED.completion_rate,
      overall_score = EXCLUDED.overall_score,
      manager_score = EXCLUDED.manager_score,
      peer_score = EXCLUDED.peer_score,
      subordinate_score = EXCLUDED.subordinate_score,
      self_score = EXCLUDED.self_score,
      aggregated_data = EXCLUDED.aggregated_data,
      calculated_at = EXCLUDED.calculated_at,
      updated_by = EXCLUDED.updated_by,
      updated_at = now()
    RETURNING `+resultColumns,
		r.EventID, r.StaffID, r.OrganizationID, r.TotalAssignments, r.CompletedAssignments,
		r.PendingAssignments, r.CompletionRate, r.OverallScore, r.ManagerScore, r.PeerScore,
		r.SubordinateScore, r.SelfScore, breakdown, r.CalculatedAt, r.UpdatedBy)
	if err != nil {
		return Result{}, db.MapError(err, entityResult, r.StaffID)
	}
	return decode(out)
}

func (s *Store) Get(ctx context.Context, id string) (Result, error) {
	var out Result
	err := pgxscan.Get(ctx, s.DB, &out, `
    SELECT `+resultColumns+`
    FROM results
    WHERE id = $1 AND deleted_at IS NULL
  `, id)
	if err != nil {
		return Result{}, db.MapError(err, entityResult, id)
	}
	return decode(out)
}

func (s *Store) Find(ctx context.Context, eventID, staffID string) (Result, error) {
	var out Result
	err := pgxscan.Get(ctx, s.DB, &out, `
    SELECT `+resultColumns+`
    FROM results
    WHERE event_id = $1 AND staff_id = $2 AND deleted_at IS NULL
  `, eventID, staffID)
	if err != nil {
		return Result{}, db.MapError(err, entityResult, staffID)
	}
	return decode(out)
}

func (s *Store) ListForEvent(ctx context.Context, eventID string) ([]Result, error) {
	var rows []Result
	err := pgxscan.Select(ctx, s.DB, &rows, `
    SELECT `+resultColumns+`
    FROM results
    WHERE event_id = $1 AND deleted_at IS NULL
    ORDER BY staff_id
  `, eventID)
	if err != nil {
		return nil, db.MapError(err, "results", eventID)
	}
	for i := range rows {
		if rows[i], err = decode(rows[i]); err != nil {
			return nil, err
		}
	}
	return rows, nil
}

func (s *Store) Publish(ctx context.Context, id string, notes *string, by string, at time.Time) (Result, error) {
	var out Result
	err := pgxscan.Get(ctx, s.DB, &out, `
    UPDATE results
    SET status = 'published', published_at = $2, published_by = $3,
        notes = COALESCE($4, notes), updated_by = $3, updated_at = now()
    WHERE id = $1 AND deleted_at IS NULL
    RETURNING `+resultColumns, id, at, by, notes)
	if err != nil {
		return Result{}, db.MapError(err, entityResult, id)
	}
	return decode(out)
}

func decode(r Result) (Result, error) {
	if len(r.AggregatedJSON) == 0 {
		return r, nil
	}
	if err := json.Unmarshal(r.AggregatedJSON, &r.Breakdown); err != nil {
		return Result{}, err
	}
	return r, nil
}
