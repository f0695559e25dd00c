package testkit

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"evalhub/internal/domain"
	"evalhub/internal/domain/assignment"
	"evalhub/internal/domain/results"
)

type response struct {
	status      string
	submittedAt time.Time
	answers     []results.Answer
}

// ResultStore is an in-memory results.StoreAPI reading evaluations from an AssignmentStore.
type ResultStore struct {
	mu          sync.Mutex
	assignments *AssignmentStore
	responses   map[string]response
	rows        []results.Result
}

func NewResultStore(assignments *AssignmentStore) *ResultStore {
	return &ResultStore{assignments: assignments, responses: map[string]response{}}
}

// AddResponse stores a response with one answer per raw value and returns its id.
func (s *ResultStore) AddResponse(status string, rawValues ...string) string {
	answers := make([]results.Answer, 0, len(rawValues))
	for _, raw := range rawValues {
		answers = append(answers, results.Answer{QuestionID: uuid.NewString(), QuestionType: results.QuestionRating, RawValue: raw})
	}
	return s.AddAnswers(status, answers...)
}

func (s *ResultStore) AddAnswers(status string, answers ...results.Answer) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.NewString()
	for i := range answers {
		answers[i].ResponseID = id
	}
	s.responses[id] = response{
		status:      status,
		submittedAt: Epoch.Add(time.Duration(len(s.responses)) * time.Minute),
		answers:     answers,
	}
	return id
}

func (s *ResultStore) LoadEvaluations(ctx context.Context, eventID, staffID string) ([]results.Evaluation, error) {
	rows, err := s.assignments.List(ctx, assignment.Filter{EventID: eventID, EvaluateeID: staffID})
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]results.Evaluation, 0, len(rows))
	for _, a := range rows {
		ev := results.Evaluation{
			AssignmentID: a.ID,
			EvaluatorID:  a.EvaluatorID,
			EvaluateeID:  a.EvaluateeID,
			ResponseID:   a.ResponseID,
		}
		if a.ResponseID != nil {
			if r, ok := s.responses[*a.ResponseID]; ok {
				status, at := r.status, r.submittedAt
				ev.ResponseStatus = &status
				ev.SubmittedAt = &at
				ev.Answers = r.answers
			}
		}
		out = append(out, ev)
	}
	return out, nil
}

func (s *ResultStore) Evaluatees(ctx context.Context, eventID string) ([]string, error) {
	rows, err := s.assignments.List(ctx, assignment.Filter{EventID: eventID})
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	var out []string
	for _, a := range rows {
		if !seen[a.EvaluateeID] {
			seen[a.EvaluateeID] = true
			out = append(out, a.EvaluateeID)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *ResultStore) Upsert(_ context.Context, r results.Result) (results.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, row := range s.rows {
		if row.EventID == r.EventID && row.StaffID == r.StaffID {
			r.ID = row.ID
			r.Status = row.Status
			r.Notes = row.Notes
			r.PublishedAt = row.PublishedAt
			r.PublishedBy = row.PublishedBy
			r.CreatedBy = row.CreatedBy
			r.CreatedAt = row.CreatedAt
			s.rows[i] = r
			return r, nil
		}
	}
	r.ID = uuid.NewString()
	r.Status = results.StatusDraft
	r.CreatedAt = Epoch
	s.rows = append(s.rows, r)
	return r, nil
}

func (s *ResultStore) Get(_ context.Context, id string) (results.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range s.rows {
		if row.ID == id {
			return row, nil
		}
	}
	return results.Result{}, domain.NotFound("result", id)
}

func (s *ResultStore) Find(_ context.Context, eventID, staffID string) (results.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range s.rows {
		if row.EventID == eventID && row.StaffID == staffID {
			return row, nil
		}
	}
	return results.Result{}, domain.NotFound("result", staffID)
}

func (s *ResultStore) ListForEvent(_ context.Context, eventID string) ([]results.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []results.Result
	for _, row := range s.rows {
		if row.EventID == eventID {
			out = append(out, row)
		}
	}
	return out, nil
}

func (s *ResultStore) Publish(_ context.Context, id string, notes *string, by string, at time.Time) (results.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, row := range s.rows {
		if row.ID == id {
			s.rows[i].Status = results.StatusPublished
			s.rows[i].PublishedAt = &at
			s.rows[i].PublishedBy = &by
			if notes != nil {
				s.rows[i].Notes = notes
			}
			return s.rows[i], nil
		}
	}
	return results.Result{}, domain.NotFound("result", id)
}

// Count returns the number of stored rows.
func (s *ResultStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}
