package testkit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"evalhub/internal/domain"
	"evalhub/internal/domain/assignment"
)

// AssignmentStore is an in-memory assignment.StoreAPI that enforces the
// active-triple uniqueness inside Insert.
type AssignmentStore struct {
	mu   sync.Mutex
	rows []assignment.Assignment
	// FailInsertFor makes Insert fail with a storage error for the given evaluatee.
	FailInsertFor map[string]error
}

func NewAssignmentStore() *AssignmentStore {
	return &AssignmentStore{FailInsertFor: map[string]error{}}
}

func (s *AssignmentStore) find(id string) int {
	for i, a := range s.rows {
		if a.ID == id && a.DeletedAt == nil {
			return i
		}
	}
	return -1
}

func (s *AssignmentStore) Get(_ context.Context, id string) (assignment.Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.find(id); i >= 0 {
		return s.rows[i], nil
	}
	return assignment.Assignment{}, domain.NotFound("assignment", id)
}

func (s *AssignmentStore) GetByToken(_ context.Context, token string) (assignment.Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.rows {
		if a.AccessToken == token && a.DeletedAt == nil {
			return a, nil
		}
	}
	return assignment.Assignment{}, domain.NotFound("assignment", "token")
}

func (s *AssignmentStore) List(_ context.Context, f assignment.Filter) ([]assignment.Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []assignment.Assignment
	for _, a := range s.rows {
		if a.DeletedAt != nil {
			continue
		}
		if (f.OrganizationID != "" && a.OrganizationID != f.OrganizationID) ||
			(f.EventID != "" && a.EventID != f.EventID) ||
			(f.EvaluatorID != "" && a.EvaluatorID != f.EvaluatorID) ||
			(f.EvaluateeID != "" && a.EvaluateeID != f.EvaluateeID) ||
			(f.Status != "" && a.Status != f.Status) {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (s *AssignmentStore) ExistsActive(_ context.Context, eventID, evaluatorID, evaluateeID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.existsLocked(eventID, evaluatorID, evaluateeID), nil
}

func (s *AssignmentStore) existsLocked(eventID, evaluatorID, evaluateeID string) bool {
	for _, a := range s.rows {
		if a.DeletedAt == nil && a.EventID == eventID && a.EvaluatorID == evaluatorID && a.EvaluateeID == evaluateeID {
			return true
		}
	}
	return false
}

func (s *AssignmentStore) Insert(_ context.Context, a assignment.Assignment) (assignment.Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.FailInsertFor[a.EvaluateeID]; err != nil {
		return assignment.Assignment{}, err
	}
	if s.existsLocked(a.EventID, a.EvaluatorID, a.EvaluateeID) {
		return assignment.Assignment{}, domain.Duplicate("assignment",
			fmt.Sprintf("an active assignment already exists for evaluator %s and evaluatee %s", a.EvaluatorID, a.EvaluateeID))
	}
	a.ID = uuid.NewString()
	a.CreatedAt = Epoch.Add(time.Duration(len(s.rows)) * time.Second)
	a.UpdatedAt = a.CreatedAt
	s.rows = append(s.rows, a)
	return a, nil
}

func (s *AssignmentStore) CompareAndSetStatus(_ context.Context, id, from, to string, completedAt *time.Time) (assignment.Assignment, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.find(id)
	if i < 0 || s.rows[i].Status != from {
		return assignment.Assignment{}, false, nil
	}
	s.rows[i].Status = to
	if completedAt != nil {
		s.rows[i].CompletedAt = completedAt
	}
	return s.rows[i], true, nil
}

func (s *AssignmentStore) SoftDelete(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.find(id)
	if i < 0 || s.rows[i].ResponseID != nil {
		return false, nil
	}
	at := Epoch
	s.rows[i].DeletedAt = &at
	return true, nil
}

func (s *AssignmentStore) AttachResponse(_ context.Context, id, responseID string, completedAt time.Time) (assignment.Assignment, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.find(id)
	if i < 0 || s.rows[i].ResponseID != nil || s.rows[i].Status == assignment.StatusCancelled {
		return assignment.Assignment{}, false, nil
	}
	s.rows[i].ResponseID = &responseID
	s.rows[i].Status = assignment.StatusCompleted
	s.rows[i].CompletedAt = &completedAt
	return s.rows[i], true, nil
}

func (s *AssignmentStore) IncrementReminder(_ context.Context, id string) (assignment.Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.find(id)
	if i < 0 {
		return assignment.Assignment{}, domain.NotFound("assignment", id)
	}
	s.rows[i].ReminderCount++
	return s.rows[i], nil
}

func (s *AssignmentStore) MarkOverdue(_ context.Context, now time.Time) ([]assignment.Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []assignment.Assignment
	for i, a := range s.rows {
		if a.DeletedAt != nil || a.DueDate == nil || !a.DueDate.Before(now) {
			continue
		}
		if a.Status != assignment.StatusPending && a.Status != assignment.StatusInProgress {
			continue
		}
		s.rows[i].Status = assignment.StatusOverdue
		out = append(out, s.rows[i])
	}
	return out, nil
}

func (s *AssignmentStore) CountByStatus(_ context.Context, eventID string) (map[string]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[string]int{}
	for _, a := range s.rows {
		if a.DeletedAt == nil && a.EventID == eventID {
			out[a.Status]++
		}
	}
	return out, nil
}

// Active returns every live row.
func (s *AssignmentStore) Active() []assignment.Assignment {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []assignment.Assignment
	for _, a := range s.rows {
		if a.DeletedAt == nil {
			out = append(out, a)
		}
	}
	return out
}
