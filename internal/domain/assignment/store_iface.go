package assignment

import (
	"context"
	"time"
)

// Filter scopes an assignment listing. Empty fields are ignored.
type Filter struct {
	OrganizationID string
	EventID        string
	EvaluatorID    string
	EvaluateeID    string
	Status         string
}

type StoreAPI interface {
	Get(ctx context.Context, id string) (Assignment, error)
	GetByToken(ctx context.Context, token string) (Assignment, error)
	List(ctx context.Context, f Filter) ([]Assignment, error)
	ExistsActive(ctx context.Context, eventID, evaluatorID, evaluateeID string) (bool, error)
	// Insert returns a Duplicate error when the active triple already exists.
	Insert(ctx context.Context, a Assignment) (Assignment, error)
	// CompareAndSetStatus moves the row only if it is still in from. ok is false otherwise.
	CompareAndSetStatus(ctx context.Context, id, from, to string, completedAt *time.Time) (Assignment, bool, error)
	// SoftDelete tombstones the row only if no response is linked. ok is false otherwise.
	SoftDelete(ctx context.Context, id string) (bool, error)
	// AttachResponse links a response and completes the assignment if none is linked yet.
	AttachResponse(ctx context.Context, id, responseID string, completedAt time.Time) (Assignment, bool, error)
	IncrementReminder(ctx context.Context, id string) (Assignment, error)
	MarkOverdue(ctx context.Context, now time.Time) ([]Assignment, error)
	CountByStatus(ctx context.Context, eventID string) (map[string]int, error)
}
