package results

import (
	"context"
	"time"
)

type StoreAPI interface {
	// LoadEvaluations returns the live assignments of an evaluatee joined to their responses and answers.
	LoadEvaluations(ctx context.Context, eventID, staffID string) ([]Evaluation, error)
	// Evaluatees lists staff with at least one live assignment in the event.
	Evaluatees(ctx context.Context, eventID string) ([]string, error)
	// Upsert inserts or updates the row for (event, staff), preserving id and status.
	Upsert(ctx context.Context, r Result) (Result, error)
	Get(ctx context.Context, id string) (Result, error)
	Find(ctx context.Context, eventID, staffID string) (Result, error)
	ListForEvent(ctx context.Context, eventID string) ([]Result, error)
	Publish(ctx context.Context, id string, notes *string, by string, at time.Time) (Result, error)
}
