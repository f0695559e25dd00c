package testkit

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"

	"evalhub/internal/platform/jobs"
)

// Jobs runs every job inline and keeps the resulting rows.
type Jobs struct {
	mu   sync.Mutex
	Runs []jobs.Run
	Full bool
}

func (j *Jobs) Enqueue(ctx context.Context, jobType, orgID string, run jobs.Func) (jobs.Run, error) {
	if j.Full {
		return jobs.Run{}, jobs.ErrQueueFull
	}
	_, _ = j.RunNow(ctx, jobType, orgID, run)
	j.mu.Lock()
	defer j.mu.Unlock()
	queued := j.Runs[len(j.Runs)-1]
	queued.Status = jobs.StatusQueued
	queued.Details = nil
	return queued, nil
}

func (j *Jobs) RunNow(ctx context.Context, jobType, orgID string, run jobs.Func) (any, error) {
	details, err := run(ctx)
	status := jobs.StatusCompleted
	if err != nil {
		status = jobs.StatusFailed
	}
	raw, _ := json.Marshal(details)
	org := orgID
	j.mu.Lock()
	j.Runs = append(j.Runs, jobs.Run{
		ID:             uuid.NewString(),
		OrganizationID: &org,
		JobType:        jobType,
		Status:         status,
		Details:        raw,
		CreatedAt:      Epoch,
	})
	j.mu.Unlock()
	return details, err
}
