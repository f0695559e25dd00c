package shared

import (
	"context"
	"errors"
	"net/http"

	"evalhub/internal/platform/jobs"
	"evalhub/internal/transport/http/api"
	"evalhub/internal/transport/http/middleware"
)

// JobRunner records long-running work in job_runs, inline or through the queue.
type JobRunner interface {
	Enqueue(ctx context.Context, jobType, orgID string, run jobs.Func) (jobs.Run, error)
	RunNow(ctx context.Context, jobType, orgID string, run jobs.Func) (any, error)
}

func WantsAsync(r *http.Request) bool {
	return r.URL.Query().Get("async") == "true"
}

// Accepted enqueues run and answers 202 with the queued job, or 503 when the queue is full.
func Accepted(w http.ResponseWriter, r *http.Request, runner JobRunner, jobType, orgID string, run jobs.Func) {
	queued, err := runner.Enqueue(r.Context(), jobType, orgID, run)
	if err != nil {
		if errors.Is(err, jobs.ErrQueueFull) {
			api.Fail(w, http.StatusServiceUnavailable, "queue_full", "job queue is full, retry later", middleware.GetRequestID(r.Context()))
			return
		}
		api.FailError(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	api.WriteJSON(w, http.StatusAccepted, api.Envelope{Success: true, Data: queued, RequestID: middleware.GetRequestID(r.Context())})
}
