package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"

	"evalhub/internal/platform/config"
	"evalhub/internal/platform/db"
	"evalhub/internal/platform/metrics"
)

const (
	JobAutoAssign       = "auto_assign"
	JobRecalculateEvent = "recalculate_event"
	JobOverdueSweep     = "overdue_sweep"
)

const (
	StatusQueued    = "queued"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

var ErrQueueFull = errors.New("job queue full")

// Run is one row of job_runs.
type Run struct {
	ID             string          `db:"id" json:"id"`
	OrganizationID *string         `db:"organization_id" json:"organizationId,omitempty"`
	JobType        string          `db:"job_type" json:"jobType"`
	Status         string          `db:"status" json:"status"`
	Details        json.RawMessage `db:"details_json" json:"details,omitempty"`
	CreatedAt      time.Time       `db:"created_at" json:"createdAt"`
	CompletedAt    *time.Time      `db:"completed_at" json:"completedAt,omitempty"`
}

type Func func(context.Context) (any, error)

type overdueSweeper interface {
	MarkOverdue(ctx context.Context) (int, error)
}

type Service struct {
	DB      db.DBTX
	cfg     config.JobsConfig
	sweeper overdueSweeper
	queue   chan job
	log     *slog.Logger
}

type job struct {
	RunID string
	Type  string
	OrgID string
	Run   Func
}

func New(q db.DBTX, cfg config.JobsConfig, sweeper overdueSweeper, log *slog.Logger) *Service {
	size := cfg.QueueSize
	if size <= 0 {
		size = 128
	}
	return &Service{
		DB:      q,
		cfg:     cfg,
		sweeper: sweeper,
		queue:   make(chan job, size),
		log:     log.With("component", "jobs"),
	}
}

func (s *Service) Start(ctx context.Context) {
	go s.worker(ctx)
	if s.sweeper != nil && s.cfg.OverdueSweepInterval > 0 {
		go s.scheduleOverdueSweep(ctx, s.cfg.OverdueSweepInterval)
	}
}

// Enqueue records a queued run and hands it to the worker.
func (s *Service) Enqueue(ctx context.Context, jobType, orgID string, run Func) (Run, error) {
	queued, err := s.insert(ctx, jobType, orgID, StatusQueued)
	if err != nil {
		return Run{}, err
	}
	select {
	case s.queue <- job{RunID: queued.ID, Type: jobType, OrgID: orgID, Run: run}:
		return queued, nil
	default:
		s.finish(ctx, queued.ID, jobType, map[string]string{"error": ErrQueueFull.Error()}, ErrQueueFull)
		s.log.WarnContext(ctx, "job queue full", "jobType", jobType, "organizationId", orgID)
		return Run{}, ErrQueueFull
	}
}

// RunNow executes run synchronously and records it.
func (s *Service) RunNow(ctx context.Context, jobType, orgID string, run Func) (any, error) {
	started, err := s.insert(ctx, jobType, orgID, StatusRunning)
	if err != nil {
		s.log.WarnContext(ctx, "job run insert failed", "jobType", jobType, "err", err)
	}
	details, runErr := run(ctx)
	s.finish(ctx, started.ID, jobType, details, runErr)
	return details, runErr
}

func (s *Service) Get(ctx context.Context, id string) (Run, error) {
	var r Run
	err := pgxscan.Get(ctx, s.DB, &r, `
    SELECT id, organization_id, job_type, status, details_json, created_at, completed_at
    FROM job_runs
    WHERE id = $1
  `, id)
	if err != nil {
		return Run{}, db.MapError(err, "job run", id)
	}
	return r, nil
}

func (s *Service) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-s.queue:
			s.execute(ctx, j)
		}
	}
}

func (s *Service) execute(ctx context.Context, j job) {
	if _, err := s.DB.Exec(ctx, `UPDATE job_runs SET status = $1 WHERE id = $2`, StatusRunning, j.RunID); err != nil {
		s.log.WarnContext(ctx, "job run update failed", "runId", j.RunID, "err", err)
	}
	details, err := j.Run(ctx)
	s.finish(ctx, j.RunID, j.Type, details, err)
	if err != nil {
		s.log.WarnContext(ctx, "job run failed", "jobType", j.Type, "organizationId", j.OrgID, "err", err)
	}
}

func (s *Service) insert(ctx context.Context, jobType, orgID, status string) (Run, error) {
	var r Run
	err := pgxscan.Get(ctx, s.DB, &r, `
    INSERT INTO job_runs (organization_id, job_type, status)
    VALUES ($1,$2,$3)
    RETURNING id, organization_id, job_type, status, details_json, created_at, completed_at
  `, nullable(orgID), jobType, status)
	if err != nil {
		return Run{}, db.MapError(err, "job run", jobType)
	}
	return r, nil
}

func (s *Service) finish(ctx context.Context, runID, jobType string, details any, runErr error) {
	status := StatusCompleted
	if runErr != nil {
		status = StatusFailed
		if details == nil {
			details = map[string]string{"error": runErr.Error()}
		}
	}
	metrics.JobFinished(jobType, status)
	if runID == "" {
		return
	}
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		s.log.WarnContext(ctx, "job details marshal failed", "err", err)
		detailsJSON = []byte("{}")
	}
	if _, err := s.DB.Exec(ctx, `
    UPDATE job_runs
    SET status = $1, details_json = $2, completed_at = now()
    WHERE id = $3
  `, status, detailsJSON, runID); err != nil {
		s.log.WarnContext(ctx, "job run update failed", "runId", runID, "err", err)
	}
}

func (s *Service) scheduleOverdueSweep(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Enqueue(ctx, JobOverdueSweep, "", func(ctx context.Context) (any, error) {
				moved, err := s.sweeper.MarkOverdue(ctx)
				return map[string]int{"overdue": moved}, err
			}); err != nil {
				s.log.WarnContext(ctx, "overdue sweep enqueue failed", "err", err)
			}
		}
	}
}

func nullable(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
