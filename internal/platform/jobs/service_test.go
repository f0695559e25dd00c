package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evalhub/internal/platform/config"
)

var runColumns = []string{"id", "organization_id", "job_type", "status", "details_json", "created_at", "completed_at"}

func newTestService(t *testing.T, queueSize int) (*Service, pgxmock.PgxConnIface) {
	t.Helper()
	mock, err := pgxmock.NewConn()
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close(context.Background()) })
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(mock, config.JobsConfig{QueueSize: queueSize}, nil, log), mock
}

func runRow(mock pgxmock.PgxConnIface, id, status string) *pgxmock.Rows {
	org := "org-1"
	return mock.NewRows(runColumns).AddRow(id, &org, JobAutoAssign, status, []byte(nil), time.Now(), (*time.Time)(nil))
}

func TestRunNowRecordsOutcome(t *testing.T) {
	svc, mock := newTestService(t, 1)

	mock.ExpectQuery(`INSERT INTO job_runs`).
		WithArgs(pgxmock.AnyArg(), JobAutoAssign, StatusRunning).
		WillReturnRows(runRow(mock, "run-1", StatusRunning))
	mock.ExpectExec(`UPDATE job_runs`).
		WithArgs(StatusFailed, pgxmock.AnyArg(), "run-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	boom := errors.New("boom")
	_, err := svc.RunNow(context.Background(), JobAutoAssign, "org-1", func(context.Context) (any, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnqueueReportsFullQueue(t *testing.T) {
	svc, mock := newTestService(t, 1)
	noop := func(context.Context) (any, error) { return nil, nil }

	mock.ExpectQuery(`INSERT INTO job_runs`).
		WithArgs(pgxmock.AnyArg(), JobAutoAssign, StatusQueued).
		WillReturnRows(runRow(mock, "run-1", StatusQueued))
	mock.ExpectQuery(`INSERT INTO job_runs`).
		WithArgs(pgxmock.AnyArg(), JobAutoAssign, StatusQueued).
		WillReturnRows(runRow(mock, "run-2", StatusQueued))
	mock.ExpectExec(`UPDATE job_runs`).
		WithArgs(StatusFailed, pgxmock.AnyArg(), "run-2").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	queued, err := svc.Enqueue(context.Background(), JobAutoAssign, "org-1", noop)
	require.NoError(t, err)
	assert.Equal(t, "run-1", queued.ID)
	assert.Equal(t, StatusQueued, queued.Status)

	_, err = svc.Enqueue(context.Background(), JobAutoAssign, "org-1", noop)
	assert.ErrorIs(t, err, ErrQueueFull)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWorkerExecutesQueuedJob(t *testing.T) {
	svc, mock := newTestService(t, 4)
	done := make(chan struct{})

	mock.ExpectQuery(`INSERT INTO job_runs`).
		WithArgs(pgxmock.AnyArg(), JobRecalculateEvent, StatusQueued).
		WillReturnRows(runRow(mock, "run-1", StatusQueued))
	mock.ExpectExec(`UPDATE job_runs SET status = \$1 WHERE id = \$2`).
		WithArgs(StatusRunning, "run-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`UPDATE job_runs\s+SET status = \$1, details_json`).
		WithArgs(StatusCompleted, pgxmock.AnyArg(), "run-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	_, err := svc.Enqueue(context.Background(), JobRecalculateEvent, "org-1", func(context.Context) (any, error) {
		defer close(done)
		return map[string]int{"results": 3}, nil
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job did not run")
	}
	assert.Eventually(t, func() bool { return mock.ExpectationsWereMet() == nil }, 2*time.Second, 10*time.Millisecond)
}
