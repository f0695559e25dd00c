package results

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evalhub/internal/domain"
)

var resultRowColumns = []string{
	"id", "event_id", "staff_id", "organization_id", "total_assignments", "completed_assignments",
	"pending_assignments", "completion_rate", "overall_score", "manager_score", "peer_score",
	"subordinate_score", "self_score", "aggregated_data", "status", "notes", "calculated_at",
	"published_at", "published_by", "created_by", "updated_by", "created_at", "updated_at",
}

func anyArgs(n int) []any {
	args := make([]any, n)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

func TestStoreUpsertUsesConflictClause(t *testing.T) {
	mock, err := pgxmock.NewConn()
	require.NoError(t, err)
	defer mock.Close(context.Background())

	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`(?s)INSERT INTO results .*ON CONFLICT \(event_id, staff_id\) WHERE deleted_at IS NULL DO UPDATE`).
		WithArgs(anyArgs(15)...).
		WillReturnRows(mock.NewRows(resultRowColumns).AddRow(
			"res-1", "evt-1", "staff-1", "org-1", 2, 1,
			1, "50", "80", "80", nil,
			nil, nil, []byte(`{"counts":{"manager":1,"peer":0,"subordinate":0,"self":0},"scores":[],"ungraded":0}`),
			StatusPublished, nil, now,
			&now, nil, "admin", "admin", now, now,
		))

	r, err := NewStore(mock).Upsert(context.Background(), Result{
		EventID:        "evt-1",
		StaffID:        "staff-1",
		CompletionRate: decimal.NewFromInt(50),
		OverallScore:   decimal.NewNullDecimal(decimal.NewFromInt(80)),
	})
	require.NoError(t, err)
	assert.Equal(t, "res-1", r.ID)
	assert.Equal(t, StatusPublished, r.Status)
	assert.Equal(t, 1, r.Breakdown.Counts.Manager)
	assert.True(t, r.OverallScore.Valid)
	assert.False(t, r.PeerScore.Valid)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreLoadEvaluationsAttachesAnswers(t *testing.T) {
	mock, err := pgxmock.NewConn()
	require.NoError(t, err)
	defer mock.Close(context.Background())

	responseID := "resp-1"
	status := ResponseCompleted
	mock.ExpectQuery(`(?s)FROM assignments a\s+LEFT JOIN responses r`).
		WithArgs("evt-1", "staff-1").
		WillReturnRows(mock.NewRows([]string{"assignment_id", "evaluator_id", "evaluatee_id", "response_id", "response_status", "submitted_at"}).
			AddRow("a-1", "m-1", "staff-1", &responseID, &status, nil).
			AddRow("a-2", "p-1", "staff-1", nil, nil, nil))
	mock.ExpectQuery(`(?s)FROM response_answers ra\s+JOIN questions q`).
		WithArgs([]string{responseID}).
		WillReturnRows(mock.NewRows([]string{"response_id", "question_id", "question_type", "raw_value"}).
			AddRow(responseID, "q-1", QuestionRating, "4").
			AddRow(responseID, "q-2", "text", "fine"))

	evals, err := NewStore(mock).LoadEvaluations(context.Background(), "evt-1", "staff-1")
	require.NoError(t, err)
	require.Len(t, evals, 2)
	assert.Len(t, evals[0].Answers, 2)
	assert.True(t, evals[0].completed())
	assert.Empty(t, evals[1].Answers)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStorePublishNotFound(t *testing.T) {
	mock, err := pgxmock.NewConn()
	require.NoError(t, err)
	defer mock.Close(context.Background())

	mock.ExpectQuery(`UPDATE results`).
		WithArgs("missing", pgxmock.AnyArg(), "admin", pgxmock.AnyArg()).
		WillReturnRows(mock.NewRows(resultRowColumns))

	_, err = NewStore(mock).Publish(context.Background(), "missing", nil, "admin", time.Now())
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreUpsertMapsNumericOverflow(t *testing.T) {
	mock, err := pgxmock.NewConn()
	require.NoError(t, err)
	defer mock.Close(context.Background())

	mock.ExpectQuery(`(?s)INSERT INTO results`).
		WithArgs(anyArgs(15)...).
		WillReturnError(&pgconn.PgError{Code: "22003", Message: "numeric field overflow"})

	_, err = NewStore(mock).Upsert(context.Background(), Result{
		EventID:      "evt-1",
		StaffID:      "staff-1",
		OverallScore: decimal.NewNullDecimal(decimal.RequireFromString("125002")),
	})
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.NoError(t, mock.ExpectationsWereMet())
}
