package audit

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evalhub/internal/domain"
	"evalhub/internal/requestctx"
)

type failingSink struct{ calls int }

func (f *failingSink) Append(context.Context, Entry) error {
	f.calls++
	return errors.New("audit table unavailable")
}

func TestRecorderSwallowsSinkFailures(t *testing.T) {
	sink := &failingSink{}
	rec := NewRecorder(sink, slog.New(slog.NewTextHandler(io.Discard, nil)))

	rec.Record(context.Background(), Entry{EntityType: "assignment", EntityID: "a1", Action: ActionCreated})

	assert.Equal(t, 1, sink.calls)
}

func TestNilRecorderIsNoop(t *testing.T) {
	var rec *Recorder
	rec.Record(context.Background(), Entry{Action: ActionCreated})
}

func TestDiffProducesPatchForChangedFields(t *testing.T) {
	before, _ := json.Marshal(map[string]any{"status": "pending", "reminderCount": 0})
	after, _ := json.Marshal(map[string]any{"status": "in_progress", "reminderCount": 0})

	patch, err := diff(before, after)
	require.NoError(t, err)

	var ops []map[string]any
	require.NoError(t, json.Unmarshal(patch, &ops))
	require.Len(t, ops, 1)
	assert.Equal(t, "replace", ops[0]["op"])
	assert.Equal(t, "/status", ops[0]["path"])
	assert.Equal(t, "in_progress", ops[0]["value"])
}

func TestDiffSkipsWhenSnapshotMissing(t *testing.T) {
	patch, err := diff(nil, []byte(`{"status":"pending"}`))
	require.NoError(t, err)
	assert.Nil(t, patch)
}

func TestStoreAppendWritesOrigin(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	ctx := requestctx.WithRequestID(context.Background(), "req-9")
	ctx = requestctx.WithOrigin(ctx, requestctx.Origin{IP: "10.1.1.1", UserAgent: "test"})

	mock.ExpectExec(`INSERT INTO audit_log`).
		WithArgs("org-1", "assignment", "a1", ActionDeleted, "", "u1", "Ops",
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), "req-9", "10.1.1.1", "test").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = NewStore(mock).Append(ctx, Entry{
		OrganizationID: "org-1",
		EntityType:     "assignment",
		EntityID:       "a1",
		Action:         ActionDeleted,
		Actor:          domain.Actor{ID: "u1", Name: "Ops"},
		Before:         map[string]string{"status": "pending"},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreListForEntityScopesOrganization(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	at := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	rows := pgxmock.NewRows([]string{"id", "entity_type", "entity_id", "action", "description", "actor_id", "actor_name",
		"before_json", "after_json", "diff_json", "request_id", "ip", "created_at"}).
		AddRow("ev1", "assignment", "a1", ActionCreated, "assignment created", "u1", "Ops",
			nil, []byte(`{"status":"pending"}`), nil, "req-1", "10.0.0.1", at)
	mock.ExpectQuery(`(?s)FROM audit_log\s+WHERE organization_id = \$1 AND entity_type = \$2 AND entity_id = \$3`).
		WithArgs("org-1", "assignment", "a1").
		WillReturnRows(rows)

	events, err := NewStore(mock).ListForEntity(context.Background(), "org-1", "assignment", "a1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, ActionCreated, events[0].Action)
	assert.JSONEq(t, `{"status":"pending"}`, string(events[0].After))
	assert.Nil(t, events[0].Before)
	assert.NoError(t, mock.ExpectationsWereMet())
}
