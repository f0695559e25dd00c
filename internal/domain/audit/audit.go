package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"evalhub/internal/domain"
)

const (
	ActionCreated       = "created"
	ActionStatusChanged = "status_changed"
	ActionDeleted       = "deleted"
	ActionLinked        = "response_linked"
	ActionReminded      = "reminded"
	ActionCalculated    = "calculated"
	ActionPublished     = "published"
)

// Entry is one append-only record of a mutation.
type Entry struct {
	OrganizationID string
	EntityType     string
	EntityID       string
	Action         string
	Description    string
	Actor          domain.Actor
	Before         any
	After          any
}

// Event is a stored entry as returned to readers.
type Event struct {
	ID          string          `db:"id" json:"id"`
	EntityType  string          `db:"entity_type" json:"entityType"`
	EntityID    string          `db:"entity_id" json:"entityId"`
	Action      string          `db:"action" json:"action"`
	Description string          `db:"description" json:"description"`
	ActorID     string          `db:"actor_id" json:"actorId"`
	ActorName   string          `db:"actor_name" json:"actorName"`
	Before      json.RawMessage `db:"before_json" json:"before,omitempty"`
	After       json.RawMessage `db:"after_json" json:"after,omitempty"`
	Diff        json.RawMessage `db:"diff_json" json:"diff,omitempty"`
	RequestID   string          `db:"request_id" json:"requestId"`
	IP          string          `db:"ip" json:"ip"`
	CreatedAt   time.Time       `db:"created_at" json:"createdAt"`
}

// Sink persists audit entries.
type Sink interface {
	Append(ctx context.Context, entry Entry) error
}

// Recorder writes entries to a Sink and never fails the caller.
type Recorder struct {
	sink Sink
	log  *slog.Logger
}

func NewRecorder(sink Sink, log *slog.Logger) *Recorder {
	return &Recorder{sink: sink, log: log.With("component", "audit")}
}

func (r *Recorder) Record(ctx context.Context, entry Entry) {
	if r == nil || r.sink == nil {
		return
	}
	if err := r.sink.Append(ctx, entry); err != nil {
		r.log.WarnContext(ctx, "audit append failed",
			"entityType", entry.EntityType,
			"entityId", entry.EntityID,
			"action", entry.Action,
			"err", err,
		)
	}
}
