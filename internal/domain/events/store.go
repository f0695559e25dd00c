package events

import (
	"context"

	"github.com/georgysavva/scany/v2/pgxscan"

	"evalhub/internal/platform/db"
)

type Store struct {
	DB db.DBTX
}

func NewStore(q db.DBTX) *Store {
	return &Store{DB: q}
}

func (s *Store) Get(ctx context.Context, id string) (Event, error) {
	var evt Event
	err := pgxscan.Get(ctx, s.DB, &evt, `
    SELECT id, organization_id, name, status, starts_at, ends_at, created_at
    FROM evaluation_events
    WHERE id = $1 AND deleted_at IS NULL
  `, id)
	if err != nil {
		return Event{}, db.MapError(err, "event", id)
	}
	return evt, nil
}
