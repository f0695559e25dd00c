package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/wI2L/jsondiff"

	"evalhub/internal/platform/db"
	"evalhub/internal/requestctx"
)

// Store is the postgres-backed Sink.
type Store struct {
	DB db.DBTX
}

func NewStore(q db.DBTX) *Store {
	return &Store{DB: q}
}

func (s *Store) Append(ctx context.Context, entry Entry) error {
	beforeJSON, err := marshalSnapshot(entry.Before)
	if err != nil {
		return fmt.Errorf("marshal before: %w", err)
	}
	afterJSON, err := marshalSnapshot(entry.After)
	if err != nil {
		return fmt.Errorf("marshal after: %w", err)
	}
	diffJSON, err := diff(beforeJSON, afterJSON)
	if err != nil {
		return fmt.Errorf("diff snapshots: %w", err)
	}

	origin := requestctx.GetOrigin(ctx)
	_, err = s.DB.Exec(ctx, `
    INSERT INTO audit_log (organization_id, entity_type, entity_id, action, description, actor_id, actor_name,
      before_json, after_json, diff_json, request_id, ip, user_agent)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
  `, nullIfEmpty(entry.OrganizationID), entry.EntityType, entry.EntityID, entry.Action, entry.Description,
		entry.Actor.ID, entry.Actor.Label(), beforeJSON, afterJSON, diffJSON,
		requestctx.GetRequestID(ctx), origin.IP, origin.UserAgent)
	return err
}

// ListForEntity returns the trail for one entity, oldest first, scoped to the organization.
func (s *Store) ListForEntity(ctx context.Context, orgID, entityType, entityID string) ([]Event, error) {
	var out []Event
	err := pgxscan.Select(ctx, s.DB, &out, `
    SELECT id, entity_type, entity_id, action, description, actor_id, actor_name,
      before_json, after_json, diff_json, request_id, ip, created_at
    FROM audit_log
    WHERE organization_id = $1 AND entity_type = $2 AND entity_id = $3
    ORDER BY created_at, id
  `, orgID, entityType, entityID)
	if err != nil {
		return nil, db.MapError(err, entityType, entityID)
	}
	return out, nil
}

func marshalSnapshot(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

// diff returns an RFC 6902 patch from before to after, or nil when either side is missing.
func diff(before, after []byte) ([]byte, error) {
	if before == nil || after == nil {
		return nil, nil
	}
	patch, err := jsondiff.CompareJSON(before, after)
	if err != nil {
		return nil, err
	}
	if len(patch) == 0 {
		return nil, nil
	}
	return json.Marshal(patch)
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}
