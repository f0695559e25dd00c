package notifications

import (
	"context"
	"encoding/json"

	"evalhub/internal/platform/db"
)

// OutboxStore writes intents to the notification_outbox table for the delivery worker.
type OutboxStore struct {
	DB db.DBTX
}

func NewOutboxStore(q db.DBTX) *OutboxStore {
	return &OutboxStore{DB: q}
}

func (s *OutboxStore) Enqueue(ctx context.Context, intent Intent) error {
	payload, err := json.Marshal(intent)
	if err != nil {
		return err
	}
	_, err = s.DB.Exec(ctx, `
    INSERT INTO notification_outbox (organization_id, assignment_id, template, recipient_id, payload)
    VALUES ($1,$2,$3,$4,$5)
  `, intent.OrganizationID, nullIfEmpty(intent.AssignmentID), intent.Template, intent.RecipientID, payload)
	return err
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}
