package events

import "time"

const (
	StatusDraft  = "draft"
	StatusActive = "active"
	StatusClosed = "closed"
)

// Event is an evaluation campaign. It is owned elsewhere and read here as context.
type Event struct {
	ID             string     `db:"id" json:"id"`
	OrganizationID string     `db:"organization_id" json:"organizationId"`
	Name           string     `db:"name" json:"name"`
	Status         string     `db:"status" json:"status"`
	StartsAt       *time.Time `db:"starts_at" json:"startsAt,omitempty"`
	EndsAt         *time.Time `db:"ends_at" json:"endsAt,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"createdAt"`
}
