package assignment

import "time"

type Assignment struct {
	ID             string     `db:"id" json:"id"`
	EventID        string     `db:"event_id" json:"eventId"`
	EvaluatorID    string     `db:"evaluator_id" json:"evaluatorId"`
	EvaluateeID    string     `db:"evaluatee_id" json:"evaluateeId"`
	OrganizationID string     `db:"organization_id" json:"organizationId"`
	ProgramID      *string    `db:"program_id" json:"programId,omitempty"`
	Status         string     `db:"status" json:"status"`
	AccessToken    string     `db:"access_token" json:"accessToken,omitempty"`
	ResponseID     *string    `db:"response_id" json:"responseId,omitempty"`
	DueDate        *time.Time `db:"due_date" json:"dueDate,omitempty"`
	ReminderCount  int        `db:"reminder_count" json:"reminderCount"`
	CompletedAt    *time.Time `db:"completed_at" json:"completedAt,omitempty"`
	CreatedBy      string     `db:"created_by" json:"createdBy"`
	CreatedAt      time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updatedAt"`
	DeletedAt      *time.Time `db:"deleted_at" json:"-"`
}

func (a Assignment) IsSelfEvaluation() bool {
	return a.EvaluatorID == a.EvaluateeID
}

// Redacted strips the access token. Only the create response and
// notifications carry it.
func (a Assignment) Redacted() Assignment {
	a.AccessToken = ""
	return a
}

type CreateInput struct {
	EventID        string     `json:"eventId" validate:"required,uuid"`
	EvaluatorID    string     `json:"evaluatorId" validate:"required,uuid"`
	EvaluateeID    string     `json:"evaluateeId" validate:"required,uuid"`
	OrganizationID string     `json:"organizationId" validate:"required,uuid"`
	ProgramID      *string    `json:"programId,omitempty" validate:"omitempty,uuid"`
	DueDate        *time.Time `json:"dueDate,omitempty"`
	Source         string     `json:"-" validate:"omitempty,oneof=manual auto"`
}

// EventSummary is the progress of one event's assignments.
type EventSummary struct {
	EventID        string         `json:"eventId"`
	Total          int            `json:"total"`
	Completed      int            `json:"completed"`
	Outstanding    int            `json:"outstanding"`
	CompletionRate float64        `json:"completionRate"`
	ByStatus       map[string]int `json:"byStatus"`
}
