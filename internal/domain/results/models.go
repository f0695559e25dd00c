package results

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	StatusDraft     = "draft"
	StatusPublished = "published"
)

const (
	BucketSelf        = "self"
	BucketManager     = "manager"
	BucketSubordinate = "subordinate"
	BucketPeer        = "peer"
)

const (
	ResponseCompleted = "completed"
	QuestionRating    = "rating"
)

const entityResult = "result"

// Result is the aggregated scorecard of one staff member in one event.
type Result struct {
	ID                   string              `db:"id" json:"id"`
	EventID              string              `db:"event_id" json:"eventId"`
	StaffID              string              `db:"staff_id" json:"staffId"`
	OrganizationID       string              `db:"organization_id" json:"organizationId"`
	TotalAssignments     int                 `db:"total_assignments" json:"totalAssignments"`
	CompletedAssignments int                 `db:"completed_assignments" json:"completedAssignments"`
	PendingAssignments   int                 `db:"pending_assignments" json:"pendingAssignments"`
	CompletionRate       decimal.Decimal     `db:"completion_rate" json:"completionRate"`
	OverallScore         decimal.NullDecimal `db:"overall_score" json:"overallScore"`
	ManagerScore         decimal.NullDecimal `db:"manager_score" json:"managerScore"`
	PeerScore            decimal.NullDecimal `db:"peer_score" json:"peerScore"`
	SubordinateScore     decimal.NullDecimal `db:"subordinate_score" json:"subordinateScore"`
	SelfScore            decimal.NullDecimal `db:"self_score" json:"selfScore"`
	AggregatedJSON       []byte              `db:"aggregated_data" json:"-"`
	Breakdown            Breakdown           `db:"-" json:"aggregatedData"`
	Status               string              `db:"status" json:"status"`
	Notes                *string             `db:"notes" json:"notes,omitempty"`
	CalculatedAt         time.Time           `db:"calculated_at" json:"calculatedAt"`
	PublishedAt          *time.Time          `db:"published_at" json:"publishedAt,omitempty"`
	PublishedBy          *string             `db:"published_by" json:"publishedBy,omitempty"`
	CreatedBy            string              `db:"created_by" json:"createdBy"`
	UpdatedBy            string              `db:"updated_by" json:"updatedBy"`
	CreatedAt            time.Time           `db:"created_at" json:"createdAt"`
	UpdatedAt            time.Time           `db:"updated_at" json:"updatedAt"`
}

// Breakdown is the typed content of aggregated_data.
type Breakdown struct {
	Counts   BucketCounts `json:"counts"`
	Scores   []Scored     `json:"scores"`
	Ungraded int          `json:"ungraded"`
}

type BucketCounts struct {
	Manager     int `json:"manager"`
	Peer        int `json:"peer"`
	Subordinate int `json:"subordinate"`
	Self        int `json:"self"`
}

func (c *BucketCounts) add(bucket string) {
	switch bucket {
	case BucketManager:
		c.Manager++
	case BucketPeer:
		c.Peer++
	case BucketSubordinate:
		c.Subordinate++
	case BucketSelf:
		c.Self++
	}
}

// Scored is one graded evaluation.
type Scored struct {
	AssignmentID string          `json:"assignmentId"`
	EvaluatorID  string          `json:"evaluatorId"`
	Bucket       string          `json:"bucket"`
	Score        decimal.Decimal `json:"score"`
}

// Evaluation is one assignment of the evaluatee joined to its response.
type Evaluation struct {
	AssignmentID   string     `db:"assignment_id"`
	EvaluatorID    string     `db:"evaluator_id"`
	EvaluateeID    string     `db:"evaluatee_id"`
	ResponseID     *string    `db:"response_id"`
	ResponseStatus *string    `db:"response_status"`
	SubmittedAt    *time.Time `db:"submitted_at"`
	Answers        []Answer   `db:"-"`
}

func (e Evaluation) completed() bool {
	return e.ResponseStatus != nil && *e.ResponseStatus == ResponseCompleted
}

type Answer struct {
	ResponseID   string `db:"response_id"`
	QuestionID   string `db:"question_id"`
	QuestionType string `db:"question_type"`
	RawValue     string `db:"raw_value"`
}

type PublishInput struct {
	Notes *string `json:"notes,omitempty" validate:"omitempty,max=2000"`
}
