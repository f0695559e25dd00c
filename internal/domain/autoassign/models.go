package autoassign

import "time"

// Policy selects which relationship categories produce evaluators.
type Policy struct {
	IncludeManagers     bool       `json:"includeManagers"`
	IncludePeers        bool       `json:"includePeers"`
	IncludeSubordinates bool       `json:"includeSubordinates"`
	IncludeSelf         bool       `json:"includeSelf"`
	DueDate             *time.Time `json:"dueDate,omitempty"`
}

func (p Policy) empty() bool {
	return !p.IncludeManagers && !p.IncludePeers && !p.IncludeSubordinates && !p.IncludeSelf
}

type RunInput struct {
	EventID        string  `json:"eventId" validate:"required,uuid"`
	OrganizationID string  `json:"organizationId" validate:"required,uuid"`
	ProgramID      *string `json:"programId,omitempty" validate:"omitempty,uuid"`
	Policy         Policy  `json:"policy"`
}

// RunResult counts attempted creates. Interrupted is set when the run stopped
// at its deadline; the counts then cover the work done so far.
type RunResult struct {
	Created     int  `json:"created"`
	Skipped     int  `json:"skipped"`
	Interrupted bool `json:"interrupted,omitempty"`
}
