package staff

import "time"

type StaffMember struct {
	ID                     string     `db:"id" json:"id"`
	OrganizationID         string     `db:"organization_id" json:"organizationId"`
	ProgramID              *string    `db:"program_id" json:"programId,omitempty"`
	RoleID                 *string    `db:"role_id" json:"roleId,omitempty"`
	FullName               string     `db:"full_name" json:"fullName"`
	Email                  string     `db:"email" json:"email"`
	IsActive               bool       `db:"is_active" json:"isActive"`
	AvailableForEvaluation bool       `db:"available_for_evaluation" json:"availableForEvaluation"`
	CreatedAt              time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt              time.Time  `db:"updated_at" json:"updatedAt"`
	DeletedAt              *time.Time `db:"deleted_at" json:"-"`
}

// Live reports whether the member is active and not tombstoned.
func (m StaffMember) Live() bool {
	return m.IsActive && m.DeletedAt == nil
}

// Filter scopes a staff listing. Deleted and inactive members are always excluded.
type Filter struct {
	OrganizationID string
	ProgramID      *string
	EvaluableOnly  bool
}
