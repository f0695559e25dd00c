package hierarchy

import "time"

const (
	KindPrimary   = "primary"
	KindSecondary = "secondary"
)

// Edge is a directed "staff reports to manager" relationship.
type Edge struct {
	ID               string     `db:"id" json:"id"`
	OrganizationID   string     `db:"organization_id" json:"organizationId"`
	StaffID          string     `db:"staff_id" json:"staffId"`
	ReportsToID      string     `db:"reports_to_id" json:"reportsToId"`
	RelationshipKind string     `db:"relationship_kind" json:"relationshipKind"`
	IsActive         bool       `db:"is_active" json:"isActive"`
	CreatedBy        string     `db:"created_by" json:"createdBy"`
	CreatedAt        time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updatedAt"`
	DeletedAt        *time.Time `db:"deleted_at" json:"-"`
}

func (e Edge) Live() bool {
	return e.IsActive && e.DeletedAt == nil
}

type CreateEdgeInput struct {
	OrganizationID   string `json:"organizationId" validate:"required,uuid"`
	StaffID          string `json:"staffId" validate:"required,uuid"`
	ReportsToID      string `json:"reportsToId" validate:"required,uuid"`
	RelationshipKind string `json:"relationshipKind" validate:"omitempty,oneof=primary secondary"`
}

// TreeNode is one staff member in the reporting tree.
type TreeNode struct {
	StaffID  string      `json:"staffId"`
	Name     string      `json:"name,omitempty"`
	Children []*TreeNode `json:"children"`
}
