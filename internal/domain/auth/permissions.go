package auth

import "context"

const (
	PermHierarchyRead    = "hierarchy.read"
	PermHierarchyWrite   = "hierarchy.write"
	PermAssignmentsRead  = "assignments.read"
	PermAssignmentsWrite = "assignments.write"
	PermAutoAssign       = "assignments.autoassign"
	PermResultsRead      = "results.read"
	PermResultsCalculate = "results.calculate"
	PermResultsPublish   = "results.publish"
	PermAuditRead        = "audit.read"
	PermJobsRead         = "jobs.read"
	PermSystemAdmin      = "admin.system"
)

var DefaultPermissions = []string{
	PermHierarchyRead,
	PermHierarchyWrite,
	PermAssignmentsRead,
	PermAssignmentsWrite,
	PermAutoAssign,
	PermResultsRead,
	PermResultsCalculate,
	PermResultsPublish,
	PermAuditRead,
	PermJobsRead,
	PermSystemAdmin,
}

var RolePermissions = map[string][]string{
	RoleStaff: {
		PermHierarchyRead,
		PermAssignmentsRead,
	},
	RoleManager: {
		PermHierarchyRead,
		PermAssignmentsRead,
		PermAssignmentsWrite,
		PermResultsRead,
	},
	RoleHR: {
		PermHierarchyRead,
		PermHierarchyWrite,
		PermAssignmentsRead,
		PermAssignmentsWrite,
		PermAutoAssign,
		PermResultsRead,
		PermResultsCalculate,
		PermResultsPublish,
		PermAuditRead,
		PermJobsRead,
	},
	RoleSystemAdmin: DefaultPermissions,
}

// StaticPermissions answers permission checks from RolePermissions.
type StaticPermissions struct {
	grants map[string]map[string]struct{}
}

func NewStaticPermissions() *StaticPermissions {
	grants := make(map[string]map[string]struct{}, len(RolePermissions))
	for role, perms := range RolePermissions {
		set := make(map[string]struct{}, len(perms))
		for _, p := range perms {
			set[p] = struct{}{}
		}
		grants[role] = set
	}
	return &StaticPermissions{grants: grants}
}

func (p *StaticPermissions) HasPermission(_ context.Context, role, permission string) (bool, error) {
	_, ok := p.grants[role][permission]
	return ok, nil
}
