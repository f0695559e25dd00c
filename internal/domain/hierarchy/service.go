package hierarchy

import (
	"context"
	"fmt"
	"log/slog"

	"evalhub/internal/domain"
	"evalhub/internal/domain/audit"
	"evalhub/internal/domain/staff"
)

const entityEdge = "hierarchy_edge"

type staffDirectory interface {
	Get(ctx context.Context, id string) (staff.StaffMember, error)
	List(ctx context.Context, f staff.Filter) ([]staff.StaffMember, error)
}

type auditRecorder interface {
	Record(ctx context.Context, entry audit.Entry)
}

type Service struct {
	store StoreAPI
	staff staffDirectory
	audit auditRecorder
	log   *slog.Logger
}

func NewService(store StoreAPI, staffDir staffDirectory, auditRec auditRecorder, log *slog.Logger) *Service {
	return &Service{store: store, staff: staffDir, audit: auditRec, log: log.With("service", "hierarchy")}
}

// Snapshot loads the live reporting graph of an organization.
func (s *Service) Snapshot(ctx context.Context, orgID string) (*Graph, error) {
	edges, err := s.store.ListLive(ctx, orgID)
	if err != nil {
		return nil, err
	}
	return NewGraph(edges), nil
}

func (s *Service) IsManagerOf(ctx context.Context, orgID, candidateManagerID, staffID string) (bool, error) {
	g, err := s.Snapshot(ctx, orgID)
	if err != nil {
		return false, err
	}
	return g.IsManagerOf(candidateManagerID, staffID), nil
}

func (s *Service) SubordinatesOf(ctx context.Context, orgID, managerID string) ([]string, error) {
	g, err := s.Snapshot(ctx, orgID)
	if err != nil {
		return nil, err
	}
	return g.SubordinatesOf(managerID), nil
}

func (s *Service) ManagersOf(ctx context.Context, orgID, staffID string) ([]string, error) {
	g, err := s.Snapshot(ctx, orgID)
	if err != nil {
		return nil, err
	}
	return g.ManagersOf(staffID), nil
}

func (s *Service) PeersOf(ctx context.Context, orgID, staffID string) ([]string, error) {
	g, err := s.Snapshot(ctx, orgID)
	if err != nil {
		return nil, err
	}
	return g.PeersOf(staffID), nil
}

func (s *Service) WouldCreateCycle(ctx context.Context, orgID, proposedManagerID, proposedStaffID string) (bool, error) {
	g, err := s.Snapshot(ctx, orgID)
	if err != nil {
		return false, err
	}
	return g.WouldCreateCycle(proposedManagerID, proposedStaffID), nil
}

// CreateEdge validates and inserts a reporting edge. The cycle check runs
// against the edge set inside the inserting transaction.
func (s *Service) CreateEdge(ctx context.Context, actor domain.Actor, in CreateEdgeInput) (Edge, error) {
	if in.RelationshipKind == "" {
		in.RelationshipKind = KindPrimary
	}
	if err := domain.Validate(in); err != nil {
		return Edge{}, err
	}
	if in.StaffID == in.ReportsToID {
		return Edge{}, domain.SelfReference(in.StaffID)
	}
	for _, id := range []string{in.StaffID, in.ReportsToID} {
		member, err := s.staff.Get(ctx, id)
		if err != nil {
			return Edge{}, err
		}
		if member.OrganizationID != in.OrganizationID || !member.Live() {
			return Edge{}, domain.NotFound("staff member", id)
		}
	}

	edge := Edge{
		OrganizationID:   in.OrganizationID,
		StaffID:          in.StaffID,
		ReportsToID:      in.ReportsToID,
		RelationshipKind: in.RelationshipKind,
		IsActive:         true,
		CreatedBy:        actor.ID,
	}
	created, err := s.store.CreateEdge(ctx, edge, func(g *Graph) error {
		if g.WouldCreateCycle(in.ReportsToID, in.StaffID) {
			return domain.Cycle(in.ReportsToID, in.StaffID)
		}
		if in.RelationshipKind == KindPrimary {
			if current, ok := g.PrimaryManagerOf(in.StaffID); ok {
				return domain.Conflict(entityEdge, in.StaffID,
					fmt.Sprintf("staff %s already has primary manager %s", in.StaffID, current))
			}
		}
		return nil
	})
	if err != nil {
		return Edge{}, err
	}

	s.audit.Record(ctx, audit.Entry{
		OrganizationID: created.OrganizationID,
		EntityType:     entityEdge,
		EntityID:       created.ID,
		Action:         audit.ActionCreated,
		Description:    fmt.Sprintf("%s now reports to %s (%s)", created.StaffID, created.ReportsToID, created.RelationshipKind),
		Actor:          actor,
		After:          created,
	})
	s.log.InfoContext(ctx, "hierarchy edge created",
		slog.String("edge_id", created.ID),
		slog.String("staff_id", created.StaffID),
		slog.String("reports_to_id", created.ReportsToID),
	)
	return created, nil
}

func (s *Service) DeleteEdge(ctx context.Context, actor domain.Actor, id string) error {
	before, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if before.OrganizationID != actor.OrganizationID {
		return domain.NotFound(entityEdge, id)
	}
	deleted, err := s.store.SoftDelete(ctx, id)
	if err != nil {
		return err
	}
	s.audit.Record(ctx, audit.Entry{
		OrganizationID: deleted.OrganizationID,
		EntityType:     entityEdge,
		EntityID:       id,
		Action:         audit.ActionDeleted,
		Description:    fmt.Sprintf("%s no longer reports to %s", deleted.StaffID, deleted.ReportsToID),
		Actor:          actor,
		Before:         before,
	})
	return nil
}

// Tree returns the primary reporting forest of an organization, optionally scoped to a program.
func (s *Service) Tree(ctx context.Context, orgID string, programID *string) ([]*TreeNode, error) {
	members, err := s.staff.List(ctx, staff.Filter{OrganizationID: orgID, ProgramID: programID})
	if err != nil {
		return nil, err
	}
	g, err := s.Snapshot(ctx, orgID)
	if err != nil {
		return nil, err
	}
	nodes := make([]TreeNode, 0, len(members))
	for _, m := range members {
		nodes = append(nodes, TreeNode{StaffID: m.ID, Name: m.FullName})
	}
	return g.Tree(nodes), nil
}
