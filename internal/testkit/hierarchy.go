package testkit

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"evalhub/internal/domain"
	"evalhub/internal/domain/hierarchy"
)

// EdgeStore is an in-memory hierarchy.StoreAPI. CreateEdge holds the lock
// across check and insert, matching the single-writer contract of the SQL store.
type EdgeStore struct {
	mu    sync.Mutex
	edges []hierarchy.Edge
}

func NewEdgeStore() *EdgeStore {
	return &EdgeStore{}
}

func (s *EdgeStore) ListLive(_ context.Context, orgID string) ([]hierarchy.Edge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []hierarchy.Edge
	for _, e := range s.edges {
		if e.OrganizationID == orgID && e.Live() {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *EdgeStore) Get(_ context.Context, id string) (hierarchy.Edge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.edges {
		if e.ID == id && e.DeletedAt == nil {
			return e, nil
		}
	}
	return hierarchy.Edge{}, domain.NotFound("hierarchy edge", id)
}

func (s *EdgeStore) CreateEdge(_ context.Context, edge hierarchy.Edge, check func(*hierarchy.Graph) error) (hierarchy.Edge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var live []hierarchy.Edge
	for _, e := range s.edges {
		if e.OrganizationID == edge.OrganizationID && e.Live() {
			live = append(live, e)
		}
	}
	if err := check(hierarchy.NewGraph(live)); err != nil {
		return hierarchy.Edge{}, err
	}
	edge.ID = uuid.NewString()
	edge.IsActive = true
	edge.CreatedAt = Epoch.Add(time.Duration(len(s.edges)) * time.Second)
	edge.UpdatedAt = edge.CreatedAt
	s.edges = append(s.edges, edge)
	return edge, nil
}

func (s *EdgeStore) SoftDelete(_ context.Context, id string) (hierarchy.Edge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, e := range s.edges {
		if e.ID == id && e.DeletedAt == nil {
			at := Epoch
			s.edges[i].DeletedAt = &at
			s.edges[i].IsActive = false
			return s.edges[i], nil
		}
	}
	return hierarchy.Edge{}, domain.NotFound("hierarchy edge", id)
}
