package hierarchy

import "context"

type StoreAPI interface {
	ListLive(ctx context.Context, orgID string) ([]Edge, error)
	Get(ctx context.Context, id string) (Edge, error)
	// CreateEdge inserts edge after check accepts a consistent snapshot of the
	// organization's edges. Writers for one organization are serialized.
	CreateEdge(ctx context.Context, edge Edge, check func(*Graph) error) (Edge, error)
	SoftDelete(ctx context.Context, id string) (Edge, error)
}
