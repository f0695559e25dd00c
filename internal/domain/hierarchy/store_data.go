package hierarchy

import (
	"context"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"evalhub/internal/platform/db"
)

const edgeColumns = `id, organization_id, staff_id, reports_to_id, relationship_kind, is_active,
      created_by, created_at, updated_at, deleted_at`

const lockScope = "hierarchy_edges"

type Store struct {
	DB db.Pool
}

func NewStore(pool db.Pool) *Store {
	return &Store{DB: pool}
}

func (s *Store) ListLive(ctx context.Context, orgID string) ([]Edge, error) {
	return listLive(ctx, s.DB, orgID)
}

func listLive(ctx context.Context, q db.DBTX, orgID string) ([]Edge, error) {
	var out []Edge
	err := pgxscan.Select(ctx, q, &out, `
    SELECT `+edgeColumns+`
    FROM hierarchy_edges
    WHERE organization_id = $1 AND is_active AND deleted_at IS NULL
    ORDER BY created_at, id
  `, orgID)
	if err != nil {
		return nil, db.MapError(err, "hierarchy edges", orgID)
	}
	return out, nil
}

func (s *Store) Get(ctx context.Context, id string) (Edge, error) {
	var e Edge
	err := pgxscan.Get(ctx, s.DB, &e, `
    SELECT `+edgeColumns+`
    FROM hierarchy_edges
    WHERE id = $1 AND deleted_at IS NULL
  `, id)
	if err != nil {
		return Edge{}, db.MapError(err, "hierarchy edge", id)
	}
	return e, nil
}

func (s *Store) CreateEdge(ctx context.Context, edge Edge, check func(*Graph) error) (Edge, error) {
	var created Edge
	err := db.InTx(ctx, s.DB, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(tx pgx.Tx) error {
		if err := db.LockXact(ctx, tx, lockScope, edge.OrganizationID); err != nil {
			return err
		}
		edges, err := listLive(ctx, tx, edge.OrganizationID)
		if err != nil {
			return err
		}
		if err := check(NewGraph(edges)); err != nil {
			return err
		}
		err = pgxscan.Get(ctx, tx, &created, `
      INSERT INTO hierarchy_edges (organization_id, staff_id, reports_to_id, relationship_kind, is_active, created_by)
      VALUES ($1,$2,$3,$4,TRUE,$5)
      RETURNING `+edgeColumns,
			edge.OrganizationID, edge.StaffID, edge.ReportsToID, edge.RelationshipKind, edge.CreatedBy)
		if err != nil {
			return db.MapError(err, "hierarchy edge", edge.StaffID)
		}
		return nil
	})
	if err != nil {
		return Edge{}, err
	}
	return created, nil
}

func (s *Store) SoftDelete(ctx context.Context, id string) (Edge, error) {
	var e Edge
	err := pgxscan.Get(ctx, s.DB, &e, `
    UPDATE hierarchy_edges
    SET deleted_at = now(), is_active = FALSE, updated_at = now()
    WHERE id = $1 AND deleted_at IS NULL
    RETURNING `+edgeColumns, id)
	if err != nil {
		return Edge{}, db.MapError(err, "hierarchy edge", id)
	}
	return e, nil
}
