package staff

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"evalhub/internal/platform/db"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var columns = []string{
	"id", "organization_id", "program_id", "role_id", "full_name", "email",
	"is_active", "available_for_evaluation", "created_at", "updated_at", "deleted_at",
}

type Store struct {
	DB db.DBTX
}

func NewStore(q db.DBTX) *Store {
	return &Store{DB: q}
}

// Get returns a live staff member.
func (s *Store) Get(ctx context.Context, id string) (StaffMember, error) {
	query, args, err := psql.Select(columns...).
		From("staff_members").
		Where(sq.Eq{"id": id, "deleted_at": nil}).
		ToSql()
	if err != nil {
		return StaffMember{}, err
	}
	var m StaffMember
	if err := pgxscan.Get(ctx, s.DB, &m, query, args...); err != nil {
		return StaffMember{}, db.MapError(err, "staff member", id)
	}
	return m, nil
}

func (s *Store) List(ctx context.Context, f Filter) ([]StaffMember, error) {
	builder := psql.Select(columns...).
		From("staff_members").
		Where(sq.Eq{"organization_id": f.OrganizationID, "is_active": true, "deleted_at": nil})
	if f.ProgramID != nil {
		builder = builder.Where(sq.Eq{"program_id": *f.ProgramID})
	}
	if f.EvaluableOnly {
		builder = builder.Where(sq.Eq{"available_for_evaluation": true})
	}
	query, args, err := builder.OrderBy("full_name", "id").ToSql()
	if err != nil {
		return nil, err
	}
	var out []StaffMember
	if err := pgxscan.Select(ctx, s.DB, &out, query, args...); err != nil {
		return nil, db.MapError(err, "staff members", f.OrganizationID)
	}
	return out, nil
}
